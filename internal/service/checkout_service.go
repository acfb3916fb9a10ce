package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leaf-kart/internal/cart"
	"leaf-kart/internal/events"
	"leaf-kart/internal/idempotency"
	"leaf-kart/internal/members"
	"leaf-kart/internal/model"
	"leaf-kart/internal/payment"
	"leaf-kart/internal/pickup"
	"leaf-kart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GatewayActor is recorded as the author of gateway-driven status changes.
const GatewayActor = "payment-gateway"

// CheckoutDeps groups the collaborators of the checkout service.
type CheckoutDeps struct {
	Orders      repository.OrderRepository
	Products    ProductService
	Carts       repository.CartRepository
	Issuer      *pickup.Issuer
	Gateway     payment.Gateway
	Verifier    *payment.Verifier
	Members     members.Checker
	Idempotency idempotency.Store
	Publisher   events.Publisher
}

// checkoutService implements CheckoutService.
type checkoutService struct {
	orderRepo   repository.OrderRepository
	products    ProductService
	cartRepo    repository.CartRepository
	issuer      *pickup.Issuer
	gateway     payment.Gateway
	verifier    *payment.Verifier
	members     members.Checker
	idem        idempotency.Store
	transition  *transitioner
	now         func() time.Time
	logger      zerolog.Logger
}

// NewCheckoutService creates a new checkout service. Nil optional
// collaborators fall back to open membership, no idempotency and no events.
func NewCheckoutService(deps CheckoutDeps, logger zerolog.Logger) CheckoutService {
	logger = logger.With().Str("service", "checkout").Logger()

	if deps.Members == nil {
		deps.Members = members.NewOpenChecker()
	}
	if deps.Idempotency == nil {
		deps.Idempotency = idempotency.NopStore{}
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Issuer == nil {
		deps.Issuer = pickup.NewIssuer(pickup.DefaultMaxAttempts, logger)
	}

	return &checkoutService{
		orderRepo:   deps.Orders,
		products:    deps.Products,
		cartRepo:    deps.Carts,
		issuer:      deps.Issuer,
		gateway:     deps.Gateway,
		verifier:    deps.Verifier,
		members:     deps.Members,
		idem:        deps.Idempotency,
		transition: &transitioner{
			orderRepo: deps.Orders,
			publisher: deps.Publisher,
			logger:    logger,
		},
		now:    time.Now,
		logger: logger,
	}
}

func (s *checkoutService) Checkout(ctx context.Context, customerID string, req *model.CheckoutRequest, idempotencyKey string) (*model.CheckoutResult, error) {
	if req == nil {
		return nil, model.NewValidationError("checkout request is required")
	}

	if idempotencyKey == "" {
		return s.place(ctx, customerID, req)
	}

	claimed, err := s.idem.Reserve(ctx, customerID, idempotencyKey)
	if err != nil {
		// An unavailable store does not block checkout.
		s.logger.Warn().Err(err).Str("customer_id", customerID).Msg("idempotency reservation failed")
		return s.place(ctx, customerID, req)
	}
	if !claimed {
		return s.replay(ctx, customerID, idempotencyKey)
	}

	// The key outlives a cancelled request.
	bg := context.WithoutCancel(ctx)

	result, err := s.place(ctx, customerID, req)
	if err != nil {
		if relErr := s.idem.Release(bg, customerID, idempotencyKey); relErr != nil {
			s.logger.Warn().Err(relErr).Str("customer_id", customerID).Msg("failed to release idempotency key")
		}
		return nil, err
	}

	if err := s.idem.Complete(bg, customerID, idempotencyKey, result.Order.ID.String()); err != nil {
		s.logger.Warn().
			Err(err).
			Str("order_id", result.Order.ID.String()).
			Msg("idempotency key not recorded")
	}

	return result, nil
}

// place validates the request, prices it and writes the order.
func (s *checkoutService) place(ctx context.Context, customerID string, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	if !req.PaymentMethod.Valid() {
		return nil, model.ErrInvalidPaymentMethod
	}

	ok, err := s.members.IsMember(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		s.logger.Warn().Str("customer_id", customerID).Msg("checkout by non-member rejected")
		return nil, model.ErrNotMember
	}

	c, err := s.buildCart(ctx, customerID, req.Items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &model.Order{
		ID:            uuid.New(),
		CustomerID:    customerID,
		PaymentMethod: req.PaymentMethod,
		Status:        model.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	order.Items = c.OrderItems()
	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
	}
	order.Total = model.ComputeTotal(order.Items)

	result := &model.CheckoutResult{Order: order}

	if order.PaymentMethod == model.PaymentMethodInAppCard {
		session, err := s.openSession(ctx, order)
		if err != nil {
			return nil, err
		}
		order.PaymentSessionID = &session.ID
		result.CheckoutURL = session.URL
	}

	code, err := s.issuer.Issue(ctx, order.PaymentMethod, func(ctx context.Context, code string) error {
		order.PickupCode = code
		return s.persist(ctx, order)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to place order")
		if order.PaymentSessionID != nil {
			s.expireSession(ctx, *order.PaymentSessionID)
		}
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	order.PickupCode = code

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("pickup_code", code).
		Str("payment_method", string(order.PaymentMethod)).
		Str("total", order.Total.StringFixed(2)).
		Int("item_count", len(order.Items)).
		Msg("order placed")

	s.transition.publish(ctx, events.EventOrderCreated, order, customerID)

	return result, nil
}

// replay answers a request whose key is already claimed: with the order the
// first request created, or ErrCheckoutInProgress while it is still running.
func (s *checkoutService) replay(ctx context.Context, customerID, key string) (*model.CheckoutResult, error) {
	value, found, err := s.idem.Lookup(ctx, customerID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	if !found || value == idempotency.Pending {
		return nil, model.ErrCheckoutInProgress
	}

	id, err := uuid.Parse(value)
	if err != nil {
		s.logger.Error().Str("value", value).Msg("malformed idempotency value")
		return nil, fmt.Errorf("malformed idempotency value %q", value)
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load replayed order: %w", err)
	}
	if order == nil || order.CustomerID != customerID {
		return nil, model.ErrCheckoutInProgress
	}

	s.logger.Info().Str("order_id", order.ID.String()).Msg("checkout replayed")
	return &model.CheckoutResult{Order: order, Replayed: true}, nil
}

// buildCart prices the requested items, or the stored cart when none are
// given, at current catalogue prices.
func (s *checkoutService) buildCart(ctx context.Context, customerID string, items []model.OrderItemRequest) (*cart.Cart, error) {
	if len(items) > 0 {
		return s.products.PriceItems(ctx, items)
	}

	c, err := loadCart(ctx, s.cartRepo, s.products, customerID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, model.ErrEmptyCart
	}
	return c, nil
}

func (s *checkoutService) openSession(ctx context.Context, order *model.Order) (*payment.Session, error) {
	if s.gateway == nil {
		return nil, fmt.Errorf("no payment gateway configured: %w", model.ErrPaymentFailed)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.SessionRequest{
		Items: payment.LineItemsFor(order.Items),
		Metadata: map[string]string{
			"order_id":    order.ID.String(),
			"customer_id": order.CustomerID,
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("checkout session failed")
		return nil, fmt.Errorf("%w: %w", model.ErrPaymentFailed, err)
	}
	return session, nil
}

// expireSession closes a session left without an order.
func (s *checkoutService) expireSession(ctx context.Context, sessionID string) {
	if err := s.gateway.ExpireCheckoutSession(context.WithoutCancel(ctx), sessionID); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to expire orphaned checkout session")
	}
}

// persist writes the order, its items, its first log row and clears the
// stored cart in one transaction.
func (s *checkoutService) persist(ctx context.Context, order *model.Order) (err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return err
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, order.Items); err != nil {
		return err
	}

	if err = s.orderRepo.InsertStatusChange(ctx, tx, &model.StatusChange{
		OrderID:   order.ID,
		ToStatus:  order.Status,
		ChangedBy: order.CustomerID,
		ChangedAt: order.CreatedAt,
	}); err != nil {
		return err
	}

	if err = s.cartRepo.ClearTx(ctx, tx, order.CustomerID); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return err
	}

	return nil
}

func (s *checkoutService) GetOrder(ctx context.Context, customerID string, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	// Other customers' orders are reported as missing.
	if order == nil || order.CustomerID != customerID {
		return nil, model.ErrOrderNotFound
	}

	return order, nil
}

func (s *checkoutService) ListOrders(ctx context.Context, customerID string, limit, offset int) ([]model.Order, error) {
	limit, offset = clampPage(limit, offset)

	orders, err := s.orderRepo.ListByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *checkoutService) VerifyPayment(ctx context.Context, customerID string, id uuid.UUID) (*model.Order, error) {
	order, err := s.GetOrder(ctx, customerID, id)
	if err != nil {
		return nil, err
	}

	if order.PaymentMethod != model.PaymentMethodInAppCard {
		return nil, model.ErrInvalidTransition
	}
	if order.Status == model.StatusCancelled {
		return nil, model.ErrPaymentFailed
	}
	if !model.CanConfirmPayment(order.PaymentMethod, order.Status) {
		// Already confirmed, possibly by the webhook.
		return order, nil
	}
	if s.verifier == nil || order.PaymentSessionID == nil {
		return nil, model.ErrVerificationTimeout
	}

	status, err := s.verifier.Verify(ctx, *order.PaymentSessionID, payment.ToMinorUnits(order.Total))
	if err != nil {
		if errors.Is(err, model.ErrPaymentFailed) {
			s.failPayment(ctx, order, err)
		}
		return nil, err
	}

	return s.confirmPaid(ctx, order, status)
}

func (s *checkoutService) HandleWebhook(ctx context.Context, sessionID string) (*model.Order, error) {
	if sessionID == "" {
		return nil, model.NewValidationError("session ID is required")
	}

	order, err := s.orderRepo.GetByPaymentSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	if !model.CanConfirmPayment(order.PaymentMethod, order.Status) {
		return order, nil
	}
	if s.verifier == nil {
		return nil, model.ErrVerificationTimeout
	}

	status, err := s.verifier.Check(ctx, sessionID, payment.ToMinorUnits(order.Total))
	if err != nil {
		if errors.Is(err, model.ErrPaymentFailed) {
			s.failPayment(ctx, order, err)
		}
		return nil, err
	}
	if status == nil {
		// Session still open; a later notification settles it.
		return order, nil
	}

	return s.confirmPaid(ctx, order, status)
}

func (s *checkoutService) confirmPaid(ctx context.Context, order *model.Order, status *payment.SessionStatus) (*model.Order, error) {
	var txID *string
	if status.PaymentIntent != "" {
		txID = &status.PaymentIntent
	}

	updated, err := s.transition.apply(ctx, &model.StatusUpdate{
		OrderID:       order.ID,
		From:          model.StatusPending,
		To:            model.StatusPaidInApp,
		ChangedBy:     GatewayActor,
		At:            s.now(),
		TransactionID: txID,
	}, nil)
	if err != nil {
		if errors.Is(err, model.ErrStaleStatus) || errors.Is(err, model.ErrAlreadyProcessed) {
			// A concurrent confirmation won; report the current order.
			if current, getErr := s.orderRepo.GetByID(ctx, order.ID); getErr == nil && current != nil &&
				current.Status != model.StatusCancelled {
				return current, nil
			}
		}
		return nil, err
	}

	return updated, nil
}

// failPayment cancels a pending card order whose payment was declined.
func (s *checkoutService) failPayment(ctx context.Context, order *model.Order, cause error) {
	note := cause.Error()
	_, err := s.transition.apply(ctx, &model.StatusUpdate{
		OrderID:   order.ID,
		From:      model.StatusPending,
		To:        model.StatusCancelled,
		ChangedBy: GatewayActor,
		At:        s.now(),
		Notes:     &note,
	}, &note)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to cancel unpaid order")
	}
}
