package service

import (
	"context"
	"fmt"
	"time"

	"leaf-kart/internal/events"
	"leaf-kart/internal/model"
	"leaf-kart/internal/pickup"
	"leaf-kart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// pickupService implements PickupService.
type pickupService struct {
	orderRepo  repository.OrderRepository
	transition *transitioner
	now        func() time.Time
	logger     zerolog.Logger
}

// NewPickupService creates the staff pickup service. A nil publisher drops events.
func NewPickupService(orderRepo repository.OrderRepository, publisher events.Publisher, logger zerolog.Logger) PickupService {
	logger = logger.With().Str("service", "pickup").Logger()
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &pickupService{
		orderRepo: orderRepo,
		transition: &transitioner{
			orderRepo: orderRepo,
			publisher: publisher,
			logger:    logger,
		},
		now:    time.Now,
		logger: logger,
	}
}

// Lookup normalises code, checks it belongs to path and fetches the order.
func (s *pickupService) Lookup(ctx context.Context, code string, path pickup.Path) (*model.Order, error) {
	normalised, err := pickup.CheckPath(code, path)
	if err != nil {
		s.logger.Debug().Str("pickup_code", code).Str("path", string(path)).Err(err).Msg("pickup code rejected")
		return nil, err
	}

	order, err := s.orderRepo.GetByPickupCode(ctx, normalised)
	if err != nil {
		s.logger.Error().Err(err).Str("pickup_code", normalised).Msg("failed to look up order")
		return nil, fmt.Errorf("failed to look up order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	return order, nil
}

func (s *pickupService) Process(ctx context.Context, staffID string, req *model.ProcessRequest) (*model.ProcessResult, error) {
	if req == nil {
		return nil, model.NewValidationError("process request is required")
	}
	if staffID == "" {
		return nil, model.ErrForbidden
	}
	if req.StaffID != "" && req.StaffID != staffID {
		s.logger.Warn().
			Str("staff_id", staffID).
			Str("claimed_staff_id", req.StaffID).
			Msg("staff id does not match caller")
		return nil, model.ErrForbidden
	}
	if !req.Action.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("unknown action %q", req.Action))
	}

	order, err := s.Lookup(ctx, req.PickupCode, pickup.PathAny)
	if err != nil {
		return nil, err
	}

	next, err := model.NextStatus(order.PaymentMethod, order.Status, req.Action)
	if err != nil {
		s.logger.Info().
			Str("pickup_code", order.PickupCode).
			Str("status", string(order.Status)).
			Str("action", string(req.Action)).
			Err(err).
			Msg("action rejected")
		return nil, err
	}

	update := &model.StatusUpdate{
		OrderID:   order.ID,
		From:      order.Status,
		To:        next,
		ChangedBy: staffID,
		At:        s.now(),
		Notes:     req.Notes,
	}

	var warnings []string
	if req.Action == model.ActionCashPaid {
		warning, err := s.checkCash(order, req)
		if err != nil {
			return nil, err
		}
		update.CashReceived = decimal.NewNullDecimal(*req.CashReceived)
		if warning != "" {
			update.AmountMismatch = true
			warnings = append(warnings, warning)
		}
	}

	updated, err := s.transition.apply(ctx, update, req.Notes)
	if err != nil {
		return nil, err
	}

	return &model.ProcessResult{Order: updated, Warnings: warnings}, nil
}

// checkCash compares the cash received with the order total. A difference is
// refused unless staff confirmed it, in which case a warning is returned.
func (s *pickupService) checkCash(order *model.Order, req *model.ProcessRequest) (string, error) {
	if req.CashReceived == nil {
		return "", model.NewValidationError("cashReceived is required for cash_paid")
	}
	received := *req.CashReceived
	if received.IsNegative() {
		return "", model.NewValidationError("cashReceived must not be negative")
	}

	if received.Equal(order.Total) {
		return "", nil
	}

	if !req.ConfirmAmountMismatch {
		s.logger.Info().
			Str("pickup_code", order.PickupCode).
			Str("total", order.Total.StringFixed(2)).
			Str("received", received.StringFixed(2)).
			Msg("cash amount mismatch needs confirmation")
		return "", fmt.Errorf("received %s, total %s: %w",
			received.StringFixed(2), order.Total.StringFixed(2), model.ErrAmountMismatch)
	}

	return fmt.Sprintf("cash received %s differs from order total %s",
		received.StringFixed(2), order.Total.StringFixed(2)), nil
}

func (s *pickupService) ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("unknown status %q", *filter.Status))
	}
	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)

	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *pickupService) History(ctx context.Context, orderID uuid.UUID) ([]model.StatusChange, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	history, err := s.orderRepo.GetHistory(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return history, nil
}
