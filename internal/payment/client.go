package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"leaf-kart/internal/config"

	"github.com/rs/zerolog"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// Client is a Gateway backed by Stripe hosted checkout sessions.
type Client struct {
	sessions   *session.Client
	currency   string
	successURL string
	cancelURL  string
	logger     zerolog.Logger
}

// NewClient creates a gateway client from configuration. A non-empty BaseURL
// points the Stripe backend at another host.
func NewClient(cfg config.PaymentConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		backendCfg.URL = stripe.String(base)
	}

	return &Client{
		sessions: &session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.APIKey,
		},
		currency:   cfg.Currency,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		logger:     logger.With().Str("component", "payment-gateway").Logger(),
	}
}

// CreateCheckoutSession opens a payment-mode session with one price_data line
// per item.
func (c *Client) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
	}
	params.Context = ctx
	if c.successURL != "" {
		params.SuccessURL = stripe.String(c.successURL)
	}
	if c.cancelURL != "" {
		params.CancelURL = stripe.String(c.cancelURL)
	}

	for _, item := range req.Items {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(c.currency),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := c.sessions.New(params)
	if err != nil {
		err = c.wrap(ctx, err)
		c.logger.Error().Err(err).Int("line_items", len(req.Items)).Msg("failed to create checkout session")
		return nil, err
	}

	c.logger.Info().Str("session_id", s.ID).Msg("checkout session created")
	return &Session{ID: s.ID, URL: s.URL}, nil
}

// GetSessionStatus fetches a session by id.
func (c *Client) GetSessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := c.sessions.Get(sessionID, params)
	if err != nil {
		err = c.wrap(ctx, err)
		c.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to fetch session status")
		return nil, err
	}

	return statusOf(s), nil
}

// ExpireCheckoutSession closes an open session so it can no longer be paid.
func (c *Client) ExpireCheckoutSession(ctx context.Context, sessionID string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx

	if _, err := c.sessions.Expire(sessionID, params); err != nil {
		err = c.wrap(ctx, err)
		c.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to expire checkout session")
		return err
	}

	c.logger.Info().Str("session_id", sessionID).Msg("checkout session expired")
	return nil
}

func statusOf(s *stripe.CheckoutSession) *SessionStatus {
	status := &SessionStatus{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		Status:        string(s.Status),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
	}
	if s.PaymentIntent != nil {
		status.PaymentIntent = s.PaymentIntent.ID
	}
	return status
}

// wrap maps stripe-go failures onto ErrGateway, keeping context errors intact.
func (c *Client) wrap(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return fmt.Errorf("%w: %d %s", ErrGateway, stripeErr.HTTPStatusCode, stripeErr.Msg)
	}
	return fmt.Errorf("%w: %v", ErrGateway, err)
}
