package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"leaf-kart/internal/model"

	"github.com/rs/zerolog"
)

// Verifier polls the gateway until a session is paid, fails, or the attempt
// budget runs out.
type Verifier struct {
	gateway  Gateway
	currency string
	attempts int
	interval time.Duration
	logger   zerolog.Logger
}

// NewVerifier creates a verifier for sessions charged in currency. attempts
// below 1 are treated as 1.
func NewVerifier(gateway Gateway, currency string, attempts int, interval time.Duration, logger zerolog.Logger) *Verifier {
	if attempts < 1 {
		attempts = 1
	}
	return &Verifier{
		gateway:  gateway,
		currency: currency,
		attempts: attempts,
		interval: interval,
		logger:   logger.With().Str("component", "payment-verifier").Logger(),
	}
}

// Verify polls sessionID. It returns the paid status, model.ErrPaymentFailed
// when the session expired or the paid amount or currency differs from the order,
// model.ErrVerificationTimeout when no attempt saw a final state, or the
// context error when the caller gives up.
func (v *Verifier) Verify(ctx context.Context, sessionID string, expectedMinor int64) (*SessionStatus, error) {
	for attempt := 1; attempt <= v.attempts; attempt++ {
		status, err := v.Check(ctx, sessionID, expectedMinor)
		switch {
		case err == nil && status != nil:
			return status, nil
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil && !isTransient(err):
			return nil, err
		}

		v.logger.Debug().
			Str("session_id", sessionID).
			Int("attempt", attempt).
			Int("max_attempts", v.attempts).
			Msg("payment not confirmed yet")

		if attempt == v.attempts {
			break
		}

		timer := time.NewTimer(v.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			v.logger.Info().Str("session_id", sessionID).Msg("payment verification cancelled")
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	v.logger.Warn().
		Str("session_id", sessionID).
		Int("attempts", v.attempts).
		Msg("payment verification timed out")

	return nil, fmt.Errorf("session %s after %d attempts: %w", sessionID, v.attempts, model.ErrVerificationTimeout)
}

// Check asks the gateway once. A nil status with a nil error means the
// session is still open.
func (v *Verifier) Check(ctx context.Context, sessionID string, expectedMinor int64) (*SessionStatus, error) {
	status, err := v.gateway.GetSessionStatus(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if status.Paid() {
		if status.AmountTotal != expectedMinor {
			v.logger.Error().
				Str("session_id", sessionID).
				Int64("expected", expectedMinor).
				Int64("paid", status.AmountTotal).
				Msg("paid amount differs from order total")
			return nil, fmt.Errorf("paid %d, expected %d: %w", status.AmountTotal, expectedMinor, model.ErrPaymentFailed)
		}
		if !strings.EqualFold(status.Currency, v.currency) {
			v.logger.Error().
				Str("session_id", sessionID).
				Str("expected", v.currency).
				Str("paid", status.Currency).
				Msg("paid currency differs from store currency")
			return nil, fmt.Errorf("paid in %q, expected %q: %w", status.Currency, v.currency, model.ErrPaymentFailed)
		}
		return status, nil
	}

	if status.Expired() {
		return nil, fmt.Errorf("session %s expired: %w", sessionID, model.ErrPaymentFailed)
	}

	return nil, nil
}

func isTransient(err error) bool {
	_, isDomain := model.AsDomainError(err)
	return !isDomain
}
