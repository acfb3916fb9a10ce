package pickup

import (
	"context"
	"errors"
	"fmt"

	"leaf-kart/internal/model"

	"github.com/rs/zerolog"
)

// DefaultMaxAttempts is how many codes the issuer tries before giving up.
const DefaultMaxAttempts = 5

// ReserveFunc persists an order under code. It must return an error wrapping
// model.ErrPickupCodeTaken when the code is already in use.
type ReserveFunc func(ctx context.Context, code string) error

// Issuer mints codes and retries on collision.
type Issuer struct {
	maxAttempts int
	generate    func(model.PaymentMethod) (string, error)
	logger      zerolog.Logger
}

// NewIssuer creates an issuer. maxAttempts < 1 falls back to DefaultMaxAttempts.
func NewIssuer(maxAttempts int, logger zerolog.Logger) *Issuer {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Issuer{
		maxAttempts: maxAttempts,
		generate:    Generate,
		logger:      logger.With().Str("component", "pickup-issuer").Logger(),
	}
}

// Issue generates a code for method and hands it to reserve, regenerating on
// collision. It returns the code that was reserved.
func (i *Issuer) Issue(ctx context.Context, method model.PaymentMethod, reserve ReserveFunc) (string, error) {
	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := i.generate(method)
		if err != nil {
			return "", err
		}

		err = reserve(ctx, code)
		if err == nil {
			return code, nil
		}

		if !errors.Is(err, model.ErrPickupCodeTaken) {
			return "", err
		}

		i.logger.Warn().
			Str("pickup_code", code).
			Int("attempt", attempt).
			Msg("pickup code collision, regenerating")
	}

	i.logger.Error().
		Int("attempts", i.maxAttempts).
		Str("payment_method", string(method)).
		Msg("exhausted pickup code attempts")

	return "", fmt.Errorf("after %d attempts: %w", i.maxAttempts, model.ErrPickupCodeExhausted)
}
