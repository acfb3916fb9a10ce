package pickup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"leaf-kart/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_Issue_FirstAttempt(t *testing.T) {
	issuer := NewIssuer(3, zerolog.Nop())

	var reserved []string
	code, err := issuer.Issue(context.Background(), model.PaymentMethodCash, func(ctx context.Context, code string) error {
		reserved = append(reserved, code)
		return nil
	})

	require.NoError(t, err)
	assert.Regexp(t, `^C\d{6}$`, code)
	assert.Equal(t, []string{code}, reserved)
}

func TestIssuer_Issue_RetriesOnCollision(t *testing.T) {
	issuer := NewIssuer(5, zerolog.Nop())

	codes := []string{"P000001", "P000002", "P000003"}
	next := 0
	issuer.generate = func(model.PaymentMethod) (string, error) {
		c := codes[next]
		next++
		return c, nil
	}

	taken := map[string]bool{"P000001": true, "P000002": true}
	code, err := issuer.Issue(context.Background(), model.PaymentMethodInAppCard, func(ctx context.Context, code string) error {
		if taken[code] {
			return fmt.Errorf("insert order: %w", model.ErrPickupCodeTaken)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "P000003", code)
	assert.Equal(t, 3, next)
}

func TestIssuer_Issue_Exhausted(t *testing.T) {
	issuer := NewIssuer(2, zerolog.Nop())

	calls := 0
	code, err := issuer.Issue(context.Background(), model.PaymentMethodCash, func(ctx context.Context, code string) error {
		calls++
		return model.ErrPickupCodeTaken
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPickupCodeExhausted)
	assert.Empty(t, code)
	assert.Equal(t, 2, calls)
}

func TestIssuer_Issue_OtherErrorStops(t *testing.T) {
	issuer := NewIssuer(5, zerolog.Nop())
	dbErr := errors.New("connection reset")

	calls := 0
	_, err := issuer.Issue(context.Background(), model.PaymentMethodCash, func(ctx context.Context, code string) error {
		calls++
		return dbErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.Equal(t, 1, calls)
}

func TestIssuer_Issue_CancelledContext(t *testing.T) {
	issuer := NewIssuer(5, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := issuer.Issue(ctx, model.PaymentMethodCash, func(ctx context.Context, code string) error {
		t.Error("reserve should not be called")
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIssuer_Issue_ConcurrentUnique(t *testing.T) {
	issuer := NewIssuer(DefaultMaxAttempts, zerolog.Nop())

	// Shrink the code space so collisions actually happen.
	var genMu sync.Mutex
	seq := 0
	issuer.generate = func(model.PaymentMethod) (string, error) {
		genMu.Lock()
		defer genMu.Unlock()
		seq++
		return fmt.Sprintf("C%06d", seq%40), nil
	}

	var mu sync.Mutex
	live := make(map[string]bool)
	reserve := func(ctx context.Context, code string) error {
		mu.Lock()
		defer mu.Unlock()
		if live[code] {
			return model.ErrPickupCodeTaken
		}
		live[code] = true
		return nil
	}

	var wg sync.WaitGroup
	results := make(chan string, 30)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, err := issuer.Issue(context.Background(), model.PaymentMethodCash, reserve)
			if err == nil {
				results <- code
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for code := range results {
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
	assert.NotEmpty(t, seen)
}
