// Package idempotency remembers which order an Idempotency-Key produced so a
// retried checkout returns the original order.
package idempotency

import (
	"context"
	"fmt"
	"time"

	radix "github.com/mediocregopher/radix/v3"
	"github.com/rs/zerolog"
)

// Pending is stored under a key while the checkout that claimed it runs.
const Pending = "pending"

// reserveTTL bounds how long a crashed checkout can hold a key.
const reserveTTL = time.Minute

// Store maps a customer's idempotency key to a result id.
type Store interface {
	// Lookup returns the stored value for key, if any. A claimed key whose
	// checkout is still running reads as Pending.
	Lookup(ctx context.Context, customerID, key string) (string, bool, error)

	// Reserve claims key by storing Pending unless a value is already stored.
	// It reports whether this call claimed it.
	Reserve(ctx context.Context, customerID, key string) (bool, error)

	// Complete replaces the reservation with the result value.
	Complete(ctx context.Context, customerID, key, value string) error

	// Release drops a reservation so the key can be retried. Completed keys
	// are left alone.
	Release(ctx context.Context, customerID, key string) error

	Close() error
}

// RedisStore keeps keys in Redis with a TTL.
type RedisStore struct {
	client radix.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisStore creates a pooled Redis connection.
func NewRedisStore(addr string, poolSize int, ttl time.Duration, logger zerolog.Logger) (*RedisStore, error) {
	logger = logger.With().Str("component", "idempotency").Logger()

	pool, err := radix.NewPool("tcp", addr, poolSize)
	if err != nil {
		logger.Error().Err(err).Str("addr", addr).Msg("failed to connect to redis")
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("addr", addr).Int("pool_size", poolSize).Msg("idempotency store connected")

	return NewRedisStoreWithClient(pool, ttl, logger), nil
}

// NewRedisStoreWithClient wraps an existing radix client.
func NewRedisStoreWithClient(client radix.Client, ttl time.Duration, logger zerolog.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

func redisKey(customerID, key string) string {
	return "idem:checkout:" + customerID + ":" + key
}

func (s *RedisStore) Lookup(ctx context.Context, customerID, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	var value string
	mn := radix.MaybeNil{Rcv: &value}
	if err := s.client.Do(radix.Cmd(&mn, "GET", redisKey(customerID, key))); err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to read idempotency key")
		return "", false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if mn.Nil {
		return "", false, nil
	}
	return value, true, nil
}

func (s *RedisStore) Reserve(ctx context.Context, customerID, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	ttl := reserveTTL
	if s.ttl < ttl {
		ttl = s.ttl
	}

	var reply string
	mn := radix.MaybeNil{Rcv: &reply}
	if err := s.client.Do(radix.FlatCmd(&mn, "SET", redisKey(customerID, key), Pending, "NX", "EX", seconds(ttl))); err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to reserve idempotency key")
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}

	return !mn.Nil, nil
}

func (s *RedisStore) Complete(ctx context.Context, customerID, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.client.Do(radix.FlatCmd(nil, "SET", redisKey(customerID, key), value, "EX", seconds(s.ttl))); err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to store idempotency key")
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}

// releaseScript deletes the key only while it still holds the reservation.
var releaseScript = radix.NewEvalScript(1, `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

func (s *RedisStore) Release(ctx context.Context, customerID, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.client.Do(releaseScript.Cmd(nil, redisKey(customerID, key), Pending)); err != nil {
		s.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to release idempotency key")
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// seconds converts a TTL for EX, which rejects zero.
func seconds(d time.Duration) int64 {
	secs := int64(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// NopStore remembers nothing.
type NopStore struct{}

func (NopStore) Lookup(context.Context, string, string) (string, bool, error) { return "", false, nil }

func (NopStore) Reserve(context.Context, string, string) (bool, error) { return true, nil }

func (NopStore) Complete(context.Context, string, string, string) error { return nil }

func (NopStore) Release(context.Context, string, string) error { return nil }

func (NopStore) Close() error { return nil }
