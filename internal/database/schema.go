package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PickupCodeConstraint is the unique constraint guarding pickup codes. The
// order repository matches on it to tell code collisions from other conflicts.
const PickupCodeConstraint = "orders_pickup_code_key"

// Schema is the idempotent DDL for the order store.
const Schema = `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price NUMERIC(10,2) NOT NULL CHECK (price >= 0),
		category TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		pickup_code TEXT NOT NULL CONSTRAINT orders_pickup_code_key UNIQUE
			CHECK (pickup_code ~ '^[CP][0-9]{6}$'),
		customer_id TEXT NOT NULL,
		total NUMERIC(12,2) NOT NULL CHECK (total >= 0),
		payment_method TEXT NOT NULL CHECK (payment_method IN ('cash', 'in_app_card')),
		status TEXT NOT NULL CHECK (status IN (
			'pending', 'paid_in_app', 'awaiting_pickup',
			'picked_up', 'cash_paid_in_store', 'cancelled')),
		notes TEXT,
		cash_received NUMERIC(12,2),
		amount_mismatch BOOLEAN NOT NULL DEFAULT FALSE,
		payment_session_id TEXT UNIQUE,
		payment_transaction_id TEXT,
		paid_at TIMESTAMPTZ,
		processed_at TIMESTAMPTZ,
		processed_by TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

	CREATE TABLE IF NOT EXISTS order_items (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id),
		position INTEGER NOT NULL,
		product_id TEXT NOT NULL REFERENCES products(id),
		product_name TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(10,2) NOT NULL CHECK (unit_price >= 0),
		UNIQUE (order_id, position)
	);

	CREATE TABLE IF NOT EXISTS order_status_log (
		id BIGSERIAL PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id),
		from_status TEXT,
		to_status TEXT NOT NULL,
		changed_by TEXT NOT NULL,
		changed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		note TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_order_status_log_order_id ON order_status_log(order_id);

	CREATE TABLE IF NOT EXISTS cart_items (
		customer_id TEXT NOT NULL,
		product_id TEXT NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (customer_id, product_id)
	);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	logger.Info().Msg("applying database schema")

	if _, err := pool.Exec(ctx, Schema); err != nil {
		logger.Error().Err(err).Msg("failed to apply database schema")
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info().Msg("database schema applied")
	return nil
}
