package repository

import (
	"context"
	"fmt"

	"leaf-kart/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cartRepository implements CartRepository using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

func (r *cartRepository) GetItems(ctx context.Context, customerID string) ([]model.CartItem, error) {
	query := `
		SELECT customer_id, product_id, quantity, updated_at
		FROM cart_items
		WHERE customer_id = $1
		ORDER BY updated_at, product_id
	`

	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		r.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	items := []model.CartItem{}
	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.CustomerID, &item.ProductID, &item.Quantity, &item.UpdatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart row")
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart rows")
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

func (r *cartRepository) UpsertItem(ctx context.Context, item *model.CartItem) error {
	query := `
		INSERT INTO cart_items (customer_id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (customer_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity
	`

	_, err := r.pool.Exec(ctx, query, item.CustomerID, item.ProductID, item.Quantity, item.UpdatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("customer_id", item.CustomerID).
			Str("product_id", item.ProductID).
			Msg("failed to upsert cart item")
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}

	return nil
}

func (r *cartRepository) RemoveItem(ctx context.Context, customerID, productID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE customer_id = $1 AND product_id = $2`,
		customerID, productID,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("customer_id", customerID).
			Str("product_id", productID).
			Msg("failed to remove cart item")
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) Clear(ctx context.Context, customerID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE customer_id = $1`, customerID); err != nil {
		r.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (r *cartRepository) ClearTx(ctx context.Context, tx pgx.Tx, customerID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE customer_id = $1`, customerID); err != nil {
		r.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
