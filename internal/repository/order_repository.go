package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leaf-kart/internal/database"
	"leaf-kart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const pgUniqueViolation = "23505"

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

const orderColumns = `
	id, pickup_code, customer_id, total, payment_method, status, notes,
	cash_received, amount_mismatch, payment_session_id, payment_transaction_id,
	paid_at, processed_at, processed_by, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.PickupCode,
		&o.CustomerID,
		&o.Total,
		&o.PaymentMethod,
		&o.Status,
		&o.Notes,
		&o.CashReceived,
		&o.AmountMismatch,
		&o.PaymentSessionID,
		&o.PaymentTransactionID,
		&o.PaidAt,
		&o.ProcessedAt,
		&o.ProcessedBy,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, pickup_code, customer_id, total, payment_method, status,
			payment_session_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.PickupCode,
		order.CustomerID,
		order.Total,
		order.PaymentMethod,
		order.Status,
		order.PaymentSessionID,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation &&
			pgErr.ConstraintName == database.PickupCodeConstraint {
			r.logger.Debug().
				Str("pickup_code", order.PickupCode).
				Msg("pickup code already in use")
			return fmt.Errorf("failed to create order: %w", model.ErrPickupCodeTaken)
		}
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("pickup_code", order.PickupCode).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, position, product_id, product_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.Position, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// InsertStatusChange appends a row to the order's audit trail.
func (r *orderRepository) InsertStatusChange(ctx context.Context, tx pgx.Tx, change *model.StatusChange) error {
	query := `
		INSERT INTO order_status_log (order_id, from_status, to_status, changed_by, changed_at, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := tx.QueryRow(ctx, query,
		change.OrderID,
		change.FromStatus,
		change.ToStatus,
		change.ChangedBy,
		change.ChangedAt,
		change.Note,
	).Scan(&change.ID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", change.OrderID.String()).
			Str("to_status", string(change.ToStatus)).
			Msg("failed to insert status change")
		return fmt.Errorf("failed to insert status change: %w", err)
	}

	return nil
}

// UpdateStatus applies a compare-and-set status transition. Processing
// fields are stamped only when the target status is terminal.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, update *model.StatusUpdate) (bool, error) {
	query := `
		UPDATE orders SET
			status = $3,
			updated_at = $4,
			processed_at = COALESCE($5, processed_at),
			processed_by = COALESCE($6, processed_by),
			notes = COALESCE($7, notes),
			cash_received = COALESCE($8, cash_received),
			amount_mismatch = amount_mismatch OR $9,
			payment_transaction_id = COALESCE($10, payment_transaction_id),
			paid_at = COALESCE($11, paid_at)
		WHERE id = $1 AND status = $2
	`

	var processedAt, paidAt *time.Time
	var processedBy *string
	if update.To.IsTerminal() {
		at := update.At
		by := update.ChangedBy
		processedAt = &at
		processedBy = &by
	}
	if update.To == model.StatusPaidInApp {
		at := update.At
		paidAt = &at
	}

	tag, err := tx.Exec(ctx, query,
		update.OrderID,
		update.From,
		update.To,
		update.At,
		processedAt,
		processedBy,
		update.Notes,
		update.CashReceived,
		update.AmountMismatch,
		update.TransactionID,
		paidAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", update.OrderID.String()).
			Str("from", string(update.From)).
			Str("to", string(update.To)).
			Msg("failed to update order status")
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	applied := tag.RowsAffected() == 1
	if !applied {
		r.logger.Debug().
			Str("order_id", update.OrderID.String()).
			Str("expected_status", string(update.From)).
			Msg("status compare-and-set did not match")
	}

	return applied, nil
}

// GetByID retrieves an order and its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByPickupCode retrieves the order with exactly this code.
func (r *orderRepository) GetByPickupCode(ctx context.Context, code string) (*model.Order, error) {
	return r.getOne(ctx, "pickup_code = $1", code)
}

// GetByPaymentSession retrieves the order created for a gateway session.
func (r *orderRepository) GetByPaymentSession(ctx context.Context, sessionID string) (*model.Order, error) {
	return r.getOne(ctx, "payment_session_id = $1", sessionID)
}

func (r *orderRepository) getOne(ctx context.Context, where string, arg any) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where

	order, err := scanOrder(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Interface("key", arg).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Interface("key", arg).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	if err := r.attachItems(ctx, []*model.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

// ListByCustomer returns a customer's orders, newest first.
func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to query customer orders")
		return nil, fmt.Errorf("failed to query customer orders: %w", err)
	}

	return r.collect(ctx, rows)
}

// List returns orders for staff browsing, newest first.
func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	rows, err := r.pool.Query(ctx, query, status, filter.Limit, filter.Offset)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return r.collect(ctx, rows)
}

func (r *orderRepository) collect(ctx context.Context, rows pgx.Rows) ([]model.Order, error) {
	ptrs, err := scanOrders(rows)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read order rows")
		return nil, err
	}

	if err := r.attachItems(ctx, ptrs); err != nil {
		return nil, err
	}

	orders := make([]model.Order, len(ptrs))
	for i, o := range ptrs {
		orders[i] = *o
	}
	return orders, nil
}

func scanOrders(rows pgx.Rows) ([]*model.Order, error) {
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// attachItems loads items for all orders in one query.
func (r *orderRepository) attachItems(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[uuid.UUID]*model.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID.String()
		o.Items = []model.OrderItem{}
		byID[o.ID] = o
	}

	query := `
		SELECT id, order_id, position, product_id, product_name, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("order_count", len(ids)).Msg("failed to query order items")
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.Position, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return fmt.Errorf("error iterating order items: %w", err)
	}

	return nil
}

// GetHistory returns the status log of an order, oldest first.
func (r *orderRepository) GetHistory(ctx context.Context, orderID uuid.UUID) ([]model.StatusChange, error) {
	query := `
		SELECT id, order_id, from_status, to_status, changed_by, changed_at, note
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at, id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query status history")
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	history := []model.StatusChange{}
	for rows.Next() {
		var c model.StatusChange
		if err := rows.Scan(&c.ID, &c.OrderID, &c.FromStatus, &c.ToStatus, &c.ChangedBy, &c.ChangedAt, &c.Note); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan status change row")
			return nil, fmt.Errorf("failed to scan status change: %w", err)
		}
		history = append(history, c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating status change rows")
		return nil, fmt.Errorf("error iterating status changes: %w", err)
	}

	return history, nil
}
