package repository

import (
	"context"

	"leaf-kart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// GetAll retrieves all products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	// ValidateProductsExist checks if all provided product IDs exist in the database.
	// Returns error if any product ID does not exist.
	ValidateProductsExist(ctx context.Context, ids []string) error
}

// OrderRepository defines the interface for order data access operations.
// Orders are never deleted; every status change is appended to the status log.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	// A pickup code collision returns an error wrapping model.ErrPickupCodeTaken.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts the order's price-snapshotted items.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// InsertStatusChange appends a row to the order's audit trail.
	InsertStatusChange(ctx context.Context, tx pgx.Tx, change *model.StatusChange) error

	// UpdateStatus applies update only if the order is still in update.From.
	// It reports whether the row was changed.
	UpdateStatus(ctx context.Context, tx pgx.Tx, update *model.StatusUpdate) (bool, error)

	// GetByID retrieves an order and its items. Returns nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByPickupCode retrieves the order with exactly this code. Returns nil if not found.
	GetByPickupCode(ctx context.Context, code string) (*model.Order, error)

	// GetByPaymentSession retrieves the order created for a gateway session.
	GetByPaymentSession(ctx context.Context, sessionID string) (*model.Order, error)

	// ListByCustomer returns a customer's orders, newest first.
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]model.Order, error)

	// List returns orders for staff browsing, newest first.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	// GetHistory returns the status log of an order, oldest first.
	GetHistory(ctx context.Context, orderID uuid.UUID) ([]model.StatusChange, error)
}

// CartRepository defines persistence for member carts.
type CartRepository interface {
	// GetItems returns the customer's cart lines in insertion order.
	GetItems(ctx context.Context, customerID string) ([]model.CartItem, error)

	// UpsertItem sets the quantity of a line, creating it if needed.
	UpsertItem(ctx context.Context, item *model.CartItem) error

	// RemoveItem deletes a line. Removing a missing line is not an error.
	RemoveItem(ctx context.Context, customerID, productID string) error

	// Clear empties the customer's cart.
	Clear(ctx context.Context, customerID string) error

	// ClearTx empties the customer's cart within a checkout transaction.
	ClearTx(ctx context.Context, tx pgx.Tx, customerID string) error
}
