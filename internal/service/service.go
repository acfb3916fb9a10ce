package service

import (
	"context"

	"leaf-kart/internal/cart"
	"leaf-kart/internal/model"
	"leaf-kart/internal/pickup"

	"github.com/google/uuid"
)

// ProductService defines operations for browsing the catalogue.
type ProductService interface {
	// GetAll retrieves all products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// PriceItems validates requested lines and prices them at current
	// catalogue prices. Unknown products fail the whole request.
	PriceItems(ctx context.Context, items []model.OrderItemRequest) (*cart.Cart, error)

	// PriceCart prices stored cart lines, dropping products that have left
	// the catalogue.
	PriceCart(ctx context.Context, items []model.CartItem) (*cart.Cart, error)
}

// CartService manages a member's stored cart.
type CartService interface {
	// Get returns the cart priced at current catalogue prices.
	Get(ctx context.Context, customerID string) (*model.CartView, error)

	// SetItem sets the quantity of a product. Zero or less removes the line.
	SetItem(ctx context.Context, customerID, productID string, quantity int) (*model.CartView, error)

	// RemoveItem drops a product from the cart.
	RemoveItem(ctx context.Context, customerID, productID string) (*model.CartView, error)

	// Clear empties the cart.
	Clear(ctx context.Context, customerID string) error
}

// CheckoutService turns carts into orders and confirms card payments.
type CheckoutService interface {
	// Checkout places an order. A non-empty idempotencyKey makes retries
	// return the first order instead of creating another.
	Checkout(ctx context.Context, customerID string, req *model.CheckoutRequest, idempotencyKey string) (*model.CheckoutResult, error)

	// GetOrder returns one of the customer's own orders.
	GetOrder(ctx context.Context, customerID string, id uuid.UUID) (*model.Order, error)

	// ListOrders returns the customer's order history, newest first.
	ListOrders(ctx context.Context, customerID string, limit, offset int) ([]model.Order, error)

	// VerifyPayment polls the gateway until the card order is paid, fails, or
	// the attempt budget runs out.
	VerifyPayment(ctx context.Context, customerID string, id uuid.UUID) (*model.Order, error)

	// HandleWebhook reconciles an order after the gateway reports a session change.
	HandleWebhook(ctx context.Context, sessionID string) (*model.Order, error)
}

// PickupService is the staff side of order fulfilment.
type PickupService interface {
	// Lookup finds an order by pickup code on the given lookup screen.
	Lookup(ctx context.Context, code string, path pickup.Path) (*model.Order, error)

	// Process applies a staff action to the order with req.PickupCode.
	Process(ctx context.Context, staffID string, req *model.ProcessRequest) (*model.ProcessResult, error)

	// ListOrders returns orders for bulk browsing.
	ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	// History returns the status log of an order.
	History(ctx context.Context, orderID uuid.UUID) ([]model.StatusChange, error)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
