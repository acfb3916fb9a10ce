package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is a persisted line in a customer's cart.
type CartItem struct {
	CustomerID string    `json:"-" db:"customer_id"`
	ProductID  string    `json:"productId" db:"product_id"`
	Quantity   int       `json:"quantity" db:"quantity"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// CartLine is a cart item priced against the current catalogue.
type CartLine struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// CartView is the priced cart returned to members.
type CartView struct {
	Lines []CartLine      `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// CartItemRequest is the payload for PUT /api/cart/items/{productID}.
type CartItemRequest struct {
	Quantity int `json:"quantity"`
}
