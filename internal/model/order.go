package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentMethodCash      PaymentMethod = "cash"
	PaymentMethodInAppCard PaymentMethod = "in_app_card"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodInAppCard
}

// Order represents a customer order awaiting or completed pickup.
type Order struct {
	ID                   uuid.UUID           `json:"id" db:"id"`
	PickupCode           string              `json:"pickupCode" db:"pickup_code"`
	CustomerID           string              `json:"customerId" db:"customer_id"`
	Items                []OrderItem         `json:"items"`
	Total                decimal.Decimal     `json:"total" db:"total"`
	PaymentMethod        PaymentMethod       `json:"paymentMethod" db:"payment_method"`
	Status               OrderStatus         `json:"status" db:"status"`
	Notes                *string             `json:"notes,omitempty" db:"notes"`
	CashReceived         decimal.NullDecimal `json:"cashReceived" db:"cash_received"`
	AmountMismatch       bool                `json:"amountMismatch" db:"amount_mismatch"`
	PaymentSessionID     *string             `json:"paymentSessionId,omitempty" db:"payment_session_id"`
	PaymentTransactionID *string             `json:"paymentTransactionId,omitempty" db:"payment_transaction_id"`
	PaidAt               *time.Time          `json:"paidAt,omitempty" db:"paid_at"`
	ProcessedAt          *time.Time          `json:"processedAt,omitempty" db:"processed_at"`
	ProcessedBy          *string             `json:"processedBy,omitempty" db:"processed_by"`
	CreatedAt            time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time           `json:"updatedAt" db:"updated_at"`
}

// OrderItem represents a line item in an order. UnitPrice is the catalogue
// price at the time the order was placed.
type OrderItem struct {
	ID          uuid.UUID       `json:"-" db:"id"`
	OrderID     uuid.UUID       `json:"-" db:"order_id"`
	Position    int             `json:"-" db:"position"`
	ProductID   string          `json:"productId" db:"product_id"`
	ProductName string          `json:"productName" db:"product_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice" db:"unit_price"`
}

// Subtotal returns UnitPrice × Quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ComputeTotal sums the item subtotals.
func ComputeTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// TotalMatchesItems reports whether the stored total equals the item sum.
func (o *Order) TotalMatchesItems() bool {
	return o.Total.Equal(ComputeTotal(o.Items))
}

// OrderItemRequest represents a single item in a checkout request.
type OrderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest represents the request payload for POST /api/orders.
// When Items is empty the customer's stored cart is used.
type CheckoutRequest struct {
	Items         []OrderItemRequest `json:"items,omitempty"`
	PaymentMethod PaymentMethod      `json:"paymentMethod"`
}

// CheckoutResult is returned by a successful checkout.
type CheckoutResult struct {
	Order       *Order `json:"order"`
	CheckoutURL string `json:"checkoutUrl,omitempty"`
	Replayed    bool   `json:"replayed,omitempty"`
}

// ProcessRequest is the staff pickup-processing payload.
type ProcessRequest struct {
	PickupCode            string           `json:"pickupCode"`
	Action                Action           `json:"action"`
	StaffID               string           `json:"staffId,omitempty"`
	Notes                 *string          `json:"notes,omitempty"`
	CashReceived          *decimal.Decimal `json:"cashReceived,omitempty"`
	ConfirmAmountMismatch bool             `json:"confirmAmountMismatch,omitempty"`
}

// ProcessResult is the outcome of a staff processing action.
type ProcessResult struct {
	Order    *Order   `json:"order"`
	Warnings []string `json:"warnings,omitempty"`
}

// StatusChange is one row of an order's audit trail.
type StatusChange struct {
	ID         int64        `json:"id" db:"id"`
	OrderID    uuid.UUID    `json:"orderId" db:"order_id"`
	FromStatus *OrderStatus `json:"fromStatus,omitempty" db:"from_status"`
	ToStatus   OrderStatus  `json:"toStatus" db:"to_status"`
	ChangedBy  string       `json:"changedBy" db:"changed_by"`
	ChangedAt  time.Time    `json:"changedAt" db:"changed_at"`
	Note       *string      `json:"note,omitempty" db:"note"`
}

// StatusUpdate describes a compare-and-set status transition. The store applies
// it only if the order is still in From.
type StatusUpdate struct {
	OrderID        uuid.UUID
	From           OrderStatus
	To             OrderStatus
	ChangedBy      string
	At             time.Time
	Notes          *string
	CashReceived   decimal.NullDecimal
	AmountMismatch bool
	TransactionID  *string
}

// OrderFilter narrows the admin order listing.
type OrderFilter struct {
	Status *OrderStatus
	Limit  int
	Offset int
}
