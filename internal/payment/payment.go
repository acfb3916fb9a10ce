// Package payment talks to the hosted-checkout payment gateway and verifies
// that a checkout session was paid.
package payment

import (
	"context"
	"errors"

	"leaf-kart/internal/model"

	"github.com/shopspring/decimal"
)

// Session states reported by the gateway.
const (
	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"

	SessionStatusOpen     = "open"
	SessionStatusComplete = "complete"
	SessionStatusExpired  = "expired"
)

// ErrGateway wraps every transport or API failure reported by the gateway.
var ErrGateway = errors.New("payment gateway error")

// Gateway is the hosted checkout collaborator.
type Gateway interface {
	// CreateCheckoutSession opens a checkout session for the given items.
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)

	// GetSessionStatus returns the current state of a session.
	GetSessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error)

	// ExpireCheckoutSession closes a session that no order stands behind.
	ExpireCheckoutSession(ctx context.Context, sessionID string) error
}

// LineItem is one priced line on the checkout page. UnitAmount is in minor
// currency units.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int
}

// SessionRequest describes the checkout session to create.
type SessionRequest struct {
	Items    []LineItem
	Metadata map[string]string
}

// Session is a newly created checkout session.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SessionStatus is the gateway's view of a session.
type SessionStatus struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentStatus string `json:"payment_status"`
	Status        string `json:"status"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency"`
	PaymentIntent string `json:"payment_intent"`
}

// Paid reports whether the customer completed payment.
func (s *SessionStatus) Paid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// Expired reports whether the session can no longer be paid.
func (s *SessionStatus) Expired() bool {
	return s.Status == SessionStatusExpired
}

// ToMinorUnits converts a decimal amount to cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// LineItemsFor builds gateway line items from order items.
func LineItemsFor(items []model.OrderItem) []LineItem {
	lines := make([]LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, LineItem{
			Name:       item.ProductName,
			UnitAmount: ToMinorUnits(item.UnitPrice),
			Quantity:   item.Quantity,
		})
	}
	return lines
}
