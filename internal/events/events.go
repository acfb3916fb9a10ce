// Package events publishes order lifecycle events.
package events

import (
	"context"
	"time"

	"leaf-kart/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event names.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the JSON body of a published event.
type OrderEvent struct {
	Event         string              `json:"event"`
	OrderID       uuid.UUID           `json:"order_id"`
	PickupCode    string              `json:"pickup_code"`
	Status        model.OrderStatus   `json:"status"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	Total         decimal.Decimal     `json:"total"`
	ChangedBy     string              `json:"changed_by,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// RoutingKey returns order.<status>.
func (e OrderEvent) RoutingKey() string {
	return "order." + string(e.Status)
}

// NewOrderEvent snapshots order into an event.
func NewOrderEvent(name string, order *model.Order, changedBy string, at time.Time) OrderEvent {
	return OrderEvent{
		Event:         name,
		OrderID:       order.ID,
		PickupCode:    order.PickupCode,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total,
		ChangedBy:     changedBy,
		OccurredAt:    at,
	}
}

// Publisher sends events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
