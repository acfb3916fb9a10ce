package model

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	StatusPending         OrderStatus = "pending"
	StatusPaidInApp       OrderStatus = "paid_in_app"
	StatusAwaitingPickup  OrderStatus = "awaiting_pickup"
	StatusPickedUp        OrderStatus = "picked_up"
	StatusCashPaidInStore OrderStatus = "cash_paid_in_store"
	StatusCancelled       OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible from s.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusPickedUp, StatusCashPaidInStore, StatusCancelled:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaidInApp, StatusAwaitingPickup,
		StatusPickedUp, StatusCashPaidInStore, StatusCancelled:
		return true
	}
	return false
}

// Action is a staff processing action on an order.
type Action string

const (
	ActionReady    Action = "ready"
	ActionPickup   Action = "pickup"
	ActionCashPaid Action = "cash_paid"
	ActionCancel   Action = "cancel"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionReady, ActionPickup, ActionCashPaid, ActionCancel:
		return true
	}
	return false
}

// NextStatus returns the status an order moves to when a staff member applies
// action. Terminal orders always yield ErrAlreadyProcessed.
func NextStatus(method PaymentMethod, current OrderStatus, action Action) (OrderStatus, error) {
	if current.IsTerminal() {
		return "", ErrAlreadyProcessed
	}

	switch action {
	case ActionReady:
		if method == PaymentMethodCash && current == StatusPending {
			return StatusAwaitingPickup, nil
		}
		if method == PaymentMethodInAppCard && current == StatusPaidInApp {
			return StatusAwaitingPickup, nil
		}
	case ActionPickup:
		if method == PaymentMethodInAppCard &&
			(current == StatusPaidInApp || current == StatusAwaitingPickup) {
			return StatusPickedUp, nil
		}
	case ActionCashPaid:
		if method == PaymentMethodCash &&
			(current == StatusPending || current == StatusAwaitingPickup) {
			return StatusCashPaidInStore, nil
		}
	case ActionCancel:
		return StatusCancelled, nil
	}

	return "", ErrInvalidTransition
}

// CanConfirmPayment reports whether a gateway confirmation may move the order
// to paid_in_app.
func CanConfirmPayment(method PaymentMethod, current OrderStatus) bool {
	return method == PaymentMethodInAppCard && current == StatusPending
}
