package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON          = "INVALID_JSON"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeEmptyCart            = "EMPTY_CART"
	ErrCodeInvalidQuantity      = "INVALID_QUANTITY"
	ErrCodeInvalidPaymentMethod = "INVALID_PAYMENT_METHOD"
	ErrCodeInvalidPickupCode    = "INVALID_PICKUP_CODE"
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeWrongLookupPath      = "WRONG_LOOKUP_PATH"
	ErrCodeAlreadyProcessed     = "ALREADY_PROCESSED"
	ErrCodeStaleStatus          = "STALE_STATUS"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodePaymentFailed        = "PAYMENT_FAILED"
	ErrCodeVerificationTimeout  = "VERIFICATION_TIMEOUT"
	ErrCodeAmountMismatch       = "AMOUNT_MISMATCH"
	ErrCodePickupCodeExhausted  = "PICKUP_CODE_EXHAUSTED"
	ErrCodeNotMember            = "NOT_MEMBER"
	ErrCodeCheckoutInProgress   = "CHECKOUT_IN_PROGRESS"
	ErrCodeUnauthorised         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// AsDomainError unwraps err to a *DomainError if one is in its chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Common domain errors
var (
	ErrEmptyCart            = NewDomainError(ErrCodeEmptyCart, "Cart must contain at least one item")
	ErrInvalidQuantity      = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidPaymentMethod = NewDomainError(ErrCodeInvalidPaymentMethod, "Payment method must be cash or in_app_card")
	ErrInvalidPickupCode    = NewDomainError(ErrCodeInvalidPickupCode, "Pickup code must be C or P followed by 6 digits")
	ErrProductNotFound      = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrOrderNotFound        = NewDomainError(ErrCodeNotFound, "Order not found")
	ErrWrongLookupPath      = NewDomainError(ErrCodeWrongLookupPath, "Pickup code does not belong to this lookup screen")
	ErrAlreadyProcessed     = NewDomainError(ErrCodeAlreadyProcessed, "Order has already been processed")
	ErrStaleStatus          = NewDomainError(ErrCodeStaleStatus, "Order status changed while processing, reload and retry")
	ErrInvalidTransition    = NewDomainError(ErrCodeInvalidTransition, "Action is not allowed for this order")
	ErrPaymentFailed        = NewDomainError(ErrCodePaymentFailed, "Payment was declined or could not be completed")
	ErrVerificationTimeout  = NewDomainError(ErrCodeVerificationTimeout, "Payment could not be verified yet, contact support with your order number")
	ErrAmountMismatch       = NewDomainError(ErrCodeAmountMismatch, "Cash received does not match order total, confirm to proceed")
	ErrPickupCodeExhausted  = NewDomainError(ErrCodePickupCodeExhausted, "Could not allocate a unique pickup code")
	ErrNotMember            = NewDomainError(ErrCodeNotMember, "Only members can place orders")
	ErrCheckoutInProgress   = NewDomainError(ErrCodeCheckoutInProgress, "A checkout with this idempotency key is still in progress, retry shortly")
	ErrForbidden            = NewDomainError(ErrCodeForbidden, "Not allowed")
)

// ErrPickupCodeTaken is returned by the store when a pickup code is already in use.
var ErrPickupCodeTaken = errors.New("pickup code already taken")

// NewValidationError returns a VALIDATION_ERROR domain error with a custom message.
func NewValidationError(message string) *DomainError {
	return NewDomainError(ErrCodeValidation, message)
}
