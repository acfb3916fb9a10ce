package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"leaf-kart/internal/auth"
	"leaf-kart/internal/middleware"
	"leaf-kart/internal/model"

	"github.com/rs/zerolog"
)

// IdempotencyKeyHeader lets clients retry checkout without placing a second order.
const IdempotencyKeyHeader = "Idempotency-Key"

// statusByCode maps domain error codes to HTTP status codes.
var statusByCode = map[string]int{
	model.ErrCodeInvalidJSON:          http.StatusBadRequest,
	model.ErrCodeValidation:           http.StatusBadRequest,
	model.ErrCodeEmptyCart:            http.StatusBadRequest,
	model.ErrCodeInvalidQuantity:      http.StatusBadRequest,
	model.ErrCodeInvalidPaymentMethod: http.StatusBadRequest,
	model.ErrCodeInvalidPickupCode:    http.StatusBadRequest,
	model.ErrCodeProductNotFound:      http.StatusBadRequest,
	model.ErrCodeWrongLookupPath:      http.StatusBadRequest,
	model.ErrCodeNotFound:             http.StatusNotFound,
	model.ErrCodeAlreadyProcessed:     http.StatusConflict,
	model.ErrCodeStaleStatus:          http.StatusConflict,
	model.ErrCodeInvalidTransition:    http.StatusConflict,
	model.ErrCodePaymentFailed:        http.StatusPaymentRequired,
	model.ErrCodeVerificationTimeout:  http.StatusGatewayTimeout,
	model.ErrCodeAmountMismatch:       http.StatusUnprocessableEntity,
	model.ErrCodePickupCodeExhausted:  http.StatusServiceUnavailable,
	model.ErrCodeNotMember:            http.StatusForbidden,
	model.ErrCodeCheckoutInProgress:   http.StatusConflict,
	model.ErrCodeUnauthorised:         http.StatusUnauthorized,
	model.ErrCodeForbidden:            http.StatusForbidden,
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error body with an explicit status and code.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	requestID := middleware.RequestIDFrom(r.Context())

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.
		Str("error", code).
		Str("message", message).
		Int("status", status).
		Str("request_id", requestID).
		Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: requestID,
	})
}

// writeServiceError maps a service error to its HTTP status. Errors without a
// domain code are reported as 500 without leaking their text.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	de, ok := model.AsDomainError(err)
	if !ok {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("unexpected service error")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
		return
	}

	status, known := statusByCode[de.Code]
	if !known {
		status = http.StatusInternalServerError
	}

	message := de.Message
	if errors.Is(err, model.ErrAmountMismatch) || errors.Is(err, model.ErrPaymentFailed) {
		// The wrapped text carries the amounts involved.
		message = err.Error()
	}

	writeError(w, r, status, de.Code, message, logger)
}

// decodeJSON decodes the request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, logger zerolog.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", logger)
		return false
	}
	return true
}

// pagination reads limit and offset query parameters. Defaults are applied by
// the services.
func pagination(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (limit, offset int, ok bool) {
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid limit parameter", logger)
			return 0, 0, false
		}
		limit = n
	}

	if s := r.URL.Query().Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid offset parameter", logger)
			return 0, 0, false
		}
		offset = n
	}

	return limit, offset, true
}

// subject returns the authenticated caller id, writing a 401 when absent.
func subject(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (string, bool) {
	identity, ok := auth.FromContext(r.Context())
	if !ok || identity.Subject == "" {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "authentication required", logger)
		return "", false
	}
	return identity.Subject, true
}
