package handler

import (
	"net/http"
	"strings"

	"leaf-kart/internal/model"
	"leaf-kart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles member order requests.
type OrderHandler struct {
	service service.CheckoutService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.CheckoutService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	customerID, ok := subject(w, r, h.logger)
	if !ok {
		return
	}

	var req model.CheckoutRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if len(key) > 255 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "idempotency key too long", h.logger)
		return
	}

	result, err := h.service.Checkout(r.Context(), customerID, &req, key)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// List handles GET /api/orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	customerID, ok := subject(w, r, h.logger)
	if !ok {
		return
	}

	limit, offset, ok := pagination(w, r, h.logger)
	if !ok {
		return
	}

	orders, err := h.service.ListOrders(r.Context(), customerID, limit, offset)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	customerID, ok := subject(w, r, h.logger)
	if !ok {
		return
	}

	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), customerID, orderID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// VerifyPayment handles POST /api/orders/{id}/verify-payment.
func (h *OrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	customerID, ok := subject(w, r, h.logger)
	if !ok {
		return
	}

	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.VerifyPayment(r.Context(), customerID, orderID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "order ID is required", h.logger)
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return uuid.Nil, false
	}
	return id, true
}
