package handler

import (
	"net/http"

	"leaf-kart/internal/auth"
	"leaf-kart/internal/model"
	"leaf-kart/internal/pickup"
	"leaf-kart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PickupHandler serves the staff counter screens.
type PickupHandler struct {
	service service.PickupService
	logger  zerolog.Logger
}

// NewPickupHandler creates a new pickup handler.
func NewPickupHandler(service service.PickupService, logger zerolog.Logger) *PickupHandler {
	return &PickupHandler{
		service: service,
		logger:  logger.With().Str("handler", "pickup").Logger(),
	}
}

// Lookup returns a handler for GET /api/admin/pickup[/cash|/prepaid]/{code}.
func (h *PickupHandler) Lookup(path pickup.Path) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := h.service.Lookup(r.Context(), chi.URLParam(r, "code"), path)
		if err != nil {
			writeServiceError(w, r, err, h.logger)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}

// Process handles PUT /api/admin/pickup/process.
func (h *PickupHandler) Process(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok || !identity.IsStaff() {
		writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "staff only", h.logger)
		return
	}

	var req model.ProcessRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.service.Process(r.Context(), identity.Subject, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListOrders handles GET /api/admin/orders?status=&limit=&offset=.
func (h *PickupHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pagination(w, r, h.logger)
	if !ok {
		return
	}

	filter := model.OrderFilter{Limit: limit, Offset: offset}
	if s := r.URL.Query().Get("status"); s != "" {
		status := model.OrderStatus(s)
		filter.Status = &status
	}

	orders, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// History handles GET /api/admin/orders/{id}/history.
func (h *PickupHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	history, err := h.service.History(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
