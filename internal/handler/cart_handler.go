package handler

import (
	"net/http"

	"leaf-kart/internal/model"
	"leaf-kart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CartHandler serves the member's stored cart.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// Get handles GET /api/cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	customerID, ok := subject(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.service.Get(r.Context(), customerID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SetItem handles PUT /api/cart/items/{productID}.
func (h *CartHandler) SetItem(w http.ResponseWriter, r *http.Request) {
	customerID, ok := subject(w, r, h.logger)
	if !ok {
		return
	}

	var req model.CartItemRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	view, err := h.service.SetItem(r.Context(), customerID, chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RemoveItem handles DELETE /api/cart/items/{productID}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	customerID, ok := subject(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.service.RemoveItem(r.Context(), customerID, chi.URLParam(r, "productID"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Clear handles DELETE /api/cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	customerID, ok := subject(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.Clear(r.Context(), customerID); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
