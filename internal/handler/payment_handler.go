package handler

import (
	"crypto/subtle"
	"net/http"

	"leaf-kart/internal/model"
	"leaf-kart/internal/service"

	"github.com/rs/zerolog"
)

// WebhookSecretHeader carries the shared secret on gateway notifications.
const WebhookSecretHeader = "X-Webhook-Secret"

type webhookRequest struct {
	SessionID string `json:"sessionId"`
}

// PaymentHandler receives payment gateway notifications.
type PaymentHandler struct {
	service service.CheckoutService
	secret  []byte
	logger  zerolog.Logger
}

// NewPaymentHandler creates a webhook handler. An empty secret rejects every call.
func NewPaymentHandler(service service.CheckoutService, secret string, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		secret:  []byte(secret),
		logger:  logger.With().Str("handler", "payment").Logger(),
	}
}

// Webhook handles POST /api/payments/webhook.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	provided := []byte(r.Header.Get(WebhookSecretHeader))
	if len(h.secret) == 0 || subtle.ConstantTimeCompare(provided, h.secret) != 1 {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "invalid webhook secret", h.logger)
		return
	}

	var req webhookRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	order, err := h.service.HandleWebhook(r.Context(), req.SessionID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	h.logger.Info().
		Str("session_id", req.SessionID).
		Str("order_id", order.ID.String()).
		Str("status", string(order.Status)).
		Msg("webhook reconciled")

	writeJSON(w, http.StatusOK, order)
}
