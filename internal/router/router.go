package router

import (
	"net/http"

	"leaf-kart/internal/auth"
	"leaf-kart/internal/handler"
	"leaf-kart/internal/middleware"
	"leaf-kart/internal/pickup"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Products *handler.ProductHandler
	Cart     *handler.CartHandler
	Orders   *handler.OrderHandler
	Payments *handler.PaymentHandler
	Pickup   *handler.PickupHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, tokens *auth.TokenManager, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Applied outermost first: Recovery -> RequestID -> Logging -> CORS
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// The gateway authenticates with a shared secret, not a bearer token.
	r.Post("/api/payments/webhook", h.Payments.Webhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(tokens, logger))

		r.Get("/api/products", h.Products.GetAll)
		r.Get("/api/products/{id}", h.Products.GetByID)

		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", h.Cart.Get)
			r.Delete("/", h.Cart.Clear)
			r.Put("/items/{productID}", h.Cart.SetItem)
			r.Delete("/items/{productID}", h.Cart.RemoveItem)
		})

		r.Route("/api/orders", func(r chi.Router) {
			r.Post("/", h.Orders.Create)
			r.Get("/", h.Orders.List)
			r.Get("/{id}", h.Orders.GetByID)
			r.Post("/{id}/verify-payment", h.Orders.VerifyPayment)
		})

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleStaff, logger))

			r.Get("/pickup/{code}", h.Pickup.Lookup(pickup.PathAny))
			r.Get("/pickup/cash/{code}", h.Pickup.Lookup(pickup.PathCash))
			r.Get("/pickup/prepaid/{code}", h.Pickup.Lookup(pickup.PathPrepaid))
			r.Put("/pickup/process", h.Pickup.Process)
			r.Get("/orders", h.Pickup.ListOrders)
			r.Get("/orders/{id}/history", h.Pickup.History)
		})
	})

	return r
}
