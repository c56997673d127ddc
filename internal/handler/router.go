package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/turfsplit/internal/auth"
)

// RouterConfig carries what the router needs beyond the handlers.
type RouterConfig struct {
	AdminPassword string
	CORSOrigins   []string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the chi router with the global middleware stack and every
// API route.
func NewRouter(h *SessionHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger)                  // structured access log
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(auth.OptionalOrganiser(cfg.AdminPassword))

	r.Get("/health", HealthCheck)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Get("/current", h.GetCurrentSession)
		r.Get("/{id}", h.GetSession)
		r.Post("/{id}/rsvp", h.SubmitRSVP)
		r.Post("/{id}/lock", h.Lock)
		r.Post("/{id}/close", h.Close)
		r.Patch("/{id}/rsvps/{rsvpID}/cash", h.MarkCash)
		r.Delete("/{id}/rsvps/{rsvpID}", h.RemoveParticipant)
		r.Post("/{id}/pay/create", h.CreatePaymentOrder)
		r.Post("/{id}/pay/verify", h.VerifyPayment)
	})

	return r
}
