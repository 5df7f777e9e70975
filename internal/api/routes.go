package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all routes. The form endpoints are registered for
// every method so the handlers can answer non-POST requests with the 405
// envelope.
func SetupRoutes(h *Handlers, hc *HealthChecker, m *Metrics, rl *RateLimiter, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", hc.HandleHealth)
	r.Get("/health/live", hc.HandleLiveness)
	r.Get("/health/ready", hc.HandleReadiness)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	forms := func(r chi.Router) {
		r.Use(rl.Middleware)
		r.HandleFunc("/contact", h.HandleContact)
		r.HandleFunc("/newsletter", h.HandleNewsletter)
	}
	r.Group(forms)
	r.Route("/api", forms)

	return r
}
