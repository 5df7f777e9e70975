package api

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nuwe/site-forms/internal/config"
)

// Deps are the collaborators the server routes requests to. DB and Redis are
// only used for health checks and may be nil.
type Deps struct {
	Contacts   ContactSubmitter
	Newsletter Subscriber
	DB         *sql.DB
	Redis      *redis.Client
}

// Server represents the API server
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, deps Deps) *Server {
	metrics := NewMetrics()
	handlers := NewHandlers(deps.Contacts, deps.Newsletter, metrics)
	health := NewHealthChecker(deps.DB, deps.Redis)
	limiter := NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, metrics)

	return &Server{
		config:  cfg.Server,
		handler: SetupRoutes(handlers, health, metrics, limiter, cfg.Server.AllowedOrigins),
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.GetHost(), strconv.Itoa(s.config.Port))
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
