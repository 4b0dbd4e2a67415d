// Package core provides the API chassis for the SkyCast service. It creates a
// chi router and enforces cross-cutting concerns -- security headers, logging,
// request correlation, and error handling -- before requests reach
// domain-specific handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"skycast/internal/config"
)

// Server encapsulates the dependencies of the SkyCast API, allowing for easy
// injection during testing and distinct configuration per environment.
type Server struct {
	Config *config.Config
	Logger *slog.Logger

	// HealthProbes are checked by GET /health. Registered by main.go for
	// each critical dependency (currently the optional geocode cache).
	HealthProbes []HealthProbe

	// V1RouteRegistrars register domain handler routes under /v1. Populated
	// by the application entry point; the indirection avoids import cycles
	// between core and handler packages.
	V1RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer initializes dependencies, sets up the router, and prepares the
// server for route mounting. The caller mounts routes via MountRoutes after
// construction; the separation lets tests customize route registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config: cfg,
		Logger: logger,
		router: chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Closer is implemented by dependencies that hold connections (the geocode
// cache). main.go registers them for release during shutdown.
type Closer interface {
	Close() error
}

// Shutdown performs a graceful termination of server resources.
func (s *Server) Shutdown(ctx context.Context, closers ...Closer) error {
	s.Logger.Info("server shutdown initiated")

	for _, c := range closers {
		if err := c.Close(); err != nil {
			s.Logger.Error("error closing dependency", "error", err)
			return fmt.Errorf("closing dependency: %w", err)
		}
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
