// Package main is the entry point for the SkyCast API server.
//
// It loads configuration, builds the provider client stack (circuit breaker,
// retries), optionally wires the Redis geocode cache, assembles the HTTP
// server with the core chassis (middleware, routing, health checks), and
// starts listening for requests.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"skycast/internal/api/handlers"
	"skycast/internal/cache"
	"skycast/internal/config"
	"skycast/internal/core"
	"skycast/internal/external"
	"skycast/internal/tiers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("skycast API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	// Provider client stack: one shared HTTP client behind a circuit breaker.
	httpClient := &http.Client{Timeout: cfg.Provider.Timeout}
	baseClient := external.NewBaseClient(
		httpClient,
		"openweathermap",
		external.RetryPolicy{
			MaxRetries: cfg.Provider.MaxRetries,
			MinWait:    500 * time.Millisecond,
			MaxWait:    10 * time.Second,
		},
		cfg.Provider.UserAgent,
	)
	owm := external.NewOpenWeatherClient(cfg.Provider, baseClient)

	// The geocode cache is optional: no configured address means direct
	// provider lookups.
	var geocoder tiers.Geocoder = owm
	var closers []core.Closer
	var probes []core.HealthProbe

	if cfg.Cache.Addr != "" {
		cached, err := cache.New(owm, cfg.Cache.Addr, cfg.Cache.Password.Unmask(), cfg.Cache.DB, cfg.Cache.TTL, logger)
		if err != nil {
			return fmt.Errorf("connecting geocode cache: %w", err)
		}
		geocoder = cached
		closers = append(closers, cached)
		probes = append(probes, core.ProbeFunc{
			ProbeName: "geocode_cache",
			CheckFn:   cached.Ping,
		})
	}

	resolver := tiers.NewResolver(geocoder, owm, owm, logger)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.HealthProbes = probes

	weatherHandler := handlers.NewWeatherHandler(resolver, owm, logger)
	geoHandler := handlers.NewGeoHandler(geocoder, logger)
	envHandler := handlers.NewEnvironmentHandler(owm, owm, owm, geocoder, logger)
	mapsHandler := handlers.NewMapsHandler(owm, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		func(r chi.Router) { r.Route("/weather", weatherHandler.RegisterRoutes) },
		func(r chi.Router) { r.Route("/geo", geoHandler.RegisterRoutes) },
		func(r chi.Router) { r.Route("/air", envHandler.RegisterAirRoutes) },
		func(r chi.Router) { r.Route("/solar", envHandler.RegisterSolarRoutes) },
		func(r chi.Router) { r.Route("/maps", mapsHandler.RegisterRoutes) },
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger, closers)
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger, closers []core.Closer) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx, closers...); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
