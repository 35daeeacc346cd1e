// Package internal provides the main application initialization and runtime logic.
package internal

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
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/solvane/lumen/internal/api"
	"github.com/solvane/lumen/internal/events"
	"github.com/solvane/lumen/internal/localstore"
	"github.com/solvane/lumen/internal/mcpserver"
	"github.com/solvane/lumen/internal/offline"
	"github.com/solvane/lumen/internal/remote"
	"github.com/solvane/lumen/internal/tracker"
)

// buildTracker wires the cache, remote client, offline queue, broker, and
// tracker service from the configuration. The returned cleanup closes the
// cache and broker.
func buildTracker(ctx context.Context, cfg *Config, logger *slog.Logger) (*tracker.Service, *events.Broker, func(), error) {
	auth := remote.StaticAuth(cfg.Remote.UserID)
	userID, ok := auth.CurrentUserID()
	if !ok {
		return nil, nil, nil, fmt.Errorf("no user configured: set remote.user_id")
	}

	db, err := localstore.Open(cfg.Cache.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init cache: %w", err)
	}

	client := remote.NewClient(cfg.Remote.BaseURL, remote.ClientOptions{
		Token:     cfg.Remote.Token,
		Timeout:   cfg.Remote.Timeout(),
		RateLimit: cfg.Remote.RateLimit,
	})

	broker := events.NewBroker(cfg.Sync.StatsThrottle())
	queue := offline.NewQueue(db, logger)
	svc := tracker.New(userID, client, db, queue, broker, logger, cfg.Calendar.Weekday())

	svc.Load(ctx, cfg.Sync.LoadTimeout())

	cleanup := func() {
		broker.Close()
		db.Close()
	}
	return svc, broker, cleanup, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("remote_base_url", cfg.Remote.BaseURL),
		slog.String("cache_path", cfg.Cache.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, broker, cleanup, err := buildTracker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// Build API router.
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes (including SSE at /api/events) under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start the connectivity watcher; reconnects trigger queue replay.
	g.Go(func() error {
		remote.WatchConnectivity(gCtx, svc.Remote(), cfg.Sync.PingInterval(), logger, func(online bool) {
			svc.HandleConnectivity(gCtx, online)
		})
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server over the same tracker stack. Logs go
// to stderr so stdout stays reserved for the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	svc, _, cleanup, err := buildTracker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("Starting MCP server on stdio")
	return mcpserver.New(svc).ServeStdio()
}
