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

	"github.com/starkad/ordna/internal/api"
	"github.com/starkad/ordna/internal/engine"
	"github.com/starkad/ordna/internal/files"
	"github.com/starkad/ordna/internal/schedule"
	"github.com/starkad/ordna/internal/sse"
	"github.com/starkad/ordna/internal/store"
	"github.com/starkad/ordna/internal/watch"
)

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
		slog.String("uploads_path", cfg.Uploads.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure upload directories exist.
	if err := os.MkdirAll(cfg.Uploads.Path, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	if cfg.Uploads.Inbox != "" {
		if err := os.MkdirAll(cfg.Uploads.Inbox, 0o755); err != nil {
			return fmt.Errorf("create inbox dir: %w", err)
		}
	}

	// Initialize SQLite state store.
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init state store: %w", err)
	}
	defer db.Close()

	// Initialize the knowledge file store.
	fs, err := files.NewStore(cfg.Uploads.Path)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build the organization engine.
	engCfg := engine.DefaultConfig()
	if d := cfg.Engine.Debounce.Std(); d > 0 {
		engCfg.Debounce = d
	}
	if d := cfg.Engine.SuggestionTTL.Std(); d > 0 {
		engCfg.SuggestionTTL = d
	}
	if d := cfg.Engine.RelevanceInterval.Std(); d > 0 {
		engCfg.RelevanceInterval = d
	}
	if d := cfg.Engine.RelationshipInterval.Std(); d > 0 {
		engCfg.RelationshipInterval = d
	}
	if d := cfg.Engine.AmbientShowDelay.Std(); d > 0 {
		engCfg.AmbientShowDelay = d
	}
	if d := cfg.Engine.AmbientDuration.Std(); d > 0 {
		engCfg.AmbientDuration = d
	}

	engOpts := append([]engine.Option{
		engine.WithNotifier(broker),
		engine.WithLogger(logger),
		engine.WithConfig(engCfg),
	}, app.engineOpts...)

	eng, err := engine.New(db, fs, schedule.NewReal(), engOpts...)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	eng.Start()
	defer eng.Close()

	// Build API router.
	apiRouter := api.NewRouter(eng, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the inbox directory for files to ingest.
	if cfg.Uploads.Inbox != "" {
		g.Go(func() error {
			return watch.Watch(gCtx, cfg.Uploads.Inbox, logger, func(path string) {
				if _, ingErr := eng.IngestFile(path, "", false, ""); ingErr != nil {
					logger.Warn("inbox ingest failed",
						slog.String("path", path),
						slog.String("error", ingErr.Error()))
				}
			})
		})
	}

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
