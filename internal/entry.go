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

	"github.com/arnstad/hugin/internal/api"
	"github.com/arnstad/hugin/internal/factsdir"
	"github.com/arnstad/hugin/internal/factservice"
	"github.com/arnstad/hugin/internal/mcpserver"
	"github.com/arnstad/hugin/internal/metadata"
	"github.com/arnstad/hugin/internal/sse"
	"github.com/arnstad/hugin/internal/store"
)

// errShutdown propagates an orderly stop through the errgroup: returning it
// cancels the group context so the refresh ticker and watcher loops exit,
// and it is filtered out after Wait.
var errShutdown = errors.New("shutdown requested")

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

	// Initialize structured JSON logger. In MCP mode stdout carries the
	// protocol, so logs go to stderr.
	logOut := os.Stdout
	if app.mcpMode {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("metadata_base_uri", cfg.Metadata.BaseURI),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize snapshot store.
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// Optional local facts directory.
	var local *factsdir.Dir
	if cfg.FactsDir.Path != "" {
		local, err = factsdir.New(cfg.FactsDir.Path, logger)
		if err != nil {
			return fmt.Errorf("init facts dir: %w", err)
		}
	}

	client := metadata.NewClient(cfg.Metadata.Timeout)
	norm := &metadata.Normalizer{
		Prefix:  cfg.Metadata.Prefix,
		Filters: cfg.Metadata.FilterPatterns,
	}
	endpoints := factservice.Endpoints{
		Base:      cfg.Metadata.BaseURI,
		UserData:  cfg.Metadata.UserDataURI,
		PublicKey: cfg.Metadata.PublicKeyURI,
	}

	if app.mcpMode {
		svc := factservice.New(client, norm, endpoints, cfg.Metadata.Regions,
			local, db, nil, cfg.Metadata.KeepSnapshots, logger)
		if _, err := svc.Refresh(ctx); err != nil {
			logger.Warn("initial refresh failed", slog.String("error", err.Error()))
		}
		logger.Info("Serving MCP on stdio")
		return mcpserver.New(svc).ServeStdio()
	}

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	svc := factservice.New(client, norm, endpoints, cfg.Metadata.Regions,
		local, db, broker, cfg.Metadata.KeepSnapshots, logger)

	// Initial crawl. A failure here is a degraded start, not a fatal one:
	// the table stays empty until the next refresh succeeds.
	if _, err := svc.Refresh(ctx); err != nil {
		logger.Warn("initial refresh failed", slog.String("error", err.Error()))
	}

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
	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Periodic refresh loop. Interval 0 means crawl once at startup only.
	if cfg.Metadata.RefreshInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.Metadata.RefreshInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gCtx.Done():
					return nil
				case <-ticker.C:
					if _, err := svc.Refresh(gCtx); err != nil {
						logger.Warn("periodic refresh failed", slog.String("error", err.Error()))
					}
				}
			}
		})
	}

	// Watch the facts directory and refresh when its contents change.
	if local != nil {
		g.Go(func() error {
			return local.Watch(gCtx, func() {
				if _, err := svc.Refresh(gCtx); err != nil {
					logger.Warn("facts dir refresh failed", slog.String("error", err.Error()))
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
		defer signal.Stop(quit)

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
