// Package internal provides the application initialization and runtime
// logic for every classdeck command.
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

	"github.com/starford/classdeck/internal/api"
	"github.com/starford/classdeck/internal/courseservice"
	"github.com/starford/classdeck/internal/export"
	"github.com/starford/classdeck/internal/sse"
)

// Run starts the main process: it provisions the store, reconciles it,
// keeps the snapshot fresh and serves the course API.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	cfg, logger := rt.cfg, rt.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("container_path", rt.container.Root()),
		slog.String("sqlite_path", cfg.Store.SQLite.Path),
		slog.Bool("remote_enabled", cfg.Store.Remote.Enabled),
		slog.String("timezone", rt.formatter.Location().String()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt.ensureContainer()

	prov, err := rt.openStore(ctx)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer closeStore(prov.Store, logger)

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	exp := rt.exporter(prov.Store)
	runner, err := export.NewRunner(exp, cfg.Export.Schedules, logger,
		export.WithSignals(),
		export.OnExport(func(res export.Result, err error) {
			if err != nil {
				return
			}
			broker.Publish(sse.Event{Type: sse.EventSnapshotExported, Data: map[string]any{
				"date":    res.Date,
				"entries": len(res.Entries),
			}})
		}))
	if err != nil {
		return fmt.Errorf("init export runner: %w", err)
	}

	svc := courseservice.NewService(prov.Store, exp, rt.table, rt.formatter,
		courseservice.WithNotifier(brokerNotifier{broker}),
		courseservice.WithExports(runner),
		courseservice.WithProvision(prov))
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
		if prov.Degraded() {
			_, _ = fmt.Fprintf(w, `{"status":"degraded","tier":%q}`, prov.Tier)
			return
		}
		_, _ = fmt.Fprintf(w, `{"status":"ok","tier":%q}`, prov.Tier)
	})
	r.Handle("/metrics", rt.metrics.Handler())

	// Mount API routes under /api; the SSE stream is /api/events.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}
	// Streams end when the broker closes, so Shutdown does not wait on them.
	httpServer.RegisterOnShutdown(broker.Close)

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// Snapshot exports: launch, cron schedules, SIGUSR1 and API triggers.
	g.Go(func() error {
		return runner.Run(gCtx)
	})

	serveUntilSignal(g, gCtx, cancel, httpServer, logger)

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// brokerNotifier forwards course changes to SSE clients.
type brokerNotifier struct {
	broker *sse.Broker
}

func (n brokerNotifier) CourseChanged(kind, id string) {
	n.broker.PublishCourseEvent(kind, id)
}

// serveUntilSignal runs srv in g and shuts it down on SIGINT, SIGTERM or
// when gCtx ends. cancel stops the other goroutines of g.
func serveUntilSignal(g *errgroup.Group, gCtx context.Context, cancel context.CancelFunc,
	srv *http.Server, logger *slog.Logger,
) {
	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
		cancel()

		logger.Info("Shutting down server...")

		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})
}
