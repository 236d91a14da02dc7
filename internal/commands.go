package internal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/classdeck/internal/mcpserver"
	"github.com/starford/classdeck/internal/sse"
	"github.com/starford/classdeck/internal/timetable"
	"github.com/starford/classdeck/internal/widget"
)

// RunExport provisions the store and writes today's snapshot once.
func RunExport(ctx context.Context, opts ...Option) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	rt.ensureContainer()

	prov, err := rt.openStore(ctx)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer closeStore(prov.Store, rt.logger)

	res, err := rt.exporter(prov.Store).ExportToday(ctx, time.Now())
	if err != nil {
		return err
	}
	rt.logger.Info("Snapshot exported",
		slog.String("date", res.Date),
		slog.Int("entries", len(res.Entries)),
		slog.Bool("store_failed", res.StoreErr != nil))
	return nil
}

// RunImport loads a YAML timetable into the provisioned store, then
// exports so consumers see the new schedule.
func RunImport(ctx context.Context, path string, opts ...Option) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read timetable: %w", err)
	}
	courses, err := timetable.Parse(data, rt.cfg.Term.Weeks)
	if err != nil {
		return err
	}

	rt.ensureContainer()
	prov, err := rt.openStore(ctx)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer closeStore(prov.Store, rt.logger)

	n, err := timetable.Import(ctx, prov.Store, courses)
	rt.logger.Info("Timetable imported",
		slog.String("file", path),
		slog.String("tier", prov.Tier),
		slog.Int("saved", n),
		slog.Int("total", len(courses)))
	if err != nil {
		return err
	}

	if _, err := rt.exporter(prov.Store).ExportToday(ctx, time.Now()); err != nil {
		return err
	}
	return nil
}

// RunWidget starts the consumer process: it watches the snapshot and
// serves the derived display state.
func RunWidget(ctx context.Context, opts ...Option) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	cfg, logger := rt.cfg, rt.logger

	broker := sse.NewBroker(0)
	defer broker.Close()

	refresher, err := widget.NewRefresher(rt.container, cfg.Container.Filename, rt.table, rt.formatter,
		cfg.Widget.Refresh, logger, widget.WithBroker(broker))
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    cfg.Widget.HTTP.Address(),
		Handler: widget.NewRouter(refresher, broker),
	}
	httpServer.RegisterOnShutdown(broker.Close)

	logger.Info("Widget starting...",
		slog.String("http_address", cfg.Widget.HTTP.Address()),
		slog.String("snapshot", cfg.Container.Filename),
		slog.String("container_path", rt.container.Root()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return refresher.Run(gCtx)
	})

	serveUntilSignal(g, gCtx, cancel, httpServer, logger)

	if err := g.Wait(); err != nil {
		logger.Error("Widget error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Widget stopped")
	return nil
}

// RunMCP serves the assistant tools over stdio. Logs go to stderr unless
// WithLogOutput says otherwise.
func RunMCP(_ context.Context, opts ...Option) error {
	rt, err := newRuntime(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	rt.logger.Info("MCP server starting",
		slog.String("snapshot", rt.cfg.Container.Filename),
		slog.String("container_path", rt.container.Root()))

	srv := mcpserver.New(rt.container, rt.cfg.Container.Filename, rt.table, rt.formatter)
	return srv.ServeStdio()
}
