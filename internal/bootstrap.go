package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/classdeck/internal/export"
	"github.com/starford/classdeck/internal/metrics"
	"github.com/starford/classdeck/internal/provision"
	"github.com/starford/classdeck/internal/reconcile"
	"github.com/starford/classdeck/internal/recurrence"
	"github.com/starford/classdeck/internal/storage"
	"github.com/starford/classdeck/internal/store"
	"github.com/starford/classdeck/internal/timing"
)

// runtime is what every command shares: logger, display zone and the
// shared container.
type runtime struct {
	cfg       *Config
	logger    *slog.Logger
	formatter *timing.Formatter
	table     timing.Table
	term      recurrence.Term
	container *storage.FS
	metrics   *metrics.Metrics
}

func newRuntime(opts []Option) (*runtime, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	loc, err := cfg.App.Location()
	if err != nil {
		return nil, err
	}
	container, err := storage.NewFS(cfg.Container.Path)
	if err != nil {
		return nil, fmt.Errorf("init container: %w", err)
	}

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		formatter: timing.NewFormatter(loc),
		table:     timing.Default,
		term:      recurrence.Term{Start: cfg.Term.StartIn(loc), Weeks: cfg.Term.Weeks},
		container: container,
		metrics:   metrics.New(),
	}, nil
}

// openStore runs the provisioning cascade and the launch reconciliation.
// Only total exhaustion is fatal; a failed reconciliation is logged.
func (rt *runtime) openStore(ctx context.Context) (*provision.Result, error) {
	cfg := rt.cfg
	tiers := provision.DefaultTiers(provision.Settings{
		SQLitePath:    cfg.Store.SQLite.Path,
		RemoteEnabled: cfg.Store.Remote.Enabled,
		Remote: store.RemoteConfig{
			URL:     cfg.Store.Remote.URL,
			Bucket:  cfg.Store.Remote.Bucket,
			Timeout: cfg.Store.Remote.Timeout,
		},
	}, rt.logger)

	res, err := provision.Provision(ctx, tiers, rt.logger, rt.metrics)
	if err != nil {
		return nil, err
	}
	rt.logger.Info("Store provisioned",
		slog.String("tier", res.Tier),
		slog.Bool("degraded", res.Degraded()))

	report, err := reconcile.Once(ctx, res.Store, rt.logger, rt.metrics)
	if err != nil {
		rt.logger.Error("reconcile failed",
			slog.Int("deleted", len(report.Deleted)),
			slog.String("error", err.Error()))
	}
	return res, nil
}

func (rt *runtime) exporter(src export.CourseLister) *export.Exporter {
	return export.New(src, rt.container, export.Options{
		Filename:  rt.cfg.Container.Filename,
		Legacy:    rt.cfg.Snapshot.LegacyFormat,
		Term:      rt.term,
		Table:     rt.table,
		Formatter: rt.formatter,
	}, rt.logger, rt.metrics)
}

// ensureContainer creates the container on launch. Failure is only logged:
// exports keep failing until the directory appears.
func (rt *runtime) ensureContainer() {
	if err := rt.container.Ensure(); err != nil {
		rt.logger.Error("container unavailable",
			slog.String("container", rt.container.Root()),
			slog.String("error", err.Error()))
	}
}

func closeStore(st store.Store, logger *slog.Logger) {
	if err := st.Close(); err != nil {
		logger.Warn("store close failed", slog.String("error", err.Error()))
	}
}

const shutdownTimeout = 10 * time.Second
