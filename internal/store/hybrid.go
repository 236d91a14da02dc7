package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/classdeck/internal/models"
)

// Hybrid serves every query from the local SQLite database and replicates
// course writes to a Remote. Preferences stay local-only.
type Hybrid struct {
	*SQLite
	remote Remote
	logger *slog.Logger
}

// NewHybrid runs an initial Sync against remote and returns the store. A
// failed sync is returned as an error; the caller still owns local and
// remote and must close them.
func NewHybrid(ctx context.Context, local *SQLite, remote Remote, logger *slog.Logger) (*Hybrid, error) {
	h := &Hybrid{SQLite: local, remote: remote, logger: logger}
	report, err := h.Sync(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: initial sync: %w", err)
	}
	logger.Info("store: remote sync complete",
		slog.Int("pulled", report.Pulled),
		slog.Int("pushed", report.Pushed),
		slog.Int("removed", report.Removed),
		slog.Int("dropped", report.Dropped))
	return h, nil
}

// SaveCourse writes locally, then replicates. A replication failure is
// logged; the local write stands and the next Sync pushes it.
func (h *Hybrid) SaveCourse(ctx context.Context, c *models.Course) error {
	if err := h.SQLite.SaveCourse(ctx, c); err != nil {
		return err
	}
	if err := h.remote.Push(ctx, *c); err != nil {
		h.logger.Warn("store: replicate save failed", slog.String("id", c.ID), slog.String("error", err.Error()))
		return nil
	}
	return h.markSynced(ctx, c.ID)
}

// DeleteCourse deletes locally, then removes the remote key. The local
// tombstone is cleared only once the remote has accepted the delete.
func (h *Hybrid) DeleteCourse(ctx context.Context, id string) error {
	if err := h.SQLite.DeleteCourse(ctx, id); err != nil {
		return err
	}
	if err := h.remote.Remove(ctx, id); err != nil {
		h.logger.Warn("store: replicate delete failed", slog.String("id", id), slog.String("error", err.Error()))
		return nil
	}
	return h.clearTombstone(ctx, id)
}

// Close closes the remote connection and the local database.
func (h *Hybrid) Close() error {
	return errors.Join(h.remote.Close(), h.SQLite.Close())
}
