package store

import (
	"context"
	"log/slog"

	"github.com/starford/classdeck/internal/models"
)

// SyncReport counts what a Sync changed.
type SyncReport struct {
	Pulled  int
	Pushed  int
	Removed int // local deletes replayed remotely
	Dropped int // remote deletes applied locally
}

// Sync merges local and remote courses:
//   - local tombstones are removed remotely first
//   - remote courses missing or older locally are pulled
//   - synced local courses missing remotely were deleted by another
//     replica and are dropped
//   - unsynced local courses missing or older remotely are pushed
//
// Records with different ids but the same natural key are kept side by
// side; the reconciler merges them.
func (h *Hybrid) Sync(ctx context.Context) (SyncReport, error) {
	var report SyncReport

	tombs, err := h.Tombstones(ctx)
	if err != nil {
		return report, err
	}
	for id := range tombs {
		if err := h.remote.Remove(ctx, id); err != nil {
			return report, err
		}
		if err := h.clearTombstone(ctx, id); err != nil {
			return report, err
		}
		report.Removed++
	}

	synced, err := h.syncedIDs(ctx)
	if err != nil {
		return report, err
	}
	remote, err := h.remote.Pull(ctx)
	if err != nil {
		return report, err
	}
	local, err := h.ListCourses(ctx)
	if err != nil {
		return report, err
	}

	byID := make(map[string]int, len(local))
	for i, c := range local {
		byID[c.ID] = i
	}

	for _, rc := range remote {
		if rc.ID == "" {
			continue
		}
		if li, ok := byID[rc.ID]; ok && !rc.UpdatedAt.After(local[li].UpdatedAt) {
			continue
		}
		if rc.Weeks.Parity == "" {
			rc.Weeks.Parity = models.ParityAll
		}
		if err := rc.Validate(); err != nil {
			h.logger.Warn("sync: skipping invalid remote course", slog.String("id", rc.ID), slog.String("error", err.Error()))
			continue
		}
		if err := h.putCourse(ctx, &rc); err != nil {
			return report, err
		}
		if err := h.markSynced(ctx, rc.ID); err != nil {
			return report, err
		}
		h.logger.Debug("sync: pulled", slog.String("id", rc.ID))
		report.Pulled++
	}

	remoteByID := make(map[string]int, len(remote))
	for i, rc := range remote {
		remoteByID[rc.ID] = i
	}
	for _, lc := range local {
		ri, onRemote := remoteByID[lc.ID]
		_, wasSynced := synced[lc.ID]
		switch {
		case !onRemote && wasSynced:
			if err := h.dropCourse(ctx, lc.ID); err != nil {
				return report, err
			}
			h.logger.Debug("sync: dropped", slog.String("id", lc.ID))
			report.Dropped++
			continue
		case onRemote && !lc.UpdatedAt.After(remote[ri].UpdatedAt):
			// Same revision on both sides, or pulled above.
			if err := h.markSynced(ctx, lc.ID); err != nil {
				return report, err
			}
			continue
		}
		if err := h.remote.Push(ctx, lc); err != nil {
			return report, err
		}
		if err := h.markSynced(ctx, lc.ID); err != nil {
			return report, err
		}
		h.logger.Debug("sync: pushed", slog.String("id", lc.ID))
		report.Pushed++
	}

	return report, nil
}
