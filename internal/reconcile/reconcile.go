// Package reconcile removes duplicate courses left behind by replication.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/starford/classdeck/internal/metrics"
	"github.com/starford/classdeck/internal/models"
	"github.com/starford/classdeck/internal/store"
)

// Report summarizes one pass.
type Report struct {
	Scanned int
	Groups  int
	Deleted []string
}

// Once deletes every course that shares a natural key with an older one.
// The survivor of each group is the earliest CreatedAt, then the lowest
// insertion sequence, then the lowest id. Each delete is its own durable
// operation; the first failed delete aborts the pass and is returned along
// with what was already removed. Running it again after success is a no-op.
func Once(ctx context.Context, s store.Store, logger *slog.Logger, m *metrics.Metrics) (Report, error) {
	var report Report

	courses, err := s.ListCourses(ctx)
	if err != nil {
		return report, fmt.Errorf("reconcile: list courses: %w", err)
	}
	report.Scanned = len(courses)

	groups := make(map[string][]models.Course)
	var keys []string
	for _, c := range courses {
		k := c.NaturalKey()
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], c)
	}

	for _, k := range keys {
		group := groups[k]
		if len(group) < 2 {
			continue
		}
		report.Groups++
		sort.Slice(group, func(i, j int) bool { return survivesOver(group[i], group[j]) })

		for _, dup := range group[1:] {
			if err := s.DeleteCourse(ctx, dup.ID); err != nil {
				m.ReconcileDeleted(len(report.Deleted))
				return report, fmt.Errorf("reconcile: delete %s: %w", dup.ID, err)
			}
			logger.Info("reconcile: removed duplicate",
				slog.String("id", dup.ID),
				slog.String("kept", group[0].ID),
				slog.String("name", dup.Name))
			report.Deleted = append(report.Deleted, dup.ID)
		}
	}

	m.ReconcileDeleted(len(report.Deleted))
	if len(report.Deleted) > 0 {
		logger.Info("reconcile: done",
			slog.Int("scanned", report.Scanned),
			slog.Int("groups", report.Groups),
			slog.Int("deleted", len(report.Deleted)))
	}
	return report, nil
}

// survivesOver orders a before b when a should be kept instead of b.
func survivesOver(a, b models.Course) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	if a.Seq != b.Seq {
		return a.Seq < b.Seq
	}
	return a.ID < b.ID
}
