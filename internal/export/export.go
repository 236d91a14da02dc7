// Package export writes today's schedule snapshot into the shared container.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/starford/classdeck/internal/metrics"
	"github.com/starford/classdeck/internal/models"
	"github.com/starford/classdeck/internal/recurrence"
	"github.com/starford/classdeck/internal/snapshot"
	"github.com/starford/classdeck/internal/storage"
	"github.com/starford/classdeck/internal/timing"
)

// CourseLister is the part of the store the exporter reads.
type CourseLister interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
}

// Options configure an Exporter.
type Options struct {
	Filename  string
	Legacy    bool
	Term      recurrence.Term
	Table     timing.Table
	Formatter *timing.Formatter
}

// Exporter derives today's entries from the store and writes the snapshot.
type Exporter struct {
	src     CourseLister
	dest    storage.Provider
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Result describes one export.
type Result struct {
	Date    string           `json:"date"`
	Entries []snapshot.Entry `json:"entries"`
	// StoreErr is set when the store could not be read and an empty
	// snapshot was written instead.
	StoreErr error     `json:"-"`
	Written  bool      `json:"written"`
	At       time.Time `json:"at"`
}

// New builds an exporter. Empty option fields get defaults.
func New(src CourseLister, dest storage.Provider, opts Options, logger *slog.Logger, m *metrics.Metrics) *Exporter {
	if opts.Filename == "" {
		opts.Filename = snapshot.DefaultFilename
	}
	if opts.Formatter == nil {
		opts.Formatter = timing.NewFormatter(nil)
	}
	if len(opts.Table.Periods()) == 0 {
		opts.Table = timing.Default
	}
	return &Exporter{src: src, dest: dest, opts: opts, logger: logger, metrics: m}
}

// Filename returns the snapshot path inside the container.
func (e *Exporter) Filename() string { return e.opts.Filename }

// TodayCourses returns the courses meeting on now's calendar day, ordered
// by period, then weekday, then insertion.
func (e *Exporter) TodayCourses(ctx context.Context, now time.Time) ([]models.Course, error) {
	all, err := e.src.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: list courses: %w", err)
	}
	day := e.opts.Formatter.Midnight(now)
	today := e.opts.Term.Filter(all, day)
	sort.SliceStable(today, func(i, j int) bool {
		a, b := today[i], today[j]
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		return a.Seq < b.Seq
	})
	return today, nil
}

// Entries flattens courses into snapshot entries.
func Entries(cs []models.Course) []snapshot.Entry {
	out := make([]snapshot.Entry, 0, len(cs))
	for _, c := range cs {
		out = append(out, snapshot.FromCourse(c))
	}
	return out
}

// ExportToday writes the snapshot for now's calendar day. A store failure
// is logged and an empty snapshot is written. A destination failure is
// logged and returned; the previous snapshot is left untouched.
func (e *Exporter) ExportToday(ctx context.Context, now time.Time) (Result, error) {
	res := Result{Date: e.opts.Formatter.Date(now), At: now}

	courses, err := e.TodayCourses(ctx, now)
	if err != nil {
		e.logger.Error("export: store query failed, writing empty snapshot",
			slog.String("date", res.Date),
			slog.String("error", err.Error()))
		res.StoreErr = err
		courses = nil
	}
	res.Entries = Entries(courses)

	data, err := snapshot.Encode(snapshot.Document{
		Date:        res.Date,
		GeneratedAt: now,
		TimingTable: e.opts.Table.Fingerprint(),
		Entries:     res.Entries,
	}, e.opts.Legacy)
	if err != nil {
		return res, err
	}

	if err := e.dest.Write(e.opts.Filename, data); err != nil {
		e.logger.Error("export: write snapshot failed",
			slog.String("container", e.dest.Root()),
			slog.String("error", err.Error()))
		e.metrics.Exported(metrics.OutcomeFailed, 0)
		return res, fmt.Errorf("export: write snapshot: %w", err)
	}
	res.Written = true

	outcome := metrics.OutcomeWritten
	if res.StoreErr != nil {
		outcome = metrics.OutcomeEmptyOnFail
	}
	e.metrics.Exported(outcome, len(res.Entries))
	e.logger.Info("export: snapshot written",
		slog.String("date", res.Date),
		slog.Int("entries", len(res.Entries)))
	return res, nil
}
