// Package courseservice coordinates the primary store, the snapshot
// exporter and change notifications for the main process.
package courseservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/starford/classdeck/internal/apperr"
	"github.com/starford/classdeck/internal/export"
	"github.com/starford/classdeck/internal/models"
	"github.com/starford/classdeck/internal/provision"
	"github.com/starford/classdeck/internal/store"
	"github.com/starford/classdeck/internal/timing"
)

// Notifier is told about schedule changes.
type Notifier interface {
	// CourseChanged is called after a course is created or deleted.
	// kind is "created" or "deleted".
	CourseChanged(kind, id string)
}

// Exports requests snapshot exports. export.Runner implements it.
type Exports interface {
	Trigger(reason string)
	Last() (*export.Result, error)
}

// TodayEntry is one of today's classes with its resolved times.
type TodayEntry struct {
	models.Course
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
	StartMinute int    `json:"startMinute,omitempty"`
	EndMinute   int    `json:"endMinute,omitempty"`
	Scheduled   bool   `json:"scheduled"`
}

// TierStatus reports how the store was provisioned.
type TierStatus struct {
	Tier      string         `json:"tier"`
	Degraded  bool           `json:"degraded"`
	Failures  []TierFailure  `json:"failures"`
	Export    *export.Result `json:"lastExport,omitempty"`
	ExportErr string         `json:"lastExportError,omitempty"`
}

// TierFailure is a tier skipped during provisioning.
type TierFailure struct {
	Tier   string `json:"tier"`
	Reason string `json:"reason"`
}

// Service is the schedule-editing surface of the main process.
type Service struct {
	store     store.Store
	exporter  *export.Exporter
	exports   Exports
	notifier  Notifier
	table     timing.Table
	formatter *timing.Formatter
	prov      *provision.Result
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier sets the change notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithExports wires export triggers after mutations.
func WithExports(e Exports) Option {
	return func(s *Service) { s.exports = e }
}

// WithProvision records the provisioning outcome for Status.
func WithProvision(r *provision.Result) Option {
	return func(s *Service) { s.prov = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a course service.
func NewService(st store.Store, exp *export.Exporter, table timing.Table, f *timing.Formatter, opts ...Option) *Service {
	s := &Service{store: st, exporter: exp, table: table, formatter: f, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListCourses returns every course in insertion order.
func (s *Service) ListCourses(ctx context.Context) ([]models.Course, error) {
	cs, err := s.store.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	if cs == nil {
		cs = []models.Course{}
	}
	return cs, nil
}

// GetCourse returns one course or apperr.ErrNotFound.
func (s *Service) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	return s.store.GetCourse(ctx, id)
}

// CreateCourse stores a new course. A caller-supplied id that already
// exists is rejected with apperr.ErrAlreadyExists.
func (s *Service) CreateCourse(ctx context.Context, c *models.Course) (*models.Course, error) {
	if c.ID != "" {
		if _, err := s.store.GetCourse(ctx, c.ID); err == nil {
			return nil, apperr.ErrAlreadyExists
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}
	c.CreatedAt = time.Time{}
	if err := s.store.SaveCourse(ctx, c); err != nil {
		return nil, err
	}
	s.changed("created", c.ID)
	return c, nil
}

// DeleteCourse removes a course.
func (s *Service) DeleteCourse(ctx context.Context, id string) error {
	if err := s.store.DeleteCourse(ctx, id); err != nil {
		return err
	}
	s.changed("deleted", id)
	return nil
}

func (s *Service) changed(kind, id string) {
	if s.notifier != nil {
		s.notifier.CourseChanged(kind, id)
	}
	if s.exports != nil {
		s.exports.Trigger(export.ReasonMutation)
	}
}

// Today returns today's classes in snapshot order with resolved times.
func (s *Service) Today(ctx context.Context) (string, []TodayEntry, error) {
	now := s.now()
	cs, err := s.exporter.TodayCourses(ctx, now)
	if err != nil {
		return "", nil, err
	}
	out := make([]TodayEntry, 0, len(cs))
	for _, c := range cs {
		e := TodayEntry{Course: c}
		if start, end, ok := s.table.Window(c.Period, c.Span); ok {
			e.Start, e.End = timing.Clock(start), timing.Clock(end)
			e.StartMinute, e.EndMinute, e.Scheduled = start, end, true
		}
		out = append(out, e)
	}
	return s.formatter.Date(now), out, nil
}

// Midnight returns the start of today in the display zone.
func (s *Service) Midnight() time.Time {
	return s.formatter.Midnight(s.now())
}

// RequestExport asks for a snapshot export.
func (s *Service) RequestExport(reason string) error {
	if s.exports == nil {
		return fmt.Errorf("courseservice: exports not running")
	}
	s.exports.Trigger(reason)
	return nil
}

// Status reports the provisioned tier and the last export.
func (s *Service) Status() TierStatus {
	st := TierStatus{Failures: []TierFailure{}}
	if s.prov != nil {
		st.Tier = s.prov.Tier
		st.Degraded = s.prov.Degraded()
		for _, f := range s.prov.Failures {
			st.Failures = append(st.Failures, TierFailure{Tier: f.Tier, Reason: f.Reason()})
		}
	}
	if s.exports != nil {
		res, err := s.exports.Last()
		st.Export = res
		if err != nil {
			st.ExportErr = err.Error()
		}
	}
	return st
}
