package widget

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/starford/classdeck/internal/sse"
	"github.com/starford/classdeck/internal/storage"
	"github.com/starford/classdeck/internal/timing"
)

// DefaultRefreshSpec recomputes the state every minute.
const DefaultRefreshSpec = "@every 1m"

const debounce = 100 * time.Millisecond

// View is the latest snapshot load and the state derived from it.
type View struct {
	LoadResult
	TimingMismatch bool `json:"timingMismatch"`
	// Stale is set when the snapshot is for another day.
	Stale       bool         `json:"stale"`
	State       DisplayState `json:"state"`
	RefreshedAt time.Time    `json:"refreshedAt"`
}

// Refresher re-reads the snapshot on a schedule, when the file changes and
// on request, and publishes each new view. It never writes the snapshot.
type Refresher struct {
	src       storage.Provider
	name      string
	table     timing.Table
	formatter *timing.Formatter
	broker    *sse.Broker
	logger    *slog.Logger
	now       func() time.Time

	cron    *cron.Cron
	manual  chan struct{}
	mu      sync.RWMutex
	view    View
	refresh int
	warned  string
}

// RefresherOption customizes a Refresher.
type RefresherOption func(*Refresher)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) RefresherOption {
	return func(r *Refresher) { r.now = now }
}

// WithBroker publishes every refresh as state.updated.
func WithBroker(b *sse.Broker) RefresherOption {
	return func(r *Refresher) { r.broker = b }
}

// NewRefresher builds a refresher for the snapshot name in src. spec is a
// cron spec such as "@every 1m"; empty means DefaultRefreshSpec.
func NewRefresher(src storage.Provider, name string, table timing.Table, f *timing.Formatter,
	spec string, logger *slog.Logger, opts ...RefresherOption,
) (*Refresher, error) {
	if spec == "" {
		spec = DefaultRefreshSpec
	}
	r := &Refresher{
		src:       src,
		name:      name,
		table:     table,
		formatter: f,
		logger:    logger,
		now:       time.Now,
		cron:      cron.New(cron.WithLocation(f.Location())),
		manual:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	if _, err := r.cron.AddFunc(spec, r.Refresh); err != nil {
		return nil, fmt.Errorf("widget: refresh schedule %q: %w", spec, err)
	}
	return r, nil
}

// Refresh requests a re-read. It never blocks; pending requests coalesce.
func (r *Refresher) Refresh() {
	select {
	case r.manual <- struct{}{}:
	default:
	}
}

// View returns the latest view.
func (r *Refresher) View() View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view
}

// Refreshes returns how many refreshes have completed.
func (r *Refresher) Refreshes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refresh
}

// Run refreshes once, then on every trigger until ctx is done. While the
// container is missing the file watch is retried on every refresh; the
// schedule keeps running either way.
func (r *Refresher) Run(ctx context.Context) error {
	r.Once()

	var events chan fsnotify.Event
	var watchErrs chan error
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("widget: watcher: %w", err)
	}
	defer w.Close()
	watch := func(warn bool) {
		if events != nil {
			return
		}
		if err := w.Add(r.src.Root()); err != nil {
			if warn {
				r.logger.Warn("widget: container not watched",
					slog.String("root", r.src.Root()),
					slog.String("error", err.Error()))
			}
			return
		}
		events, watchErrs = w.Events, w.Errors
		r.logger.Info("widget: watching container", slog.String("root", r.src.Root()))
	}
	watch(true)

	r.cron.Start()
	defer func() { <-r.cron.Stop().Done() }()

	var timer *time.Timer
	var timerCh <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-r.manual:
			watch(false)
			r.Once()

		case <-timerCh:
			r.Once()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			// The exporter renames a temp file over the snapshot.
			if filepath.Base(ev.Name) != filepath.Base(r.name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerCh = timer.C
			} else {
				timer.Reset(debounce)
			}

		case werr, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			r.logger.Error("widget: watcher error", slog.String("error", werr.Error()))
		}
	}
}

// Once loads the snapshot, recomputes the state and publishes it.
func (r *Refresher) Once() View {
	now := r.now().In(r.formatter.Location())
	res := Load(r.src, r.name)

	v := View{
		LoadResult:  res,
		State:       CurrentState(res.Entries, now, r.table),
		Stale:       res.StaleAt(r.formatter, now),
		RefreshedAt: now,
	}
	if res.Status == StatusNoData {
		r.logger.Debug("widget: no snapshot", slog.String("error", res.Err))
	}
	fp := r.table.Fingerprint()
	v.TimingMismatch = res.TimingTable != "" && res.TimingTable != fp

	r.mu.Lock()
	warn := v.TimingMismatch && r.warned != res.TimingTable
	if warn {
		r.warned = res.TimingTable
	}
	r.view = v
	r.refresh++
	r.mu.Unlock()

	if warn {
		r.logger.Warn("widget: snapshot timing table differs from local table",
			slog.String("snapshot", res.TimingTable),
			slog.String("local", fp))
	}

	if r.broker != nil {
		r.broker.Publish(sse.Event{Type: sse.EventStateUpdated, Data: v})
	}
	return v
}
