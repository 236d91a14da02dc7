package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger reasons.
const (
	ReasonLaunch     = "launch"
	ReasonForeground = "foreground"
	ReasonSchedule   = "schedule"
	ReasonMutation   = "mutation"
)

// DefaultSchedules re-export periodically and right after midnight.
var DefaultSchedules = []string{"@every 15m", "0 0 * * *"}

// Runner is the single writer of the snapshot. Triggers arriving while an
// export is pending are coalesced into it; exports never overlap.
type Runner struct {
	exp      *Exporter
	cron     *cron.Cron
	pending  chan string
	now      func() time.Time
	logger   *slog.Logger
	signals  bool
	onExport func(Result, error)
	mu       sync.Mutex
	last     *Result
	lastErr  error
	runCount int
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithSignals makes SIGUSR1 trigger a foreground export.
func WithSignals() RunnerOption {
	return func(r *Runner) { r.signals = true }
}

// OnExport registers fn to run after every export, on the runner's
// goroutine.
func OnExport(fn func(Result, error)) RunnerOption {
	return func(r *Runner) { r.onExport = fn }
}

// NewRunner schedules exports on each cron spec (standard five fields or
// descriptors such as "@every 15m") in the formatter's zone.
func NewRunner(exp *Exporter, schedules []string, logger *slog.Logger, opts ...RunnerOption) (*Runner, error) {
	r := &Runner{
		exp:     exp,
		cron:    cron.New(cron.WithLocation(exp.opts.Formatter.Location())),
		pending: make(chan string, 1),
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, spec := range schedules {
		if _, err := r.cron.AddFunc(spec, func() { r.Trigger(ReasonSchedule) }); err != nil {
			return nil, fmt.Errorf("export: schedule %q: %w", spec, err)
		}
	}
	return r, nil
}

// Trigger requests an export. It never blocks.
func (r *Runner) Trigger(reason string) {
	select {
	case r.pending <- reason:
	default:
		r.logger.Debug("export: trigger coalesced", slog.String("reason", reason))
	}
}

// Last returns the most recent export result and error, if any.
func (r *Runner) Last() (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.lastErr
}

// Runs returns how many exports have completed.
func (r *Runner) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runCount
}

// Run exports once for launch, then serves triggers until ctx is done.
// Export failures are logged and never stop the loop.
func (r *Runner) Run(ctx context.Context) error {
	r.Trigger(ReasonLaunch)

	var sig chan os.Signal
	if r.signals {
		sig = make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGUSR1)
		defer signal.Stop(sig)
	}

	r.cron.Start()
	defer func() { <-r.cron.Stop().Done() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sig:
			r.Trigger(ReasonForeground)
		case reason := <-r.pending:
			r.export(ctx, reason)
		}
	}
}

func (r *Runner) export(ctx context.Context, reason string) {
	r.logger.Debug("export: running", slog.String("reason", reason))
	res, err := r.exp.ExportToday(ctx, r.now())

	r.mu.Lock()
	r.last = &res
	r.lastErr = err
	r.runCount++
	r.mu.Unlock()

	if r.onExport != nil {
		r.onExport(res, err)
	}
}
