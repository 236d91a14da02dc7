// Package provision brings up the primary store by trying an ordered list
// of capability tiers. The first tier that opens wins; later tiers are never
// attempted. Provisioning fails only when every tier fails.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/classdeck/internal/apperr"
	"github.com/starford/classdeck/internal/metrics"
	"github.com/starford/classdeck/internal/store"
)

// Tier names.
const (
	TierHybrid    = "hybrid"
	TierLocal     = "local"
	TierEphemeral = "ephemeral"
)

// Tier describes one way of opening the store.
type Tier struct {
	Name string
	Open func(ctx context.Context) (store.Store, error)
}

// Outcome records a tier that failed and why.
type Outcome struct {
	Tier string `json:"tier"`
	Err  error  `json:"-"`
}

// Reason returns the failure reason as text.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Result is the provisioned store and how it was reached.
type Result struct {
	Store    store.Store
	Tier     string
	Failures []Outcome
}

// Degraded reports whether a preferred tier was skipped.
func (r *Result) Degraded() bool { return len(r.Failures) > 0 }

// Provision walks tiers in order and returns the first store that opens.
// Each failure is logged at WARN and recorded. If every tier fails the
// returned error wraps apperr.ErrStoreExhausted and every tier's reason.
func Provision(ctx context.Context, tiers []Tier, logger *slog.Logger, m *metrics.Metrics) (*Result, error) {
	res := &Result{}
	for _, t := range tiers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("provision: %w", err)
		}
		s, err := t.Open(ctx)
		if err == nil && s == nil {
			err = errors.New("tier returned no store")
		}
		if err != nil {
			logger.Warn("provision: tier failed",
				slog.String("tier", t.Name),
				slog.String("error", err.Error()))
			res.Failures = append(res.Failures, Outcome{Tier: t.Name, Err: err})
			m.TierFailed(t.Name)
			continue
		}
		res.Store = s
		res.Tier = t.Name
		logger.Info("provision: store ready",
			slog.String("tier", t.Name),
			slog.Int("failed_tiers", len(res.Failures)))
		m.TierSelected(t.Name)
		return res, nil
	}

	errs := make([]error, 0, len(res.Failures)+1)
	errs = append(errs, apperr.ErrStoreExhausted)
	for _, f := range res.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Tier, f.Err))
	}
	return nil, fmt.Errorf("provision: %w", errors.Join(errs...))
}
