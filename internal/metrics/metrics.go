// Package metrics holds the Prometheus collectors for the main process.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Export outcomes.
const (
	OutcomeWritten     = "written"
	OutcomeEmptyOnFail = "empty_on_store_error"
	OutcomeFailed      = "destination_failed"
)

// Metrics groups every collector. A nil *Metrics is valid and records
// nothing, so components can be built without one in tests.
type Metrics struct {
	registry *prometheus.Registry

	tier             *prometheus.GaugeVec
	tierFailures     *prometheus.CounterVec
	reconcileDeletes prometheus.Counter
	exports          *prometheus.CounterVec
	exportEntries    prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		tier: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "classdeck",
			Name:      "store_tier",
			Help:      "Provisioned store tier (1 for the active tier).",
		}, []string{"tier"}),
		tierFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classdeck",
			Name:      "store_tier_failures_total",
			Help:      "Store tiers that failed to open during provisioning.",
		}, []string{"tier"}),
		reconcileDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "classdeck",
			Name:      "reconcile_deleted_total",
			Help:      "Duplicate courses removed by the reconciler.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "classdeck",
			Name:      "snapshot_exports_total",
			Help:      "Snapshot export attempts by outcome.",
		}, []string{"outcome"}),
		exportEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "classdeck",
			Name:      "snapshot_entries",
			Help:      "Entries in the last written snapshot.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.tier, m.tierFailures, m.reconcileDeletes, m.exports, m.exportEntries,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// TierSelected marks tier as the active store tier.
func (m *Metrics) TierSelected(tier string) {
	if m == nil {
		return
	}
	m.tier.Reset()
	m.tier.WithLabelValues(tier).Set(1)
}

// TierFailed counts a tier that could not be opened.
func (m *Metrics) TierFailed(tier string) {
	if m == nil {
		return
	}
	m.tierFailures.WithLabelValues(tier).Inc()
}

// ReconcileDeleted adds n removed duplicates.
func (m *Metrics) ReconcileDeleted(n int) {
	if m == nil {
		return
	}
	m.reconcileDeletes.Add(float64(n))
}

// Exported records one export attempt.
func (m *Metrics) Exported(outcome string, entries int) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(outcome).Inc()
	if outcome != OutcomeFailed {
		m.exportEntries.Set(float64(entries))
	}
}
