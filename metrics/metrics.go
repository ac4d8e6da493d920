// Package metrics exposes Prometheus collectors for augmentation passes and
// database health.
package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts completed augmentation passes by outcome.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "augmenter_runs_total",
		Help: "Completed augmentation passes by outcome.",
	}, []string{"outcome"})

	// PatchesApplied counts applied patches by kind.
	PatchesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "augmenter_patches_applied_total",
		Help: "Patches applied to documents, by patch kind.",
	}, []string{"kind"})

	// PatchesDropped counts discarded candidates by drop reason.
	PatchesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "augmenter_patches_dropped_total",
		Help: "Candidate patches discarded during resolution, by reason.",
	}, []string{"reason"})

	// PassDuration observes wall time of whole augmentation passes.
	PassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "augmenter_pass_duration_seconds",
		Help:    "Duration of augmentation passes.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	// SuggestionDuration observes individual suggester call latency.
	SuggestionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "augmenter_suggestion_duration_seconds",
		Help:    "Latency of suggester calls, by call type.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"type"})
)

// ObservePass records the metrics for one finished pass.
func ObservePass(duration time.Duration, appliedByKind map[string]int, droppedByReason map[string]int, failed bool) {
	outcome := "success"
	if failed {
		outcome = "failure"
	}
	RunsTotal.WithLabelValues(outcome).Inc()
	PassDuration.Observe(duration.Seconds())

	for kind, n := range appliedByKind {
		PatchesApplied.WithLabelValues(kind).Add(float64(n))
	}
	for reason, n := range droppedByReason {
		PatchesDropped.WithLabelValues(reason).Add(float64(n))
	}
}

// DatabaseMetrics publishes connection-pool gauges for one database.
type DatabaseMetrics struct {
	openConnections prometheus.Gauge
	idleConnections prometheus.Gauge
	inUse           prometheus.Gauge
	waitCount       prometheus.Gauge
}

// NewDatabaseMetrics registers pool gauges under the given namespace.
func NewDatabaseMetrics(namespace string) *DatabaseMetrics {
	return &DatabaseMetrics{
		openConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_open_connections",
			Help:      "Open database connections.",
		}),
		idleConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_idle_connections",
			Help:      "Idle database connections.",
		}),
		inUse: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_in_use_connections",
			Help:      "Database connections currently in use.",
		}),
		waitCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_wait_count",
			Help:      "Total connections waited for.",
		}),
	}
}

// UpdateDBStats refreshes the gauges from the pool's current stats.
func (m *DatabaseMetrics) UpdateDBStats(db *sql.DB) {
	stats := db.Stats()
	m.openConnections.Set(float64(stats.OpenConnections))
	m.idleConnections.Set(float64(stats.Idle))
	m.inUse.Set(float64(stats.InUse))
	m.waitCount.Set(float64(stats.WaitCount))
}
