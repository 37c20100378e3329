package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Merge and cart sync outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeReplayed = "replayed"
	OutcomeNoop     = "noop"
	OutcomeFailed   = "failed"
)

// ActivityMetrics records account activity writes.
type ActivityMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	conflicts  *prometheus.CounterVec
}

// NewActivityMetrics registers the activity metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewActivityMetrics(reg prometheus.Registerer) *ActivityMetrics {
	if reg == nil {
		return &ActivityMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "activity_operations_total",
		Help: "Account activity operations by kind and outcome.",
	}, []string{"op", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "activity_operation_duration_seconds",
		Help:    "Duration of account activity operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "activity_version_conflicts_total",
		Help: "Optimistic concurrency conflicts on account activity writes.",
	}, []string{"op"})
	reg.MustRegister(operations, duration, conflicts)
	return &ActivityMetrics{
		operations: operations,
		duration:   duration,
		conflicts:  conflicts,
	}
}

func (m *ActivityMetrics) Observe(op, outcome string, duration time.Duration) {
	if m == nil || m.operations == nil {
		return
	}
	op = normalizeLabel(op)
	m.operations.WithLabelValues(op, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *ActivityMetrics) IncConflict(op string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(op)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
