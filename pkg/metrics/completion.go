package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CompletionMetrics records outcomes of swap completion attempts.
type CompletionMetrics struct {
	duration  *prometheus.HistogramVec
	outcomes  *prometheus.CounterVec
	rollbacks *prometheus.CounterVec
}

// NewCompletionMetrics registers the completion metrics on the provided registerer.
func NewCompletionMetrics(reg prometheus.Registerer) *CompletionMetrics {
	if reg == nil {
		return &CompletionMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swap_completion_duration_seconds",
		Help:    "Duration of swap completion attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swap_completion_outcomes_total",
		Help: "Completion attempts by terminal status.",
	}, []string{"kind", "status"})
	rollbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "swap_completion_rollbacks_total",
		Help: "Compensating rollbacks by result.",
	}, []string{"result"})
	reg.MustRegister(duration, outcomes, rollbacks)
	return &CompletionMetrics{
		duration:  duration,
		outcomes:  outcomes,
		rollbacks: rollbacks,
	}
}

// ObserveDuration records the duration of one attempt for the given kind.
func (c *CompletionMetrics) ObserveDuration(kind string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}

// IncOutcome increments the outcome counter for the kind/status pair.
func (c *CompletionMetrics) IncOutcome(kind, status string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(kind), normalizeLabel(status)).Inc()
}

// IncRollback increments the rollback counter for the given result.
func (c *CompletionMetrics) IncRollback(result string) {
	if c == nil || c.rollbacks == nil {
		return
	}
	c.rollbacks.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
