package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCompletionMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCompletionMetrics(reg)

	m.IncOutcome("booking_exchange", "completed")
	m.IncOutcome("booking_exchange", "completed")
	m.IncOutcome("cash_swap", "rolled_back")
	m.IncRollback("restored")
	m.ObserveDuration("cash_swap", 250*time.Millisecond)

	if got := testutil.ToFloat64(m.outcomes.WithLabelValues("booking_exchange", "completed")); got != 2 {
		t.Fatalf("expected 2 completed outcomes, got %v", got)
	}
	if got := testutil.ToFloat64(m.outcomes.WithLabelValues("cash_swap", "rolled_back")); got != 1 {
		t.Fatalf("expected 1 rolled_back outcome, got %v", got)
	}
	if got := testutil.ToFloat64(m.rollbacks.WithLabelValues("restored")); got != 1 {
		t.Fatalf("expected 1 rollback result, got %v", got)
	}
}

func TestCompletionMetricsNilSafe(t *testing.T) {
	var m *CompletionMetrics
	m.IncOutcome("booking_exchange", "failed")
	m.IncRollback("failed")
	m.ObserveDuration("", time.Second)

	empty := NewCompletionMetrics(nil)
	empty.IncOutcome("", "")
	empty.ObserveDuration("cash_swap", time.Second)
}

func TestNormalizeLabel(t *testing.T) {
	if got := normalizeLabel(""); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
	if got := normalizeLabel("completed"); got != "completed" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}
