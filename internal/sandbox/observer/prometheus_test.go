package observer

import (
	"context"
	"testing"
	"time"

	"codesandbox/internal/sandbox/result"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)
	ctx := context.Background()

	rec.ObserveExecution(ctx, "python", result.OutcomeSuccess)
	rec.ObserveExecution(ctx, "python", result.OutcomeSuccess)
	rec.ObserveExecution(ctx, "c", result.OutcomeCompileFailed)
	rec.ObservePhase(ctx, "c", result.PhaseCompile, 200*time.Millisecond)
	rec.ObserveCleanupFailure(ctx)
	rec.ObserveInflight(2)
	rec.ObserveInflight(-1)
	rec.ObserveRejected(ctx, "queue_timeout")

	if got := testutil.ToFloat64(rec.executions.WithLabelValues("python", string(result.OutcomeSuccess))); got != 2 {
		t.Fatalf("python successes = %v", got)
	}
	if got := testutil.ToFloat64(rec.executions.WithLabelValues("c", string(result.OutcomeCompileFailed))); got != 1 {
		t.Fatalf("c compile failures = %v", got)
	}
	if got := testutil.ToFloat64(rec.inflight); got != 1 {
		t.Fatalf("inflight = %v", got)
	}
	if got := testutil.ToFloat64(rec.cleanupFailures); got != 1 {
		t.Fatalf("cleanup failures = %v", got)
	}
	if got := testutil.CollectAndCount(rec.phaseDuration); got != 1 {
		t.Fatalf("phase series = %v", got)
	}
}
