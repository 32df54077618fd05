// Package observer defines logging and metrics hooks for sandbox execution.
package observer

import (
	"context"
	"time"

	"codesandbox/internal/sandbox/result"
)

// MetricsRecorder records sandbox metrics.
type MetricsRecorder interface {
	ObservePhase(ctx context.Context, languageID string, phase result.Phase, elapsed time.Duration)
	ObserveExecution(ctx context.Context, languageID string, outcome result.Outcome)
	ObserveCleanupFailure(ctx context.Context)
	ObserveInflight(delta int)
	ObserveRejected(ctx context.Context, reason string)
}

// NoopMetricsRecorder discards all observations.
type NoopMetricsRecorder struct{}

func (NoopMetricsRecorder) ObservePhase(context.Context, string, result.Phase, time.Duration) {}
func (NoopMetricsRecorder) ObserveExecution(context.Context, string, result.Outcome)        {}
func (NoopMetricsRecorder) ObserveCleanupFailure(context.Context)                           {}
func (NoopMetricsRecorder) ObserveInflight(int)                                             {}
func (NoopMetricsRecorder) ObserveRejected(context.Context, string)                         {}
