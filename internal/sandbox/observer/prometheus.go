package observer

import (
	"context"
	"time"

	"codesandbox/internal/sandbox/result"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder exports sandbox metrics through a prometheus registerer.
type PrometheusRecorder struct {
	executions      *prometheus.CounterVec
	phaseDuration   *prometheus.HistogramVec
	inflight        prometheus.Gauge
	cleanupFailures prometheus.Counter
	rejected        *prometheus.CounterVec
}

// NewPrometheusRecorder registers the sandbox collectors on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_executions_total",
				Help: "Total number of execution requests by terminal outcome",
			},
			[]string{"language", "outcome"},
		),
		phaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sandbox_phase_duration_seconds",
				Help:    "Duration of each execution phase",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"language", "phase"},
		),
		inflight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sandbox_inflight_executions",
				Help: "Number of executions currently holding a slot",
			},
		),
		cleanupFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sandbox_workspace_cleanup_failures_total",
				Help: "Workspaces that could not be removed",
			},
		),
		rejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_rejected_requests_total",
				Help: "Requests rejected before execution",
			},
			[]string{"reason"},
		),
	}
}

func (p *PrometheusRecorder) ObservePhase(_ context.Context, languageID string, phase result.Phase, elapsed time.Duration) {
	p.phaseDuration.WithLabelValues(languageID, string(phase)).Observe(elapsed.Seconds())
}

func (p *PrometheusRecorder) ObserveExecution(_ context.Context, languageID string, outcome result.Outcome) {
	p.executions.WithLabelValues(languageID, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveCleanupFailure(context.Context) {
	p.cleanupFailures.Inc()
}

func (p *PrometheusRecorder) ObserveInflight(delta int) {
	p.inflight.Add(float64(delta))
}

func (p *PrometheusRecorder) ObserveRejected(_ context.Context, reason string) {
	p.rejected.WithLabelValues(reason).Inc()
}
