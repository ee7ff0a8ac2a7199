package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GenerationMetrics tracks try-on run outcomes and provider polling behavior.
type GenerationMetrics struct {
	started      prometheus.Counter
	completed    prometheus.Counter
	failed       *prometheus.CounterVec
	runDuration  prometheus.Histogram
	pollAttempts prometheus.Histogram
}

// NewGenerationMetrics registers run metrics on the provided registerer.
func NewGenerationMetrics(reg prometheus.Registerer) *GenerationMetrics {
	if reg == nil {
		return &GenerationMetrics{}
	}
	started := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "generation_started_total",
		Help: "Try-on runs accepted by the orchestrator.",
	})
	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "generation_completed_total",
		Help: "Try-on runs that reached completed.",
	})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_failed_total",
		Help: "Try-on runs that reached failed, by reason.",
	}, []string{"reason"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "generation_run_duration_seconds",
		Help:    "Wall-clock duration from submit to terminal state.",
		Buckets: []float64{1, 5, 10, 20, 30, 60, 90, 120, 180},
	})
	pollAttempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "generation_poll_attempts",
		Help:    "Status poll attempts consumed per run.",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60},
	})
	reg.MustRegister(started, completed, failed, runDuration, pollAttempts)
	return &GenerationMetrics{
		started:      started,
		completed:    completed,
		failed:       failed,
		runDuration:  runDuration,
		pollAttempts: pollAttempts,
	}
}

// IncStarted counts an accepted run.
func (g *GenerationMetrics) IncStarted() {
	if g == nil || g.started == nil {
		return
	}
	g.started.Inc()
}

// IncCompleted counts a completed run.
func (g *GenerationMetrics) IncCompleted() {
	if g == nil || g.completed == nil {
		return
	}
	g.completed.Inc()
}

// IncFailed counts a failed run with its reason label.
func (g *GenerationMetrics) IncFailed(reason string) {
	if g == nil || g.failed == nil {
		return
	}
	g.failed.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveRun records run duration and poll attempts at terminal state.
func (g *GenerationMetrics) ObserveRun(duration time.Duration, attempts int) {
	if g == nil {
		return
	}
	if g.runDuration != nil {
		g.runDuration.Observe(duration.Seconds())
	}
	if g.pollAttempts != nil {
		g.pollAttempts.Observe(float64(attempts))
	}
}
