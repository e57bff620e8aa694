// Package metrics counts provider runs and exports them in the Prometheus text format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "vitestprovider"

// Run outcomes.
const (
	OutcomeEmpty   = "empty"
	OutcomePassed  = "passed"
	OutcomeFailed  = "failed"
	OutcomeAborted = "aborted" // engine error or panic, summary synthesized
)

// Metrics holds the provider's collectors on a private registry, so several
// providers in one process never collide. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	resultsTotal  *prometheus.CounterVec
	engineErrors  *prometheus.CounterVec
	unhandled     prometheus.Counter
	runDurationMs prometheus.Histogram
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_total",
			Help:      "Count of RunTests calls by outcome",
		}, []string{
			"runtime",
			"outcome",
		}),
		resultsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "results_total",
			Help:      "Count of reported test results",
		}, []string{
			"runtime",
			"result",
		}),
		engineErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "engine_errors_total",
			Help:      "Count of engine failures by kind",
		}, []string{
			"kind",
		}),
		unhandled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "unhandled_errors_total",
			Help:      "Count of errors raised outside any test",
		}),
		runDurationMs: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "run_duration_milliseconds",
			Help:      "Wall-clock duration of engine runs",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRun records one finished RunTests call.
func (m *Metrics) RecordRun(runtime, outcome string, passed, failed int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(runtime, outcome).Inc()
	m.resultsTotal.WithLabelValues(runtime, "pass").Add(float64(passed))
	m.resultsTotal.WithLabelValues(runtime, "fail").Add(float64(failed))
	if outcome != OutcomeEmpty {
		m.runDurationMs.Observe(float64(elapsed) / float64(time.Millisecond))
	}
}

// RecordEngineError records an engine failure of the given kind.
func (m *Metrics) RecordEngineError(kind string) {
	if m == nil {
		return
	}
	m.engineErrors.WithLabelValues(kind).Inc()
}

// RecordUnhandled adds n unhandled errors.
func (m *Metrics) RecordUnhandled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.unhandled.Add(float64(n))
}

// WriteTextfile writes all collected metrics to path, in the format read by
// the node exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
