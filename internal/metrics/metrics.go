// Package metrics exports bus and plugin lifecycle measurements to
// Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dshills/dashcore/internal/event"
	"github.com/dshills/dashcore/internal/plugin"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "dashcore"

// Outcome label values of async handler results.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Default histogram buckets for dispatch latency (in seconds).
var defaultBuckets = []float64{
	.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5,
}

// Metrics implements event.Recorder and plugin.Recorder.
type Metrics struct {
	eventsEmitted    *prometheus.CounterVec
	syncFailures     *prometheus.CounterVec
	asyncHandlers    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	transitions      *prometheus.CounterVec
	activePlugins    prometheus.Gauge
}

var (
	_ event.Recorder  = (*Metrics)(nil)
	_ plugin.Recorder = (*Metrics)(nil)
)

// New registers the metrics with reg. An empty namespace selects
// DefaultNamespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Metrics{
		eventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "events_emitted_total",
			Help:      "Total number of emitted events by name",
		}, []string{"event"}),
		syncFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "sync_handler_failures_total",
			Help:      "Total number of emissions aborted by a failing sync handler",
		}, []string{"event"}),
		asyncHandlers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "async_handlers_total",
			Help:      "Total number of settled async handler runs by outcome",
		}, []string{"event", "outcome"}),
		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "async_dispatch_duration_seconds",
			Help:      "Time until all async handlers of an emission settled",
			Buckets:   defaultBuckets,
		}, []string{"event"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plugin",
			Name:      "transitions_total",
			Help:      "Total number of plugin lifecycle transitions by kind",
		}, []string{"plugin", "kind"}),
		activePlugins: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "plugin",
			Name:      "active",
			Help:      "Number of currently enabled plugins",
		}),
	}
}

// EventEmitted implements event.Recorder.
func (m *Metrics) EventEmitted(name string) {
	m.eventsEmitted.WithLabelValues(name).Inc()
}

// SyncHandlerFailed implements event.Recorder.
func (m *Metrics) SyncHandlerFailed(name string) {
	m.syncFailures.WithLabelValues(name).Inc()
}

// AsyncSettled implements event.Recorder. Emissions without async
// handlers are not observed.
func (m *Metrics) AsyncSettled(name string, succeeded, failed int, elapsed time.Duration) {
	if succeeded+failed == 0 {
		return
	}
	m.asyncHandlers.WithLabelValues(name, OutcomeSucceeded).Add(float64(succeeded))
	m.asyncHandlers.WithLabelValues(name, OutcomeFailed).Add(float64(failed))
	m.dispatchDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// TransitionRecorded implements plugin.Recorder.
func (m *Metrics) TransitionRecorded(pluginID, kind string) {
	m.transitions.WithLabelValues(pluginID, kind).Inc()
}

// ActivePlugins implements plugin.Recorder.
func (m *Metrics) ActivePlugins(n int) {
	m.activePlugins.Set(float64(n))
}
