// Package metrics holds the prometheus metrics exported by the backend runner.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bti"

// Registry holds all backend metrics on a private prometheus registry.
type Registry struct {
	// Protocol
	MessagesTotal *prometheus.CounterVec

	// Execution
	TicksTotal       prometheus.Counter
	TickDuration     prometheus.Histogram
	RunningTrees     prometheus.Gauge
	TreeResultsTotal *prometheus.CounterVec
	GuardErrorsTotal prometheus.Counter
	TelemetryNodes   prometheus.Histogram

	// Store
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewRegistry creates a registry with every metric initialized, plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r := &Registry{registry: reg}
	r.initProtocolMetrics()
	r.initExecutionMetrics()
	r.initStoreMetrics()
	return r
}

func (r *Registry) initProtocolMetrics() {
	r.MessagesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Protocol messages handled by the runner",
		},
		[]string{"direction", "kind"}, // direction: in, out
	)
}

func (r *Registry) initExecutionMetrics() {
	r.TicksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tree_ticks_total",
			Help:      "Behavior tree ticks executed",
		},
	)

	r.TickDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Duration of one runner update, across all running trees",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	r.RunningTrees = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running_trees",
			Help:      "Behavior trees currently loaded in the runner",
		},
	)

	r.TreeResultsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tree_results_total",
			Help:      "Behavior trees that ran to completion",
		},
		[]string{"status"}, // success, failure
	)

	r.GuardErrorsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_errors_total",
			Help:      "Guard conditions that failed to compile or evaluate",
		},
	)

	r.TelemetryNodes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "telemetry_nodes",
			Help:      "Nodes per emitted telemetry tree",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		},
	)
}

func (r *Registry) initStoreMetrics() {
	r.StoreOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Behavior file store operations",
		},
		[]string{"operation", "status"},
	)

	r.StoreOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of behavior file store operations",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
}

// RecordMessage counts a protocol message. direction is "in" or "out".
func (r *Registry) RecordMessage(direction, kind string) {
	r.MessagesTotal.WithLabelValues(direction, kind).Inc()
}

// RecordStoreOperation records a store call and its outcome.
func (r *Registry) RecordStoreOperation(operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	r.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordUpdate records one runner update that ticked the given number of
// trees.
func (r *Registry) RecordUpdate(ticked int, duration time.Duration) {
	r.TicksTotal.Add(float64(ticked))
	r.TickDuration.Observe(duration.Seconds())
}

// RecordTreeResult counts a tree reaching a final status.
func (r *Registry) RecordTreeResult(status string) {
	r.TreeResultsTotal.WithLabelValues(status).Inc()
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
