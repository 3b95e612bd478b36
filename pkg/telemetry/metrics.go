package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the orchard engine.
type Metrics struct {
	config MetricsConfig

	executionsStarted   *prometheus.CounterVec
	executionsCompleted *prometheus.CounterVec
	executionDuration   *prometheus.HistogramVec

	instanceUpdates *prometheus.CounterVec
	updateConflicts *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
// A disabled configuration yields a no-op collector.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		config:   cfg,
		registry: registry,

		executionsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_executions_started_total",
				Help:      "Total number of workflow executions started",
			},
			[]string{"workflow"},
		),
		executionsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_executions_completed_total",
				Help:      "Total number of workflow executions completed",
			},
			[]string{"workflow", "status"},
		),
		executionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workflow_execution_duration_seconds",
				Help:      "Duration of workflow executions in seconds",
				Buckets:   buckets,
			},
			[]string{"workflow"},
		),
		instanceUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_instance_updates_total",
				Help:      "Total number of accepted node instance updates",
			},
			[]string{"kind"},
		),
		updateConflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_instance_update_conflicts_total",
				Help:      "Total number of node instance updates rejected with a version conflict",
			},
			[]string{"deployment"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.executionsStarted,
		m.executionsCompleted,
		m.executionDuration,
		m.instanceUpdates,
		m.updateConflicts,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ExecutionStarted records the start of a workflow execution.
func (m *Metrics) ExecutionStarted(workflow string) {
	if m == nil || m.executionsStarted == nil {
		return
	}
	m.executionsStarted.WithLabelValues(workflow).Inc()
}

// ExecutionCompleted records a finished workflow execution.
func (m *Metrics) ExecutionCompleted(workflow, status string, duration time.Duration) {
	if m == nil || m.executionsCompleted == nil {
		return
	}
	m.executionsCompleted.WithLabelValues(workflow, status).Inc()
	m.executionDuration.WithLabelValues(workflow).Observe(duration.Seconds())
}

// InstanceUpdated records an accepted node instance update; kind is
// "properties" or "state".
func (m *Metrics) InstanceUpdated(kind string) {
	if m == nil || m.instanceUpdates == nil {
		return
	}
	m.instanceUpdates.WithLabelValues(kind).Inc()
}

// UpdateConflict records a rejected node instance update.
func (m *Metrics) UpdateConflict(deployment string) {
	if m == nil || m.updateConflicts == nil {
		return
	}
	m.updateConflicts.WithLabelValues(deployment).Inc()
}

// Handler returns the HTTP handler serving the metrics endpoint, or nil
// when metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
