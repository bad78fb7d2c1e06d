// Package metrics provides Prometheus metrics for the EduGuard risk service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the risk service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	scoreBuckets     []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Risk evaluation
	riskEvaluations   *prometheus.CounterVec
	riskScores        *prometheus.HistogramVec
	riskRejected      *prometheus.CounterVec
	evaluationLatency prometheus.Histogram
	studentsEvaluated prometheus.Gauge

	// Data store
	datastoreRequests *prometheus.CounterVec
	datastoreLatency  *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "eduguard",
		subsystem:        "risk",
		histogramBuckets: prometheus.DefBuckets,
		scoreBuckets:     prometheus.LinearBuckets(0, 10, 11),
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.riskEvaluations = auto.NewCounterVec(
		m.counterOpts("evaluations_total", "Total number of risk evaluations by variant and level"),
		[]string{"variant", "level"},
	)
	m.riskScores = auto.NewHistogramVec(
		m.histogramOpts("score", "Distribution of computed scores by variant", m.scoreBuckets),
		[]string{"variant"},
	)
	m.riskRejected = auto.NewCounterVec(
		m.counterOpts("inputs_rejected_total", "Evaluations refused because an input was out of range"),
		[]string{"variant"},
	)
	m.evaluationLatency = auto.NewHistogram(
		m.histogramOpts("evaluation_latency_milliseconds", "End-to-end student evaluation latency in milliseconds", m.histogramBuckets),
	)
	m.studentsEvaluated = auto.NewGauge(
		m.gaugeOpts("students_in_last_overview", "Number of students covered by the latest overview"),
	)

	m.datastoreRequests = auto.NewCounterVec(
		m.counterOpts("datastore_requests_total", "Data store requests by backend, operation and outcome"),
		[]string{"backend", "operation", "outcome"},
	)
	m.datastoreLatency = auto.NewHistogramVec(
		m.histogramOpts("datastore_latency_milliseconds", "Data store request latency in milliseconds", m.histogramBuckets),
		[]string{"backend", "operation"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use in bytes"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutine_count", "Number of goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_milliseconds", "Most recent GC pause in milliseconds", m.histogramBuckets),
	)
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool { return m.enabled }

// RecordEvaluation counts one evaluation and observes its score.
func (m *Manager) RecordEvaluation(variant, level string, score int) {
	if !m.enabled {
		return
	}
	m.riskEvaluations.WithLabelValues(variant, level).Inc()
	m.riskScores.WithLabelValues(variant).Observe(float64(score))
}

// RecordRejected counts one evaluation refused by the reject policy.
func (m *Manager) RecordRejected(variant string) {
	if m.enabled {
		m.riskRejected.WithLabelValues(variant).Inc()
	}
}

// RecordDatastore records one data store call.
func (m *Manager) RecordDatastore(backend, operation, outcome string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.datastoreRequests.WithLabelValues(backend, operation, outcome).Inc()
	m.datastoreLatency.WithLabelValues(backend, operation).Observe(latencyMs)
}

// RecordEvaluation counts one evaluation with the global manager.
func RecordEvaluation(variant, level string, score int) {
	globalManager.RecordEvaluation(variant, level, score)
}

// RecordRejected counts one rejected evaluation with the global manager.
func RecordRejected(variant string) {
	globalManager.RecordRejected(variant)
}

// RecordEvaluationLatency records student evaluation latency in milliseconds.
func RecordEvaluationLatency(latencyMs float64) {
	globalManager.evaluationLatency.Observe(latencyMs)
}

// UpdateStudentsEvaluated sets the number of students in the latest overview.
func UpdateStudentsEvaluated(count int) {
	globalManager.studentsEvaluated.Set(float64(count))
}

// RecordDatastore records one data store call with the global manager.
func RecordDatastore(backend, operation, outcome string, latencyMs float64) {
	globalManager.RecordDatastore(backend, operation, outcome, latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
