// Package metrics provides Prometheus metrics for the kirokukai service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// CSV ingestion
	csvRowsNormalized *prometheus.CounterVec
	csvRowsSkipped    *prometheus.CounterVec
	csvParseErrors    *prometheus.CounterVec
	rowsImported      *prometheus.CounterVec

	// Rank recomputation
	recomputeJobs    *prometheus.CounterVec
	recomputeLatency prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker
	workerCount prometheus.Gauge

	// Store
	storeRecords *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimitRejections *prometheus.CounterVec

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level recorders

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry served on /metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "kirokukai",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
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
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.csvRowsNormalized = auto.NewCounterVec(
		m.counterOpts("csv_rows_normalized_total", "Rows produced by the CSV normalizer by header schema"),
		[]string{"schema"},
	)
	m.csvRowsSkipped = auto.NewCounterVec(
		m.counterOpts("csv_rows_skipped_total", "Roster rows dropped by the absentee rules or the grade band"),
		[]string{"reason"},
	)
	m.csvParseErrors = auto.NewCounterVec(
		m.counterOpts("csv_parse_errors_total", "CSV uploads rejected by error kind"),
		[]string{"kind"},
	)
	m.rowsImported = auto.NewCounterVec(
		m.counterOpts("rows_imported_total", "Result rows persisted by program"),
		[]string{"program"},
	)

	m.recomputeJobs = auto.NewCounterVec(
		m.counterOpts("rank_recompute_jobs_total", "Rank recompute jobs by outcome"),
		[]string{"outcome"},
	)
	m.recomputeLatency = auto.NewHistogram(
		m.histogramOpts("rank_recompute_latency_milliseconds", "Time to recompute and persist the ranks of one target"),
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Recompute jobs waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue utilization ratio (size / capacity)"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Jobs rejected by a full or closed queue"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Running recompute workers"))

	m.storeRecords = auto.NewGaugeVec(
		m.gaugeOpts("store_records", "Persisted entities by kind"),
		[]string{"kind"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.rateLimitRejections = auto.NewCounterVec(
		m.counterOpts("rate_limit_rejections_total", "Requests rejected by the rate limiter"),
		[]string{"endpoint"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component"),
		[]string{"component", "error_type"},
	)
}

// RecordCSVRowsNormalized counts rows produced for a header schema
// ("canonical" or "legacy").
func RecordCSVRowsNormalized(schema string, n int) {
	globalManager.csvRowsNormalized.WithLabelValues(schema).Add(float64(n))
}

// RecordCSVRowsSkipped counts dropped rows by reason.
func RecordCSVRowsSkipped(reason string, n int) {
	if n <= 0 {
		return
	}
	globalManager.csvRowsSkipped.WithLabelValues(reason).Add(float64(n))
}

// RecordCSVParseError counts a rejected upload.
func RecordCSVParseError(kind string) {
	globalManager.csvParseErrors.WithLabelValues(kind).Inc()
}

// RecordRowsImported counts persisted rows for a program.
func RecordRowsImported(program string, n int) {
	globalManager.rowsImported.WithLabelValues(program).Add(float64(n))
}

// RecordRecomputeJob counts a recompute job outcome.
func RecordRecomputeJob(outcome string) {
	globalManager.recomputeJobs.WithLabelValues(outcome).Inc()
}

// RecordRecomputeLatency records one recompute in milliseconds.
func RecordRecomputeLatency(latencyMs float64) {
	globalManager.recomputeLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateStoreRecords sets the number of persisted entities of a kind.
func UpdateStoreRecords(kind string, count int) {
	globalManager.storeRecords.WithLabelValues(kind).Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimitRejection counts a request refused with 429.
func RecordRateLimitRejection(endpoint string) {
	globalManager.rateLimitRejections.WithLabelValues(endpoint).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the registry served on /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
