// Package metrics provides Prometheus metrics for the balance board service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Reader metrics
	samplesDecoded  prometheus.Counter
	transientErrors prometheus.Counter
	fatalErrors     prometheus.Counter
	stalls          prometheus.Counter
	lastSampleUnix  prometheus.Gauge
	readerRunning   prometheus.Gauge
	copX            prometheus.Gauge
	copY            prometheus.Gauge
	totalLoad       prometheus.Gauge

	// Discovery metrics
	discoveryScans *prometheus.CounterVec

	// Sink metrics
	sinkPolls     *prometheus.CounterVec
	sinkSkips     *prometheus.CounterVec
	sinkPublishes *prometheus.CounterVec
	sinkErrors    *prometheus.CounterVec
	sinkLatency   *prometheus.HistogramVec

	// Stream metrics
	streamClients prometheus.Gauge
	streamFrames  prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewMetricsManager(WithPrometheusRegistry(customRegistry))
}

// NewMetricsManager creates a new metrics manager with default configuration.
func NewMetricsManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "balanceboard",
		subsystem:        "reader",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// name applies the optional metric prefix.
func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.samplesDecoded = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("samples_decoded_total"),
		Help:        "Total number of board samples decoded and stored",
		ConstLabels: labels,
	})

	m.transientErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("transient_errors_total"),
		Help:        "Total number of recoverable device I/O errors",
		ConstLabels: labels,
	})

	m.fatalErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("fatal_errors_total"),
		Help:        "Total number of read loops terminated by a fatal error",
		ConstLabels: labels,
	})

	m.stalls = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("stalls_total"),
		Help:        "Total number of readiness waits that timed out",
		ConstLabels: labels,
	})

	m.lastSampleUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("last_sample_unix_seconds"),
		Help:        "Unix time of the most recently stored sample",
		ConstLabels: labels,
	})

	m.readerRunning = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("running"),
		Help:        "1 while the read loop is running",
		ConstLabels: labels,
	})

	m.copX = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("cop_x"),
		Help:        "Latest center of pressure x in raw sensor units",
		ConstLabels: labels,
	})

	m.copY = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("cop_y"),
		Help:        "Latest center of pressure y in raw sensor units",
		ConstLabels: labels,
	})

	m.totalLoad = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("total_load"),
		Help:        "Latest sum of all four corners in raw sensor units",
		ConstLabels: labels,
	})

	m.discoveryScans = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "discovery",
			Name:        m.name("scans_total"),
			Help:        "Total number of discovery scans by result",
			ConstLabels: labels,
		},
		[]string{"result"},
	)

	m.sinkPolls = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "sink",
			Name:        m.name("polls_total"),
			Help:        "Total number of polls by sink",
			ConstLabels: labels,
		},
		[]string{"sink"},
	)

	m.sinkSkips = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "sink",
			Name:        m.name("skips_total"),
			Help:        "Total number of polls skipped because no new sample was available",
			ConstLabels: labels,
		},
		[]string{"sink"},
	)

	m.sinkPublishes = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "sink",
			Name:        m.name("publishes_total"),
			Help:        "Total number of values written out by sink",
			ConstLabels: labels,
		},
		[]string{"sink"},
	)

	m.sinkErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "sink",
			Name:        m.name("errors_total"),
			Help:        "Total number of failed polls by sink",
			ConstLabels: labels,
		},
		[]string{"sink"},
	)

	m.sinkLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   "sink",
			Name:        m.name("poll_latency_milliseconds"),
			Help:        "Latency of a single sink poll in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"sink"},
	)

	m.streamClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "stream",
		Name:        m.name("clients"),
		Help:        "Number of connected WebSocket stream clients",
		ConstLabels: labels,
	})

	m.streamFrames = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "stream",
		Name:        m.name("frames_total"),
		Help:        "Total number of CoP frames written to stream clients",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "http",
			Name:        m.name("requests_total"),
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   "http",
			Name:        m.name("request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "errors",
			Name:        m.name("by_component_total"),
			Help:        "Total number of errors by component",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "errors",
			Name:        m.name("by_type_total"),
			Help:        "Total number of errors by type",
			ConstLabels: labels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "errors",
			Name:        m.name("by_endpoint_total"),
			Help:        "Total number of errors by endpoint",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   "errors",
			Name:        m.name("latency_milliseconds"),
			Help:        "Latency of operations that resulted in errors",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// Enabled reports whether recording is active on the manager.
func (m *Manager) Enabled() bool {
	return m.enabled
}

// RefreshInterval is how often polled gauges such as the system metrics
// should be refreshed.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

// RefreshInterval returns the global manager's gauge refresh interval.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// Reader Metrics Functions.

// RecordSampleDecoded increments the decoded samples counter and stamps the
// last sample time.
func RecordSampleDecoded(at time.Time) {
	if !globalManager.enabled {
		return
	}
	globalManager.samplesDecoded.Inc()
	globalManager.lastSampleUnix.Set(float64(at.UnixNano()) / float64(time.Second))
}

// RecordTransientError increments the recoverable I/O error counter.
func RecordTransientError() {
	if !globalManager.enabled {
		return
	}
	globalManager.transientErrors.Inc()
}

// RecordFatalError increments the fatal error counter.
func RecordFatalError() {
	if !globalManager.enabled {
		return
	}
	globalManager.fatalErrors.Inc()
}

// RecordStall increments the stalled wait counter.
func RecordStall() {
	if !globalManager.enabled {
		return
	}
	globalManager.stalls.Inc()
}

// UpdateReaderRunning sets the running gauge.
func UpdateReaderRunning(running bool) {
	if !globalManager.enabled {
		return
	}
	v := 0.0
	if running {
		v = 1
	}
	globalManager.readerRunning.Set(v)
}

// UpdateCoP sets the latest center of pressure and total load gauges.
func UpdateCoP(x, y, total int) {
	if !globalManager.enabled {
		return
	}
	globalManager.copX.Set(float64(x))
	globalManager.copY.Set(float64(y))
	globalManager.totalLoad.Set(float64(total))
}

// Discovery Metrics Functions.

// RecordDiscoveryScan counts a discovery scan by its result kind.
func RecordDiscoveryScan(result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.discoveryScans.WithLabelValues(result).Inc()
}

// Sink Metrics Functions.

// RecordSinkPoll records one poll of a sink and its latency.
func RecordSinkPoll(sink string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.sinkPolls.WithLabelValues(sink).Inc()
	globalManager.sinkLatency.WithLabelValues(sink).Observe(latencyMs)
}

// RecordSinkSkip counts a poll that found nothing new to emit.
func RecordSinkSkip(sink string) {
	if !globalManager.enabled {
		return
	}
	globalManager.sinkSkips.WithLabelValues(sink).Inc()
}

// RecordSinkPublish counts a value written out by a sink.
func RecordSinkPublish(sink string) {
	if !globalManager.enabled {
		return
	}
	globalManager.sinkPublishes.WithLabelValues(sink).Inc()
}

// RecordSinkError counts a failed poll.
func RecordSinkError(sink string) {
	if !globalManager.enabled {
		return
	}
	globalManager.sinkErrors.WithLabelValues(sink).Inc()
}

// Stream Metrics Functions.

// AddStreamClients adjusts the connected stream client gauge by delta.
func AddStreamClients(delta int) {
	if !globalManager.enabled {
		return
	}
	globalManager.streamClients.Add(float64(delta))
}

// RecordStreamFrame counts a frame written to a stream client.
func RecordStreamFrame() {
	if !globalManager.enabled {
		return
	}
	globalManager.streamFrames.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
