// Package observability provides Prometheus metrics, health checks, and
// OpenTelemetry tracing for the assistant.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Turn metrics
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionary_turns_total",
			Help: "Total number of chat turns submitted",
		},
		[]string{"persona", "status"},
	)

	turnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visionary_turn_duration_seconds",
			Help:    "Chat turn round-trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"persona"},
	)

	// Tool invocation metrics
	toolInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionary_tool_invocations_total",
			Help: "Total number of tool invocations applied",
		},
		[]string{"operation", "status"},
	)

	// Document metrics
	documentVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "visionary_document_version",
			Help: "Current canvas document version",
		},
	)

	// Live session metrics
	liveConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "visionary_live_connections_active",
			Help: "Number of active realtime voice connections",
		},
	)

	liveFramesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "visionary_live_frames_dropped_total",
			Help: "Capture frames discarded due to network backpressure",
		},
	)

	liveAudioChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "visionary_live_audio_chunks_total",
			Help: "Synthesized audio chunks scheduled for playback",
		},
	)

	// HTTP metrics (serve mode)
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visionary_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visionary_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	initOnce sync.Once
)

// InitMetrics registers all Prometheus metrics. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			turnsTotal,
			turnDuration,
			toolInvocationsTotal,
			documentVersion,
			liveConnectionsActive,
			liveFramesDroppedTotal,
			liveAudioChunksTotal,
			httpRequestsTotal,
			httpRequestDuration,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordTurn records one completed chat turn.
func RecordTurn(persona, status string, duration time.Duration) {
	turnsTotal.WithLabelValues(persona, status).Inc()
	turnDuration.WithLabelValues(persona).Observe(duration.Seconds())
}

// RecordToolInvocation records one tool invocation outcome.
func RecordToolInvocation(operation, status string) {
	toolInvocationsTotal.WithLabelValues(operation, status).Inc()
}

// SetDocumentVersion sets the document version gauge.
func SetDocumentVersion(version int) {
	documentVersion.Set(float64(version))
}

// SetLiveConnections sets the active realtime connections gauge.
func SetLiveConnections(count int) {
	liveConnectionsActive.Set(float64(count))
}

// AddLiveFramesDropped adds to the dropped capture frame counter.
func AddLiveFramesDropped(n uint64) {
	liveFramesDroppedTotal.Add(float64(n))
}

// IncLiveAudioChunks increments the scheduled audio chunk counter.
func IncLiveAudioChunks() {
	liveAudioChunksTotal.Inc()
}

// RecordHTTPRequest records HTTP request metrics.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
