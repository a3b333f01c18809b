package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the session server: connected sessions,
// media ingest duration, engine round-trip latency, and upload volume,
// plus the generic HTTP request metrics the upgrade endpoint's own
// middleware stack records.

var (
	// SessionsActive is the current number of registered editor sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cuems_sessions_active",
			Help: "Current number of connected editor sessions",
		},
	)

	// MediaIngestDuration tracks how long media.Service.Ingest takes,
	// split by media type, including probe and derivative generation.
	MediaIngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cuems_media_ingest_duration_seconds",
			Help:    "Duration of media ingest (probe + derivative generation + insert)",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"media_type"},
	)

	// EngineRoundTripDuration tracks Bridge.Call latency per action, from
	// publish to matched response (or timeout).
	EngineRoundTripDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cuems_engine_round_trip_duration_seconds",
			Help:    "Duration of an editor->engine->editor round trip",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	// EngineCallErrors counts failed engine round trips by cause.
	EngineCallErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuems_engine_call_errors_total",
			Help: "Total number of engine round trips that failed",
		},
		[]string{"action", "reason"}, // reason: "timeout", "mismatch", "canceled"
	)

	// UploadBytesTotal counts bytes received over /upload across all
	// connections, successful or not.
	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cuems_upload_bytes_total",
			Help: "Total number of bytes received over the upload protocol",
		},
	)

	// UploadsCompleted counts uploads that reached Committed vs Failed.
	UploadsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuems_uploads_completed_total",
			Help: "Total number of uploads that finished, by outcome",
		},
		[]string{"outcome"}, // "committed", "failed"
	)

	// APIRequestsTotal and APIRequestDuration instrument the HTTP surface
	// the WebSocket upgrade (and /healthz) endpoints sit behind.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuems_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cuems_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cuems_http_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)
)

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordMediaIngest records one Ingest call's duration.
func RecordMediaIngest(mediaType string, duration time.Duration) {
	MediaIngestDuration.WithLabelValues(mediaType).Observe(duration.Seconds())
}

// RecordEngineRoundTrip records one Bridge.Call's outcome. reason is
// empty on success.
func RecordEngineRoundTrip(action string, duration time.Duration, reason string) {
	EngineRoundTripDuration.WithLabelValues(action).Observe(duration.Seconds())
	if reason != "" {
		EngineCallErrors.WithLabelValues(action, reason).Inc()
	}
}

// RecordUploadBytes adds n received bytes to the running total.
func RecordUploadBytes(n int) {
	UploadBytesTotal.Add(float64(n))
}

// RecordUploadOutcome records an upload reaching a terminal state.
func RecordUploadOutcome(committed bool) {
	outcome := "failed"
	if committed {
		outcome = "committed"
	}
	UploadsCompleted.WithLabelValues(outcome).Inc()
}

// SetSessionsActive sets the current connected-session gauge.
func SetSessionsActive(n int) {
	SessionsActive.Set(float64(n))
}
