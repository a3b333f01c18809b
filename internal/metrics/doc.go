// Package metrics exposes the process's Prometheus instrumentation.
//
// The session server tracks four domain signals:
//
//   - cuems_sessions_active: current connected editor sessions (gauge,
//     updated on every Hub.Register/Unregister).
//   - cuems_media_ingest_duration_seconds: media.Service.Ingest latency,
//     labeled by media_type (histogram).
//   - cuems_engine_round_trip_duration_seconds /
//     cuems_engine_call_errors_total: engine.Bridge.Call latency and
//     failures, labeled by action.
//   - cuems_upload_bytes_total / cuems_uploads_completed_total: bytes
//     received and upload outcomes from the /upload pipeline.
//
// Alongside these, cuems_http_requests_total, cuems_http_request_duration_seconds,
// and cuems_http_active_requests instrument the plain HTTP surface (the
// WebSocket upgrade endpoint, /healthz, /metrics itself) via the shared
// internal/middleware.PrometheusMetrics middleware.
//
// All metrics register against the default Prometheus registry through
// promauto, so wiring /metrics only requires mounting
// promhttp.Handler().
package metrics
