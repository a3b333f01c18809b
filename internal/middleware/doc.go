/*
Package middleware provides HTTP middleware components for the application.

This package holds two http.HandlerFunc middlewares. cmd/cuemsd adapts both
to chi's middleware shape and applies them to every route ("/", "/upload",
/healthz, /metrics). The package has no compression, latency-percentile,
CORS or rate-limiting middleware.

Key Components:

  - Request ID: reuses an incoming X-Request-ID header or generates a UUID,
    echoes it in the response header, and stores it in the request context
  - Prometheus Metrics: active-request gauge, request count and duration by
    method, path and status code, recorded through internal/metrics

Usage Example - Request ID:

	// Request ID middleware
	http.HandleFunc("/healthz",
	    middleware.RequestID(handler),
	)

	// Access request ID in handler
	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := middleware.GetRequestID(r.Context())
	    log.Printf("[%s] Processing request", requestID)
	}

Thread Safety:

Both middlewares keep no shared state of their own: the request ID lives in
the per-request context, and the Prometheus collectors are safe for
concurrent use.

See Also:

  - internal/metrics: Prometheus metrics definitions
*/
package middleware
