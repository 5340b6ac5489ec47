// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

/*
Package middleware provides HTTP middleware components for the application.

This package implements infrastructure middleware for compression,
performance monitoring, request ID tracking, and Prometheus metrics
integration. The api package composes these into the route groups of its
chi router, wrapping the HandlerFunc-shaped components through a small
adapter.

Key Components:

  - Compression: Gzip compression for clients that accept it
  - Performance Monitor: Request latency tracking with percentile calculations
  - Request ID: UUID-based request tracking for distributed tracing
  - Prometheus Metrics: HTTP request/response instrumentation

Endpoint Labels:

Both the Prometheus middleware and the performance monitor label samples
with the chi route template rather than the raw URL path. A spike of
requests to /api/v1/uploads/{id} shows up as one endpoint, not as one
metric series per upload ID. Outside a chi router the raw path is used.

Usage Example - Compression:

	import "github.com/tomtom215/itinerarium/internal/middleware"

	// Wrap handler with gzip compression
	http.HandleFunc("/api/v1/export/geojson",
	    middleware.Compression(handler),
	)

	// Responses are compressed whenever the client sends
	// Accept-Encoding: gzip; WebSocket upgrades pass through untouched

Usage Example - Performance Monitoring:

	// Keep a sliding window of the 1000 most recent requests
	perfMon := middleware.NewPerformanceMonitor(1000)

	// Middleware satisfies chi's func(http.Handler) http.Handler shape
	router.Use(perfMon.Middleware)

	// Get per-endpoint statistics, sorted by request count
	for _, stat := range perfMon.GetStats() {
	    fmt.Printf("%s: p50=%dms p95=%dms p99=%dms\n",
	        stat.Path, stat.P50Duration, stat.P95Duration, stat.P99Duration)
	}

Usage Example - Request ID:

	// Request ID middleware
	http.HandleFunc("/api/v1/uploads",
	    middleware.RequestID(handler),
	)

	// Access request ID in handler
	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := middleware.GetRequestID(r.Context())
	    log.Printf("[%s] Processing request", requestID)
	}

Performance Characteristics:

  - Compression: 70-90% size reduction for GeoJSON and JSON payloads
  - Compression overhead: ~1-2ms for typical responses, pooled writers
  - Metrics overhead: <0.1ms per request
  - Request ID overhead: <0.01ms (UUID generation)
  - Performance monitor: sliding window bounded by maxMetrics

Thread Safety:

All middleware components are thread-safe:
  - Compression uses per-request gzip writers drawn from a sync.Pool
  - Performance monitor uses sync.RWMutex
  - Request ID uses context.Context (immutable)
  - Prometheus metrics use atomic operations

See Also:

  - internal/api: chi router that mounts these components per route group
  - internal/metrics: Prometheus metrics definitions
  - internal/logging: logging context populated by RequestID
*/
package middleware
