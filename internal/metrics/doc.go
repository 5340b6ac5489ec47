// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package implements comprehensive application instrumentation using the Prometheus
client library, exposing metrics for monitoring performance, errors, and system health.

# Overview

The package provides metrics for:
  - Ingest pipeline throughput and record outcomes
  - Database query and appender performance (DuckDB)
  - Zoom sampling and export query latency
  - HTTP request latency and throughput
  - Circuit breaker state transitions
  - Cache hit/miss rates
  - Upload ledger housekeeping
  - Event bus throughput
  - WebSocket connection counts

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:4326/metrics

# Available Metrics

Ingest Metrics:
  - ingest_uploads_total: Uploads by final status (counter)
    Labels: status (completed, completed_partial, failed)
  - ingest_upload_duration_seconds: End-to-end upload time (histogram)
    Buckets: 1, 5, 10, 30, 60, 120, 300, 600
  - ingest_records_parsed_total / _saved_total / _warned_total: Record tallies (counters)
  - ingest_records_rejected_total: Dropped records (counter)
    Labels: reason (coordinate_range, timestamp_parse, time_order, ...)
  - ingest_chunk_flush_duration_seconds: Per-chunk write time (histogram)
  - ingest_chunk_retries_total / ingest_chunk_splits_total: Recovery activity (counters)
  - ingest_active_uploads: Uploads in flight (gauge)
  - ingest_last_success_timestamp: Unix timestamp of last completed upload (gauge)

Database Metrics:
  - duckdb_query_duration_seconds: Query execution time (histogram)
    Labels: operation, table
  - duckdb_query_errors_total: Failed queries (counter)
    Labels: operation, table, error_type
  - duckdb_append_flush_duration_seconds: Appender flush time (histogram)
  - duckdb_connection_pool_size: Connections in use (gauge)

Sampling and Export Metrics:
  - sample_query_duration_seconds: Map query time (histogram)
    Labels: zoom
  - sample_points_returned: Points per map response (histogram)
  - sample_cap_applied_total: Queries truncated at the row cap (counter)
  - export_requests_total: Exports by outcome (counter)
    Labels: status (success, failed)
  - export_duration_seconds: Export streaming time (histogram)
  - export_features_streamed_total: GeoJSON features written (counter)

Circuit Breaker Metrics:
  - circuit_breaker_state: Current state (gauge)
    Labels: name
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: Requests through breaker (counter)
    Labels: name, result
  - circuit_breaker_state_transitions_total: State changes (counter)
    Labels: name, from_state, to_state

Cache Metrics:
  - cache_hits_total / cache_misses_total / cache_evictions_total (counters)
    Labels: cache_type
  - cache_entries: Current entry count (gauge)
    Labels: cache_type

Event Bus Metrics:
  - event_bus_messages_published_total / _consumed_total / _processed_total (counters)
  - event_bus_messages_parse_failed_total / _poisoned_total (counters)
  - event_bus_processing_duration_seconds: Handler time (histogram)
  - event_bus_consumer_lag: Pending JetStream messages, NATS mode (gauge)

WebSocket Metrics:
  - websocket_connections: Active connections (gauge)
  - websocket_messages_sent_total / _received_total (counters)
  - websocket_errors_total (counter)
    Labels: error_type

# Usage Example

Basic setup in main.go:

	import (
	    "github.com/tomtom215/itinerarium/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	func main() {
	    // Register metrics endpoint
	    http.Handle("/metrics", promhttp.Handler())

	    // Record metrics
	    metrics.RecordAPIRequest("GET", "/api/v1/map/points", "200", 23*time.Millisecond)
	    metrics.RecordDBQuery("SELECT", "location_records", 5*time.Millisecond, nil)
	}

Recording ingest metrics from the pipeline:

	start := time.Now()
	result, err := pipeline.Process(ctx, upload)
	metrics.RecordUploadOutcome(string(result.Status), time.Since(start))
	metrics.RecordRecordOutcomes(result.Parsed, result.Saved, result.Warned)

Recording database query metrics:

	func (db *Database) Query(ctx context.Context, sql string, args ...interface{}) (*sql.Rows, error) {
	    start := time.Now()
	    rows, err := db.conn.QueryContext(ctx, sql, args...)
	    metrics.RecordDBQuery("SELECT", "location_records", time.Since(start), err)
	    return rows, err
	}

# Prometheus Configuration

Example prometheus.yml configuration:

	scrape_configs:
	  - job_name: 'itinerarium'
	    static_configs:
	      - targets: ['localhost:4326']
	    metrics_path: '/metrics'
	    scrape_interval: 15s

# Grafana Dashboards

The metrics support Grafana dashboards with panels for:

  - Upload rate and record throughput (records/sec saved)
  - Rejection rate by reason
  - Request latency (p50, p95, p99 percentiles)
  - Map query latency by zoom level
  - Database query performance (duration distribution)
  - Circuit breaker state visualization
  - Cache hit rate and efficiency

Example PromQL queries:

	# Upload throughput
	rate(ingest_records_saved_total[5m])

	# Rejection ratio
	sum(rate(ingest_records_rejected_total[5m])) / rate(ingest_records_parsed_total[5m])

	# API p95 latency
	histogram_quantile(0.95, rate(api_request_duration_seconds_bucket[5m]))

	# Cache hit rate
	sum(rate(cache_hits_total[5m])) / (sum(rate(cache_hits_total[5m])) + sum(rate(cache_misses_total[5m])))

	# Map query p95 by zoom
	histogram_quantile(0.95, sum by (zoom, le) (rate(sample_query_duration_seconds_bucket[5m])))

# Performance Impact

Metrics collection overhead:
  - Counter increment: ~100ns per operation
  - Histogram observation: ~500ns per operation
  - Memory overhead: ~5KB per metric time series
  - Total overhead: <1% CPU, <10MB RAM for typical workloads

# Thread Safety

All metric recording functions are thread-safe and designed for concurrent use
from multiple goroutines. The Prometheus client library handles synchronization
internally.

# Cardinality Management

To prevent high cardinality issues:

  - Endpoint labels are normalized (no query parameters)
  - Rejection reasons and error types are limited to predefined constants
  - Owner keys never appear as label values
  - Zoom labels are bounded (0-22)

Maximum cardinality per metric:
  - api_requests_total: ~500 series (methods x endpoints x statuses)
  - sample_query_duration_seconds: 23 series (one per zoom level)
  - ingest_records_rejected_total: ~7 series (fixed reason set)

# Alerting Rules

Example Prometheus alerting rules:

	groups:
	  - name: itinerarium
	    rules:
	      - alert: HighRejectionRate
	        expr: |
	          sum(rate(ingest_records_rejected_total[15m]))
	          /
	          sum(rate(ingest_records_parsed_total[15m]))
	          > 0.10
	        for: 15m
	        annotations:
	          summary: "More than 10% of ingested records rejected"

	      - alert: SlowMapQueries
	        expr: |
	          histogram_quantile(0.95,
	            rate(sample_query_duration_seconds_bucket[5m]))
	          > 1
	        for: 5m
	        annotations:
	          summary: "p95 map query latency: {{ $value }}s"

	      - alert: CircuitBreakerOpen
	        expr: circuit_breaker_state == 2
	        for: 2m
	        annotations:
	          summary: "Circuit breaker open for {{ $labels.name }}"

# Best Practices

When adding new metrics:

 1. Use appropriate metric types:
    - Counter: Monotonically increasing values (requests, errors)
    - Gauge: Point-in-time values (connections, queue size)
    - Histogram: Distribution of values (latency, size)

 2. Choose descriptive names:
    - Use underscore separation: ingest_upload_duration_seconds
    - Include units: _seconds, _bytes, _total
    - Follow Prometheus naming conventions

 3. Minimize cardinality:
    - Avoid high-cardinality labels (owner keys, upload IDs, timestamps)
    - Normalize endpoint paths
    - Use fixed error type constants

# See Also

  - internal/middleware: HTTP middleware with metrics integration
  - internal/database: Database metrics recording
  - internal/timeline: Ingest pipeline metrics recording
  - https://prometheus.io/docs/practices/naming/: Metric naming conventions
  - https://prometheus.io/docs/practices/instrumentation/: Instrumentation guide
*/
package metrics
