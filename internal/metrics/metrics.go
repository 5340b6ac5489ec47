// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides comprehensive instrumentation for:
// - Database query performance (DuckDB)
// - Ingest pipeline throughput and record outcomes
// - Zoom sampling and export query performance
// - API endpoint latency and throughput
// - Cache efficiency
// - Upload ledger housekeeping
// - Event bus throughput
// - WebSocket connections

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets, // 0.005s, 0.01s, 0.025s, 0.05s, 0.1s, 0.25s, 0.5s, 1s, 2.5s, 5s, 10s
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	DBConnectionPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "duckdb_connection_pool_size",
			Help: "Current number of database connections in use",
		},
	)

	DBAppendFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckdb_append_flush_duration_seconds",
			Help:    "Duration of DuckDB appender flushes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DBCheckpointDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckdb_checkpoint_duration_seconds",
			Help:    "Duration of DuckDB checkpoint operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Ingest Pipeline Metrics
	IngestUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_uploads_total",
			Help: "Total number of uploads by final status",
		},
		[]string{"status"}, // "completed", "completed_partial", "failed"
	)

	IngestUploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_upload_duration_seconds",
			Help:    "End-to-end duration of upload processing in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600}, // Large takeouts can take minutes
		},
	)

	IngestActiveUploads = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_active_uploads",
			Help: "Current number of uploads being processed",
		},
	)

	IngestBytesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_bytes_received_total",
			Help: "Total bytes of upload payloads accepted for processing",
		},
	)

	IngestRecordsParsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_records_parsed_total",
			Help: "Total number of raw entries decoded from uploads",
		},
	)

	IngestRecordsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_records_saved_total",
			Help: "Total number of records written to the database",
		},
	)

	IngestRecordsWarned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_records_warned_total",
			Help: "Total number of records kept with warnings (e.g. missing coordinates)",
		},
	)

	IngestRecordsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_records_rejected_total",
			Help: "Total number of records dropped during validation",
		},
		[]string{"reason"}, // "coordinate_range", "timestamp_parse", "time_order", "missing_owner", "distance_range", "probability_range", "structure"
	)

	IngestChunkFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_chunk_flush_duration_seconds",
			Help:    "Duration of per-chunk database writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	IngestChunkSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_chunk_size",
			Help:    "Number of records in flushed chunks",
			Buckets: []float64{10, 50, 100, 250, 500, 1000},
		},
	)

	IngestChunkRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_chunk_retries_total",
			Help: "Total number of chunk writes retried after transient errors",
		},
	)

	IngestChunkSplits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_chunk_splits_total",
			Help: "Total number of chunk bisections while isolating bad records",
		},
	)

	IngestErrorListOverflows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_error_list_overflows_total",
			Help: "Total number of uploads whose error list hit the reporting cap",
		},
	)

	IngestDuplicateUploads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_duplicate_uploads_total",
			Help: "Total number of uploads answered from the ledger by content hash",
		},
	)

	IngestAdmissionRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_admission_rejections_total",
			Help: "Total number of uploads refused by per-owner admission control",
		},
	)

	IngestLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_last_success_timestamp",
			Help: "Unix timestamp of last successfully completed upload",
		},
	)

	// Zoom Sampling Metrics
	SampleQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sample_query_duration_seconds",
			Help:    "Duration of zoom-sampled map queries in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, // Optimized for API latency
		},
		[]string{"zoom"},
	)

	SamplePointsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sample_points_returned",
			Help:    "Number of points returned per map query",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 25000, 50000, 100000},
		},
	)

	SampleCapApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sample_cap_applied_total",
			Help: "Total number of map queries truncated at the row cap",
		},
	)

	// Export Metrics
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_requests_total",
			Help: "Total number of export requests by outcome",
		},
		[]string{"status"}, // "success", "failed"
	)

	ExportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "export_duration_seconds",
			Help:    "Duration of GeoJSON export streaming in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600}, // Full-history exports can take minutes
		},
	)

	ExportFeaturesStreamed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "export_features_streamed_total",
			Help: "Total number of GeoJSON features written to export streams",
		},
	)

	ExportErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_errors_total",
			Help: "Total number of export errors",
		},
		[]string{"error_type"}, // "database", "encode", "canceled", "other"
	)

	// Cache Metrics (General)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "query", "stats"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry or capacity)",
		},
		[]string{"cache_type"},
	)

	// Upload Ledger Metrics
	LedgerEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_entries",
			Help: "Current number of upload records tracked in the ledger",
		},
	)

	LedgerGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_gc_runs_total",
			Help: "Total number of ledger value-log GC runs by result",
		},
		[]string{"result"}, // "reclaimed", "noop", "error"
	)

	LedgerGCDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_gc_duration_seconds",
			Help:    "Duration of ledger GC runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, // Optimized for API latency
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Event Bus Metrics
	BusMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_bus_messages_published_total",
			Help: "Total number of messages published to the event bus",
		},
	)

	BusMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_bus_messages_consumed_total",
			Help: "Total number of messages consumed from the event bus",
		},
	)

	BusMessagesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_bus_messages_processed_total",
			Help: "Total number of messages successfully processed",
		},
	)

	BusMessagesParseFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_bus_messages_parse_failed_total",
			Help: "Total number of messages that failed to parse",
		},
	)

	BusMessagesPoisoned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_bus_messages_poisoned_total",
			Help: "Total number of messages routed to the poison queue",
		},
	)

	BusProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "event_bus_processing_duration_seconds",
			Help:    "Duration of event handler executions in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BusQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "event_bus_queue_depth",
			Help: "Current depth of the event bus message queue",
		},
	)

	BusConsumerLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "event_bus_consumer_lag",
			Help: "Number of pending messages in the JetStream consumer (NATS mode)",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// TrackActiveUpload tracks uploads currently moving through the pipeline
func TrackActiveUpload(inc bool) {
	if inc {
		IngestActiveUploads.Inc()
	} else {
		IngestActiveUploads.Dec()
	}
}

// RecordUploadOutcome records the terminal status and duration of an upload.
// Partial completions still count as successes for the freshness gauge:
// data landed, even if some records were dropped.
func RecordUploadOutcome(status string, duration time.Duration) {
	IngestUploadsTotal.WithLabelValues(status).Inc()
	IngestUploadDuration.Observe(duration.Seconds())
	if status == "completed" || status == "completed_partial" {
		IngestLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordRecordOutcomes adds per-upload record tallies to the running counters
func RecordRecordOutcomes(parsed, saved, warned int64) {
	IngestRecordsParsed.Add(float64(parsed))
	IngestRecordsSaved.Add(float64(saved))
	IngestRecordsWarned.Add(float64(warned))
}

// RecordRejection records a dropped record by rejection reason
func RecordRejection(reason string) {
	IngestRecordsRejected.WithLabelValues(reason).Inc()
}

// RecordChunkFlush records a chunk write, its size, and whether it was a retry
func RecordChunkFlush(duration time.Duration, size int, retried bool) {
	IngestChunkFlushDuration.Observe(duration.Seconds())
	IngestChunkSize.Observe(float64(size))
	if retried {
		IngestChunkRetries.Inc()
	}
}

// RecordChunkSplit records a chunk bisection during bad-record isolation
func RecordChunkSplit() {
	IngestChunkSplits.Inc()
}

// RecordErrorListOverflow records an upload whose error list hit the cap
func RecordErrorListOverflow() {
	IngestErrorListOverflows.Inc()
}

// RecordDuplicateUpload records an upload short-circuited by content hash
func RecordDuplicateUpload() {
	IngestDuplicateUploads.Inc()
}

// RecordAdmissionRejection records an upload refused by per-owner rate limiting
func RecordAdmissionRejection() {
	IngestAdmissionRejections.Inc()
}

// RecordSampleQuery records a zoom-sampled map query
func RecordSampleQuery(zoom int, duration time.Duration, points int, capped bool) {
	SampleQueryDuration.WithLabelValues(strconv.Itoa(zoom)).Observe(duration.Seconds())
	SamplePointsReturned.Observe(float64(points))
	if capped {
		SampleCapApplied.Inc()
	}
}

// RecordExport records an export operation metric
func RecordExport(duration time.Duration, features int64, err error) {
	ExportDuration.Observe(duration.Seconds())
	ExportFeaturesStreamed.Add(float64(features))
	if err != nil {
		ExportsTotal.WithLabelValues("failed").Inc()
		errorType := "other"
		errorMsg := err.Error()
		switch {
		case strings.Contains(errorMsg, "context canceled"), strings.Contains(errorMsg, "deadline exceeded"):
			errorType = "canceled"
		case strings.Contains(errorMsg, "database"), strings.Contains(errorMsg, "duckdb"):
			errorType = "database"
		case strings.Contains(errorMsg, "encode"), strings.Contains(errorMsg, "write"):
			errorType = "encode"
		}
		ExportErrors.WithLabelValues(errorType).Inc()
	} else {
		ExportsTotal.WithLabelValues("success").Inc()
	}
}

// RecordLedgerGC records a ledger garbage collection run
func RecordLedgerGC(result string, duration time.Duration) {
	LedgerGCRuns.WithLabelValues(result).Inc()
	LedgerGCDuration.Observe(duration.Seconds())
}

// UpdateLedgerEntries updates the ledger entry count gauge
func UpdateLedgerEntries(count int64) {
	LedgerEntries.Set(float64(count))
}

// RecordBusPublish records a message being published to the event bus
func RecordBusPublish() {
	BusMessagesPublished.Inc()
}

// RecordBusConsume records a message being consumed from the event bus
func RecordBusConsume() {
	BusMessagesConsumed.Inc()
}

// RecordBusProcessed records a message being successfully processed
func RecordBusProcessed() {
	BusMessagesProcessed.Inc()
}

// RecordBusParseFailed records a message that failed to parse
func RecordBusParseFailed() {
	BusMessagesParseFailed.Inc()
}

// RecordBusPoisoned records a message routed to the poison queue
func RecordBusPoisoned() {
	BusMessagesPoisoned.Inc()
}

// RecordBusProcessingDuration records the duration of event handling
func RecordBusProcessingDuration(duration time.Duration) {
	BusProcessingDuration.Observe(duration.Seconds())
}

// UpdateBusQueueDepth updates the event bus queue depth gauge
func UpdateBusQueueDepth(depth int64) {
	BusQueueDepth.Set(float64(depth))
}

// UpdateBusConsumerLag updates the JetStream consumer lag gauge
func UpdateBusConsumerLag(lag int64) {
	BusConsumerLag.Set(float64(lag))
}
