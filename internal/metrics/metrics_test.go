// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package metrics

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordDBQuery tests database query metric recording
func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		table     string
		duration  time.Duration
		err       error
	}{
		{
			name:      "successful SELECT query",
			operation: "SELECT",
			table:     "location_records",
			duration:  10 * time.Millisecond,
			err:       nil,
		},
		{
			name:      "successful INSERT query",
			operation: "INSERT",
			table:     "location_records",
			duration:  5 * time.Millisecond,
			err:       nil,
		},
		{
			name:      "failed query with short error",
			operation: "DELETE",
			table:     "location_records",
			duration:  100 * time.Millisecond,
			err:       errors.New("connection refused"),
		},
		{
			name:      "failed query with long error - should truncate to 50 chars",
			operation: "SELECT",
			table:     "location_records",
			duration:  50 * time.Millisecond,
			err:       errors.New("this is a very long error message that exceeds fifty characters and should be truncated properly"),
		},
		{
			name:      "fast query under 1ms",
			operation: "SELECT",
			table:     "location_records",
			duration:  500 * time.Microsecond,
			err:       nil,
		},
		{
			name:      "slow query over 5 seconds",
			operation: "SELECT",
			table:     "location_records",
			duration:  5500 * time.Millisecond,
			err:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Record the query - should not panic
			RecordDBQuery(tt.operation, tt.table, tt.duration, tt.err)
		})
	}
}

// TestRecordDBQuery_ErrorTruncation verifies error messages are truncated at 50 chars
func TestRecordDBQuery_ErrorTruncation(t *testing.T) {
	// Error with exactly 50 characters
	err50 := errors.New(strings.Repeat("a", 50))
	RecordDBQuery("SELECT", "test", time.Millisecond, err50)

	// Error with 51 characters - should truncate
	err51 := errors.New(strings.Repeat("b", 51))
	RecordDBQuery("SELECT", "test", time.Millisecond, err51)

	// Error with 100 characters - should truncate
	err100 := errors.New(strings.Repeat("c", 100))
	RecordDBQuery("SELECT", "test", time.Millisecond, err100)

	// Very short error
	errShort := errors.New("err")
	RecordDBQuery("SELECT", "test", time.Millisecond, errShort)
}

// TestRecordAPIRequest tests API request metric recording
func TestRecordAPIRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		endpoint   string
		statusCode string
		duration   time.Duration
	}{
		{
			name:       "successful map query",
			method:     "GET",
			endpoint:   "/api/v1/map/points",
			statusCode: "200",
			duration:   25 * time.Millisecond,
		},
		{
			name:       "successful upload",
			method:     "POST",
			endpoint:   "/api/v1/uploads",
			statusCode: "200",
			duration:   150 * time.Millisecond,
		},
		{
			name:       "payload too large",
			method:     "POST",
			endpoint:   "/api/v1/uploads",
			statusCode: "413",
			duration:   5 * time.Millisecond,
		},
		{
			name:       "not found request",
			method:     "GET",
			endpoint:   "/api/v1/unknown",
			statusCode: "404",
			duration:   2 * time.Millisecond,
		},
		{
			name:       "internal server error",
			method:     "GET",
			endpoint:   "/api/v1/export",
			statusCode: "500",
			duration:   500 * time.Millisecond,
		},
		{
			name:       "rate limited request",
			method:     "POST",
			endpoint:   "/api/v1/uploads",
			statusCode: "429",
			duration:   1 * time.Millisecond,
		},
		{
			name:       "bad request",
			method:     "GET",
			endpoint:   "/api/v1/map/points",
			statusCode: "400",
			duration:   10 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Record the request - should not panic
			RecordAPIRequest(tt.method, tt.endpoint, tt.statusCode, tt.duration)
		})
	}
}

// TestRecordUploadOutcome tests upload outcome metric recording
func TestRecordUploadOutcome(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		duration time.Duration
	}{
		{
			name:     "completed upload",
			status:   "completed",
			duration: 5 * time.Second,
		},
		{
			name:     "partial completion",
			status:   "completed_partial",
			duration: 45 * time.Second,
		},
		{
			name:     "failed upload",
			status:   "failed",
			duration: 2 * time.Second,
		},
		{
			name:     "large takeout",
			status:   "completed",
			duration: 8 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Record the outcome - should not panic
			RecordUploadOutcome(tt.status, tt.duration)
		})
	}
}

// TestRecordRecordOutcomes tests record tally recording
func TestRecordRecordOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		parsed int64
		saved  int64
		warned int64
	}{
		{"all saved", 1000, 1000, 0},
		{"some warned", 1000, 990, 12},
		{"empty upload", 0, 0, 0},
		{"large takeout", 250000, 249800, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordRecordOutcomes(tt.parsed, tt.saved, tt.warned)
		})
	}
}

// TestRecordRejection tests rejection reason recording
func TestRecordRejection(t *testing.T) {
	reasons := []string{
		"coordinate_range",
		"timestamp_parse",
		"time_order",
		"missing_owner",
		"distance_range",
		"probability_range",
		"structure",
	}

	for _, reason := range reasons {
		t.Run("reason_"+reason, func(t *testing.T) {
			RecordRejection(reason)
			RecordRejection(reason)
		})
	}
}

// TestRecordChunkFlush tests chunk flush metric recording
func TestRecordChunkFlush(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		size     int
		retried  bool
	}{
		{"full chunk", 20 * time.Millisecond, 1000, false},
		{"tail chunk", 5 * time.Millisecond, 137, false},
		{"retried chunk", 150 * time.Millisecond, 1000, true},
		{"single record", time.Millisecond, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordChunkFlush(tt.duration, tt.size, tt.retried)
		})
	}
}

// TestIngestRecoveryCounters tests split, overflow, duplicate, and admission counters
func TestIngestRecoveryCounters(t *testing.T) {
	RecordChunkSplit()
	RecordChunkSplit()
	RecordErrorListOverflow()
	RecordDuplicateUpload()
	RecordAdmissionRejection()
}

// TestTrackActiveRequest tests active request tracking
func TestTrackActiveRequest(t *testing.T) {
	tests := []struct {
		name string
		inc  bool
	}{
		{
			name: "increment active request",
			inc:  true,
		},
		{
			name: "decrement active request",
			inc:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Track active request - should not panic
			TrackActiveRequest(tt.inc)
		})
	}
}

// TestTrackActiveUpload_UploadLifecycle simulates realistic upload lifecycle
func TestTrackActiveUpload_UploadLifecycle(t *testing.T) {
	// Simulate multiple concurrent uploads
	for i := 0; i < 4; i++ {
		TrackActiveUpload(true) // Upload starts
	}

	// Some uploads complete
	for i := 0; i < 2; i++ {
		TrackActiveUpload(false) // Upload ends
	}

	// More uploads start
	for i := 0; i < 3; i++ {
		TrackActiveUpload(true)
	}

	// All remaining complete
	for i := 0; i < 5; i++ {
		TrackActiveUpload(false)
	}
}

// TestRecordSampleQuery tests map query metric recording
func TestRecordSampleQuery(t *testing.T) {
	tests := []struct {
		name     string
		zoom     int
		duration time.Duration
		points   int
		capped   bool
	}{
		{"world view", 3, 50 * time.Millisecond, 4200, false},
		{"city view", 12, 120 * time.Millisecond, 35000, false},
		{"street view", 17, 200 * time.Millisecond, 80000, false},
		{"capped result", 16, 450 * time.Millisecond, 100000, true},
		{"empty result", 10, 5 * time.Millisecond, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordSampleQuery(tt.zoom, tt.duration, tt.points, tt.capped)
		})
	}
}

// TestRecordExport tests export metric recording and error classification
func TestRecordExport(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		features int64
		err      error
	}{
		{
			name:     "successful export - small",
			duration: 2 * time.Second,
			features: 1500,
			err:      nil,
		},
		{
			name:     "successful export - full history",
			duration: 90 * time.Second,
			features: 500000,
			err:      nil,
		},
		{
			name:     "database error",
			duration: 5 * time.Second,
			features: 1200,
			err:      errors.New("database query failed"),
		},
		{
			name:     "encode error",
			duration: 10 * time.Second,
			features: 8000,
			err:      errors.New("encode feature: broken pipe on write"),
		},
		{
			name:     "canceled export",
			duration: 30 * time.Second,
			features: 250000,
			err:      errors.New("context canceled"),
		},
		{
			name:     "unknown error type",
			duration: time.Second,
			features: 0,
			err:      errors.New("something unexpected happened"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Record the export - should not panic
			RecordExport(tt.duration, tt.features, tt.err)
		})
	}
}

// TestRecordLedgerGC tests ledger GC metric recording
func TestRecordLedgerGC(t *testing.T) {
	results := []string{"reclaimed", "noop", "error"}

	for _, result := range results {
		t.Run("result_"+result, func(t *testing.T) {
			RecordLedgerGC(result, 50*time.Millisecond)
		})
	}

	UpdateLedgerEntries(0)
	UpdateLedgerEntries(1200)
}

// TestBusMetrics tests event bus metric recording
func TestBusMetrics(t *testing.T) {
	for i := 0; i < 10; i++ {
		RecordBusPublish()
		RecordBusConsume()
		RecordBusProcessed()
	}

	RecordBusParseFailed()
	RecordBusPoisoned()
	RecordBusProcessingDuration(5 * time.Millisecond)

	UpdateBusQueueDepth(0)
	UpdateBusQueueDepth(42)
	UpdateBusConsumerLag(7)
	UpdateBusConsumerLag(0)
}

// TestCacheMetricLabels exercises the cache metric label sets
func TestCacheMetricLabels(t *testing.T) {
	cacheTypes := []string{"query", "stats"}

	for _, cacheType := range cacheTypes {
		CacheHits.WithLabelValues(cacheType).Add(100)
		CacheMisses.WithLabelValues(cacheType).Add(20)
		CacheSize.WithLabelValues(cacheType).Set(50)
		CacheEvictions.WithLabelValues(cacheType).Add(5)
	}
}

// TestDBConnectionPoolSize tests connection pool size gauge
func TestDBConnectionPoolSize(t *testing.T) {
	DBConnectionPoolSize.Set(1)
	DBConnectionPoolSize.Inc()
	DBConnectionPoolSize.Set(5)
	DBConnectionPoolSize.Dec()
}

// TestCircuitBreakerMetricLabels exercises the breaker metric label sets
func TestCircuitBreakerMetricLabels(t *testing.T) {
	CircuitBreakerState.WithLabelValues("bulk-loader").Set(0)
	CircuitBreakerState.WithLabelValues("bulk-loader").Set(2)
	CircuitBreakerRequests.WithLabelValues("bulk-loader", "success").Inc()
	CircuitBreakerRequests.WithLabelValues("bulk-loader", "failure").Inc()
	CircuitBreakerRequests.WithLabelValues("bulk-loader", "rejected").Inc()
	CircuitBreakerConsecutiveFailures.WithLabelValues("bulk-loader").Set(3)
	CircuitBreakerTransitions.WithLabelValues("bulk-loader", "closed", "open").Inc()
}

// TestMetricsRegistration verifies all metrics are properly registered
func TestMetricsRegistration(t *testing.T) {
	// Test that all metrics can be collected without panic
	metrics := []prometheus.Collector{
		DBQueryDuration,
		DBQueryErrors,
		DBConnectionPoolSize,
		DBAppendFlushDuration,
		DBCheckpointDuration,
		IngestUploadsTotal,
		IngestUploadDuration,
		IngestActiveUploads,
		IngestBytesReceived,
		IngestRecordsParsed,
		IngestRecordsSaved,
		IngestRecordsWarned,
		IngestRecordsRejected,
		IngestChunkFlushDuration,
		IngestChunkSize,
		IngestChunkRetries,
		IngestChunkSplits,
		IngestErrorListOverflows,
		IngestDuplicateUploads,
		IngestAdmissionRejections,
		IngestLastSuccess,
		SampleQueryDuration,
		SamplePointsReturned,
		SampleCapApplied,
		ExportsTotal,
		ExportDuration,
		ExportFeaturesStreamed,
		ExportErrors,
		CacheHits,
		CacheMisses,
		CacheSize,
		CacheEvictions,
		LedgerEntries,
		LedgerGCRuns,
		LedgerGCDuration,
		APIRequestsTotal,
		APIRequestDuration,
		APIActiveRequests,
		APIRateLimitHits,
		WSConnections,
		WSMessagesSent,
		WSMessagesReceived,
		WSErrors,
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerConsecutiveFailures,
		CircuitBreakerTransitions,
		BusMessagesPublished,
		BusMessagesConsumed,
		BusMessagesProcessed,
		BusMessagesParseFailed,
		BusMessagesPoisoned,
		BusProcessingDuration,
		BusQueueDepth,
		BusConsumerLag,
		AppInfo,
		AppUptime,
	}

	// Verify each metric can be described
	for _, m := range metrics {
		ch := make(chan *prometheus.Desc, 10)
		m.Describe(ch)
		close(ch)

		// Should have at least one descriptor
		count := 0
		for range ch {
			count++
		}
		if count == 0 {
			t.Errorf("Metric has no descriptors")
		}
	}
}

// TestMetricGathering tests that metrics can be gathered using testutil
func TestMetricGathering(t *testing.T) {
	// Record some metrics
	RecordDBQuery("TEST", "test_table", time.Millisecond, nil)
	RecordAPIRequest("GET", "/test", "200", time.Millisecond)

	// Verify we can lint the metrics (checks for consistency issues)
	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("Lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s", p.Text)
	}
}

// TestIngestMetricsConcurrent tests ingest metrics under concurrent access
func TestIngestMetricsConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	numGoroutines := 10
	operationsPerGoroutine := 100

	// Test concurrent upload recording
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < operationsPerGoroutine; j++ {
				RecordUploadOutcome("completed", time.Duration(j)*time.Millisecond)
				RecordRecordOutcomes(100, 98, 1)
			}
		}(i)
	}

	// Test concurrent chunk recording
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < operationsPerGoroutine; j++ {
				if j%2 == 0 {
					RecordChunkFlush(10*time.Millisecond, 1000, false)
				} else {
					RecordRejection("coordinate_range")
				}
			}
		}(i)
	}

	// Test concurrent active-upload tracking
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < operationsPerGoroutine; j++ {
				TrackActiveUpload(true)
				TrackActiveUpload(false)
			}
		}(i)
	}

	wg.Wait()
}

// TestSampleQueryLabels verifies sample metrics carry a zoom label per level
func TestSampleQueryLabels(t *testing.T) {
	for zoom := 0; zoom <= 22; zoom++ {
		SampleQueryDuration.WithLabelValues(strconv.Itoa(zoom)).Observe(0.05)
	}
}

// TestExportErrorClassification tests export error type classification
func TestExportErrorClassification(t *testing.T) {
	tests := []struct {
		name         string
		errMsg       string
		expectedType string
	}{
		{"database error", "database connection refused", "database"},
		{"duckdb error", "duckdb appender flush failed", "database"},
		{"write error", "write tcp: broken pipe", "encode"},
		{"canceled", "context canceled", "canceled"},
		{"deadline", "context deadline exceeded", "canceled"},
		{"unknown error", "unexpected condition", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.New(tt.errMsg)
			RecordExport(time.Second, 100, err)
			// Verifies no panic and error is recorded
		})
	}
}

// Benchmark tests for metrics performance

func BenchmarkRecordDBQuery(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordDBQuery("SELECT", "location_records", 10*time.Millisecond, nil)
	}
}

func BenchmarkRecordDBQueryWithError(b *testing.B) {
	err := errors.New("connection refused")
	for i := 0; i < b.N; i++ {
		RecordDBQuery("SELECT", "location_records", 10*time.Millisecond, err)
	}
}

func BenchmarkRecordAPIRequest(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordAPIRequest("GET", "/api/v1/map/points", "200", 25*time.Millisecond)
	}
}

func BenchmarkRecordChunkFlush(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordChunkFlush(10*time.Millisecond, 1000, false)
	}
}

func BenchmarkRecordRejection(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordRejection("coordinate_range")
	}
}

func BenchmarkTrackActiveRequest(b *testing.B) {
	for i := 0; i < b.N; i++ {
		TrackActiveRequest(true)
		TrackActiveRequest(false)
	}
}
