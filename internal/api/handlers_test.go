// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package api

import (
	"testing"
	"time"

	"github.com/tomtom215/itinerarium/internal/config"
	"github.com/tomtom215/itinerarium/internal/middleware"
)

func TestGetCacheStats(t *testing.T) {
	h := NewHandler(testConfig(), nil, nil, nil, nil, nil, nil)
	t.Cleanup(h.Close)

	h.cache.Set("stats::", 1)
	h.cache.Set("map:alice:8", 2)
	h.cache.Get("stats::")
	h.cache.Get("missing")

	stats := h.GetCacheStats()
	if stats.TotalKeys != 2 {
		t.Errorf("TotalKeys = %d, want 2", stats.TotalKeys)
	}
	if stats.Hits != 1 {
		t.Errorf("Hits = %d, want 1", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
}

func TestGetCacheStatsCacheDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Cache = config.CacheConfig{Enabled: false}
	h := NewHandler(cfg, nil, nil, nil, nil, nil, nil)
	t.Cleanup(h.Close)

	stats := h.GetCacheStats()
	if stats.TotalKeys != 0 || stats.Hits != 0 {
		t.Errorf("Expected zero stats without a cache, got %+v", stats)
	}
}

func TestGetPerformanceStats(t *testing.T) {
	h := NewHandler(testConfig(), nil, nil, nil, nil, nil, nil)
	t.Cleanup(h.Close)

	for _, d := range []int64{12, 48} {
		h.perfMon.RecordRequest(&middleware.RequestMetrics{
			Path: "/api/v1/stats", Method: "GET",
			DurationMS: d, StatusCode: 200, Timestamp: time.Now(),
		})
	}

	stats := h.GetPerformanceStats()
	if len(stats) != 1 {
		t.Fatalf("Expected one endpoint entry, got %d", len(stats))
	}
	if stats[0].RequestCount != 2 {
		t.Errorf("RequestCount = %d, want 2", stats[0].RequestCount)
	}
	if stats[0].MaxDuration != 48 {
		t.Errorf("MaxDuration = %d, want 48", stats[0].MaxDuration)
	}
}
