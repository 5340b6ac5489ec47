// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

/*
Package cache provides thread-safe in-memory caching for query responses.

This package implements the caching layer for map and statistics endpoints,
reducing DuckDB load and improving response times for repeated viewport and
summary queries.

# Overview

The cache provides:
  - Thread-safe concurrent access (sync.RWMutex)
  - Time-to-live (TTL) expiration with a background janitor
  - Two eviction policies: plain TTL and LFU (least frequently used)
  - Owner-scoped invalidation without storing raw owner keys
  - Deterministic cache key generation from request parameters

# Use Cases

Primary use cases:
  - Map viewport responses (keyed by owner, zoom, bounds, time range)
  - Statistics summaries (keyed by owner and time range)
  - Owner and format listings (small, slow-changing)

# Choosing a Policy

Two implementations satisfy the Cacher interface:

	Cache     TTL-only, unbounded entry count, periodic janitor sweep.
	          Suits small key spaces (stats, listings).

	LFUCache  Frequency-based eviction with a fixed capacity, O(1)
	          operations, lazy expiration. Suits map query caching
	          where a handful of owners and zoom levels dominate
	          traffic and should stay resident.

The NewCacher factory selects by policy name:

	c := cache.NewCacher(cache.CacheConfig{
	    Policy:     cache.PolicyLFU,
	    TTL:        60 * time.Second,
	    MaxEntries: 1024,
	})
	defer c.Close()

# Cache Keys

GenerateKey builds keys of the form "scope:ownerDigest:paramsDigest":

	key := cache.GenerateKey("map", req.Owner, req)
	// "map:9f86d081884c7d65:2c26b46b68ffc68ff99b453c1d304134"

The owner segment is a truncated SHA-256 digest, so raw owner keys never
appear in cache keys (they otherwise show up in debug dumps and heap
profiles). The params segment is a digest of the JSON-encoded request, so
any two requests with identical parameters share an entry.

# Usage Example

API handler caching pattern:

	func (h *Handler) GetMapPoints(w http.ResponseWriter, r *http.Request) {
	    req := parseMapRequest(r)
	    key := cache.GenerateKey("map", req.Owner, req)

	    if cached, ok := h.cache.Get(key); ok {
	        metrics.CacheHits.WithLabelValues("query").Inc()
	        h.writeJSON(w, http.StatusOK, cached)
	        return
	    }
	    metrics.CacheMisses.WithLabelValues("query").Inc()

	    points, err := h.db.SamplePoints(r.Context(), req)
	    if err != nil {
	        h.writeError(w, http.StatusInternalServerError, "DATABASE_ERROR", err.Error())
	        return
	    }

	    h.cache.Set(key, points)
	    h.writeJSON(w, http.StatusOK, points)
	}

# Cache Invalidation

Three invalidation paths:

1. TTL expiration (automatic):
  - Entries expire after the configured TTL
  - Checked lazily during Get operations
  - The TTL cache also sweeps expired entries every 5 minutes

2. Owner invalidation (on upload completion):
  - InvalidateOwner(owner) removes every entry for one owner across
    all scopes, leaving other owners' entries warm
  - Wired to upload-completed events so a finished ingest immediately
    refreshes that owner's map and stats

3. Manual invalidation:
  - Delete(key) removes a specific entry
  - Clear() removes everything

Example from the upload completion handler:

	func (h *uploadEventHandler) onCompleted(evt events.UploadCompleted) {
	    removed := h.cache.InvalidateOwner(evt.Owner)
	    log.Debug().Str("upload_id", evt.UploadID).
	        Int("cache_entries_removed", removed).
	        Msg("Invalidated owner cache after upload")
	}

# TTL Configuration

Recommended TTL values by use case:

	Map viewport queries: 60 seconds
	  - Invalidated on upload completion anyway
	  - Short TTL bounds staleness from concurrent ingests

	Statistics summaries: 60 seconds
	  - Same invalidation path as map queries

	Owner and format listings: 10 minutes
	  - Change only when a new owner's first upload lands

# Monitoring

Both implementations track hits and misses. HitRate returns a percentage:

	if c.HitRate() < 50.0 {
	    // Cache hit rate too low
	    // Consider increasing TTL or reviewing cache keys
	}

The API layer exports hit and miss counts through the metrics package
(itinerarium_cache_hits_total, itinerarium_cache_misses_total) labeled by
cache type.

# Thread Safety

All methods on both implementations are safe for concurrent use. The TTL
cache uses sync.RWMutex with a separate mutex for statistics; the LFU
cache takes its write lock on Get as well, since a hit mutates frequency
lists.

# Limitations

Intentional limitations for the application's scale:

  - In-memory only, no persistence across restarts
  - Single instance, no distributed invalidation
  - The TTL policy has no size bound (use LFU where growth is a concern)

These are acceptable for a single-binary deployment where the cache
rebuilds from DuckDB within one TTL window after a restart.

# See Also

  - internal/api: API handlers that use caching
  - internal/events: upload completion events that drive invalidation
  - internal/database: database layer cached by this package
*/
package cache
