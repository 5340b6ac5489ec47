// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// cleanupInterval is how often the background janitor sweeps expired entries.
const cleanupInterval = 5 * time.Minute

// Entry represents a cached item with expiration
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Stats tracks cache performance counters. The struct is a plain value;
// GetStats returns a snapshot that is safe to read and copy freely.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// Cache provides a thread-safe in-memory cache with TTL support
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration

	stop      chan struct{}
	closeOnce sync.Once

	statsMu sync.Mutex
	stats   Stats
}

// New creates a new thread-safe in-memory cache with automatic expiration.
//
// This constructor initializes a cache with the specified time-to-live (TTL)
// for all entries. It starts a background janitor goroutine that sweeps
// expired entries every 5 minutes; call Close to stop it.
//
// Parameters:
//   - ttl: Default expiration duration for cache entries (e.g., 60 * time.Second)
//
// Thread Safety:
//   - Safe for concurrent access from multiple goroutines
//   - Uses sync.RWMutex for read/write locking
//
// Performance:
//   - O(1) lookups with Go map
//   - Janitor runs every 5 minutes (minimal overhead)
//   - Tracks hit rate, misses, evictions for monitoring
//
// Example:
//
//	cache := cache.New(60 * time.Second)
//	defer cache.Close()
//	cache.Set("key", value)
//	if data, ok := cache.Get("key"); ok {
//	    // Use cached data
//	}
func New(ttl time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		stop:    make(chan struct{}),
		stats: Stats{
			LastCleanup: time.Now(),
		},
	}

	go c.cleanupLoop()

	return c
}

// Get retrieves a value from the cache by key with automatic expiration checking.
//
// Behavior:
//   - Returns (nil, false) if key doesn't exist
//   - Returns (nil, false) if entry has expired (entry is deleted)
//   - Returns (data, true) if entry is valid
//
// Statistics:
//   - Increments Hits counter on successful retrieval
//   - Increments Misses counter on miss or expiration
//   - Increments Evictions counter when removing expired entry
//
// Example:
//
//	if data, ok := cache.Get(key); ok {
//	    return data.(*models.StatsResponse), nil
//	}
//	// Cache miss, query the database
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordMiss()
		return nil, false
	}

	// Check if entry has expired
	if time.Now().After(entry.ExpiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		c.recordMiss()
		c.recordEviction()
		return nil, false
	}

	c.recordHit()
	return entry.Data, true
}

// Set stores a value in the cache with the default TTL configured at creation.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value in the cache with a custom TTL
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = Entry{
		Data:      value,
		ExpiresAt: time.Now().Add(ttl),
	}
	total := int64(len(c.entries))
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.TotalKeys = total
	c.statsMu.Unlock()
}

// Delete removes a specific cache entry by key.
//
// No-op if the key doesn't exist. Increments the Evictions counter
// regardless of existence; TotalKeys is refreshed on the next Set or sweep.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	c.recordEviction()
}

// InvalidateOwner removes all entries belonging to an owner and returns
// the number of entries removed.
//
// Keys built with GenerateKey embed a fixed-width owner digest as their
// second segment, so invalidation works across scopes: completing an
// upload for "alice" drops her cached map, export, and stats responses
// in one call while other owners' entries stay warm.
//
// Example:
//
//	// After an upload lands for this owner
//	n := cache.InvalidateOwner(upload.OwnerKey)
//	log.Debug().Int("entries", n).Msg("cache invalidated")
func (c *Cache) InvalidateOwner(owner string) int {
	segment := ownerSegment(owner)

	c.mu.Lock()
	removed := 0
	for key := range c.entries {
		if keyOwnerSegment(key) == segment {
			delete(c.entries, key)
			removed++
		}
	}
	total := int64(len(c.entries))
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.Evictions += int64(removed)
	c.stats.TotalKeys = total
	c.statsMu.Unlock()

	return removed
}

// Clear removes all entries from the cache in a single atomic operation.
//
// Performance: O(1) operation (map replacement, not per-entry deletion).
func (c *Cache) Clear() {
	c.mu.Lock()
	evictions := int64(len(c.entries))
	c.entries = make(map[string]Entry)
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.Evictions += evictions
	c.stats.TotalKeys = 0
	c.statsMu.Unlock()
}

// Close stops the background janitor goroutine. Safe to call more than once.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
}

// GetStats returns a snapshot of current cache performance statistics.
func (c *Cache) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// HitRate returns the cache hit rate as a percentage
func (c *Cache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// cleanupLoop periodically removes expired entries until Close is called
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup removes all expired entries
func (c *Cache) cleanup() {
	now := time.Now()
	c.mu.Lock()
	evictions := int64(0)
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			evictions++
		}
	}
	total := int64(len(c.entries))
	c.mu.Unlock()

	c.statsMu.Lock()
	c.stats.Evictions += evictions
	c.stats.TotalKeys = total
	c.stats.LastCleanup = now
	c.statsMu.Unlock()
}

// recordHit increments the hit counter
func (c *Cache) recordHit() {
	c.statsMu.Lock()
	c.stats.Hits++
	c.statsMu.Unlock()
}

// recordMiss increments the miss counter
func (c *Cache) recordMiss() {
	c.statsMu.Lock()
	c.stats.Misses++
	c.statsMu.Unlock()
}

// recordEviction increments the eviction counter
func (c *Cache) recordEviction() {
	c.statsMu.Lock()
	c.stats.Evictions++
	c.statsMu.Unlock()
}

// GenerateKey builds a cache key of the form "scope:ownerDigest:paramsDigest".
//
// The scope names the query family ("map_points", "stats"), the owner digest
// is a fixed-width hash of the owner key (never the raw identifier, which
// keeps owner keys out of debug output), and the params digest hashes the
// JSON encoding of the remaining query parameters.
func GenerateKey(scope, owner string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		// Fallback to the fmt rendering of the params
		data = []byte(fmt.Sprintf("%v", params))
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s:%x", scope, ownerSegment(owner), hash[:16])
}

// ownerSegment returns the fixed-width digest used as the owner portion
// of cache keys.
func ownerSegment(owner string) string {
	sum := sha256.Sum256([]byte(owner))
	return fmt.Sprintf("%x", sum[:8])
}

// keyOwnerSegment extracts the owner digest from a key built by
// GenerateKey. Returns "" for keys in any other format.
func keyOwnerSegment(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}
