// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

// Package cache provides in-memory caching for query and stats responses.
package cache

import "time"

// Cacher defines the interface for cache implementations.
// Both Cache (TTL-based) and LFUCache implement this interface,
// allowing for easy switching between caching strategies.
//
// Usage:
//
//	c := NewCacher(CacheConfig{Policy: PolicyTTL, TTL: 60 * time.Second})
//
//	c.Set("key", value)
//	if val, ok := c.Get("key"); ok {
//	    // Use cached value
//	}
type Cacher interface {
	// Get retrieves a value from the cache.
	// Returns the value and true if found and not expired.
	Get(key string) (interface{}, bool)

	// Set stores a value in the cache with the default TTL.
	Set(key string, value interface{})

	// SetWithTTL stores a value with a custom TTL.
	SetWithTTL(key string, value interface{}, ttl time.Duration)

	// Delete removes a value from the cache.
	Delete(key string)

	// InvalidateOwner removes all entries keyed to an owner and
	// returns the number of entries removed.
	InvalidateOwner(owner string) int

	// Clear removes all entries from the cache.
	Clear()

	// GetStats returns cache statistics.
	GetStats() Stats

	// HitRate returns the cache hit rate as a percentage.
	HitRate() float64

	// Close releases background resources. Safe to call more than once.
	Close()
}

// CachePolicy selects the eviction strategy for a cache.
type CachePolicy string

const (
	// PolicyTTL is a simple TTL-based cache (default).
	// Best for: General purpose caching, when access patterns are uniform.
	PolicyTTL CachePolicy = "ttl"

	// PolicyLFU is a Least Frequently Used cache.
	// Best for: Map and stats queries with highly skewed access patterns
	// (a handful of owners and zoom levels dominate traffic).
	PolicyLFU CachePolicy = "lfu"
)

// CacheConfig holds configuration for creating a cache.
type CacheConfig struct {
	// Policy specifies the cache implementation (ttl or lfu)
	Policy CachePolicy

	// TTL is the default time-to-live for cache entries
	TTL time.Duration

	// MaxEntries is the maximum number of entries (only used for LFU)
	// Default: 1024 for LFU, unlimited for TTL
	MaxEntries int
}

// NewCacher creates a cache based on the configuration.
// This factory function allows easy switching between cache strategies.
//
// Example:
//
//	// Create TTL cache (default behavior)
//	cache := NewCacher(CacheConfig{Policy: PolicyTTL, TTL: 60 * time.Second})
//
//	// Create LFU cache for map queries
//	cache := NewCacher(CacheConfig{Policy: PolicyLFU, TTL: 60 * time.Second, MaxEntries: 1024})
func NewCacher(cfg CacheConfig) Cacher {
	if cfg.TTL <= 0 {
		cfg.TTL = 60 * time.Second
	}

	switch cfg.Policy {
	case PolicyLFU:
		maxEntries := cfg.MaxEntries
		if maxEntries <= 0 {
			maxEntries = 1024
		}
		return &lfuAdapter{LFUCache: NewLFUCache(maxEntries, cfg.TTL)}
	default:
		return New(cfg.TTL)
	}
}

// lfuAdapter adapts LFUCache to implement the Cacher interface.
// This is needed because LFUCache has slightly different method signatures.
type lfuAdapter struct {
	*LFUCache
}

// Delete implements Cacher.Delete for LFUCache.
func (a *lfuAdapter) Delete(key string) {
	a.LFUCache.Delete(key)
}

// GetStats implements Cacher.GetStats for LFUCache.
func (a *lfuAdapter) GetStats() Stats {
	hits, misses, size := a.Stats()
	return Stats{
		Hits:      hits,
		Misses:    misses,
		TotalKeys: int64(size),
	}
}

// Close implements Cacher.Close. The LFU cache expires entries lazily
// and runs no background goroutine, so there is nothing to release.
func (a *lfuAdapter) Close() {}

// Verify interface implementations at compile time
var (
	_ Cacher = (*Cache)(nil)
	_ Cacher = (*lfuAdapter)(nil)
)
