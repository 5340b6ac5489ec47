// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package timeline

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ownerLimiterCleanupEvery = 10 * time.Minute
	ownerLimiterStaleAfter   = time.Hour
)

// ownerRateLimiter admits uploads per owner with automatic cleanup of idle
// owners. An upload holds a pipeline slot for its whole run, so admission
// is checked before any stream bytes are read.
type ownerRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ownerLimiterEntry
	rate     rate.Limit
	burst    int
	stop     chan struct{}
}

type ownerLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newOwnerRateLimiter(uploadsPerMin, burst int) *ownerRateLimiter {
	if uploadsPerMin <= 0 {
		uploadsPerMin = 6
	}
	if burst <= 0 {
		burst = 2
	}
	rl := &ownerRateLimiter{
		limiters: make(map[string]*ownerLimiterEntry),
		rate:     rate.Every(time.Minute / time.Duration(uploadsPerMin)),
		burst:    burst,
		stop:     make(chan struct{}),
	}
	go rl.cleanupLoop(ownerLimiterCleanupEvery)
	return rl
}

// Allow reports whether one more upload from owner is admitted now.
func (rl *ownerRateLimiter) Allow(owner string) bool {
	rl.mu.Lock()
	entry, exists := rl.limiters[owner]
	if !exists {
		entry = &ownerLimiterEntry{
			limiter:    rate.NewLimiter(rl.rate, rl.burst),
			lastAccess: time.Now(),
		}
		rl.limiters[owner] = entry
	} else {
		entry.lastAccess = time.Now()
	}
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.Allow()
}

func (rl *ownerRateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *ownerRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := time.Now().Add(-ownerLimiterStaleAfter)
	for owner, entry := range rl.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(rl.limiters, owner)
		}
	}
}

// Stop ends the cleanup goroutine.
func (rl *ownerRateLimiter) Stop() {
	close(rl.stop)
}
