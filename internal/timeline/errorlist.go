// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package timeline

import (
	"fmt"
	"sync"

	"github.com/tomtom215/itinerarium/internal/metrics"
)

// ErrorList accumulates per-upload error strings up to a fixed cap. A
// malformed million-record file must not grow an upload ledger entry without
// bound; once the cap is hit the list keeps a single overflow marker and a
// count of what was dropped.
//
// Safe for concurrent use; the validate and load stages append from
// different goroutines.
type ErrorList struct {
	mu      sync.Mutex
	cap     int
	entries []string
	dropped int64
}

// NewErrorList builds a list bounded at capacity entries. Non-positive
// capacities fall back to 50.
func NewErrorList(capacity int) *ErrorList {
	if capacity <= 0 {
		capacity = 50
	}
	return &ErrorList{cap: capacity}
}

// Add appends one error string, or counts it as dropped once the list is
// full.
func (l *ErrorList) Add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) >= l.cap {
		if l.dropped == 0 {
			metrics.RecordErrorListOverflow()
		}
		l.dropped++
		return
	}
	l.entries = append(l.entries, msg)
}

// Addf is Add with formatting.
func (l *ErrorList) Addf(format string, args ...interface{}) {
	l.Add(fmt.Sprintf(format, args...))
}

// Len returns how many entries were retained.
func (l *ErrorList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Snapshot returns the retained entries, with a trailing overflow marker
// when any were dropped. The returned slice is a copy.
func (l *ErrorList) Snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 && l.dropped == 0 {
		return nil
	}
	out := make([]string, len(l.entries), len(l.entries)+1)
	copy(out, l.entries)
	if l.dropped > 0 {
		out = append(out, fmt.Sprintf("... and %d more errors (list capped at %d)", l.dropped, l.cap))
	}
	return out
}
