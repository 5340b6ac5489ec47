// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package timeline

import (
	"errors"
	"fmt"

	"github.com/tomtom215/itinerarium/internal/database"
)

// ErrIncompleteInput is returned when the source stream ends in the middle of
// a document. The whole upload is aborted and nothing stays loaded.
var ErrIncompleteInput = errors.New("source stream ended mid-document")

// ErrUploadRateLimited is returned when an owner exceeds the per-owner upload
// admission rate. The client should retry later.
var ErrUploadRateLimited = errors.New("upload admission rate exceeded for owner")

// ErrStoreUnavailable is returned when the store circuit breaker is open and
// chunk writes are being refused without reaching the store.
var ErrStoreUnavailable = errors.New("record store unavailable")

// ParseError reports malformed structure in the source document. Offset is
// the byte position the decoder had consumed when the problem surfaced, so
// users of multi-hundred-megabyte exports can locate the damage.
type ParseError struct {
	Offset int64
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at byte %d: %s", e.Offset, e.Msg)
}

// ChunkError describes one failed or degraded chunk write. Entries are
// collected into the upload's bounded error list. Cause is a category, never
// raw store error text.
type ChunkError struct {
	Chunk int
	Cause string
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %s", e.Chunk, e.Cause)
}

// LoadFatalError stops an upload: the store is unreachable or persistently
// failing and retries are pointless. Chunks committed before the failure stay
// committed; SavedSoFar carries their row count so the upload can report
// partial completion.
type LoadFatalError struct {
	Chunk      int
	SavedSoFar int64
	Cause      error
}

func (e *LoadFatalError) Error() string {
	return fmt.Sprintf("loading stopped at chunk %d after %d saved records: %v",
		e.Chunk, e.SavedSoFar, e.Cause)
}

func (e *LoadFatalError) Unwrap() error {
	return e.Cause
}

// categorizeStoreError maps a store error to the category string surfaced in
// upload error lists. Raw store error text never reaches clients.
func categorizeStoreError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStoreUnavailable):
		return "store unavailable"
	case database.IsTransientError(err):
		return "transient store failure"
	case database.IsStructuralError(err):
		return "store rejected data"
	default:
		return "store write failed"
	}
}
