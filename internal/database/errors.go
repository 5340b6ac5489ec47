// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"strings"

	"github.com/tomtom215/itinerarium/internal/logging"
)

// transientMarkers are substrings of DuckDB and database/sql errors that
// indicate a temporary condition: the same write can succeed if retried
// after a short backoff.
var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"bad connection",
	"database is closed",
	"Transaction conflict",
	"Conflict on update",
	"write-write conflict",
	"IO Error",
}

// structuralMarkers are substrings of DuckDB errors caused by the data in
// the write itself. Retrying the identical chunk cannot succeed; the caller
// should split the chunk and isolate the offending rows instead.
var structuralMarkers = []string{
	"Constraint Error",
	"Conversion Error",
	"Invalid Input Error",
	"Out of Range Error",
	"NOT NULL constraint",
}

// IsTransientError reports whether err looks like a temporary store failure
// worth one retry: connection loss, a write-write conflict, or an IO stall.
// Context cancellation is never transient; a canceled upload must not be
// retried on the caller's behalf.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	return matchesAny(err.Error(), transientMarkers)
}

// IsStructuralError reports whether err indicates bad data in the write
// itself: a constraint, conversion, or range violation that no retry of the
// same rows can fix.
func IsStructuralError(err error) bool {
	if err == nil {
		return false
	}
	return matchesAny(err.Error(), structuralMarkers)
}

func matchesAny(msg string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// closeWithLog closes a resource and logs a warning on failure. Used in
// cleanup paths where the close error is worth knowing but must not mask
// the original error.
func closeWithLog(c io.Closer, resource string) {
	if err := c.Close(); err != nil {
		logging.Warn().
			Err(err).
			Str("resource", resource).
			Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and discards the error. Used where the
// close error carries no signal, such as rows cleanup after iteration
// already surfaced its error.
func closeQuietly(c io.Closer) {
	_ = c.Close()
}
