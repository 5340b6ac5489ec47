// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
)

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"bad connection", errors.New("driver: bad connection"), true},
		{"database closed", errors.New("sql: database is closed"), true},
		{"transaction conflict", errors.New("TransactionContext Error: Transaction conflict"), true},
		{"conflict on update", errors.New("Conflict on update of row"), true},
		{"write-write conflict", errors.New("write-write conflict on table location_records"), true},
		{"io error", errors.New("IO Error: could not write to file"), true},
		{"wrapped transient", fmt.Errorf("failed to commit: %w", errors.New("Transaction conflict")), true},
		{"driver bad conn sentinel", fmt.Errorf("exec: %w", driver.ErrBadConn), true},
		{"context canceled", context.Canceled, false},
		{"context deadline", context.DeadlineExceeded, false},
		{"wrapped cancellation", fmt.Errorf("append: %w", context.Canceled), false},
		{"constraint error", errors.New("Constraint Error: NOT NULL constraint failed"), false},
		{"unrelated", errors.New("something else entirely"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransientError(tt.err); got != tt.want {
				t.Errorf("IsTransientError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsStructuralError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"constraint", errors.New("Constraint Error: Duplicate key violates primary key constraint"), true},
		{"conversion", errors.New("Conversion Error: Could not convert string to DOUBLE"), true},
		{"invalid input", errors.New("Invalid Input Error: arrow appendix mismatch"), true},
		{"out of range", errors.New("Out of Range Error: value is out of range for type BIGINT"), true},
		{"not null", errors.New("NOT NULL constraint failed: location_records.owner_key"), true},
		{"wrapped structural", fmt.Errorf("flush: %w", errors.New("Conversion Error: bad value")), true},
		{"transient", errors.New("IO Error: disk stall"), false},
		{"unrelated", errors.New("something else entirely"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStructuralError(tt.err); got != tt.want {
				t.Errorf("IsStructuralError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// failingCloser always fails its Close call.
type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("close failed") }

// okCloser records that Close was called.
type okCloser struct{ closed bool }

func (c *okCloser) Close() error {
	c.closed = true
	return nil
}

func TestCloseWithLog(t *testing.T) {
	// Must not panic on a failing close; the error is logged, not returned.
	closeWithLog(failingCloser{}, "test-resource")

	c := &okCloser{}
	closeWithLog(c, "test-resource")
	if !c.closed {
		t.Error("expected Close to be called")
	}
}

func TestCloseQuietly(t *testing.T) {
	closeQuietly(failingCloser{})

	c := &okCloser{}
	closeQuietly(c)
	if !c.closed {
		t.Error("expected Close to be called")
	}
}
