// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package models

import (
	"time"

	"github.com/google/uuid"
)

// UploadState is one phase of the upload lifecycle.
//
// The happy path advances strictly forward:
//
//	Received -> Parsing -> Validating -> Loading -> Completed
//
// Failed is reachable from every non-terminal state. CompletedPartial is the
// terminal state when at least one chunk committed but loading stopped early
// (store failure after partial progress, or client cancellation).
type UploadState string

const (
	UploadStateReceived         UploadState = "received"
	UploadStateParsing          UploadState = "parsing"
	UploadStateValidating       UploadState = "validating"
	UploadStateLoading          UploadState = "loading"
	UploadStateCompleted        UploadState = "completed"
	UploadStateCompletedPartial UploadState = "completed_partial"
	UploadStateFailed           UploadState = "failed"
)

// uploadStateOrder positions each forward state for transition checks.
// Terminal states are not present.
var uploadStateOrder = map[UploadState]int{
	UploadStateReceived:   0,
	UploadStateParsing:    1,
	UploadStateValidating: 2,
	UploadStateLoading:    3,
}

// Terminal reports whether no further transitions are allowed from s.
func (s UploadState) Terminal() bool {
	switch s {
	case UploadStateCompleted, UploadStateCompletedPartial, UploadStateFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine permits moving from s to
// next. Forward moves may skip phases (a tiny upload can go from Parsing
// straight to Completed); backward moves and transitions out of a terminal
// state are rejected.
func (s UploadState) CanTransitionTo(next UploadState) bool {
	if s.Terminal() {
		return false
	}
	if next == UploadStateFailed {
		return true
	}
	if next == UploadStateCompleted || next == UploadStateCompletedPartial {
		return true
	}
	from, okFrom := uploadStateOrder[s]
	to, okTo := uploadStateOrder[next]
	if !okFrom || !okTo {
		return false
	}
	return to > from
}

// Upload is one upload's ledger entry: identity, lifecycle state, and the
// counts accumulated by the ingest pipeline. Persisted as JSON in the upload
// ledger and returned by the upload status endpoints.
type Upload struct {
	ID          uuid.UUID   `json:"id"`
	OwnerKey    string      `json:"owner_key"`
	Filename    string      `json:"filename,omitempty"`
	ContentHash string      `json:"content_hash,omitempty"`
	SizeBytes   int64       `json:"size_bytes,omitempty"`
	State       UploadState `json:"state"`

	// Error holds the failure reason for Failed uploads and the stop reason
	// for CompletedPartial ones. Empty otherwise.
	Error string `json:"error,omitempty"`

	// Pipeline counts. ProcessedRecords counts every entry the parser
	// emitted; SavedRecords counts rows committed to the store. The
	// difference is records rejected by validation or isolated during
	// chunk writes.
	ProcessedRecords int64 `json:"processed_records"`
	SavedRecords     int64 `json:"saved_records"`
	WarningCount     int64 `json:"warning_count"`

	// Errors is the bounded per-upload error list. When the pipeline
	// collected more errors than its configured cap, the final element is
	// an overflow marker rather than a real error.
	Errors []string `json:"errors,omitempty"`

	ReceivedAt time.Time  `json:"received_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ProcessingSeconds returns wall time from receipt to finish, or to now for
// uploads still in flight.
func (u *Upload) ProcessingSeconds() float64 {
	end := time.Now().UTC()
	if u.FinishedAt != nil {
		end = *u.FinishedAt
	}
	d := end.Sub(u.ReceivedAt)
	if d < 0 {
		return 0
	}
	return d.Seconds()
}

// ValidationSummary is the validation portion of an upload response:
// how many entries drew warnings or rejections, and the bounded error list.
type ValidationSummary struct {
	WarningCount int64    `json:"warning_count"`
	Errors       []string `json:"errors,omitempty"`
}

// UploadResult is the data payload returned by the upload endpoint, both for
// fresh ingestions and for idempotent replays of previously completed
// uploads (Duplicate true).
type UploadResult struct {
	Message               string            `json:"message"`
	UploadID              string            `json:"upload_id"`
	State                 UploadState       `json:"state"`
	Duplicate             bool              `json:"duplicate"`
	ProcessedRecords      int64             `json:"processed_records"`
	SavedRecords          int64             `json:"saved_records"`
	ProcessingTimeSeconds float64           `json:"processing_time_seconds"`
	ValidationSummary     ValidationSummary `json:"validation_summary"`
}

// ResultFor builds the upload endpoint payload from a ledger entry.
func (u *Upload) ResultFor(message string, duplicate bool) UploadResult {
	return UploadResult{
		Message:               message,
		UploadID:              u.ID.String(),
		State:                 u.State,
		Duplicate:             duplicate,
		ProcessedRecords:      u.ProcessedRecords,
		SavedRecords:          u.SavedRecords,
		ProcessingTimeSeconds: u.ProcessingSeconds(),
		ValidationSummary: ValidationSummary{
			WarningCount: u.WarningCount,
			Errors:       u.Errors,
		},
	}
}
