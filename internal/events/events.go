// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/itinerarium/internal/models"
)

// SchemaVersion is the current event schema version.
// Increment this when making breaking changes to the event payloads.
const SchemaVersion = 1

// Topic names. The in-process channel matches topics exactly (no wildcard
// subscriptions), so every event type maps to one fixed topic.
const (
	// TopicUploadChanged carries a full upload snapshot on every state
	// transition, from Received through the terminal states.
	TopicUploadChanged = "uploads.changed"

	// TopicUploadProgress carries high-frequency record-count ticks while an
	// upload is loading. Progress is advisory: ticks may be dropped under
	// backpressure and are never persisted.
	TopicUploadProgress = "uploads.progress"

	// TopicStatsChanged signals that aggregate statistics are stale: a
	// completed upload committed rows, or an owner's records were deleted.
	// Consumers invalidate caches and push refresh hints to clients.
	TopicStatsChanged = "stats.changed"

	// DefaultPoisonTopic receives messages that failed processing after all
	// retries.
	DefaultPoisonTopic = "dlq.events"
)

// StatsEvent reasons.
const (
	// StatsReasonUploadCompleted indicates a finished upload committed rows.
	StatsReasonUploadCompleted = "upload_completed"
	// StatsReasonOwnerCleared indicates an owner's records were deleted.
	StatsReasonOwnerCleared = "owner_records_deleted"
)

// Event is the common surface of every bus event: a fixed topic and
// payload validation before publish.
type Event interface {
	Topic() string
	Validate() error
}

// UploadEvent is a point-in-time snapshot of one upload's ledger entry,
// published on every state transition.
type UploadEvent struct {
	SchemaVersion    int                `json:"schema_version,omitempty"`
	EventID          string             `json:"event_id"`
	UploadID         string             `json:"upload_id"`
	OwnerKey         string             `json:"owner_key"`
	Filename         string             `json:"filename,omitempty"`
	State            models.UploadState `json:"state"`
	ProcessedRecords int64              `json:"processed_records"`
	SavedRecords     int64              `json:"saved_records"`
	WarningCount     int64              `json:"warning_count"`
	Error            string             `json:"error,omitempty"`
	Timestamp        time.Time          `json:"timestamp"`
}

// NewUploadEvent snapshots a ledger entry into an event with a fresh
// event ID and timestamp.
func NewUploadEvent(u *models.Upload) *UploadEvent {
	return &UploadEvent{
		SchemaVersion:    SchemaVersion,
		EventID:          uuid.New().String(),
		UploadID:         u.ID.String(),
		OwnerKey:         u.OwnerKey,
		Filename:         u.Filename,
		State:            u.State,
		ProcessedRecords: u.ProcessedRecords,
		SavedRecords:     u.SavedRecords,
		WarningCount:     u.WarningCount,
		Error:            u.Error,
		Timestamp:        time.Now().UTC(),
	}
}

// Topic returns the subject for upload snapshots.
func (e *UploadEvent) Topic() string {
	return TopicUploadChanged
}

// Terminal reports whether this snapshot is the upload's final state.
func (e *UploadEvent) Terminal() bool {
	return e.State.Terminal()
}

// Validate checks required fields and returns an error if validation fails.
func (e *UploadEvent) Validate() error {
	if e.EventID == "" {
		return &ValidationError{Field: "event_id", Message: "required"}
	}
	if e.UploadID == "" {
		return &ValidationError{Field: "upload_id", Message: "required"}
	}
	if e.OwnerKey == "" {
		return &ValidationError{Field: "owner_key", Message: "required"}
	}
	if e.State == "" {
		return &ValidationError{Field: "state", Message: "required"}
	}
	return nil
}

// ProgressEvent is one record-count tick for an upload in flight.
type ProgressEvent struct {
	SchemaVersion    int       `json:"schema_version,omitempty"`
	EventID          string    `json:"event_id"`
	UploadID         string    `json:"upload_id"`
	OwnerKey         string    `json:"owner_key"`
	ProcessedRecords int64     `json:"processed_records"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewProgressEvent creates a progress tick with a fresh event ID.
func NewProgressEvent(owner string, uploadID uuid.UUID, processed int64) *ProgressEvent {
	return &ProgressEvent{
		SchemaVersion:    SchemaVersion,
		EventID:          uuid.New().String(),
		UploadID:         uploadID.String(),
		OwnerKey:         owner,
		ProcessedRecords: processed,
		Timestamp:        time.Now().UTC(),
	}
}

// Topic returns the subject for progress ticks.
func (e *ProgressEvent) Topic() string {
	return TopicUploadProgress
}

// Validate checks required fields and returns an error if validation fails.
func (e *ProgressEvent) Validate() error {
	if e.EventID == "" {
		return &ValidationError{Field: "event_id", Message: "required"}
	}
	if e.UploadID == "" {
		return &ValidationError{Field: "upload_id", Message: "required"}
	}
	if e.OwnerKey == "" {
		return &ValidationError{Field: "owner_key", Message: "required"}
	}
	return nil
}

// StatsEvent signals that stored aggregates changed and derived views
// (caches, dashboards) should refresh.
type StatsEvent struct {
	SchemaVersion   int       `json:"schema_version,omitempty"`
	EventID         string    `json:"event_id"`
	Reason          string    `json:"reason"`
	OwnerKey        string    `json:"owner_key,omitempty"`
	UploadID        string    `json:"upload_id,omitempty"`
	RecordsAffected int64     `json:"records_affected,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewStatsEvent creates a stats invalidation event with a fresh event ID.
func NewStatsEvent(reason, owner string) *StatsEvent {
	return &StatsEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		Reason:        reason,
		OwnerKey:      owner,
		Timestamp:     time.Now().UTC(),
	}
}

// Topic returns the subject for stats invalidation events.
func (e *StatsEvent) Topic() string {
	return TopicStatsChanged
}

// Validate checks required fields and returns an error if validation fails.
func (e *StatsEvent) Validate() error {
	if e.EventID == "" {
		return &ValidationError{Field: "event_id", Message: "required"}
	}
	if e.Reason == "" {
		return &ValidationError{Field: "reason", Message: "required"}
	}
	return nil
}

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
