// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package logging

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// IngestEvent represents an audit-relevant ingest lifecycle event.
// Owner keys identify real people's location data, so every identifying
// field is sanitized before it reaches the log stream.
type IngestEvent struct {
	// Event is the type of event (e.g., "upload_received", "upload_completed").
	Event string
	// UploadID is the upload's identifier.
	UploadID string
	// OwnerKey is the owner the upload was attributed to (sanitized on output).
	OwnerKey string
	// ContentHash is the upload body hash (sanitized on output).
	ContentHash string
	// IPAddress is the client's IP address.
	IPAddress string
	// Success indicates if the operation was successful.
	Success bool
	// Error is the error message if the operation failed.
	Error string
	// Details contains additional sanitized details.
	Details map[string]string
}

// IngestLogger provides audit logging for the upload lifecycle.
// It automatically sanitizes owner keys and hashes before logging.
type IngestLogger struct {
	logger zerolog.Logger
}

// NewIngestLogger creates a new ingest audit logger.
func NewIngestLogger() *IngestLogger {
	return &IngestLogger{
		logger: With().Str("component", "ingest").Logger(),
	}
}

// NewIngestLoggerWithLogger creates an ingest logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewIngestLoggerWithLogger(logger zerolog.Logger) *IngestLogger {
	return &IngestLogger{
		logger: logger.With().Str("component", "ingest").Logger(),
	}
}

// LogEvent logs an ingest event with automatic sanitization.
func (l *IngestLogger) LogEvent(event *IngestEvent) {
	e := l.logger.Info().
		Str("event", event.Event)

	if event.Success {
		e = e.Str("status", "success")
	} else {
		e = e.Str("status", "failed")
	}

	if event.UploadID != "" {
		e = e.Str("upload_id", event.UploadID)
	}

	if event.OwnerKey != "" {
		e = e.Str("owner", SanitizeOwnerKey(event.OwnerKey))
	}

	if event.ContentHash != "" {
		e = e.Str("content_hash", SanitizeHash(event.ContentHash))
	}

	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}

	if event.Error != "" && !event.Success {
		e = e.Str("error", SanitizeError(event.Error))
	}

	// Add sanitized details
	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}

	e.Msg("")
}

// Debug logs a debug-level message.
func (l *IngestLogger) Debug(msg string, fields ...interface{}) {
	e := l.logger.Debug()
	e = addFieldPairs(e, fields)
	e.Msg(msg)
}

// Info logs an info-level message.
func (l *IngestLogger) Info(msg string, fields ...interface{}) {
	e := l.logger.Info()
	e = addFieldPairs(e, fields)
	e.Msg(msg)
}

// Warn logs a warning-level message.
func (l *IngestLogger) Warn(msg string, fields ...interface{}) {
	e := l.logger.Warn()
	e = addFieldPairs(e, fields)
	e.Msg(msg)
}

// Error logs an error-level message.
func (l *IngestLogger) Error(msg string, fields ...interface{}) {
	e := l.logger.Error()
	e = addFieldPairs(e, fields)
	e.Msg(msg)
}

// addFieldPairs adds key-value pairs to a zerolog event.
func addFieldPairs(e *zerolog.Event, fields []interface{}) *zerolog.Event {
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			e = e.Interface(key, fields[i+1])
		}
	}
	return e
}

// ============================================================
// Pre-defined Ingest Events
// ============================================================

// LogUploadReceived logs receipt of a new upload.
func (l *IngestLogger) LogUploadReceived(uploadID, ownerKey, ip string, sizeBytes int64) {
	l.LogEvent(&IngestEvent{
		Event:     "upload_received",
		UploadID:  uploadID,
		OwnerKey:  ownerKey,
		IPAddress: ip,
		Success:   true,
		Details: map[string]string{
			"size_bytes": strconv.FormatInt(sizeBytes, 10),
		},
	})
}

// LogUploadCompleted logs a successfully completed upload.
func (l *IngestLogger) LogUploadCompleted(uploadID, ownerKey string, processed, saved int64) {
	l.LogEvent(&IngestEvent{
		Event:    "upload_completed",
		UploadID: uploadID,
		OwnerKey: ownerKey,
		Success:  true,
		Details: map[string]string{
			"processed_records": strconv.FormatInt(processed, 10),
			"saved_records":     strconv.FormatInt(saved, 10),
		},
	})
}

// LogUploadPartial logs an upload that stopped early with partial progress.
func (l *IngestLogger) LogUploadPartial(uploadID, ownerKey, reason string, saved int64) {
	l.LogEvent(&IngestEvent{
		Event:    "upload_partial",
		UploadID: uploadID,
		OwnerKey: ownerKey,
		Success:  false,
		Error:    reason,
		Details: map[string]string{
			"saved_records": strconv.FormatInt(saved, 10),
		},
	})
}

// LogUploadFailed logs a failed upload.
func (l *IngestLogger) LogUploadFailed(uploadID, ownerKey, reason string) {
	l.LogEvent(&IngestEvent{
		Event:    "upload_failed",
		UploadID: uploadID,
		OwnerKey: ownerKey,
		Success:  false,
		Error:    reason,
	})
}

// LogUploadDuplicate logs an idempotent replay of a previously completed upload.
func (l *IngestLogger) LogUploadDuplicate(uploadID, ownerKey, contentHash string) {
	l.LogEvent(&IngestEvent{
		Event:       "upload_duplicate",
		UploadID:    uploadID,
		OwnerKey:    ownerKey,
		ContentHash: contentHash,
		Success:     true,
	})
}

// LogRecordsDeleted logs a clear-data operation for an owner.
func (l *IngestLogger) LogRecordsDeleted(ownerKey, ip string, deleted int64) {
	l.LogEvent(&IngestEvent{
		Event:     "records_deleted",
		OwnerKey:  ownerKey,
		IPAddress: ip,
		Success:   true,
		Details: map[string]string{
			"deleted_records": strconv.FormatInt(deleted, 10),
		},
	})
}

// ============================================================
// Sanitization Functions
// ============================================================

// SanitizeOwnerKey masks an owner key, keeping first 2 characters.
// Example: "alice@home" -> "al***"
func SanitizeOwnerKey(ownerKey string) string {
	if ownerKey == "" {
		return ""
	}
	if len(ownerKey) <= 2 {
		return "***"
	}
	return ownerKey[:2] + "***"
}

// SanitizeHash masks a content hash, showing only first and last 4 characters.
// Example: "a1b2c3d4e5f60718" -> "a1b2...0718"
func SanitizeHash(hash string) string {
	if hash == "" {
		return ""
	}
	if len(hash) <= 12 {
		return "***"
	}
	return hash[:4] + "..." + hash[len(hash)-4:]
}

// SanitizeError removes potentially identifying information from error messages.
// Filenames and coordinates can reveal where someone lives, so errors that
// embed them are replaced with a generic message.
func SanitizeError(err string) string {
	sensitivePatterns := []string{
		"/home/",
		"/users/",
		"c:\\",
		"latitude=",
		"longitude=",
		"owner=",
	}

	lowerErr := strings.ToLower(err)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lowerErr, pattern) {
			return "ingest error"
		}
	}

	// Truncate long errors
	return truncateString(err, 200)
}

// SanitizeValue sanitizes a value based on its key name.
func SanitizeValue(key, value string) string {
	lowerKey := strings.ToLower(key)

	// Check for sensitive key names
	sensitiveKeys := map[string]bool{
		"owner":        true,
		"owner_key":    true,
		"ownerkey":     true,
		"username":     true,
		"filename":     true,
		"file_name":    true,
		"hash":         true,
		"content_hash": true,
	}

	if sensitiveKeys[lowerKey] {
		return SanitizeOwnerKey(value)
	}

	return value
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
