// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSanitizeOwnerKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"single char", "a", "***"},
		{"two chars", "ab", "***"},
		{"normal key", "alice", "al***"},
		{"email-like key", "alice@example.com", "al***"},
		{"hyphenated key", "family-phone-2", "fa***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeOwnerKey(tt.input); got != tt.expected {
				t.Errorf("SanitizeOwnerKey(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{"owner key masked", "owner", "alice", "al***"},
		{"owner_key masked", "owner_key", "alice", "al***"},
		{"filename masked", "filename", "timeline-2025.json", "ti***"},
		{"case insensitive", "FILENAME", "timeline-2025.json", "ti***"},
		{"neutral key passthrough", "size_bytes", "2048", "2048"},
		{"record count passthrough", "saved_records", "918", "918"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeValue(tt.key, tt.value); got != tt.expected {
				t.Errorf("SanitizeValue(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.expected)
			}
		})
	}
}

func TestSanitizeHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"short hash", "abc123", "***"},
		{"boundary", "abcdefghijkl", "***"},
		{"fnv64 hash", "a1b2c3d4e5f60718", "a1b2...0718"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeHash(tt.input); got != tt.expected {
				t.Errorf("SanitizeHash(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain error", "chunk 3 failed", "chunk 3 failed"},
		{"home path leaks", "open /home/alice/timeline.json: no such file", "ingest error"},
		{"coordinate leaks", "invalid point latitude=35.676200", "ingest error"},
		{"owner leaks", "duplicate for owner=alice", "ingest error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeError(tt.input); got != tt.expected {
				t.Errorf("SanitizeError(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}

	// Long errors are truncated.
	long := strings.Repeat("x", 300)
	got := SanitizeError(long)
	if len(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncation to 200 chars plus ellipsis, got %d chars", len(got))
	}
}

func TestIngestLoggerSanitizesOwner(t *testing.T) {
	var buf bytes.Buffer
	logger := NewIngestLoggerWithLogger(zerolog.New(&buf))

	logger.LogUploadReceived("b9c2f3a0-0000-0000-0000-000000000000", "alice", "203.0.113.7", 2048)

	output := buf.String()
	if strings.Contains(output, `"owner":"alice"`) {
		t.Errorf("expected owner key to be sanitized, got: %s", output)
	}
	if !strings.Contains(output, "al***") {
		t.Errorf("expected masked owner key in output: %s", output)
	}
	if !strings.Contains(output, "upload_received") {
		t.Errorf("expected event name in output: %s", output)
	}
	if !strings.Contains(output, `"size_bytes":"2048"`) {
		t.Errorf("expected size detail in output: %s", output)
	}
}

func TestIngestLoggerFailureCarriesSanitizedError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewIngestLoggerWithLogger(zerolog.New(&buf))

	logger.LogUploadFailed("up-1", "bob", "open /home/bob/export.json: permission denied")

	output := buf.String()
	if !strings.Contains(output, `"status":"failed"`) {
		t.Errorf("expected failed status in output: %s", output)
	}
	if strings.Contains(output, "/home/bob") {
		t.Errorf("expected path to be scrubbed from output: %s", output)
	}
	if !strings.Contains(output, "ingest error") {
		t.Errorf("expected generic error in output: %s", output)
	}
}

func TestIngestLoggerDuplicateEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewIngestLoggerWithLogger(zerolog.New(&buf))

	logger.LogUploadDuplicate("up-2", "carol", "a1b2c3d4e5f60718")

	output := buf.String()
	if !strings.Contains(output, "upload_duplicate") {
		t.Errorf("expected duplicate event in output: %s", output)
	}
	if !strings.Contains(output, "a1b2...0718") {
		t.Errorf("expected masked hash in output: %s", output)
	}
}

func TestIngestLoggerLogLevels(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	ingestLog := NewIngestLoggerWithLogger(zerolog.New(&buf))

	tests := []struct {
		name    string
		logFunc func()
		level   string
	}{
		{"Debug", func() { ingestLog.Debug("debug msg") }, "debug"},
		{"Info", func() { ingestLog.Info("info msg") }, "info"},
		{"Warn", func() { ingestLog.Warn("warn msg") }, "warn"},
		{"Error", func() { ingestLog.Error("error msg") }, "error"},
	}

	for _, tt := range tests {
		buf.Reset()
		tt.logFunc()
		output := buf.String()
		if !strings.Contains(output, tt.level) {
			t.Errorf("%s: expected level %q in output: %s", tt.name, tt.level, output)
		}
	}
}

func TestIngestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	ingestLog := NewIngestLoggerWithLogger(zerolog.New(&buf))

	ingestLog.Info("test", "chunk", 7, "stage", "load")

	output := buf.String()
	if !strings.Contains(output, "chunk") {
		t.Errorf("expected chunk key in output: %s", output)
	}
	if !strings.Contains(output, "load") {
		t.Errorf("expected stage value in output: %s", output)
	}
}
