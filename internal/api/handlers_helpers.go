// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/itinerarium/internal/logging"
	"github.com/tomtom215/itinerarium/internal/models"
	"github.com/tomtom215/itinerarium/internal/validation"
)

// ownerKeyHeader carries the pre-authenticated owner key. Identity is
// established upstream; this service treats the header value as opaque.
const ownerKeyHeader = "X-Owner-Key"

// sanitizeLogValue escapes control characters in user-supplied values
// before they reach the log stream, preventing log injection via crafted
// paths, filenames, or owner keys.
func sanitizeLogValue(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r < 32 || r == 127 {
			b.WriteString(fmt.Sprintf("\\x%02x", r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// respondJSON writes an envelope response. Successful GET responses carry
// an ETag and honor If-None-Match with 304; Cache-Control defaults to a
// short public max-age unless the handler already set a stricter policy.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		http.Error(w, `{"status":"error","error":{"code":"DATABASE_ERROR","message":"Failed to encode response"}}`,
			http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusOK && r.Method == http.MethodGet {
		etag := generateETag(data)
		w.Header().Set("ETag", etag)
		if w.Header().Get("Cache-Control") == "" {
			w.Header().Set("Cache-Control", "public, max-age=60")
		}
		w.Header().Set("Vary", "Accept-Encoding")
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write response")
	}
}

// generateETag computes a weak validator from the response body using
// FNV-1a. Collisions only cost an unnecessary full response.
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return `"` + strconv.FormatUint(uint64(hash), 16) + `"`
}

// respondError logs the failure and writes an error envelope. Client
// errors log at warn, server errors at error. Error responses are never
// cacheable.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	respondErrorDetails(w, r, status, code, message, nil, err)
}

// respondErrorDetails is respondError with structured detail fields
// attached to the envelope error.
func respondErrorDetails(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}, err error) {
	ev := logging.CtxWarn(r.Context())
	if status >= http.StatusInternalServerError {
		ev = logging.CtxError(r.Context())
	}
	ev.Err(err).
		Int("status", status).
		Str("code", code).
		Str("method", r.Method).
		Str("path", sanitizeLogValue(r.URL.Path)).
		Msg(sanitizeLogValue(message))

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, r, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondAPIError writes a pre-built envelope error, typically a
// validation failure.
func respondAPIError(w http.ResponseWriter, r *http.Request, status int, apiErr *models.APIError) {
	logging.CtxWarn(r.Context()).
		Str("code", apiErr.Code).
		Str("path", sanitizeLogValue(r.URL.Path)).
		Msg(sanitizeLogValue(apiErr.Message))

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, r, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    apiErr,
	})
}

// validateRequest runs struct validation and converts failures into the
// envelope error type. Returns nil when the request is valid.
func validateRequest(v interface{}) *models.APIError {
	if err := validation.ValidateStruct(v); err != nil {
		apiErr := err.ToAPIError()
		return &models.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		}
	}
	return nil
}

// requireDB guards store-backed handlers. The service can run with the
// store down (uploads still land in the ledger as failures, health still
// answers); query handlers respond 503 instead of panicking on a nil DB.
func (h *Handler) requireDB(w http.ResponseWriter, r *http.Request) bool {
	if h.db != nil {
		return true
	}
	respondError(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE",
		"Record store is not available", nil)
	return false
}

// requestOwner resolves the owner scope of a read request: the owner query
// parameter wins, then the X-Owner-Key header. Empty scopes the query to
// all owners.
func requestOwner(r *http.Request) string {
	if owner := r.URL.Query().Get("owner"); owner != "" {
		return owner
	}
	return r.Header.Get(ownerKeyHeader)
}

// getIntParam reads an integer query parameter, returning def when absent.
// A present but malformed value is reported, not silently defaulted.
func getIntParam(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parameter %q must be an integer", key)
	}
	return v, nil
}

// getFloatParam reads a float query parameter, returning def when absent.
func getFloatParam(r *http.Request, key string, def float64) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %q must be a number", key)
	}
	return v, nil
}

// getTimeParam reads an RFC 3339 timestamp query parameter. Absent returns
// (nil, nil).
func getTimeParam(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("parameter %q must be an RFC 3339 timestamp", key)
	}
	return &t, nil
}

// parseCommaSeparated splits a comma-separated parameter into trimmed,
// non-empty elements.
func parseCommaSeparated(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseRecordTypes parses a comma-separated list of record type names.
func parseRecordTypes(raw string) ([]models.RecordType, error) {
	parts := parseCommaSeparated(raw)
	if len(parts) == 0 {
		return nil, nil
	}
	types := make([]models.RecordType, 0, len(parts))
	for _, p := range parts {
		rt := models.RecordType(p)
		if !rt.Valid() {
			return nil, fmt.Errorf("unknown record type %q", p)
		}
		types = append(types, rt)
	}
	return types, nil
}
