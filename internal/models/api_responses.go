// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package models

import (
	"time"
)

// APIResponse represents a standardized API response wrapper used by all HTTP endpoints.
// It provides consistent structure for both successful and error responses, with metadata
// for observability and caching information.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Fields:
//   - Status: Response status ("success" or "error")
//   - Data: Response payload (any JSON-serializable type)
//   - Metadata: Query execution metadata (timing, caching, timestamp)
//   - Error: Error details (populated only when Status is "error")
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"total_count": 5219, "displayed_count": 2610, ...},
//	  "metadata": {
//	    "timestamp": "2026-08-23T12:00:00Z",
//	    "query_time_ms": 45,
//	    "cached": false
//	  }
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "Invalid zoom parameter",
//	    "details": {"field": "zoom"}
//	  },
//	  "metadata": {"timestamp": "2026-08-23T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability and performance tracking.
// All API responses include this metadata for monitoring query performance and
// cache effectiveness.
//
// Fields:
//   - Timestamp: Server time when response was generated (RFC3339 format)
//   - QueryTimeMS: Database query execution time in milliseconds (0 if cached)
//   - Cached: Whether response was served from cache (omitted if false)
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError represents an error response with structured error details.
// Provides consistent error format across all API endpoints for better client handling.
//
// Fields:
//   - Code: Machine-readable error code (e.g., "VALIDATION_ERROR", "PARSE_ERROR")
//   - Message: Human-readable error message
//   - Details: Additional context (field names, byte offsets, etc.)
//
// Common error codes:
//   - VALIDATION_ERROR: Invalid input parameters
//   - PARSE_ERROR: Upload body is not a recognized location-history document
//   - UPLOAD_TOO_LARGE: Upload body exceeds the configured size ceiling
//   - STORE_UNAVAILABLE: Record store is down (circuit breaker open)
//   - DATABASE_ERROR: Query execution failure
//   - NOT_FOUND: Resource doesn't exist
//   - RATE_LIMIT_EXCEEDED: Too many requests
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// MapPoint is one displayable point in a map query response. Coordinates are
// always present and in range (only mappable records reach this type).
//
// Semantic carries the visit's semantic label, Activity the movement kind;
// at most one of the two is set, matching the record type.
type MapPoint struct {
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Type      RecordType `json:"type"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Semantic  string     `json:"semantic,omitempty"`
	Activity  string     `json:"activity,omitempty"`
}

// MapDataResponse is the data payload of the map points endpoint.
//
// Fields:
//   - Data: the sampled, most-recent-first points
//   - TotalCount: mappable records matching the query before sampling
//   - DisplayedCount: len(Data) after sampling and caps
//   - ZoomApplied: the zoom level the keep ratio was derived from
//   - KeepRatio: the sampling ratio applied (1.0 = every point kept)
type MapDataResponse struct {
	Data           []MapPoint `json:"data"`
	TotalCount     int64      `json:"total_count"`
	DisplayedCount int        `json:"displayed_count"`
	ZoomApplied    int        `json:"zoom_applied"`
	KeepRatio      float64    `json:"keep_ratio"`
}

// DateRange bounds the timestamps observed in a record set. Either side is
// null when the set is empty.
type DateRange struct {
	Earliest *time.Time `json:"earliest"`
	Latest   *time.Time `json:"latest"`
}

// OwnerStats aggregates one owner's record counts for the stats endpoint.
type OwnerStats struct {
	TotalRecords     int64 `json:"total_records"`
	ValidCoordinates int64 `json:"valid_coordinates"`
}

// StatsResponse is the data payload of the stats endpoint: store-wide record
// counts, coordinate validity split, observed date range, and per-owner and
// per-type breakdowns. Assembled from a single grouped query.
type StatsResponse struct {
	TotalRecords       int64                 `json:"total_records"`
	ValidCoordinates   int64                 `json:"valid_coordinates"`
	InvalidCoordinates int64                 `json:"invalid_coordinates"`
	DateRange          DateRange             `json:"date_range"`
	UserStats          map[string]OwnerStats `json:"user_stats"`
	TypeStats          map[string]int64      `json:"type_stats"`
}

// LabelCount pairs a label with its occurrence count, used for top-N
// breakdowns in owner summaries.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// OwnerInfo is one row of the owners listing.
type OwnerInfo struct {
	OwnerKey         string     `json:"owner_key"`
	TotalRecords     int64      `json:"total_records"`
	ValidCoordinates int64      `json:"valid_coordinates"`
	LatestRecord     *time.Time `json:"latest_record,omitempty"`
}

// OwnersResponse is the data payload of the owners listing endpoint.
type OwnersResponse struct {
	Owners     []OwnerInfo `json:"owners"`
	TotalCount int         `json:"total_count"`
}

// OwnerSummary is the data payload of the per-owner summary endpoint:
// type distribution plus the ten most frequent visit semantic labels and
// activity kinds.
type OwnerSummary struct {
	OwnerKey         string           `json:"owner_key"`
	TotalRecords     int64            `json:"total_records"`
	TypeCounts       map[string]int64 `json:"type_counts"`
	TopSemanticTypes []LabelCount     `json:"top_semantic_types"`
	TopActivityTypes []LabelCount     `json:"top_activity_types"`
	DateRange        DateRange        `json:"date_range"`
}

// DeleteRecordsResponse is the data payload returned after clearing an
// owner's records.
type DeleteRecordsResponse struct {
	OwnerKey       string `json:"owner_key"`
	DeletedRecords int64  `json:"deleted_records"`
}

// SourceFormat describes one accepted upload format for the formats endpoint.
type SourceFormat struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Detection   string   `json:"detection"`
	RecordTypes []string `json:"record_types"`
}

// FormatsResponse is the data payload of the formats endpoint.
type FormatsResponse struct {
	Formats        []SourceFormat `json:"formats"`
	MaxUploadBytes int64          `json:"max_upload_bytes"`
}

// UploadsResponse is the data payload of the uploads listing endpoint,
// newest first.
type UploadsResponse struct {
	Uploads    []Upload `json:"uploads"`
	TotalCount int      `json:"total_count"`
}
