// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a thread-safe
// singleton validator instance with custom validators and user-friendly error
// messages. It integrates with the application's API error format for consistent
// error responses.
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Custom ownerkey validator for owner identifiers
//   - Comprehensive error translation to human-readable messages
//   - APIError conversion matching the application's error format
//   - Built-in validator support (latitude, longitude, datetime, timezone, etc.)
//   - Future v11 compatibility with WithRequiredStructEnabled
//
// # Quick Start
//
//	type ExportRequest struct {
//	    Owner string `validate:"required,ownerkey"`
//	    Start string `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
//	    End   string `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
//	    Limit int    `validate:"omitempty,min=1,max=1000000"`
//	}
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    var req ExportRequest
//	    if err := json.Decode(r.Body, &req); err != nil {
//	        // handle decode error
//	    }
//
//	    if verr := validation.ValidateStruct(&req); verr != nil {
//	        apiErr := verr.ToAPIError()
//	        respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	        return
//	    }
//
//	    // proceed with valid request
//	}
//
// # Common Validation Tags
//
// String validations:
//   - required: Field must not be empty
//   - min=n: Minimum length n characters
//   - max=n: Maximum length n characters
//   - datetime=layout: Valid date/time in the given layout
//   - timezone: Valid IANA timezone name (e.g. "Asia/Tokyo")
//   - ownerkey: Valid owner identifier (custom, see below)
//
// Numeric validations:
//   - gte=n: Greater than or equal to n
//   - lte=n: Less than or equal to n
//   - gt=n: Greater than n
//   - lt=n: Less than n
//   - min=n: Minimum value n
//   - max=n: Maximum value n
//
// Enum validations:
//   - oneof=a b c: Must be one of the specified values
//
// Coordinate validations:
//   - latitude: Valid latitude (-90 to 90)
//   - longitude: Valid longitude (-180 to 180)
//
// # Custom Validators
//
// The ownerkey tag validates owner identifiers supplied in URL paths and
// query strings: valid UTF-8, 1 to 128 bytes, no whitespace or control
// characters. Identifiers like "alice", "alice@example.com", and
// "family-phone-2" pass; embedded spaces, tabs, and NUL bytes do not.
//
// # Error Types
//
// ValidationError represents a single field validation failure:
//
//	type ValidationError struct {
//	    Field()   string      // Struct field name
//	    Tag()     string      // Validation tag that failed
//	    Param()   string      // Tag parameter (e.g., "22" for max=22)
//	    Value()   interface{} // Actual value that failed
//	    Error()   string      // Human-readable message
//	}
//
// RequestValidationError aggregates multiple field errors:
//
//	type RequestValidationError struct {
//	    Errors() []ValidationError
//	    Error()  string           // Combined message
//	    ToAPIError() *APIError    // Convert to API error format
//	}
//
// # API Error Integration
//
// The ToAPIError method produces errors matching the application format:
//
//	// Single field error
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "Zoom must be at most 22",
//	    "details": {"field": "Zoom", "tag": "max", "value": 30}
//	}
//
//	// Multiple field errors
//	{
//	    "code": "VALIDATION_ERROR",
//	    "message": "Owner: is required; Zoom: must be at most 22",
//	    "details": {
//	        "fields": [
//	            {"field": "Owner", "tag": "required", "message": "..."},
//	            {"field": "Zoom", "tag": "max", "message": "..."}
//	        ]
//	    }
//	}
//
// # Error Message Translation
//
// Human-readable messages are generated for common validation tags:
//
//	required   -> "Owner is required"
//	min=1      -> "Limit must be at least 1"
//	max=22     -> "Zoom must be at most 22"
//	gte=0      -> "Offset must be greater than or equal to 0"
//	lte=1      -> "SampleRate must be less than or equal to 1"
//	oneof=a b  -> "Format must be one of: a b"
//	latitude   -> "Lat must be a valid latitude (-90 to 90)"
//	longitude  -> "Lon must be a valid longitude (-180 to 180)"
//	timezone   -> "Timezone must be a valid IANA timezone name"
//	ownerkey   -> "Owner must be 1-128 characters with no whitespace or control characters"
//
// # Struct Tag Examples
//
// Map query validation:
//
//	type MapPointsRequest struct {
//	    Owner string `validate:"required,ownerkey"`
//	    Zoom  int    `validate:"min=0,max=22"`
//	    Limit int    `validate:"omitempty,min=1,max=100000"`
//	    Days  int    `validate:"omitempty,min=1,max=36500"`
//	}
//
// Geographic bounds:
//
//	type BoundingBox struct {
//	    MinLat float64 `validate:"required,latitude"`
//	    MaxLat float64 `validate:"required,latitude,gtfield=MinLat"`
//	    MinLon float64 `validate:"required,longitude"`
//	    MaxLon float64 `validate:"required,longitude,gtfield=MinLon"`
//	}
//
// # Thread Safety
//
// The singleton validator is initialized once and safe for concurrent use:
//
//	validate := validation.GetValidator()  // Thread-safe
//	err := validation.ValidateStruct(&req) // Thread-safe
//
// # Performance
//
// The validator caches struct reflection information:
//   - First validation of a struct type: ~1ms (reflection + caching)
//   - Subsequent validations: ~10us (cached)
//   - Memory: ~500 bytes per cached struct type
//
// # See Also
//
//   - internal/api: Request handlers using validation
//   - github.com/go-playground/validator/v10: Underlying library
//   - docs/adr/0006-request-validation.md: ADR for validator choice
package validation
