// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package api

// Request parameter structs for endpoints with non-trivial inputs.
// Handlers populate these from query, header, and form values, then run
// them through validateRequest before touching the store. Range rules live
// in the validate tags; parse rules (integers, timestamps, record types)
// live in the typed parameter helpers.

// UploadBeginRequest are the validated identity parameters of an upload.
// Owner arrives via the X-Owner-Key header or the legacy username form
// field; Filename is advisory metadata for the ledger.
type UploadBeginRequest struct {
	Owner    string `validate:"required,ownerkey"`
	Filename string `validate:"omitempty,max=512"`
}

// MapPointsRequest are the validated parameters of the map points
// endpoint. Zoom selects the sampling tier; Limit optionally caps the
// number of returned points below the configured ceiling. Empty Owner
// queries all owners.
type MapPointsRequest struct {
	Owner string `validate:"omitempty,ownerkey"`
	Zoom  int    `validate:"min=0,max=22"`
	Limit int    `validate:"min=0,max=1000000"`
}

// ExportGeoJSONRequest are the validated parameters of the GeoJSON export
// endpoint. Days is the lookback window when since/until are absent;
// SampleRate keeps every Nth feature; Limit caps the feature count.
type ExportGeoJSONRequest struct {
	Owner      string  `validate:"omitempty,ownerkey"`
	Days       int     `validate:"omitempty,min=1,max=3650"`
	SampleRate float64 `validate:"omitempty,min=0.1,max=1"`
	Limit      int     `validate:"min=0,max=10000000"`
}

// UploadsListRequest are the validated parameters of the uploads listing
// endpoint. The upper bound is the configured page ceiling, applied by
// clamping rather than rejection.
type UploadsListRequest struct {
	Limit int `validate:"min=0"`
}

// OwnerPathRequest validates the owner path segment of per-owner
// endpoints.
type OwnerPathRequest struct {
	Owner string `validate:"required,ownerkey"`
}
