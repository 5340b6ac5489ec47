// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package models

import (
	"time"

	"github.com/google/uuid"
)

// RecordType classifies a canonical location record by the source shape it
// was normalized from.
type RecordType string

// Record types produced by the ingest pipeline.
//
//   - RecordTypePath: one point of a timeline path (Android semanticSegments)
//   - RecordTypeVisit: a stay at a place, with optional place metadata
//   - RecordTypeActivity: one endpoint of a movement segment; every activity
//     segment in the source expands to two activity records (start and end)
//   - RecordTypeTrackPoint: one line of a newline-delimited track recorder log
const (
	RecordTypePath       RecordType = "path"
	RecordTypeVisit      RecordType = "visit"
	RecordTypeActivity   RecordType = "activity"
	RecordTypeTrackPoint RecordType = "track_point"
)

// Valid reports whether t is one of the four known record types.
func (t RecordType) Valid() bool {
	switch t {
	case RecordTypePath, RecordTypeVisit, RecordTypeActivity, RecordTypeTrackPoint:
		return true
	}
	return false
}

// Record is the canonical location record every ingest format normalizes
// into. One relational row in the location_records table.
//
// Key Fields:
//   - Type: which source shape produced the record (path/visit/activity/track_point)
//   - StartTime/EndTime: interval records (visits, iPhone entries); nullable
//   - PointTime: instant records (path points, activity endpoints, track points); nullable
//   - Latitude/Longitude: WGS84 degrees; jointly present or jointly absent
//   - OwnerKey: the owner the upload was attributed to; never empty
//
// Invariants enforced by the validator before a record reaches storage:
//   - Latitude and Longitude are both set or both nil
//   - When set, Latitude ∈ [-90, 90] and Longitude ∈ [-180, 180]
//   - StartTime ≤ EndTime when both are set
//   - OwnerKey is non-empty
//
// Optional field groups use pointers with omitempty so JSON payloads carry
// only what the source provided.
type Record struct {
	ID       int64      `json:"id,omitempty"`
	UploadID *uuid.UUID `json:"upload_id,omitempty"`
	OwnerKey string     `json:"owner_key"`
	Type     RecordType `json:"type"`

	// Temporal fields. Interval records carry StartTime/EndTime, instant
	// records carry PointTime. All stored in UTC.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	PointTime *time.Time `json:"point_time,omitempty"`

	// WGS84 coordinates, nullable as a pair. A record with nil coordinates
	// is kept for statistics but never appears on the map or in exports.
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// Visit fields (Type == RecordTypeVisit)
	VisitPlaceID      *string  `json:"visit_place_id,omitempty"`
	VisitSemanticType *string  `json:"visit_semantic_type,omitempty"`
	VisitProbability  *float64 `json:"visit_probability,omitempty"`

	// Activity fields (Type == RecordTypeActivity)
	ActivityType           *string  `json:"activity_type,omitempty"`
	ActivityDistanceMeters *float64 `json:"activity_distance_meters,omitempty"`
	ActivityProbability    *float64 `json:"activity_probability,omitempty"`

	// Track point fields (Type == RecordTypeTrackPoint)
	Elevation *float64 `json:"elevation,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Source    *string  `json:"source,omitempty"`
	TrackName *string  `json:"track_name,omitempty"`
	Sequence  *int64   `json:"sequence,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// HasCoordinates reports whether both coordinates are present.
func (r *Record) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Mappable reports whether the record can be placed on a map: both
// coordinates present, within WGS84 range, and not the (0,0) null island
// placeholder some exporters emit for unknown positions.
func (r *Record) Mappable() bool {
	if !r.HasCoordinates() {
		return false
	}
	lat, lng := *r.Latitude, *r.Longitude
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return false
	}
	if lat == 0 && lng == 0 {
		return false
	}
	return true
}

// DisplayTime returns the record's representative timestamp: StartTime when
// present, otherwise PointTime. Map ordering and export properties use this
// so interval and instant records sort together.
func (r *Record) DisplayTime() *time.Time {
	if r.StartTime != nil {
		return r.StartTime
	}
	return r.PointTime
}
