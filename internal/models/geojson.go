// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package models

import (
	"time"
)

// GeoJSON type constants per RFC 7946.
const (
	GeoJSONTypeFeatureCollection = "FeatureCollection"
	GeoJSONTypeFeature           = "Feature"
	GeoJSONTypePoint             = "Point"
)

// PointGeometry is a GeoJSON Point geometry. Coordinates are
// [longitude, latitude] per RFC 7946 section 3.1.1, rounded to six decimal
// places (about 0.1 m) by the exporter.
type PointGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// FeatureProperties is the compact property set attached to every exported
// feature. Only fields relevant to the record's type are populated.
type FeatureProperties struct {
	Owner    string     `json:"owner"`
	Type     RecordType `json:"type"`
	Time     *time.Time `json:"time,omitempty"`
	Semantic string     `json:"semantic,omitempty"`
	Activity string     `json:"activity,omitempty"`
}

// Feature is one GeoJSON feature in an export stream.
type Feature struct {
	Type       string            `json:"type"`
	Geometry   PointGeometry     `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

// ExportDateFilter echoes the time window an export was restricted to.
type ExportDateFilter struct {
	Since *time.Time `json:"since,omitempty"`
	Until *time.Time `json:"until,omitempty"`
}

// ExportMetadata is the trailing metadata member of an exported
// FeatureCollection. All counts are accumulated in the same single pass that
// writes the features, so producing them costs no extra store scan.
//
// Fields:
//   - ExportTimestamp: when the export was generated
//   - FeatureCount: features actually written
//   - RowsScanned: store rows the cursor visited
//   - InvalidRecords: rows skipped for missing or out-of-range coordinates
//   - ThinnedRecords: rows skipped by the sample-rate stride
//   - SampleRate: the requested keep ratio in [0.1, 1.0]
//   - OwnerCounts/TypeCounts: per-owner and per-type feature counts
type ExportMetadata struct {
	ExportTimestamp time.Time         `json:"export_timestamp"`
	FeatureCount    int64             `json:"feature_count"`
	RowsScanned     int64             `json:"rows_scanned"`
	InvalidRecords  int64             `json:"invalid_records"`
	ThinnedRecords  int64             `json:"thinned_records"`
	SampleRate      float64           `json:"sample_rate"`
	DateFilter      *ExportDateFilter `json:"date_filter,omitempty"`
	OwnerCounts     map[string]int64  `json:"owner_counts,omitempty"`
	TypeCounts      map[string]int64  `json:"type_counts,omitempty"`
	ExportedBy      string            `json:"exported_by"`
}
