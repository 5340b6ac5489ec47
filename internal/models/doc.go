// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

// Package models defines data structures used throughout the Itinerarium application.
//
// The package is organized by concern:
//
//   - record.go: Record, the canonical row shape every ingest format
//     normalizes into, plus the RecordType enumeration
//   - upload.go: upload lifecycle state machine and per-upload summaries
//   - api_responses.go: standardized HTTP API envelope and endpoint payloads
//   - geojson.go: GeoJSON Feature/FeatureCollection types used by the
//     streaming exporter
//
// Models in this package are plain data carriers. Parsing, validation, and
// persistence live in internal/timeline and internal/database; keeping the
// types dependency-free lets every layer share them without import cycles.
package models
