// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package database

import (
	"context"
	"fmt"
)

// mappablePredicate selects rows that can be placed on a map: coordinates
// present, within WGS84 range, and not the (0,0) null island placeholder
// some exporters emit for unknown positions. Must stay in sync with
// models.Record.Mappable and PointRow.Mappable.
const mappablePredicate = `latitude IS NOT NULL AND longitude IS NOT NULL
		AND latitude BETWEEN -90 AND 90
		AND longitude BETWEEN -180 AND 180
		AND NOT (latitude = 0 AND longitude = 0)`

// createSchema creates all tables and indexes. Every statement is
// idempotent (IF NOT EXISTS), so reopening an existing database is a no-op.
func (db *DB) createSchema(ctx context.Context) error {
	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	for _, query := range indexCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// tableCreationQueries returns the CREATE TABLE statements for the store.
//
// location_records is the single canonical relation every ingest format
// normalizes into. Columns are grouped by the record type that populates
// them; a row carries NULLs for the groups that do not apply to its type.
// The surrogate id is assigned by the appender (see records.go), not a
// sequence, because the native bulk path supplies every column itself.
func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS location_records (
			-- ==================== Identity ====================
			id BIGINT NOT NULL,
			upload_id VARCHAR,
			owner_key VARCHAR NOT NULL,
			record_type VARCHAR NOT NULL,

			-- ==================== Temporal (UTC) ====================
			-- Interval records carry start_time/end_time, instant records
			-- carry point_time.
			start_time TIMESTAMP,
			end_time TIMESTAMP,
			point_time TIMESTAMP,

			-- ==================== Coordinates (WGS84) ====================
			-- Jointly present or jointly NULL; validated before storage.
			latitude DOUBLE,
			longitude DOUBLE,

			-- ==================== Visit fields ====================
			visit_place_id VARCHAR,
			visit_semantic_type VARCHAR,
			visit_probability DOUBLE,

			-- ==================== Activity fields ====================
			activity_type VARCHAR,
			activity_distance_meters DOUBLE,
			activity_probability DOUBLE,

			-- ==================== Track point fields ====================
			elevation DOUBLE,
			speed DOUBLE,
			source VARCHAR,
			track_name VARCHAR,
			sequence_index BIGINT,

			-- ==================== Bookkeeping ====================
			created_at TIMESTAMP NOT NULL
		);`,
	}
}

// indexCreationQueries returns the CREATE INDEX statements.
//
// Every read path filters by owner_key first, so the owner indexes carry
// the query load. Time columns are indexed descending to match the
// most-recent-first ordering of map and export reads.
func indexCreationQueries() []string {
	return []string{
		// Owner scoping (owners listing, per-owner delete)
		`CREATE INDEX IF NOT EXISTS idx_location_records_owner
			ON location_records(owner_key);`,

		// Map and export reads: owner + time window
		`CREATE INDEX IF NOT EXISTS idx_location_records_owner_start
			ON location_records(owner_key, start_time DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_location_records_owner_point
			ON location_records(owner_key, point_time DESC);`,
	}
}
