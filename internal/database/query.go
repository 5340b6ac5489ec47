// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/itinerarium/internal/metrics"
	"github.com/tomtom215/itinerarium/internal/models"
)

// defaultPageSize is the batch size used when a RecordQuery does not set
// one. Matches the export batching default.
const defaultPageSize = 2000

// RecordQuery describes one read over location_records. All fields are
// optional and combine with AND; the zero value matches every record.
//
// Fields:
//   - Owner: restrict to one owner key (empty = all owners)
//   - Types: restrict to a set of record types (empty = all types)
//   - Since/Until: bounds on the display time COALESCE(start_time, point_time);
//     records without either timestamp never match a bounded window
//   - MappableOnly: only rows with valid, non-null-island coordinates
//   - BatchSize: rows per page for FetchRecordPage (default 2000)
type RecordQuery struct {
	Owner        string
	Types        []models.RecordType
	Since        *time.Time
	Until        *time.Time
	MappableOnly bool
	BatchSize    int
}

// buildConditions renders the query's filters as a WHERE clause fragment
// starting with " AND", plus the matching parameter list. Callers append
// the fragment after a "WHERE 1=1" base.
func (q RecordQuery) buildConditions() (string, []interface{}) {
	var sb strings.Builder
	args := []interface{}{}

	if q.Owner != "" {
		sb.WriteString(" AND owner_key = ?")
		args = append(args, q.Owner)
	}

	if len(q.Types) > 0 {
		placeholders := make([]string, len(q.Types))
		for i, t := range q.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		fmt.Fprintf(&sb, " AND record_type IN (%s)", strings.Join(placeholders, ", "))
	}

	if q.Since != nil {
		sb.WriteString(" AND COALESCE(start_time, point_time) >= ?")
		args = append(args, q.Since.UTC())
	}
	if q.Until != nil {
		sb.WriteString(" AND COALESCE(start_time, point_time) <= ?")
		args = append(args, q.Until.UTC())
	}

	if q.MappableOnly {
		sb.WriteString(" AND " + mappablePredicate)
	}

	return sb.String(), args
}

// PointRow is the narrow projection map and export reads scan: enough to
// build a map point or an export feature without pulling full records.
//
// Time is the display time (start_time, else point_time) and is nil for
// records that carried no timestamp. SortTime is the pagination key: the
// display time falling back to created_at, so it is never null and gives
// every row a total order together with ID.
type PointRow struct {
	ID        int64
	OwnerKey  string
	Type      models.RecordType
	Latitude  *float64
	Longitude *float64
	Semantic  *string
	Activity  *string
	Time      *time.Time
	SortTime  time.Time
}

// Mappable reports whether the row's coordinates can be placed on a map.
// Mirrors models.Record.Mappable for the narrow projection.
func (r *PointRow) Mappable() bool {
	if r.Latitude == nil || r.Longitude == nil {
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

// RecordPageKey is the keyset cursor for FetchRecordPage: the sort key of
// the last row of the previous page. Stateless between calls, so a paging
// loop holds no database resources while it processes a page.
type RecordPageKey struct {
	SortTime time.Time
	ID       int64
}

// FetchRecordPage returns one page of rows matching q, ordered
// most-recent-first by display time (ties broken by id descending), starting
// strictly after the given key. A nil key starts from the newest row.
//
// Returns the page, the key for the next page (nil when this was the last
// page), and any error. Pagination is keyset-based on the
// (sort_time, id) tuple rather than OFFSET, so deep pages cost the same as
// the first and concurrent appends never shift rows between pages already
// read.
func (db *DB) FetchRecordPage(ctx context.Context, q RecordQuery, after *RecordPageKey) ([]PointRow, *RecordPageKey, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	batch := q.BatchSize
	if batch <= 0 {
		batch = defaultPageSize
	}

	conditions, args := q.buildConditions()

	query := `
		SELECT
			id,
			owner_key,
			record_type,
			latitude,
			longitude,
			visit_semantic_type,
			activity_type,
			COALESCE(start_time, point_time) AS display_time,
			COALESCE(start_time, point_time, created_at) AS sort_time
		FROM location_records
		WHERE 1=1` + conditions

	if after != nil {
		query += `
			AND (COALESCE(start_time, point_time, created_at), id) < (?, ?)`
		args = append(args, after.SortTime, after.ID)
	}

	query += `
		ORDER BY sort_time DESC, id DESC
		LIMIT ?`

	// Fetch one extra row to detect whether another page exists.
	fetchLimit := batch + 1
	args = append(args, fetchLimit)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select_page", "location_records", time.Since(start), err)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query record page: %w", err)
	}
	defer closeQuietly(rows)

	page := make([]PointRow, 0, batch)
	for rows.Next() {
		var (
			row        PointRow
			recordType string
		)
		if err := rows.Scan(
			&row.ID,
			&row.OwnerKey,
			&recordType,
			&row.Latitude,
			&row.Longitude,
			&row.Semantic,
			&row.Activity,
			&row.Time,
			&row.SortTime,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan record row: %w", err)
		}
		row.Type = models.RecordType(recordType)
		page = append(page, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate record rows: %w", err)
	}

	var next *RecordPageKey
	if len(page) > batch {
		page = page[:batch]
		last := page[len(page)-1]
		next = &RecordPageKey{SortTime: last.SortTime, ID: last.ID}
	}

	return page, next, nil
}

// CountRecords returns the number of records matching q. Used by the map
// endpoint for the true total alongside a sampled page, and by stats-style
// callers for quick cardinality checks.
func (db *DB) CountRecords(ctx context.Context, q RecordQuery) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	conditions, args := q.buildConditions()
	query := "SELECT COUNT(*) FROM location_records WHERE 1=1" + conditions

	start := time.Now()
	var count int64
	err := db.conn.QueryRowContext(ctx, query, args...).Scan(&count)
	metrics.RecordDBQuery("count", "location_records", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}
