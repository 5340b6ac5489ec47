// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/itinerarium/internal/metrics"
	"github.com/tomtom215/itinerarium/internal/models"
)

// topLabelLimit caps the per-owner label breakdowns in owner summaries.
const topLabelLimit = 10

// GetStats computes store-wide statistics in one scan: grand totals, the
// coordinate validity split, the observed date range, and per-owner and
// per-type breakdowns.
//
// GROUPING SETS lets DuckDB produce all three aggregation levels from a
// single pass over the table. Rows are routed by which grouping column is
// non-null; that is unambiguous because owner_key and record_type are NOT
// NULL in the schema, so a null there can only mean "aggregated over".
func (db *DB) GetStats(ctx context.Context) (*models.StatsResponse, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT
			owner_key,
			record_type,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE ` + mappablePredicate + `) AS valid_coords,
			MIN(COALESCE(start_time, point_time)) AS earliest,
			MAX(COALESCE(start_time, point_time)) AS latest
		FROM location_records
		GROUP BY GROUPING SETS ((owner_key), (record_type), ())`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query)
	metrics.RecordDBQuery("stats", "location_records", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer closeQuietly(rows)

	stats := &models.StatsResponse{
		UserStats: make(map[string]models.OwnerStats),
		TypeStats: make(map[string]int64),
	}

	for rows.Next() {
		var (
			ownerKey   *string
			recordType *string
			total      int64
			valid      int64
			earliest   *time.Time
			latest     *time.Time
		)
		if err := rows.Scan(&ownerKey, &recordType, &total, &valid, &earliest, &latest); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}

		switch {
		case ownerKey != nil:
			stats.UserStats[*ownerKey] = models.OwnerStats{
				TotalRecords:     total,
				ValidCoordinates: valid,
			}
		case recordType != nil:
			stats.TypeStats[*recordType] = total
		default:
			stats.TotalRecords = total
			stats.ValidCoordinates = valid
			stats.InvalidCoordinates = total - valid
			stats.DateRange = models.DateRange{Earliest: earliest, Latest: latest}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stats rows: %w", err)
	}

	return stats, nil
}

// ListOwners returns every owner with records in the store, most records
// first, with per-owner counts and the latest observed timestamp.
func (db *DB) ListOwners(ctx context.Context) ([]models.OwnerInfo, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT
			owner_key,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE ` + mappablePredicate + `) AS valid_coords,
			MAX(COALESCE(start_time, point_time)) AS latest
		FROM location_records
		GROUP BY owner_key
		ORDER BY total DESC, owner_key ASC`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query)
	metrics.RecordDBQuery("list_owners", "location_records", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	defer closeQuietly(rows)

	// Empty slice, not nil, so the response serializes as [].
	owners := []models.OwnerInfo{}
	for rows.Next() {
		var info models.OwnerInfo
		if err := rows.Scan(&info.OwnerKey, &info.TotalRecords, &info.ValidCoordinates, &info.LatestRecord); err != nil {
			return nil, fmt.Errorf("failed to scan owner row: %w", err)
		}
		owners = append(owners, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate owner rows: %w", err)
	}

	return owners, nil
}

// GetOwnerSummary returns one owner's type distribution, date range, and
// the most frequent visit semantic labels and activity kinds. An owner
// with no records yields a summary with zero totals; existence is the
// caller's call to make.
func (db *DB) GetOwnerSummary(ctx context.Context, owner string) (*models.OwnerSummary, error) {
	if owner == "" {
		return nil, fmt.Errorf("owner key is required")
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	summary := &models.OwnerSummary{
		OwnerKey:         owner,
		TypeCounts:       make(map[string]int64),
		TopSemanticTypes: []models.LabelCount{},
		TopActivityTypes: []models.LabelCount{},
	}

	query := `
		SELECT
			record_type,
			COUNT(*) AS total,
			MIN(COALESCE(start_time, point_time)) AS earliest,
			MAX(COALESCE(start_time, point_time)) AS latest
		FROM location_records
		WHERE owner_key = ?
		GROUP BY record_type`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, owner)
	metrics.RecordDBQuery("owner_summary", "location_records", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query owner summary: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var (
			recordType string
			total      int64
			earliest   *time.Time
			latest     *time.Time
		)
		if err := rows.Scan(&recordType, &total, &earliest, &latest); err != nil {
			return nil, fmt.Errorf("failed to scan owner summary row: %w", err)
		}

		summary.TypeCounts[recordType] = total
		summary.TotalRecords += total
		summary.DateRange = mergeDateRange(summary.DateRange, earliest, latest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate owner summary rows: %w", err)
	}

	semantic, err := db.topLabelCounts(ctx, owner, "visit_semantic_type")
	if err != nil {
		return nil, err
	}
	summary.TopSemanticTypes = semantic

	activity, err := db.topLabelCounts(ctx, owner, "activity_type")
	if err != nil {
		return nil, err
	}
	summary.TopActivityTypes = activity

	return summary, nil
}

// topLabelCounts returns the most frequent non-empty values of the given
// label column for one owner. The column name is a trusted identifier
// supplied by GetOwnerSummary, never user input.
func (db *DB) topLabelCounts(ctx context.Context, owner, column string) ([]models.LabelCount, error) {
	query := fmt.Sprintf(`
		SELECT %s AS label, COUNT(*) AS total
		FROM location_records
		WHERE owner_key = ? AND %s IS NOT NULL AND %s != ''
		GROUP BY label
		ORDER BY total DESC, label ASC
		LIMIT %d`, column, column, column, topLabelLimit)

	rows, err := db.conn.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s counts: %w", column, err)
	}
	defer closeQuietly(rows)

	counts := []models.LabelCount{}
	for rows.Next() {
		var lc models.LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan %s count: %w", column, err)
		}
		counts = append(counts, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s counts: %w", column, err)
	}

	return counts, nil
}

// mergeDateRange widens a range to include another min/max pair.
func mergeDateRange(r models.DateRange, earliest, latest *time.Time) models.DateRange {
	if earliest != nil && (r.Earliest == nil || earliest.Before(*r.Earliest)) {
		r.Earliest = earliest
	}
	if latest != nil && (r.Latest == nil || latest.After(*r.Latest)) {
		r.Latest = latest
	}
	return r
}
