// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

// Package database provides the DuckDB-backed store for canonical location
// records.
//
// # Overview
//
// This package is the persistence layer between the ingest pipeline and the
// query endpoints. It owns the location_records schema and exposes three
// kinds of operations: the bulk append path the loader writes chunks
// through, keyset-paginated narrow reads for map and export queries, and
// grouped aggregates for statistics.
//
// # Architecture
//
// The package is organized by concern:
//
//   - database.go: lifecycle (open, pool configuration, checkpoint, close)
//   - schema.go: table and index creation, the shared mappable predicate
//   - records.go: native-appender bulk writes, id seeding, owner deletes
//   - query.go: RecordQuery filters, PointRow pages, counting
//   - stats.go: store-wide stats, owner listings, owner summaries
//   - errors.go: transient vs structural error classification
//
// # Database Technology
//
// The store is DuckDB (github.com/duckdb/duckdb-go/v2), an embedded OLAP
// engine. The choice matters in three places:
//
//   - Bulk ingest uses the driver's native Appender: rows are buffered into
//     column vectors inside the engine and materialized on flush, with no
//     per-row SQL round trip. This is what sustains bulk-load throughput
//     on the order of 10^5 records/second.
//   - Aggregates lean on analytic SQL (GROUPING SETS, FILTER clauses) so
//     statistics come from a single scan.
//   - Extension autoloading is disabled in the connection string; the
//     binary never fetches anything at runtime.
//
// # Usage
//
// Open and close:
//
//	db, err := database.New(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
// Bulk append (the loader's path):
//
//	saved, err := db.AppendRecords(ctx, chunk)
//
// Paged reads (the sampler's and exporter's path):
//
//	q := database.RecordQuery{Owner: owner, MappableOnly: true, BatchSize: 2000}
//	var after *database.RecordPageKey
//	for {
//	    page, next, err := db.FetchRecordPage(ctx, q, after)
//	    if err != nil {
//	        return err
//	    }
//	    // consume page
//	    if next == nil {
//	        break
//	    }
//	    after = next
//	}
//
// # Concurrency
//
// All exported methods are safe for concurrent use. Reads run concurrently
// with appends under DuckDB snapshot isolation; a read started before a
// chunk commits will not observe that chunk. Same-owner write serialization
// is enforced by the ingest loader, not here.
//
// # Error Handling
//
// Errors are wrapped with fmt.Errorf %w and classified by errors.go:
// IsTransientError marks failures worth one retry (connection loss,
// write-write conflicts), IsStructuralError marks data-caused failures
// where the caller should split the chunk instead of retrying it.
//
// # See Also
//
//   - internal/timeline: the pipeline that writes through AppendRecords and
//     reads through FetchRecordPage
//   - internal/models: the canonical record and response types
//   - docs/adr/0001-duckdb-record-store.md: why an embedded OLAP engine
package database
