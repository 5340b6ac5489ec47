// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

// Package timeline is the ingest and query core: it turns raw location
// history exports into canonical records, bulk-loads them into DuckDB, and
// answers the sampled map, GeoJSON export, and statistics queries over them.
//
// # Ingest Pipeline
//
// One upload flows through three stages connected by bounded channels:
//
//	┌──────────────┐      ┌─────────────────┐      ┌────────────┐
//	│StreamingParser│ ──► │ RecordValidator │ ──► │ BulkLoader │ ──► DuckDB
//	└──────────────┘      └─────────────────┘      └────────────┘
//	 detects format        one entry in,            chunked bulk
//	 token streaming       one outcome out          appends
//
// The parser never materializes the document: it decodes one segment at a
// time and flattens it into RawEntries immediately, so a multi-gigabyte
// export costs the same memory as a small one. Three source forms are
// accepted: the Android semanticSegments object, the iPhone top-level
// array, and newline-delimited track recorder objects.
//
// The validator maps each entry to exactly one outcome. Records with
// missing coordinates or unparseable timestamps are kept degraded (Warned);
// out-of-range or unparseable coordinates, inverted time windows, and
// implausible probability or distance values reject the record.
//
// The loader writes chunks through the store's bulk append path behind a
// circuit breaker, with one retry for transient failures and split-then-
// isolate handling for chunks the store refuses on data grounds. Writes for
// one owner never interleave.
//
// Terminal semantics: a malformed document fails the upload and backs out
// anything already committed; a store failure mid-load keeps the committed
// prefix and ends CompletedPartial.
//
// # Query Side
//
// ZoomSampler answers map point queries with deterministic positional
// sampling driven by a zoom tier table, over newest-first keyset pages.
// GeoJSONExporter streams an RFC 7946 FeatureCollection with a trailing
// metadata member whose counts come from the same single pass.
package timeline
