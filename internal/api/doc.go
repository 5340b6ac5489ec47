// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

// Package api implements the HTTP surface of the service: timeline upload
// ingestion, map point queries, GeoJSON export streaming, upload history,
// owner management, and operational health endpoints.
//
// Every JSON endpoint responds with the models.APIResponse envelope
// (status, data, metadata, error); the GeoJSON export endpoint streams a
// bare RFC 7946 FeatureCollection instead so the output opens directly in
// GIS tools. Routing is chi v5 with per-group rate limits, CORS, security
// headers, request IDs, and gzip compression.
//
// Handlers are deliberately thin. Parameter parsing and validation happen
// here; ingest behavior lives in internal/timeline and internal/uploads,
// query behavior in internal/database, and cross-cutting notification in
// internal/events and internal/websocket.
package api
