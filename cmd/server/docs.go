// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

// Package main provides the Itinerarium HTTP server
//
// Itinerarium API ingests Google Takeout location history exports and
// serves timeline queries, density-reduced map points, and streaming
// GeoJSON exports.
//
// @title Itinerarium API
// @version 1.0
// @description Self-hosted location history ingest and visualization service
// @description
// @description ## Features
// @description
// @description - **Takeout Ingest**: Records.json and Semantic Location History uploads, bare or gzip-compressed, parsed in streaming chunks
// @description - **Density Reduction**: Map point queries thinned to a render budget with spatial bucketing
// @description - **Streaming Export**: GeoJSON FeatureCollection export with single-pass reservoir sampling
// @description - **Upload Ledger**: Every upload tracked through its lifecycle, surviving restarts
// @description - **Real-time Updates**: WebSocket notifications for upload progress and stats changes
// @description
// @description ## Rate Limiting
// @description
// @description Default rate limit: 100 requests per minute per IP address, with
// @description separate budgets for uploads, exports, and destructive writes.
// @description Rate limit headers are included in responses: `X-RateLimit-Limit`, `X-RateLimit-Remaining`, `X-RateLimit-Reset`.
// @description
// @description ## Error Responses
// @description
// @description All error responses follow this format:
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {
// @description     "code": "ERROR_CODE",
// @description     "message": "Human-readable error message",
// @description     "details": {}
// @description   },
// @description   "metadata": {
// @description     "timestamp": "2026-08-23T12:34:56Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/itinerarium/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:4326
// @BasePath /api/v1
// @schemes http https
//
// @tag.name health
// @tag.description Health and readiness checks for monitors and orchestrators
//
// @tag.name timeline
// @tag.description Takeout upload endpoint and the accepted-format listing
//
// @tag.name map
// @tag.description Density-reduced point queries for map rendering
//
// @tag.name stats
// @tag.description Record statistics and coordinate validity breakdowns
//
// @tag.name owners
// @tag.description Per-owner summaries and record management
//
// @tag.name uploads
// @tag.description Upload ledger history and per-upload status
//
// @tag.name export
// @tag.description Streaming GeoJSON export with filtering and reservoir sampling
//
// @tag.name events
// @tag.description Real-time WebSocket stream of upload progress and statistics updates
package main
