// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

/*
Package main is the entry point for the Itinerarium server application.

Itinerarium is a self-hosted location history service. It ingests Google
Takeout location exports, stores the points in DuckDB, and serves timeline
queries, density-reduced map points for rendering, and streaming GeoJSON
exports, with real-time upload progress over WebSocket.

# Application Architecture

The server implements a layered architecture with Suture v4 process supervision:

	RootSupervisor ("itinerarium")
	├── DataSupervisor ("data-layer")
	│   └── Ledger GC (upload ledger retention sweep)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket Hub (real-time updates)
	│   ├── Event Router (retry/poison-queue middleware over bus consumers)
	│   └── NATS components (optional, -tags nats)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (REST API + WebSocket upgrade)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Database: DuckDB record store (a failed open starts the server degraded)
 4. Upload Ledger: BadgerDB ledger, plus a sweep of interrupted uploads
 5. Event Bus: In-process Watermill pub/sub for upload lifecycle events
 6. Event Router: Retry, throttle, and poison-queue middleware
 7. NATS Mirror: JetStream mirroring of bus topics (optional, -tags nats)
 8. Supervisor Tree: Suture v4 process supervision
 9. HTTP Server: Chi router with middleware stack

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	# Server
	HTTP_PORT=4326               # HTTP server port (EPSG:4326 reference)
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	# Storage
	DUCKDB_PATH=/data/itinerarium.duckdb
	LEDGER_PATH=/data/ledger     # BadgerDB upload ledger
	LEDGER_RETENTION_DAYS=90

	# Ingest
	UPLOAD_MAX_SIZE_MB=1024      # Reject larger uploads with 413
	INPUT_TIMEZONE=UTC           # Home timezone for pre-offset Takeout files
	INGEST_CHUNK_SIZE=5000       # Records per DuckDB append batch

	# NATS mirror (requires -tags nats)
	NATS_ENABLED=false
	NATS_EMBEDDED=true
	NATS_STORE_DIR=/data/nats/jetstream

See .env.example for complete configuration reference.

# Degraded Mode

A DuckDB store that fails to open does not stop the server:

	- Uploads are still accepted and recorded in the ledger
	- Health endpoints keep answering (ready reports the store unhealthy)
	- Store-backed endpoints return 503 STORE_UNAVAILABLE

Only a ledger that cannot open is fatal. Without it no upload can be
tracked at all.

# Build Tags

Optional build tags enable additional functionality:

	go build ./cmd/server               # Standard build
	go build -tags nats ./cmd/server    # Enable NATS JetStream mirroring

Build tags affect supervisor tree composition:
  - nats: Adds NATSComponentsService to the messaging layer

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:

 1. Stops accepting new HTTP connections
 2. Waits for in-flight requests (10s timeout)
 3. Drains the event router and closes the bus
 4. Flushes pending writes and closes ledger and database
 5. Reports any services that failed to stop

Uploads still running when the process exits are swept to interrupted by
the next start.

# Usage Examples

Development:

	export DUCKDB_PATH=./itinerarium.duckdb
	export LEDGER_PATH=./ledger
	go run ./cmd/server

Production:

	export DUCKDB_PATH=/data/itinerarium.duckdb
	export LEDGER_PATH=/data/ledger
	export UPLOAD_MAX_SIZE_MB=512
	export INPUT_TIMEZONE=Europe/Berlin
	./itinerarium

Docker:

	docker run -d \
	  -v itinerarium-data:/data \
	  -p 4326:4326 \
	  ghcr.io/tomtom215/itinerarium

# Port 4326

The default port 4326 references EPSG:4326 (WGS 84), the coordinate
reference system of the latitude/longitude pairs in every Takeout export.

# API Documentation

Swagger documentation is available at /swagger/index.html when the server
is running. The API is organized into categories:

  - Core: Health checks, statistics, owners, upload history
  - Ingest: Takeout upload (bare JSON, gzip, or multipart)
  - Query: Map points with density reduction, per-owner summaries
  - Export: Streaming GeoJSON with reservoir sampling
  - Realtime: WebSocket upload progress and stats updates

# See Also

  - internal/config: Configuration management
  - internal/supervisor: Process supervision
  - internal/api: HTTP handlers and routing
  - internal/timeline: Takeout parsing and the ingest pipeline
  - internal/uploads: Upload ledger and lifecycle tracking
*/
package main
