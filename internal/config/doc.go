// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

/*
Package config provides centralized configuration management for Itinerarium.

This package handles loading, validation, and parsing of configuration for all
application components. It layers built-in defaults, an optional YAML config
file, and environment variables (highest precedence) through Koanf v2, and
validates the result before any component sees it.

# Configuration Sources

The package reads configuration from, in order of increasing precedence:
  - Built-in defaults (defaultConfig)
  - YAML config file (config.yaml, or CONFIG_PATH)
  - Environment variables

# Configuration Structure

The package organizes configuration into logical groups:

  - ServerConfig: HTTP server settings (host, port, timeout, environment)
  - DatabaseConfig: DuckDB path and performance tuning
  - IngestConfig: Upload pipeline chunking, buffering, size and admission limits
  - SamplingConfig: Map point query ceiling
  - ExportConfig: GeoJSON export batching and default windows
  - LedgerConfig: BadgerDB upload history retention
  - NATSConfig: Optional JetStream event mirroring ("nats" build tag)
  - CacheConfig: Response cache strategy
  - APIConfig: Pagination limits
  - SecurityConfig: Rate limiting, CORS, trusted proxies
  - LoggingConfig: zerolog level and format

# Environment Variables

Flat single-purpose names map onto the nested structure (see envTransformFunc):

HTTP Server (ServerConfig):
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - HTTP_PORT: Listen port (default: 4326)
  - HTTP_TIMEOUT: Handler timeout (default: 30s)
  - ENVIRONMENT: development, staging, production (default: development)

Database (DatabaseConfig):
  - DUCKDB_PATH: Database file path (default: /data/itinerarium.duckdb)
  - DUCKDB_MAX_MEMORY: Memory limit (default: 2GB)
  - DUCKDB_THREADS: Thread count (default: CPU count)

Ingest Pipeline (IngestConfig):
  - INGEST_CHUNK_SIZE: Records per bulk-append chunk (default: 1000)
  - INGEST_BUFFER_DEPTH: Pipeline channel capacity (default: 256)
  - INGEST_MAX_ERROR_LIST: Per-upload error cap (default: 50)
  - INGEST_MAX_CONCURRENT_UPLOADS: Parallel pipelines (default: 4)
  - UPLOAD_MAX_SIZE_MB: Upload body ceiling in MB (default: 100)
  - INPUT_TIMEZONE: Zone for zone-less timestamps (default: UTC)

Upload Ledger (LedgerConfig):
  - LEDGER_PATH: BadgerDB directory (default: /data/ledger)
  - LEDGER_RETENTION_DAYS: History retention (default: 90)

# Usage Example

Basic configuration loading:

	import "github.com/tomtom215/itinerarium/internal/config"

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
	    log.Fatalf("Failed to load config: %v", err)
	}

	// Access configuration values
	fmt.Printf("Starting server on %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	fmt.Printf("Chunk size: %d\n", cfg.Ingest.ChunkSize)

Testing with custom configuration:

	// Override environment variables for testing
	os.Setenv("HTTP_PORT", "8080")
	os.Setenv("DUCKDB_PATH", t.TempDir()+"/test.duckdb")

	cfg, err := config.Load()
	// Use cfg for testing

# Validation

The package performs comprehensive validation:

  - Numeric ranges: HTTP_PORT (1-65535), INGEST_CHUNK_SIZE (1-10000),
    SAMPLING_MAX_POINTS (1000-10000000)
  - Duration ranges: HTTP_TIMEOUT (1s-10m), LEDGER_GC_INTERVAL (1m-24h)
  - Timezone: INPUT_TIMEZONE must resolve via time.LoadLocation
  - URL formats: NATS_URL must use nats/tls/ws/wss schemes (when enabled)

# Defaults

Sensible defaults are provided for all settings:

  - HTTP_PORT: 4326 (matches EPSG:4326, the WGS84 lat/lng CRS of the data)
  - INGEST_CHUNK_SIZE: 1000 (balances append throughput and retry granularity)
  - UPLOAD_MAX_SIZE_MB: 100 (covers multi-year phone exports)
  - SAMPLING_MAX_POINTS: 100000 (browser rendering ceiling)
  - CACHE_TTL: 60 seconds (read endpoints between uploads)
  - DUCKDB_THREADS: CPU count (max parallelism)

# Hot Reload

WatchConfigFile watches the YAML config file and invokes a callback on change.
The server uses this to hot-reload the log level without restart; structural
settings (ports, paths, pool sizes) require a restart.

# Thread Safety

The Config struct is immutable after Load() returns, making it safe for concurrent
access from multiple goroutines without synchronization.

# See Also

  - config.example.yaml: YAML configuration template
  - .env.example: Flat environment variable reference
*/
package config
