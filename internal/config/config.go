// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package config

import (
	"time"
)

// Config holds all application configuration loaded from environment variables and config files.
// Provides centralized configuration management for all application components including
// the ingest pipeline, database, HTTP server, upload ledger, event bus, and logging.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Configuration Categories:
//
//  1. Ingest Path:
//     - Ingest: Upload limits, chunking, pipeline buffering, timezone handling
//     - Database: DuckDB configuration (path, memory, threads)
//     - Ledger: BadgerDB upload history and idempotency store
//
//  2. Query Path:
//     - Sampling: Map point query caps
//     - Export: GeoJSON export batching and default windows
//     - Cache: Response cache strategy and TTL
//
//  3. Infrastructure:
//     - Server: HTTP server configuration (port, host, timeout)
//     - NATS: Optional event mirroring with Watermill/NATS JetStream
//     - API: Pagination and response limits
//     - Security: Rate limiting, CORS, trusted proxies
//
//  4. Observability:
//     - Logging: Log levels and output formats
//
// Example - Load configuration from environment:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	// cfg.Database.Path, cfg.Ingest.ChunkSize, etc. are now populated
//
// Example - Access configuration values:
//
//	db, err := database.New(cfg.Database)
//	pipeline := timeline.NewPipeline(cfg.Ingest, db)
//	server := http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)}
//
// Validation:
// The Load() function validates all fields and returns an error if:
//   - Values are out of bounds (port, chunk size, buffer depth, retention)
//   - The ingest timezone cannot be resolved
//   - NATS is enabled with malformed connection settings
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access from multiple goroutines.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Sampling SamplingConfig `koanf:"sampling"`
	Export   ExportConfig   `koanf:"export"`
	Ledger   LedgerConfig   `koanf:"ledger"`
	NATS     NATSConfig     `koanf:"nats"` // Optional: mirror upload events to NATS JetStream (build tag "nats")
	Cache    CacheConfig    `koanf:"cache"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_PORT: Listen port (default: 4326)
//   - HTTP_HOST: Listen address (default: 0.0.0.0)
//   - HTTP_TIMEOUT: Read/write timeout for non-streaming handlers (default: 30s)
//   - ENVIRONMENT: "development", "staging", "production" (default: development)
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings.
//
// Environment Variables:
//   - DUCKDB_PATH: Database file path (default: /data/itinerarium.duckdb)
//   - DUCKDB_MAX_MEMORY: DuckDB memory limit (default: 2GB)
//   - DUCKDB_THREADS: DuckDB thread count, 0 = runtime.NumCPU() (default: 0)
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`                  // Number of DuckDB threads (0 = use NumCPU)
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"` // Whether to preserve insertion order (default true)
}

// IngestConfig holds upload pipeline settings.
// Chunk size and buffer depth together bound the pipeline's peak memory:
// parse/validate/load stages are connected by channels of BufferDepth entries,
// and the loader accumulates at most ChunkSize records before flushing.
//
// Environment Variables:
//   - INGEST_CHUNK_SIZE: Records per bulk-append chunk (default: 1000)
//   - INGEST_BUFFER_DEPTH: Pipeline channel capacity in records (default: 256)
//   - INGEST_MAX_ERROR_LIST: Max per-upload error strings retained (default: 50)
//   - INGEST_MAX_CONCURRENT_UPLOADS: Simultaneous upload pipelines (default: 4)
//   - UPLOAD_MAX_SIZE_MB: Max accepted upload body in MB (default: 100)
//   - INPUT_TIMEZONE: IANA zone for zone-less source timestamps (default: UTC)
//   - INGEST_RETRY_DELAY: Backoff before retrying a transient chunk failure (default: 500ms)
//   - INGEST_OWNER_UPLOADS_PER_MINUTE: Per-owner upload admission rate (default: 6)
//   - INGEST_OWNER_UPLOAD_BURST: Per-owner admission burst (default: 2)
type IngestConfig struct {
	ChunkSize            int           `koanf:"chunk_size"`
	BufferDepth          int           `koanf:"buffer_depth"`
	MaxErrorList         int           `koanf:"max_error_list"`
	MaxConcurrentUploads int           `koanf:"max_concurrent_uploads"`
	MaxUploadMB          int64         `koanf:"max_upload_mb"`
	DefaultTimezone      string        `koanf:"default_timezone"` // Applied to source timestamps that carry no zone
	RetryDelay           time.Duration `koanf:"retry_delay"`
	OwnerUploadsPerMin   int           `koanf:"owner_uploads_per_minute"`
	OwnerUploadBurst     int           `koanf:"owner_upload_burst"`
}

// MaxUploadBytes returns the configured upload size ceiling in bytes.
func (c IngestConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// SamplingConfig holds map point query settings.
// Zoom tier keep-ratios are fixed in code (internal/timeline), not configurable;
// only the global point ceiling is operator-tunable.
//
// Environment Variables:
//   - SAMPLING_MAX_POINTS: Hard cap on points returned per map query (default: 100000)
type SamplingConfig struct {
	MaxPoints int `koanf:"max_points"`
}

// ExportConfig holds GeoJSON export settings.
//
// Environment Variables:
//   - EXPORT_BATCH_SIZE: Rows fetched per cursor batch while streaming (default: 2000)
//   - EXPORT_DEFAULT_LIMIT: Default max features when the request omits limit (default: 10000)
//   - EXPORT_DEFAULT_DAYS: Default lookback window in days (default: 30)
type ExportConfig struct {
	BatchSize    int `koanf:"batch_size"`
	DefaultLimit int `koanf:"default_limit"`
	DefaultDays  int `koanf:"default_days"`
}

// LedgerConfig holds BadgerDB upload ledger settings.
// The ledger stores upload history and the content-hash index used for
// idempotent duplicate replay. Entries expire after RetentionDays.
//
// Environment Variables:
//   - LEDGER_PATH: BadgerDB directory (default: /data/ledger)
//   - LEDGER_RETENTION_DAYS: Upload history retention (default: 90)
//   - LEDGER_GC_INTERVAL: Value-log garbage collection interval (default: 10m)
type LedgerConfig struct {
	Path          string        `koanf:"path"`
	RetentionDays int           `koanf:"retention_days"`
	GCInterval    time.Duration `koanf:"gc_interval"`
}

// Retention returns the ledger entry TTL derived from RetentionDays.
func (c LedgerConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// NATSConfig holds optional NATS JetStream event mirroring settings.
// The in-process Watermill bus always runs; when the binary is built with the
// "nats" tag and Enabled is true, upload lifecycle events are additionally
// published to JetStream for external consumers.
//
// Environment Variables:
//   - NATS_ENABLED: Enable JetStream mirroring (default: false)
//   - NATS_URL: NATS server URL (default: nats://127.0.0.1:4222)
//   - NATS_EMBEDDED: Run an embedded NATS server (default: true)
//   - NATS_STORE_DIR: JetStream storage directory (default: /data/nats/jetstream)
//   - NATS_MAX_MEMORY / NATS_MAX_STORE: JetStream resource limits
//   - NATS_RETENTION_DAYS: Stream retention (default: 7)
//   - NATS_BATCH_SIZE / NATS_FLUSH_INTERVAL: Publisher batching
//   - NATS_SUBSCRIBERS: Parallel durable subscribers (default: 4)
type NATSConfig struct {
	Enabled             bool          `koanf:"enabled"`
	URL                 string        `koanf:"url"`
	EmbeddedServer      bool          `koanf:"embedded_server"`
	StoreDir            string        `koanf:"store_dir"`
	MaxMemory           int64         `koanf:"max_memory"`
	MaxStore            int64         `koanf:"max_store"`
	StreamRetentionDays int           `koanf:"stream_retention_days"`
	BatchSize           int           `koanf:"batch_size"`
	FlushInterval       time.Duration `koanf:"flush_interval"`
	SubscribersCount    int           `koanf:"subscribers_count"`
	DurableName         string        `koanf:"durable_name"`
	QueueGroup          string        `koanf:"queue_group"`

	// Router settings (Watermill Router middleware, applied to the
	// in-process bus regardless of the nats build tag)
	RouterRetryCount           int           `koanf:"router_retry_count"`
	RouterRetryInitialInterval time.Duration `koanf:"router_retry_initial_interval"`
	RouterThrottlePerSecond    int           `koanf:"router_throttle_per_second"`
	RouterPoisonQueueEnabled   bool          `koanf:"router_poison_queue_enabled"`
	RouterPoisonQueueTopic     string        `koanf:"router_poison_queue_topic"`
	RouterCloseTimeout         time.Duration `koanf:"router_close_timeout"`
}

// CacheConfig holds response cache settings.
//
// Environment Variables:
//   - CACHE_ENABLED: Enable response caching (default: true)
//   - CACHE_POLICY: "ttl" or "lfu" (default: ttl)
//   - CACHE_TTL: Entry time-to-live (default: 60s)
//   - CACHE_MAX_ENTRIES: LFU capacity (default: 1024)
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Policy     string        `koanf:"policy"`
	TTL        time.Duration `koanf:"ttl"`
	MaxEntries int           `koanf:"max_entries"`
}

// APIConfig holds API pagination and response settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds rate limiting and CORS settings.
// Identity and per-owner authorization live outside this service; the owner
// key arrives pre-authenticated, so only transport-level protections remain.
//
// Environment Variables:
//   - RATE_LIMIT_REQUESTS / RATE_LIMIT_WINDOW: Global per-IP limit (default: 100/1m)
//   - UPLOAD_RATE_LIMIT_REQUESTS / UPLOAD_RATE_LIMIT_WINDOW: Upload route limit (default: 12/1m)
//   - DISABLE_RATE_LIMIT: Disable all rate limiting (default: false)
//   - CORS_ORIGINS: Comma-separated allowed origins (default: *)
//   - TRUSTED_PROXIES: Comma-separated proxy CIDRs for RealIP
type SecurityConfig struct {
	RateLimitReqs       int           `koanf:"rate_limit_reqs"`
	RateLimitWindow     time.Duration `koanf:"rate_limit_window"`
	UploadRateLimitReqs int           `koanf:"upload_rate_limit_reqs"`
	UploadRateWindow    time.Duration `koanf:"upload_rate_window"`
	RateLimitDisabled   bool          `koanf:"rate_limit_disabled"`
	CORSOrigins         []string      `koanf:"cors_origins"`
	TrustedProxies      []string      `koanf:"trusted_proxies"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// JSON is recommended for production (structured, machine-parseable).
	// Console is human-readable for development.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Adds slight performance overhead.
	// Default: false
	Caller bool `koanf:"caller"`
}

// Load reads configuration with layered precedence:
//  1. Built-in defaults
//  2. Config file (config.yaml if exists, or path specified in CONFIG_PATH env var)
//  3. Environment variables
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
