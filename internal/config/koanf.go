// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/itinerarium/config.yaml",
	"/etc/itinerarium/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        4326, // EPSG:4326, the CRS of the data it serves
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:                   "/data/itinerarium.duckdb",
			MaxMemory:              "2GB",
			Threads:                0,    // 0 = use runtime.NumCPU()
			PreserveInsertionOrder: true, // DuckDB default
		},
		Ingest: IngestConfig{
			ChunkSize:            1000,
			BufferDepth:          256,
			MaxErrorList:         50,
			MaxConcurrentUploads: 4,
			MaxUploadMB:          100,
			DefaultTimezone:      "UTC",
			RetryDelay:           500 * time.Millisecond,
			OwnerUploadsPerMin:   6,
			OwnerUploadBurst:     2,
		},
		Sampling: SamplingConfig{
			MaxPoints: 100000,
		},
		Export: ExportConfig{
			BatchSize:    2000,
			DefaultLimit: 10000,
			DefaultDays:  30,
		},
		Ledger: LedgerConfig{
			Path:          "/data/ledger",
			RetentionDays: 90,
			GCInterval:    10 * time.Minute,
		},
		NATS: NATSConfig{
			Enabled:             false, // Opt-in: the in-process bus covers single-node deployments
			URL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:      true,
			StoreDir:            "/data/nats/jetstream",
			MaxMemory:           1 << 30,  // 1GB
			MaxStore:            10 << 30, // 10GB
			StreamRetentionDays: 7,
			BatchSize:           1000,
			FlushInterval:       5 * time.Second,
			SubscribersCount:    4,
			DurableName:         "timeline-processor",
			QueueGroup:          "ingest",
			// Router defaults (Watermill Router middleware)
			RouterRetryCount:           3,
			RouterRetryInitialInterval: 100 * time.Millisecond,
			RouterThrottlePerSecond:    0, // Unlimited
			RouterPoisonQueueEnabled:   true,
			RouterPoisonQueueTopic:     "timeline.poison",
			RouterCloseTimeout:         30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:    true,
			Policy:     "ttl",
			TTL:        60 * time.Second,
			MaxEntries: 1024,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Security: SecurityConfig{
			RateLimitReqs:       100,
			RateLimitWindow:     1 * time.Minute,
			UploadRateLimitReqs: 12,
			UploadRateWindow:    1 * time.Minute,
			RateLimitDisabled:   false,
			CORSOrigins:         []string{"*"},
			TrustedProxies:      []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// This function is the preferred way to load configuration and provides:
//   - Type-safe configuration unmarshaling
//   - Clear precedence: ENV > File > Defaults
//   - Support for nested configuration via koanf struct tags
//   - Flat legacy environment variable names (UPLOAD_MAX_SIZE_MB, DUCKDB_PATH)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := FindConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// HTTP_PORT -> server.port
	// INGEST_CHUNK_SIZE -> ingest.chunk_size
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	// Unmarshal into Config struct
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches CONFIG_PATH and then the default paths,
// returning the first config file that exists or empty string when
// none does. The same resolution Load uses, exported so callers can
// watch the file that was actually loaded.
func FindConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// If it's already a slice (from YAML file), skip
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		// If it's a string, split by comma
		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths.
// It maps flat single-purpose names (the shape operators already know from the
// Python-era deployment: UPLOAD_MAX_SIZE_MB, INPUT_TIMEZONE, DUCKDB_PATH) onto
// the nested configuration structure.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - DUCKDB_PATH -> database.path
//   - INGEST_CHUNK_SIZE -> ingest.chunk_size
//   - UPLOAD_MAX_SIZE_MB -> ingest.max_upload_mb
//   - INPUT_TIMEZONE -> ingest.default_timezone
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_port":    "server.port",
		"http_host":    "server.host",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// Database mappings
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// Ingest mappings
		"ingest_chunk_size":               "ingest.chunk_size",
		"ingest_buffer_depth":             "ingest.buffer_depth",
		"ingest_max_error_list":           "ingest.max_error_list",
		"ingest_max_concurrent_uploads":   "ingest.max_concurrent_uploads",
		"upload_max_size_mb":              "ingest.max_upload_mb",
		"input_timezone":                  "ingest.default_timezone",
		"ingest_retry_delay":              "ingest.retry_delay",
		"ingest_owner_uploads_per_minute": "ingest.owner_uploads_per_minute",
		"ingest_owner_upload_burst":       "ingest.owner_upload_burst",

		// Sampling mappings
		"sampling_max_points": "sampling.max_points",

		// Export mappings
		"export_batch_size":    "export.batch_size",
		"export_default_limit": "export.default_limit",
		"export_default_days":  "export.default_days",

		// Ledger mappings
		"ledger_path":           "ledger.path",
		"ledger_retention_days": "ledger.retention_days",
		"ledger_gc_interval":    "ledger.gc_interval",

		// NATS mappings
		"nats_enabled":        "nats.enabled",
		"nats_url":            "nats.url",
		"nats_embedded":       "nats.embedded_server",
		"nats_store_dir":      "nats.store_dir",
		"nats_max_memory":     "nats.max_memory",
		"nats_max_store":      "nats.max_store",
		"nats_retention_days": "nats.stream_retention_days",
		"nats_batch_size":     "nats.batch_size",
		"nats_flush_interval": "nats.flush_interval",
		"nats_subscribers":    "nats.subscribers_count",
		"nats_durable_name":   "nats.durable_name",
		"nats_queue_group":    "nats.queue_group",
		// Router configuration environment mappings
		"nats_router_retry_count":    "nats.router_retry_count",
		"nats_router_retry_interval": "nats.router_retry_initial_interval",
		"nats_router_throttle":       "nats.router_throttle_per_second",
		"nats_router_poison_enabled": "nats.router_poison_queue_enabled",
		"nats_router_poison_topic":   "nats.router_poison_queue_topic",
		"nats_router_close_timeout":  "nats.router_close_timeout",

		// Cache mappings
		"cache_enabled":     "cache.enabled",
		"cache_policy":      "cache.policy",
		"cache_ttl":         "cache.ttl",
		"cache_max_entries": "cache.max_entries",

		// API mappings
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",

		// Security mappings
		"rate_limit_requests":        "security.rate_limit_reqs",
		"rate_limit_window":          "security.rate_limit_window",
		"upload_rate_limit_requests": "security.upload_rate_limit_reqs",
		"upload_rate_limit_window":   "security.upload_rate_window",
		"disable_rate_limit":         "security.rate_limit_disabled",
		"cors_origins":               "security.cors_origins",
		"trusted_proxies":            "security.trusted_proxies",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}

// WatchConfigFile invokes callback whenever the config file at path
// changes. The callback runs on the watcher's goroutine; callers that
// mutate shared state from it must guard that state themselves. Watch
// errors are swallowed so a transient editor rename does not kill the
// watcher.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	// Start watching the file for changes
	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
