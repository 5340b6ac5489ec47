// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateIngest(); err != nil {
		return err
	}

	if err := c.validateSampling(); err != nil {
		return err
	}

	if err := c.validateExport(); err != nil {
		return err
	}

	if err := c.validateLedger(); err != nil {
		return err
	}

	if err := c.validateNATS(); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout < time.Second || c.Server.Timeout > 10*time.Minute {
		return fmt.Errorf("HTTP_TIMEOUT must be between 1s and 10m")
	}
	return nil
}

// validateDatabase validates DuckDB configuration
func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH must not be empty")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be non-negative (0 = use NumCPU)")
	}
	return nil
}

// Ingest limit constants
const (
	ingestMaxChunkSize     = 10000
	ingestMaxBufferDepth   = 65536
	ingestMaxErrorListCap  = 1000
	ingestMaxConcurrent    = 64
	ingestMaxUploadMBLimit = 4096 // 4GB ceiling; larger exports should be split
)

// validateIngest validates ingest pipeline configuration
func (c *Config) validateIngest() error {
	validators := []func() error{
		c.validateIngestChunkSize,
		c.validateIngestBufferDepth,
		c.validateIngestErrorList,
		c.validateIngestConcurrency,
		c.validateIngestUploadSize,
		c.validateIngestTimezone,
		c.validateIngestAdmission,
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

// validateIngestChunkSize validates the bulk-append chunk size
func (c *Config) validateIngestChunkSize() error {
	if c.Ingest.ChunkSize < 1 || c.Ingest.ChunkSize > ingestMaxChunkSize {
		return fmt.Errorf("INGEST_CHUNK_SIZE must be between 1 and 10000")
	}
	return nil
}

// validateIngestBufferDepth validates the pipeline channel capacity
func (c *Config) validateIngestBufferDepth() error {
	if c.Ingest.BufferDepth < 1 || c.Ingest.BufferDepth > ingestMaxBufferDepth {
		return fmt.Errorf("INGEST_BUFFER_DEPTH must be between 1 and 65536")
	}
	return nil
}

// validateIngestErrorList validates the per-upload error list cap
func (c *Config) validateIngestErrorList() error {
	if c.Ingest.MaxErrorList < 1 || c.Ingest.MaxErrorList > ingestMaxErrorListCap {
		return fmt.Errorf("INGEST_MAX_ERROR_LIST must be between 1 and 1000")
	}
	return nil
}

// validateIngestConcurrency validates the concurrent upload cap
func (c *Config) validateIngestConcurrency() error {
	if c.Ingest.MaxConcurrentUploads < 1 || c.Ingest.MaxConcurrentUploads > ingestMaxConcurrent {
		return fmt.Errorf("INGEST_MAX_CONCURRENT_UPLOADS must be between 1 and 64")
	}
	return nil
}

// validateIngestUploadSize validates the upload body size ceiling
func (c *Config) validateIngestUploadSize() error {
	if c.Ingest.MaxUploadMB < 1 || c.Ingest.MaxUploadMB > ingestMaxUploadMBLimit {
		return fmt.Errorf("UPLOAD_MAX_SIZE_MB must be between 1 and 4096")
	}
	return nil
}

// validateIngestTimezone validates that the ingest timezone resolves to a real
// IANA zone. Zone-less source timestamps are interpreted in this zone, so a
// typo here silently shifts every ingested record.
func (c *Config) validateIngestTimezone() error {
	if c.Ingest.DefaultTimezone == "" {
		return fmt.Errorf("INPUT_TIMEZONE must not be empty (use UTC for no conversion)")
	}
	if _, err := time.LoadLocation(c.Ingest.DefaultTimezone); err != nil {
		return fmt.Errorf("INPUT_TIMEZONE is not a valid IANA timezone: %w", err)
	}
	return nil
}

// validateIngestAdmission validates the per-owner admission limiter settings
func (c *Config) validateIngestAdmission() error {
	if c.Ingest.OwnerUploadsPerMin < 1 || c.Ingest.OwnerUploadsPerMin > 600 {
		return fmt.Errorf("INGEST_OWNER_UPLOADS_PER_MINUTE must be between 1 and 600")
	}
	if c.Ingest.OwnerUploadBurst < 1 || c.Ingest.OwnerUploadBurst > c.Ingest.OwnerUploadsPerMin {
		return fmt.Errorf("INGEST_OWNER_UPLOAD_BURST must be between 1 and INGEST_OWNER_UPLOADS_PER_MINUTE")
	}
	return nil
}

// validateSampling validates map sampling configuration
func (c *Config) validateSampling() error {
	if c.Sampling.MaxPoints < 1000 || c.Sampling.MaxPoints > 10000000 {
		return fmt.Errorf("SAMPLING_MAX_POINTS must be between 1000 and 10000000")
	}
	return nil
}

// validateExport validates export configuration
func (c *Config) validateExport() error {
	if c.Export.BatchSize < 100 || c.Export.BatchSize > 100000 {
		return fmt.Errorf("EXPORT_BATCH_SIZE must be between 100 and 100000")
	}
	if c.Export.DefaultLimit < 1 {
		return fmt.Errorf("EXPORT_DEFAULT_LIMIT must be positive")
	}
	if c.Export.DefaultDays < 1 || c.Export.DefaultDays > 36500 {
		return fmt.Errorf("EXPORT_DEFAULT_DAYS must be between 1 and 36500")
	}
	return nil
}

// validateLedger validates upload ledger configuration
func (c *Config) validateLedger() error {
	if c.Ledger.Path == "" {
		return fmt.Errorf("LEDGER_PATH must not be empty")
	}
	if c.Ledger.RetentionDays < 1 || c.Ledger.RetentionDays > 3650 {
		return fmt.Errorf("LEDGER_RETENTION_DAYS must be between 1 and 3650")
	}
	if c.Ledger.GCInterval < time.Minute || c.Ledger.GCInterval > 24*time.Hour {
		return fmt.Errorf("LEDGER_GC_INTERVAL must be between 1m and 24h")
	}
	return nil
}

// validateNATS validates NATS configuration (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}

	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}

	return c.validateNATSLimits()
}

// NATS limit constants
const (
	natsMinMemory      = 64 * 1024 * 1024  // 64MB
	natsMinStore       = 100 * 1024 * 1024 // 100MB
	natsMaxRetention   = 365
	natsMinRetention   = 1
	natsMaxBatchSize   = 10000
	natsMaxSubscribers = 32
	natsMinFlush       = time.Second
	natsMaxFlush       = time.Hour
)

// validateNATSLimits validates NATS storage and processing limits
func (c *Config) validateNATSLimits() error {
	validators := []func() error{
		c.validateNATSMemory,
		c.validateNATSStore,
		c.validateNATSRetention,
		c.validateNATSBatchSize,
		c.validateNATSFlushInterval,
		c.validateNATSSubscribers,
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

// validateNATSMemory validates NATS max memory setting
func (c *Config) validateNATSMemory() error {
	if c.NATS.MaxMemory < natsMinMemory {
		return fmt.Errorf("NATS_MAX_MEMORY must be at least 64MB (67108864 bytes)")
	}
	return nil
}

// validateNATSStore validates NATS max store setting
func (c *Config) validateNATSStore() error {
	if c.NATS.MaxStore < natsMinStore {
		return fmt.Errorf("NATS_MAX_STORE must be at least 100MB (104857600 bytes)")
	}
	return nil
}

// validateNATSRetention validates NATS stream retention days
func (c *Config) validateNATSRetention() error {
	if c.NATS.StreamRetentionDays < natsMinRetention || c.NATS.StreamRetentionDays > natsMaxRetention {
		return fmt.Errorf("NATS_RETENTION_DAYS must be between 1 and 365")
	}
	return nil
}

// validateNATSBatchSize validates NATS batch size setting
func (c *Config) validateNATSBatchSize() error {
	if c.NATS.BatchSize < 1 || c.NATS.BatchSize > natsMaxBatchSize {
		return fmt.Errorf("NATS_BATCH_SIZE must be between 1 and 10000")
	}
	return nil
}

// validateNATSFlushInterval validates NATS flush interval setting
func (c *Config) validateNATSFlushInterval() error {
	if c.NATS.FlushInterval < natsMinFlush || c.NATS.FlushInterval > natsMaxFlush {
		return fmt.Errorf("NATS_FLUSH_INTERVAL must be between 1s and 1h")
	}
	return nil
}

// validateNATSSubscribers validates NATS subscribers count
func (c *Config) validateNATSSubscribers() error {
	if c.NATS.SubscribersCount < 1 || c.NATS.SubscribersCount > natsMaxSubscribers {
		return fmt.Errorf("NATS_SUBSCRIBERS must be between 1 and 32")
	}
	return nil
}

// validCachePolicies defines the allowed cache policies
var validCachePolicies = map[string]bool{
	"ttl": true,
	"lfu": true,
}

// validateCache validates response cache configuration
func (c *Config) validateCache() error {
	if !c.Cache.Enabled {
		return nil
	}
	if !validCachePolicies[c.Cache.Policy] {
		return fmt.Errorf("CACHE_POLICY must be one of: ttl, lfu")
	}
	if c.Cache.TTL < time.Second || c.Cache.TTL > time.Hour {
		return fmt.Errorf("CACHE_TTL must be between 1s and 1h")
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive")
	}
	return nil
}

// validateSecurity validates rate limiting configuration
func (c *Config) validateSecurity() error {
	return c.validateRateLimits()
}

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateRateLimits validates rate limiting configuration bounds.
// Ensures rate limit values are within sensible ranges to prevent
// misconfiguration that could lead to DoS or ineffective protection.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}

	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	if c.Security.UploadRateLimitReqs < minRateLimitRequests || c.Security.UploadRateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("UPLOAD_RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.UploadRateWindow < minRateLimitWindow || c.Security.UploadRateWindow > maxRateLimitWindow {
		return fmt.Errorf("UPLOAD_RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
// Production mode is determined by the ENVIRONMENT environment variable.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format == "" {
		return nil
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
