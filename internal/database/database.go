// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/tomtom215/itinerarium/internal/config"
	"github.com/tomtom215/itinerarium/internal/logging"

	// DuckDB driver registration.
	_ "github.com/duckdb/duckdb-go/v2"
)

const (
	// defaultQueryTimeout bounds queries issued without a caller deadline.
	defaultQueryTimeout = 30 * time.Second

	// schemaTimeout bounds schema creation at startup. First open on slow
	// storage can take a while because DuckDB writes its initial blocks.
	schemaTimeout = 60 * time.Second

	// closeCheckpointTimeout bounds the final WAL checkpoint during Close.
	closeCheckpointTimeout = 30 * time.Second

	// defaultMaxMemory is applied when the configuration leaves the DuckDB
	// memory limit empty (direct construction in tests).
	defaultMaxMemory = "2GB"

	dirPerm = 0o750
)

// DB wraps the DuckDB connection pool and provides all persistence
// operations for canonical location records: the bulk append path used by
// the ingest pipeline, keyset-paginated reads for map and export queries,
// and grouped aggregates for statistics.
//
// All exported methods are safe for concurrent use. Same-owner write
// serialization is the loader's concern, not enforced here; concurrent
// appends from different owners proceed under DuckDB's optimistic
// concurrency control.
type DB struct {
	conn *sql.DB
	cfg  config.DatabaseConfig

	// nextID hands out surrogate record ids, seeded from MAX(id) at open.
	// The native appender fills every column itself, so id generation lives
	// here instead of in a SQL sequence.
	nextID atomic.Int64
}

// New opens (or creates) the DuckDB database at cfg.Path, configures the
// connection pool, and initializes the schema. The returned DB is ready for
// use; callers own Close.
//
// The connection string pins DuckDB settings that matter for a long-lived
// embedded store: explicit thread and memory budgets, and extension
// autoloading disabled so the binary never reaches out to the network.
func New(cfg config.DatabaseConfig) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.MaxMemory == "" {
		cfg.MaxMemory = defaultMaxMemory
	}

	dbDir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dbDir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	connStr := fmt.Sprintf(
		"%s?access_mode=read_write&threads=%d&max_memory=%s&preserve_insertion_order=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path,
		threads,
		cfg.MaxMemory,
		strconv.FormatBool(cfg.PreserveInsertionOrder),
	)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		closeWithLog(conn, "database")
		return nil, err
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", threads).
		Str("max_memory", cfg.MaxMemory).
		Msg("Database opened")

	return db, nil
}

// configureConnectionPool sizes the database/sql pool for an embedded
// engine: one connection per core for parallel reads, a small idle set,
// and periodic recycling so DuckDB can release per-connection state.
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// initialize creates the schema, seeds the record id counter, and writes an
// initial checkpoint so a crash right after first start leaves a consistent
// file behind.
func (db *DB) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	if err := db.createSchema(ctx); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := db.seedRecordID(ctx); err != nil {
		return err
	}
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to write initial checkpoint")
	}
	return nil
}

// Close checkpoints the WAL and closes the connection pool. The checkpoint
// failure is logged rather than returned: the data is already durable in
// the WAL, a missed checkpoint only means a longer replay on next open.
func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeCheckpointTimeout)
	defer cancel()

	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint before close")
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	logging.Info().Str("path", db.cfg.Path).Msg("Database closed")
	return nil
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// Checkpoint forces DuckDB to merge the write-ahead log into the main
// database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("failed to checkpoint database: %w", err)
	}
	return nil
}

// Conn exposes the underlying pool for callers that need raw SQL access,
// primarily tests and one-off maintenance commands.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the configured database file path.
func (db *DB) Path() string {
	return db.cfg.Path
}

// ensureContext guarantees a usable context with a deadline. A nil context
// gets a fresh background context, a context without a deadline gets the
// default query timeout, and a context that already carries a deadline is
// returned unchanged with a no-op cancel.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), defaultQueryTimeout)
	}
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, defaultQueryTimeout)
	}
	return ctx, func() {}
}
