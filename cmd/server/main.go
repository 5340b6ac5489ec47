// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

// Package main is the entry point for the Itinerarium server application.
//
// Itinerarium is a self-hosted location history service. It ingests Google
// Takeout location exports (Records.json and the Semantic Location History
// folder), stores the points in DuckDB, and serves timeline queries,
// density-reduced map points, and streaming GeoJSON exports.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Database: Open the DuckDB record store (a failed open starts the server degraded)
//  3. Upload Ledger: Open the BadgerDB upload ledger and sweep interrupted uploads
//  4. Event Bus: In-process Watermill pub/sub for upload lifecycle events
//  5. Event Router: Retry, throttle, and poison-queue middleware over bus consumers
//  6. NATS (optional): JetStream mirroring of bus topics (build tag "nats")
//  7. HTTP Server: REST API with Swagger documentation
//
// Every long-running component runs under a suture supervisor tree and is
// restarted with exponential backoff when it crashes.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (see .env.example)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// # Degraded Mode
//
// A record store that fails to open does not stop the server. Uploads still
// land in the ledger, health keeps answering, and store-backed endpoints
// return 503 until a restart finds the store healthy again. Only a ledger
// that cannot open is fatal: without it no upload can be tracked at all.
//
// # Build Tags
//
// Optional build tags enable additional functionality:
//
//	go build -tags nats ./cmd/server  # Enable NATS JetStream mirroring
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Drains the event router and closes the bus
//   - Closes the upload ledger and the database
//
// # Example Usage
//
// Local development:
//
//	export DUCKDB_PATH=./itinerarium.duckdb
//	export LEDGER_PATH=./ledger
//	./itinerarium
//
// With an upload size cap and a home timezone for Takeout files that
// predate per-point offsets:
//
//	export UPLOAD_MAX_SIZE_MB=512
//	export INPUT_TIMEZONE=Europe/Berlin
//	./itinerarium
//
// Docker:
//
//	docker run -d \
//	  -v itinerarium-data:/data \
//	  -p 4326:4326 \
//	  ghcr.io/tomtom215/itinerarium
//
// # Port 4326
//
// The default port 4326 references EPSG:4326 (WGS 84), the coordinate
// reference system of the latitude/longitude pairs in every Takeout export.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "github.com/tomtom215/itinerarium/docs" // Import generated swagger docs
	"github.com/tomtom215/itinerarium/internal/api"
	"github.com/tomtom215/itinerarium/internal/config"
	"github.com/tomtom215/itinerarium/internal/database"
	"github.com/tomtom215/itinerarium/internal/events"
	"github.com/tomtom215/itinerarium/internal/logging"
	"github.com/tomtom215/itinerarium/internal/metrics"
	"github.com/tomtom215/itinerarium/internal/supervisor"
	"github.com/tomtom215/itinerarium/internal/supervisor/services"
	"github.com/tomtom215/itinerarium/internal/timeline"
	"github.com/tomtom215/itinerarium/internal/uploads"
	ws "github.com/tomtom215/itinerarium/internal/websocket"
)

// uptimeSampleInterval is how often the uptime gauge is refreshed.
const uptimeSampleInterval = 15 * time.Second

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Itinerarium with supervisor tree")

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("ledger_path", cfg.Ledger.Path).
		Str("environment", cfg.Server.Environment).
		Msg("Configuration loaded")

	// Hot-reload applies the log level only; everything else is wired at
	// startup and needs a restart.
	if cfgFile := config.FindConfigFile(); cfgFile != "" {
		if werr := config.WatchConfigFile(cfgFile, func() {
			reloaded, rerr := config.Load()
			if rerr != nil {
				logging.Error().Err(rerr).Msg("Config reload failed, keeping current settings")
				return
			}
			logging.SetLevelString(reloaded.Logging.Level)
			logging.Info().Str("level", reloaded.Logging.Level).Msg("Config file changed, log level applied")
		}); werr != nil {
			logging.Warn().Err(werr).Str("path", cfgFile).Msg("Config file watch unavailable")
		}
	}

	// Open the DuckDB record store. A failed open is deliberately not fatal:
	// the server starts degraded, uploads still land in the ledger, and
	// store-backed endpoints answer 503 until a restart finds the store
	// healthy.
	db, err := database.New(cfg.Database)
	if err != nil {
		logging.Error().Err(err).Msg("Record store unavailable, starting degraded")
	} else {
		defer func() {
			if err := db.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing database")
			}
		}()
		logging.Info().Msg("Database initialized successfully")
	}

	// Open the upload ledger. This one is fatal: without the ledger no
	// upload can be tracked at all.
	ledger, err := uploads.Open(cfg.Ledger)
	if err != nil {
		// Close database before fatal exit to ensure the defer runs
		if db != nil {
			if closeErr := db.Close(); closeErr != nil {
				logging.Error().Err(closeErr).Msg("Error closing database")
			}
		}
		logging.Fatal().Err(err).Msg("Failed to open upload ledger")
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing upload ledger")
		}
	}()

	// Sweep uploads a previous process left mid-flight.
	swept, err := ledger.MarkInterrupted(context.Background())
	if err != nil {
		logging.Warn().Err(err).Msg("Interrupted upload sweep failed")
	} else if swept > 0 {
		logging.Info().Int("count", swept).Msg("Marked interrupted uploads from previous run")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// In-process event bus. Upload lifecycle callbacks land here and fan out
	// to WebSocket clients and, when enabled, the JetStream mirror.
	bus := events.NewBus(events.DefaultBusConfig(), events.NewLoggerAdapter())
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	// Create WebSocket hub for real-time updates (before the router so the
	// bridge can register its consumer handlers)
	wsHub := ws.NewHub()

	// Event router with retry, throttle, and poison-queue middleware over
	// all bus consumers. Every handler must be registered before the
	// supervisor starts serving it.
	routerCfg := buildRouterConfig(cfg)
	eventRouter, err := events.NewRouter(&routerCfg, bus.Publisher(), events.NewLoggerAdapter())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create event router")
	}

	// Bridge bus topics to connected WebSocket clients
	ws.NewBridge(wsHub).RegisterHandlers(eventRouter, bus.Subscriber())

	// Upload tracker publishes lifecycle transitions to the bus; the ingest
	// pipeline exists only when the record store opened.
	tracker := uploads.NewTracker(ledger, bus)
	var pipeline *timeline.Pipeline
	if db != nil {
		pipeline = timeline.NewPipeline(db, cfg.Ingest)
	}

	handler := api.NewHandler(cfg, db, pipeline, tracker, ledger, bus, wsHub)

	// Initialize NATS event mirroring (optional - requires build with -tags nats).
	// Must run before the supervisor starts the router: the mirror handlers
	// register on it here.
	natsComponents, err := initNATS(cfg, eventRouter, bus)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS")
	}

	// Create structured logger for supervisor using our slog adapter
	// This bridges zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	// Create supervisor tree
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Add NATS to supervisor tree (if enabled)
	// Note: NATS components are started/managed by supervisor, not manually
	AddNATSToSupervisor(tree, natsComponents)

	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	// Data layer services
	tree.AddDataService(uploads.NewGCService(ledger, cfg.Ledger.GCInterval))
	logging.Info().Dur("interval", cfg.Ledger.GCInterval).Msg("Ledger GC added to supervisor tree")

	// Messaging layer services
	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	tree.AddMessagingService(eventRouter)
	logging.Info().Msg("WebSocket hub and event router added to supervisor tree")

	// API layer services
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Expose version/build info and uptime for dashboards
	metrics.AppInfo.WithLabelValues(api.Version, runtime.Version()).Set(1)
	go sampleUptime(ctx, time.Now())

	// === START SUPERVISOR TREE ===

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// buildRouterConfig maps the flat NATS_ROUTER_* settings onto the event
// router configuration. The retry ceiling and multiplier have no environment
// knobs and keep their defaults.
func buildRouterConfig(cfg *config.Config) events.RouterConfig {
	routerCfg := events.DefaultRouterConfig()
	if cfg.NATS.RouterCloseTimeout > 0 {
		routerCfg.CloseTimeout = cfg.NATS.RouterCloseTimeout
	}
	if cfg.NATS.RouterRetryCount > 0 {
		routerCfg.RetryMaxRetries = cfg.NATS.RouterRetryCount
	}
	if cfg.NATS.RouterRetryInitialInterval > 0 {
		routerCfg.RetryInitialInterval = cfg.NATS.RouterRetryInitialInterval
	}
	routerCfg.ThrottlePerSecond = int64(cfg.NATS.RouterThrottlePerSecond)
	routerCfg.PoisonQueueEnabled = cfg.NATS.RouterPoisonQueueEnabled
	if cfg.NATS.RouterPoisonQueueTopic != "" {
		routerCfg.PoisonQueueTopic = cfg.NATS.RouterPoisonQueueTopic
	}
	return routerCfg
}

// sampleUptime refreshes the uptime gauge until ctx is canceled.
func sampleUptime(ctx context.Context, start time.Time) {
	ticker := time.NewTicker(uptimeSampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.AppUptime.Set(time.Since(start).Seconds())
		}
	}
}
