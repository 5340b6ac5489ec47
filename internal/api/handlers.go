// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/itinerarium/internal/cache"
	"github.com/tomtom215/itinerarium/internal/config"
	"github.com/tomtom215/itinerarium/internal/database"
	"github.com/tomtom215/itinerarium/internal/events"
	"github.com/tomtom215/itinerarium/internal/logging"
	"github.com/tomtom215/itinerarium/internal/middleware"
	"github.com/tomtom215/itinerarium/internal/timeline"
	"github.com/tomtom215/itinerarium/internal/uploads"
	ws "github.com/tomtom215/itinerarium/internal/websocket"
)

// Version is the build version reported by the health endpoint.
// Overridden at link time:
//
//	-ldflags "-X github.com/tomtom215/itinerarium/internal/api.Version=v1.2.3"
var Version = "dev"

// Handler serves every HTTP endpoint. One instance is shared across all
// routes; fields are read-only after construction, and the cache, tracker,
// ledger, and hub are individually safe for concurrent use.
type Handler struct {
	db       *database.DB
	pipeline *timeline.Pipeline
	tracker  *uploads.Tracker
	ledger   *uploads.Ledger
	sampler  *timeline.ZoomSampler
	exporter *timeline.GeoJSONExporter
	bus      *events.Bus
	config   *config.Config
	wsHub    *ws.Hub

	startTime time.Time
	cache     cache.Cacher
	perfMon   *middleware.PerformanceMonitor
	ingestLog *logging.IngestLogger
}

// NewHandler wires the handler set. db may be nil when the record store
// failed to open; store-backed endpoints then answer 503 while uploads
// still land in the ledger and health keeps answering. bus and wsHub may
// be nil in tests.
func NewHandler(cfg *config.Config, db *database.DB, pipeline *timeline.Pipeline,
	tracker *uploads.Tracker, ledger *uploads.Ledger, bus *events.Bus, wsHub *ws.Hub) *Handler {
	h := &Handler{
		db:        db,
		pipeline:  pipeline,
		tracker:   tracker,
		ledger:    ledger,
		bus:       bus,
		config:    cfg,
		wsHub:     wsHub,
		startTime: time.Now().UTC(),
		perfMon:   middleware.NewPerformanceMonitor(1000),
		ingestLog: logging.NewIngestLogger(),
	}
	if db != nil {
		h.sampler = timeline.NewZoomSampler(db, cfg.Sampling.MaxPoints)
		h.exporter = timeline.NewGeoJSONExporter(db, cfg.Export)
	}
	if cfg.Cache.Enabled {
		h.cache = cache.NewCacher(cache.CacheConfig{
			Policy:     cache.CachePolicy(cfg.Cache.Policy),
			TTL:        cfg.Cache.TTL,
			MaxEntries: cfg.Cache.MaxEntries,
		})
	}
	return h
}

// ClearCache drops every cached query response. Called after a completed
// upload; owner deletions use the scoped invalidateOwnerCache instead.
func (h *Handler) ClearCache() {
	if h.cache != nil {
		h.cache.Clear()
	}
}

// Close releases handler-owned resources.
func (h *Handler) Close() {
	if h.cache != nil {
		h.cache.Close()
	}
}

// GetCacheStats exposes response cache counters for diagnostics.
func (h *Handler) GetCacheStats() cache.Stats {
	if h.cache == nil {
		return cache.Stats{}
	}
	return h.cache.GetStats()
}

// GetPerformanceStats exposes per-endpoint latency aggregates.
func (h *Handler) GetPerformanceStats() []middleware.EndpointStats {
	return h.perfMon.GetStats()
}

// getUpgrader builds the WebSocket upgrader with origin checking bound to
// the configured CORS origins.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkWebSocketOrigin,
	}
}

// checkWebSocketOrigin validates the Origin header against the configured
// CORS origins. Browsers always send Origin on WebSocket requests, so its
// absence means a non-browser client that should use the REST API.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().
			Str("remote", sanitizeLogValue(r.RemoteAddr)).
			Msg("WebSocket rejected: missing Origin header")
		return false
	}
	if h.config == nil {
		return true
	}
	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().
		Str("origin", sanitizeLogValue(origin)).
		Msg("WebSocket rejected: origin not allowed")
	return false
}

// HandleWebSocket upgrades the connection and registers the client with
// the hub for upload lifecycle and stats push events.
//
//	@Summary		WebSocket event stream
//	@Description	Upgrades to a WebSocket carrying upload lifecycle, upload progress, and stats-changed events as JSON messages
//	@Tags			events
//	@Router			/ws [get]
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		http.Error(w, "WebSocket service unavailable", http.StatusServiceUnavailable)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}
