// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/itinerarium/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler. This lets RequestID, PrometheusMetrics,
// and Compression work with Chi's r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router assembles the HTTP routing tree from the handler set and its
// transport middleware.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter builds the router, deriving CORS and rate limit middleware
// from the handler's config.
func NewRouter(handler *Handler) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddlewareFromConfig(handler.config),
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	// Applied to ALL routes in order
	// X-Request-ID header plus logging context on every request.
	r.Use(chiMiddleware(middleware.RequestID))
	// Trust X-Forwarded-For only behind declared proxies.
	if cfg := router.handler.config; cfg != nil && len(cfg.Security.TrustedProxies) > 0 {
		r.Use(chimiddleware.RealIP)
	}
	// Recover from handler panics. CORS is global so the OPTIONS
	// preflight always answers.
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	// ========================
	// Health Endpoints
	// ========================
	// Permissive limit so monitors and orchestrators can poll frequently.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/api/v1/health", router.handler.HandleHealth)
		r.Get("/api/v1/ready", router.handler.HandleReady)
	})

	// ========================
	// Ingest Endpoints
	// ========================
	// Uploads carry their own budget; one document can run to hundreds of
	// megabytes and minutes of pipeline time.
	r.Route("/api/v1/timeline", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitUpload())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(router.handler.perfMon.Middleware)
		r.Post("/upload", router.handler.HandleTimelineUpload)
	})

	// ========================
	// Export Endpoints
	// ========================
	// Export streams are the most expensive reads; tight budget, and
	// response compression pays off most here.
	r.Route("/api/v1/export", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitExport))
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(middleware.Compression))
		r.Use(router.handler.perfMon.Middleware)
		r.Get("/geojson", router.handler.HandleExportGeoJSON)
	})

	// ========================
	// Core API Endpoints
	// ========================
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(middleware.Compression))
		r.Use(router.handler.perfMon.Middleware)

		r.Get("/map/points", router.handler.HandleMapPoints)
		r.Get("/stats", router.handler.HandleStats)
		r.Get("/owners", router.handler.HandleOwners)
		r.Get("/owners/{owner}/summary", router.handler.HandleOwnerSummary)
		r.Get("/formats", router.handler.HandleFormats)
		r.Get("/uploads", router.handler.HandleListUploads)
		r.Get("/uploads/{id}", router.handler.HandleGetUpload)

		// Destructive writes share the group's stack with a stricter
		// budget.
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitWrite)).
			Delete("/owners/{owner}/records", router.handler.HandleDeleteOwnerRecords)
	})

	// ========================
	// WebSocket
	// ========================
	// Upgrades bypass compression and metric wrappers; a wrapped response
	// writer cannot be hijacked.
	r.With(router.chiMiddleware.RateLimitCustom(RateLimitWebSocket)).
		Get("/ws", router.handler.HandleWebSocket)

	// ========================
	// Observability
	// ========================
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
