// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/itinerarium/internal/config"
)

// ChiMiddlewareConfig holds the transport-level protections: CORS policy
// plus per-IP rate limiting. Identity is upstream's problem; nothing here
// authenticates.
type ChiMiddlewareConfig struct {
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSExposedHeaders   []string
	CORSAllowCredentials bool
	CORSMaxAge           int

	// General per-IP limit applied to the query route group.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Upload route limit. Uploads cost orders of magnitude more than
	// queries, so they get their own budget.
	UploadRateRequests int
	UploadRateWindow   time.Duration

	// RateLimitDisabled turns every limiter into a passthrough. Meant for
	// tests and single-user deployments behind a private network.
	RateLimitDisabled bool
}

// RateLimitConfig is one rate limit class: a request budget per window.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Rate limit classes for route groups. The general and upload limits are
// operator-configurable; these fixed classes cover routes whose cost
// profile does not vary by deployment.
var (
	RateLimitExport    = RateLimitConfig{Requests: 10, Window: time.Minute}
	RateLimitWrite     = RateLimitConfig{Requests: 30, Window: time.Minute}
	RateLimitWebSocket = RateLimitConfig{Requests: 30, Window: time.Minute}
	RateLimitHealth    = RateLimitConfig{Requests: 1000, Window: time.Minute}
)

// ChiMiddleware builds the chi-compatible middleware set from one config.
type ChiMiddleware struct {
	config ChiMiddlewareConfig
}

// NewChiMiddleware fills defaults and returns the middleware factory.
func NewChiMiddleware(cfg ChiMiddlewareConfig) *ChiMiddleware {
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if len(cfg.CORSAllowedMethods) == 0 {
		cfg.CORSAllowedMethods = []string{
			http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions,
		}
	}
	if len(cfg.CORSAllowedHeaders) == 0 {
		cfg.CORSAllowedHeaders = []string{
			"Accept", "Content-Type", "Content-Encoding", "If-None-Match", ownerKeyHeader,
		}
	}
	if len(cfg.CORSExposedHeaders) == 0 {
		cfg.CORSExposedHeaders = []string{"ETag", "X-Request-ID", "Content-Disposition"}
	}
	if cfg.CORSMaxAge == 0 {
		cfg.CORSMaxAge = 300
	}
	if cfg.RateLimitRequests <= 0 {
		cfg.RateLimitRequests = 100
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	if cfg.UploadRateRequests <= 0 {
		cfg.UploadRateRequests = 12
	}
	if cfg.UploadRateWindow <= 0 {
		cfg.UploadRateWindow = time.Minute
	}
	return &ChiMiddleware{config: cfg}
}

// NewChiMiddlewareFromConfig bridges the application config into the
// middleware factory.
func NewChiMiddlewareFromConfig(cfg *config.Config) *ChiMiddleware {
	mc := ChiMiddlewareConfig{}
	if cfg != nil {
		mc.CORSAllowedOrigins = cfg.Security.CORSOrigins
		mc.RateLimitRequests = cfg.Security.RateLimitReqs
		mc.RateLimitWindow = cfg.Security.RateLimitWindow
		mc.UploadRateRequests = cfg.Security.UploadRateLimitReqs
		mc.UploadRateWindow = cfg.Security.UploadRateWindow
		mc.RateLimitDisabled = cfg.Security.RateLimitDisabled
	}
	return NewChiMiddleware(mc)
}

// CORS returns the CORS middleware configured from the factory.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   m.config.CORSAllowedOrigins,
		AllowedMethods:   m.config.CORSAllowedMethods,
		AllowedHeaders:   m.config.CORSAllowedHeaders,
		ExposedHeaders:   m.config.CORSExposedHeaders,
		AllowCredentials: m.config.CORSAllowCredentials,
		MaxAge:           m.config.CORSMaxAge,
	})
}

// RateLimit returns the general per-IP limiter for query routes.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitConfig{
		Requests: m.config.RateLimitRequests,
		Window:   m.config.RateLimitWindow,
	})
}

// RateLimitUpload returns the upload route limiter.
func (m *ChiMiddleware) RateLimitUpload() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitConfig{
		Requests: m.config.UploadRateRequests,
		Window:   m.config.UploadRateWindow,
	})
}

// RateLimitCustom returns a per-IP limiter for one rate class. Limited
// requests get the envelope 429 instead of httprate's plain text.
func (m *ChiMiddleware) RateLimitCustom(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}

// rateLimitExceeded writes the envelope 429 shared by every limiter.
func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
		"Too many requests, retry later", nil)
}

// APISecurityHeaders sets browser hardening headers on every response.
// HSTS is sent only on TLS connections or behind a TLS-terminating proxy,
// never on plain development traffic.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
