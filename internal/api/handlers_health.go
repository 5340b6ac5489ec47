// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/itinerarium/internal/models"
)

// HandleHealth reports process liveness plus dependency state. The
// endpoint answers 200 even when the store is down: a degraded process is
// alive, and restarting it will not fix its database.
//
//	@Summary		Health check
//	@Description	Returns service health: store connectivity, circuit breaker state, ledger entry count, connected WebSocket clients, and uptime. Status is "degraded" when the record store does not answer.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	models.APIResponse{data=models.HealthStatus}
//	@Router			/health [get]
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil

	status := "healthy"
	if !dbConnected {
		status = "degraded"
	}

	var ledgerEntries int64
	if h.ledger != nil {
		if n, err := h.ledger.EntryCount(r.Context()); err == nil {
			ledgerEntries = n
		}
	}

	breaker := ""
	if h.pipeline != nil {
		breaker = h.pipeline.BreakerState()
	}

	clients := 0
	if h.wsHub != nil {
		clients = h.wsHub.GetClientCount()
	}

	w.Header().Set("Cache-Control", "no-cache")
	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: &models.HealthStatus{
			Status:            status,
			Version:           Version,
			DatabaseConnected: dbConnected,
			StoreBreaker:      breaker,
			LedgerEntries:     ledgerEntries,
			ConnectedClients:  clients,
			Uptime:            time.Since(h.startTime).Round(time.Second).String(),
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// HandleReady gates traffic admission: 200 only when the record store
// answers a ping. Load balancers drain the instance on 503 while the
// health endpoint keeps reporting the degraded state.
//
//	@Summary		Readiness check
//	@Description	Returns 200 when the service can serve store-backed requests, 503 otherwise.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	models.APIResponse{data=models.ReadyStatus}
//	@Failure		503	{object}	models.APIResponse
//	@Router			/ready [get]
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		respondError(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE",
			"Record store is not available", nil)
		return
	}
	if err := h.db.Ping(r.Context()); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE",
			"Record store is not answering", err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     &models.ReadyStatus{Ready: true},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}
