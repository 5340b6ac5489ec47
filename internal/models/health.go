// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package models

// HealthStatus is the data payload of the health endpoint.
//
// Status is "healthy" when the record store answers a ping and "degraded"
// otherwise. A degraded service still serves uploads into the ledger and
// cached queries; only store-backed operations fail.
type HealthStatus struct {
	Status            string `json:"status"`
	Version           string `json:"version"`
	DatabaseConnected bool   `json:"database_connected"`
	StoreBreaker      string `json:"store_breaker,omitempty"`
	LedgerEntries     int64  `json:"ledger_entries"`
	ConnectedClients  int    `json:"connected_clients"`
	Uptime            string `json:"uptime"`
}

// ReadyStatus is the data payload of the readiness endpoint.
type ReadyStatus struct {
	Ready bool `json:"ready"`
}
