// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

//go:build !nats

package main

import (
	"context"

	"github.com/tomtom215/itinerarium/internal/config"
	"github.com/tomtom215/itinerarium/internal/events"
	"github.com/tomtom215/itinerarium/internal/logging"
)

// NATSComponents is a stub for non-NATS builds.
type NATSComponents struct{}

// initNATS is a no-op stub for non-NATS builds. Returns nil components so
// callers need no build tag conditionals.
func initNATS(cfg *config.Config, _ *events.Router, _ *events.Bus) (*NATSComponents, error) {
	if cfg.NATS.Enabled {
		logging.Warn().Msg("NATS_ENABLED=true but NATS support not compiled (build with -tags nats)")
	}
	return nil, nil
}

// Start is a no-op stub for non-NATS builds.
func (c *NATSComponents) Start(_ context.Context) error {
	return nil
}

// Shutdown is a no-op stub for non-NATS builds.
func (c *NATSComponents) Shutdown(_ context.Context) {}

// IsRunning returns false for non-NATS builds.
func (c *NATSComponents) IsRunning() bool {
	return false
}
