// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

//go:build !nats

package events

import (
	"context"
)

// StreamInitializer is a stub when NATS dependencies are not available.
// Build with -tags=nats to enable JetStream stream management.
type StreamInitializer struct {
	config StreamConfig
}

// NewStreamInitializer returns an error when NATS dependencies are not
// available. Build with -tags=nats to enable JetStream stream management.
func NewStreamInitializer(js interface{}, cfg *StreamConfig) (*StreamInitializer, error) {
	return nil, ErrNATSNotEnabled
}

// EnsureStream is a stub that returns an error.
func (s *StreamInitializer) EnsureStream(ctx context.Context) (interface{}, error) {
	return nil, ErrNATSNotEnabled
}

// StreamDepth is a stub that returns an error.
func (s *StreamInitializer) StreamDepth(ctx context.Context) (uint64, error) {
	return 0, ErrNATSNotEnabled
}

// IsHealthy always returns false for the stub.
func (s *StreamInitializer) IsHealthy(ctx context.Context) bool {
	return false
}

// Config returns the current stream configuration.
func (s *StreamInitializer) Config() StreamConfig {
	return s.config
}
