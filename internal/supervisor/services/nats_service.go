// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

//go:build nats

package services

import (
	"context"
	"fmt"
	"time"
)

// NATSComponentsRunner matches the NATSComponents lifecycle from
// cmd/server/nats_init.go, keeping this package free of a main-package
// import.
type NATSComponentsRunner interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context)
	IsRunning() bool
}

// NATSComponentsService wraps the NATS stack as a supervised service,
// adapting its Start/Shutdown lifecycle to suture's Serve contract. The
// stack covers the embedded server, the JetStream connection and publisher,
// and the bridge that feeds broker deliveries back into the local bus.
//
// Example:
//
//	components, _ := initNATS(cfg, eventRouter, bus)
//	svc := services.NewNATSComponentsService(components)
//	tree.AddMessagingService(svc)
type NATSComponentsService struct {
	components      NATSComponentsRunner
	shutdownTimeout time.Duration
	name            string
}

// NewNATSComponentsService wraps components with a 10 second shutdown
// timeout.
func NewNATSComponentsService(components NATSComponentsRunner) *NATSComponentsService {
	return NewNATSComponentsServiceWithTimeout(components, 10*time.Second)
}

// NewNATSComponentsServiceWithTimeout wraps components with a custom
// shutdown timeout; non-positive values fall back to 10 seconds.
func NewNATSComponentsServiceWithTimeout(components NATSComponentsRunner, shutdownTimeout time.Duration) *NATSComponentsService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSComponentsService{
		components:      components,
		shutdownTimeout: shutdownTimeout,
		name:            "nats-components",
	}
}

// Serve implements suture.Service. A Start failure returns immediately so
// suture restarts the stack under its backoff policy; otherwise the service
// blocks until cancellation and drains with Shutdown.
func (s *NATSComponentsService) Serve(ctx context.Context) error {
	if err := s.components.Start(ctx); err != nil {
		return fmt.Errorf("NATS components start failed: %w", err)
	}

	<-ctx.Done()

	// The serve context is already canceled; the drain needs its own.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.components.Shutdown(shutdownCtx)

	return ctx.Err()
}

// String implements fmt.Stringer; suture uses it to name the service in logs.
func (s *NATSComponentsService) String() string {
	return s.name
}
