// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

/*
Package supervisor provides process supervision for Itinerarium using
suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of all long-running services in the application: Erlang/OTP-style
supervision with automatic restart, failure isolation, and graceful
shutdown.

# Overview

The supervisor tree organizes services into three layers:

	RootSupervisor ("itinerarium")
	├── DataSupervisor ("data-layer")
	│   └── ledger GC (uploads.GCService)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocketHubService
	│   ├── event router (events.Router)
	│   └── NATSComponentsService (build tag: nats)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

uploads.GCService and events.Router implement suture.Service themselves and
register directly; the services subpackage wraps the types that do not.

The hierarchy ensures that:
  - A crashing event router does not drop WebSocket connections
  - Ledger GC backoff never delays API availability
  - Each layer restarts independently with its own failure counter

# Restart Behavior

The supervisor uses a failure counter with exponential decay:

 1. Each service failure increments the counter
 2. The counter decays exponentially over FailureDecay seconds
 3. When the counter exceeds FailureThreshold, the layer enters backoff
 4. During backoff, restarts are delayed by FailureBackoff

Default values match suture's production defaults: threshold 5, decay 30s,
backoff 15s, shutdown timeout 10s.

# Usage

	logger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}

	tree.AddDataService(uploads.NewGCService(ledger, cfg.Ledger.GCInterval))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(eventRouter)
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	// Blocks until the context is canceled.
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# Service Contract

All services implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Services must return promptly when the context is canceled, returning
ctx.Err(). Any other return causes suture to restart the service under the
layer's backoff policy.

# What Is Not Supervised

DuckDB is not supervised: it is an embedded library whose connections the
database package manages, and a crash inside it would require a process
restart anyway. The upload pipeline is request-scoped, supervised only in
the sense that its HTTP transport is.

# Debugging Shutdown

If services do not stop within the timeout:

	report, _ := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("service did not stop: %v", svc)
	}

Common causes are goroutines ignoring context cancellation and blocked
network I/O without deadlines.
*/
package supervisor
