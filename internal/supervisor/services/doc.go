// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

/*
Package services provides suture.Service wrappers for Itinerarium components
whose lifecycle does not already match the supervision contract.

Each wrapper translates a component's native lifecycle (ListenAndServe,
RunWithContext, Start/Shutdown) into suture's context-aware Serve pattern
and names the service for supervisor logs via fmt.Stringer.

# Available Wrappers

HTTPServerService:
  - Wraps *http.Server (or any HTTPServer) with graceful shutdown
  - Runs the blocking ListenAndServe in a goroutine
  - Drains connections under a configurable shutdown timeout

WebSocketHubService:
  - Wraps websocket.Hub's RunWithContext
  - Pure delegation; the hub already honors context cancellation

NATSComponentsService (build tag: nats):
  - Wraps the NATS stack's Start/Shutdown lifecycle
  - Propagates Start failures so the supervisor retries with backoff

Components that already implement Serve and String, such as
uploads.GCService and events.Router, register with the tree directly and
need no wrapper here.

# Usage

	import (
	    "net/http"
	    "time"

	    "github.com/tomtom215/itinerarium/internal/supervisor"
	    "github.com/tomtom215/itinerarium/internal/supervisor/services"
	)

	tree, _ := supervisor.NewSupervisorTree(logger, cfg)

	tree.AddAPIService(services.NewHTTPServerService(server, 30*time.Second))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))

	tree.Serve(ctx)

# Error Handling

Return values determine supervisor behavior:

	nil       -> service stopped cleanly, no restart
	error     -> service crashed, supervisor restarts it
	ctx.Err() -> shutdown requested, normal termination

All wrappers return ctx.Err() after a graceful drain so suture logs the
stop as expected rather than as a failure.
*/
package services
