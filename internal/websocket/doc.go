// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

/*
Package websocket pushes upload lifecycle events to connected browsers.

The uploads page shows ingests moving through their states in real time;
the map and stats views listen for invalidation nudges instead of polling.
The package uses gorilla/websocket with a hub-client architecture.

Key Components:

  - Hub: central broker that manages client connections and broadcasts
  - Client: a single WebSocket connection with read/write goroutines
  - Bridge: consumes bus topics through the event router and feeds the hub
  - Message: typed envelope for the wire format

Architecture:

The package implements a hub-and-spoke pattern fed by the in-process bus:

	bus topics ──► Bridge ──► Hub ──► Client1, Client2, ...

Each client has two goroutines:
  - readPump: reads from the WebSocket, handles pings
  - writePump: writes to the WebSocket, sends pongs and keepalive pings

Message Types:

  - upload_changed: an upload entered a new state (received, processing,
    completed, failed, partial), carrying the full status snapshot
  - upload_progress: a processing progress tick (records counted so far)
  - stats_update: stored aggregates changed; cached stats views are stale
  - ping/pong: client keepalive

Usage Example - Server:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	bridge := websocket.NewBridge(hub)
	bridge.RegisterHandlers(router, bus.Subscriber())

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
	    // upgrade handled in internal/api
	})

Usage Example - Client (JavaScript):

	const ws = new WebSocket('ws://localhost:4326/ws');

	ws.onmessage = (event) => {
	    const msg = JSON.parse(event.data);

	    if (msg.type === 'upload_changed') {
	        updateUploadRow(msg.data);
	    }

	    if (msg.type === 'stats_update') {
	        refetchStats(); // reload charts and map layers
	    }
	};

Connection Lifecycle:

 1. Client connects via HTTP upgrade
 2. Hub registers client
 3. Client starts read/write goroutines
 4. Hub broadcasts messages to all clients
 5. Client disconnects (network error or explicit close)
 6. Hub unregisters client and cleans up

Thread Safety:

  - Hub uses a mutex for client map access
  - Channels coordinate goroutine communication
  - Each client has separate read/write goroutines
  - No shared mutable state between clients

Configuration:

  - writeWait: 10 seconds (time allowed to write a message)
  - pongWait: 60 seconds (time allowed to read a pong)
  - pingPeriod: 54 seconds (ping interval, must be < pongWait)
  - maxMessageSize: 4 KB (inbound messages are control traffic only)

See Also:

  - github.com/gorilla/websocket: underlying WebSocket library
  - internal/events: bus, topics, and the router the bridge consumes from
  - internal/api: WebSocket endpoint handler
*/
package websocket
