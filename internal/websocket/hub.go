// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/itinerarium/internal/events"
	"github.com/tomtom215/itinerarium/internal/logging"
	"github.com/tomtom215/itinerarium/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path
	// (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was
	// exceeded, which may mean a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types pushed to browser clients.
const (
	MessageTypeUploadChanged  = "upload_changed"
	MessageTypeUploadProgress = "upload_progress"
	MessageTypeStatsUpdate    = "stats_update"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
)

// Message represents a WebSocket message.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients and pushes upload lifecycle
// events to them. Browsers watching the uploads page see state transitions
// and progress ticks without polling; map and stats views get invalidation
// nudges when stored aggregates change.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run starts the hub and blocks forever.
//
// Deprecated: Use RunWithContext for supervised operation.
func (h *Hub) Run() {
	for {
		// Go's select picks randomly among ready channels. The non-blocking
		// check first guarantees lifecycle events win over broadcasts, so a
		// client is never handed a message while half registered.
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// RunWithContext starts the hub with context support for graceful shutdown.
// Designed for suture supervision: when the context is canceled all
// connected clients are closed and ctx.Err() is returned, so the supervisor
// can restart the hub without leaking connections.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Shutdown outranks lifecycle events, which outrank broadcasts.
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
}

// logGracefulShutdown closes all clients and logs structured shutdown
// information. ctx.Err() is not logged as an error: cancellation is
// expected behavior during graceful shutdown.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

// getShutdownReason determines the shutdown reason from the context error.
func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.Canceled:
		return ShutdownReasonContextCanceled
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// broadcastToClients sends a message to all connected clients. Clients are
// visited in id order so delivery order is stable run to run; a client
// whose buffer is full is dropped rather than allowed to stall the rest.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WSErrors.WithLabelValues("slow_consumer").Inc()
	}
	if len(toRemove) > 0 {
		metrics.WSConnections.Set(float64(len(h.clients)))
		logging.Warn().
			Int("dropped_clients", len(toRemove)).
			Str("message_type", message.Type).
			Msg("dropped slow websocket clients")
	}

	metrics.UpdateBusConsumerLag(int64(len(h.broadcast)))
}

// closeAllClients closes all connected clients in id order. Called during
// shutdown.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
	logging.Info().Msg("closed all websocket clients during shutdown")
}

// offer enqueues a message for broadcast without blocking. The backlog of
// the broadcast channel is exported as the bus consumer lag gauge: the hub
// is the slowest in-process consumer, so its queue depth is the honest lag
// measure.
func (h *Hub) offer(message Message) bool {
	select {
	case h.broadcast <- message:
		metrics.UpdateBusConsumerLag(int64(len(h.broadcast)))
		return true
	default:
		metrics.WSErrors.WithLabelValues("broadcast_full").Inc()
		return false
	}
}

// BroadcastUploadChanged pushes an upload state snapshot to all clients.
func (h *Hub) BroadcastUploadChanged(ev *events.UploadEvent) {
	if !h.offer(Message{Type: MessageTypeUploadChanged, Data: ev}) {
		logging.Warn().
			Str("upload_id", ev.UploadID).
			Msg("broadcast channel full, dropping upload_changed message")
	}
}

// BroadcastUploadProgress pushes a processing progress tick to all clients.
func (h *Hub) BroadcastUploadProgress(ev *events.ProgressEvent) {
	if !h.offer(Message{Type: MessageTypeUploadProgress, Data: ev}) {
		logging.Warn().
			Str("upload_id", ev.UploadID).
			Msg("broadcast channel full, dropping upload_progress message")
	}
}

// BroadcastStatsUpdate tells all clients that stored aggregates changed and
// cached stats views should be refetched.
func (h *Hub) BroadcastStatsUpdate(ev *events.StatsEvent) {
	if !h.offer(Message{Type: MessageTypeStatsUpdate, Data: ev}) {
		logging.Warn().
			Str("reason", ev.Reason).
			Msg("broadcast channel full, dropping stats_update message")
	}
}

// BroadcastJSON sends an arbitrary typed message to all connected clients.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	if !h.offer(Message{Type: messageType, Data: data}) {
		logging.Warn().
			Str("message_type", messageType).
			Msg("broadcast channel full, dropping JSON message")
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage converts a message to JSON.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
