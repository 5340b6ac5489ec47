// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package websocket

import (
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/itinerarium/internal/events"
	"github.com/tomtom215/itinerarium/internal/logging"
)

// Bridge forwards bus events to the WebSocket hub. It consumes the upload
// and stats topics through the event router, so hub deliveries share the
// router's retry and dead-letter handling with every other consumer.
type Bridge struct {
	hub *Hub
}

// NewBridge creates a bridge that broadcasts into hub.
func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

// RegisterHandlers attaches consumer handlers for the three push topics.
// Must be called before the router starts.
func (b *Bridge) RegisterHandlers(r *events.Router, sub message.Subscriber) {
	r.AddConsumerHandler("ws-upload-changed", events.TopicUploadChanged, sub, b.handleUploadChanged)
	r.AddConsumerHandler("ws-upload-progress", events.TopicUploadProgress, sub, b.handleUploadProgress)
	r.AddConsumerHandler("ws-stats-update", events.TopicStatsChanged, sub, b.handleStatsChanged)

	logging.Info().
		Int("handlers", 3).
		Msg("websocket bridge handlers registered")
}

// Decode failures are returned, not swallowed: the router retries and then
// parks the malformed payload on the dead letter topic with the reason
// attached.

func (b *Bridge) handleUploadChanged(msg *message.Message) error {
	ev, err := events.DecodeUpload(msg)
	if err != nil {
		return err
	}
	b.hub.BroadcastUploadChanged(ev)
	return nil
}

func (b *Bridge) handleUploadProgress(msg *message.Message) error {
	ev, err := events.DecodeProgress(msg)
	if err != nil {
		return err
	}
	b.hub.BroadcastUploadProgress(ev)
	return nil
}

func (b *Bridge) handleStatsChanged(msg *message.Message) error {
	ev, err := events.DecodeStats(msg)
	if err != nil {
		return err
	}
	b.hub.BroadcastStatsUpdate(ev)
	return nil
}
