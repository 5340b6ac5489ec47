// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/itinerarium/internal/metrics"
)

// Metadata keys attached to every encoded message.
const (
	// MetadataEventID carries the event's own ID for tracing. The message
	// UUID is set to the same value so broker-side deduplication keys off it.
	MetadataEventID = "event_id"
	// MetadataOwnerKey carries the owner scope when the event has one.
	MetadataOwnerKey = "owner_key"
)

// Encode validates an event and wraps it in a transport message. The event ID
// doubles as the message UUID, so replays of the same event deduplicate
// downstream.
func Encode(ev Event) (*message.Message, error) {
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	id := eventID(ev)
	if id == "" {
		id = watermill.NewUUID()
	}
	msg := message.NewMessage(id, data)
	msg.Metadata.Set(MetadataEventID, msg.UUID)
	if owner := ownerKey(ev); owner != "" {
		msg.Metadata.Set(MetadataOwnerKey, owner)
	}
	return msg, nil
}

// DecodeUpload unmarshals an upload snapshot from a message consumed off
// TopicUploadChanged.
func DecodeUpload(msg *message.Message) (*UploadEvent, error) {
	var ev UploadEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		metrics.RecordBusParseFailed()
		return nil, fmt.Errorf("unmarshal upload event %s: %w", msg.UUID, err)
	}
	return &ev, nil
}

// DecodeProgress unmarshals a progress tick from a message consumed off
// TopicUploadProgress.
func DecodeProgress(msg *message.Message) (*ProgressEvent, error) {
	var ev ProgressEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		metrics.RecordBusParseFailed()
		return nil, fmt.Errorf("unmarshal progress event %s: %w", msg.UUID, err)
	}
	return &ev, nil
}

// DecodeStats unmarshals a stats invalidation event from a message consumed
// off TopicStatsChanged.
func DecodeStats(msg *message.Message) (*StatsEvent, error) {
	var ev StatsEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		metrics.RecordBusParseFailed()
		return nil, fmt.Errorf("unmarshal stats event %s: %w", msg.UUID, err)
	}
	return &ev, nil
}

func eventID(ev Event) string {
	switch e := ev.(type) {
	case *UploadEvent:
		return e.EventID
	case *ProgressEvent:
		return e.EventID
	case *StatsEvent:
		return e.EventID
	}
	return ""
}

func ownerKey(ev Event) string {
	switch e := ev.(type) {
	case *UploadEvent:
		return e.OwnerKey
	case *ProgressEvent:
		return e.OwnerKey
	case *StatsEvent:
		return e.OwnerKey
	}
	return ""
}
