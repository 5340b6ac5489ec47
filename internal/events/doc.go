// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

// Package events provides the upload event bus: a Watermill in-process
// channel carrying upload lifecycle snapshots, progress ticks, and stats
// invalidation events, with an optional NATS JetStream mirror for external
// consumers.
//
// # Architecture
//
// The ingest pipeline and the request handlers publish; the router fans out
// to in-process consumers. The bus itself is an in-memory gochannel, so the
// event path adds no broker dependency to a default deployment:
//
//	┌──────────────┐    ┌──────────────┐
//	│UploadTracker │    │ API Handlers │
//	│ (lifecycle)  │    │(owner delete)│
//	└──────┬───────┘    └──────┬───────┘
//	       │                   │
//	       ▼                   ▼
//	┌─────────────────────────────────┐
//	│        Bus (gochannel)          │
//	│ uploads.changed / .progress /   │
//	│ stats.changed / dlq.events      │
//	└──────────────┬──────────────────┘
//	               │
//	     ┌─────────┼──────────────┐
//	     ▼         ▼              ▼
//	┌─────────┐ ┌────────┐ ┌─────────────┐
//	│WebSocket│ │ Cache  │ │ NATS mirror │
//	│   hub   │ │ flush  │ │ (tag: nats) │
//	└─────────┘ └────────┘ └─────────────┘
//
// # Topics
//
// Three fixed topics cover the domain. The in-process channel matches
// topics exactly, so there are no wildcard subscriptions:
//
//   - uploads.changed: full upload snapshot on every state transition
//   - uploads.progress: record-count ticks while an upload is loading
//   - stats.changed: aggregates went stale (completed upload, owner delete)
//
// Messages that fail processing after every retry land on dlq.events with
// the failure reason in their metadata.
//
// # Backpressure
//
// Upload lifecycle callbacks arrive on the pipeline's goroutines and must
// never block ingestion. The bus accepts them through a bounded hand-off
// queue drained by a single publishing goroutine; when the queue is full,
// events are dropped with a warning. Progress ticks are advisory, and every
// dropped snapshot is recoverable from the upload ledger.
//
// # Router
//
// The Router wraps Watermill's router with the processing pipeline
// pre-configured: poison queue, instrumentation, optional throttling,
// exponential backoff retry, and panic recovery. Handlers register against
// a topic and receive automatic Ack/Nack handling:
//
//	router, err := events.NewRouter(nil, bus.Publisher(), logger)
//	if err != nil {
//	    return err
//	}
//	router.AddConsumerHandler("ws-progress", events.TopicUploadProgress,
//	    bus.Subscriber(), func(msg *message.Message) error {
//	        tick, err := events.DecodeProgress(msg)
//	        if err != nil {
//	            return err
//	        }
//	        hub.BroadcastProgress(tick)
//	        return nil
//	    })
//
// # JetStream mirror
//
// Built with -tags=nats, the Publisher mirrors every bus topic to NATS
// JetStream for external consumers, with circuit breaker protection and
// Nats-Msg-Id deduplication. The EmbeddedServer runs a self-contained
// broker for single-node deployments, and the StreamInitializer provisions
// the UPLOAD_EVENTS stream before the mirror starts. Without the tag the
// same types compile as stubs that return errors on use.
package events
