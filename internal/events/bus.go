// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/tomtom215/itinerarium/internal/metrics"
	"github.com/tomtom215/itinerarium/internal/models"
	"github.com/tomtom215/itinerarium/internal/uploads"
)

// Bus is the in-process event bus. Every upload lifecycle change, progress
// tick, and stats invalidation flows through it; the router's handlers and
// the optional JetStream mirror consume from it.
//
// The bus has two publish paths. The synchronous Publish* methods return
// errors and are for request handlers. The upload tracker's callbacks go
// through a bounded hand-off queue drained by a single goroutine, so a slow
// subscriber can never stall the ingest pipeline; under sustained
// backpressure events are dropped with a warning, progress ticks first.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter

	queue chan busItem
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type busItem struct {
	topic string
	msg   *message.Message
}

var _ uploads.Notifier = (*Bus)(nil)

// NewBus creates the bus and starts its publishing goroutine.
func NewBus(cfg BusConfig, logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}
	if cfg.OutputChannelBuffer <= 0 {
		cfg.OutputChannelBuffer = DefaultBusConfig().OutputChannelBuffer
	}
	if cfg.NotifyQueueSize <= 0 {
		cfg.NotifyQueueSize = DefaultBusConfig().NotifyQueueSize
	}

	b := &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.OutputChannelBuffer,
		}, logger),
		logger: logger,
		queue:  make(chan busItem, cfg.NotifyQueueSize),
	}

	b.wg.Add(1)
	go b.pump()

	return b
}

// PublishUpload publishes an upload snapshot synchronously.
func (b *Bus) PublishUpload(_ context.Context, ev *UploadEvent) error {
	msg, err := Encode(ev)
	if err != nil {
		return err
	}
	return b.publish(TopicUploadChanged, msg)
}

// PublishProgress publishes a progress tick synchronously.
func (b *Bus) PublishProgress(_ context.Context, ev *ProgressEvent) error {
	msg, err := Encode(ev)
	if err != nil {
		return err
	}
	return b.publish(TopicUploadProgress, msg)
}

// PublishStats publishes a stats invalidation event synchronously.
func (b *Bus) PublishStats(_ context.Context, ev *StatsEvent) error {
	msg, err := Encode(ev)
	if err != nil {
		return err
	}
	return b.publish(TopicStatsChanged, msg)
}

// UploadChanged implements the upload tracker's notifier surface. The
// snapshot is queued without blocking; a terminal snapshot that committed
// rows additionally queues a stats invalidation event.
func (b *Bus) UploadChanged(u *models.Upload) {
	ev := NewUploadEvent(u)
	msg, err := Encode(ev)
	if err != nil {
		b.logger.Error("Dropped malformed upload event", err, watermill.LogFields{
			"upload_id": u.ID.String(),
		})
		return
	}
	b.enqueue(TopicUploadChanged, msg)

	if !committedRows(u) {
		return
	}
	stats := NewStatsEvent(StatsReasonUploadCompleted, u.OwnerKey)
	stats.UploadID = u.ID.String()
	stats.RecordsAffected = u.SavedRecords
	smsg, err := Encode(stats)
	if err != nil {
		b.logger.Error("Dropped malformed stats event", err, watermill.LogFields{
			"upload_id": u.ID.String(),
		})
		return
	}
	b.enqueue(TopicStatsChanged, smsg)
}

// UploadProgress implements the upload tracker's notifier surface.
func (b *Bus) UploadProgress(owner string, uploadID uuid.UUID, processed int64) {
	ev := NewProgressEvent(owner, uploadID, processed)
	msg, err := Encode(ev)
	if err != nil {
		b.logger.Error("Dropped malformed progress event", err, watermill.LogFields{
			"upload_id": uploadID.String(),
		})
		return
	}
	b.enqueue(TopicUploadProgress, msg)
}

// Subscribe returns a channel of messages for the given topic. Subscribers
// receive messages published after the subscription is established.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, ErrBusClosed
	}
	b.mu.RUnlock()

	return b.pubsub.Subscribe(ctx, topic)
}

// Publisher exposes the underlying transport for router wiring, such as the
// poison queue publisher.
func (b *Bus) Publisher() message.Publisher {
	return b.pubsub
}

// Subscriber exposes the underlying transport for router handler wiring.
func (b *Bus) Subscriber() message.Subscriber {
	return b.pubsub
}

// Close stops the publishing goroutine, drains queued events, and closes
// the transport. Safe to call more than once.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	close(b.queue)
	b.wg.Wait()

	return b.pubsub.Close()
}

// enqueue hands a message to the publishing goroutine without blocking.
// The read lock pins the queue open so a concurrent Close cannot close the
// channel mid-send.
func (b *Bus) enqueue(topic string, msg *message.Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	select {
	case b.queue <- busItem{topic: topic, msg: msg}:
		metrics.UpdateBusQueueDepth(int64(len(b.queue)))
	default:
		b.logger.Info("Dropped event under backpressure", watermill.LogFields{
			"topic":        topic,
			"message_uuid": msg.UUID,
		})
	}
}

// pump drains the hand-off queue into the transport until Close. It writes
// to the transport directly: items already queued when Close lands still
// reach the transport, which closes only after the drain finishes.
func (b *Bus) pump() {
	defer b.wg.Done()

	for it := range b.queue {
		metrics.UpdateBusQueueDepth(int64(len(b.queue)))
		if err := b.pubsub.Publish(it.topic, it.msg); err != nil {
			b.logger.Error("Dropped event after publish failure", err, watermill.LogFields{
				"topic":        it.topic,
				"message_uuid": it.msg.UUID,
			})
			continue
		}
		metrics.RecordBusPublish()
	}
}

func (b *Bus) publish(topic string, msg *message.Message) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	b.mu.RUnlock()

	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	metrics.RecordBusPublish()
	return nil
}

// committedRows reports whether a finished upload changed stored aggregates.
func committedRows(u *models.Upload) bool {
	if u.State != models.UploadStateCompleted && u.State != models.UploadStateCompletedPartial {
		return false
	}
	return u.SavedRecords > 0
}
