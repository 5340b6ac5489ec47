// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package events

import "time"

// BusConfig holds configuration for the in-process event bus.
type BusConfig struct {
	// OutputChannelBuffer is the buffer size of each subscriber's channel.
	OutputChannelBuffer int64

	// NotifyQueueSize bounds the hand-off queue between upload lifecycle
	// callbacks and the publishing goroutine. Callbacks never block: when
	// the queue is full, progress ticks and snapshots are dropped with a
	// warning instead of stalling the ingest pipeline.
	NotifyQueueSize int
}

// DefaultBusConfig returns production defaults for the bus.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		OutputChannelBuffer: 256,
		NotifyQueueSize:     1024,
	}
}

// RouterConfig holds configuration for the Watermill Router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	// Retry configuration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// Throttle configuration (messages per second, 0 = disabled)
	ThrottlePerSecond int64

	// PoisonQueue configuration
	PoisonQueueEnabled bool
	PoisonQueueTopic   string
}

// DefaultRouterConfig returns production defaults for the Router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      5,
		RetryInitialInterval: time.Second,
		RetryMaxInterval:     time.Minute,
		RetryMultiplier:      2.0,
		ThrottlePerSecond:    0,
		PoisonQueueEnabled:   true,
		PoisonQueueTopic:     DefaultPoisonTopic,
	}
}

// PublisherConfig holds configuration for the JetStream mirror publisher.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for the mirror publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns production defaults for the embedded server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   1 << 30,  // 1GB
		JetStreamMaxStore: 10 << 30, // 10GB
	}
}

// StreamConfig defines the upload event stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns production stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name: "UPLOAD_EVENTS",
		Subjects: []string{
			"uploads.>",
			"stats.>",
			"dlq.>",
		},
		MaxAge:          7 * 24 * time.Hour,     // 7 days
		MaxBytes:        1 * 1024 * 1024 * 1024, // 1GB
		MaxMsgs:         -1,                     // Unlimited
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1, // Increase for clustering
	}
}
