// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

//go:build nats

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/itinerarium/internal/config"
	"github.com/tomtom215/itinerarium/internal/events"
	"github.com/tomtom215/itinerarium/internal/logging"
	"github.com/tomtom215/itinerarium/internal/metrics"
)

// Mirror publish failures trip this breaker after five consecutive losses;
// after thirty seconds it admits up to three probe publishes.
const (
	mirrorBreakerName             = "nats-mirror"
	mirrorBreakerMaxRequests      = 3
	mirrorBreakerInterval         = 60 * time.Second
	mirrorBreakerTimeout          = 30 * time.Second
	mirrorBreakerFailureThreshold = 5

	// streamDepthInterval is how often the supervised components sample
	// the JetStream stream depth into the consumer lag gauge.
	streamDepthInterval = 30 * time.Second
)

// NATSComponents holds the optional JetStream mirror: the embedded server
// (if configured), the broker connection, the stream initializer, and the
// publisher whose mirror handlers ride the event router.
type NATSComponents struct {
	server     *events.EmbeddedServer
	conn       *natsgo.Conn
	streamInit *events.StreamInitializer
	publisher  *events.Publisher

	shutdownComplete chan struct{}
	mu               sync.Mutex
	running          bool
}

// initNATS wires the JetStream mirror when NATS_ENABLED=true. The mirror
// handlers are registered on the router here, before the supervisor starts
// it, so every bus topic is forwarded from the first message.
//
// Returns nil components when NATS is disabled; callers treat nil as "no
// mirror" without build tag conditionals.
func initNATS(cfg *config.Config, router *events.Router, bus *events.Bus) (*NATSComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS event mirroring disabled (NATS_ENABLED=false)")
		return nil, nil
	}

	logging.Info().Msg("Initializing NATS event mirror...")

	components := &NATSComponents{
		shutdownComplete: make(chan struct{}),
	}

	var natsURL string
	if cfg.NATS.EmbeddedServer {
		serverCfg := events.ServerConfig{
			Host:              "127.0.0.1",
			Port:              4222,
			StoreDir:          cfg.NATS.StoreDir,
			JetStreamMaxMem:   cfg.NATS.MaxMemory,
			JetStreamMaxStore: cfg.NATS.MaxStore,
		}

		server, err := events.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		components.server = server
		natsURL = server.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
	} else {
		natsURL = cfg.NATS.URL
		logging.Info().Str("url", natsURL).Msg("Using external NATS server")
	}

	nc, err := natsgo.Connect(natsURL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	components.conn = nc

	js, err := jetstream.New(nc)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	streamCfg := events.DefaultStreamConfig()
	if cfg.NATS.StreamRetentionDays > 0 {
		streamCfg.MaxAge = time.Duration(cfg.NATS.StreamRetentionDays) * 24 * time.Hour
	}

	streamInit, err := events.NewStreamInitializer(js, &streamCfg)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create stream initializer: %w", err)
	}
	components.streamInit = streamInit

	stream, err := streamInit.EnsureStream(context.Background())
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("ensure stream exists: %w", err)
	}
	streamInfo := stream.CachedInfo()
	logging.Info().
		Str("name", streamInfo.Config.Name).
		Strs("subjects", streamInfo.Config.Subjects).
		Dur("max_age", streamInfo.Config.MaxAge).
		Msg("JetStream stream ready")

	publisher, err := events.NewPublisher(events.DefaultPublisherConfig(natsURL), events.NewLoggerAdapter())
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create mirror publisher: %w", err)
	}
	components.publisher = publisher

	publisher.SetCircuitBreaker(newMirrorBreaker())
	publisher.AttachMirror(router, bus.Subscriber())
	logging.Info().Msg("Mirror handlers attached to event router")

	return components, nil
}

// newMirrorBreaker builds the circuit breaker guarding mirror publishes.
// A tripped breaker sheds publishes instead of queueing them; JetStream's
// duplicate window absorbs replays once the broker returns.
func newMirrorBreaker() *gobreaker.CircuitBreaker[interface{}] {
	settings := gobreaker.Settings{
		Name:        mirrorBreakerName,
		MaxRequests: mirrorBreakerMaxRequests,
		Interval:    mirrorBreakerInterval,
		Timeout:     mirrorBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= mirrorBreakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Mirror circuit breaker changed state")
		},
	}
	return gobreaker.NewCircuitBreaker[interface{}](settings)
}

// Start marks the mirror running and begins sampling the stream depth into
// the consumer lag gauge. The mirror itself is passive: its handlers run
// inside the supervised event router, and the connection self-heals through
// the client's reconnect loop.
func (c *NATSComponents) Start(ctx context.Context) error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	if c.streamInit != nil {
		go c.sampleStreamDepth(ctx)
	}

	logging.Info().Msg("NATS mirror components started")
	return nil
}

// sampleStreamDepth polls the stream depth until ctx is canceled.
func (c *NATSComponents) sampleStreamDepth(ctx context.Context) {
	ticker := time.NewTicker(streamDepthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := c.streamInit.StreamDepth(ctx)
			if err != nil {
				logging.Debug().Err(err).Msg("Stream depth probe failed")
				continue
			}
			metrics.UpdateBusConsumerLag(int64(depth))
		}
	}
}

// Shutdown stops the mirror. Order matters: the publisher closes first so
// no publish races the closing connection, then the connection, then the
// embedded server.
func (c *NATSComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}

	c.mu.Lock()
	wasRunning := c.running
	c.running = false
	c.mu.Unlock()

	logging.Info().Msg("Shutting down NATS mirror...")

	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing mirror publisher")
		}
	}
	if c.conn != nil {
		c.conn.Close()
		logging.Info().Msg("NATS connection closed")
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
		}
		logging.Info().Msg("Embedded NATS server stopped")
	}

	if wasRunning {
		close(c.shutdownComplete)
	}
	logging.Info().Msg("NATS mirror shutdown complete")
}

// IsRunning reports whether the mirror components are active.
func (c *NATSComponents) IsRunning() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
