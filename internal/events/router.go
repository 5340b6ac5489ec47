// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"

	"github.com/tomtom215/itinerarium/internal/metrics"
)

// Router wraps the Watermill Router with pre-configured middleware. It
// provides automatic Ack/Nack handling, panic recovery, exponential backoff
// retry, and poison queue routing for messages that exhaust their retries.
//
// Middleware runs outermost to innermost: poison queue, instrumentation,
// throttle, retry, recoverer. Panics surface as errors inside the retry
// loop, and only failures that survive every retry reach the poison queue.
type Router struct {
	router   *message.Router
	config   RouterConfig
	logger   watermill.LoggerAdapter
	handlers map[string]*message.Handler
}

// NewRouter creates a Watermill Router with the processing pipeline
// configured. The poison publisher receives messages that fail after all
// retries; pass the bus transport so dead letters stay inspectable on the
// poison topic.
func NewRouter(cfg *RouterConfig, poisonPublisher message.Publisher, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	if cfg == nil {
		defaultCfg := DefaultRouterConfig()
		cfg = &defaultCfg
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	r := &Router{
		router:   wmRouter,
		config:   *cfg,
		logger:   logger,
		handlers: make(map[string]*message.Handler),
	}

	// Graceful shutdown on SIGINT/SIGTERM
	wmRouter.AddPlugin(plugin.SignalsHandler)

	if cfg.PoisonQueueEnabled && poisonPublisher != nil && cfg.PoisonQueueTopic != "" {
		poisonQueue, err := middleware.PoisonQueue(
			&poisonCountingPublisher{inner: poisonPublisher},
			cfg.PoisonQueueTopic,
		)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		wmRouter.AddMiddleware(poisonQueue)
	}

	wmRouter.AddMiddleware(instrumentHandler)

	if cfg.ThrottlePerSecond > 0 {
		throttle := middleware.NewThrottle(cfg.ThrottlePerSecond, time.Second)
		wmRouter.AddMiddleware(throttle.Middleware)
	}

	retryMiddleware := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retryMiddleware.Middleware)

	// Innermost so panics become errors the retry loop can see
	wmRouter.AddMiddleware(middleware.Recoverer)

	return r, nil
}

// AddHandler registers a handler that consumes from one topic and publishes
// its output messages to another.
func (r *Router) AddHandler(
	name string,
	subscribeTopic string,
	subscriber message.Subscriber,
	publishTopic string,
	publisher message.Publisher,
	handler message.HandlerFunc,
) *message.Handler {
	h := r.router.AddHandler(name, subscribeTopic, subscriber, publishTopic, publisher, handler)
	r.handlers[name] = h
	return h
}

// AddConsumerHandler registers a handler that only consumes messages.
func (r *Router) AddConsumerHandler(
	name string,
	subscribeTopic string,
	subscriber message.Subscriber,
	handler message.NoPublishHandlerFunc,
) *message.Handler {
	h := r.router.AddConsumerHandler(name, subscribeTopic, subscriber, handler)
	r.handlers[name] = h
	return h
}

// AddHandlerMiddleware adds middleware to a specific handler. Handler-level
// middleware runs after router-level middleware.
func (r *Router) AddHandlerMiddleware(handlerName string, m ...message.HandlerMiddleware) error {
	h, exists := r.handlers[handlerName]
	if !exists {
		return fmt.Errorf("handler %q not found", handlerName)
	}
	h.AddMiddleware(m...)
	return nil
}

// Serve runs the router until context cancellation. It satisfies the
// supervision tree's service contract: the returned context error marks a
// clean shutdown rather than a crash.
func (r *Router) Serve(ctx context.Context) error {
	err := r.router.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// String identifies the service in supervisor logs.
func (r *Router) String() string {
	return "event-router"
}

// Run starts the router and blocks until context cancellation or Close.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel that closes once all handlers are consuming.
// Publish only after it closes, or subscribers may miss messages.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// IsRunning reports whether the router has started.
func (r *Router) IsRunning() bool {
	select {
	case <-r.router.Running():
		return true
	default:
		return false
	}
}

// Close gracefully stops the router, waiting up to CloseTimeout for
// in-flight messages.
func (r *Router) Close() error {
	return r.router.Close()
}

// instrumentHandler counts one consume per delivery and the total
// processing duration including retries. Messages that end up poisoned do
// not count as processed; the poison publisher counts those.
func instrumentHandler(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) (out []*message.Message, err error) {
		metrics.RecordBusConsume()
		start := time.Now()
		defer func() {
			metrics.RecordBusProcessingDuration(time.Since(start))
		}()

		out, err = h(msg)
		if err == nil {
			metrics.RecordBusProcessed()
		}
		return out, err
	}
}

// poisonCountingPublisher counts every message that lands on the poison
// topic.
type poisonCountingPublisher struct {
	inner message.Publisher
}

var _ message.Publisher = (*poisonCountingPublisher)(nil)

func (p *poisonCountingPublisher) Publish(topic string, messages ...*message.Message) error {
	if err := p.inner.Publish(topic, messages...); err != nil {
		return err
	}
	for range messages {
		metrics.RecordBusPoisoned()
	}
	return nil
}

func (p *poisonCountingPublisher) Close() error {
	return p.inner.Close()
}
