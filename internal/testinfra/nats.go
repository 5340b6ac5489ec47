// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultNATSImage tracks the nats-server major version the module
	// embeds, so container tests exercise the same protocol surface.
	DefaultNATSImage = "nats:2.12-alpine"

	// DefaultNATSClientPort is the NATS client protocol port.
	DefaultNATSClientPort = "4222"

	// DefaultNATSMonitorPort is the HTTP monitoring port.
	DefaultNATSMonitorPort = "8222"
)

// NATSContainer represents a running NATS server container for testing.
type NATSContainer struct {
	testcontainers.Container
	// URL is the client connection string, e.g. nats://localhost:32768.
	URL string
	// MonitorURL is the HTTP monitoring endpoint, e.g. http://localhost:32769.
	MonitorURL string
}

// NATSOption configures the NATS container.
type NATSOption func(*natsConfig)

type natsConfig struct {
	image        string
	jetStream    bool
	startTimeout time.Duration
	logger       *ContainerLogger
}

// WithNATSImage sets a custom NATS Docker image.
func WithNATSImage(image string) NATSOption {
	return func(c *natsConfig) {
		c.image = image
	}
}

// WithoutJetStream starts the server without JetStream. The default keeps
// it on since the event bridge publishes to JetStream streams.
func WithoutJetStream() NATSOption {
	return func(c *natsConfig) {
		c.jetStream = false
	}
}

// WithNATSStartTimeout sets the startup wait timeout.
func WithNATSStartTimeout(timeout time.Duration) NATSOption {
	return func(c *natsConfig) {
		c.startTimeout = timeout
	}
}

// WithNATSLogger routes container lifecycle logs through
// NewContainerLogger(t) so they land in the test output.
func WithNATSLogger(logger *ContainerLogger) NATSOption {
	return func(c *natsConfig) {
		c.logger = logger
	}
}

// NewNATSContainer creates and starts a NATS server container.
//
// Example:
//
//	ctx := context.Background()
//	broker, err := NewNATSContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer CleanupContainer(t, ctx, broker.Container)
//
//	nc, err := nats.Connect(broker.URL)
func NewNATSContainer(ctx context.Context, opts ...NATSOption) (*NATSContainer, error) {
	cfg := &natsConfig{
		image:        DefaultNATSImage,
		jetStream:    true,
		startTimeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	cmd := []string{"--http_port", DefaultNATSMonitorPort}
	if cfg.jetStream {
		cmd = append(cmd, "-js")
	}

	req := testcontainers.ContainerRequest{
		Image: cfg.image,
		ExposedPorts: []string{
			DefaultNATSClientPort + "/tcp",
			DefaultNATSMonitorPort + "/tcp",
		},
		Cmd: cmd,
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(DefaultNATSClientPort+"/tcp"),
			wait.ForLog("Server is ready"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	greq := testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	}
	if cfg.logger != nil {
		greq.Logger = cfg.logger
	}

	container, err := testcontainers.GenericContainer(ctx, greq)
	if err != nil {
		return nil, fmt.Errorf("create nats container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}

	clientPort, err := container.MappedPort(ctx, DefaultNATSClientPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped client port: %w", err)
	}

	monitorPort, err := container.MappedPort(ctx, DefaultNATSMonitorPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped monitor port: %w", err)
	}

	return &NATSContainer{
		Container:  container,
		URL:        fmt.Sprintf("nats://%s:%s", host, clientPort.Port()),
		MonitorURL: fmt.Sprintf("http://%s:%s", host, monitorPort.Port()),
	}, nil
}

// HealthzURL returns the monitoring health endpoint.
func (c *NATSContainer) HealthzURL() string {
	return c.MonitorURL + "/healthz"
}

// Terminate stops and removes the NATS container.
func (c *NATSContainer) Terminate(ctx context.Context) error {
	return c.Container.Terminate(ctx)
}

// Logs returns the container logs for debugging.
func (c *NATSContainer) Logs(ctx context.Context) (string, error) {
	reader, err := c.Container.Logs(ctx)
	if err != nil {
		return "", fmt.Errorf("get logs: %w", err)
	}
	defer reader.Close()

	var logs []byte
	buf := make([]byte, 1024)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			logs = append(logs, buf[:n]...)
		}
		if err != nil {
			break
		}
	}

	return string(logs), nil
}
