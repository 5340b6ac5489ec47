// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package events

import "errors"

// ErrNATSNotEnabled is returned when JetStream mirror features are used
// without the nats build tag.
var ErrNATSNotEnabled = errors.New("NATS mirror not enabled (build with -tags nats)")

// ErrBusClosed is returned when publishing or subscribing on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// ErrPublisherClosed is returned when publishing through a closed mirror
// publisher.
var ErrPublisherClosed = errors.New("publisher is closed")
