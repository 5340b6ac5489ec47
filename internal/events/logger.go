// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	"github.com/tomtom215/itinerarium/internal/logging"
)

// LoggerAdapter implements watermill.LoggerAdapter using zerolog as the
// backend, so Watermill internals log through the same pipeline as the rest
// of the application.
type LoggerAdapter struct {
	logger zerolog.Logger
	fields watermill.LogFields
}

var _ watermill.LoggerAdapter = (*LoggerAdapter)(nil)

// NewLoggerAdapter creates a Watermill logger backed by the global zerolog
// logger, tagged with the events component.
func NewLoggerAdapter() *LoggerAdapter {
	return &LoggerAdapter{
		logger: logging.Logger().With().Str("component", "events").Logger(),
	}
}

// NewLoggerAdapterWithLogger creates a Watermill logger with a specific
// zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewLoggerAdapterWithLogger(logger zerolog.Logger) *LoggerAdapter {
	return &LoggerAdapter{logger: logger}
}

// Error logs an error message.
func (l *LoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.apply(l.logger.Error().Err(err), fields).Msg(msg)
}

// Info logs an informational message.
func (l *LoggerAdapter) Info(msg string, fields watermill.LogFields) {
	l.apply(l.logger.Info(), fields).Msg(msg)
}

// Debug logs a debug message.
func (l *LoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	l.apply(l.logger.Debug(), fields).Msg(msg)
}

// Trace logs a trace message.
func (l *LoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	l.apply(l.logger.Trace(), fields).Msg(msg)
}

// With returns a new logger carrying the given fields on every entry.
func (l *LoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	merged := make(watermill.LogFields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &LoggerAdapter{logger: l.logger, fields: merged}
}

func (l *LoggerAdapter) apply(event *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range l.fields {
		event = event.Interface(k, v)
	}
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	return event
}
