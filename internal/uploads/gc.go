// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package uploads

import (
	"context"
	"time"

	"github.com/tomtom215/itinerarium/internal/logging"
	"github.com/tomtom215/itinerarium/internal/metrics"
)

// defaultGCInterval is used when the configured interval is zero.
const defaultGCInterval = 10 * time.Minute

// GCService periodically reclaims ledger value-log space and refreshes the
// entry-count gauge. Runs as a supervised service.
type GCService struct {
	ledger   *Ledger
	interval time.Duration
}

func NewGCService(ledger *Ledger, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = defaultGCInterval
	}
	return &GCService{ledger: ledger, interval: interval}
}

// Serve runs the GC loop until ctx is canceled. Matches the suture service
// contract: it returns ctx.Err() on shutdown.
func (s *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", s.interval).Msg("Ledger GC started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *GCService) runOnce(ctx context.Context) {
	start := time.Now()
	result := "success"
	if err := s.ledger.RunGC(); err != nil {
		result = "error"
		logging.Error().Str("error", err.Error()).Msg("Ledger GC failed")
	}
	metrics.RecordLedgerGC(result, time.Since(start))

	count, err := s.ledger.EntryCount(ctx)
	if err != nil {
		logging.Warn().Str("error", err.Error()).Msg("Ledger entry count failed")
		return
	}
	metrics.UpdateLedgerEntries(count)
}

func (s *GCService) String() string { return "ledger-gc" }
