// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package timeline

import (
	"context"
	"errors"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/itinerarium/internal/config"
	"github.com/tomtom215/itinerarium/internal/database"
	"github.com/tomtom215/itinerarium/internal/logging"
	"github.com/tomtom215/itinerarium/internal/metrics"
	"github.com/tomtom215/itinerarium/internal/models"
)

// RecordAppender is the slice of the store the loader needs: one bulk
// append returning how many rows were committed.
type RecordAppender interface {
	AppendRecords(ctx context.Context, records []*models.Record) (int64, error)
}

// Store circuit breaker tuning. Five consecutive failed chunk writes open
// the breaker; after ten seconds it admits up to three probe writes.
const (
	breakerName             = "record-store"
	breakerMaxRequests      = 3
	breakerInterval         = 30 * time.Second
	breakerTimeout          = 10 * time.Second
	breakerFailureThreshold = 5

	// chunkWriteTimeout bounds one bulk append. Writes run on a context
	// detached from the upload so a client disconnect cannot abort a
	// chunk that is already committing.
	chunkWriteTimeout = 30 * time.Second
)

// LoadResult summarizes one upload's load stage.
type LoadResult struct {
	// Processed counts records received from the validate stage.
	Processed int64
	// Saved counts rows the store committed.
	Saved int64
	// Rejected counts records dropped during chunk isolation.
	Rejected int64
	// Chunks counts chunk writes attempted, including the final short one.
	Chunks  int
	Elapsed time.Duration
}

// BulkLoader drains validated records into the store in fixed-size chunks.
//
// One loader is shared by all concurrent uploads so the circuit breaker and
// the per-owner write locks see every store interaction. Chunk writes for
// the same owner never interleave; different owners proceed in parallel.
//
// Failure policy per chunk: a transient store error gets one retry after a
// short backoff, then the upload stops with a LoadFatalError naming the
// chunk. A structural error (the store refusing the data itself) splits the
// chunk in half and then isolates per record, dropping only the offenders
// and continuing.
type BulkLoader struct {
	store      RecordAppender
	breaker    *gobreaker.CircuitBreaker[interface{}]
	chunkSize  int
	retryDelay time.Duration

	mu      sync.Mutex
	ownerMu map[string]*sync.Mutex
}

// NewBulkLoader builds the process-wide loader on top of store.
func NewBulkLoader(store RecordAppender, cfg config.IngestConfig) *BulkLoader {
	l := &BulkLoader{
		store:      store,
		chunkSize:  cfg.ChunkSize,
		retryDelay: cfg.RetryDelay,
		ownerMu:    make(map[string]*sync.Mutex),
	}
	if l.chunkSize <= 0 {
		l.chunkSize = 1000
	}
	if l.retryDelay <= 0 {
		l.retryDelay = 500 * time.Millisecond
	}

	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: breakerMaxRequests,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Store circuit breaker changed state")
		},
	}
	l.breaker = gobreaker.NewCircuitBreaker[interface{}](settings)
	return l
}

// BreakerState reports the store breaker state for health reporting.
func (l *BulkLoader) BreakerState() string {
	return l.breaker.State().String()
}

// Load drains records until the channel closes, flushing every chunkSize
// records and once more at the end. Dropped-record reasons go into errs.
//
// The returned error is nil on a clean drain, ctx.Err() on cancellation, or
// a *LoadFatalError carrying the failing chunk number and the rows saved
// before the stop. Chunks committed before a fatal stop stay committed.
func (l *BulkLoader) Load(ctx context.Context, owner string, records <-chan *models.Record, errs *ErrorList) (LoadResult, error) {
	start := time.Now()
	var res LoadResult
	chunk := make([]*models.Record, 0, l.chunkSize)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		res.Chunks++
		saved, dropped, err := l.writeChunk(ctx, owner, res.Chunks, chunk, errs)
		res.Saved += saved
		res.Rejected += dropped
		chunk = chunk[:0]
		return err
	}

	fail := func(err error) (LoadResult, error) {
		res.Elapsed = time.Since(start)
		var fatal *LoadFatalError
		if errors.As(err, &fatal) {
			fatal.SavedSoFar = res.Saved
		}
		return res, err
	}

	for {
		select {
		case <-ctx.Done():
			return fail(ctx.Err())
		case rec, ok := <-records:
			if !ok {
				if err := flush(); err != nil {
					return fail(err)
				}
				res.Elapsed = time.Since(start)
				return res, nil
			}
			res.Processed++
			chunk = append(chunk, rec)
			if len(chunk) >= l.chunkSize {
				if err := flush(); err != nil {
					return fail(err)
				}
			}
		}
	}
}

// writeChunk commits one chunk under the owner's write lock and applies the
// retry/split policy. A non-nil error is always a *LoadFatalError.
func (l *BulkLoader) writeChunk(ctx context.Context, owner string, chunkNo int, records []*models.Record, errs *ErrorList) (saved, dropped int64, fatal error) {
	lock := l.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	n, err := l.append(records, false)
	if err == nil {
		return n, 0, nil
	}
	if isBreakerOpen(err) {
		return 0, 0, &LoadFatalError{Chunk: chunkNo, Cause: ErrStoreUnavailable}
	}

	if database.IsTransientError(err) {
		logging.Warn().
			Int("chunk", chunkNo).
			Int("records", len(records)).
			Str("error", logging.SanitizeError(err.Error())).
			Msg("Transient chunk write failure, retrying once")
		select {
		case <-time.After(l.retryDelay):
		case <-ctx.Done():
			return 0, 0, &LoadFatalError{Chunk: chunkNo, Cause: ctx.Err()}
		}
		n, err = l.append(records, true)
		if err == nil {
			return n, 0, nil
		}
		if isBreakerOpen(err) {
			return 0, 0, &LoadFatalError{Chunk: chunkNo, Cause: ErrStoreUnavailable}
		}
		logging.Error().
			Int("chunk", chunkNo).
			Str("error", logging.SanitizeError(err.Error())).
			Msg("Chunk write failed after retry")
		return 0, 0, &LoadFatalError{Chunk: chunkNo, Cause: errors.New(categorizeStoreError(err))}
	}

	return l.splitAndIsolate(chunkNo, records, errs)
}

// splitAndIsolate handles a chunk the store refused on data grounds: write
// each half, and for a half that still fails write record by record,
// dropping only the rows the store will not take.
func (l *BulkLoader) splitAndIsolate(chunkNo int, records []*models.Record, errs *ErrorList) (saved, dropped int64, fatal error) {
	metrics.RecordChunkSplit()
	logging.Warn().
		Int("chunk", chunkNo).
		Int("records", len(records)).
		Msg("Store rejected chunk, splitting to isolate bad records")

	half := len(records) / 2
	for _, part := range [][]*models.Record{records[:half], records[half:]} {
		if len(part) == 0 {
			continue
		}
		n, err := l.append(part, false)
		if err == nil {
			saved += n
			continue
		}
		if isBreakerOpen(err) {
			return saved, dropped, &LoadFatalError{Chunk: chunkNo, Cause: ErrStoreUnavailable}
		}
		if database.IsTransientError(err) {
			return saved, dropped, &LoadFatalError{Chunk: chunkNo, Cause: errors.New(categorizeStoreError(err))}
		}

		for _, rec := range part {
			n, err := l.append([]*models.Record{rec}, false)
			if err == nil {
				saved += n
				continue
			}
			if isBreakerOpen(err) {
				return saved, dropped, &LoadFatalError{Chunk: chunkNo, Cause: ErrStoreUnavailable}
			}
			if database.IsTransientError(err) {
				return saved, dropped, &LoadFatalError{Chunk: chunkNo, Cause: errors.New(categorizeStoreError(err))}
			}
			dropped++
			metrics.RecordRejection("store_rejected")
			errs.Add((&ChunkError{Chunk: chunkNo, Cause: categorizeStoreError(err)}).Error())
		}
	}
	return saved, dropped, nil
}

// append performs one store write through the circuit breaker on a detached
// timeout context.
func (l *BulkLoader) append(records []*models.Record, retried bool) (int64, error) {
	start := time.Now()
	v, err := l.breaker.Execute(func() (interface{}, error) {
		writeCtx, cancel := context.WithTimeout(context.Background(), chunkWriteTimeout)
		defer cancel()
		return l.store.AppendRecords(writeCtx, records)
	})

	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, result).Inc()
	if err != nil {
		return 0, err
	}
	metrics.RecordChunkFlush(time.Since(start), len(records), retried)
	return v.(int64), nil
}

func (l *BulkLoader) ownerLock(owner string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.ownerMu[owner]
	if !ok {
		m = &sync.Mutex{}
		l.ownerMu[owner] = m
	}
	return m
}

func isBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
