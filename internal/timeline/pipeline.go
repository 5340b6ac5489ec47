// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package timeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/itinerarium/internal/config"
	"github.com/tomtom215/itinerarium/internal/logging"
	"github.com/tomtom215/itinerarium/internal/metrics"
	"github.com/tomtom215/itinerarium/internal/models"
)

// progressEvery is how many parsed entries pass between observer progress
// callbacks.
const progressEvery = 5000

// compensationTimeout bounds the delete that backs out committed chunks
// after a parse failure.
const compensationTimeout = 30 * time.Second

// PipelineStore is the store surface one upload needs: bulk appends during
// loading, plus the targeted delete that backs out an aborted upload.
type PipelineStore interface {
	RecordAppender
	DeleteUploadRecords(ctx context.Context, uploadID uuid.UUID) (int64, error)
}

// Observer receives lifecycle callbacks from a running upload. Callbacks
// arrive on the upload's goroutine; implementations must not block.
type Observer interface {
	StageChanged(uploadID uuid.UUID, state models.UploadState)
	Progress(uploadID uuid.UUID, processed int64)
}

// RunResult is the outcome of one upload run.
type RunResult struct {
	// State is terminal: Completed, CompletedPartial, or Failed.
	State models.UploadState
	// Processed counts every entry the parser emitted.
	Processed int64
	// Saved counts rows committed and still present after any
	// compensation.
	Saved int64
	// WarningCount aggregates validation warnings, validation rejections,
	// and records dropped during chunk isolation.
	WarningCount int64
	// Errors is the bounded error list snapshot.
	Errors []string
	// FailureReason is set for Failed and CompletedPartial runs.
	FailureReason string
	Elapsed       time.Duration
}

// Pipeline runs uploads through parse, validate, and load stages connected
// by bounded channels.
//
// One Pipeline serves the whole process: it owns the admission rate
// limiter, the concurrent-upload semaphore, and the shared BulkLoader, so
// per-owner ordering and the store circuit breaker hold across simultaneous
// uploads. Peak memory per upload is bounded by channel depth plus one
// chunk, regardless of input size.
//
// Terminal semantics: a structural parse failure aborts the upload and
// backs out any chunks committed before the failure surfaced, so a Failed
// upload leaves nothing behind. A store failure mid-load keeps the
// committed prefix and finishes CompletedPartial. Cancellation behaves like
// a store failure: committed chunks stay.
type Pipeline struct {
	store     PipelineStore
	parser    *StreamingParser
	loader    *BulkLoader
	admission *ownerRateLimiter
	sem       chan struct{}
	loc       *time.Location

	bufferDepth  int
	maxErrorList int
	ingestLog    *logging.IngestLogger
}

// NewPipeline builds the process-wide upload pipeline over store.
func NewPipeline(store PipelineStore, cfg config.IngestConfig) *Pipeline {
	depth := cfg.BufferDepth
	if depth <= 0 {
		depth = 256
	}
	concurrent := cfg.MaxConcurrentUploads
	if concurrent <= 0 {
		concurrent = 4
	}

	loc := time.UTC
	if cfg.DefaultTimezone != "" {
		parsed, err := time.LoadLocation(cfg.DefaultTimezone)
		if err != nil {
			logging.Warn().
				Str("timezone", cfg.DefaultTimezone).
				Msg("Unknown input timezone, using UTC")
		} else {
			loc = parsed
		}
	}

	return &Pipeline{
		store:        store,
		parser:       NewStreamingParser(),
		loader:       NewBulkLoader(store, cfg),
		admission:    newOwnerRateLimiter(cfg.OwnerUploadsPerMin, cfg.OwnerUploadBurst),
		sem:          make(chan struct{}, concurrent),
		loc:          loc,
		bufferDepth:  depth,
		maxErrorList: cfg.MaxErrorList,
		ingestLog:    logging.NewIngestLogger(),
	}
}

// Close stops the pipeline's background goroutines. Running uploads are not
// interrupted.
func (p *Pipeline) Close() {
	p.admission.Stop()
}

// BreakerState reports the store circuit breaker state for health checks.
func (p *Pipeline) BreakerState() string {
	return p.loader.BreakerState()
}

// Run ingests one upload stream and returns its terminal result.
//
// ErrUploadRateLimited is returned before any byte is read when the owner
// exceeds the admission rate. Every other failure mode ends in a RunResult
// whose State and FailureReason describe what happened; the error return is
// reserved for not-even-started conditions.
func (p *Pipeline) Run(ctx context.Context, owner string, uploadID uuid.UUID, r io.Reader, obs Observer) (*RunResult, error) {
	if !p.admission.Allow(owner) {
		metrics.RecordAdmissionRejection()
		return nil, ErrUploadRateLimited
	}

	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	metrics.TrackActiveUpload(true)
	defer metrics.TrackActiveUpload(false)

	start := time.Now()
	pipeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	validator := NewRecordValidator(owner, uploadID, p.loc)
	errs := NewErrorList(p.maxErrorList)
	recs := make(chan *models.Record, p.bufferDepth)

	notifyStage(obs, uploadID, models.UploadStateParsing)

	loadDone := make(chan struct{})
	var loadRes LoadResult
	var loadErr error
	go func() {
		defer close(loadDone)
		loadRes, loadErr = p.loader.Load(pipeCtx, owner, recs, errs)
		// A loader that stops early leaves the parse side blocked on a
		// full channel; cancel the pipe to unwind it.
		cancel()
	}()

	var entrySeq int64
	enteredValidate := false
	enteredLoad := false

	emit := func(entry RawEntry) error {
		if err := pipeCtx.Err(); err != nil {
			return err
		}
		entrySeq++
		if !enteredValidate {
			enteredValidate = true
			notifyStage(obs, uploadID, models.UploadStateValidating)
		}

		outcome := validator.Validate(entry)
		if outcome.Status == OutcomeRejected {
			errs.Addf("record %d: %s", entrySeq, outcome.Reason)
			metrics.RecordRejection(rejectionCategory(outcome.Reason))
			return nil
		}
		if outcome.Status == OutcomeWarned {
			errs.Addf("record %d: %s", entrySeq, outcome.Reason)
		}

		select {
		case recs <- outcome.Record:
			if !enteredLoad {
				enteredLoad = true
				notifyStage(obs, uploadID, models.UploadStateLoading)
			}
		case <-pipeCtx.Done():
			return pipeCtx.Err()
		}

		if obs != nil && entrySeq%progressEvery == 0 {
			obs.Progress(uploadID, entrySeq)
		}
		return nil
	}

	parseErr := p.parser.Parse(pipeCtx, r, emit)
	close(recs)
	<-loadDone

	_, warned, rejected := validator.Counts()
	res := &RunResult{
		Processed:    entrySeq,
		Saved:        loadRes.Saved,
		WarningCount: warned + rejected + loadRes.Rejected,
		Elapsed:      time.Since(start),
	}

	p.resolveTerminalState(res, owner, uploadID, parseErr, loadErr)
	res.Errors = errs.Snapshot()

	metrics.RecordUploadOutcome(string(res.State), res.Elapsed)
	metrics.RecordRecordOutcomes(res.Processed, res.Saved, res.WarningCount)
	return res, nil
}

// resolveTerminalState maps the parse and load outcomes onto the upload
// state machine and performs parse-failure compensation.
func (p *Pipeline) resolveTerminalState(res *RunResult, owner string, uploadID uuid.UUID, parseErr, loadErr error) {
	id := uploadID.String()

	switch {
	case isStructuralParseFailure(parseErr):
		// Nothing from a malformed document may be kept, including
		// chunks that committed before the malformation was reached.
		res.State = models.UploadStateFailed
		res.FailureReason = parseErr.Error()
		p.compensate(uploadID, res.Saved)
		res.Saved = 0
		p.ingestLog.LogUploadFailed(id, owner, res.FailureReason)

	case loadErr != nil && !isCancellation(loadErr):
		res.FailureReason = loadErr.Error()
		if res.Saved > 0 {
			res.State = models.UploadStateCompletedPartial
			p.ingestLog.LogUploadPartial(id, owner, res.FailureReason, res.Saved)
		} else {
			res.State = models.UploadStateFailed
			p.ingestLog.LogUploadFailed(id, owner, res.FailureReason)
		}

	case isCancellation(parseErr) || isCancellation(loadErr):
		res.FailureReason = "upload canceled"
		if res.Saved > 0 {
			res.State = models.UploadStateCompletedPartial
			p.ingestLog.LogUploadPartial(id, owner, res.FailureReason, res.Saved)
		} else {
			res.State = models.UploadStateFailed
			p.ingestLog.LogUploadFailed(id, owner, res.FailureReason)
		}

	default:
		res.State = models.UploadStateCompleted
		p.ingestLog.LogUploadCompleted(id, owner, res.Processed, res.Saved)
	}
}

// compensate deletes rows committed by an upload that must leave nothing
// behind. Runs on its own context so an already-canceled request cannot
// block the cleanup.
func (p *Pipeline) compensate(uploadID uuid.UUID, saved int64) {
	if saved == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
	defer cancel()

	deleted, err := p.store.DeleteUploadRecords(ctx, uploadID)
	if err != nil {
		logging.Error().
			Str("upload_id", uploadID.String()).
			Int64("committed", saved).
			Str("error", logging.SanitizeError(err.Error())).
			Msg("Failed to back out records from aborted upload")
		return
	}
	logging.Info().
		Str("upload_id", uploadID.String()).
		Int64("deleted", deleted).
		Msg("Backed out records from aborted upload")
}

func isStructuralParseFailure(err error) bool {
	if err == nil {
		return false
	}
	var parseErr *ParseError
	return errors.As(err, &parseErr) || errors.Is(err, ErrIncompleteInput)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// rejectionCategory folds free-text rejection reasons into the bounded
// label set the rejection counter uses.
func rejectionCategory(reason string) string {
	switch {
	case strings.HasPrefix(reason, "invalid coordinates"),
		strings.HasPrefix(reason, "coordinate out of range"),
		strings.HasPrefix(reason, "incomplete coordinate pair"):
		return "coordinates"
	case strings.HasPrefix(reason, "start time after"):
		return "time_order"
	case strings.HasPrefix(reason, "missing owner"):
		return "owner_key"
	case strings.HasPrefix(reason, "probability"):
		return "probability"
	case strings.HasPrefix(reason, "distance"):
		return "distance"
	default:
		return "other"
	}
}

func notifyStage(obs Observer, uploadID uuid.UUID, state models.UploadState) {
	if obs != nil {
		obs.StageChanged(uploadID, state)
	}
}
