// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package uploads

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/itinerarium/internal/logging"
	"github.com/tomtom215/itinerarium/internal/metrics"
	"github.com/tomtom215/itinerarium/internal/models"
	"github.com/tomtom215/itinerarium/internal/timeline"
)

// Notifier receives upload lifecycle fan-out: the event bus adapter
// implements it in the server wiring. Calls arrive on the upload's own
// goroutine and must not block.
type Notifier interface {
	UploadChanged(u *models.Upload)
	UploadProgress(owner string, uploadID uuid.UUID, processed int64)
}

// Tracker drives the upload state machine: every transition is persisted to
// the ledger and fanned out to the notifier. It implements the ingest
// pipeline's observer surface, so a running upload updates its own ledger
// entry as it moves through the stages.
type Tracker struct {
	ledger    *Ledger
	notify    Notifier
	ingestLog *logging.IngestLogger

	mu     sync.Mutex
	owners map[uuid.UUID]string
}

var _ timeline.Observer = (*Tracker)(nil)

func NewTracker(ledger *Ledger, notify Notifier) *Tracker {
	return &Tracker{
		ledger:    ledger,
		notify:    notify,
		ingestLog: logging.NewIngestLogger(),
		owners:    make(map[uuid.UUID]string),
	}
}

// Begin registers a freshly received upload and returns its ledger entry.
func (t *Tracker) Begin(ctx context.Context, owner, filename, contentHash string, size int64) (*models.Upload, error) {
	now := time.Now().UTC()
	u := &models.Upload{
		ID:          uuid.New(),
		OwnerKey:    owner,
		Filename:    filename,
		ContentHash: contentHash,
		SizeBytes:   size,
		State:       models.UploadStateReceived,
		ReceivedAt:  now,
		UpdatedAt:   now,
	}
	if err := t.ledger.Put(ctx, u); err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.owners[u.ID] = owner
	t.mu.Unlock()

	t.changed(u)
	return u, nil
}

// StageChanged advances the persisted state. Part of the pipeline observer
// surface; transitions the state machine rejects are dropped with a log
// line rather than surfaced, since the pipeline cannot act on them.
func (t *Tracker) StageChanged(uploadID uuid.UUID, state models.UploadState) {
	u, err := t.ledger.Update(context.Background(), uploadID, func(u *models.Upload) error {
		if !u.State.CanTransitionTo(state) {
			return errInvalidTransition
		}
		u.State = state
		return nil
	})
	if err != nil {
		logging.Warn().
			Str("upload_id", uploadID.String()).
			Str("to_state", string(state)).
			Str("error", err.Error()).
			Msg("Dropped upload state transition")
		return
	}
	t.changed(u)
}

// Progress forwards a progress tick to the notifier. Nothing is persisted;
// the ledger records stage transitions and final counts only.
func (t *Tracker) Progress(uploadID uuid.UUID, processed int64) {
	if t.notify == nil {
		return
	}
	t.mu.Lock()
	owner := t.owners[uploadID]
	t.mu.Unlock()
	t.notify.UploadProgress(owner, uploadID, processed)
}

// Finish records a pipeline run's terminal result.
func (t *Tracker) Finish(ctx context.Context, uploadID uuid.UUID, res *timeline.RunResult) (*models.Upload, error) {
	u, err := t.ledger.Update(ctx, uploadID, func(u *models.Upload) error {
		if !u.State.CanTransitionTo(res.State) {
			return errInvalidTransition
		}
		u.State = res.State
		u.ProcessedRecords = res.Processed
		u.SavedRecords = res.Saved
		u.WarningCount = res.WarningCount
		u.Errors = res.Errors
		u.Error = res.FailureReason
		finished := time.Now().UTC()
		u.FinishedAt = &finished
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.forget(uploadID)
	t.changed(u)
	return u, nil
}

// Abort fails an upload that never reached the pipeline (admission
// rejection, unreadable body).
func (t *Tracker) Abort(ctx context.Context, uploadID uuid.UUID, reason string) (*models.Upload, error) {
	u, err := t.ledger.Update(ctx, uploadID, func(u *models.Upload) error {
		if u.State.Terminal() {
			return errInvalidTransition
		}
		u.State = models.UploadStateFailed
		u.Error = reason
		finished := time.Now().UTC()
		u.FinishedAt = &finished
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.forget(uploadID)
	t.changed(u)
	return u, nil
}

// FindDuplicate returns the completed upload that already carried this
// exact content for this owner, or ErrUploadNotFound.
func (t *Tracker) FindDuplicate(ctx context.Context, owner, contentHash string) (*models.Upload, error) {
	u, err := t.ledger.FindCompletedByHash(ctx, owner, contentHash)
	if err != nil {
		return nil, err
	}
	metrics.RecordDuplicateUpload()
	t.ingestLog.LogUploadDuplicate(u.ID.String(), owner, contentHash)
	return u, nil
}

func (t *Tracker) forget(uploadID uuid.UUID) {
	t.mu.Lock()
	delete(t.owners, uploadID)
	t.mu.Unlock()
}

func (t *Tracker) changed(u *models.Upload) {
	if t.notify == nil {
		return
	}
	snapshot := *u
	t.notify.UploadChanged(&snapshot)
}

var errInvalidTransition = errors.New("invalid upload state transition")
