// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package timeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/itinerarium/internal/config"
	"github.com/tomtom215/itinerarium/internal/models"
)

// fakePipelineStore adds the compensation surface on top of the scripted
// append store.
type fakePipelineStore struct {
	*scriptedStore

	delMu   sync.Mutex
	deletes []uuid.UUID
}

func newFakePipelineStore() *fakePipelineStore {
	return &fakePipelineStore{scriptedStore: &scriptedStore{}}
}

func (f *fakePipelineStore) DeleteUploadRecords(_ context.Context, uploadID uuid.UUID) (int64, error) {
	f.delMu.Lock()
	f.deletes = append(f.deletes, uploadID)
	f.delMu.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	kept := f.saved[:0]
	for _, r := range f.saved {
		if r.UploadID == uploadID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.saved = kept
	return n, nil
}

func (f *fakePipelineStore) deleteCalls() []uuid.UUID {
	f.delMu.Lock()
	defer f.delMu.Unlock()
	return append([]uuid.UUID(nil), f.deletes...)
}

func (f *fakePipelineStore) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type recordingObserver struct {
	stages   []models.UploadState
	progress []int64
}

func (o *recordingObserver) StageChanged(_ uuid.UUID, s models.UploadState) {
	o.stages = append(o.stages, s)
}

func (o *recordingObserver) Progress(_ uuid.UUID, n int64) {
	o.progress = append(o.progress, n)
}

// buildTrackLines produces n newline-delimited track points. Indices in bad
// get an out-of-range latitude.
func buildTrackLines(n int, bad map[int]bool) string {
	var sb strings.Builder
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		lat := 35.6
		if bad[i] {
			lat = 95.0
		}
		fmt.Fprintf(&sb, "{\"time\":%q,\"lat\":%g,\"lon\":139.7}\n",
			base.Add(time.Duration(i)*time.Second).Format(time.RFC3339), lat)
	}
	return sb.String()
}

func newTestPipeline(t *testing.T, store PipelineStore, chunkSize int) *Pipeline {
	t.Helper()
	p := NewPipeline(store, config.IngestConfig{
		ChunkSize:          chunkSize,
		BufferDepth:        8,
		MaxErrorList:       50,
		RetryDelay:         time.Millisecond,
		OwnerUploadsPerMin: 600,
		OwnerUploadBurst:   100,
	})
	t.Cleanup(p.Close)
	return p
}

func TestRunCompletesCleanUpload(t *testing.T) {
	store := newFakePipelineStore()
	p := newTestPipeline(t, store, 500)
	id := uuid.New()

	res, err := p.Run(context.Background(), "alice", id, strings.NewReader(buildTrackLines(2500, nil)), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if res.State != models.UploadStateCompleted {
		t.Errorf("Expected completed, got %s", res.State)
	}
	if res.Processed != 2500 || res.Saved != 2500 {
		t.Errorf("Expected 2500 processed and saved, got %d/%d", res.Processed, res.Saved)
	}
	if res.WarningCount != 0 || len(res.Errors) != 0 {
		t.Errorf("Expected a clean run, got %d warnings %v", res.WarningCount, res.Errors)
	}
	if res.FailureReason != "" {
		t.Errorf("Expected no failure reason, got %q", res.FailureReason)
	}
	if store.savedCount() != 2500 {
		t.Errorf("Expected 2500 rows in store, got %d", store.savedCount())
	}

	store.mu.Lock()
	first := store.saved[0]
	store.mu.Unlock()
	if first.OwnerKey != "alice" || first.UploadID != id {
		t.Errorf("Expected stamped ownership, got owner=%q upload=%s", first.OwnerKey, first.UploadID)
	}
	if first.Type != models.RecordTypeTrackPoint {
		t.Errorf("Expected track_point rows, got %s", first.Type)
	}
}

func TestRunRejectsInvalidRecordsAndCompletes(t *testing.T) {
	store := newFakePipelineStore()
	p := newTestPipeline(t, store, 50)

	input := buildTrackLines(100, map[int]bool{9: true, 19: true})
	res, err := p.Run(context.Background(), "alice", uuid.New(), strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if res.State != models.UploadStateCompleted {
		t.Errorf("Expected completed, got %s", res.State)
	}
	if res.Processed != 100 {
		t.Errorf("Expected 100 processed, got %d", res.Processed)
	}
	if res.Saved != 98 {
		t.Errorf("Expected 98 saved, got %d", res.Saved)
	}
	if res.WarningCount != 2 {
		t.Errorf("Expected warning count 2, got %d", res.WarningCount)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("Expected 2 error entries, got %v", res.Errors)
	}
	if !strings.Contains(res.Errors[0], "record 10") || !strings.Contains(res.Errors[0], "coordinate out of range") {
		t.Errorf("Expected the entry number and reason, got %q", res.Errors[0])
	}
	if !strings.Contains(res.Errors[1], "record 20") {
		t.Errorf("Expected the second bad entry named, got %q", res.Errors[1])
	}
}

func TestRunKeepsRecordsWithWarnings(t *testing.T) {
	store := newFakePipelineStore()
	p := newTestPipeline(t, store, 50)

	input := "{\"time\":\"2024-03-01T10:00:00Z\",\"lat\":35.6,\"lon\":139.7}\n" +
		"{\"time\":\"banana\",\"lat\":35.6,\"lon\":139.7}\n" +
		"{\"time\":\"2024-03-01T10:02:00Z\",\"lat\":35.6,\"lon\":139.7}\n"

	res, err := p.Run(context.Background(), "alice", uuid.New(), strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if res.State != models.UploadStateCompleted {
		t.Errorf("Expected completed, got %s", res.State)
	}
	if res.Saved != 3 {
		t.Errorf("Expected the warned record kept, saved %d", res.Saved)
	}
	if res.WarningCount != 1 {
		t.Errorf("Expected 1 warning, got %d", res.WarningCount)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "unparseable timestamp") {
		t.Errorf("Expected the timestamp warning listed, got %v", res.Errors)
	}
}

func TestRunParseFailureBacksOutCommittedChunks(t *testing.T) {
	store := newFakePipelineStore()
	p := newTestPipeline(t, store, 10)
	id := uuid.New()

	// 25 good lines, then the stream dies mid-value. Two full chunks commit
	// before the parser hits the truncation.
	input := buildTrackLines(25, nil) + "{\"time\":\"2024-03-01T1"

	res, err := p.Run(context.Background(), "alice", id, strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if res.State != models.UploadStateFailed {
		t.Errorf("Expected failed, got %s", res.State)
	}
	if res.Saved != 0 {
		t.Errorf("Expected nothing kept after compensation, got %d", res.Saved)
	}
	if !strings.Contains(res.FailureReason, "mid-document") {
		t.Errorf("Expected the truncation named, got %q", res.FailureReason)
	}

	calls := store.deleteCalls()
	if len(calls) != 1 || calls[0] != id {
		t.Fatalf("Expected one compensating delete for the upload, got %v", calls)
	}
	if store.savedCount() != 0 {
		t.Errorf("Expected the store emptied, %d rows remain", store.savedCount())
	}
}

func TestRunStoreFailureKeepsCommittedPrefix(t *testing.T) {
	store := newFakePipelineStore()
	store.script = func(call int, _ []*models.Record) error {
		if call >= 3 {
			return errors.New("IO Error: simulated disk stall")
		}
		return nil
	}
	p := newTestPipeline(t, store, 10)

	res, err := p.Run(context.Background(), "alice", uuid.New(), strings.NewReader(buildTrackLines(30, nil)), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if res.State != models.UploadStateCompletedPartial {
		t.Errorf("Expected partial completion, got %s", res.State)
	}
	if res.Saved != 20 {
		t.Errorf("Expected the two committed chunks kept, got %d", res.Saved)
	}
	if !strings.Contains(res.FailureReason, "chunk 3") {
		t.Errorf("Expected the failing chunk named, got %q", res.FailureReason)
	}
	if len(store.deleteCalls()) != 0 {
		t.Errorf("Expected no compensation on store failure, got %v", store.deleteCalls())
	}
	if store.savedCount() != 20 {
		t.Errorf("Expected 20 rows in store, got %d", store.savedCount())
	}
}

func TestRunAdmissionRateLimit(t *testing.T) {
	store := newFakePipelineStore()
	p := NewPipeline(store, config.IngestConfig{
		ChunkSize:          50,
		RetryDelay:         time.Millisecond,
		OwnerUploadsPerMin: 1,
		OwnerUploadBurst:   2,
	})
	t.Cleanup(p.Close)

	for i := 0; i < 2; i++ {
		if _, err := p.Run(context.Background(), "alice", uuid.New(), strings.NewReader(trackDoc), nil); err != nil {
			t.Fatalf("Upload %d unexpectedly rejected: %v", i+1, err)
		}
	}

	res, err := p.Run(context.Background(), "alice", uuid.New(), strings.NewReader(trackDoc), nil)
	if !errors.Is(err, ErrUploadRateLimited) {
		t.Fatalf("Expected rate limit error, got %v", err)
	}
	if res != nil {
		t.Errorf("Expected no result for a rejected upload, got %+v", res)
	}

	// Another owner is not affected.
	if _, err := p.Run(context.Background(), "bob", uuid.New(), strings.NewReader(trackDoc), nil); err != nil {
		t.Errorf("Expected bob admitted, got %v", err)
	}
}

func TestRunObserverStageOrder(t *testing.T) {
	store := newFakePipelineStore()
	p := newTestPipeline(t, store, 50)
	obs := &recordingObserver{}

	res, err := p.Run(context.Background(), "alice", uuid.New(), strings.NewReader(trackDoc), obs)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.State != models.UploadStateCompleted {
		t.Fatalf("Expected completed, got %s", res.State)
	}

	want := []models.UploadState{
		models.UploadStateParsing,
		models.UploadStateValidating,
		models.UploadStateLoading,
	}
	if len(obs.stages) != len(want) {
		t.Fatalf("Expected stages %v, got %v", want, obs.stages)
	}
	for i, s := range want {
		if obs.stages[i] != s {
			t.Errorf("Stage %d: expected %s, got %s", i, s, obs.stages[i])
		}
	}
	if len(obs.progress) != 0 {
		t.Errorf("Expected no progress ticks for a tiny upload, got %v", obs.progress)
	}
}

func TestRunAndroidDocumentEndToEnd(t *testing.T) {
	store := newFakePipelineStore()
	p := newTestPipeline(t, store, 50)

	res, err := p.Run(context.Background(), "alice", uuid.New(), strings.NewReader(androidDoc), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if res.State != models.UploadStateCompleted {
		t.Errorf("Expected completed, got %s: %q", res.State, res.FailureReason)
	}
	if res.Processed != 5 || res.Saved != 5 {
		t.Errorf("Expected 5 processed and saved, got %d/%d", res.Processed, res.Saved)
	}

	store.mu.Lock()
	types := map[models.RecordType]int{}
	for _, r := range store.saved {
		types[r.Type]++
	}
	store.mu.Unlock()
	if types[models.RecordTypePath] != 2 || types[models.RecordTypeVisit] != 1 || types[models.RecordTypeActivity] != 2 {
		t.Errorf("Unexpected type mix: %v", types)
	}
}

func TestRunEmptyDocumentFails(t *testing.T) {
	store := newFakePipelineStore()
	p := newTestPipeline(t, store, 50)

	res, err := p.Run(context.Background(), "alice", uuid.New(), strings.NewReader("   \n"), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if res.State != models.UploadStateFailed {
		t.Errorf("Expected failed, got %s", res.State)
	}
	if res.Saved != 0 || res.Processed != 0 {
		t.Errorf("Expected nothing processed, got %d/%d", res.Processed, res.Saved)
	}
	if res.FailureReason == "" {
		t.Error("Expected a failure reason for an empty document")
	}
}
