// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/itinerarium/internal/config"
	"github.com/tomtom215/itinerarium/internal/database"
	"github.com/tomtom215/itinerarium/internal/models"
	"github.com/tomtom215/itinerarium/internal/timeline"
	"github.com/tomtom215/itinerarium/internal/uploads"
)

// testConfig returns a config with every knob the handlers read set to a
// test-sized value. Rate limiting is disabled; the middleware tests build
// their own limiters.
func testConfig() *config.Config {
	return &config.Config{
		Ingest: config.IngestConfig{
			ChunkSize:          500,
			BufferDepth:        8,
			MaxErrorList:       10,
			MaxUploadMB:        4,
			RetryDelay:         time.Millisecond,
			OwnerUploadsPerMin: 600,
			OwnerUploadBurst:   100,
		},
		Sampling: config.SamplingConfig{MaxPoints: 100000},
		Export:   config.ExportConfig{BatchSize: 500, DefaultLimit: 10000, DefaultDays: 30},
		Cache:    config.CacheConfig{Enabled: true, Policy: "ttl", TTL: time.Minute, MaxEntries: 64},
		API:      config.APIConfig{DefaultPageSize: 100, MaxPageSize: 1000},
		Security: config.SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitDisabled: true,
		},
	}
}

// openTestStore opens an in-memory record store. DuckDB startup is CGO
// heavy, so store-backed tests run sequentially: none of them call
// t.Parallel.
func openTestStore(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB"})
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// openTestLedger opens an upload ledger over a temp directory.
func openTestLedger(t *testing.T) *uploads.Ledger {
	t.Helper()
	l, err := uploads.Open(config.LedgerConfig{
		Path:          filepath.Join(t.TempDir(), "ledger"),
		RetentionDays: 90,
		GCInterval:    time.Minute,
	})
	if err != nil {
		t.Fatalf("Failed to open test ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

// setupStoreHandler wires a handler over a live store, ledger, and
// pipeline, with no event bus and no WebSocket hub.
func setupStoreHandler(t *testing.T) *Handler {
	t.Helper()
	cfg := testConfig()
	db := openTestStore(t)
	ledger := openTestLedger(t)
	tracker := uploads.NewTracker(ledger, nil)
	pipeline := timeline.NewPipeline(db, cfg.Ingest)
	t.Cleanup(pipeline.Close)

	h := NewHandler(cfg, db, pipeline, tracker, ledger, nil, nil)
	t.Cleanup(h.Close)
	return h
}

// setupLedgerHandler wires a handler with only the upload ledger behind
// it, for endpoints that never touch the record store.
func setupLedgerHandler(t *testing.T) *Handler {
	t.Helper()
	h := NewHandler(testConfig(), nil, nil, nil, openTestLedger(t), nil, nil)
	t.Cleanup(h.Close)
	return h
}

// uploadTestStore is an in-memory PipelineStore so upload endpoint tests
// exercise the real pipeline, tracker, and ledger without a database.
type uploadTestStore struct {
	mu    sync.Mutex
	saved []*models.Record
}

func (s *uploadTestStore) AppendRecords(_ context.Context, recs []*models.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, recs...)
	return int64(len(recs)), nil
}

func (s *uploadTestStore) DeleteUploadRecords(_ context.Context, uploadID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	kept := s.saved[:0]
	for _, r := range s.saved {
		if r.UploadID == uploadID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.saved = kept
	return n, nil
}

func (s *uploadTestStore) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

// setupUploadHandler wires a handler whose pipeline writes to an
// in-memory store.
func setupUploadHandler(t *testing.T, cfg *config.Config) (*Handler, *uploadTestStore) {
	t.Helper()
	store := &uploadTestStore{}
	ledger := openTestLedger(t)
	tracker := uploads.NewTracker(ledger, nil)
	pipeline := timeline.NewPipeline(store, cfg.Ingest)
	t.Cleanup(pipeline.Close)

	h := NewHandler(cfg, nil, pipeline, tracker, ledger, nil, nil)
	t.Cleanup(h.Close)
	return h, store
}

// decodeEnvelope decodes the recorded response body as the API envelope.
func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) *models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response envelope: %v", err)
	}
	return &resp
}

// decodeData re-marshals an envelope's Data member into a typed payload.
func decodeData(t *testing.T, data interface{}, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal envelope data: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("Failed to decode envelope data: %v", err)
	}
}

// withChiParam injects one chi route parameter so a handler can be
// invoked without the full router.
func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// testRecordBase anchors seeded record times so orderings are stable.
var testRecordBase = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func testPathRecord(owner string, lat, lng float64, ts time.Time) *models.Record {
	return &models.Record{
		OwnerKey:  owner,
		Type:      models.RecordTypePath,
		PointTime: &ts,
		Latitude:  &lat,
		Longitude: &lng,
	}
}

func testVisitRecord(owner, semantic string, start time.Time) *models.Record {
	lat, lng := 52.5163, 13.3777
	end := start.Add(30 * time.Minute)
	placeID := "place-" + semantic
	probability := 0.9
	return &models.Record{
		OwnerKey:          owner,
		Type:              models.RecordTypeVisit,
		StartTime:         &start,
		EndTime:           &end,
		Latitude:          &lat,
		Longitude:         &lng,
		VisitPlaceID:      &placeID,
		VisitSemanticType: &semantic,
		VisitProbability:  &probability,
	}
}

func testActivityRecord(owner, kind string, ts time.Time) *models.Record {
	lat, lng := 52.5219, 13.4132
	distance := 1250.0
	probability := 0.8
	return &models.Record{
		OwnerKey:               owner,
		Type:                   models.RecordTypeActivity,
		PointTime:              &ts,
		Latitude:               &lat,
		Longitude:              &lng,
		ActivityType:           &kind,
		ActivityDistanceMeters: &distance,
		ActivityProbability:    &probability,
	}
}

// seedOwnerRecords loads a small mixed batch for one owner: three path
// points, one visit, one activity endpoint.
func seedOwnerRecords(t *testing.T, db *database.DB, owner string, at time.Time) {
	t.Helper()
	recs := []*models.Record{
		testPathRecord(owner, 52.5200, 13.4050, at),
		testPathRecord(owner, 52.5201, 13.4051, at.Add(time.Minute)),
		testPathRecord(owner, 52.5202, 13.4052, at.Add(2*time.Minute)),
		testVisitRecord(owner, "TYPE_HOME", at.Add(3*time.Minute)),
		testActivityRecord(owner, "walking", at.Add(4*time.Minute)),
	}
	if _, err := db.AppendRecords(context.Background(), recs); err != nil {
		t.Fatalf("Failed to seed records: %v", err)
	}
}

// trackLinesDoc builds n newline-delimited track points starting at the
// given instant. Distinct instants produce distinct document hashes, which
// matters for the duplicate replay tests.
func trackLinesDoc(n int, start time.Time) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "{\"time\":%q,\"lat\":52.52,\"lon\":13.405,\"sequence\":%d}\n",
			start.Add(time.Duration(i)*time.Second).Format(time.RFC3339), i+1)
	}
	return sb.String()
}
