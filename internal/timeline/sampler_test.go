// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/itinerarium/internal/database"
)

// fakePointSource pages a fixed row set the way the store would:
// newest-first with a keyset cursor.
type fakePointSource struct {
	rows     []database.PointRow
	pageSize int

	lastQuery  database.RecordQuery
	countCalls int
}

func (f *fakePointSource) CountRecords(_ context.Context, q database.RecordQuery) (int64, error) {
	f.lastQuery = q
	f.countCalls++
	return int64(len(f.rows)), nil
}

func (f *fakePointSource) FetchRecordPage(_ context.Context, q database.RecordQuery, after *database.RecordPageKey) ([]database.PointRow, *database.RecordPageKey, error) {
	f.lastQuery = q
	size := f.pageSize
	if size <= 0 {
		size = 100
	}

	start := 0
	if after != nil {
		for i := range f.rows {
			if f.rows[i].ID == after.ID {
				start = i + 1
				break
			}
		}
	}
	end := start + size
	if end > len(f.rows) {
		end = len(f.rows)
	}
	page := f.rows[start:end]
	if end >= len(f.rows) {
		return page, nil, nil
	}
	last := page[len(page)-1]
	return page, &database.RecordPageKey{SortTime: last.SortTime, ID: last.ID}, nil
}

func makePointRows(n int) []database.PointRow {
	rows := make([]database.PointRow, n)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := range rows {
		ts := base.Add(-time.Duration(i) * time.Minute)
		rows[i] = database.PointRow{
			ID:        int64(n - i),
			OwnerKey:  "alice",
			Type:      "path",
			Latitude:  fptr(35.0 + float64(i)*0.0001),
			Longitude: fptr(139.0),
			Time:      &ts,
			SortTime:  ts,
		}
	}
	return rows
}

func TestKeepRatioForZoom(t *testing.T) {
	tests := []struct {
		zoom int
		want float64
	}{
		{0, 0.50}, {5, 0.50}, {8, 0.50},
		{9, 0.60}, {10, 0.60},
		{11, 0.70},
		{12, 0.80},
		{13, 0.90},
		{14, 1.00}, {18, 1.00},
	}
	for _, tc := range tests {
		if got := keepRatioForZoom(tc.zoom); got != tc.want {
			t.Errorf("Zoom %d: expected ratio %v, got %v", tc.zoom, tc.want, got)
		}
	}
}

func TestStrideSamplerExactCounts(t *testing.T) {
	tests := []struct {
		ratio float64
		n     int
		want  int
	}{
		{1.0, 1000, 1000},
		{0.5, 1000, 500},
		{0.6, 1000, 600},
		{0.9, 1000, 900},
		{0.0, 1000, 0},
	}
	for _, tc := range tests {
		s := newStrideSampler(tc.ratio)
		kept := 0
		for i := 0; i < tc.n; i++ {
			if s.next() {
				kept++
			}
		}
		if kept != tc.want {
			t.Errorf("Ratio %v over %d: expected %d kept, got %d", tc.ratio, tc.n, tc.want, kept)
		}
	}
}

func TestStrideSamplerDeterministic(t *testing.T) {
	pick := func() []bool {
		s := newStrideSampler(0.7)
		out := make([]bool, 100)
		for i := range out {
			out[i] = s.next()
		}
		return out
	}
	a, b := pick(), pick()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Stride diverged at element %d", i)
		}
	}
}

func TestSampleZoomedOutHalves(t *testing.T) {
	src := &fakePointSource{rows: makePointRows(5000), pageSize: 512}
	z := NewZoomSampler(src, 100000)

	resp, err := z.Sample(context.Background(), SampleRequest{Owner: "alice", Zoom: 8})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.TotalCount != 5000 {
		t.Errorf("Expected true total 5000, got %d", resp.TotalCount)
	}
	if resp.DisplayedCount != 2500 || len(resp.Data) != 2500 {
		t.Errorf("Expected 2500 points at zoom 8, got %d", len(resp.Data))
	}
	if resp.KeepRatio != 0.5 {
		t.Errorf("Expected keep ratio 0.5, got %v", resp.KeepRatio)
	}
	if resp.ZoomApplied != 8 {
		t.Errorf("Expected zoom echoed, got %d", resp.ZoomApplied)
	}
	if !src.lastQuery.MappableOnly {
		t.Error("Expected a mappable-only store query")
	}
}

func TestSampleHighZoomKeepsAll(t *testing.T) {
	src := &fakePointSource{rows: makePointRows(300), pageSize: 64}
	z := NewZoomSampler(src, 100000)

	resp, err := z.Sample(context.Background(), SampleRequest{Owner: "alice", Zoom: 15})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(resp.Data) != 300 {
		t.Errorf("Expected every point at zoom 15, got %d", len(resp.Data))
	}
	first := resp.Data[0]
	if first.Timestamp == nil || !first.Timestamp.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected newest-first ordering, got first timestamp %v", first.Timestamp)
	}
}

func TestSampleDeterministic(t *testing.T) {
	src := &fakePointSource{rows: makePointRows(1000), pageSize: 128}
	z := NewZoomSampler(src, 100000)

	req := SampleRequest{Owner: "alice", Zoom: 11}
	a, err := z.Sample(context.Background(), req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	b, err := z.Sample(context.Background(), req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(a.Data) != len(b.Data) {
		t.Fatalf("Run lengths differ: %d vs %d", len(a.Data), len(b.Data))
	}
	for i := range a.Data {
		if a.Data[i].Lat != b.Data[i].Lat || a.Data[i].Lng != b.Data[i].Lng {
			t.Fatalf("Runs diverged at point %d", i)
		}
	}
}

func TestSampleMonotonicAcrossZoom(t *testing.T) {
	src := &fakePointSource{rows: makePointRows(2000), pageSize: 256}
	z := NewZoomSampler(src, 100000)

	prev := -1
	for zoom := 5; zoom <= 15; zoom++ {
		resp, err := z.Sample(context.Background(), SampleRequest{Owner: "alice", Zoom: zoom})
		if err != nil {
			t.Fatalf("Zoom %d: unexpected error: %v", zoom, err)
		}
		if len(resp.Data) < prev {
			t.Errorf("Zoom %d returned fewer points (%d) than zoom %d (%d)", zoom, len(resp.Data), zoom-1, prev)
		}
		prev = len(resp.Data)
	}
}

func TestSampleLimitOverridesZoom(t *testing.T) {
	src := &fakePointSource{rows: makePointRows(1000), pageSize: 128}
	z := NewZoomSampler(src, 100000)

	resp, err := z.Sample(context.Background(), SampleRequest{Owner: "alice", Zoom: 8, Limit: 100})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(resp.Data) != 100 {
		t.Errorf("Expected the limit to cap at 100, got %d", len(resp.Data))
	}
	if resp.KeepRatio != 1.0 {
		t.Errorf("Expected ratio 1.0 under an explicit limit, got %v", resp.KeepRatio)
	}
	if resp.TotalCount != 1000 {
		t.Errorf("Expected the true total preserved, got %d", resp.TotalCount)
	}
	// With no thinning the cap takes the newest rows unskipped.
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if !resp.Data[0].Timestamp.Equal(want) {
		t.Errorf("Expected the newest point first, got %v", resp.Data[0].Timestamp)
	}
}

func TestSampleCeilingCaps(t *testing.T) {
	src := &fakePointSource{rows: makePointRows(200), pageSize: 64}
	z := NewZoomSampler(src, 50)

	resp, err := z.Sample(context.Background(), SampleRequest{Owner: "alice", Zoom: 15})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(resp.Data) != 50 {
		t.Errorf("Expected the ceiling to cap at 50, got %d", len(resp.Data))
	}
	if resp.TotalCount != 200 {
		t.Errorf("Expected the true total preserved, got %d", resp.TotalCount)
	}
}

func TestSampleEmpty(t *testing.T) {
	src := &fakePointSource{}
	z := NewZoomSampler(src, 100000)

	resp, err := z.Sample(context.Background(), SampleRequest{Owner: "alice", Zoom: 10})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.TotalCount != 0 || resp.DisplayedCount != 0 {
		t.Errorf("Expected an empty result, got %+v", resp)
	}
	if resp.Data == nil {
		t.Error("Expected an empty slice, not nil, so the JSON payload is [] rather than null")
	}
}
