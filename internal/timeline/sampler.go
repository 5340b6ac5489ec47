// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package timeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/itinerarium/internal/database"
	"github.com/tomtom215/itinerarium/internal/metrics"
	"github.com/tomtom215/itinerarium/internal/models"
)

// PointSource is the slice of the store the sampler reads from: keyset
// pages plus a matching count.
type PointSource interface {
	FetchRecordPage(ctx context.Context, q database.RecordQuery, after *database.RecordPageKey) ([]database.PointRow, *database.RecordPageKey, error)
	CountRecords(ctx context.Context, q database.RecordQuery) (int64, error)
}

// zoomTiers maps map zoom levels to keep ratios. Zoomed out, most points
// overlap the same pixels and half can go; zoomed in, every point matters.
// Ordered ascending; the first tier with maxZoom >= zoom wins, and zooms
// past the table keep everything.
var zoomTiers = []struct {
	maxZoom int
	ratio   float64
}{
	{8, 0.50},
	{10, 0.60},
	{11, 0.70},
	{12, 0.80},
	{13, 0.90},
}

// keepRatioForZoom resolves a zoom level through the tier table.
func keepRatioForZoom(zoom int) float64 {
	for _, tier := range zoomTiers {
		if zoom <= tier.maxZoom {
			return tier.ratio
		}
	}
	return 1.0
}

// strideDenominator is the fixed-point scale for stride arithmetic. Integer
// math keeps element selection exactly reproducible across platforms.
const strideDenominator = 1_000_000

// strideSampler keeps ceil(ratio*n) of n elements, spread evenly by
// position: element i survives when the running product crosses an integer
// boundary. Same inputs, same kept set, no randomness.
type strideSampler struct {
	num int64
	i   int64
}

func newStrideSampler(ratio float64) *strideSampler {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return &strideSampler{num: int64(math.Round(ratio * strideDenominator))}
}

// next reports whether the current element is kept, then advances.
func (s *strideSampler) next() bool {
	i := s.i
	s.i++
	return (i+1)*s.num/strideDenominator > i*s.num/strideDenominator
}

// SampleRequest selects which points to sample. Zoom picks the keep ratio
// from the tier table; a positive Limit bypasses the table and acts as a
// plain newest-first cap instead.
type SampleRequest struct {
	Owner string
	Zoom  int
	Limit int
}

// ZoomSampler answers map point queries: newest-first mappable records,
// thinned by the zoom-appropriate ratio, hard-capped at the configured
// ceiling, alongside the true total so clients can show "x of y".
//
// Sampling is positional over the stable (display time desc, id desc)
// order, so repeated queries at the same zoom return the same subset until
// the data changes.
type ZoomSampler struct {
	store     PointSource
	maxPoints int
}

// NewZoomSampler builds a sampler over store with the given point ceiling.
// Non-positive ceilings fall back to 100000.
func NewZoomSampler(store PointSource, maxPoints int) *ZoomSampler {
	if maxPoints <= 0 {
		maxPoints = 100000
	}
	return &ZoomSampler{store: store, maxPoints: maxPoints}
}

// Sample runs one map point query.
func (z *ZoomSampler) Sample(ctx context.Context, req SampleRequest) (*models.MapDataResponse, error) {
	start := time.Now()

	q := database.RecordQuery{
		Owner:        req.Owner,
		MappableOnly: true,
	}

	total, err := z.store.CountRecords(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count map records: %w", err)
	}

	ratio := keepRatioForZoom(req.Zoom)
	ceiling := z.maxPoints
	if req.Limit > 0 {
		ratio = 1.0
		if req.Limit < ceiling {
			ceiling = req.Limit
		}
	}

	estimate := int(float64(total)*ratio) + 1
	if estimate > ceiling {
		estimate = ceiling
	}
	points := make([]models.MapPoint, 0, estimate)

	stride := newStrideSampler(ratio)
	capped := false

	var after *database.RecordPageKey
	for {
		rows, next, err := z.store.FetchRecordPage(ctx, q, after)
		if err != nil {
			return nil, fmt.Errorf("fetch map records: %w", err)
		}

		for i := range rows {
			row := &rows[i]
			if !row.Mappable() {
				continue
			}
			if !stride.next() {
				continue
			}
			points = append(points, models.MapPoint{
				Lat:       *row.Latitude,
				Lng:       *row.Longitude,
				Type:      row.Type,
				Timestamp: row.Time,
				Semantic:  derefString(row.Semantic),
				Activity:  derefString(row.Activity),
			})
			if len(points) >= ceiling {
				capped = true
				break
			}
		}

		if capped || next == nil {
			break
		}
		after = next
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	metrics.RecordSampleQuery(req.Zoom, time.Since(start), len(points), capped)

	return &models.MapDataResponse{
		Data:           points,
		TotalCount:     total,
		DisplayedCount: len(points),
		ZoomApplied:    req.Zoom,
		KeepRatio:      ratio,
	}, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
