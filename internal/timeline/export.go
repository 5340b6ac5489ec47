// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package timeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/itinerarium/internal/config"
	"github.com/tomtom215/itinerarium/internal/database"
	"github.com/tomtom215/itinerarium/internal/metrics"
	"github.com/tomtom215/itinerarium/internal/models"
)

// exportedBy tags every export's metadata with its producer.
const exportedBy = "itinerarium"

const exportWriteBuffer = 32 * 1024

// ExportRequest selects what a GeoJSON export contains.
//
// Since/Until bound the record display time; when both are nil and Days is
// positive, Since becomes now minus that many days. SampleRate in
// [0.1, 1.0] thins dense point types; zero means keep everything. Limit
// caps features written, falling back to the configured default.
type ExportRequest struct {
	Owner      string
	Types      []models.RecordType
	Since      *time.Time
	Until      *time.Time
	Days       int
	SampleRate float64
	Limit      int
}

// GeoJSONExporter streams records as an RFC 7946 FeatureCollection.
//
// Features are written as rows arrive from the keyset cursor, so memory
// stays flat regardless of export size. The collection carries a trailing
// metadata member with counts accumulated during the same pass: rows
// scanned, rows skipped as invalid, rows thinned, and per-owner/per-type
// feature tallies.
//
// Thinning applies only to the dense point types (path and track_point);
// visits and activity endpoints are always kept, since each one is already
// a summary of a span of time.
type GeoJSONExporter struct {
	store        PointSource
	batchSize    int
	defaultLimit int
}

// NewGeoJSONExporter builds an exporter over store.
func NewGeoJSONExporter(store PointSource, cfg config.ExportConfig) *GeoJSONExporter {
	e := &GeoJSONExporter{
		store:        store,
		batchSize:    cfg.BatchSize,
		defaultLimit: cfg.DefaultLimit,
	}
	if e.batchSize <= 0 {
		e.batchSize = 2000
	}
	if e.defaultLimit <= 0 {
		e.defaultLimit = 10000
	}
	return e
}

// Export streams one FeatureCollection to w and returns the metadata that
// was written as its trailing member.
//
// A mid-stream failure leaves w truncated; callers streaming over HTTP
// cannot unsend what went out, so they should log the returned error and
// let the connection close.
func (e *GeoJSONExporter) Export(ctx context.Context, w io.Writer, req ExportRequest) (*models.ExportMetadata, error) {
	start := time.Now()
	meta, err := e.export(ctx, w, req)
	var features int64
	if meta != nil {
		features = meta.FeatureCount
	}
	metrics.RecordExport(time.Since(start), features, err)
	return meta, err
}

func (e *GeoJSONExporter) export(ctx context.Context, w io.Writer, req ExportRequest) (*models.ExportMetadata, error) {
	since, until := req.Since, req.Until
	if since == nil && until == nil && req.Days > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -req.Days)
		since = &cutoff
	}

	rate := req.SampleRate
	if rate == 0 {
		rate = 1.0
	}
	if rate < 0.1 {
		rate = 0.1
	}
	if rate > 1.0 {
		rate = 1.0
	}

	limit := req.Limit
	if limit <= 0 {
		limit = e.defaultLimit
	}

	meta := &models.ExportMetadata{
		ExportTimestamp: time.Now().UTC(),
		SampleRate:      rate,
		OwnerCounts:     make(map[string]int64),
		TypeCounts:      make(map[string]int64),
		ExportedBy:      exportedBy,
	}
	if since != nil || until != nil {
		meta.DateFilter = &models.ExportDateFilter{Since: since, Until: until}
	}

	q := database.RecordQuery{
		Owner:     req.Owner,
		Types:     req.Types,
		Since:     since,
		Until:     until,
		BatchSize: e.batchSize,
	}

	bw := bufio.NewWriterSize(w, exportWriteBuffer)
	if _, err := bw.WriteString(`{"type":"FeatureCollection","features":[`); err != nil {
		return meta, fmt.Errorf("write export stream: %w", err)
	}

	stride := newStrideSampler(rate)
	first := true
	done := false

	var after *database.RecordPageKey
	for !done {
		rows, next, err := e.store.FetchRecordPage(ctx, q, after)
		if err != nil {
			return meta, fmt.Errorf("fetch export records: %w", err)
		}

		for i := range rows {
			row := &rows[i]
			meta.RowsScanned++

			if !row.Mappable() {
				meta.InvalidRecords++
				continue
			}
			if thinnable(row.Type) && !stride.next() {
				meta.ThinnedRecords++
				continue
			}

			feature := models.Feature{
				Type: models.GeoJSONTypeFeature,
				Geometry: models.PointGeometry{
					Type:        models.GeoJSONTypePoint,
					Coordinates: []float64{round6(*row.Longitude), round6(*row.Latitude)},
				},
				Properties: models.FeatureProperties{
					Owner:    row.OwnerKey,
					Type:     row.Type,
					Time:     row.Time,
					Semantic: derefString(row.Semantic),
					Activity: derefString(row.Activity),
				},
			}
			if err := writeFeature(bw, &feature, &first); err != nil {
				return meta, err
			}

			meta.FeatureCount++
			meta.OwnerCounts[row.OwnerKey]++
			meta.TypeCounts[string(row.Type)]++
			if meta.FeatureCount >= int64(limit) {
				done = true
				break
			}
		}

		if next == nil {
			break
		}
		after = next
		if err := ctx.Err(); err != nil {
			return meta, err
		}
	}

	if _, err := bw.WriteString(`],"metadata":`); err != nil {
		return meta, fmt.Errorf("write export stream: %w", err)
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return meta, fmt.Errorf("encode export metadata: %w", err)
	}
	if _, err := bw.Write(metaBytes); err != nil {
		return meta, fmt.Errorf("write export stream: %w", err)
	}
	if err := bw.WriteByte('}'); err != nil {
		return meta, fmt.Errorf("write export stream: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return meta, fmt.Errorf("write export stream: %w", err)
	}
	return meta, nil
}

func writeFeature(bw *bufio.Writer, f *models.Feature, first *bool) error {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode feature: %w", err)
	}
	if !*first {
		if err := bw.WriteByte(','); err != nil {
			return fmt.Errorf("write export stream: %w", err)
		}
	}
	*first = false
	if _, err := bw.Write(b); err != nil {
		return fmt.Errorf("write export stream: %w", err)
	}
	return nil
}

// thinnable reports whether a record type participates in sample-rate
// thinning. Dense point streams thin well; visits and activity endpoints
// are sparse and always kept.
func thinnable(t models.RecordType) bool {
	return t == models.RecordTypePath || t == models.RecordTypeTrackPoint
}

// round6 rounds to six decimal places, about 0.1 m of longitude at the
// equator.
func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
