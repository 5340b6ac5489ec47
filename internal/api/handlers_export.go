// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/itinerarium/internal/logging"
	"github.com/tomtom215/itinerarium/internal/timeline"
)

// setDownloadHeaders marks the response as a file download with a
// timestamped filename and returns the filename used.
func setDownloadHeaders(w http.ResponseWriter, contentType, prefix, ext string) string {
	filename := fmt.Sprintf("%s-%s.%s", prefix, time.Now().UTC().Format("20060102-150405"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Cache-Control", "no-store")
	return filename
}

// HandleExportGeoJSON streams location records as a bare RFC 7946
// FeatureCollection, not the envelope, so the download opens directly in
// GIS tools. Features stream in store batches; the full result never
// materializes in memory.
//
// Errors after the first byte cannot change the status line. They
// truncate the stream, leaving invalid JSON the client's parser will
// reject, and are logged server-side.
//
//	@Summary		Export GeoJSON
//	@Description	Streams matching records as a FeatureCollection with trailing export metadata. The time window is since/until when given, otherwise the last N days.
//	@Tags			export
//	@Produce		json
//	@Param			owner		query	string	false	"Owner key to scope the export (default: all owners)"
//	@Param			days		query	int		false	"Lookback window in days when since/until are absent"
//	@Param			since		query	string	false	"Window start, RFC 3339"
//	@Param			until		query	string	false	"Window end, RFC 3339"
//	@Param			types		query	string	false	"Comma-separated record types (path,visit,activity,track_point)"
//	@Param			sample_rate	query	number	false	"Keep ratio 0.1-1.0"
//	@Param			limit		query	int		false	"Maximum features to export"
//	@Success		200			{object}	object	"GeoJSON FeatureCollection"
//	@Failure		400			{object}	models.APIResponse
//	@Failure		503			{object}	models.APIResponse
//	@Router			/export/geojson [get]
func (h *Handler) HandleExportGeoJSON(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.requireDB(w, r) {
		return
	}

	days, err := getIntParam(r, "days", 0)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	limit, err := getIntParam(r, "limit", 0)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	rate, err := getFloatParam(r, "sample_rate", 0)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	since, err := getTimeParam(r, "since")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	until, err := getTimeParam(r, "until")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	types, err := parseRecordTypes(r.URL.Query().Get("types"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if since != nil && until != nil && until.Before(*since) {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
			"Parameter \"until\" must not precede \"since\"", nil)
		return
	}

	req := ExportGeoJSONRequest{Owner: requestOwner(r), Days: days, SampleRate: rate, Limit: limit}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	filename := setDownloadHeaders(w, "application/geo+json", "itinerarium-export", "geojson")

	meta, err := h.exporter.Export(r.Context(), w, timeline.ExportRequest{
		Owner:      req.Owner,
		Types:      types,
		Since:      since,
		Until:      until,
		Days:       req.Days,
		SampleRate: req.SampleRate,
		Limit:      req.Limit,
	})
	if err != nil {
		// Headers are out; the truncated body is the only client signal.
		logging.CtxErr(r.Context(), err).
			Str("filename", filename).
			Dur("elapsed", time.Since(start)).
			Msg("GeoJSON export aborted mid-stream")
		return
	}

	logging.CtxInfo(r.Context()).
		Str("filename", filename).
		Int64("features", meta.FeatureCount).
		Int64("rows_scanned", meta.RowsScanned).
		Dur("elapsed", time.Since(start)).
		Msg("GeoJSON export completed")
}
