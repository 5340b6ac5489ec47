// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/itinerarium/internal/cache"
	"github.com/tomtom215/itinerarium/internal/events"
	"github.com/tomtom215/itinerarium/internal/logging"
	"github.com/tomtom215/itinerarium/internal/models"
	"github.com/tomtom215/itinerarium/internal/timeline"
)

// HandleMapPoints serves sampled map points: newest-first mappable
// records, thinned by the zoom-appropriate keep ratio, hard-capped at the
// configured ceiling.
//
//	@Summary		Query map points
//	@Description	Returns sampled location points for map display. Zoom selects the sampling tier; an explicit limit bypasses the tier table and acts as a newest-first cap.
//	@Tags			map
//	@Produce		json
//	@Param			owner	query		string	false	"Owner key to scope the query (default: all owners)"
//	@Param			zoom	query		int		false	"Map zoom level 0-22"	default(0)
//	@Param			limit	query		int		false	"Maximum points to return"
//	@Success		200		{object}	models.APIResponse{data=models.MapDataResponse}
//	@Failure		400		{object}	models.APIResponse
//	@Failure		500		{object}	models.APIResponse
//	@Failure		503		{object}	models.APIResponse
//	@Router			/map/points [get]
func (h *Handler) HandleMapPoints(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.requireDB(w, r) {
		return
	}

	zoom, err := getIntParam(r, "zoom", 0)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	limit, err := getIntParam(r, "limit", 0)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	req := MapPointsRequest{Owner: requestOwner(r), Zoom: zoom, Limit: limit}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	cacheKey := cache.GenerateKey("map_points", req.Owner, req)
	if h.cache != nil {
		if cached, found := h.cache.Get(cacheKey); found {
			if result, ok := cached.(*models.MapDataResponse); ok {
				respondJSON(w, r, http.StatusOK, &models.APIResponse{
					Status:   "success",
					Data:     result,
					Metadata: models.Metadata{Timestamp: time.Now().UTC(), Cached: true},
				})
				return
			}
		}
	}

	result, err := h.sampler.Sample(r.Context(), timeline.SampleRequest{
		Owner: req.Owner,
		Zoom:  req.Zoom,
		Limit: req.Limit,
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR",
			"Failed to query map points", err)
		return
	}

	if h.cache != nil {
		h.cache.Set(cacheKey, result)
	}

	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   result,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// HandleStats serves store-wide record statistics.
//
//	@Summary		Record statistics
//	@Description	Returns total record counts, the coordinate validity split, the observed date range, and per-owner and per-type breakdowns.
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	models.APIResponse{data=models.StatsResponse}
//	@Failure		500	{object}	models.APIResponse
//	@Failure		503	{object}	models.APIResponse
//	@Router			/stats [get]
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.requireDB(w, r) {
		return
	}

	cacheKey := cache.GenerateKey("stats", "", nil)
	if h.cache != nil {
		if cached, found := h.cache.Get(cacheKey); found {
			if stats, ok := cached.(*models.StatsResponse); ok {
				respondJSON(w, r, http.StatusOK, &models.APIResponse{
					Status:   "success",
					Data:     stats,
					Metadata: models.Metadata{Timestamp: time.Now().UTC(), Cached: true},
				})
				return
			}
		}
	}

	stats, err := h.db.GetStats(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR",
			"Failed to compute statistics", err)
		return
	}

	if h.cache != nil {
		h.cache.Set(cacheKey, stats)
	}

	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   stats,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// HandleOwners lists every owner with records in the store.
//
//	@Summary		List owners
//	@Description	Returns each owner key with record counts and most recent record time.
//	@Tags			owners
//	@Produce		json
//	@Success		200	{object}	models.APIResponse{data=models.OwnersResponse}
//	@Failure		500	{object}	models.APIResponse
//	@Failure		503	{object}	models.APIResponse
//	@Router			/owners [get]
func (h *Handler) HandleOwners(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.requireDB(w, r) {
		return
	}

	cacheKey := cache.GenerateKey("owners", "", nil)
	if h.cache != nil {
		if cached, found := h.cache.Get(cacheKey); found {
			if owners, ok := cached.(*models.OwnersResponse); ok {
				respondJSON(w, r, http.StatusOK, &models.APIResponse{
					Status:   "success",
					Data:     owners,
					Metadata: models.Metadata{Timestamp: time.Now().UTC(), Cached: true},
				})
				return
			}
		}
	}

	owners, err := h.db.ListOwners(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR",
			"Failed to list owners", err)
		return
	}

	result := &models.OwnersResponse{Owners: owners, TotalCount: len(owners)}
	if h.cache != nil {
		h.cache.Set(cacheKey, result)
	}

	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   result,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// HandleOwnerSummary serves one owner's record profile. An owner with no
// records returns an empty summary, not 404, so clients cannot probe which
// owner keys exist.
//
//	@Summary		Owner summary
//	@Description	Returns the owner's record type distribution, top visit semantic labels, top activity kinds, and observed date range.
//	@Tags			owners
//	@Produce		json
//	@Param			owner	path		string	true	"Owner key"
//	@Success		200		{object}	models.APIResponse{data=models.OwnerSummary}
//	@Failure		400		{object}	models.APIResponse
//	@Failure		500		{object}	models.APIResponse
//	@Failure		503		{object}	models.APIResponse
//	@Router			/owners/{owner}/summary [get]
func (h *Handler) HandleOwnerSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.requireDB(w, r) {
		return
	}

	owner := chi.URLParam(r, "owner")
	if apiErr := validateRequest(&OwnerPathRequest{Owner: owner}); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	cacheKey := cache.GenerateKey("owner_summary", owner, nil)
	if h.cache != nil {
		if cached, found := h.cache.Get(cacheKey); found {
			if summary, ok := cached.(*models.OwnerSummary); ok {
				respondJSON(w, r, http.StatusOK, &models.APIResponse{
					Status:   "success",
					Data:     summary,
					Metadata: models.Metadata{Timestamp: time.Now().UTC(), Cached: true},
				})
				return
			}
		}
	}

	summary, err := h.db.GetOwnerSummary(r.Context(), owner)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR",
			"Failed to summarize owner records", err)
		return
	}

	if h.cache != nil {
		h.cache.Set(cacheKey, summary)
	}

	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   summary,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// HandleDeleteOwnerRecords removes every record belonging to an owner.
// Upload ledger history stays; only store records go. Deleting an unknown
// owner succeeds with zero deleted records.
//
//	@Summary		Delete owner records
//	@Description	Removes all location records for the owner and reports the count. Upload history in the ledger is retained.
//	@Tags			owners
//	@Produce		json
//	@Param			owner	path		string	true	"Owner key"
//	@Success		200		{object}	models.APIResponse{data=models.DeleteRecordsResponse}
//	@Failure		400		{object}	models.APIResponse
//	@Failure		500		{object}	models.APIResponse
//	@Failure		503		{object}	models.APIResponse
//	@Router			/owners/{owner}/records [delete]
func (h *Handler) HandleDeleteOwnerRecords(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.requireDB(w, r) {
		return
	}

	owner := chi.URLParam(r, "owner")
	if apiErr := validateRequest(&OwnerPathRequest{Owner: owner}); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	deleted, err := h.db.DeleteOwnerRecords(r.Context(), owner)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR",
			"Failed to delete owner records", err)
		return
	}

	h.invalidateOwnerCache(owner)
	h.ingestLog.LogRecordsDeleted(owner, r.RemoteAddr, deleted)

	if h.bus != nil && deleted > 0 {
		ev := events.NewStatsEvent(events.StatsReasonOwnerCleared, owner)
		ev.RecordsAffected = deleted
		if perr := h.bus.PublishStats(r.Context(), ev); perr != nil {
			logging.Warn().Err(perr).Msg("Failed to publish stats event")
		}
	}

	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   &models.DeleteRecordsResponse{OwnerKey: owner, DeletedRecords: deleted},
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// invalidateOwnerCache drops cached responses scoped to one owner along
// with the all-owners entries that aggregate them, leaving other owners'
// entries warm.
func (h *Handler) invalidateOwnerCache(owner string) {
	if h.cache == nil {
		return
	}
	removed := h.cache.InvalidateOwner(owner)
	removed += h.cache.InvalidateOwner("")
	logging.Debug().Int("entries", removed).Msg("Invalidated cached queries")
}

// formatCatalog describes the accepted source document forms. Names and
// detection rules mirror the streaming parser.
var formatCatalog = []models.SourceFormat{
	{
		Name:        "android",
		Description: "Nested export: a single object whose semanticSegments array carries timeline path, visit, and activity segments",
		Detection:   "leading '{' containing a semanticSegments key",
		RecordTypes: []string{"path", "visit", "activity"},
	},
	{
		Name:        "iphone",
		Description: "Flat export: a top-level array of visit and activity segments with geo-URI coordinate strings",
		Detection:   "leading '['",
		RecordTypes: []string{"visit", "activity"},
	},
	{
		Name:        "track_lines",
		Description: "Track recorder output: one small JSON object per line",
		Detection:   "leading '{' that closes as a complete object on its first line",
		RecordTypes: []string{"track_point"},
	},
}

// HandleFormats describes the accepted upload formats and the size limit.
//
//	@Summary		Accepted upload formats
//	@Description	Lists the source document forms the upload endpoint recognizes, how each is detected, and the configured upload size ceiling. Gzip compression and multipart upload apply to every format.
//	@Tags			timeline
//	@Produce		json
//	@Success		200	{object}	models.APIResponse{data=models.FormatsResponse}
//	@Router			/formats [get]
func (h *Handler) HandleFormats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: &models.FormatsResponse{
			Formats:        formatCatalog,
			MaxUploadBytes: h.config.Ingest.MaxUploadBytes(),
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}
