// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/itinerarium/internal/models"
	"github.com/tomtom215/itinerarium/internal/uploads"
)

// pageSizeConfig resolves pagination bounds from config with safe
// defaults.
func (h *Handler) pageSizeConfig() (def, max int) {
	def, max = 100, 1000
	if h.config != nil {
		if h.config.API.DefaultPageSize > 0 {
			def = h.config.API.DefaultPageSize
		}
		if h.config.API.MaxPageSize > 0 {
			max = h.config.API.MaxPageSize
		}
	}
	return def, max
}

// HandleGetUpload returns one upload's ledger entry. Clients poll this
// while an upload runs, so the response revalidates on every request
// instead of resting in caches.
//
//	@Summary		Upload status
//	@Description	Returns the ledger entry for one upload: state, record counts, warnings, and the bounded error list.
//	@Tags			uploads
//	@Produce		json
//	@Param			id	path		string	true	"Upload id (UUID)"
//	@Success		200	{object}	models.APIResponse{data=models.Upload}
//	@Failure		400	{object}	models.APIResponse
//	@Failure		404	{object}	models.APIResponse
//	@Failure		500	{object}	models.APIResponse
//	@Router			/uploads/{id} [get]
func (h *Handler) HandleGetUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
			"Upload id must be a UUID", err)
		return
	}

	up, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, uploads.ErrUploadNotFound) {
			respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Upload not found", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR",
			"Failed to read upload history", err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   up,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// HandleListUploads lists upload history, newest first. Limits beyond the
// configured page ceiling are clamped, not rejected.
//
//	@Summary		List uploads
//	@Description	Returns recent upload ledger entries, newest first.
//	@Tags			uploads
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum entries to return (clamped to the configured ceiling)"
//	@Success		200		{object}	models.APIResponse{data=models.UploadsResponse}
//	@Failure		400		{object}	models.APIResponse
//	@Failure		500		{object}	models.APIResponse
//	@Router			/uploads [get]
func (h *Handler) HandleListUploads(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	def, max := h.pageSizeConfig()

	limit, err := getIntParam(r, "limit", def)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&UploadsListRequest{Limit: limit}); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	if limit == 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}

	entries, err := h.ledger.List(r.Context(), limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR",
			"Failed to list uploads", err)
		return
	}

	items := make([]models.Upload, 0, len(entries))
	for _, u := range entries {
		items = append(items, *u)
	}

	w.Header().Set("Cache-Control", "no-cache")
	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   &models.UploadsResponse{Uploads: items, TotalCount: len(items)},
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}
