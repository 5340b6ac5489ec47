// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package api

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tomtom215/itinerarium/internal/logging"
	"github.com/tomtom215/itinerarium/internal/models"
	"github.com/tomtom215/itinerarium/internal/timeline"
	"github.com/tomtom215/itinerarium/internal/uploads"
)

// HandleTimelineUpload ingests one location history document.
//
// The document arrives as a raw JSON body, a gzip-compressed body, or a
// multipart form carrying a file part. The stream is spooled to a temp
// file while its content hash accumulates, so the duplicate check runs
// before any record reaches the pipeline and a replayed document is
// answered from the ledger without re-ingesting. Peak memory stays at
// buffer size regardless of document size; disk holds at most one
// decompressed document per in-flight upload.
//
//	@Summary		Upload a location history document
//	@Description	Accepts a raw JSON body, a gzip-compressed body, or a multipart form with a file part. Replaying an already completed document returns the recorded outcome with duplicate=true instead of re-ingesting.
//	@Tags			timeline
//	@Accept			json,mpfd
//	@Produce		json
//	@Param			X-Owner-Key	header		string	false	"Pre-authenticated owner key (or legacy username form field)"
//	@Success		200			{object}	models.APIResponse{data=models.UploadResult}
//	@Failure		400			{object}	models.APIResponse
//	@Failure		413			{object}	models.APIResponse
//	@Failure		429			{object}	models.APIResponse
//	@Failure		500			{object}	models.APIResponse
//	@Failure		503			{object}	models.APIResponse
//	@Router			/timeline/upload [post]
func (h *Handler) HandleTimelineUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	maxBytes := h.config.Ingest.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	owner := r.Header.Get(ownerKeyHeader)
	filename := ""
	var src io.Reader = r.Body

	if ct := r.Header.Get("Content-Type"); strings.HasPrefix(ct, "multipart/form-data") {
		mr, err := r.MultipartReader()
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
				"Malformed multipart body", err)
			return
		}
		part, err := nextFilePart(mr, &owner)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
				"Multipart body has no file part", err)
			return
		}
		defer part.Close()
		filename = part.FileName()
		src = part
	}

	if apiErr := validateRequest(&UploadBeginRequest{Owner: owner, Filename: filename}); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	doc, err := decodeDocument(src)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "PARSE_ERROR",
			"Malformed gzip stream", err)
		return
	}

	// The decompressed-size guard needs one byte of headroom to tell
	// "exactly at the limit" from "over it".
	hr := uploads.NewHashingReader(io.LimitReader(doc, maxBytes+1))

	tmp, err := os.CreateTemp("", "itinerarium-upload-*")
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR",
			"Failed to create spool file", err)
		return
	}
	defer func() {
		if cerr := tmp.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Failed to close upload spool file")
		}
		if rerr := os.Remove(tmp.Name()); rerr != nil {
			logging.Warn().Err(rerr).Msg("Failed to remove upload spool file")
		}
	}()

	written, err := io.Copy(tmp, hr)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, r, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE",
				fmt.Sprintf("Upload body exceeds the %d MB limit", h.config.Ingest.MaxUploadMB), err)
			return
		}
		respondError(w, r, http.StatusBadRequest, "PARSE_ERROR",
			"Unreadable upload body", err)
		return
	}
	if written > maxBytes {
		respondError(w, r, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE",
			fmt.Sprintf("Decompressed upload exceeds the %d MB limit", h.config.Ingest.MaxUploadMB), nil)
		return
	}

	contentHash := hr.Sum()

	// Idempotent replay: a completed upload of the same document by the
	// same owner is answered from the ledger. Ledger read failures fall
	// through to ingest; Begin surfaces a genuinely broken ledger.
	if dup, derr := h.tracker.FindDuplicate(r.Context(), owner, contentHash); derr == nil {
		result := dup.ResultFor("upload already processed", true)
		respondJSON(w, r, http.StatusOK, &models.APIResponse{
			Status: "success",
			Data:   result,
			Metadata: models.Metadata{
				Timestamp:   time.Now().UTC(),
				QueryTimeMS: time.Since(start).Milliseconds(),
			},
		})
		return
	} else if !errors.Is(derr, uploads.ErrUploadNotFound) {
		logging.CtxWarn(r.Context()).Err(derr).Msg("Duplicate check failed, ingesting anyway")
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR",
			"Failed to rewind spool file", err)
		return
	}

	up, err := h.tracker.Begin(r.Context(), owner, filename, contentHash, written)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR",
			"Failed to record upload", err)
		return
	}
	h.ingestLog.LogUploadReceived(up.ID.String(), owner, r.RemoteAddr, written)

	res, err := h.pipeline.Run(r.Context(), owner, up.ID, tmp, h.tracker)
	if err != nil {
		// Run returns an error only when ingestion never started:
		// admission rate limiting, or cancellation while queued for an
		// upload slot. Nothing was written, so the ledger entry aborts.
		if _, aerr := h.tracker.Abort(r.Context(), up.ID, err.Error()); aerr != nil {
			logging.CtxErr(r.Context(), aerr).Str("upload_id", up.ID.String()).
				Msg("Failed to abort unstarted upload")
		}
		if errors.Is(err, timeline.ErrUploadRateLimited) {
			respondError(w, r, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
				"Upload rate limit exceeded for owner, retry later", err)
			return
		}
		respondError(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE",
			"Upload could not start", err)
		return
	}

	final, err := h.tracker.Finish(r.Context(), up.ID, res)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR",
			"Upload processed but history update failed", err)
		return
	}

	if final.SavedRecords > 0 {
		h.ClearCache()
	}

	switch final.State {
	case models.UploadStateCompleted:
		h.respondUploadResult(w, r, start, final, "upload processed")
	case models.UploadStateCompletedPartial:
		h.respondUploadResult(w, r, start, final, "upload partially processed: "+final.Error)
	default:
		status, code := uploadFailureStatus(final.Error)
		respondErrorDetails(w, r, status, code, "Upload failed: "+final.Error,
			map[string]interface{}{"upload_id": final.ID.String()}, nil)
	}
}

// respondUploadResult writes the success envelope for a finished upload.
func (h *Handler) respondUploadResult(w http.ResponseWriter, r *http.Request, start time.Time, u *models.Upload, message string) {
	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   u.ResultFor(message, false),
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// uploadFailureStatus maps a terminal failure reason to an HTTP status and
// error code. The pipeline produces reasons with stable prefixes.
func uploadFailureStatus(reason string) (int, string) {
	switch {
	case strings.HasPrefix(reason, "parse error"),
		strings.Contains(reason, "mid-document"):
		return http.StatusBadRequest, "PARSE_ERROR"
	case strings.Contains(reason, "store unavailable"):
		return http.StatusServiceUnavailable, "STORE_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "DATABASE_ERROR"
	}
}

// nextFilePart scans multipart parts for the document, collecting the
// legacy username field on the way. Parts after the file are unreachable
// without buffering the document, so username must precede the file part.
func nextFilePart(mr *multipart.Reader, owner *string) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errors.New("no file part before end of form")
		}
		if err != nil {
			return nil, err
		}
		name := part.FormName()
		if name == "username" && *owner == "" {
			v, rerr := io.ReadAll(io.LimitReader(part, 256))
			if rerr != nil {
				return nil, rerr
			}
			*owner = strings.TrimSpace(string(v))
			continue
		}
		if name == "file" || part.FileName() != "" {
			return part, nil
		}
	}
}

// decodeDocument returns the document byte stream, transparently
// gunzipping payloads that open with the gzip magic. Detection is by
// content, not headers, so compressed bodies work with or without a
// Content-Encoding header and inside multipart parts.
func decodeDocument(src io.Reader) (io.Reader, error) {
	br := bufio.NewReader(src)
	magic, _ := br.Peek(2)
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return gz, nil
	}
	return br, nil
}
