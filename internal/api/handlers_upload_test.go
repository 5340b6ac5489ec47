// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/itinerarium/internal/models"
)

// postUpload sends one upload request directly to the handler.
func postUpload(h *Handler, body io.Reader, owner, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timeline/upload", body)
	if owner != "" {
		req.Header.Set(ownerKeyHeader, owner)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.HandleTimelineUpload(w, req)
	return w
}

// uploadResult decodes the success envelope of a finished upload.
func uploadResult(t *testing.T, w *httptest.ResponseRecorder) models.UploadResult {
	t.Helper()
	resp := decodeEnvelope(t, w)
	if resp.Status != "success" {
		t.Fatalf("Expected success envelope, got %q: %+v", resp.Status, resp.Error)
	}
	var result models.UploadResult
	decodeData(t, resp.Data, &result)
	return result
}

func TestTimelineUploadRawDocument(t *testing.T) {
	h, store := setupUploadHandler(t, testConfig())

	doc := trackLinesDoc(3, time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC))
	w := postUpload(h, strings.NewReader(doc), "alice", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	result := uploadResult(t, w)
	if result.State != models.UploadStateCompleted {
		t.Errorf("State = %q, want %q", result.State, models.UploadStateCompleted)
	}
	if result.SavedRecords != 3 {
		t.Errorf("SavedRecords = %d, want 3", result.SavedRecords)
	}
	if result.Duplicate {
		t.Error("First upload should not be marked duplicate")
	}
	if _, err := uuid.Parse(result.UploadID); err != nil {
		t.Errorf("UploadID %q is not a UUID: %v", result.UploadID, err)
	}
	if store.savedCount() != 3 {
		t.Errorf("Store holds %d records, want 3", store.savedCount())
	}
}

func TestTimelineUploadGzipBody(t *testing.T) {
	h, store := setupUploadHandler(t, testConfig())

	doc := trackLinesDoc(5, time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC))
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(doc)); err != nil {
		t.Fatalf("Failed to compress document: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("Failed to close gzip writer: %v", err)
	}

	w := postUpload(h, &buf, "alice", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	result := uploadResult(t, w)
	if result.SavedRecords != 5 {
		t.Errorf("SavedRecords = %d, want 5", result.SavedRecords)
	}
	if store.savedCount() != 5 {
		t.Errorf("Store holds %d records, want 5", store.savedCount())
	}
}

func TestTimelineUploadMultipartForm(t *testing.T) {
	h, _ := setupUploadHandler(t, testConfig())

	doc := trackLinesDoc(2, time.Date(2026, 3, 3, 7, 0, 0, 0, time.UTC))
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("username", "carol"); err != nil {
		t.Fatalf("Failed to write username field: %v", err)
	}
	fw, err := mw.CreateFormFile("file", "timeline.json")
	if err != nil {
		t.Fatalf("Failed to create file part: %v", err)
	}
	if _, err := fw.Write([]byte(doc)); err != nil {
		t.Fatalf("Failed to write file part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}

	// No X-Owner-Key header: the legacy username field carries the owner.
	w := postUpload(h, &buf, "", mw.FormDataContentType())

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	result := uploadResult(t, w)

	id, err := uuid.Parse(result.UploadID)
	if err != nil {
		t.Fatalf("UploadID %q is not a UUID: %v", result.UploadID, err)
	}
	entry, err := h.ledger.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Failed to read ledger entry: %v", err)
	}
	if entry.OwnerKey != "carol" {
		t.Errorf("OwnerKey = %q, want %q", entry.OwnerKey, "carol")
	}
	if entry.Filename != "timeline.json" {
		t.Errorf("Filename = %q, want %q", entry.Filename, "timeline.json")
	}
}

func TestTimelineUploadMultipartWithoutFilePart(t *testing.T) {
	h, _ := setupUploadHandler(t, testConfig())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("username", "carol"); err != nil {
		t.Fatalf("Failed to write username field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}

	w := postUpload(h, &buf, "", mw.FormDataContentType())

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %+v", resp.Error)
	}
}

func TestTimelineUploadDuplicateReplay(t *testing.T) {
	h, store := setupUploadHandler(t, testConfig())

	doc := trackLinesDoc(3, time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC))

	first := postUpload(h, strings.NewReader(doc), "alice", "")
	if first.Code != http.StatusOK {
		t.Fatalf("First upload: expected status 200, got %d: %s", first.Code, first.Body.String())
	}
	firstResult := uploadResult(t, first)

	second := postUpload(h, strings.NewReader(doc), "alice", "")
	if second.Code != http.StatusOK {
		t.Fatalf("Replay: expected status 200, got %d: %s", second.Code, second.Body.String())
	}
	secondResult := uploadResult(t, second)

	if !secondResult.Duplicate {
		t.Error("Replay should be marked duplicate")
	}
	if secondResult.Message != "upload already processed" {
		t.Errorf("Message = %q, want %q", secondResult.Message, "upload already processed")
	}
	if secondResult.UploadID != firstResult.UploadID {
		t.Errorf("Replay answered with upload %s, want original %s",
			secondResult.UploadID, firstResult.UploadID)
	}
	if store.savedCount() != 3 {
		t.Errorf("Store holds %d records after replay, want 3 (no re-ingest)", store.savedCount())
	}
}

func TestTimelineUploadSameDocumentDifferentOwner(t *testing.T) {
	h, store := setupUploadHandler(t, testConfig())

	doc := trackLinesDoc(2, time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC))

	if w := postUpload(h, strings.NewReader(doc), "alice", ""); w.Code != http.StatusOK {
		t.Fatalf("First upload: expected status 200, got %d", w.Code)
	}

	// The duplicate index is per owner; bob's identical document ingests.
	w := postUpload(h, strings.NewReader(doc), "bob", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Second owner: expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if result := uploadResult(t, w); result.Duplicate {
		t.Error("Different owner's upload should not be a duplicate")
	}
	if store.savedCount() != 4 {
		t.Errorf("Store holds %d records, want 4", store.savedCount())
	}
}

func TestTimelineUploadMissingOwner(t *testing.T) {
	h, _ := setupUploadHandler(t, testConfig())

	w := postUpload(h, strings.NewReader("{}"), "", "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %+v", resp.Error)
	}
}

func TestTimelineUploadUnparsableDocument(t *testing.T) {
	h, store := setupUploadHandler(t, testConfig())

	w := postUpload(h, strings.NewReader("this is not a location history export"), "alice", "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != "PARSE_ERROR" {
		t.Fatalf("Expected PARSE_ERROR, got %+v", resp.Error)
	}

	// The failure is recorded in the ledger under the id carried in the
	// error details.
	rawID, ok := resp.Error.Details["upload_id"].(string)
	if !ok || rawID == "" {
		t.Fatalf("Expected upload_id detail, got %v", resp.Error.Details)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		t.Fatalf("upload_id %q is not a UUID: %v", rawID, err)
	}
	entry, err := h.ledger.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Failed to read ledger entry: %v", err)
	}
	if entry.State != models.UploadStateFailed {
		t.Errorf("Ledger state = %q, want %q", entry.State, models.UploadStateFailed)
	}
	if store.savedCount() != 0 {
		t.Errorf("Store holds %d records after a failed parse, want 0", store.savedCount())
	}
}

func TestTimelineUploadCorruptGzip(t *testing.T) {
	h, _ := setupUploadHandler(t, testConfig())

	// Gzip magic followed by garbage instead of a deflate stream.
	body := append([]byte{0x1f, 0x8b}, []byte("definitely not deflate")...)
	w := postUpload(h, bytes.NewReader(body), "alice", "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != "PARSE_ERROR" {
		t.Errorf("Expected PARSE_ERROR, got %+v", resp.Error)
	}
}

func TestTimelineUploadOversizeRawBody(t *testing.T) {
	cfg := testConfig()
	cfg.Ingest.MaxUploadMB = 1
	h, _ := setupUploadHandler(t, cfg)

	body := strings.Repeat("x", (1<<20)+1024)
	w := postUpload(h, strings.NewReader(body), "alice", "")

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected status 413, got %d", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != "UPLOAD_TOO_LARGE" {
		t.Errorf("Expected UPLOAD_TOO_LARGE, got %+v", resp.Error)
	}
}

func TestTimelineUploadOversizeDecompressed(t *testing.T) {
	cfg := testConfig()
	cfg.Ingest.MaxUploadMB = 1
	h, _ := setupUploadHandler(t, cfg)

	// A few kilobytes on the wire, 1.5 MB decompressed. The wire size guard
	// never fires; the decompressed size guard must.
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(strings.Repeat("a", (1<<20)+(1<<19)))); err != nil {
		t.Fatalf("Failed to compress payload: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("Failed to close gzip writer: %v", err)
	}

	w := postUpload(h, &buf, "alice", "")

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected status 413, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != "UPLOAD_TOO_LARGE" {
		t.Fatalf("Expected UPLOAD_TOO_LARGE, got %+v", resp.Error)
	}
	if !strings.Contains(resp.Error.Message, "Decompressed") {
		t.Errorf("Message = %q, want the decompressed-size variant", resp.Error.Message)
	}
}

func TestTimelineUploadOwnerRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Ingest.OwnerUploadsPerMin = 1
	cfg.Ingest.OwnerUploadBurst = 1
	h, _ := setupUploadHandler(t, cfg)

	base := time.Date(2026, 3, 6, 7, 0, 0, 0, time.UTC)

	first := postUpload(h, strings.NewReader(trackLinesDoc(2, base)), "alice", "")
	if first.Code != http.StatusOK {
		t.Fatalf("First upload: expected status 200, got %d: %s", first.Code, first.Body.String())
	}

	// Distinct content, so the duplicate replay path cannot answer it.
	second := postUpload(h, strings.NewReader(trackLinesDoc(2, base.Add(time.Hour))), "alice", "")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("Second upload: expected status 429, got %d: %s", second.Code, second.Body.String())
	}
	resp := decodeEnvelope(t, second)
	if resp.Error == nil || resp.Error.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("Expected RATE_LIMIT_EXCEEDED, got %+v", resp.Error)
	}

	// Admission is keyed per owner, so another owner ingests.
	third := postUpload(h, strings.NewReader(trackLinesDoc(2, base.Add(2*time.Hour))), "bob", "")
	if third.Code != http.StatusOK {
		t.Errorf("Other owner: expected status 200, got %d", third.Code)
	}
}

func TestUploadFailureStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		reason     string
		wantStatus int
		wantCode   string
	}{
		{"parse failure", "parse error at byte 0: no document found", http.StatusBadRequest, "PARSE_ERROR"},
		{"mid-document failure", "parser failed mid-document after 2 chunks", http.StatusBadRequest, "PARSE_ERROR"},
		{"store outage", "store unavailable, 4 chunks lost", http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{"cancellation", "upload canceled", http.StatusInternalServerError, "DATABASE_ERROR"},
		{"empty reason", "", http.StatusInternalServerError, "DATABASE_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := uploadFailureStatus(tt.reason)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("uploadFailureStatus(%q) = (%d, %s), want (%d, %s)",
					tt.reason, status, code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}

func TestDecodeDocument(t *testing.T) {
	t.Parallel()

	// Plain bytes pass through untouched.
	r, err := decodeDocument(strings.NewReader(`{"lat":1}`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	got, _ := io.ReadAll(r)
	if string(got) != `{"lat":1}` {
		t.Errorf("Passthrough = %q, want original bytes", got)
	}

	// Gzip payloads are detected by magic and decompressed.
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte("hello"))
	gz.Close()
	if r, err = decodeDocument(&buf); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got, _ = io.ReadAll(r); string(got) != "hello" {
		t.Errorf("Decompressed = %q, want %q", got, "hello")
	}

	// Gzip magic with a broken stream reports an error up front.
	if _, err = decodeDocument(bytes.NewReader([]byte{0x1f, 0x8b, 0x00})); err == nil {
		t.Error("Expected an error for a truncated gzip stream")
	}

	// A document shorter than the magic window still passes through.
	if r, err = decodeDocument(strings.NewReader("{")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got, _ = io.ReadAll(r); string(got) != "{" {
		t.Errorf("Short passthrough = %q, want %q", got, "{")
	}
}
