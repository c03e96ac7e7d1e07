package server

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"filedrop/internal/blobstore"
	"filedrop/internal/models"
)

func TestUploadCreatesRecord(t *testing.T) {
	env := newTestEnv(t)

	rec := uploadFile(t, env, "report.pdf", "application/pdf", []byte("%PDF-fake"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var record models.FileRecord
	decodeJSON(t, rec, &record)
	if err := blobstore.ValidateKey(record.StorageKey); err != nil {
		t.Errorf("returned key %q is not a valid generator output: %v", record.StorageKey, err)
	}
	if record.DisplayName != "report.pdf" {
		t.Errorf("display name: got %q", record.DisplayName)
	}
	if record.ContentType != "application/pdf" {
		t.Errorf("content type: got %q", record.ContentType)
	}
	if record.CreatedAt.IsZero() {
		t.Error("expected createdAt to be set")
	}

	stored, err := env.store.GetFile(context.Background(), record.StorageKey)
	if err != nil {
		t.Fatalf("get stored record: %v", err)
	}
	if stored == nil {
		t.Fatal("record missing from store after upload")
	}
	if _, err := env.blobs.Stat(context.Background(), record.StorageKey); err != nil {
		t.Fatalf("blob missing after upload: %v", err)
	}
}

func TestUploadDefaultsContentType(t *testing.T) {
	env := newTestEnv(t)

	rec := uploadFile(t, env, "mystery.bin", "", []byte{0x00, 0x01})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var record models.FileRecord
	decodeJSON(t, rec, &record)
	if record.ContentType != "application/octet-stream" {
		t.Fatalf("expected fallback content type, got %q", record.ContentType)
	}
}

func TestUploadMissingFilePart(t *testing.T) {
	env := newTestEnv(t)

	body, bodyType := multipartBody(t, "x.txt", "text/plain", []byte("x"))
	// Rename the field so "file" is absent.
	raw := bytes.ReplaceAll(body.Bytes(), []byte(`name="file"`), []byte(`name="other"`))
	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(raw))
	req.Header.Set("Content-Type", bodyType)

	rec := env.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body2 ErrorResponse
	decodeJSON(t, rec, &body2)
	if body2.ErrorCode != ErrCodeMissingRequired {
		t.Fatalf("expected error code %d, got %d", ErrCodeMissingRequired, body2.ErrorCode)
	}
}

func TestUploadBlankFilenameRejected(t *testing.T) {
	env := newTestEnv(t)

	// A whitespace-only filename survives multipart parsing as a file part
	// but trims to nothing.
	rec := uploadFile(t, env, " ", "text/plain", []byte("content"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var body ErrorResponse
	decodeJSON(t, rec, &body)
	if body.ErrorCode != ErrCodeMissingFilename {
		t.Fatalf("expected error code %d, got %d", ErrCodeMissingFilename, body.ErrorCode)
	}

	records, err := env.store.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("rejected upload left a record behind: %+v", records)
	}
	keys, err := env.blobs.Keys(context.Background())
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("rejected upload left a blob behind: %v", keys)
	}
}

func TestUploadNotMultipart(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString("just bytes"))
	req.Header.Set("Content-Type", "text/plain")

	rec := env.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body ErrorResponse
	decodeJSON(t, rec, &body)
	if body.ErrorCode != ErrCodeInvalidMultipart {
		t.Fatalf("expected error code %d, got %d", ErrCodeInvalidMultipart, body.ErrorCode)
	}
}

func TestUploadBodyTooLarge(t *testing.T) {
	env := newTestEnv(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	small := New("127.0.0.1:0", env.service, logger, Options{MaxUploadBytes: 256})
	handler := small.routes()

	body, bodyType := multipartBody(t, "big.bin", "", bytes.Repeat([]byte("a"), 4096))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", bodyType)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp ErrorResponse
	decodeJSON(t, rec, &resp)
	if resp.ErrorCode != ErrCodeRequestTooLarge {
		t.Fatalf("expected error code %d, got %d", ErrCodeRequestTooLarge, resp.ErrorCode)
	}
}

func TestDownloadRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	content := []byte("the exact original bytes\x00\x01\x02")

	rec := uploadFile(t, env, "data.bin", "application/octet-stream", content)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d", rec.Code)
	}
	var record models.FileRecord
	decodeJSON(t, rec, &record)

	down := env.do(t, httptest.NewRequest(http.MethodGet, "/files/"+record.StorageKey, nil))
	if down.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d: %s", down.Code, down.Body.String())
	}
	if !bytes.Equal(down.Body.Bytes(), content) {
		t.Fatal("downloaded bytes differ from uploaded bytes")
	}
	if got := down.Header().Get("Content-Type"); got != "application/octet-stream" {
		t.Errorf("content type header: got %q", got)
	}
	if got := down.Header().Get("Content-Length"); got != strconv.Itoa(len(content)) {
		t.Errorf("content length header: got %q", got)
	}

	mediaType, params, err := mime.ParseMediaType(down.Header().Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("parse content disposition: %v", err)
	}
	if mediaType != "attachment" {
		t.Errorf("disposition type: got %q", mediaType)
	}
	if want := "data.bin_" + record.StorageKey; params["filename"] != want {
		t.Errorf("disposition filename: expected %q, got %q", want, params["filename"])
	}

	// Downloads are read-only; a second fetch returns the same bytes.
	again := env.do(t, httptest.NewRequest(http.MethodGet, "/files/"+record.StorageKey, nil))
	if again.Code != http.StatusOK || !bytes.Equal(again.Body.Bytes(), content) {
		t.Fatal("repeated download changed result")
	}
}

func TestDownloadUnknownKey(t *testing.T) {
	env := newTestEnv(t)

	key := blobstore.GenerateKey("ghost.txt")
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/files/"+key, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body ErrorResponse
	decodeJSON(t, rec, &body)
	if body.ErrorCode != ErrCodeFileNotFound {
		t.Fatalf("expected error code %d, got %d", ErrCodeFileNotFound, body.ErrorCode)
	}
}

func TestDownloadOrphanedRecord(t *testing.T) {
	env := newTestEnv(t)

	key := blobstore.GenerateKey("vanished.txt")
	err := env.store.CreateFile(context.Background(), &models.FileRecord{
		StorageKey:  key,
		DisplayName: "vanished.txt",
		ContentType: "text/plain",
	})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/files/"+key, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body ErrorResponse
	decodeJSON(t, rec, &body)
	if body.ErrorCode != ErrCodeBlobMissing {
		t.Fatalf("expected error code %d, got %d", ErrCodeBlobMissing, body.ErrorCode)
	}
}

func TestDownloadRejectsTraversalKeys(t *testing.T) {
	env := newTestEnv(t)

	// The db file lives one level above the blob root; if a traversal key
	// ever reached the filesystem it could serve it.
	targets := []string{
		"/files/..%2f..%2fetc%2fpasswd",
		"/files/%2e%2e%2f%2e%2e%2fetc%2fpasswd",
		"/files/..%2ftest.db",
		"/files/..",
		"/files/...",
	}
	for _, target := range targets {
		resp := env.do(t, httptest.NewRequest(http.MethodGet, target, nil))
		if resp.Code != http.StatusBadRequest && resp.Code != http.StatusNotFound {
			t.Errorf("%s: expected 400 or 404, got %d", target, resp.Code)
		}
		if got := resp.Header().Get("Content-Type"); got != "" && got != "application/json" {
			t.Errorf("%s: expected JSON error body, got content type %q", target, got)
		}
	}
}

func TestListFiles(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/files", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var empty ListFilesResponse
	decodeJSON(t, rec, &empty)
	if empty.Count != 0 {
		t.Fatalf("expected empty listing, got count %d", empty.Count)
	}
	if empty.Files == nil {
		t.Fatal("files must be an empty array, not null")
	}

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if r := uploadFile(t, env, name, "text/plain", []byte(name)); r.Code != http.StatusCreated {
			t.Fatalf("upload %q: %d", name, r.Code)
		}
	}

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/files", nil))
	var listed ListFilesResponse
	decodeJSON(t, rec, &listed)
	if listed.Count != 3 || len(listed.Files) != 3 {
		t.Fatalf("expected 3 files, got count=%d len=%d", listed.Count, len(listed.Files))
	}
	for _, f := range listed.Files {
		if blobstore.ValidateKey(f.StorageKey) != nil {
			t.Errorf("listed record has invalid key %q", f.StorageKey)
		}
	}
}
