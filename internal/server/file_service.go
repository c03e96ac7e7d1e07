package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"filedrop/internal/blobstore"
	"filedrop/internal/models"
	"filedrop/internal/store"
)

const (
	// keyGenerateAttempts bounds key regeneration when a freshly generated
	// key collides with an existing blob. With 128 bits of entropy a single
	// collision is already astronomically unlikely; three misses in a row
	// means something is broken, not unlucky.
	keyGenerateAttempts = 3

	fallbackContentType = "application/octet-stream"
)

// FileService coordinates key generation, blob writes, and metadata
// persistence for uploads, and resolves storage keys back to content for
// downloads. It holds no state of its own; every call is an independent
// request-scoped operation.
type FileService struct {
	files  store.FileStore
	blobs  blobstore.BlobStore
	logger *slog.Logger

	// sweepGrace is the minimum blob age before a sweep will treat an
	// unrecorded blob as orphaned rather than in flight.
	sweepGrace time.Duration
}

// FileDescriptor describes resolved file content ready for serving.
type FileDescriptor struct {
	Path        string
	SizeBytes   int64
	ContentType string
	Filename    string
}

// NewFileService constructs a FileService.
func NewFileService(files store.FileStore, blobs blobstore.BlobStore, logger *slog.Logger) *FileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileService{files: files, blobs: blobs, logger: logger, sweepGrace: sweepGracePeriod}
}

// Upload stores content under a fresh storage key and commits the metadata
// record. Bytes are written before metadata on purpose: a crash in between
// leaves an orphaned blob, which the sweep can reclaim, rather than a record
// pointing at nothing, which would read as data loss.
func (s *FileService) Upload(ctx context.Context, displayName, contentType string, content io.Reader) (models.FileRecord, error) {
	var zero models.FileRecord
	if s == nil || s.files == nil || s.blobs == nil {
		return zero, internalError(fmt.Errorf("file service is not configured"))
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return zero, badRequestCode(fmt.Errorf("filename is required"), ErrCodeMissingFilename)
	}
	if content == nil {
		return zero, badRequestCode(fmt.Errorf("content is required"), ErrCodeMissingRequired)
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = fallbackContentType
	}

	key, err := s.writeBlob(ctx, displayName, content)
	if err != nil {
		return zero, err
	}

	record := &models.FileRecord{
		StorageKey:  key,
		DisplayName: displayName,
		ContentType: contentType,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.files.CreateFile(ctx, record); err != nil {
		// Keep "record exists iff blob exists": the blob was written but the
		// metadata commit failed, so remove the blob before surfacing.
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Error("orphaned blob after failed metadata commit; needs manual cleanup",
				"storage_key", key, "error", delErr)
		}
		if errors.Is(err, store.ErrDuplicateKey) {
			// A duplicate here means the key was taken between the blob write
			// and the insert. Internal, never exposed as a client conflict.
			return zero, internalError(fmt.Errorf("storage key raced an existing record: %w", err))
		}
		return zero, storeFailure(err)
	}

	return *record, nil
}

// writeBlob generates a key and streams content to storage, regenerating on
// key collision. A collision fails before any bytes are consumed from
// content, so retrying with the same reader is safe.
func (s *FileService) writeBlob(ctx context.Context, displayName string, content io.Reader) (string, error) {
	for attempt := 1; attempt <= keyGenerateAttempts; attempt++ {
		key := blobstore.GenerateKey(displayName)
		err := s.blobs.Put(ctx, key, content)
		if err == nil {
			return key, nil
		}
		if errors.Is(err, blobstore.ErrKeyExists) {
			s.logger.Warn("storage key collision, regenerating", "storage_key", key, "attempt", attempt)
			continue
		}
		return "", storageFailure(err)
	}
	return "", makeAPIError(500, "internal", ErrCodeKeySpaceExhausted,
		fmt.Errorf("unable to allocate a storage key after %d attempts", keyGenerateAttempts))
}

// Resolve maps a requested storage key to servable content. The key is
// checked against the generator alphabet before any lookup or filesystem
// access; a record whose blob is gone is reported distinctly from an
// unknown key so orphaned records are visible in logs.
func (s *FileService) Resolve(ctx context.Context, key string) (FileDescriptor, error) {
	var zero FileDescriptor
	if s == nil || s.files == nil || s.blobs == nil {
		return zero, internalError(fmt.Errorf("file service is not configured"))
	}

	if err := blobstore.ValidateKey(key); err != nil {
		return zero, badRequestCode(err, ErrCodeInvalidKey)
	}

	record, err := s.files.GetFile(ctx, key)
	if err != nil {
		return zero, storeFailure(err)
	}
	if record == nil {
		return zero, notFoundCode(fmt.Errorf("file not found"), ErrCodeFileNotFound)
	}

	info, err := s.blobs.Stat(ctx, key)
	if errors.Is(err, blobstore.ErrNotFound) {
		s.logger.Warn("metadata record has no backing blob", "storage_key", key)
		return zero, notFoundCode(fmt.Errorf("file content missing from storage"), ErrCodeBlobMissing)
	}
	if err != nil {
		return zero, storageFailure(err)
	}

	path, err := s.blobs.Path(key)
	if err != nil {
		return zero, storageFailure(err)
	}

	contentType := strings.TrimSpace(record.ContentType)
	if contentType == "" {
		contentType = fallbackContentType
	}

	return FileDescriptor{
		Path:        path,
		SizeBytes:   info.SizeBytes,
		ContentType: contentType,
		Filename:    record.DisplayName + "_" + record.StorageKey,
	}, nil
}

// OpenContent resolves a key and opens its blob for streaming. The caller
// must close the reader on every exit path.
func (s *FileService) OpenContent(ctx context.Context, key string) (FileDescriptor, io.ReadCloser, error) {
	desc, err := s.Resolve(ctx, key)
	if err != nil {
		return desc, nil, err
	}

	rc, err := s.blobs.Open(ctx, key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return desc, nil, notFoundCode(fmt.Errorf("file content missing from storage"), ErrCodeBlobMissing)
	}
	if err != nil {
		return desc, nil, storageFailure(err)
	}
	return desc, rc, nil
}

// List returns all file records.
func (s *FileService) List(ctx context.Context) ([]models.FileRecord, error) {
	if s == nil || s.files == nil {
		return nil, internalError(fmt.Errorf("file service is not configured"))
	}
	records, err := s.files.ListFiles(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	if records == nil {
		records = []models.FileRecord{}
	}
	return records, nil
}
