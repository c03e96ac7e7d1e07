package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"filedrop/internal/blobstore"
)

// sweepGracePeriod protects uploads that are between their blob write and
// their metadata commit: a blob younger than this is treated as in flight,
// not orphaned. Deleting it would let the upload's metadata commit succeed
// against bytes that no longer exist.
const sweepGracePeriod = 5 * time.Minute

// SweepResult reports one consistency sweep between the storage directory
// and the metadata table.
type SweepResult struct {
	OrphanedBlobs   []string `json:"orphaned_blobs"`
	OrphanedRecords []string `json:"orphaned_records"`
	DeletedCount    int      `json:"deleted_count"`
	FailedCount     int      `json:"failed_count"`
	ReclaimedBytes  int64    `json:"reclaimed_bytes"`
	DryRun          bool     `json:"dry_run"`
}

// Sweep compares blobs on disk against metadata records. Blobs without a
// record are leftovers from a crash between the blob write and the metadata
// commit; with apply they are deleted. Records without a blob are only ever
// reported: deleting metadata would hide what already looks like data loss
// to clients.
//
// The sweep runs against live traffic, so two guards keep it from eating a
// concurrent upload: blobs inside the grace period are skipped entirely,
// and each deletion re-checks the metadata store right before removing the
// blob in case the record landed after the listing snapshot.
func (s *FileService) Sweep(ctx context.Context, apply bool) (SweepResult, error) {
	result := SweepResult{
		OrphanedBlobs:   []string{},
		OrphanedRecords: []string{},
		DryRun:          !apply,
	}
	if s == nil || s.files == nil || s.blobs == nil {
		return result, internalError(fmt.Errorf("file service is not configured"))
	}

	records, err := s.files.ListFiles(ctx)
	if err != nil {
		return result, storeFailure(err)
	}
	keys, err := s.blobs.Keys(ctx)
	if err != nil {
		return result, storageFailure(err)
	}

	recorded := make(map[string]struct{}, len(records))
	for _, record := range records {
		recorded[record.StorageKey] = struct{}{}
	}
	onDisk := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		onDisk[key] = struct{}{}
	}

	for _, record := range records {
		if _, ok := onDisk[record.StorageKey]; !ok {
			s.logger.Warn("sweep: metadata record has no backing blob", "storage_key", record.StorageKey)
			result.OrphanedRecords = append(result.OrphanedRecords, record.StorageKey)
		}
	}

	for _, key := range keys {
		if _, ok := recorded[key]; ok {
			continue
		}

		info, err := s.blobs.Stat(ctx, key)
		if errors.Is(err, blobstore.ErrNotFound) {
			continue
		}
		if err != nil {
			result.FailedCount++
			continue
		}
		if time.Since(info.ModTime) < s.sweepGrace {
			// Almost certainly an upload whose metadata commit has not
			// happened yet. A later sweep will catch it if it really is
			// orphaned.
			continue
		}

		if !apply {
			result.OrphanedBlobs = append(result.OrphanedBlobs, key)
			result.ReclaimedBytes += info.SizeBytes
			continue
		}

		// The record may have been committed after the listing snapshot.
		record, err := s.files.GetFile(ctx, key)
		if err != nil {
			result.FailedCount++
			continue
		}
		if record != nil {
			continue
		}

		result.OrphanedBlobs = append(result.OrphanedBlobs, key)
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("sweep: delete orphaned blob", "storage_key", key, "error", err)
			result.FailedCount++
			continue
		}
		result.DeletedCount++
		result.ReclaimedBytes += info.SizeBytes
	}

	return result, nil
}
