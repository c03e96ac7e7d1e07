package models

import "time"

// FileRecord is the persisted metadata for one uploaded file.
// Records are append-only: written once at upload time and never updated.
// StorageKey is the server-generated identifier naming both the metadata
// row and the blob on disk.
type FileRecord struct {
	StorageKey  string    `json:"storageKey"`
	DisplayName string    `json:"displayName"`
	ContentType string    `json:"contentType"`
	CreatedAt   time.Time `json:"createdAt"`
}
