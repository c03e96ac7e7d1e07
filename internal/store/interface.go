package store

import (
	"context"

	"filedrop/internal/models"
)

// FileStore is the metadata persistence surface used by the upload and
// retrieval services.
type FileStore interface {
	CreateFile(ctx context.Context, record *models.FileRecord) error
	GetFile(ctx context.Context, key string) (*models.FileRecord, error)
	ListFiles(ctx context.Context) ([]models.FileRecord, error)
}

var _ FileStore = (*Store)(nil)
