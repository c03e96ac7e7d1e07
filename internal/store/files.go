package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"filedrop/internal/models"
)

const fileColumns = "storage_key, display_name, content_type, created_at"

// ErrDuplicateKey is returned when a storage key is already taken. The
// primary key on files.storage_key is the only serialization point across
// concurrent uploads; this sentinel lets callers tell a lost race apart
// from other store failures.
var ErrDuplicateKey = errors.New("storage key already exists")

// CreateFile inserts one file record. Records are append-only; there is no
// update path and CreatedAt is fixed at insertion.
func (s *Store) CreateFile(ctx context.Context, record *models.FileRecord) error {
	if record == nil {
		return fmt.Errorf("file record is required")
	}
	if strings.TrimSpace(record.StorageKey) == "" {
		return fmt.Errorf("storage key is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (storage_key, display_name, content_type, created_at)
		VALUES (?, ?, ?, ?)
	`, record.StorageKey, record.DisplayName, record.ContentType, formatTime(record.CreatedAt))
	if err != nil {
		if isUniqueConstraint(err) {
			return fmt.Errorf("file %q: %w", record.StorageKey, ErrDuplicateKey)
		}
		return fmt.Errorf("create file record: %w", err)
	}
	return nil
}

// GetFile returns one file record by storage key, or nil when absent.
func (s *Store) GetFile(ctx context.Context, key string) (*models.FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE storage_key = ?`, key)
	return scanFile(row)
}

// ListFiles lists all file records, newest first.
func (s *Store) ListFiles(ctx context.Context) ([]models.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+fileColumns+` FROM files ORDER BY created_at DESC, storage_key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.FileRecord{}
	for rows.Next() {
		record, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		if record == nil {
			continue
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func scanFile(scanner interface {
	Scan(dest ...any) error
}) (*models.FileRecord, error) {
	record := models.FileRecord{}
	var createdAt string

	err := scanner.Scan(&record.StorageKey, &record.DisplayName, &record.ContentType, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	parsedCreated, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	record.CreatedAt = parsedCreated

	return &record, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed: files.storage_key")
}
