package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrKeyExists is returned by Put when a blob already exists under the
	// key. Callers regenerate the key and retry instead of overwriting.
	ErrKeyExists = errors.New("blob key already exists")

	// ErrNotFound is returned when no blob exists under a key.
	ErrNotFound = errors.New("blob not found")
)

// Local stores one blob per storage key as a flat file under root.
// Keys are restricted to the generator alphabet, so the layout needs no
// sharding and no path normalization.
type Local struct {
	root string
}

// NewLocal creates a local blob store rooted at root.
func NewLocal(root string) (*Local, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// Put streams r into a new file at root/key. The file is created with
// O_EXCL so a colliding key fails with ErrKeyExists rather than silently
// overwriting; no bytes are consumed from r in that case. Any failure
// mid-copy removes the partial file before returning, so a key is never
// addressable unless its content was fully written.
func (l *Local) Put(ctx context.Context, key string, r io.Reader) error {
	if l == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if r == nil {
		return fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := l.Path(key)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("blob %q: %w", key, ErrKeyExists)
		}
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write blob %q: %w", key, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("flush blob %q: %w", key, err)
	}
	return nil
}

// Open returns a reader for the blob content. The caller must close it.
func (l *Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if l == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.Path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("blob %q: %w", key, ErrNotFound)
		}
		return nil, err
	}
	return f, nil
}

// Stat reports the blob's size, or ErrNotFound.
func (l *Local) Stat(ctx context.Context, key string) (BlobInfo, error) {
	var zero BlobInfo
	if l == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	path, err := l.Path(key)
	if err != nil {
		return zero, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return zero, fmt.Errorf("blob %q: %w", key, ErrNotFound)
		}
		return zero, err
	}
	return BlobInfo{SizeBytes: info.Size(), ModTime: info.ModTime()}, nil
}

// Delete removes a blob. Missing files are ignored.
func (l *Local) Delete(ctx context.Context, key string) error {
	if l == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := l.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Keys lists all blob keys under the root. Entries that are not possible
// generator outputs (stray files, subdirectories) are skipped.
func (l *Local) Keys(ctx context.Context) ([]string, error) {
	if l == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if ValidateKey(name) != nil {
			continue
		}
		keys = append(keys, name)
	}
	return keys, nil
}

// Path validates key against the generator alphabet and returns the
// filesystem location root/key. Validation happens before any join, so
// client input can never name a path outside the root.
func (l *Local) Path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(l.root, key), nil
}
