package blobstore

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes one stored blob.
type BlobInfo struct {
	SizeBytes int64
	ModTime   time.Time
}

// BlobStore is the byte-storage abstraction used by the upload and
// retrieval services. Keys must come from GenerateKey; implementations
// reject anything else.
type BlobStore interface {
	// Put streams r into a new blob under key. It must fail with
	// ErrKeyExists when key is already taken, and must not leave a
	// partial blob behind on error.
	Put(ctx context.Context, key string, r io.Reader) error
	// Open returns a reader for the blob content.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Stat reports whether the blob exists and how large it is.
	Stat(ctx context.Context, key string) (BlobInfo, error)
	// Delete removes a blob. Missing blobs are ignored.
	Delete(ctx context.Context, key string) error
	// Keys lists all stored blob keys.
	Keys(ctx context.Context) ([]string, error)
	// Path returns the filesystem location backing key.
	Path(key string) (string, error)
}
