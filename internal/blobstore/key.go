package blobstore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	// keyEntropyLength is the hex length of the random identifier part:
	// 16 random bytes, so collisions are negligible without coordination.
	keyEntropyLength = 32

	maxExtensionLength = 16
)

// ErrInvalidKey is returned when a key is not a possible generator output.
var ErrInvalidKey = errors.New("invalid storage key")

// GenerateKey returns a new storage key for the given display name: a
// 128-bit random identifier in lowercase hex, plus the display name's
// extension when it survives sanitization. The extension is kept only so
// browsers and content-type guessing stay friendly; it carries no meaning.
func GenerateKey(displayName string) string {
	id := uuid.New()
	key := hex.EncodeToString(id[:])
	if ext := sanitizeExtension(displayName); ext != "" {
		key += "." + ext
	}
	return key
}

// sanitizeExtension extracts the suffix after the last dot and keeps it only
// if it is short and strictly alphanumeric. Anything else is dropped rather
// than escaped, so generated keys stay inside the key alphabet.
func sanitizeExtension(displayName string) string {
	ext := strings.TrimPrefix(filepath.Ext(displayName), ".")
	if ext == "" || len(ext) > maxExtensionLength {
		return ""
	}
	for _, r := range ext {
		if !isAlphanumeric(r) {
			return ""
		}
	}
	return ext
}

// ValidateKey checks that key is a possible GenerateKey output: 32 lowercase
// hex characters, optionally followed by one dot and an alphanumeric
// extension. Everything else is rejected before any filesystem access, so
// path traversal is impossible by construction.
func ValidateKey(key string) error {
	entropy := key
	if dot := strings.IndexByte(key, '.'); dot >= 0 {
		entropy = key[:dot]
		ext := key[dot+1:]
		if ext == "" || len(ext) > maxExtensionLength {
			return fmt.Errorf("bad extension: %w", ErrInvalidKey)
		}
		for _, r := range ext {
			if !isAlphanumeric(r) {
				return fmt.Errorf("bad extension: %w", ErrInvalidKey)
			}
		}
	}

	if len(entropy) != keyEntropyLength {
		return fmt.Errorf("bad identifier length: %w", ErrInvalidKey)
	}
	for _, r := range entropy {
		if !isHexLower(r) {
			return fmt.Errorf("bad identifier: %w", ErrInvalidKey)
		}
	}
	return nil
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isHexLower(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
}
