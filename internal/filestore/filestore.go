// Package filestore stores prescription attachments and hands back a
// retrievable URL. Backends are selected by environment, mirroring the
// document store: in-memory for tests, local filesystem for development,
// S3 for production. A deployment without storage configured still accepts
// submissions and records the explicit placeholder token instead of a URL.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"
)

// Driver identifies a concrete attachment backend.
type Driver string

const (
	DriverMemory       Driver = "memory"
	DriverFilesystem   Driver = "fs"
	DriverS3           Driver = "s3"
	DriverUnconfigured Driver = "unconfigured"
)

// NotConfiguredToken is recorded in place of a URL when no storage backend
// is configured. Consumers treat it as "attachment noted, not retrievable".
const NotConfiguredToken = "STORAGE_NOT_CONFIGURED"

// MaxUploadBytes is the attachment size ceiling.
const MaxUploadBytes = 10 << 20

var (
	ErrTooLarge        = errors.New("filestore: file too large (max 10MB)")
	ErrUnsupportedType = errors.New("filestore: only JPG, PNG, and PDF allowed")
	ErrNotFound        = errors.New("filestore: object not found")
)

var allowedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// Store persists attachment blobs under opaque keys.
type Store interface {
	// Save writes the blob and returns its retrievable URL, or
	// NotConfiguredToken when the backend cannot store it.
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	// Open streams a stored blob back, or ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Driver() Driver
}

// ValidateUpload enforces the size ceiling and accepted content types
// before any bytes reach a backend.
func ValidateUpload(contentType string, size int64) error {
	if size > MaxUploadBytes {
		return ErrTooLarge
	}
	if !allowedTypes[contentType] {
		return fmt.Errorf("%w, got %s", ErrUnsupportedType, contentType)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// ObjectKey derives the storage key for an uploaded file: a millisecond
// timestamp prefix keeps keys unique, and the original filename survives
// with unsafe characters replaced.
func ObjectKey(now time.Time, filename string) string {
	sanitized := unsafeChars.ReplaceAllString(filename, "_")
	return fmt.Sprintf("prescriptions/%d_%s", now.UnixMilli(), sanitized)
}

// Unconfigured is the stub backend for deployments without storage. Save
// discards the blob and returns the placeholder token.
type Unconfigured struct{}

func (Unconfigured) Save(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	return NotConfiguredToken, nil
}

func (Unconfigured) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, ErrNotFound
}

func (Unconfigured) Driver() Driver { return DriverUnconfigured }
