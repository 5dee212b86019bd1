// Package storage is the file storage abstraction used for payment proofs.
//
// Two drivers are available:
//   - "local": a directory on the local filesystem (default)
//   - "s3":    S3-compatible object storage (AWS S3, MinIO, R2, Spaces)
//
//	storage.Connect()
//	err := storage.Default().Put(ctx, "payments/proof-1.png", r, size, "image/png")
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned by Open when no object exists at the path.
var ErrNotFound = errors.New("storage: object not found")

// ErrInvalidPath rejects absolute paths and paths escaping the disk root.
var ErrInvalidPath = errors.New("storage: invalid path")

// Disk is the driver interface.
type Disk interface {
	// Put stores size bytes read from r at p. size may be -1 when unknown.
	Put(ctx context.Context, p string, r io.Reader, size int64, contentType string) error

	// Open returns a reader for the object at p. Caller must close it.
	Open(ctx context.Context, p string) (io.ReadCloser, error)

	// Exists reports whether an object exists at p.
	Exists(ctx context.Context, p string) (bool, error)

	// Delete removes p. Deleting a missing object is not an error.
	Delete(ctx context.Context, p string) error

	// URL returns the public URL for p.
	URL(p string) string
}

// clean normalises a slash-separated object path and rejects traversal.
func clean(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", ErrInvalidPath
	}
	c := path.Clean(p)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", ErrInvalidPath
	}
	return c, nil
}
