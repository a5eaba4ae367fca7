// Package mediastore stores uploaded gallery media on disk, namespaced by
// gallery key with a collision-resistant filename suffix.
package mediastore

import (
	"context"
	"errors"
	"io"
)

// ErrMediaNotFound is returned when a stored file does not exist.
var ErrMediaNotFound = errors.New("media not found")

// MediaStore is the storage contract for uploaded gallery media.
type MediaStore interface {
	// Put stores the file and returns its store-relative path
	// ("<galleryKey>/<name>"). The name is generated; uploads can never
	// overwrite each other.
	Put(ctx context.Context, galleryKey, filename string, r io.Reader) (string, error)

	// Open opens a stored file for reading.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes a stored file. Deleting an absent file is a no-op.
	Delete(ctx context.Context, path string) error
}
