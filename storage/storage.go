package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo contains metadata about a stored object.
type FileInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// Storage defines the object storage operations the workflow needs.
// Missing objects are reported as NOT_FOUND AppErrors, every other failure
// as STORAGE_ERROR.
type Storage interface {
	// Upload writes data from reader to the given path, replacing any object there.
	Upload(ctx context.Context, path string, reader io.Reader) error

	// Download returns a reader for the object at the given path.
	// The caller is responsible for closing the returned ReadCloser.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Stat returns the object's metadata without reading it.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// Delete removes the object at the given path.
	// Returns nil if the object does not exist.
	Delete(ctx context.Context, path string) error

	// Exists checks whether an object exists at the given path.
	Exists(ctx context.Context, path string) (bool, error)
}
