package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a key has no object.
var ErrNotFound = errors.New("object not found")

// Object is a downloaded image. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// ObjectStorage is where original image bytes live.
type ObjectStorage interface {
	// Put stores an object under key
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Get opens an object; ErrNotFound if the key is missing
	Get(ctx context.Context, key string) (*Object, error)

	// URL returns a public URL for the object, or "" when the store has none
	URL(key string) string

	// Delete removes an object
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)
}
