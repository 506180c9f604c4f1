// Package storage provides key-addressed blob storage. The filesystem
// implementation keeps blobs under a base directory, one file per key.
package storage

import (
	"context"
	"errors"

	"github.com/JaimeStill/book-search/pkg/lifecycle"
)

var (
	ErrNotFound         = errors.New("storage: key not found")
	ErrPermissionDenied = errors.New("storage: permission denied")
	// ErrInvalidKey covers empty keys, absolute keys and path traversal.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// System stores and retrieves blobs by key.
type System interface {
	// Store writes data at key, replacing any existing blob atomically.
	Store(ctx context.Context, key string, data []byte) error

	// Retrieve returns the blob at key or ErrNotFound.
	Retrieve(ctx context.Context, key string) ([]byte, error)

	// Delete removes the blob at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Validate reports whether key exists.
	Validate(ctx context.Context, key string) (bool, error)

	// Path resolves key to its location on disk.
	Path(ctx context.Context, key string) (string, error)

	// Start registers the storage startup hook.
	Start(lc *lifecycle.Coordinator) error
}
