package snapshot

import (
	"context"
	"errors"
	"time"
)

// Store defines the interface for snapshot persistence backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save persists data under id until expiresAt, overwriting any
	// previous snapshot. A zero expiresAt never expires.
	Save(ctx context.Context, id string, data []byte, expiresAt time.Time) error

	// Load retrieves a snapshot.
	// Returns (nil, nil) if it doesn't exist or has expired.
	Load(ctx context.Context, id string) ([]byte, error)

	// Delete removes a snapshot. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}

// ErrStoreClosed is returned when operations are attempted on a closed store.
var ErrStoreClosed = errors.New("snapshot: store is closed")
