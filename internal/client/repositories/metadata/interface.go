// Package metadata stores small binary values under string keys in the
// local database. The client keeps its persisted session and profile cache
// here.
package metadata

import (
	"context"
	"time"
)

// Item describes a stored key without its value.
type Item struct {
	Key       string
	Size      int
	UpdatedAt time.Time
}

// Repository is a key/value store. Get returns (nil, nil) for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Items lists stored keys ordered by key.
	Items(ctx context.Context) ([]Item, error)
}
