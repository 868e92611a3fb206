// Package storage indexes where each owner's encrypted contacts live. It
// stores contact keys and blob ids only, never names or addresses.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no ref exists for an owner and key.
var ErrNotFound = errors.New("storage: not found")

// ContactRef points one owner's contact key at its current ciphertext blob.
type ContactRef struct {
	Owner     string
	Key       string
	BlobID    string
	UpdatedAt time.Time
}

// ContactIndex maps (owner, contact key) to a blob id.
type ContactIndex interface {
	// PutRef inserts or replaces the ref for (ref.Owner, ref.Key).
	PutRef(ctx context.Context, ref ContactRef) error
	GetRef(ctx context.Context, owner, key string) (ContactRef, error)
	// ListRefs returns the owner's refs ordered by key.
	ListRefs(ctx context.Context, owner string) ([]ContactRef, error)
	DeleteRef(ctx context.Context, owner, key string) error
	Close() error
}
