// Package blob stores opaque ciphertext and hands back an identifier.
// Nothing in this package ever sees plaintext.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("blob: not found")

// Store puts and gets opaque bytes.
type Store interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
}

// Memory is an in-process Store keyed by content hash.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Put stores a copy of data.
func (m *Memory) Put(_ context.Context, data []byte) (string, error) {
	id := contentID(data)
	m.mu.Lock()
	m.blobs[id] = append([]byte(nil), data...)
	m.mu.Unlock()
	return id, nil
}

// Get returns a copy of the blob.
func (m *Memory) Get(_ context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func contentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
