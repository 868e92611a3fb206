package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tjfontaine/sui-agent/internal/storage"
)

type refKey struct {
	owner string
	key   string
}

// Store is an in-memory ContactIndex.
type Store struct {
	mu   sync.RWMutex
	refs map[refKey]storage.ContactRef
}

var _ storage.ContactIndex = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{
		refs: make(map[refKey]storage.ContactRef),
	}
}

func (s *Store) PutRef(ctx context.Context, ref storage.ContactRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref.UpdatedAt = time.Now()
	s.refs[refKey{ref.Owner, ref.Key}] = ref
	return nil
}

func (s *Store) GetRef(ctx context.Context, owner, key string) (storage.ContactRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, ok := s.refs[refKey{owner, key}]
	if !ok {
		return storage.ContactRef{}, storage.ErrNotFound
	}
	return ref, nil
}

func (s *Store) ListRefs(ctx context.Context, owner string) ([]storage.ContactRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.ContactRef
	for k, ref := range s.refs {
		if k.owner == owner {
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) DeleteRef(ctx context.Context, owner, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := refKey{owner, key}
	if _, ok := s.refs[k]; !ok {
		return storage.ErrNotFound
	}
	delete(s.refs, k)
	return nil
}

func (s *Store) Close() error {
	return nil
}
