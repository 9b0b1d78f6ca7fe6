package audit

import (
	"context"
	"sync"

	"preuvio/pkg/domain"
)

// InMemoryStore is an append-only slice for development and unit tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *InMemoryStore) ListByPlatform(ctx context.Context, platformID domain.PlatformID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.PlatformID == platformID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every entry in append order; test helper.
func (s *InMemoryStore) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
