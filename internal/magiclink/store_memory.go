package magiclink

import (
	"context"
	"sync"
	"time"

	"preuvio/pkg/domain"
	"preuvio/pkg/platform/sentinel"
)

// InMemoryStore keeps links keyed by id with a digest index, for development
// and unit tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	links  map[domain.LinkID]MagicLink
	byHash map[string]domain.LinkID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		links:  make(map[domain.LinkID]MagicLink),
		byHash: make(map[string]domain.LinkID),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, link MagicLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byHash[link.TokenHash]; exists {
		return sentinel.ErrConflict
	}
	s.links[link.ID] = link
	s.byHash[link.TokenHash] = link.ID
	return nil
}

func (s *InMemoryStore) FindByHash(ctx context.Context, tokenHash string) (MagicLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[tokenHash]
	if !ok {
		return MagicLink{}, sentinel.ErrNotFound
	}
	return s.links[id], nil
}

func (s *InMemoryStore) RevokeActiveForProfile(ctx context.Context, profileID domain.ProfileID, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	revoked := 0
	for id, link := range s.links {
		if link.ProfileID == profileID && link.RevokedAt == nil {
			t := at
			link.RevokedAt = &t
			s.links[id] = link
			revoked++
		}
	}
	return revoked, nil
}

func (s *InMemoryStore) MarkUsed(ctx context.Context, id domain.LinkID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if link.UsedAt == nil {
		t := at
		link.UsedAt = &t
		s.links[id] = link
	}
	return nil
}
