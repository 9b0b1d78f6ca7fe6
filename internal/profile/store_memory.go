package profile

import (
	"context"
	"sort"
	"sync"
	"time"

	"preuvio/pkg/domain"
	"preuvio/pkg/platform/sentinel"
)

// InMemoryStore keeps profiles in a map for development and unit tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[domain.ProfileID]*Profile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[domain.ProfileID]*Profile)}
}

func (s *InMemoryStore) Create(ctx context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *p
	s.profiles[p.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(ctx context.Context, id domain.ProfileID) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) ListByPlatform(ctx context.Context, platformID domain.PlatformID) ([]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Profile
	for _, p := range s.profiles {
		if p.PlatformID == platformID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) UpdateStatus(ctx context.Context, id domain.ProfileID, status Status, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = now
	return nil
}
