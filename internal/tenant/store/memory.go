package store

import (
	"context"
	"sync"

	"preuvio/internal/tenant/models"
	"preuvio/pkg/domain"
	"preuvio/pkg/platform/sentinel"
)

// InMemory keeps platforms in a map for development and unit tests.
type InMemory struct {
	mu        sync.RWMutex
	platforms map[domain.PlatformID]*models.Platform
}

func NewInMemory() *InMemory {
	return &InMemory{platforms: make(map[domain.PlatformID]*models.Platform)}
}

func (s *InMemory) Create(ctx context.Context, p *models.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.platforms {
		if existing.Slug == p.Slug {
			return sentinel.ErrConflict
		}
	}
	cp := *p
	s.platforms[p.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id domain.PlatformID) (*models.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.platforms[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) FindBySlug(ctx context.Context, slug string) (*models.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.platforms {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Update(ctx context.Context, p *models.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.platforms[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *p
	s.platforms[p.ID] = &cp
	return nil
}
