package evidence

import (
	"context"
	"sort"
	"sync"

	"preuvio/pkg/domain"
	"preuvio/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	evidences map[domain.EvidenceID]Evidence
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{evidences: make(map[domain.EvidenceID]Evidence)}
}

func (s *InMemoryStore) Create(ctx context.Context, e Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.evidences[e.ID]; exists {
		return sentinel.ErrConflict
	}
	s.evidences[e.ID] = e
	return nil
}

func (s *InMemoryStore) FindByID(ctx context.Context, id domain.EvidenceID) (Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.evidences[id]
	if !ok {
		return Evidence{}, sentinel.ErrNotFound
	}
	return e, nil
}

func (s *InMemoryStore) ListByProfile(ctx context.Context, profileID domain.ProfileID) ([]Evidence, error) {
	return s.list(func(e Evidence) bool { return e.ProfileID == profileID }), nil
}

func (s *InMemoryStore) ListByPlatform(ctx context.Context, platformID domain.PlatformID) ([]Evidence, error) {
	return s.list(func(e Evidence) bool { return e.PlatformID == platformID }), nil
}

func (s *InMemoryStore) ListApprovedWithExpiry(ctx context.Context) ([]Evidence, error) {
	return s.list(func(e Evidence) bool {
		return e.ReviewStatus == ReviewApproved && e.ExpiresAt != nil
	}), nil
}

func (s *InMemoryStore) list(keep func(Evidence) bool) []Evidence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Evidence
	for _, e := range s.evidences {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *InMemoryStore) UpdateReview(ctx context.Context, id domain.EvidenceID, u ReviewUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.evidences[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	t := u.ReviewedAt
	e.Status = u.Status
	e.ReviewStatus = u.ReviewStatus
	e.ReviewedBy = u.ReviewedBy
	e.ReviewedAt = &t
	e.RejectReason = u.RejectReason
	e.UpdatedAt = u.ReviewedAt
	s.evidences[id] = e
	return nil
}
