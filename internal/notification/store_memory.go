package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"preuvio/pkg/domain"
	"preuvio/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[domain.NotificationID]QueueEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[domain.NotificationID]QueueEntry)}
}

func (s *InMemoryStore) Create(ctx context.Context, e QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[e.ID]; exists {
		return sentinel.ErrConflict
	}
	s.entries[e.ID] = e
	return nil
}

func (s *InMemoryStore) FindByID(ctx context.Context, id domain.NotificationID) (QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return QueueEntry{}, sentinel.ErrNotFound
	}
	return e, nil
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func (s *InMemoryStore) ExistsForDay(ctx context.Context, evidenceID domain.EvidenceID, typ Type, at time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.EvidenceID == evidenceID && e.Type == typ && sameUTCDay(e.CreatedAt, at) {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) ListPending(ctx context.Context, limit int) ([]QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []QueueEntry
	for _, e := range s.entries {
		if e.Status == StatusPending && e.Recipient != "" {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) MarkSent(ctx context.Context, id domain.NotificationID, at time.Time, providerMessageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	t := at
	e.Status = StatusSent
	e.SentAt = &t
	e.ProviderMessageID = providerMessageID
	e.Error = ""
	s.entries[id] = e
	return nil
}

func (s *InMemoryStore) MarkFailed(ctx context.Context, id domain.NotificationID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.Status = StatusFailed
	e.Error = reason
	s.entries[id] = e
	return nil
}

func (s *InMemoryStore) Reclassify(ctx context.Context, id domain.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if e.Status != StatusFailed {
		return sentinel.ErrInvalidState
	}
	e.Status = StatusPending
	e.Error = ""
	s.entries[id] = e
	return nil
}

// All returns every entry; test helper.
func (s *InMemoryStore) All() []QueueEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]QueueEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
