package objectstore

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// InMemoryStore holds objects in a map. Tests use PutCount to assert how many
// uploads reached storage.
type InMemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	puts    int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{objects: make(map[string][]byte)}
}

func (s *InMemoryStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read object body: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.puts++
	return nil
}

func (s *InMemoryStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[key]; !ok {
		return "", fmt.Errorf("object %q not found", key)
	}
	return fmt.Sprintf("memory://%s?expires_in=%d", key, int(expiry.Seconds())), nil
}

func (s *InMemoryStore) PutCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}

func (s *InMemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	return data, ok
}
