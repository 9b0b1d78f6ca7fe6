package ratelimit

import (
	"context"
	"sync"
	"time"

	"preuvio/pkg/requestcontext"
)

// SlidingWindow counts request timestamps per key and prunes entries older
// than the window on each check. Single-process only; deployments with more
// than one replica should use the Redis limiter.
type SlidingWindow struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string][]time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:   limit,
		window:  window,
		buckets: make(map[string][]time.Time),
	}
}

func (l *SlidingWindow) Allow(ctx context.Context, key string) (bool, error) {
	now := requestcontext.Now(ctx)
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := l.buckets[key]
	kept := bucket[:0]
	for _, t := range bucket {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.buckets[key] = kept
		return false, nil
	}

	l.buckets[key] = append(kept, now)
	return true, nil
}
