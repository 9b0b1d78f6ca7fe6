// Package ratelimit throttles the public evidence intake per source address.
package ratelimit

import (
	"context"
)

// Limiter decides whether a request identified by key may proceed. Allow
// returns false when the key has exhausted its window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
