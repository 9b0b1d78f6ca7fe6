package ratelimit

import (
	"context"
	"fmt"
	"time"

	platformredis "preuvio/internal/platform/redis"
)

// FixedWindow counts requests in Redis with INCR plus a window-length TTL so
// limits hold across replicas. The window is fixed rather than sliding; a
// burst straddling the boundary can briefly see up to twice the limit, which
// is acceptable for abuse throttling.
type FixedWindow struct {
	client *platformredis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewFixedWindow(client *platformredis.Client, limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:intake:",
	}
}

func (l *FixedWindow) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.prefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("increment rate counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("set rate counter ttl: %w", err)
		}
	}
	return count <= int64(l.limit), nil
}
