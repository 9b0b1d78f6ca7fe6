package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preuvio/pkg/testutil"
)

func TestSlidingWindow(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("allows up to the limit inside one window", func(t *testing.T) {
		l := NewSlidingWindow(3, time.Minute)
		ctx := testutil.ContextAt(start)

		for i := 0; i < 3; i++ {
			ok, err := l.Allow(ctx, "203.0.113.7")
			require.NoError(t, err)
			assert.True(t, ok)
		}

		ok, err := l.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("keys are isolated", func(t *testing.T) {
		l := NewSlidingWindow(1, time.Minute)
		ctx := testutil.ContextAt(start)

		ok, _ := l.Allow(ctx, "203.0.113.7")
		assert.True(t, ok)
		ok, _ = l.Allow(ctx, "203.0.113.8")
		assert.True(t, ok)
		ok, _ = l.Allow(ctx, "203.0.113.7")
		assert.False(t, ok)
	})

	t.Run("old requests slide out of the window", func(t *testing.T) {
		l := NewSlidingWindow(2, time.Minute)

		ok, _ := l.Allow(testutil.ContextAt(start), "203.0.113.7")
		assert.True(t, ok)
		ok, _ = l.Allow(testutil.ContextAt(start.Add(30*time.Second)), "203.0.113.7")
		assert.True(t, ok)
		ok, _ = l.Allow(testutil.ContextAt(start.Add(45*time.Second)), "203.0.113.7")
		assert.False(t, ok)

		// The first request is now outside the window; a slot frees up.
		ok, _ = l.Allow(testutil.ContextAt(start.Add(61*time.Second)), "203.0.113.7")
		assert.True(t, ok)
	})
}
