package testutil

import (
	"context"
	"time"

	"preuvio/pkg/requestcontext"
)

// ContextAt returns a context pinned to a fixed clock so expiry arithmetic in
// services is deterministic under test.
func ContextAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// Midnight truncates t to midnight UTC, matching the sweep's day granularity.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
