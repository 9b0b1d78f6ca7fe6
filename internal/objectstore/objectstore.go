// Package objectstore abstracts binary document storage. Production uses an
// S3-compatible bucket; the in-memory variant backs development and tests.
package objectstore

import (
	"context"
	"io"
	"time"
)

// PresignTTL is how long a generated download URL stays valid.
const PresignTTL = 900 * time.Second

type Store interface {
	// Put streams an object under key with the given content type.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// PresignGet returns a time-limited download URL for key.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
