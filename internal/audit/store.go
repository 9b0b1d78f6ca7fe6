package audit

import (
	"context"

	"preuvio/pkg/domain"
)

// Store is append-only; there is deliberately no update or delete.
type Store interface {
	Append(ctx context.Context, e Entry) error
	ListByPlatform(ctx context.Context, platformID domain.PlatformID) ([]Entry, error)
}
