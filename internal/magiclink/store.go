package magiclink

import (
	"context"
	"time"

	"preuvio/pkg/domain"
)

type Store interface {
	Create(ctx context.Context, link MagicLink) error
	// FindByHash looks a link up by token digest; returns sentinel.ErrNotFound
	// when no link carries the digest.
	FindByHash(ctx context.Context, tokenHash string) (MagicLink, error)
	// RevokeActiveForProfile revokes every non-revoked link of a profile and
	// returns how many it touched.
	RevokeActiveForProfile(ctx context.Context, profileID domain.ProfileID, at time.Time) (int, error)
	// MarkUsed records first use; subsequent calls are no-ops.
	MarkUsed(ctx context.Context, id domain.LinkID, at time.Time) error
}
