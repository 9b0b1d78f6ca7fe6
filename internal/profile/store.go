package profile

import (
	"context"
	"time"

	"preuvio/pkg/domain"
)

// Store abstracts profile persistence. UpdateStatus is the only mutation the
// core flows perform after creation.
type Store interface {
	Create(ctx context.Context, p *Profile) error
	FindByID(ctx context.Context, id domain.ProfileID) (*Profile, error)
	ListByPlatform(ctx context.Context, platformID domain.PlatformID) ([]*Profile, error)
	UpdateStatus(ctx context.Context, id domain.ProfileID, status Status, now time.Time) error
}
