package evidence

import (
	"context"
	"time"

	"preuvio/pkg/domain"
)

// ReviewUpdate carries the fields a review decision writes.
type ReviewUpdate struct {
	Status       Status
	ReviewStatus ReviewStatus
	ReviewedBy   string
	ReviewedAt   time.Time
	RejectReason string
}

type Store interface {
	Create(ctx context.Context, e Evidence) error
	FindByID(ctx context.Context, id domain.EvidenceID) (Evidence, error)
	ListByProfile(ctx context.Context, profileID domain.ProfileID) ([]Evidence, error)
	ListByPlatform(ctx context.Context, platformID domain.PlatformID) ([]Evidence, error)
	// ListApprovedWithExpiry returns every approved evidence carrying an
	// expiry date, across all platforms; the sweep walks this set.
	ListApprovedWithExpiry(ctx context.Context) ([]Evidence, error)
	UpdateReview(ctx context.Context, id domain.EvidenceID, u ReviewUpdate) error
}
