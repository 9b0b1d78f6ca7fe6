package store

import (
	"context"

	"preuvio/internal/tenant/models"
	"preuvio/pkg/domain"
)

// PlatformStore is interface-driven so services stay testable and persistence
// can move between memory and PostgreSQL without rewiring business code.
type PlatformStore interface {
	Create(ctx context.Context, p *models.Platform) error
	FindByID(ctx context.Context, id domain.PlatformID) (*models.Platform, error)
	FindBySlug(ctx context.Context, slug string) (*models.Platform, error)
	Update(ctx context.Context, p *models.Platform) error
}
