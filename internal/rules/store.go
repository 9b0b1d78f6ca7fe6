package rules

import (
	"context"
	"errors"

	"preuvio/pkg/domain"
	"preuvio/pkg/platform/sentinel"
)

// Store reads rules packages. FindByPlatform returns sentinel.ErrNotFound
// when the platform has no package of its own.
type Store interface {
	FindByPlatform(ctx context.Context, platformID domain.PlatformID) (*Package, error)
	GlobalTemplate(ctx context.Context) (*Package, error)
	Save(ctx context.Context, pkg *Package) error
}

// ForPlatform resolves the effective package for a platform, falling back to
// the global template when the platform has none.
func ForPlatform(ctx context.Context, store Store, platformID domain.PlatformID) (*Package, error) {
	pkg, err := store.FindByPlatform(ctx, platformID)
	if err == nil {
		return pkg, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}
	return store.GlobalTemplate(ctx)
}
