package models

import (
	"encoding/json"
	"regexp"
	"time"

	"preuvio/pkg/domain"
	dErrors "preuvio/pkg/domain-errors"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Platform is the aggregate root for a tenant organization.
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - Slug is a lowercase kebab-case identifier, unique per deployment
//   - Platforms are never hard-deleted
type Platform struct {
	ID         domain.PlatformID `json:"id"`
	Name       string            `json:"name"`
	Slug       string            `json:"slug"`
	LogoURL    string            `json:"logo_url,omitempty"`
	BrandColor string            `json:"brand_color,omitempty"`
	Settings   json.RawMessage   `json:"settings,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func NewPlatform(id domain.PlatformID, name, slug string, now time.Time) (*Platform, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "platform name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "platform name must be 128 characters or less")
	}
	if !slugPattern.MatchString(slug) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "platform slug must be lowercase kebab-case")
	}
	return &Platform{
		ID:        id,
		Name:      name,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
