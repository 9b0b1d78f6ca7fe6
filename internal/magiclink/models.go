// Package magiclink implements single-profile access tokens sent out by
// email. Only the SHA-256 digest of a token is ever persisted.
package magiclink

import (
	"time"

	"preuvio/pkg/domain"
)

// DefaultTTLDays is the link lifetime applied when the issuer does not pick
// one.
const DefaultTTLDays = 7

// DefaultTTL is DefaultTTLDays as a duration.
const DefaultTTL = DefaultTTLDays * 24 * time.Hour

// MagicLink binds a token digest to one profile on one platform.
type MagicLink struct {
	ID         domain.LinkID     `json:"id"`
	PlatformID domain.PlatformID `json:"platform_id"`
	ProfileID  domain.ProfileID  `json:"profile_id"`
	TokenHash  string            `json:"-"`
	ExpiresAt  time.Time         `json:"expires_at"`
	UsedAt     *time.Time        `json:"used_at,omitempty"`
	RevokedAt  *time.Time        `json:"revoked_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// IsActive reports whether the link still grants access. A used link stays
// active until it expires or is revoked, so recipients can come back and
// upload more documents.
func (l MagicLink) IsActive(now time.Time) bool {
	return l.RevokedAt == nil && now.Before(l.ExpiresAt)
}
