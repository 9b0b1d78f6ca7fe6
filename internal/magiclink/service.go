package magiclink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"preuvio/internal/audit"
	"preuvio/internal/authn"
	"preuvio/internal/profile"
	"preuvio/internal/rules"
	tenantstore "preuvio/internal/tenant/store"
	dErrors "preuvio/pkg/domain-errors"
	"preuvio/pkg/domain"
	"preuvio/pkg/platform/sentinel"
	"preuvio/pkg/requestcontext"
)

// Service issues and validates magic links.
type Service struct {
	links     Store
	profiles  profile.Store
	platforms tenantstore.PlatformStore
	rules     rules.Store
	audit     *audit.Publisher
	appOrigin string
	logger    *slog.Logger
}

func NewService(
	links Store,
	profiles profile.Store,
	platforms tenantstore.PlatformStore,
	rulesStore rules.Store,
	auditPub *audit.Publisher,
	appOrigin string,
	logger *slog.Logger,
) *Service {
	return &Service{
		links:     links,
		profiles:  profiles,
		platforms: platforms,
		rules:     rulesStore,
		audit:     auditPub,
		appOrigin: appOrigin,
		logger:    logger,
	}
}

// IssuedLink is the one place a raw token is visible.
type IssuedLink struct {
	Link     MagicLink `json:"link"`
	RawToken string    `json:"token"`
	URL      string    `json:"url"`
}

// Issue creates a fresh link for a profile, revoking any previously active
// links first so at most one link per profile opens doors at a time. A
// ttlDays of zero or less falls back to DefaultTTLDays.
func (s *Service) Issue(ctx context.Context, platformID domain.PlatformID, profileID domain.ProfileID, ttlDays int) (IssuedLink, error) {
	if err := authn.RequirePlatformRole(ctx, platformID, authn.RoleOwner, authn.RoleAdmin); err != nil {
		return IssuedLink{}, err
	}
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}

	prof, err := s.profiles.FindByID(ctx, profileID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return IssuedLink{}, dErrors.New(dErrors.CodeNotFound, "profile not found")
	}
	if err != nil {
		return IssuedLink{}, dErrors.Wrap(err, dErrors.CodeInternal, "load profile")
	}
	if prof.PlatformID != platformID {
		return IssuedLink{}, dErrors.New(dErrors.CodeNotFound, "profile not found")
	}
	if prof.Status == profile.StatusBlocked {
		return IssuedLink{}, dErrors.New(dErrors.CodeValidation, "profile is blocked")
	}

	now := requestcontext.Now(ctx)

	revoked, err := s.links.RevokeActiveForProfile(ctx, profileID, now)
	if err != nil {
		return IssuedLink{}, dErrors.Wrap(err, dErrors.CodeInternal, "revoke previous links")
	}
	if revoked > 0 {
		s.audit.EmitBestEffort(ctx, audit.Entry{
			PlatformID: platformID,
			Action:     audit.ActionMagicLinkRevoked,
			EntityType: "profile",
			EntityID:   profileID.String(),
			Reason:     "superseded",
		})
	}

	raw, hash, err := GenerateToken()
	if err != nil {
		return IssuedLink{}, dErrors.Wrap(err, dErrors.CodeInternal, "generate token")
	}

	link := MagicLink{
		ID:         domain.NewLinkID(),
		PlatformID: platformID,
		ProfileID:  profileID,
		TokenHash:  hash,
		ExpiresAt:  now.Add(time.Duration(ttlDays) * 24 * time.Hour),
		CreatedAt:  now,
	}
	if err := s.links.Create(ctx, link); err != nil {
		return IssuedLink{}, dErrors.Wrap(err, dErrors.CodeInternal, "store link")
	}

	// A fresh link re-opens the document request for an active profile.
	if prof.Status == profile.StatusActive {
		if err := s.profiles.UpdateStatus(ctx, profileID, profile.StatusNeedsDocs, now); err != nil {
			return IssuedLink{}, dErrors.Wrap(err, dErrors.CodeInternal, "update profile status")
		}
	}

	if err := s.audit.Emit(ctx, audit.Entry{
		PlatformID: platformID,
		Action:     audit.ActionMagicLinkIssued,
		EntityType: "magic_link",
		EntityID:   link.ID.String(),
		After:      audit.Snapshot(link),
	}); err != nil {
		return IssuedLink{}, dErrors.Wrap(err, dErrors.CodeInternal, "record issue")
	}

	return IssuedLink{
		Link:     link,
		RawToken: raw,
		URL:      fmt.Sprintf("%s/u/%s", strings.TrimRight(s.appOrigin, "/"), raw),
	}, nil
}

// PlatformView is the branding subset of a platform exposed to link holders.
type PlatformView struct {
	ID         domain.PlatformID `json:"id"`
	Name       string            `json:"name"`
	LogoURL    string            `json:"logo_url,omitempty"`
	BrandColor string            `json:"brand_color,omitempty"`
}

// LinkContext is everything the upload page needs after token validation.
type LinkContext struct {
	Link              MagicLink       `json:"link"`
	Platform          PlatformView    `json:"platform"`
	Profile           profile.Profile `json:"profile"`
	RequiredDocuments []rules.Item    `json:"required_documents"`
}

// Validate resolves a raw token into its link context. Revocation and expiry
// are checked in that order; prior use does not invalidate a link.
func (s *Service) Validate(ctx context.Context, rawToken string) (LinkContext, error) {
	if !ValidFormat(rawToken) {
		return LinkContext{}, dErrors.New(dErrors.CodeNotFound, "unknown token")
	}

	link, err := s.links.FindByHash(ctx, HashToken(rawToken))
	if errors.Is(err, sentinel.ErrNotFound) {
		return LinkContext{}, dErrors.New(dErrors.CodeNotFound, "unknown token")
	}
	if err != nil {
		return LinkContext{}, dErrors.Wrap(err, dErrors.CodeInternal, "look up token")
	}

	now := requestcontext.Now(ctx)
	if link.RevokedAt != nil {
		return LinkContext{}, dErrors.New(dErrors.CodeRevoked, "link has been revoked")
	}
	if !now.Before(link.ExpiresAt) {
		return LinkContext{}, dErrors.New(dErrors.CodeExpired, "link has expired")
	}

	if link.UsedAt == nil {
		if err := s.links.MarkUsed(ctx, link.ID, now); err != nil {
			s.logger.WarnContext(ctx, "mark link used failed", "link_id", link.ID.String(), "error", err)
		} else {
			t := now
			link.UsedAt = &t
		}
	}

	plat, err := s.platforms.FindByID(ctx, link.PlatformID)
	if err != nil {
		return LinkContext{}, dErrors.Wrap(err, dErrors.CodeInternal, "load platform")
	}
	prof, err := s.profiles.FindByID(ctx, link.ProfileID)
	if err != nil {
		return LinkContext{}, dErrors.Wrap(err, dErrors.CodeInternal, "load profile")
	}

	pkg, err := rules.ForPlatform(ctx, s.rules, link.PlatformID)
	if err != nil {
		return LinkContext{}, dErrors.Wrap(err, dErrors.CodeInternal, "load document rules")
	}

	return LinkContext{
		Link: link,
		Platform: PlatformView{
			ID:         plat.ID,
			Name:       plat.Name,
			LogoURL:    plat.LogoURL,
			BrandColor: plat.BrandColor,
		},
		Profile:           *prof,
		RequiredDocuments: pkg.Items,
	}, nil
}

// Authorize resolves a raw token for the upload path without marking use,
// returning the link when it is currently active.
func (s *Service) Authorize(ctx context.Context, rawToken string) (MagicLink, error) {
	if !ValidFormat(rawToken) {
		return MagicLink{}, dErrors.New(dErrors.CodeNotFound, "unknown token")
	}
	link, err := s.links.FindByHash(ctx, HashToken(rawToken))
	if errors.Is(err, sentinel.ErrNotFound) {
		return MagicLink{}, dErrors.New(dErrors.CodeNotFound, "unknown token")
	}
	if err != nil {
		return MagicLink{}, dErrors.Wrap(err, dErrors.CodeInternal, "look up token")
	}
	now := requestcontext.Now(ctx)
	if link.RevokedAt != nil {
		return MagicLink{}, dErrors.New(dErrors.CodeRevoked, "link has been revoked")
	}
	if !now.Before(link.ExpiresAt) {
		return MagicLink{}, dErrors.New(dErrors.CodeExpired, "link has expired")
	}
	return link, nil
}
