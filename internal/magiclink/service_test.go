package magiclink

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preuvio/internal/audit"
	"preuvio/internal/authn"
	"preuvio/internal/platform/middleware"
	"preuvio/internal/profile"
	"preuvio/internal/rules"
	tenantmodels "preuvio/internal/tenant/models"
	tenantstore "preuvio/internal/tenant/store"
	dErrors "preuvio/pkg/domain-errors"
	"preuvio/pkg/domain"
	"preuvio/pkg/requestcontext"
	"preuvio/pkg/testutil"
)

type fixture struct {
	svc        *Service
	links      *InMemoryStore
	profiles   profile.Store
	auditStore *audit.InMemoryStore
	platformID domain.PlatformID
	profileID  domain.ProfileID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	platforms := tenantstore.NewInMemory()
	plat, err := tenantmodels.NewPlatform(domain.NewPlatformID(), "Acme Marketplace", "acme-marketplace", now)
	require.NoError(t, err)
	require.NoError(t, platforms.Create(context.Background(), plat))

	profiles := profile.NewInMemoryStore()
	prof, err := profile.New(domain.NewProfileID(), plat.ID, "Plomberie Dupont", "contact@dupont.example", now)
	require.NoError(t, err)
	require.NoError(t, profiles.Create(context.Background(), prof))

	rulesStore := rules.NewInMemoryStore()
	_, err = rules.SeedGlobalTemplate(rulesStore)
	require.NoError(t, err)

	links := NewInMemoryStore()
	auditStore := audit.NewInMemoryStore()

	return &fixture{
		svc: NewService(links, profiles, platforms, rulesStore,
			audit.NewPublisher(auditStore, logger), "https://app.preuvio.example", logger),
		links:      links,
		profiles:   profiles,
		auditStore: auditStore,
		platformID: plat.ID,
		profileID:  prof.ID,
	}
}

func authedCtx(at time.Time, platformID domain.PlatformID, role string) context.Context {
	ctx := testutil.ContextAt(at)
	ctx = context.WithValue(ctx, middleware.ContextKeyUserID, "user-1")
	ctx = context.WithValue(ctx, middleware.ContextKeyPlatformID, platformID.String())
	ctx = context.WithValue(ctx, middleware.ContextKeyRole, role)
	return ctx
}

func TestIssue(t *testing.T) {
	issuedAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("returns a raw token and a link URL", func(t *testing.T) {
		f := newFixture(t)
		ctx := authedCtx(issuedAt, f.platformID, authn.RoleAdmin)

		issued, err := f.svc.Issue(ctx, f.platformID, f.profileID, 0)
		require.NoError(t, err)

		assert.True(t, ValidFormat(issued.RawToken))
		assert.Equal(t, HashToken(issued.RawToken), issued.Link.TokenHash)
		assert.Equal(t, issuedAt.Add(DefaultTTL), issued.Link.ExpiresAt)
		assert.Equal(t, "https://app.preuvio.example/u/"+issued.RawToken, issued.URL)
	})

	t.Run("honors a caller-chosen lifetime", func(t *testing.T) {
		f := newFixture(t)
		ctx := authedCtx(issuedAt, f.platformID, authn.RoleAdmin)

		issued, err := f.svc.Issue(ctx, f.platformID, f.profileID, 30)
		require.NoError(t, err)
		assert.Equal(t, issuedAt.Add(30*24*time.Hour), issued.Link.ExpiresAt)

		_, err = f.svc.Validate(testutil.ContextAt(issuedAt.Add(20*24*time.Hour)), issued.RawToken)
		assert.NoError(t, err, "still valid well past the default lifetime")

		_, err = f.svc.Validate(testutil.ContextAt(issuedAt.Add(30*24*time.Hour)), issued.RawToken)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeExpired))
	})

	t.Run("moves an active profile to needs_docs", func(t *testing.T) {
		f := newFixture(t)
		ctx := authedCtx(issuedAt, f.platformID, authn.RoleOwner)

		_, err := f.svc.Issue(ctx, f.platformID, f.profileID, 0)
		require.NoError(t, err)

		prof, err := f.profiles.FindByID(ctx, f.profileID)
		require.NoError(t, err)
		assert.Equal(t, profile.StatusNeedsDocs, prof.Status)
	})

	t.Run("revokes the previously active link", func(t *testing.T) {
		f := newFixture(t)
		ctx := authedCtx(issuedAt, f.platformID, authn.RoleAdmin)

		first, err := f.svc.Issue(ctx, f.platformID, f.profileID, 0)
		require.NoError(t, err)
		second, err := f.svc.Issue(ctx, f.platformID, f.profileID, 0)
		require.NoError(t, err)

		_, err = f.svc.Validate(testutil.ContextAt(issuedAt.Add(time.Hour)), first.RawToken)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeRevoked))

		_, err = f.svc.Validate(testutil.ContextAt(issuedAt.Add(time.Hour)), second.RawToken)
		assert.NoError(t, err)
	})

	t.Run("requires an owner or admin of the platform", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Issue(authedCtx(issuedAt, f.platformID, authn.RoleReviewer), f.platformID, f.profileID, 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

		_, err = f.svc.Issue(testutil.ContextAt(issuedAt), f.platformID, f.profileID, 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

		_, err = f.svc.Issue(authedCtx(issuedAt, domain.NewPlatformID(), authn.RoleAdmin), f.platformID, f.profileID, 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("rejects an unknown profile", func(t *testing.T) {
		f := newFixture(t)
		ctx := authedCtx(issuedAt, f.platformID, authn.RoleAdmin)

		_, err := f.svc.Issue(ctx, f.platformID, domain.NewProfileID(), 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("records issuance in the audit trail", func(t *testing.T) {
		f := newFixture(t)
		ctx := authedCtx(issuedAt, f.platformID, authn.RoleAdmin)

		issued, err := f.svc.Issue(ctx, f.platformID, f.profileID, 0)
		require.NoError(t, err)

		entries := f.auditStore.All()
		require.NotEmpty(t, entries)
		last := entries[len(entries)-1]
		assert.Equal(t, audit.ActionMagicLinkIssued, last.Action)
		assert.Equal(t, issued.Link.ID.String(), last.EntityID)
	})
}

func TestValidate(t *testing.T) {
	issuedAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	issue := func(t *testing.T, f *fixture) IssuedLink {
		t.Helper()
		issued, err := f.svc.Issue(authedCtx(issuedAt, f.platformID, authn.RoleAdmin), f.platformID, f.profileID, 0)
		require.NoError(t, err)
		return issued
	}

	t.Run("returns platform branding, profile and required documents", func(t *testing.T) {
		f := newFixture(t)
		issued := issue(t, f)

		lc, err := f.svc.Validate(testutil.ContextAt(issuedAt.Add(time.Hour)), issued.RawToken)
		require.NoError(t, err)

		assert.Equal(t, "Acme Marketplace", lc.Platform.Name)
		assert.Equal(t, f.profileID, lc.Profile.ID)
		assert.NotEmpty(t, lc.RequiredDocuments)
	})

	t.Run("a used link stays valid until expiry", func(t *testing.T) {
		f := newFixture(t)
		issued := issue(t, f)

		first, err := f.svc.Validate(testutil.ContextAt(issuedAt.Add(time.Hour)), issued.RawToken)
		require.NoError(t, err)
		require.NotNil(t, first.Link.UsedAt)

		again, err := f.svc.Validate(testutil.ContextAt(issuedAt.Add(48*time.Hour)), issued.RawToken)
		require.NoError(t, err)
		assert.Equal(t, *first.Link.UsedAt, *again.Link.UsedAt)
	})

	t.Run("expires after seven days", func(t *testing.T) {
		f := newFixture(t)
		issued := issue(t, f)

		_, err := f.svc.Validate(testutil.ContextAt(issuedAt.Add(8*24*time.Hour)), issued.RawToken)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeExpired))

		_, err = f.svc.Validate(testutil.ContextAt(issuedAt.Add(DefaultTTL)), issued.RawToken)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeExpired), "boundary instant is already expired")
	})

	t.Run("rejects malformed and unknown tokens alike", func(t *testing.T) {
		f := newFixture(t)
		issue(t, f)

		_, err := f.svc.Validate(testutil.ContextAt(issuedAt), "not-a-token")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

		unknown, _, genErr := GenerateToken()
		require.NoError(t, genErr)
		_, err = f.svc.Validate(testutil.ContextAt(issuedAt), unknown)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestTokenFormat(t *testing.T) {
	raw, hash, err := GenerateToken()
	require.NoError(t, err)

	assert.Len(t, raw, 64)
	assert.Len(t, hash, 64)
	assert.NotEqual(t, raw, hash)
	assert.True(t, ValidFormat(raw))
	assert.False(t, ValidFormat(raw[:63]))
	assert.False(t, ValidFormat(raw[:63]+"G"))
}

func TestRequestContextClock(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, at, requestcontext.Now(testutil.ContextAt(at)))
}
