package expiration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"preuvio/internal/audit"
	"preuvio/internal/evidence"
	"preuvio/internal/notification"
	"preuvio/internal/notification/mocks"
	"preuvio/internal/profile"
	"preuvio/internal/rules"
	tenantstore "preuvio/internal/tenant/store"
	"preuvio/pkg/domain"
	"preuvio/pkg/testutil"
)

type fixture struct {
	scanner    *Scanner
	evidences  *evidence.InMemoryStore
	profiles   profile.Store
	rules      rules.Store
	notifs     *notification.InMemoryStore
	dispatcher *notification.Dispatcher
	mailer     *mocks.MockMailer
	auditStore *audit.InMemoryStore
	platformID domain.PlatformID
	profileID  domain.ProfileID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	platformID := domain.NewPlatformID()
	profiles := profile.NewInMemoryStore()
	prof, err := profile.New(domain.NewProfileID(), platformID, "Plomberie Dupont", "contact@dupont.example", now)
	require.NoError(t, err)
	require.NoError(t, profiles.Create(context.Background(), prof))
	require.NoError(t, profiles.UpdateStatus(context.Background(), prof.ID, profile.StatusApproved, now))

	rulesStore := rules.NewInMemoryStore()
	_, err = rules.SeedGlobalTemplate(rulesStore)
	require.NoError(t, err)

	auditStore := audit.NewInMemoryStore()
	auditPub := audit.NewPublisher(auditStore, logger)

	notifs := notification.NewInMemoryStore()
	mailer := mocks.NewMockMailer(ctrl)
	dispatcher := notification.NewDispatcher(notifs, mailer, tenantstore.NewInMemory(), profiles,
		auditPub, nil, "https://app.preuvio.example", logger)

	evidences := evidence.NewInMemoryStore()

	return &fixture{
		scanner: NewScanner(evidences, profiles, rulesStore, notifs, dispatcher,
			auditPub, nil, 50, logger),
		evidences:  evidences,
		profiles:   profiles,
		rules:      rulesStore,
		notifs:     notifs,
		dispatcher: dispatcher,
		mailer:     mailer,
		auditStore: auditStore,
		platformID: platformID,
		profileID:  prof.ID,
	}
}

func (f *fixture) addApproved(t *testing.T, docType string, expiresAt time.Time) evidence.Evidence {
	t.Helper()
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	ev := evidence.Evidence{
		ID:           domain.NewEvidenceID(),
		PlatformID:   f.platformID,
		ProfileID:    f.profileID,
		DocumentType: docType,
		ObjectKey:    "key/" + docType,
		ContentType:  "application/pdf",
		Status:       evidence.StatusValid,
		ReviewStatus: evidence.ReviewApproved,
		ExpiresAt:    &expiresAt,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	require.NoError(t, f.evidences.Create(context.Background(), ev))
	return ev
}

func TestRun(t *testing.T) {
	// The sweep runs mid-morning; thresholds count calendar days at UTC
	// midnight, so the hour must not matter.
	sweepAt := time.Date(2026, 3, 15, 6, 30, 0, 0, time.UTC)
	day := func(n int) time.Time {
		return time.Date(2026, 3, 15+n, 14, 0, 0, 0, time.UTC)
	}

	t.Run("fires tiered warnings at exactly 30, 7, 1 and 0 days", func(t *testing.T) {
		f := newFixture(t)
		f.addApproved(t, "insurance_certificate", day(30))
		f.addApproved(t, "urssaf_attestation", day(7))
		f.addApproved(t, "id_card", day(1))
		f.addApproved(t, "iban", day(0))
		f.addApproved(t, "kbis", day(15)) // off-threshold, ignored

		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return("re_1", nil).AnyTimes()

		res, err := f.scanner.Run(testutil.ContextAt(sweepAt))
		require.NoError(t, err)

		assert.Equal(t, 5, res.Checked)
		assert.Equal(t, 4, res.NotificationsCreated)
		assert.Zero(t, res.Errors)

		types := map[notification.Type]bool{}
		for _, e := range f.notifs.All() {
			types[e.Type] = true
			assert.Equal(t, "contact@dupont.example", e.Recipient)
		}
		assert.Equal(t, map[notification.Type]bool{
			notification.TypeExpiration30d: true,
			notification.TypeExpiration7d:  true,
			notification.TypeExpiration1d:  true,
			notification.TypeExpired:       true,
		}, types)
	})

	t.Run("a second run on the same day creates nothing new", func(t *testing.T) {
		f := newFixture(t)
		f.addApproved(t, "urssaf_attestation", day(7))
		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return("re_1", nil).AnyTimes()

		first, err := f.scanner.Run(testutil.ContextAt(sweepAt))
		require.NoError(t, err)
		assert.Equal(t, 1, first.NotificationsCreated)

		second, err := f.scanner.Run(testutil.ContextAt(sweepAt.Add(4 * time.Hour)))
		require.NoError(t, err)
		assert.Zero(t, second.NotificationsCreated)
		assert.Len(t, f.notifs.All(), 1)
	})

	t.Run("blocks the profile when a required document expires", func(t *testing.T) {
		f := newFixture(t)
		f.addApproved(t, "kbis", day(0))
		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return("re_1", nil).AnyTimes()

		res, err := f.scanner.Run(testutil.ContextAt(sweepAt))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Blocked)

		prof, _ := f.profiles.FindByID(context.Background(), f.profileID)
		assert.Equal(t, profile.StatusBlocked, prof.Status)

		var reason string
		for _, e := range f.auditStore.All() {
			if e.Action == audit.ActionProfileBlocked {
				reason = e.Reason
			}
		}
		assert.Equal(t, audit.ReasonExpiredRequiredDocument, reason)

		// Idempotent: the next day's run must not double-block.
		again, err := f.scanner.Run(testutil.ContextAt(sweepAt.Add(2 * time.Hour)))
		require.NoError(t, err)
		assert.Zero(t, again.Blocked)
	})

	t.Run("a block without a trail entry counts as an error", func(t *testing.T) {
		f := newFixture(t)
		f.addApproved(t, "kbis", day(0))
		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return("re_1", nil).AnyTimes()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		scanner := NewScanner(f.evidences, f.profiles, f.rules, f.notifs, f.dispatcher,
			audit.NewPublisher(failingAuditStore{}, logger), nil, 50, logger)

		res, err := scanner.Run(testutil.ContextAt(sweepAt))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Errors)
	})

	t.Run("optional documents expire without blocking", func(t *testing.T) {
		f := newFixture(t)
		f.addApproved(t, "iban", day(0))
		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return("re_1", nil).AnyTimes()

		res, err := f.scanner.Run(testutil.ContextAt(sweepAt))
		require.NoError(t, err)
		assert.Zero(t, res.Blocked)

		prof, _ := f.profiles.FindByID(context.Background(), f.profileID)
		assert.Equal(t, profile.StatusApproved, prof.Status)
	})

	t.Run("drains the queue after scanning", func(t *testing.T) {
		f := newFixture(t)
		f.addApproved(t, "urssaf_attestation", day(7))
		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return("re_1", nil)

		res, err := f.scanner.Run(testutil.ContextAt(sweepAt))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Drained)

		entries := f.notifs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, notification.StatusSent, entries[0].Status)
	})

	t.Run("one broken row does not stop the sweep", func(t *testing.T) {
		f := newFixture(t)
		expiry := day(7)
		orphan := evidence.Evidence{
			ID:           domain.NewEvidenceID(),
			PlatformID:   f.platformID,
			ProfileID:    domain.NewProfileID(), // no such profile
			DocumentType: "kbis",
			Status:       evidence.StatusValid,
			ReviewStatus: evidence.ReviewApproved,
			ExpiresAt:    &expiry,
			CreatedAt:    time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		}
		require.NoError(t, f.evidences.Create(context.Background(), orphan))
		f.addApproved(t, "urssaf_attestation", day(7))
		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return("re_1", nil).AnyTimes()

		res, err := f.scanner.Run(testutil.ContextAt(sweepAt))
		require.NoError(t, err)
		assert.Equal(t, 2, res.Checked)
		assert.Equal(t, 1, res.Errors)
		assert.Equal(t, 1, res.NotificationsCreated)
	})
}

// failingAuditStore rejects every append.
type failingAuditStore struct{}

func (failingAuditStore) Append(ctx context.Context, e audit.Entry) error {
	return errors.New("audit store down")
}

func (failingAuditStore) ListByPlatform(ctx context.Context, platformID domain.PlatformID) ([]audit.Entry, error) {
	return nil, nil
}

func TestDaysUntilExpiry(t *testing.T) {
	now := time.Date(2026, 3, 15, 23, 50, 0, 0, time.UTC)

	assert.Equal(t, 0, daysUntilExpiry(time.Date(2026, 3, 15, 0, 10, 0, 0, time.UTC), now))
	assert.Equal(t, 1, daysUntilExpiry(time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 30, daysUntilExpiry(time.Date(2026, 4, 14, 9, 0, 0, 0, time.UTC), now))
	assert.Equal(t, -2, daysUntilExpiry(time.Date(2026, 3, 13, 12, 0, 0, 0, time.UTC), now))
}
