package notification_test

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
	"preuvio/internal/notification"
	"preuvio/internal/notification/mocks"
	"preuvio/internal/profile"
	tenantmodels "preuvio/internal/tenant/models"
	tenantstore "preuvio/internal/tenant/store"
	dErrors "preuvio/pkg/domain-errors"
	"preuvio/pkg/domain"
	"preuvio/pkg/testutil"
)

type fixture struct {
	dispatcher *notification.Dispatcher
	store      *notification.InMemoryStore
	mailer     *mocks.MockMailer
	platformID domain.PlatformID
	profileID  domain.ProfileID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

	platforms := tenantstore.NewInMemory()
	plat, err := tenantmodels.NewPlatform(domain.NewPlatformID(), "Acme Marketplace", "acme-marketplace", now)
	require.NoError(t, err)
	require.NoError(t, platforms.Create(context.Background(), plat))

	profiles := profile.NewInMemoryStore()
	prof, err := profile.New(domain.NewProfileID(), plat.ID, "Plomberie Dupont", "contact@dupont.example", now)
	require.NoError(t, err)
	require.NoError(t, profiles.Create(context.Background(), prof))

	store := notification.NewInMemoryStore()
	mailer := mocks.NewMockMailer(ctrl)

	return &fixture{
		dispatcher: notification.NewDispatcher(store, mailer, platforms, profiles,
			audit.NewPublisher(audit.NewInMemoryStore(), logger), nil,
			"https://app.preuvio.example", logger),
		store:      store,
		mailer:     mailer,
		platformID: plat.ID,
		profileID:  prof.ID,
	}
}

func (f *fixture) enqueue(t *testing.T, ctx context.Context, typ notification.Type) notification.QueueEntry {
	t.Helper()
	entry, err := f.dispatcher.Enqueue(ctx, notification.EnqueueParams{
		PlatformID:   f.platformID,
		ProfileID:    f.profileID,
		EvidenceID:   domain.NewEvidenceID(),
		Type:         typ,
		Recipient:    "contact@dupont.example",
		DocumentType: "kbis",
		ExpiryDate:   "2026-04-09",
	})
	require.NoError(t, err)
	return entry
}

func TestSend(t *testing.T) {
	at := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

	t.Run("marks the entry sent after delivery", func(t *testing.T) {
		f := newFixture(t)
		ctx := testutil.ContextAt(at)
		entry := f.enqueue(t, ctx, notification.TypeExpiration30d)

		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, msg notification.Message) (string, error) {
				assert.Equal(t, "contact@dupont.example", msg.To)
				assert.Contains(t, msg.Subject, "Acme Marketplace")
				assert.Contains(t, msg.HTML, "kbis")
				return "re_abc123", nil
			})

		require.NoError(t, f.dispatcher.Send(ctx, entry.ID))

		got, err := f.store.FindByID(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, got.Status)
		assert.Equal(t, "re_abc123", got.ProviderMessageID)
		require.NotNil(t, got.SentAt)
		assert.Equal(t, at, *got.SentAt)
	})

	t.Run("marks the entry failed when the provider rejects it", func(t *testing.T) {
		f := newFixture(t)
		ctx := testutil.ContextAt(at)
		entry := f.enqueue(t, ctx, notification.TypeDepositConfirmation)

		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return("", errors.New("mailbox full"))

		err := f.dispatcher.Send(ctx, entry.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUpstream))

		got, _ := f.store.FindByID(ctx, entry.ID)
		assert.Equal(t, notification.StatusFailed, got.Status)
		assert.Contains(t, got.Error, "mailbox full")
	})

	t.Run("refuses entries that are not pending", func(t *testing.T) {
		f := newFixture(t)
		ctx := testutil.ContextAt(at)
		entry := f.enqueue(t, ctx, notification.TypeDepositConfirmation)

		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return("re_1", nil)
		require.NoError(t, f.dispatcher.Send(ctx, entry.ID))

		err := f.dispatcher.Send(ctx, entry.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unknown id maps to not found", func(t *testing.T) {
		f := newFixture(t)
		err := f.dispatcher.Send(testutil.ContextAt(at), domain.NewNotificationID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestDispatch(t *testing.T) {
	at := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

	t.Run("drains pending entries oldest first up to the batch size", func(t *testing.T) {
		f := newFixture(t)
		for i := 0; i < 3; i++ {
			f.enqueue(t, testutil.ContextAt(at.Add(time.Duration(i)*time.Minute)), notification.TypeExpiration7d)
		}

		f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return("re_1", nil).Times(2)

		attempted, err := f.dispatcher.Dispatch(testutil.ContextAt(at.Add(time.Hour)), 2)
		require.NoError(t, err)
		assert.Equal(t, 2, attempted)

		pending, err := f.store.ListPending(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})

	t.Run("one failure does not stop the drain", func(t *testing.T) {
		f := newFixture(t)
		f.enqueue(t, testutil.ContextAt(at), notification.TypeExpiration1d)
		f.enqueue(t, testutil.ContextAt(at.Add(time.Minute)), notification.TypeExpiration1d)

		gomock.InOrder(
			f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return("", errors.New("timeout")),
			f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return("re_2", nil),
		)

		attempted, err := f.dispatcher.Dispatch(testutil.ContextAt(at.Add(time.Hour)), 50)
		require.NoError(t, err)
		assert.Equal(t, 2, attempted)
	})

	t.Run("entries without a recipient are skipped", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.dispatcher.Enqueue(testutil.ContextAt(at), notification.EnqueueParams{
			PlatformID:   f.platformID,
			ProfileID:    f.profileID,
			EvidenceID:   domain.NewEvidenceID(),
			Type:         notification.TypeExpired,
			DocumentType: "kbis",
		})
		require.NoError(t, err)

		attempted, err := f.dispatcher.Dispatch(testutil.ContextAt(at.Add(time.Hour)), 50)
		require.NoError(t, err)
		assert.Zero(t, attempted)
	})
}

func TestRetry(t *testing.T) {
	at := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

	t.Run("re-delivers a failed entry", func(t *testing.T) {
		f := newFixture(t)
		ctx := testutil.ContextAt(at)
		entry := f.enqueue(t, ctx, notification.TypeExpiration30d)

		gomock.InOrder(
			f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return("", errors.New("timeout")),
			f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return("re_2", nil),
		)

		require.Error(t, f.dispatcher.Send(ctx, entry.ID))
		require.NoError(t, f.dispatcher.Retry(ctx, entry.ID))

		got, _ := f.store.FindByID(ctx, entry.ID)
		assert.Equal(t, notification.StatusSent, got.Status)
		assert.Equal(t, "re_2", got.ProviderMessageID)
	})

	t.Run("refuses entries that have not failed", func(t *testing.T) {
		f := newFixture(t)
		ctx := testutil.ContextAt(at)
		entry := f.enqueue(t, ctx, notification.TypeExpiration30d)

		err := f.dispatcher.Retry(ctx, entry.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestDedupWindow(t *testing.T) {
	store := notification.NewInMemoryStore()
	evidenceID := domain.NewEvidenceID()
	day := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(context.Background(), notification.QueueEntry{
		ID:         domain.NewNotificationID(),
		EvidenceID: evidenceID,
		Type:       notification.TypeExpiration7d,
		Status:     notification.StatusPending,
		CreatedAt:  day,
	}))

	exists, err := store.ExistsForDay(context.Background(), evidenceID, notification.TypeExpiration7d, day.Add(10*time.Hour))
	require.NoError(t, err)
	assert.True(t, exists, "same UTC day")

	exists, err = store.ExistsForDay(context.Background(), evidenceID, notification.TypeExpiration7d, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.False(t, exists, "next UTC day")

	exists, err = store.ExistsForDay(context.Background(), evidenceID, notification.TypeExpiration1d, day)
	require.NoError(t, err)
	assert.False(t, exists, "different type")
}
