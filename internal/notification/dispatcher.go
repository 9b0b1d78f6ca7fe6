package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"preuvio/internal/audit"
	"preuvio/internal/platform/metrics"
	"preuvio/internal/profile"
	tenantstore "preuvio/internal/tenant/store"
	dErrors "preuvio/pkg/domain-errors"
	"preuvio/pkg/domain"
	"preuvio/pkg/platform/sentinel"
	"preuvio/pkg/requestcontext"
)

// Dispatcher enqueues entries and pushes pending ones through the mailer.
// Delivery is attempted exactly once per entry; failures stay in the queue as
// failed until an explicit retry.
type Dispatcher struct {
	store     Store
	mailer    Mailer
	platforms tenantstore.PlatformStore
	profiles  profile.Store
	audit     *audit.Publisher
	metrics   *metrics.Metrics
	appOrigin string
	logger    *slog.Logger
}

func NewDispatcher(
	store Store,
	mailer Mailer,
	platforms tenantstore.PlatformStore,
	profiles profile.Store,
	auditPub *audit.Publisher,
	m *metrics.Metrics,
	appOrigin string,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		store:     store,
		mailer:    mailer,
		platforms: platforms,
		profiles:  profiles,
		audit:     auditPub,
		metrics:   m,
		appOrigin: appOrigin,
		logger:    logger,
	}
}

// EnqueueParams describes one notification to queue.
type EnqueueParams struct {
	PlatformID   domain.PlatformID
	ProfileID    domain.ProfileID
	EvidenceID   domain.EvidenceID
	Type         Type
	Recipient    string
	DocumentType string
	ExpiryDate   string
}

// Enqueue creates a pending entry. Entries with an empty recipient are stored
// for the record but never picked up by Dispatch.
func (d *Dispatcher) Enqueue(ctx context.Context, p EnqueueParams) (QueueEntry, error) {
	entry := QueueEntry{
		ID:           domain.NewNotificationID(),
		PlatformID:   p.PlatformID,
		ProfileID:    p.ProfileID,
		EvidenceID:   p.EvidenceID,
		Type:         p.Type,
		Recipient:    p.Recipient,
		DocumentType: p.DocumentType,
		ExpiryDate:   p.ExpiryDate,
		Status:       StatusPending,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := d.store.Create(ctx, entry); err != nil {
		return QueueEntry{}, dErrors.Wrap(err, dErrors.CodeInternal, "enqueue notification")
	}
	d.audit.EmitBestEffort(ctx, audit.Entry{
		PlatformID: p.PlatformID,
		Action:     audit.ActionNotificationEnqueued,
		EntityType: "notification",
		EntityID:   entry.ID.String(),
		After:      audit.Snapshot(entry),
	})
	return entry, nil
}

// Send dispatches one entry by id. It is the single delivery path; Dispatch
// and Retry both funnel through it.
func (d *Dispatcher) Send(ctx context.Context, id domain.NotificationID) error {
	entry, err := d.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load notification")
	}
	if entry.Status != StatusPending {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("notification is %s, only pending entries can be sent", entry.Status))
	}
	if entry.Recipient == "" {
		return dErrors.New(dErrors.CodeValidation, "notification has no recipient")
	}
	return d.deliver(ctx, entry)
}

// Dispatch drains up to batch pending entries, oldest first. One delivery
// failure does not stop the drain. Returns how many entries were attempted.
func (d *Dispatcher) Dispatch(ctx context.Context, batch int) (int, error) {
	pending, err := d.store.ListPending(ctx, batch)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "list pending notifications")
	}
	for _, entry := range pending {
		if err := d.deliver(ctx, entry); err != nil {
			d.logger.WarnContext(ctx, "notification delivery failed",
				"notification_id", entry.ID.String(),
				"type", string(entry.Type),
				"error", err,
			)
		}
	}
	return len(pending), nil
}

// Retry flips a failed entry back to pending and delivers it again.
func (d *Dispatcher) Retry(ctx context.Context, id domain.NotificationID) error {
	err := d.store.Reclassify(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	if errors.Is(err, sentinel.ErrInvalidState) {
		return dErrors.New(dErrors.CodeValidation, "only failed notifications can be retried")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "reclassify notification")
	}

	entry, err := d.store.FindByID(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load notification")
	}
	d.audit.EmitBestEffort(ctx, audit.Entry{
		PlatformID: entry.PlatformID,
		Action:     audit.ActionNotificationRetried,
		EntityType: "notification",
		EntityID:   entry.ID.String(),
	})
	return d.deliver(ctx, entry)
}

func (d *Dispatcher) deliver(ctx context.Context, entry QueueEntry) error {
	data := TemplateData{
		DocumentType: entry.DocumentType,
		ExpiryDate:   entry.ExpiryDate,
		UploadURL:    strings.TrimRight(d.appOrigin, "/") + "/upload",
	}
	if plat, err := d.platforms.FindByID(ctx, entry.PlatformID); err == nil {
		data.PlatformName = plat.Name
	}
	if prof, err := d.profiles.FindByID(ctx, entry.ProfileID); err == nil {
		data.BusinessName = prof.BusinessName
	}

	msg := Render(entry.Type, entry.Recipient, data)
	now := requestcontext.Now(ctx)

	providerID, err := d.mailer.Send(ctx, msg)
	if err != nil {
		d.metrics.IncNotificationsFailed()
		if markErr := d.store.MarkFailed(ctx, entry.ID, err.Error()); markErr != nil {
			d.logger.ErrorContext(ctx, "mark notification failed errored",
				"notification_id", entry.ID.String(), "error", markErr)
		}
		return dErrors.Wrap(err, dErrors.CodeUpstream, "deliver notification")
	}

	if err := d.store.MarkSent(ctx, entry.ID, now, providerID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "mark notification sent")
	}
	d.metrics.IncNotificationsSent()
	return nil
}
