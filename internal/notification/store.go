package notification

import (
	"context"
	"time"

	"preuvio/pkg/domain"
)

type Store interface {
	Create(ctx context.Context, e QueueEntry) error
	FindByID(ctx context.Context, id domain.NotificationID) (QueueEntry, error)
	// ExistsForDay reports whether an entry of the given type already exists
	// for the evidence on the calendar day (UTC) containing at. The sweep
	// uses it to keep repeated runs from double-notifying.
	ExistsForDay(ctx context.Context, evidenceID domain.EvidenceID, typ Type, at time.Time) (bool, error)
	// ListPending returns up to limit pending entries with a non-empty
	// recipient, oldest first.
	ListPending(ctx context.Context, limit int) ([]QueueEntry, error)
	MarkSent(ctx context.Context, id domain.NotificationID, at time.Time, providerMessageID string) error
	MarkFailed(ctx context.Context, id domain.NotificationID, reason string) error
	// Reclassify flips a failed entry back to pending for a retry.
	Reclassify(ctx context.Context, id domain.NotificationID) error
}
