package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"preuvio/pkg/domain"
	"preuvio/pkg/platform/sentinel"
	txcontext "preuvio/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const entryColumns = `id, platform_id, profile_id, evidence_id, type, recipient, document_type, expiry_date, status, error, provider_message_id, created_at, sent_at`

func (s *PostgresStore) Create(ctx context.Context, e QueueEntry) error {
	query := `
		INSERT INTO notification_queue (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.ID), uuid.UUID(e.PlatformID), uuid.UUID(e.ProfileID), uuid.UUID(e.EvidenceID),
		string(e.Type), e.Recipient, e.DocumentType, e.ExpiryDate, string(e.Status), e.Error,
		e.ProviderMessageID, e.CreatedAt, e.SentAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.NotificationID) (QueueEntry, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM notification_queue WHERE id = $1
	`, uuid.UUID(id))
	return scanEntry(row)
}

func (s *PostgresStore) ExistsForDay(ctx context.Context, evidenceID domain.EvidenceID, typ Type, at time.Time) (bool, error) {
	day := at.UTC().Truncate(24 * time.Hour)
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notification_queue
			WHERE evidence_id = $1 AND type = $2
			  AND created_at >= $3 AND created_at < $4
		)
	`, uuid.UUID(evidenceID), string(typ), day, day.Add(24*time.Hour)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check notification dedup: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListPending(ctx context.Context, limit int) ([]QueueEntry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT `+entryColumns+` FROM notification_queue
		WHERE status = 'pending' AND recipient <> ''
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	defer rows.Close()

	var out []QueueEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkSent(ctx context.Context, id domain.NotificationID, at time.Time, providerMessageID string) error {
	return s.updateStatus(ctx, `
		UPDATE notification_queue SET status = 'sent', sent_at = $1, provider_message_id = $2, error = '' WHERE id = $3
	`, at, providerMessageID, uuid.UUID(id))
}

func (s *PostgresStore) MarkFailed(ctx context.Context, id domain.NotificationID, reason string) error {
	return s.updateStatus(ctx, `
		UPDATE notification_queue SET status = 'failed', error = $1 WHERE id = $2
	`, reason, uuid.UUID(id))
}

func (s *PostgresStore) Reclassify(ctx context.Context, id domain.NotificationID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE notification_queue SET status = 'pending', error = '' WHERE id = $1 AND status = 'failed'
	`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("reclassify notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reclassify notification: %w", err)
	}
	if n == 0 {
		// Either missing or not in failed state; disambiguate for callers.
		if _, err := s.FindByID(ctx, id); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) updateStatus(ctx context.Context, query string, args ...any) error {
	res, err := s.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (QueueEntry, error) {
	var (
		e                               QueueEntry
		id, platform, profile, evidence uuid.UUID
		typ, status                     string
	)
	err := row.Scan(&id, &platform, &profile, &evidence, &typ, &e.Recipient, &e.DocumentType, &e.ExpiryDate, &status, &e.Error, &e.ProviderMessageID, &e.CreatedAt, &e.SentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return QueueEntry{}, sentinel.ErrNotFound
	}
	if err != nil {
		return QueueEntry{}, fmt.Errorf("scan notification: %w", err)
	}
	e.ID = domain.NotificationID(id)
	e.PlatformID = domain.PlatformID(platform)
	e.ProfileID = domain.ProfileID(profile)
	e.EvidenceID = domain.EvidenceID(evidence)
	e.Type = Type(typ)
	e.Status = Status(status)
	return e, nil
}
