package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"preuvio/pkg/domain"
	txcontext "preuvio/pkg/platform/tx"
)

// PostgresStore appends to the audit_log table. Appends join a caller
// transaction from context when one is present.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	query := `
		INSERT INTO audit_log (id, platform_id, actor, action, entity_type, entity_id, before, after, reason, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		e.ID, uuid.UUID(e.PlatformID), e.Actor, string(e.Action), e.EntityType, e.EntityID,
		[]byte(e.Before), []byte(e.After), e.Reason, e.RequestID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByPlatform(ctx context.Context, platformID domain.PlatformID) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, platform_id, actor, action, entity_type, entity_id, before, after, reason, request_id, created_at
		FROM audit_log
		WHERE platform_id = $1
		ORDER BY created_at
	`, uuid.UUID(platformID))
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e             Entry
			platform      uuid.UUID
			action        string
			before, after []byte
		)
		if err := rows.Scan(&e.ID, &platform, &e.Actor, &action, &e.EntityType, &e.EntityID,
			&before, &after, &e.Reason, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.PlatformID = domain.PlatformID(platform)
		e.Action = Action(action)
		e.Before = before
		e.After = after
		out = append(out, e)
	}
	return out, rows.Err()
}
