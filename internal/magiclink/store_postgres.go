package magiclink

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
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, link MagicLink) error {
	query := `
		INSERT INTO magic_links (id, platform_id, profile_id, token_hash, expires_at, used_at, revoked_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(link.ID), uuid.UUID(link.PlatformID), uuid.UUID(link.ProfileID),
		link.TokenHash, link.ExpiresAt, link.UsedAt, link.RevokedAt, link.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert magic link: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByHash(ctx context.Context, tokenHash string) (MagicLink, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, platform_id, profile_id, token_hash, expires_at, used_at, revoked_at, created_at
		FROM magic_links
		WHERE token_hash = $1
	`, tokenHash)

	var (
		link                 MagicLink
		id, platform, profile uuid.UUID
	)
	err := row.Scan(&id, &platform, &profile, &link.TokenHash,
		&link.ExpiresAt, &link.UsedAt, &link.RevokedAt, &link.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return MagicLink{}, sentinel.ErrNotFound
	}
	if err != nil {
		return MagicLink{}, fmt.Errorf("find magic link: %w", err)
	}
	link.ID = domain.LinkID(id)
	link.PlatformID = domain.PlatformID(platform)
	link.ProfileID = domain.ProfileID(profile)
	return link, nil
}

func (s *PostgresStore) RevokeActiveForProfile(ctx context.Context, profileID domain.ProfileID, at time.Time) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE magic_links SET revoked_at = $1
		WHERE profile_id = $2 AND revoked_at IS NULL
	`, at, uuid.UUID(profileID))
	if err != nil {
		return 0, fmt.Errorf("revoke magic links: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke magic links: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) MarkUsed(ctx context.Context, id domain.LinkID, at time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE magic_links SET used_at = $1
		WHERE id = $2 AND used_at IS NULL
	`, at, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("mark magic link used: %w", err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("mark magic link used: %w", err)
	}
	return nil
}
