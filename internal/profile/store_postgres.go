package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"preuvio/pkg/domain"
	"preuvio/pkg/platform/sentinel"
	txcontext "preuvio/pkg/platform/tx"
)

// PostgresStore persists profiles in the end_user_profiles table. Writes join
// a caller transaction from context when one is present so the review cascade
// can commit evidence and profile updates atomically.
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

const profileColumns = `id, platform_id, business_name, contact_email, contact_phone, status, trust_score, external_ref, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO end_user_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID), uuid.UUID(p.PlatformID), p.BusinessName, p.ContactEmail, p.ContactPhone,
		string(p.Status), p.TrustScore, p.ExternalRef, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ProfileID) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+` FROM end_user_profiles WHERE id = $1
	`, uuid.UUID(id))
	return scanProfile(row)
}

func (s *PostgresStore) ListByPlatform(ctx context.Context, platformID domain.PlatformID) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+` FROM end_user_profiles
		WHERE platform_id = $1
		ORDER BY created_at
	`, uuid.UUID(platformID))
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id domain.ProfileID, status Status, now time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE end_user_profiles SET status = $2, updated_at = $3 WHERE id = $1
	`, uuid.UUID(id), string(status), now)
	if err != nil {
		return fmt.Errorf("update profile status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var (
		p          Profile
		id         uuid.UUID
		platformID uuid.UUID
		status     string
	)
	err := row.Scan(&id, &platformID, &p.BusinessName, &p.ContactEmail, &p.ContactPhone,
		&status, &p.TrustScore, &p.ExternalRef, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	p.ID = domain.ProfileID(id)
	p.PlatformID = domain.PlatformID(platformID)
	p.Status = Status(status)
	return &p, nil
}
