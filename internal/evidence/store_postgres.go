package evidence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

const evidenceColumns = `id, platform_id, profile_id, link_id, document_type, document_name, object_key,
	content_type, size_bytes, status, review_status, reviewed_by, reviewed_at, reject_reason,
	issued_at, expires_at, analysis, confidence, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, e Evidence) error {
	query := `
		INSERT INTO evidences (` + evidenceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.ID), uuid.UUID(e.PlatformID), uuid.UUID(e.ProfileID), uuid.UUID(e.LinkID),
		e.DocumentType, e.DocumentName, e.ObjectKey, e.ContentType, e.SizeBytes,
		string(e.Status), string(e.ReviewStatus), e.ReviewedBy, e.ReviewedAt, e.RejectReason,
		e.IssuedAt, e.ExpiresAt, []byte(e.Analysis), e.Confidence, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.EvidenceID) (Evidence, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT `+evidenceColumns+` FROM evidences WHERE id = $1
	`, uuid.UUID(id))
	return scanEvidence(row)
}

func (s *PostgresStore) ListByProfile(ctx context.Context, profileID domain.ProfileID) ([]Evidence, error) {
	return s.query(ctx, `
		SELECT `+evidenceColumns+` FROM evidences WHERE profile_id = $1 ORDER BY created_at
	`, uuid.UUID(profileID))
}

func (s *PostgresStore) ListByPlatform(ctx context.Context, platformID domain.PlatformID) ([]Evidence, error) {
	return s.query(ctx, `
		SELECT `+evidenceColumns+` FROM evidences WHERE platform_id = $1 ORDER BY created_at
	`, uuid.UUID(platformID))
}

func (s *PostgresStore) ListApprovedWithExpiry(ctx context.Context) ([]Evidence, error) {
	return s.query(ctx, `
		SELECT `+evidenceColumns+` FROM evidences
		WHERE review_status = 'approved' AND expires_at IS NOT NULL
		ORDER BY expires_at
	`)
}

func (s *PostgresStore) UpdateReview(ctx context.Context, id domain.EvidenceID, u ReviewUpdate) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE evidences
		SET status = $1, review_status = $2, reviewed_by = $3, reviewed_at = $4,
		    reject_reason = $5, updated_at = $4
		WHERE id = $6
	`, string(u.Status), string(u.ReviewStatus), u.ReviewedBy, u.ReviewedAt, u.RejectReason, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("update evidence review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update evidence review: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]Evidence, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query evidences: %w", err)
	}
	defer rows.Close()

	var out []Evidence
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvidence(row rowScanner) (Evidence, error) {
	var (
		e                           Evidence
		id, platform, profile, link uuid.UUID
		status, reviewStatus        string
		analysis                    []byte
	)
	err := row.Scan(&id, &platform, &profile, &link, &e.DocumentType, &e.DocumentName, &e.ObjectKey,
		&e.ContentType, &e.SizeBytes, &status, &reviewStatus, &e.ReviewedBy, &e.ReviewedAt, &e.RejectReason,
		&e.IssuedAt, &e.ExpiresAt, &analysis, &e.Confidence, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Evidence{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Evidence{}, fmt.Errorf("scan evidence: %w", err)
	}
	e.ID = domain.EvidenceID(id)
	e.PlatformID = domain.PlatformID(platform)
	e.ProfileID = domain.ProfileID(profile)
	e.LinkID = domain.LinkID(link)
	e.Status = Status(status)
	e.ReviewStatus = ReviewStatus(reviewStatus)
	e.Analysis = analysis
	return e, nil
}
