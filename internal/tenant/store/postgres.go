package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"preuvio/internal/tenant/models"
	"preuvio/pkg/domain"
	"preuvio/pkg/platform/sentinel"
)

// Postgres persists platforms in the platforms table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, p *models.Platform) error {
	query := `
		INSERT INTO platforms (id, name, slug, logo_url, brand_color, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(p.ID), p.Name, p.Slug, p.LogoURL, p.BrandColor, []byte(p.Settings), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert platform: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.PlatformID) (*models.Platform, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, logo_url, brand_color, settings, created_at, updated_at
		FROM platforms WHERE id = $1
	`, uuid.UUID(id)))
}

func (s *Postgres) FindBySlug(ctx context.Context, slug string) (*models.Platform, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, logo_url, brand_color, settings, created_at, updated_at
		FROM platforms WHERE slug = $1
	`, slug))
}

func (s *Postgres) Update(ctx context.Context, p *models.Platform) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE platforms
		SET name = $2, logo_url = $3, brand_color = $4, settings = $5, updated_at = $6
		WHERE id = $1
	`, uuid.UUID(p.ID), p.Name, p.LogoURL, p.BrandColor, []byte(p.Settings), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update platform: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) scanOne(row *sql.Row) (*models.Platform, error) {
	var (
		p        models.Platform
		id       uuid.UUID
		settings []byte
	)
	err := row.Scan(&id, &p.Name, &p.Slug, &p.LogoURL, &p.BrandColor, &settings, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan platform: %w", err)
	}
	p.ID = domain.PlatformID(id)
	p.Settings = settings
	return &p, nil
}
