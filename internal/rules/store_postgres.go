package rules

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"preuvio/pkg/domain"
	"preuvio/pkg/platform/sentinel"
)

// PostgresStore reads rules packages from the rules_packages table. Items are
// stored as a JSON column; packages are small and read-heavy, so a side table
// would buy nothing.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByPlatform(ctx context.Context, platformID domain.PlatformID) (*Package, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, platform_id, name, version, items, created_at
		FROM rules_packages
		WHERE platform_id = $1
		ORDER BY version DESC
		LIMIT 1
	`, uuid.UUID(platformID))
	return scanPackage(row)
}

func (s *PostgresStore) GlobalTemplate(ctx context.Context) (*Package, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, platform_id, name, version, items, created_at
		FROM rules_packages
		WHERE platform_id IS NULL
		ORDER BY version DESC
		LIMIT 1
	`)
	return scanPackage(row)
}

func (s *PostgresStore) Save(ctx context.Context, pkg *Package) error {
	items, err := json.Marshal(pkg.Items)
	if err != nil {
		return fmt.Errorf("marshal rules items: %w", err)
	}
	var platformID any
	if pkg.PlatformID != nil {
		platformID = uuid.UUID(*pkg.PlatformID)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rules_packages (id, platform_id, name, version, items, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, version = EXCLUDED.version, items = EXCLUDED.items
	`, uuid.UUID(pkg.ID), platformID, pkg.Name, pkg.Version, items, pkg.CreatedAt)
	if err != nil {
		return fmt.Errorf("save rules package: %w", err)
	}
	return nil
}

func scanPackage(row *sql.Row) (*Package, error) {
	var (
		pkg        Package
		id         uuid.UUID
		platformID uuid.NullUUID
		items      []byte
	)
	err := row.Scan(&id, &platformID, &pkg.Name, &pkg.Version, &items, &pkg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan rules package: %w", err)
	}
	pkg.ID = domain.RulesPackageID(id)
	if platformID.Valid {
		pid := domain.PlatformID(platformID.UUID)
		pkg.PlatformID = &pid
	}
	if err := json.Unmarshal(items, &pkg.Items); err != nil {
		return nil, fmt.Errorf("unmarshal rules items: %w", err)
	}
	return &pkg, nil
}
