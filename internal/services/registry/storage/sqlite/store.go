// Package sqlite provides SQLite-backed registry persistence.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/baranex/internal/platform/storage/filter"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
	"github.com/louisbranch/baranex/internal/services/registry/storage/sqlite/migrations"
)

// Store implements registry persistence over SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ domain.Store = (*Store)(nil)

// New wraps a shared database handle and applies bundled migrations.
func New(ctx context.Context, sqlDB *sql.DB) (*Store, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	if err := sqlitedb.Migrate(ctx, sqlDB, migrations.FS, "."); err != nil {
		return nil, fmt.Errorf("migrate registry store: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// PutBarangay inserts or updates a barangay by id.
func (s *Store) PutBarangay(ctx context.Context, b domain.Barangay) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO barangays (id, name, municipality, province, region, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    municipality = excluded.municipality,
    province = excluded.province,
    region = excluded.region,
    updated_at = excluded.updated_at`,
		b.ID, b.Name, b.Municipality, b.Province, b.Region,
		sqlitedb.ToMillis(b.CreatedAt), sqlitedb.ToMillis(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put barangay: %w", err)
	}
	return nil
}

const barangayColumns = `id, name, municipality, province, region, created_at, updated_at`

// GetBarangay returns a barangay by id.
func (s *Store) GetBarangay(ctx context.Context, barangayID string) (domain.Barangay, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Barangay{}, err
	}
	b, err := scanBarangay(s.sqlDB.QueryRowContext(ctx,
		`SELECT `+barangayColumns+` FROM barangays WHERE id = ?`, barangayID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Barangay{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Barangay{}, fmt.Errorf("get barangay: %w", err)
	}
	return b, nil
}

// ListBarangays returns every barangay ordered by name.
func (s *Store) ListBarangays(ctx context.Context) ([]domain.Barangay, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+barangayColumns+` FROM barangays ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list barangays: %w", err)
	}
	defer rows.Close()
	var out []domain.Barangay
	for rows.Next() {
		b, err := scanBarangay(rows)
		if err != nil {
			return nil, fmt.Errorf("scan barangay: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBarangay(row rowScanner) (domain.Barangay, error) {
	var (
		b                    domain.Barangay
		createdAt, updatedAt int64
	)
	if err := row.Scan(&b.ID, &b.Name, &b.Municipality, &b.Province, &b.Region, &createdAt, &updatedAt); err != nil {
		return domain.Barangay{}, err
	}
	b.CreatedAt, b.UpdatedAt = sqlitedb.FromMillis(createdAt), sqlitedb.FromMillis(updatedAt)
	return b, nil
}

// phones returns distinct non-empty phone column values of a barangay.
func (s *Store) phones(ctx context.Context, query, barangayID string) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, barangayID)
	if err != nil {
		return nil, fmt.Errorf("list phones: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, fmt.Errorf("scan phone: %w", err)
		}
		out = append(out, phone)
	}
	return out, rows.Err()
}

func createdKey(createdAt time.Time, id string) (int64, string) {
	return sqlitedb.ToMillis(createdAt), id
}

var timeFields = filter.Schema{
	"create_time": {Column: "created_at", Kind: filter.Timestamp},
	"update_time": {Column: "updated_at", Kind: filter.Timestamp},
}

func withTimes(fields filter.Schema) filter.Schema {
	out := make(filter.Schema, len(fields)+len(timeFields))
	for name, f := range timeFields {
		out[name] = f
	}
	for name, f := range fields {
		out[name] = f
	}
	return out
}

func emptyPage[T any]() listing.Page[T] { return listing.Page[T]{} }
