// Package sqlite provides SQLite-backed embedding persistence.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/baranex/internal/services/assistant/domain"
	"github.com/louisbranch/baranex/internal/services/assistant/storage/sqlite/migrations"
)

// Store implements embedding persistence over SQLite.
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
		return nil, fmt.Errorf("migrate assistant store: %w", err)
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

// Hashes maps kind:source_id keys to content hashes.
func (s *Store) Hashes(ctx context.Context, barangayID string) (map[string]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT kind, source_id, content_hash FROM assistant_embeddings WHERE barangay_id = ?`, barangayID)
	if err != nil {
		return nil, fmt.Errorf("list embedding hashes: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var kind, sourceID, hash string
		if err := rows.Scan(&kind, &sourceID, &hash); err != nil {
			return nil, fmt.Errorf("scan embedding hash: %w", err)
		}
		out[kind+":"+sourceID] = hash
	}
	return out, rows.Err()
}

// Upsert writes embeddings in one transaction.
func (s *Store) Upsert(ctx context.Context, embeddings []domain.Embedding) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if len(embeddings) == 0 {
		return nil
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert embeddings: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO assistant_embeddings (barangay_id, kind, source_id, title, content, content_hash, vector, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(barangay_id, kind, source_id) DO UPDATE SET
    title = excluded.title,
    content = excluded.content,
    content_hash = excluded.content_hash,
    vector = excluded.vector,
    updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert embeddings: %w", err)
	}
	defer stmt.Close()
	for _, e := range embeddings {
		if _, err := stmt.ExecContext(ctx, e.BarangayID, string(e.Kind), e.SourceID, e.Title, e.Content,
			e.ContentHash, domain.EncodeVector(e.Vector), sqlitedb.ToMillis(e.UpdatedAt)); err != nil {
			return fmt.Errorf("upsert embedding %s: %w", e.Key(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert embeddings: %w", err)
	}
	return nil
}

// List returns every embedding of a barangay.
func (s *Store) List(ctx context.Context, barangayID string) ([]domain.Embedding, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT barangay_id, kind, source_id, title, content, content_hash, vector, updated_at
FROM assistant_embeddings WHERE barangay_id = ? ORDER BY kind, source_id`, barangayID)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()
	var out []domain.Embedding
	for rows.Next() {
		var (
			e         domain.Embedding
			kind      string
			blob      []byte
			updatedAt int64
		)
		if err := rows.Scan(&e.BarangayID, &kind, &e.SourceID, &e.Title, &e.Content, &e.ContentHash, &blob, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		e.Kind = domain.Kind(kind)
		if e.Vector, err = domain.DecodeVector(blob); err != nil {
			return nil, fmt.Errorf("decode embedding %s: %w", e.Key(), err)
		}
		e.UpdatedAt = sqlitedb.FromMillis(updatedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes embeddings whose source no longer exists.
func (s *Store) Prune(ctx context.Context, barangayID string, keep map[string]bool) (int, error) {
	hashes, err := s.Hashes(ctx, barangayID)
	if err != nil {
		return 0, err
	}
	removed := 0
	for key := range hashes {
		if keep[key] {
			continue
		}
		kind, sourceID, ok := strings.Cut(key, ":")
		if !ok {
			continue
		}
		res, err := s.sqlDB.ExecContext(ctx,
			`DELETE FROM assistant_embeddings WHERE barangay_id = ? AND kind = ? AND source_id = ?`,
			barangayID, kind, sourceID)
		if err != nil {
			return removed, fmt.Errorf("prune embedding %s: %w", key, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			removed += int(n)
		}
	}
	return removed, nil
}
