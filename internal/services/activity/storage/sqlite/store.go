// Package sqlite provides SQLite-backed activity persistence.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/louisbranch/baranex/internal/platform/storage/filter"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/baranex/internal/services/activity/domain"
	"github.com/louisbranch/baranex/internal/services/activity/storage/sqlite/migrations"
)

const entryColumns = `id, barangay_id, actor_user_id, action, entity_type, entity_id, details_json, created_at`

// Schema lists the fields accepted by activity filters.
var Schema = filter.Schema{
	"action":      {Column: "action", Kind: filter.String},
	"entity_type": {Column: "entity_type", Kind: filter.String},
	"entity_id":   {Column: "entity_id", Kind: filter.String},
	"actor":       {Column: "actor_user_id", Kind: filter.String},
	"create_time": {Column: "created_at", Kind: filter.Timestamp},
}

// Store implements activity persistence over SQLite.
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
		return nil, fmt.Errorf("migrate activity store: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// PutEntry appends an entry.
func (s *Store) PutEntry(ctx context.Context, entry domain.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	details := []byte("{}")
	if len(entry.Details) > 0 {
		var err error
		if details, err = json.Marshal(entry.Details); err != nil {
			return fmt.Errorf("encode details: %w", err)
		}
	}
	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO activity_log (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.BarangayID, entry.ActorUserID, entry.Action, entry.EntityType,
		entry.EntityID, string(details), sqlitedb.ToMillis(entry.CreatedAt),
	); err != nil {
		return fmt.Errorf("put activity entry: %w", err)
	}
	return nil
}

// ListEntries lists entries newest first.
func (s *Store) ListEntries(ctx context.Context, query domain.Query) (listing.Page[domain.Entry], error) {
	if s == nil {
		return listing.Page[domain.Entry]{}, fmt.Errorf("storage is not configured")
	}
	q := listing.Query{
		Table:     "activity_log",
		Columns:   entryColumns,
		Where:     []string{"barangay_id = ?"},
		Args:      []any{query.BarangayID},
		Schema:    Schema,
		Filter:    query.Filter,
		PageSize:  query.PageSize,
		PageToken: query.PageToken,
	}
	if query.ActorUserID != "" {
		q.Where = append(q.Where, "actor_user_id = ?")
		q.Args = append(q.Args, query.ActorUserID)
	}
	return listing.Run(ctx, s.sqlDB, q, scanEntry, func(e domain.Entry) (int64, string) {
		return sqlitedb.ToMillis(e.CreatedAt), e.ID
	})
}

func scanEntry(row interface{ Scan(...any) error }) (domain.Entry, error) {
	var (
		entry     domain.Entry
		details   string
		createdAt int64
	)
	if err := row.Scan(&entry.ID, &entry.BarangayID, &entry.ActorUserID, &entry.Action,
		&entry.EntityType, &entry.EntityID, &details, &createdAt); err != nil {
		return domain.Entry{}, err
	}
	if details != "" && details != "{}" {
		if err := json.Unmarshal([]byte(details), &entry.Details); err != nil {
			return domain.Entry{}, fmt.Errorf("decode details: %w", err)
		}
	}
	entry.CreatedAt = sqlitedb.FromMillis(createdAt)
	return entry, nil
}
