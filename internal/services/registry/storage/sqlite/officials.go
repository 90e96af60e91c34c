package sqlite

import (
	"context"

	"github.com/louisbranch/baranex/internal/platform/storage/filter"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
)

// OfficialSchema lists the fields accepted by official filters.
var OfficialSchema = withTimes(filter.Schema{
	"position":    {Column: "position", Kind: filter.String},
	"committee":   {Column: "committee", Kind: filter.String},
	"resident_id": {Column: "resident_id", Kind: filter.String},
	"active":      {Column: "active", Kind: filter.Bool},
})

var officials = table[domain.Official]{
	name: "officials",
	columns: []string{"id", "barangay_id", "resident_id", "name", "position", "committee", "term_start",
		"term_end", "contact_phone", "photo_key", "active", "created_at", "updated_at"},
	values: func(o domain.Official) []any {
		return []any{o.ID, o.BarangayID, o.ResidentID, o.Name, string(o.Position), o.Committee, o.TermStart,
			o.TermEnd, o.ContactPhone, o.PhotoKey, sqlitedb.BoolInt(o.Active),
			sqlitedb.ToMillis(o.CreatedAt), sqlitedb.ToMillis(o.UpdatedAt)}
	},
	scan: func(row rowScanner) (domain.Official, error) {
		var (
			o                    domain.Official
			position             string
			createdAt, updatedAt int64
		)
		if err := row.Scan(&o.ID, &o.BarangayID, &o.ResidentID, &o.Name, &position, &o.Committee, &o.TermStart,
			&o.TermEnd, &o.ContactPhone, &o.PhotoKey, &o.Active, &createdAt, &updatedAt); err != nil {
			return domain.Official{}, err
		}
		o.Position = domain.Position(position)
		o.CreatedAt, o.UpdatedAt = sqlitedb.FromMillis(createdAt), sqlitedb.FromMillis(updatedAt)
		return o, nil
	},
	key:    func(o domain.Official) (int64, string) { return createdKey(o.CreatedAt, o.ID) },
	schema: OfficialSchema,
}

// PutOfficial inserts an official.
func (s *Store) PutOfficial(ctx context.Context, o domain.Official) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return officials.insert(ctx, s.sqlDB, o)
}

// UpdateOfficial rewrites an official's mutable columns.
func (s *Store) UpdateOfficial(ctx context.Context, o domain.Official) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return officials.update(ctx, s.sqlDB, o)
}

// GetOfficial returns an official.
func (s *Store) GetOfficial(ctx context.Context, barangayID, officialID string) (domain.Official, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Official{}, err
	}
	return officials.get(ctx, s.sqlDB, barangayID, officialID)
}

// DeleteOfficial removes an official.
func (s *Store) DeleteOfficial(ctx context.Context, barangayID, officialID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return officials.delete(ctx, s.sqlDB, barangayID, officialID)
}

// ListOfficials lists officials newest first.
func (s *Store) ListOfficials(ctx context.Context, q domain.ListQuery) (listing.Page[domain.Official], error) {
	if err := s.ready(ctx); err != nil {
		return emptyPage[domain.Official](), err
	}
	return officials.list(ctx, s.sqlDB, q, nil, nil)
}

// OfficialPhones returns the distinct contact phones of active officials.
func (s *Store) OfficialPhones(ctx context.Context, barangayID string) ([]string, error) {
	return s.phones(ctx, `SELECT DISTINCT contact_phone FROM officials WHERE barangay_id = ? AND active = 1 AND contact_phone != '' ORDER BY contact_phone`, barangayID)
}

// CountActiveOfficials counts a barangay's active officials.
func (s *Store) CountActiveOfficials(ctx context.Context, barangayID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	return officials.count(ctx, s.sqlDB, barangayID, "active = 1")
}
