package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/louisbranch/baranex/internal/platform/storage/filter"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
)

// DocumentSchema lists the fields accepted by document filters.
var DocumentSchema = withTimes(filter.Schema{
	"status":         {Column: "status", Kind: filter.String},
	"type":           {Column: "type", Kind: filter.String},
	"resident_id":    {Column: "resident_id", Kind: filter.String},
	"requested_by":   {Column: "requested_by", Kind: filter.String},
	"control_number": {Column: "control_number", Kind: filter.String},
	"release_time":   {Column: "released_at", Kind: filter.Timestamp},
})

var documents = table[domain.Document]{
	name: "documents",
	columns: []string{"id", "barangay_id", "resident_id", "requested_by", "type", "purpose", "status",
		"control_number", "fee", "remarks", "released_at", "created_at", "updated_at"},
	values: func(d domain.Document) []any {
		return []any{d.ID, d.BarangayID, d.ResidentID, d.RequestedBy, string(d.Type), d.Purpose, string(d.Status),
			d.ControlNumber, d.Fee, d.Remarks, sqlitedb.NullMillis(d.ReleasedAt),
			sqlitedb.ToMillis(d.CreatedAt), sqlitedb.ToMillis(d.UpdatedAt)}
	},
	scan: func(row rowScanner) (domain.Document, error) {
		var (
			d                    domain.Document
			docType, status      string
			releasedAt           sql.NullInt64
			createdAt, updatedAt int64
		)
		if err := row.Scan(&d.ID, &d.BarangayID, &d.ResidentID, &d.RequestedBy, &docType, &d.Purpose, &status,
			&d.ControlNumber, &d.Fee, &d.Remarks, &releasedAt, &createdAt, &updatedAt); err != nil {
			return domain.Document{}, err
		}
		d.Type, d.Status = domain.DocumentType(docType), domain.DocumentStatus(status)
		d.ReleasedAt = sqlitedb.FromNullMillis(releasedAt)
		d.CreatedAt, d.UpdatedAt = sqlitedb.FromMillis(createdAt), sqlitedb.FromMillis(updatedAt)
		return d, nil
	},
	key:    func(d domain.Document) (int64, string) { return createdKey(d.CreatedAt, d.ID) },
	schema: DocumentSchema,
}

// PutDocument inserts a document request.
func (s *Store) PutDocument(ctx context.Context, d domain.Document) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return documents.insert(ctx, s.sqlDB, d)
}

// UpdateDocument rewrites a document's mutable columns.
func (s *Store) UpdateDocument(ctx context.Context, d domain.Document) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return documents.update(ctx, s.sqlDB, d)
}

// GetDocument returns a document request.
func (s *Store) GetDocument(ctx context.Context, barangayID, documentID string) (domain.Document, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Document{}, err
	}
	return documents.get(ctx, s.sqlDB, barangayID, documentID)
}

// DeleteDocument removes a document request.
func (s *Store) DeleteDocument(ctx context.Context, barangayID, documentID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return documents.delete(ctx, s.sqlDB, barangayID, documentID)
}

// ListDocuments lists document requests newest first.
func (s *Store) ListDocuments(ctx context.Context, q domain.DocumentQuery) (listing.Page[domain.Document], error) {
	if err := s.ready(ctx); err != nil {
		return emptyPage[domain.Document](), err
	}
	var (
		where []string
		args  []any
	)
	if strings.TrimSpace(q.RequestedBy) != "" {
		where, args = append(where, "requested_by = ?"), append(args, q.RequestedBy)
	}
	return documents.list(ctx, s.sqlDB, q.ListQuery, where, args)
}

// CountPendingDocuments counts requests not yet released or rejected.
func (s *Store) CountPendingDocuments(ctx context.Context, barangayID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	return documents.count(ctx, s.sqlDB, barangayID, "status IN ('pending', 'processing', 'ready')")
}
