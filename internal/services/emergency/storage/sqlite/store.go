// Package sqlite provides SQLite-backed emergency persistence.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/baranex/internal/platform/storage/filter"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/baranex/internal/services/emergency/domain"
	"github.com/louisbranch/baranex/internal/services/emergency/storage/sqlite/migrations"
)

// Store implements emergency persistence over SQLite.
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
		return nil, fmt.Errorf("migrate emergency store: %w", err)
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

// RequestSchema lists the fields accepted by request filters.
var RequestSchema = filter.Schema{
	"type":         {Column: "type", Kind: filter.String},
	"status":       {Column: "status", Kind: filter.String},
	"location":     {Column: "location", Kind: filter.String},
	"requester":    {Column: "requester_user_id", Kind: filter.String},
	"responder":    {Column: "responder_user_id", Kind: filter.String},
	"create_time":  {Column: "created_at", Kind: filter.Timestamp},
	"update_time":  {Column: "updated_at", Kind: filter.Timestamp},
	"resolve_time": {Column: "resolved_at", Kind: filter.Timestamp},
}

// AlertSchema lists the fields accepted by alert filters.
var AlertSchema = filter.Schema{
	"audience":    {Column: "audience", Kind: filter.String},
	"sent_by":     {Column: "sent_by", Kind: filter.String},
	"failed":      {Column: "failed", Kind: filter.Int},
	"create_time": {Column: "created_at", Kind: filter.Timestamp},
}

const requestColumns = `id, barangay_id, requester_user_id, type, description, location, latitude, longitude,
contact_phone, status, responder_user_id, created_at, updated_at, resolved_at`

// activeClause matches requests still awaiting resolution.
const activeClause = "status IN ('pending', 'acknowledged', 'responding')"

// PutRequest inserts a request.
func (s *Store) PutRequest(ctx context.Context, r domain.Request) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `INSERT INTO emergency_requests (`+requestColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.BarangayID, r.RequesterUserID, string(r.Type), r.Description, r.Location,
		nullFloat(r.Latitude), nullFloat(r.Longitude), r.ContactPhone, string(r.Status), r.ResponderUserID,
		sqlitedb.ToMillis(r.CreatedAt), sqlitedb.ToMillis(r.UpdatedAt), sqlitedb.NullMillis(r.ResolvedAt))
	if err != nil {
		return fmt.Errorf("put emergency request: %w", err)
	}
	return nil
}

// UpdateRequest rewrites a request's response fields.
func (s *Store) UpdateRequest(ctx context.Context, r domain.Request) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE emergency_requests
SET status = ?, responder_user_id = ?, updated_at = ?, resolved_at = ?
WHERE id = ? AND barangay_id = ?`,
		string(r.Status), r.ResponderUserID, sqlitedb.ToMillis(r.UpdatedAt), sqlitedb.NullMillis(r.ResolvedAt),
		r.ID, r.BarangayID)
	if err != nil {
		return fmt.Errorf("update emergency request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetRequest returns a request; an empty barangayID matches any barangay.
func (s *Store) GetRequest(ctx context.Context, barangayID, requestID string) (domain.Request, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Request{}, err
	}
	query := `SELECT ` + requestColumns + ` FROM emergency_requests WHERE id = ?`
	args := []any{requestID}
	if barangayID != "" {
		query += ` AND barangay_id = ?`
		args = append(args, barangayID)
	}
	r, err := scanRequest(s.sqlDB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Request{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Request{}, fmt.Errorf("get emergency request: %w", err)
	}
	return r, nil
}

// ListRequests returns one page of requests, newest first.
func (s *Store) ListRequests(ctx context.Context, q domain.ListQuery) (listing.Page[domain.Request], error) {
	if err := s.ready(ctx); err != nil {
		return listing.Page[domain.Request]{}, err
	}
	var (
		where []string
		args  []any
	)
	if q.BarangayID != "" {
		where = append(where, "barangay_id = ?")
		args = append(args, q.BarangayID)
	}
	if q.RequesterUserID != "" {
		where = append(where, "requester_user_id = ?")
		args = append(args, q.RequesterUserID)
	}
	return listing.Run(ctx, s.sqlDB, listing.Query{
		Table:     "emergency_requests",
		Columns:   requestColumns,
		Where:     where,
		Args:      args,
		Schema:    RequestSchema,
		Filter:    q.Filter,
		PageSize:  q.PageSize,
		PageToken: q.PageToken,
	}, scanRequest, requestKey)
}

// ActiveRequests returns a barangay's open requests, oldest first. An empty
// barangay id spans every barangay.
func (s *Store) ActiveRequests(ctx context.Context, barangayID string) ([]domain.Request, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+requestColumns+` FROM emergency_requests
WHERE (? = '' OR barangay_id = ?) AND `+activeClause+` ORDER BY created_at, id`, barangayID, barangayID)
	if err != nil {
		return nil, fmt.Errorf("list active emergency requests: %w", err)
	}
	defer rows.Close()
	out := []domain.Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan emergency request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountActive counts a barangay's open requests.
func (s *Store) CountActive(ctx context.Context, barangayID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var n int64
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM emergency_requests WHERE barangay_id = ? AND `+activeClause, barangayID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active emergency requests: %w", err)
	}
	return n, nil
}

const alertColumns = `id, barangay_id, sent_by, message, audience, recipients, sent, failed, created_at`

// PutAlert records a broadcast.
func (s *Store) PutAlert(ctx context.Context, a domain.Alert) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `INSERT INTO sms_alerts (`+alertColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.BarangayID, a.SentBy, a.Message, string(a.Audience), a.Recipients, a.Sent, a.Failed,
		sqlitedb.ToMillis(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("put sms alert: %w", err)
	}
	return nil
}

// ListAlerts returns one page of alerts, newest first.
func (s *Store) ListAlerts(ctx context.Context, q domain.ListQuery) (listing.Page[domain.Alert], error) {
	if err := s.ready(ctx); err != nil {
		return listing.Page[domain.Alert]{}, err
	}
	var (
		where []string
		args  []any
	)
	if q.BarangayID != "" {
		where = append(where, "barangay_id = ?")
		args = append(args, q.BarangayID)
	}
	return listing.Run(ctx, s.sqlDB, listing.Query{
		Table:     "sms_alerts",
		Columns:   alertColumns,
		Where:     where,
		Args:      args,
		Schema:    AlertSchema,
		Filter:    q.Filter,
		PageSize:  q.PageSize,
		PageToken: q.PageToken,
	}, scanAlert, func(a domain.Alert) (int64, string) { return sqlitedb.ToMillis(a.CreatedAt), a.ID })
}

type rowScanner = interface{ Scan(...any) error }

func scanRequest(row rowScanner) (domain.Request, error) {
	var (
		r                    domain.Request
		kind, status         string
		lat, lng             sql.NullFloat64
		createdAt, updatedAt int64
		resolvedAt           sql.NullInt64
	)
	if err := row.Scan(&r.ID, &r.BarangayID, &r.RequesterUserID, &kind, &r.Description, &r.Location,
		&lat, &lng, &r.ContactPhone, &status, &r.ResponderUserID, &createdAt, &updatedAt, &resolvedAt); err != nil {
		return domain.Request{}, err
	}
	r.Type, r.Status = domain.Type(kind), domain.Status(status)
	if lat.Valid && lng.Valid {
		r.Latitude, r.Longitude = &lat.Float64, &lng.Float64
	}
	r.CreatedAt, r.UpdatedAt = sqlitedb.FromMillis(createdAt), sqlitedb.FromMillis(updatedAt)
	r.ResolvedAt = sqlitedb.FromNullMillis(resolvedAt)
	return r, nil
}

func requestKey(r domain.Request) (int64, string) {
	return sqlitedb.ToMillis(r.CreatedAt), r.ID
}

func scanAlert(row rowScanner) (domain.Alert, error) {
	var (
		a         domain.Alert
		audience  string
		createdAt int64
	)
	if err := row.Scan(&a.ID, &a.BarangayID, &a.SentBy, &a.Message, &audience, &a.Recipients, &a.Sent,
		&a.Failed, &createdAt); err != nil {
		return domain.Alert{}, err
	}
	a.Audience = domain.Audience(audience)
	a.CreatedAt = sqlitedb.FromMillis(createdAt)
	return a, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
