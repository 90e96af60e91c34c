package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/baranex/internal/platform/storage/filter"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// table maps one entity onto one SQL table. columns[0] must be id and
// columns[1] barangay_id; values returns arguments in column order.
type table[T any] struct {
	name    string
	columns []string
	// extra is appended to the select list, after columns.
	extra  string
	values func(T) []any
	scan   func(rowScanner) (T, error)
	key    func(T) (int64, string)
	schema filter.Schema
}

// immutable columns are never rewritten by update.
var immutable = map[string]bool{"id": true, "barangay_id": true, "created_at": true, "created_by": true}

func (t table[T]) selectList() string {
	cols := strings.Join(t.columns, ", ")
	if t.extra != "" {
		cols += ", " + t.extra
	}
	return cols
}

func (t table[T]) insert(ctx context.Context, db execQuerier, item T) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	_, err := db.ExecContext(ctx,
		"INSERT INTO "+t.name+" ("+strings.Join(t.columns, ", ")+") VALUES ("+placeholders+")",
		t.values(item)...)
	if err != nil {
		if sqlitedb.IsUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	return nil
}

func (t table[T]) update(ctx context.Context, db execQuerier, item T) error {
	values := t.values(item)
	sets := make([]string, 0, len(t.columns))
	args := make([]any, 0, len(t.columns)+2)
	for i, col := range t.columns {
		if immutable[col] {
			continue
		}
		sets = append(sets, col+" = ?")
		args = append(args, values[i])
	}
	args = append(args, values[0], values[1])
	res, err := db.ExecContext(ctx,
		"UPDATE "+t.name+" SET "+strings.Join(sets, ", ")+" WHERE id = ? AND barangay_id = ?", args...)
	if err != nil {
		if sqlitedb.IsUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("update %s: %w", t.name, err)
	}
	return expectOne(res)
}

// scope renders the id lookup; an empty barangayID matches any barangay.
func scope(barangayID, id string) (string, []any) {
	if barangayID == "" {
		return "id = ?", []any{id}
	}
	return "id = ? AND barangay_id = ?", []any{id, barangayID}
}

func (t table[T]) get(ctx context.Context, db execQuerier, barangayID, id string) (T, error) {
	var zero T
	where, args := scope(barangayID, id)
	item, err := t.scan(db.QueryRowContext(ctx, "SELECT "+t.selectList()+" FROM "+t.name+" WHERE "+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return zero, domain.ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("get %s: %w", t.name, err)
	}
	return item, nil
}

func (t table[T]) delete(ctx context.Context, db execQuerier, barangayID, id string) error {
	where, args := scope(barangayID, id)
	res, err := db.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE "+where, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	return expectOne(res)
}

func (t table[T]) list(ctx context.Context, db *sql.DB, q domain.ListQuery, where []string, args []any) (listing.Page[T], error) {
	if q.BarangayID != "" {
		where = append([]string{"barangay_id = ?"}, where...)
		args = append([]any{q.BarangayID}, args...)
	}
	return listing.Run(ctx, db, listing.Query{
		Table:     t.name,
		Columns:   t.selectList(),
		Where:     where,
		Args:      args,
		Schema:    t.schema,
		Filter:    q.Filter,
		PageSize:  q.PageSize,
		PageToken: q.PageToken,
	}, t.scanRow, t.key)
}

func (t table[T]) scanRow(row interface{ Scan(...any) error }) (T, error) {
	return t.scan(row)
}

func (t table[T]) count(ctx context.Context, db execQuerier, barangayID, where string, args ...any) (int64, error) {
	query := "SELECT COUNT(*) FROM " + t.name + " WHERE barangay_id = ?"
	if where != "" {
		query += " AND " + where
	}
	var n int64
	if err := db.QueryRowContext(ctx, query, append([]any{barangayID}, args...)...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	return n, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
