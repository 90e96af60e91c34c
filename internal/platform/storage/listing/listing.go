// Package listing builds keyset-paginated, filtered SELECT statements over
// tables ordered by (created_at DESC, id DESC).
package listing

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/storage/cursor"
	"github.com/louisbranch/baranex/internal/platform/storage/filter"
)

// Query describes one page request against a table.
type Query struct {
	Table   string
	Columns string
	// Where holds scope clauses (tenant, owner) joined with AND.
	Where []string
	Args  []any
	// Schema declares the fields Filter may reference.
	Schema    filter.Schema
	Filter    string
	PageSize  int
	PageToken string
}

// Page is a page of rows plus the token for the next one.
type Page[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

// Build renders the SELECT statement. It fetches one extra row so Run can
// tell whether another page exists.
func (q Query) Build() (string, []any, int, error) {
	if strings.TrimSpace(q.Table) == "" || strings.TrimSpace(q.Columns) == "" {
		return "", nil, 0, fmt.Errorf("table and columns are required")
	}
	where := append([]string(nil), q.Where...)
	args := append([]any(nil), q.Args...)

	cond, err := filter.Parse(q.Schema, q.Filter)
	if err != nil {
		return "", nil, 0, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid filter", err)
	}
	if !cond.Empty() {
		where = append(where, "("+cond.Clause+")")
		args = append(args, cond.Params...)
	}

	if strings.TrimSpace(q.PageToken) != "" {
		c, err := cursor.Decode(q.PageToken, q.Filter)
		if err != nil {
			return "", nil, 0, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid page token", err)
		}
		where = append(where, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, c.CreatedAt, c.CreatedAt, c.ID)
	}

	pageSize := cursor.PageSize(q.PageSize)
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(q.Columns)
	b.WriteString(" FROM ")
	b.WriteString(q.Table)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC LIMIT ?")
	args = append(args, pageSize+1)
	return b.String(), args, pageSize, nil
}

// Scanner scans one row into T.
type Scanner[T any] func(row interface{ Scan(...any) error }) (T, error)

// Key returns the created_at millis and id used to build the next token.
type Key[T any] func(item T) (int64, string)

// Run executes q and assembles a page.
func Run[T any](ctx context.Context, db *sql.DB, q Query, scan Scanner[T], key Key[T]) (Page[T], error) {
	if err := ctx.Err(); err != nil {
		return Page[T]{}, err
	}
	if db == nil {
		return Page[T]{}, fmt.Errorf("storage is not configured")
	}
	stmt, args, pageSize, err := q.Build()
	if err != nil {
		return Page[T]{}, err
	}
	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return Page[T]{}, fmt.Errorf("list %s: %w", q.Table, err)
	}
	defer rows.Close()

	items := make([]T, 0, pageSize)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return Page[T]{}, fmt.Errorf("scan %s: %w", q.Table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return Page[T]{}, fmt.Errorf("list %s: %w", q.Table, err)
	}

	page := Page[T]{Items: items}
	if len(items) > pageSize {
		page.Items = items[:pageSize]
		createdAt, id := key(page.Items[pageSize-1])
		token, err := cursor.Next(createdAt, id, q.Filter)
		if err != nil {
			return Page[T]{}, err
		}
		page.NextPageToken = token
	}
	return page, nil
}
