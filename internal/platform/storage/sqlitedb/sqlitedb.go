// Package sqlitedb opens SQLite databases the way every Baranex store expects
// them: WAL journal, busy timeout, foreign keys on, and embedded migrations
// applied.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Open opens (creating if needed) the database at path and applies the
// migrations found under root in migrationFS.
func Open(ctx context.Context, path string, migrationFS fs.FS, root string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite store: %w", err)
	}
	if migrationFS != nil {
		if err := Migrate(ctx, sqlDB, migrationFS, root); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

// IsUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "unique constraint failed") ||
		strings.Contains(value, "constraint failed: unique") ||
		strings.Contains(value, "primary key must be unique")
}

// ToMillis converts a time to UTC unix milliseconds.
func ToMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// FromMillis converts UTC unix milliseconds to a time.
func FromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// NullMillis converts an optional time for storage.
func NullMillis(value *time.Time) sql.NullInt64 {
	if value == nil || value.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: ToMillis(*value), Valid: true}
}

// FromNullMillis converts an optional stored time.
func FromNullMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := FromMillis(value.Int64)
	return &t
}

// BoolInt converts a bool to the 0/1 integer SQLite stores.
func BoolInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
