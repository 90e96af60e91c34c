// Package sqlite provides SQLite-backed notification inbox persistence.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/baranex/internal/platform/storage/filter"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/baranex/internal/services/notifications/domain"
	"github.com/louisbranch/baranex/internal/services/notifications/storage/sqlite/migrations"
)

const notificationColumns = `id, recipient_user_id, barangay_id, topic, payload_json, dedupe_key, source, created_at, updated_at, read_at`

// Schema lists the fields accepted by inbox filters.
var Schema = filter.Schema{
	"topic":       {Column: "topic", Kind: filter.String},
	"source":      {Column: "source", Kind: filter.String},
	"read":        {Column: "(read_at IS NOT NULL)", Kind: filter.Bool},
	"create_time": {Column: "created_at", Kind: filter.Timestamp},
}

// Store provides SQLite-backed persistence for notifications state.
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
		return nil, fmt.Errorf("migrate notifications store: %w", err)
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

// PutNotification persists one notification inbox row.
func (s *Store) PutNotification(ctx context.Context, n domain.Notification) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(n.ID) == "" || strings.TrimSpace(n.RecipientUserID) == "" {
		return fmt.Errorf("notification id and recipient are required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO notifications (`+notificationColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.RecipientUserID, n.BarangayID, n.Topic, n.PayloadJSON, n.DedupeKey, n.Source,
		sqlitedb.ToMillis(n.CreatedAt), sqlitedb.ToMillis(n.UpdatedAt), sqlitedb.NullMillis(n.ReadAt),
	)
	if sqlitedb.IsUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("put notification: %w", err)
	}
	return nil
}

// GetNotificationByRecipientAndDedupeKey finds a prior notification.
func (s *Store) GetNotificationByRecipientAndDedupeKey(ctx context.Context, recipientUserID string, dedupeKey string) (domain.Notification, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Notification{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+notificationColumns+` FROM notifications
WHERE recipient_user_id = ? AND dedupe_key = ? AND dedupe_key <> ''`, recipientUserID, dedupeKey)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Notification{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Notification{}, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// ListNotificationsByRecipient lists a recipient's inbox newest first.
func (s *Store) ListNotificationsByRecipient(ctx context.Context, input domain.ListInboxInput) (listing.Page[domain.Notification], error) {
	if err := s.ready(ctx); err != nil {
		return listing.Page[domain.Notification]{}, err
	}
	return listing.Run(ctx, s.sqlDB, listing.Query{
		Table:     "notifications",
		Columns:   notificationColumns,
		Where:     []string{"recipient_user_id = ?"},
		Args:      []any{input.RecipientUserID},
		Schema:    Schema,
		Filter:    input.Filter,
		PageSize:  input.PageSize,
		PageToken: input.PageToken,
	}, scanNotification, func(n domain.Notification) (int64, string) {
		return sqlitedb.ToMillis(n.CreatedAt), n.ID
	})
}

// CountUnreadNotificationsByRecipient counts unread inbox rows.
func (s *Store) CountUnreadNotificationsByRecipient(ctx context.Context, recipientUserID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM notifications WHERE recipient_user_id = ? AND read_at IS NULL`, recipientUserID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkNotificationRead sets read_at once; re-reading keeps the first value.
func (s *Store) MarkNotificationRead(ctx context.Context, recipientUserID string, notificationID string, readAt time.Time) (domain.Notification, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Notification{}, err
	}
	readMillis := sqlitedb.ToMillis(readAt)
	row := s.sqlDB.QueryRowContext(ctx, `
UPDATE notifications
SET read_at = COALESCE(read_at, ?), updated_at = CASE WHEN read_at IS NULL THEN ? ELSE updated_at END
WHERE id = ? AND recipient_user_id = ?
RETURNING `+notificationColumns, readMillis, readMillis, notificationID, recipientUserID)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Notification{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Notification{}, fmt.Errorf("mark notification read: %w", err)
	}
	return n, nil
}

// MarkAllNotificationsRead marks every unread row of the recipient read.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, recipientUserID string, readAt time.Time) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	readMillis := sqlitedb.ToMillis(readAt)
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE notifications SET read_at = ?, updated_at = ?
WHERE recipient_user_id = ? AND read_at IS NULL`, readMillis, readMillis, recipientUserID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return int(affected), nil
}

func scanNotification(row interface{ Scan(...any) error }) (domain.Notification, error) {
	var (
		n                    domain.Notification
		createdAt, updatedAt int64
		readAt               sql.NullInt64
	)
	if err := row.Scan(&n.ID, &n.RecipientUserID, &n.BarangayID, &n.Topic, &n.PayloadJSON,
		&n.DedupeKey, &n.Source, &createdAt, &updatedAt, &readAt); err != nil {
		return domain.Notification{}, err
	}
	n.CreatedAt = sqlitedb.FromMillis(createdAt)
	n.UpdatedAt = sqlitedb.FromMillis(updatedAt)
	n.ReadAt = sqlitedb.FromNullMillis(readAt)
	return n, nil
}
