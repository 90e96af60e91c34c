package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/louisbranch/baranex/internal/platform/storage/filter"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
)

const visibleClause = "published_at IS NOT NULL AND published_at <= ? AND (expires_at IS NULL OR expires_at > ?)"

// AnnouncementSchema lists the fields accepted by announcement filters.
var AnnouncementSchema = withTimes(filter.Schema{
	"category":     {Column: "category", Kind: filter.String},
	"pinned":       {Column: "pinned", Kind: filter.Bool},
	"author":       {Column: "author_user_id", Kind: filter.String},
	"published":    {Column: "(published_at IS NOT NULL)", Kind: filter.Bool},
	"publish_time": {Column: "published_at", Kind: filter.Timestamp},
	"expire_time":  {Column: "expires_at", Kind: filter.Timestamp},
})

var announcements = table[domain.Announcement]{
	name: "announcements",
	columns: []string{"id", "barangay_id", "title", "body", "category", "pinned", "published_at", "expires_at",
		"author_user_id", "created_at", "updated_at"},
	values: func(a domain.Announcement) []any {
		return []any{a.ID, a.BarangayID, a.Title, a.Body, a.Category, sqlitedb.BoolInt(a.Pinned),
			sqlitedb.NullMillis(a.PublishedAt), sqlitedb.NullMillis(a.ExpiresAt), a.AuthorUserID,
			sqlitedb.ToMillis(a.CreatedAt), sqlitedb.ToMillis(a.UpdatedAt)}
	},
	scan: func(row rowScanner) (domain.Announcement, error) {
		var (
			a                      domain.Announcement
			publishedAt, expiresAt sql.NullInt64
			createdAt, updatedAt   int64
		)
		if err := row.Scan(&a.ID, &a.BarangayID, &a.Title, &a.Body, &a.Category, &a.Pinned, &publishedAt,
			&expiresAt, &a.AuthorUserID, &createdAt, &updatedAt); err != nil {
			return domain.Announcement{}, err
		}
		a.PublishedAt, a.ExpiresAt = sqlitedb.FromNullMillis(publishedAt), sqlitedb.FromNullMillis(expiresAt)
		a.CreatedAt, a.UpdatedAt = sqlitedb.FromMillis(createdAt), sqlitedb.FromMillis(updatedAt)
		return a, nil
	},
	key:    func(a domain.Announcement) (int64, string) { return createdKey(a.CreatedAt, a.ID) },
	schema: AnnouncementSchema,
}

// PutAnnouncement inserts an announcement.
func (s *Store) PutAnnouncement(ctx context.Context, a domain.Announcement) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return announcements.insert(ctx, s.sqlDB, a)
}

// UpdateAnnouncement rewrites an announcement's mutable columns.
func (s *Store) UpdateAnnouncement(ctx context.Context, a domain.Announcement) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return announcements.update(ctx, s.sqlDB, a)
}

// GetAnnouncement returns an announcement.
func (s *Store) GetAnnouncement(ctx context.Context, barangayID, announcementID string) (domain.Announcement, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Announcement{}, err
	}
	return announcements.get(ctx, s.sqlDB, barangayID, announcementID)
}

// DeleteAnnouncement removes an announcement.
func (s *Store) DeleteAnnouncement(ctx context.Context, barangayID, announcementID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return announcements.delete(ctx, s.sqlDB, barangayID, announcementID)
}

// ListAnnouncements lists announcements newest first.
func (s *Store) ListAnnouncements(ctx context.Context, q domain.AnnouncementQuery) (listing.Page[domain.Announcement], error) {
	if err := s.ready(ctx); err != nil {
		return emptyPage[domain.Announcement](), err
	}
	var (
		where []string
		args  []any
	)
	if q.VisibleAt != nil {
		at := sqlitedb.ToMillis(*q.VisibleAt)
		where, args = append(where, visibleClause), append(args, at, at)
	}
	return announcements.list(ctx, s.sqlDB, q.ListQuery, where, args)
}

// CountPublishedAnnouncements counts announcements visible at at.
func (s *Store) CountPublishedAnnouncements(ctx context.Context, barangayID string, at time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	millis := sqlitedb.ToMillis(at)
	return announcements.count(ctx, s.sqlDB, barangayID, visibleClause, millis, millis)
}

// ThreadSchema lists the fields accepted by forum thread filters.
var ThreadSchema = withTimes(filter.Schema{
	"category": {Column: "category", Kind: filter.String},
	"locked":   {Column: "locked", Kind: filter.Bool},
	"author":   {Column: "author_user_id", Kind: filter.String},
})

var threads = table[domain.ForumThread]{
	name: "forum_threads",
	columns: []string{"id", "barangay_id", "author_user_id", "title", "body", "category", "locked",
		"created_at", "updated_at"},
	extra: "(SELECT COUNT(*) FROM forum_posts p WHERE p.thread_id = forum_threads.id)",
	values: func(t domain.ForumThread) []any {
		return []any{t.ID, t.BarangayID, t.AuthorUserID, t.Title, t.Body, t.Category, sqlitedb.BoolInt(t.Locked),
			sqlitedb.ToMillis(t.CreatedAt), sqlitedb.ToMillis(t.UpdatedAt)}
	},
	scan: func(row rowScanner) (domain.ForumThread, error) {
		var (
			t                    domain.ForumThread
			createdAt, updatedAt int64
		)
		if err := row.Scan(&t.ID, &t.BarangayID, &t.AuthorUserID, &t.Title, &t.Body, &t.Category, &t.Locked,
			&createdAt, &updatedAt, &t.PostCount); err != nil {
			return domain.ForumThread{}, err
		}
		t.CreatedAt, t.UpdatedAt = sqlitedb.FromMillis(createdAt), sqlitedb.FromMillis(updatedAt)
		return t, nil
	},
	key:    func(t domain.ForumThread) (int64, string) { return createdKey(t.CreatedAt, t.ID) },
	schema: ThreadSchema,
}

// PutThread inserts a thread.
func (s *Store) PutThread(ctx context.Context, t domain.ForumThread) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return threads.insert(ctx, s.sqlDB, t)
}

// UpdateThread rewrites a thread's mutable columns.
func (s *Store) UpdateThread(ctx context.Context, t domain.ForumThread) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return threads.update(ctx, s.sqlDB, t)
}

// GetThread returns a thread with its post count.
func (s *Store) GetThread(ctx context.Context, barangayID, threadID string) (domain.ForumThread, error) {
	if err := s.ready(ctx); err != nil {
		return domain.ForumThread{}, err
	}
	return threads.get(ctx, s.sqlDB, barangayID, threadID)
}

// DeleteThread removes a thread; its posts cascade.
func (s *Store) DeleteThread(ctx context.Context, barangayID, threadID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return threads.delete(ctx, s.sqlDB, barangayID, threadID)
}

// ListThreads lists threads newest first.
func (s *Store) ListThreads(ctx context.Context, q domain.ListQuery) (listing.Page[domain.ForumThread], error) {
	if err := s.ready(ctx); err != nil {
		return emptyPage[domain.ForumThread](), err
	}
	return threads.list(ctx, s.sqlDB, q, nil, nil)
}

// PostSchema lists the fields accepted by forum post filters.
var PostSchema = withTimes(filter.Schema{
	"author": {Column: "author_user_id", Kind: filter.String},
})

var posts = table[domain.ForumPost]{
	name:    "forum_posts",
	columns: []string{"id", "barangay_id", "thread_id", "author_user_id", "body", "created_at", "updated_at"},
	values: func(p domain.ForumPost) []any {
		return []any{p.ID, p.BarangayID, p.ThreadID, p.AuthorUserID, p.Body,
			sqlitedb.ToMillis(p.CreatedAt), sqlitedb.ToMillis(p.UpdatedAt)}
	},
	scan: func(row rowScanner) (domain.ForumPost, error) {
		var (
			p                    domain.ForumPost
			createdAt, updatedAt int64
		)
		if err := row.Scan(&p.ID, &p.BarangayID, &p.ThreadID, &p.AuthorUserID, &p.Body, &createdAt, &updatedAt); err != nil {
			return domain.ForumPost{}, err
		}
		p.CreatedAt, p.UpdatedAt = sqlitedb.FromMillis(createdAt), sqlitedb.FromMillis(updatedAt)
		return p, nil
	},
	key:    func(p domain.ForumPost) (int64, string) { return createdKey(p.CreatedAt, p.ID) },
	schema: PostSchema,
}

// PutPost inserts a post.
func (s *Store) PutPost(ctx context.Context, p domain.ForumPost) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := posts.insert(ctx, s.sqlDB, p); err != nil {
		return fmt.Errorf("put post: %w", err)
	}
	return nil
}

// UpdatePost rewrites a post's body.
func (s *Store) UpdatePost(ctx context.Context, p domain.ForumPost) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return posts.update(ctx, s.sqlDB, p)
}

// GetPost returns a post.
func (s *Store) GetPost(ctx context.Context, barangayID, postID string) (domain.ForumPost, error) {
	if err := s.ready(ctx); err != nil {
		return domain.ForumPost{}, err
	}
	return posts.get(ctx, s.sqlDB, barangayID, postID)
}

// DeletePost removes a post.
func (s *Store) DeletePost(ctx context.Context, barangayID, postID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return posts.delete(ctx, s.sqlDB, barangayID, postID)
}

// ListPosts lists a thread's posts newest first.
func (s *Store) ListPosts(ctx context.Context, q domain.PostQuery) (listing.Page[domain.ForumPost], error) {
	if err := s.ready(ctx); err != nil {
		return emptyPage[domain.ForumPost](), err
	}
	return posts.list(ctx, s.sqlDB, q.ListQuery, []string{"thread_id = ?"}, []any{q.ThreadID})
}
