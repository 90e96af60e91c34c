package service

import (
	"context"
	"errors"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/services/realtime"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
)

var (
	errAnnouncementNotFound = apperrors.NotFound("announcement not found")
	errNotAuthor            = apperrors.PermissionDenied("only the author or an official may change this")
	errLockOfficialsOnly    = apperrors.PermissionDenied("only officials may lock threads")
)

// CreateAnnouncement publishes or drafts an announcement.
func (s *Service) CreateAnnouncement(ctx context.Context, caller requestctx.Principal, in domain.AnnouncementInput) (domain.Announcement, error) {
	if err := s.ready(); err != nil {
		return domain.Announcement{}, err
	}
	if err := requireOfficial(caller); err != nil {
		return domain.Announcement{}, err
	}
	barangayID, err := s.writeScope(ctx, caller, in.BarangayID)
	if err != nil {
		return domain.Announcement{}, err
	}
	a, err := domain.NormalizeAnnouncement(domain.Announcement{BarangayID: barangayID}, in)
	if err != nil {
		return domain.Announcement{}, err
	}
	if a.ID, err = s.newID(); err != nil {
		return domain.Announcement{}, err
	}
	now := s.now()
	a.AuthorUserID = caller.UserID
	a.CreatedAt, a.UpdatedAt = now, now
	if err := s.store.PutAnnouncement(ctx, a); err != nil {
		return domain.Announcement{}, storeErr("announcement", err)
	}
	s.mutated(ctx, caller, TableAnnouncements, realtime.Insert, a.BarangayID, a.ID, a)
	return a, nil
}

// GetAnnouncement returns an announcement; residents see only visible ones.
func (s *Service) GetAnnouncement(ctx context.Context, caller requestctx.Principal, announcementID string) (domain.Announcement, error) {
	if err := s.ready(); err != nil {
		return domain.Announcement{}, err
	}
	if err := requireUser(caller); err != nil {
		return domain.Announcement{}, err
	}
	announcementID, err := requireID("announcement id", announcementID)
	if err != nil {
		return domain.Announcement{}, err
	}
	a, err := s.store.GetAnnouncement(ctx, readScope(caller, ""), announcementID)
	if err != nil {
		return domain.Announcement{}, storeErr("announcement", err)
	}
	if !isOfficial(caller) && !a.Visible(s.now()) {
		return domain.Announcement{}, errAnnouncementNotFound
	}
	return a, nil
}

// ListAnnouncements lists announcements newest first; residents see only
// published, unexpired ones.
func (s *Service) ListAnnouncements(ctx context.Context, caller requestctx.Principal, q domain.ListQuery) (listing.Page[domain.Announcement], error) {
	if err := s.ready(); err != nil {
		return listing.Page[domain.Announcement]{}, err
	}
	if err := requireUser(caller); err != nil {
		return listing.Page[domain.Announcement]{}, err
	}
	query := domain.AnnouncementQuery{ListQuery: listQuery(caller, q)}
	if !isOfficial(caller) {
		now := s.now()
		query.VisibleAt = &now
	}
	return s.store.ListAnnouncements(ctx, query)
}

// UpdateAnnouncement replaces an announcement's editable fields.
func (s *Service) UpdateAnnouncement(ctx context.Context, caller requestctx.Principal, announcementID string, in domain.AnnouncementInput) (domain.Announcement, error) {
	if err := requireOfficial(caller); err != nil {
		return domain.Announcement{}, err
	}
	current, err := s.GetAnnouncement(ctx, caller, announcementID)
	if err != nil {
		return domain.Announcement{}, err
	}
	a, err := domain.NormalizeAnnouncement(current, in)
	if err != nil {
		return domain.Announcement{}, err
	}
	a.UpdatedAt = s.now()
	if err := s.store.UpdateAnnouncement(ctx, a); err != nil {
		return domain.Announcement{}, storeErr("announcement", err)
	}
	s.mutated(ctx, caller, TableAnnouncements, realtime.Update, a.BarangayID, a.ID, a)
	return a, nil
}

// DeleteAnnouncement removes an announcement.
func (s *Service) DeleteAnnouncement(ctx context.Context, caller requestctx.Principal, announcementID string) error {
	if err := requireOfficial(caller); err != nil {
		return err
	}
	a, err := s.GetAnnouncement(ctx, caller, announcementID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAnnouncement(ctx, a.BarangayID, a.ID); err != nil {
		return storeErr("announcement", err)
	}
	s.mutated(ctx, caller, TableAnnouncements, realtime.Delete, a.BarangayID, a.ID, map[string]string{"id": a.ID})
	return nil
}

// CreateThread opens a forum thread; any member may post.
func (s *Service) CreateThread(ctx context.Context, caller requestctx.Principal, in domain.ThreadInput) (domain.ForumThread, error) {
	if err := s.ready(); err != nil {
		return domain.ForumThread{}, err
	}
	if err := requireUser(caller); err != nil {
		return domain.ForumThread{}, err
	}
	if in.Locked != nil && *in.Locked && !isOfficial(caller) {
		return domain.ForumThread{}, errLockOfficialsOnly
	}
	barangayID, err := s.writeScope(ctx, caller, in.BarangayID)
	if err != nil {
		return domain.ForumThread{}, err
	}
	t, err := domain.NormalizeThread(domain.ForumThread{BarangayID: barangayID}, in)
	if err != nil {
		return domain.ForumThread{}, err
	}
	if in.Locked != nil {
		t.Locked = *in.Locked
	}
	if t.ID, err = s.newID(); err != nil {
		return domain.ForumThread{}, err
	}
	now := s.now()
	t.AuthorUserID = caller.UserID
	t.CreatedAt, t.UpdatedAt = now, now
	if err := s.store.PutThread(ctx, t); err != nil {
		return domain.ForumThread{}, storeErr("thread", err)
	}
	s.mutated(ctx, caller, TableThreads, realtime.Insert, t.BarangayID, t.ID, t)
	return t, nil
}

// GetThread returns a forum thread with its post count.
func (s *Service) GetThread(ctx context.Context, caller requestctx.Principal, threadID string) (domain.ForumThread, error) {
	if err := s.ready(); err != nil {
		return domain.ForumThread{}, err
	}
	if err := requireUser(caller); err != nil {
		return domain.ForumThread{}, err
	}
	threadID, err := requireID("thread id", threadID)
	if err != nil {
		return domain.ForumThread{}, err
	}
	t, err := s.store.GetThread(ctx, readScope(caller, ""), threadID)
	return t, storeErr("thread", err)
}

// ListThreads lists forum threads newest first.
func (s *Service) ListThreads(ctx context.Context, caller requestctx.Principal, q domain.ListQuery) (listing.Page[domain.ForumThread], error) {
	if err := s.ready(); err != nil {
		return listing.Page[domain.ForumThread]{}, err
	}
	if err := requireUser(caller); err != nil {
		return listing.Page[domain.ForumThread]{}, err
	}
	return s.store.ListThreads(ctx, listQuery(caller, q))
}

// UpdateThread edits a thread. Authors edit their own; only officials may
// change the lock.
func (s *Service) UpdateThread(ctx context.Context, caller requestctx.Principal, threadID string, in domain.ThreadInput) (domain.ForumThread, error) {
	current, err := s.GetThread(ctx, caller, threadID)
	if err != nil {
		return domain.ForumThread{}, err
	}
	official := isOfficial(caller)
	if current.AuthorUserID != caller.UserID && !official {
		return domain.ForumThread{}, errNotAuthor
	}
	if in.Locked != nil && *in.Locked != current.Locked && !official {
		return domain.ForumThread{}, errLockOfficialsOnly
	}
	t, err := domain.NormalizeThread(current, in)
	if err != nil {
		return domain.ForumThread{}, err
	}
	if in.Locked != nil {
		t.Locked = *in.Locked
	}
	t.UpdatedAt = s.now()
	if err := s.store.UpdateThread(ctx, t); err != nil {
		return domain.ForumThread{}, storeErr("thread", err)
	}
	s.mutated(ctx, caller, TableThreads, realtime.Update, t.BarangayID, t.ID, t)
	return t, nil
}

// SetThreadLocked locks or unlocks a thread.
func (s *Service) SetThreadLocked(ctx context.Context, caller requestctx.Principal, threadID string, locked bool) (domain.ForumThread, error) {
	if err := requireOfficial(caller); err != nil {
		return domain.ForumThread{}, err
	}
	t, err := s.GetThread(ctx, caller, threadID)
	if err != nil {
		return domain.ForumThread{}, err
	}
	if t.Locked == locked {
		return t, nil
	}
	t.Locked = locked
	t.UpdatedAt = s.now()
	if err := s.store.UpdateThread(ctx, t); err != nil {
		return domain.ForumThread{}, storeErr("thread", err)
	}
	s.mutated(ctx, caller, TableThreads, realtime.Update, t.BarangayID, t.ID, t)
	return t, nil
}

// DeleteThread removes a thread and its posts.
func (s *Service) DeleteThread(ctx context.Context, caller requestctx.Principal, threadID string) error {
	t, err := s.GetThread(ctx, caller, threadID)
	if err != nil {
		return err
	}
	if t.AuthorUserID != caller.UserID && !isOfficial(caller) {
		return errNotAuthor
	}
	if err := s.store.DeleteThread(ctx, t.BarangayID, t.ID); err != nil {
		return storeErr("thread", err)
	}
	s.mutated(ctx, caller, TableThreads, realtime.Delete, t.BarangayID, t.ID, map[string]string{"id": t.ID})
	return nil
}

// CreatePost replies to a thread. Locked threads take no replies.
func (s *Service) CreatePost(ctx context.Context, caller requestctx.Principal, threadID string, in domain.PostInput) (domain.ForumPost, error) {
	t, err := s.GetThread(ctx, caller, threadID)
	if err != nil {
		return domain.ForumPost{}, err
	}
	if t.Locked {
		return domain.ForumPost{}, domain.ErrThreadLocked
	}
	p, err := domain.NormalizePost(domain.ForumPost{BarangayID: t.BarangayID, ThreadID: t.ID}, in)
	if err != nil {
		return domain.ForumPost{}, err
	}
	if p.ID, err = s.newID(); err != nil {
		return domain.ForumPost{}, err
	}
	now := s.now()
	p.AuthorUserID = caller.UserID
	p.CreatedAt, p.UpdatedAt = now, now
	if err := s.store.PutPost(ctx, p); err != nil {
		return domain.ForumPost{}, storeErr("post", err)
	}
	s.mutated(ctx, caller, TablePosts, realtime.Insert, p.BarangayID, p.ID, p)
	return p, nil
}

// ListPosts lists a thread's posts newest first.
func (s *Service) ListPosts(ctx context.Context, caller requestctx.Principal, threadID string, q domain.ListQuery) (listing.Page[domain.ForumPost], error) {
	t, err := s.GetThread(ctx, caller, threadID)
	if err != nil {
		return listing.Page[domain.ForumPost]{}, err
	}
	q.BarangayID = t.BarangayID
	return s.store.ListPosts(ctx, domain.PostQuery{ListQuery: q, ThreadID: t.ID})
}

func (s *Service) getPost(ctx context.Context, caller requestctx.Principal, postID string) (domain.ForumPost, error) {
	if err := s.ready(); err != nil {
		return domain.ForumPost{}, err
	}
	if err := requireUser(caller); err != nil {
		return domain.ForumPost{}, err
	}
	postID, err := requireID("post id", postID)
	if err != nil {
		return domain.ForumPost{}, err
	}
	p, err := s.store.GetPost(ctx, readScope(caller, ""), postID)
	return p, storeErr("post", err)
}

// UpdatePost edits the caller's own post.
func (s *Service) UpdatePost(ctx context.Context, caller requestctx.Principal, postID string, in domain.PostInput) (domain.ForumPost, error) {
	current, err := s.getPost(ctx, caller, postID)
	if err != nil {
		return domain.ForumPost{}, err
	}
	if current.AuthorUserID != caller.UserID {
		return domain.ForumPost{}, apperrors.PermissionDenied("only the author may edit a post")
	}
	t, err := s.store.GetThread(ctx, current.BarangayID, current.ThreadID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.ForumPost{}, storeErr("thread", err)
	}
	if t.Locked {
		return domain.ForumPost{}, domain.ErrThreadLocked
	}
	p, err := domain.NormalizePost(current, in)
	if err != nil {
		return domain.ForumPost{}, err
	}
	p.UpdatedAt = s.now()
	if err := s.store.UpdatePost(ctx, p); err != nil {
		return domain.ForumPost{}, storeErr("post", err)
	}
	s.mutated(ctx, caller, TablePosts, realtime.Update, p.BarangayID, p.ID, p)
	return p, nil
}

// DeletePost removes a post; authors delete their own, officials any.
func (s *Service) DeletePost(ctx context.Context, caller requestctx.Principal, postID string) error {
	p, err := s.getPost(ctx, caller, postID)
	if err != nil {
		return err
	}
	if p.AuthorUserID != caller.UserID && !isOfficial(caller) {
		return errNotAuthor
	}
	if err := s.store.DeletePost(ctx, p.BarangayID, p.ID); err != nil {
		return storeErr("post", err)
	}
	s.mutated(ctx, caller, TablePosts, realtime.Delete, p.BarangayID, p.ID, map[string]string{"id": p.ID})
	return nil
}
