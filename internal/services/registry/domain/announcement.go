package domain

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
)

// Announcement is a notice posted by officials.
type Announcement struct {
	ID           string     `json:"id"`
	BarangayID   string     `json:"barangay_id"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	Category     string     `json:"category"`
	Pinned       bool       `json:"pinned"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	AuthorUserID string     `json:"author_user_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Visible reports whether residents can see a at now.
func (a Announcement) Visible(now time.Time) bool {
	if a.PublishedAt == nil || a.PublishedAt.After(now) {
		return false
	}
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}

// AnnouncementInput is the editable part of an announcement. A nil
// PublishedAt keeps it a draft.
type AnnouncementInput struct {
	BarangayID  string     `json:"barangay_id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Category    string     `json:"category"`
	Pinned      bool       `json:"pinned"`
	PublishedAt *time.Time `json:"published_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// NormalizeAnnouncement validates input and applies it to a.
func NormalizeAnnouncement(a Announcement, in AnnouncementInput) (Announcement, error) {
	var err error
	if a.Title, err = required("title", in.Title); err != nil {
		return Announcement{}, err
	}
	if err := maxLen("title", a.Title, 200); err != nil {
		return Announcement{}, err
	}
	a.Body = strings.TrimSpace(in.Body)
	if a.Body == "" {
		return Announcement{}, apperrors.InvalidArgument("body is required")
	}
	if err := maxLen("body", a.Body, 10000); err != nil {
		return Announcement{}, err
	}
	a.Category = strings.ToLower(strings.TrimSpace(in.Category))
	if a.Category == "" {
		a.Category = "general"
	}
	a.Pinned = in.Pinned
	a.PublishedAt, a.ExpiresAt = utcPtr(in.PublishedAt), utcPtr(in.ExpiresAt)
	if a.ExpiresAt != nil {
		if a.PublishedAt == nil {
			return Announcement{}, apperrors.InvalidArgument("expires_at requires published_at")
		}
		if !a.ExpiresAt.After(*a.PublishedAt) {
			return Announcement{}, apperrors.InvalidArgument("expires_at must be after published_at")
		}
	}
	return a, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}
