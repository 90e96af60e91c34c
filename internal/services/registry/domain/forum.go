package domain

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
)

// ErrThreadLocked is returned when posting to a locked thread.
var ErrThreadLocked = apperrors.New(apperrors.CodeThreadLocked, "thread is locked")

// ForumThread is a community discussion.
type ForumThread struct {
	ID           string    `json:"id"`
	BarangayID   string    `json:"barangay_id"`
	AuthorUserID string    `json:"author_user_id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Category     string    `json:"category"`
	Locked       bool      `json:"locked"`
	PostCount    int       `json:"post_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ThreadInput is the author-editable part of a thread.
type ThreadInput struct {
	BarangayID string `json:"barangay_id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Category   string `json:"category"`
	// Locked is honored for officials only.
	Locked *bool `json:"locked"`
}

// NormalizeThread validates input and applies it to t. Locked is left to the
// caller.
func NormalizeThread(t ForumThread, in ThreadInput) (ForumThread, error) {
	var err error
	if t.Title, err = required("title", in.Title); err != nil {
		return ForumThread{}, err
	}
	if err := maxLen("title", t.Title, 200); err != nil {
		return ForumThread{}, err
	}
	if t.Body, err = forumBody(in.Body); err != nil {
		return ForumThread{}, err
	}
	t.Category = strings.ToLower(strings.TrimSpace(in.Category))
	if t.Category == "" {
		t.Category = "general"
	}
	return t, nil
}

// ForumPost is a reply within a thread.
type ForumPost struct {
	ID           string    `json:"id"`
	BarangayID   string    `json:"barangay_id"`
	ThreadID     string    `json:"thread_id"`
	AuthorUserID string    `json:"author_user_id"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PostInput is the editable part of a post.
type PostInput struct {
	Body string `json:"body"`
}

// NormalizePost validates input and applies it to p.
func NormalizePost(p ForumPost, in PostInput) (ForumPost, error) {
	body, err := forumBody(in.Body)
	if err != nil {
		return ForumPost{}, err
	}
	p.Body = body
	return p, nil
}

func forumBody(raw string) (string, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return "", apperrors.InvalidArgument("body is required")
	}
	if err := maxLen("body", body, 10000); err != nil {
		return "", err
	}
	return body, nil
}
