// Package domain holds the activity log use-cases.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/id"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

var (
	// ErrStoreNotConfigured indicates the service is missing persistence wiring.
	ErrStoreNotConfigured = errors.New("activity store is not configured")
	// ErrActionRequired indicates an entry without an action.
	ErrActionRequired = apperrors.InvalidArgument("activity action is required")
	// ErrBarangayRequired indicates an entry without a barangay.
	ErrBarangayRequired = apperrors.InvalidArgument("activity barangay is required")
)

// Entry is one recorded action.
type Entry struct {
	ID          string            `json:"id"`
	BarangayID  string            `json:"barangay_id"`
	ActorUserID string            `json:"actor_user_id,omitempty"`
	Action      string            `json:"action"`
	EntityType  string            `json:"entity_type,omitempty"`
	EntityID    string            `json:"entity_id,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// RecordInput describes an action to append.
type RecordInput struct {
	BarangayID  string
	ActorUserID string
	Action      string
	EntityType  string
	EntityID    string
	Details     map[string]string
}

// ListInput configures a listing.
type ListInput struct {
	// BarangayID is honored only for superadmins.
	BarangayID string
	Filter     string
	PageSize   int
	PageToken  string
}

// Query is the store-level listing request.
type Query struct {
	BarangayID  string
	ActorUserID string
	Filter      string
	PageSize    int
	PageToken   string
}

// Store persists entries.
type Store interface {
	PutEntry(ctx context.Context, entry Entry) error
	ListEntries(ctx context.Context, query Query) (listing.Page[Entry], error)
}

// Service records and lists activity.
type Service struct {
	store Store
	clock func() time.Time
	newID func() (string, error)
}

// NewService constructs activity use-cases.
func NewService(store Store, clock func() time.Time, newID func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Service{store: store, clock: clock, newID: newID}
}

// Record appends an entry.
func (s *Service) Record(ctx context.Context, input RecordInput) (Entry, error) {
	if s == nil || s.store == nil {
		return Entry{}, ErrStoreNotConfigured
	}
	action := strings.TrimSpace(input.Action)
	if action == "" {
		return Entry{}, ErrActionRequired
	}
	barangayID := strings.TrimSpace(input.BarangayID)
	if barangayID == "" {
		return Entry{}, ErrBarangayRequired
	}
	entryID, err := s.newID()
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{
		ID:          entryID,
		BarangayID:  barangayID,
		ActorUserID: strings.TrimSpace(input.ActorUserID),
		Action:      action,
		EntityType:  strings.TrimSpace(input.EntityType),
		EntityID:    strings.TrimSpace(input.EntityID),
		Details:     input.Details,
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.store.PutEntry(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// List returns the barangay's activity; officials and above only.
func (s *Service) List(ctx context.Context, caller requestctx.Principal, input ListInput) (listing.Page[Entry], error) {
	if s == nil || s.store == nil {
		return listing.Page[Entry]{}, ErrStoreNotConfigured
	}
	role := user.Role(caller.Role)
	if !role.AtLeast(user.RoleOfficial) {
		return listing.Page[Entry]{}, apperrors.PermissionDenied("officials only")
	}
	barangayID := caller.BarangayID
	if role == user.RoleSuperadmin && strings.TrimSpace(input.BarangayID) != "" {
		barangayID = strings.TrimSpace(input.BarangayID)
	}
	return s.store.ListEntries(ctx, Query{
		BarangayID: barangayID,
		Filter:     input.Filter,
		PageSize:   input.PageSize,
		PageToken:  input.PageToken,
	})
}

// ListMine returns entries the caller performed.
func (s *Service) ListMine(ctx context.Context, caller requestctx.Principal, input ListInput) (listing.Page[Entry], error) {
	if s == nil || s.store == nil {
		return listing.Page[Entry]{}, ErrStoreNotConfigured
	}
	if caller.UserID == "" {
		return listing.Page[Entry]{}, apperrors.New(apperrors.CodeUnauthenticated, "authentication required")
	}
	return s.store.ListEntries(ctx, Query{
		BarangayID:  caller.BarangayID,
		ActorUserID: caller.UserID,
		Filter:      input.Filter,
		PageSize:    input.PageSize,
		PageToken:   input.PageToken,
	})
}
