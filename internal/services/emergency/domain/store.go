package domain

import (
	"context"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = apperrors.NotFound("emergency request not found")
)

// ListQuery selects one page of requests. An empty BarangayID spans every
// barangay; a non-empty RequesterUserID keeps one user's requests.
type ListQuery struct {
	BarangayID      string
	RequesterUserID string
	Filter          string
	PageSize        int
	PageToken       string
}

// Store persists emergency requests and alerts.
type Store interface {
	PutRequest(ctx context.Context, r Request) error
	UpdateRequest(ctx context.Context, r Request) error
	GetRequest(ctx context.Context, barangayID, requestID string) (Request, error)
	ListRequests(ctx context.Context, q ListQuery) (listing.Page[Request], error)
	// ActiveRequests returns non-terminal requests, oldest first; an empty
	// barangay id spans every barangay.
	ActiveRequests(ctx context.Context, barangayID string) ([]Request, error)
	CountActive(ctx context.Context, barangayID string) (int64, error)

	PutAlert(ctx context.Context, a Alert) error
	ListAlerts(ctx context.Context, q ListQuery) (listing.Page[Alert], error)
}
