package domain

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = apperrors.NotFound("record not found")
	// ErrConflict indicates a uniqueness violation.
	ErrConflict = apperrors.New(apperrors.CodeConflict, "record already exists")
)

// ListQuery selects one page of barangay records. An empty BarangayID spans
// every barangay.
type ListQuery struct {
	BarangayID string
	Filter     string
	PageSize   int
	PageToken  string
}

// DocumentQuery lists document requests, optionally for one requester.
type DocumentQuery struct {
	ListQuery
	RequestedBy string
}

// AnnouncementQuery lists announcements; a non-nil VisibleAt hides drafts and
// expired notices.
type AnnouncementQuery struct {
	ListQuery
	VisibleAt *time.Time
}

// PostQuery lists the posts of one thread.
type PostQuery struct {
	ListQuery
	ThreadID string
}

// BarangayStore persists tenants.
type BarangayStore interface {
	PutBarangay(ctx context.Context, b Barangay) error
	GetBarangay(ctx context.Context, barangayID string) (Barangay, error)
	ListBarangays(ctx context.Context) ([]Barangay, error)
}

// ResidentStore persists residents and households.
type ResidentStore interface {
	PutResident(ctx context.Context, r Resident) error
	UpdateResident(ctx context.Context, r Resident) error
	GetResident(ctx context.Context, barangayID, residentID string) (Resident, error)
	DeleteResident(ctx context.Context, barangayID, residentID string) error
	ListResidents(ctx context.Context, q ListQuery) (listing.Page[Resident], error)
	HouseholdResidents(ctx context.Context, barangayID, householdID string) ([]Resident, error)
	ResidentPhones(ctx context.Context, barangayID string) ([]string, error)
	CountResidents(ctx context.Context, barangayID string) (int64, error)

	PutHousehold(ctx context.Context, h Household) error
	UpdateHousehold(ctx context.Context, h Household) error
	GetHousehold(ctx context.Context, barangayID, householdID string) (Household, error)
	// DeleteHousehold removes the household and detaches its members.
	DeleteHousehold(ctx context.Context, barangayID, householdID string) error
	ListHouseholds(ctx context.Context, q ListQuery) (listing.Page[Household], error)
	CountHouseholds(ctx context.Context, barangayID string) (int64, error)
}

// OfficialStore persists officials.
type OfficialStore interface {
	PutOfficial(ctx context.Context, o Official) error
	UpdateOfficial(ctx context.Context, o Official) error
	GetOfficial(ctx context.Context, barangayID, officialID string) (Official, error)
	DeleteOfficial(ctx context.Context, barangayID, officialID string) error
	ListOfficials(ctx context.Context, q ListQuery) (listing.Page[Official], error)
	OfficialPhones(ctx context.Context, barangayID string) ([]string, error)
	CountActiveOfficials(ctx context.Context, barangayID string) (int64, error)
}

// DocumentStore persists document requests.
type DocumentStore interface {
	// PutDocument returns ErrConflict when the control number is taken.
	PutDocument(ctx context.Context, d Document) error
	UpdateDocument(ctx context.Context, d Document) error
	GetDocument(ctx context.Context, barangayID, documentID string) (Document, error)
	DeleteDocument(ctx context.Context, barangayID, documentID string) error
	ListDocuments(ctx context.Context, q DocumentQuery) (listing.Page[Document], error)
	CountPendingDocuments(ctx context.Context, barangayID string) (int64, error)
}

// BlotterStore persists incidents and the watchlist.
type BlotterStore interface {
	// CreateIncident assigns the next case number of the incident's barangay
	// and year, then inserts it.
	CreateIncident(ctx context.Context, i Incident) (Incident, error)
	UpdateIncident(ctx context.Context, i Incident) error
	GetIncident(ctx context.Context, barangayID, incidentID string) (Incident, error)
	DeleteIncident(ctx context.Context, barangayID, incidentID string) error
	ListIncidents(ctx context.Context, q ListQuery) (listing.Page[Incident], error)
	CountOpenIncidents(ctx context.Context, barangayID string) (int64, error)

	PutWatchlistEntry(ctx context.Context, w WatchlistEntry) error
	UpdateWatchlistEntry(ctx context.Context, w WatchlistEntry) error
	GetWatchlistEntry(ctx context.Context, barangayID, entryID string) (WatchlistEntry, error)
	DeleteWatchlistEntry(ctx context.Context, barangayID, entryID string) error
	ListWatchlist(ctx context.Context, q ListQuery) (listing.Page[WatchlistEntry], error)
}

// CommunityStore persists announcements and the forum.
type CommunityStore interface {
	PutAnnouncement(ctx context.Context, a Announcement) error
	UpdateAnnouncement(ctx context.Context, a Announcement) error
	GetAnnouncement(ctx context.Context, barangayID, announcementID string) (Announcement, error)
	DeleteAnnouncement(ctx context.Context, barangayID, announcementID string) error
	ListAnnouncements(ctx context.Context, q AnnouncementQuery) (listing.Page[Announcement], error)
	CountPublishedAnnouncements(ctx context.Context, barangayID string, at time.Time) (int64, error)

	PutThread(ctx context.Context, t ForumThread) error
	UpdateThread(ctx context.Context, t ForumThread) error
	GetThread(ctx context.Context, barangayID, threadID string) (ForumThread, error)
	// DeleteThread removes the thread and its posts.
	DeleteThread(ctx context.Context, barangayID, threadID string) error
	ListThreads(ctx context.Context, q ListQuery) (listing.Page[ForumThread], error)

	PutPost(ctx context.Context, p ForumPost) error
	UpdatePost(ctx context.Context, p ForumPost) error
	GetPost(ctx context.Context, barangayID, postID string) (ForumPost, error)
	DeletePost(ctx context.Context, barangayID, postID string) error
	ListPosts(ctx context.Context, q PostQuery) (listing.Page[ForumPost], error)
}

// Store is the full registry persistence boundary.
type Store interface {
	BarangayStore
	ResidentStore
	OfficialStore
	DocumentStore
	BlotterStore
	CommunityStore
}
