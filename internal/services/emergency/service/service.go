// Package service implements emergency reporting, response tracking and SMS
// alert broadcasts.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/louisbranch/baranex/internal/platform/cache"
	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/id"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	activitydomain "github.com/louisbranch/baranex/internal/services/activity/domain"
	"github.com/louisbranch/baranex/internal/services/auth/user"
	"github.com/louisbranch/baranex/internal/services/emergency/domain"
	notifydomain "github.com/louisbranch/baranex/internal/services/notifications/domain"
	"github.com/louisbranch/baranex/internal/services/realtime"
	"github.com/louisbranch/baranex/internal/services/sms"
)

// TableRequests is the realtime table of emergency requests.
const TableRequests = "emergency_requests"

// DefaultActiveTTL bounds how stale the cached active list may be.
const DefaultActiveTTL = 30 * time.Second

var (
	// ErrNotConfigured is returned when required wiring is missing.
	ErrNotConfigured = errors.New("emergency service is not configured")
	// ErrOfficialsOnly is returned when a resident attempts an official action.
	ErrOfficialsOnly = apperrors.PermissionDenied("officials only")
	errNoRecipients  = apperrors.InvalidArgument("no recipients with a phone number")
)

// Publisher receives committed changes.
type Publisher interface {
	Publish(change realtime.Change)
}

// ActivityRecorder appends audit entries.
type ActivityRecorder interface {
	Record(ctx context.Context, input activitydomain.RecordInput) (activitydomain.Entry, error)
}

// Notifier delivers in-app notifications.
type Notifier interface {
	CreateIntent(ctx context.Context, input notifydomain.CreateIntentInput) (notifydomain.Notification, error)
}

// Directory finds the users to alert.
type Directory interface {
	UsersByRole(ctx context.Context, barangayID string, roles ...user.Role) ([]user.User, error)
}

// PhoneBook lists the numbers an alert audience resolves to.
type PhoneBook interface {
	ResidentPhones(ctx context.Context, barangayID string) ([]string, error)
	OfficialPhones(ctx context.Context, barangayID string) ([]string, error)
}

// Broadcaster sends one SMS to many numbers.
type Broadcaster interface {
	Broadcast(ctx context.Context, numbers []string, message string) (sms.Result, error)
}

// CacheObserver counts cache hits and misses.
type CacheObserver interface {
	ObserveCache(hit bool)
}

// Config wires the service's collaborators. Only the store is required.
type Config struct {
	Publisher     Publisher
	Activity      ActivityRecorder
	Notifier      Notifier
	Directory     Directory
	Phones        PhoneBook
	SMS           Broadcaster
	Cache         cache.Cache
	CacheObserver CacheObserver
	ActiveTTL     time.Duration
	Logger        *zap.Logger
	Clock         func() time.Time
	NewID         func() (string, error)
}

// Service implements emergency use-cases.
type Service struct {
	store     domain.Store
	publisher Publisher
	activity  ActivityRecorder
	notifier  Notifier
	directory Directory
	phones    PhoneBook
	sms       Broadcaster
	cache     cache.Cache
	observer  CacheObserver
	activeTTL time.Duration
	logger    *zap.Logger
	clock     func() time.Time
	newID     func() (string, error)
}

// NewService builds the emergency service.
func NewService(store domain.Store, cfg Config) *Service {
	s := &Service{
		store:     store,
		publisher: cfg.Publisher,
		activity:  cfg.Activity,
		notifier:  cfg.Notifier,
		directory: cfg.Directory,
		phones:    cfg.Phones,
		sms:       cfg.SMS,
		cache:     cfg.Cache,
		observer:  cfg.CacheObserver,
		activeTTL: cfg.ActiveTTL,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		newID:     cfg.NewID,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newID == nil {
		s.newID = id.NewID
	}
	if s.activeTTL <= 0 {
		s.activeTTL = DefaultActiveTTL
	}
	return s
}

func (s *Service) ready() error {
	if s == nil || s.store == nil {
		return ErrNotConfigured
	}
	return nil
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func isOfficial(caller requestctx.Principal) bool {
	return user.Role(caller.Role).AtLeast(user.RoleOfficial)
}

func requireUser(caller requestctx.Principal) error {
	if caller.UserID == "" {
		return apperrors.New(apperrors.CodeUnauthenticated, "authentication required")
	}
	return nil
}

func requireOfficial(caller requestctx.Principal) error {
	if err := requireUser(caller); err != nil {
		return err
	}
	if !isOfficial(caller) {
		return ErrOfficialsOnly
	}
	return nil
}

// scope is the barangay a caller works in; a superadmin may name another.
func scope(caller requestctx.Principal, requested string) string {
	if user.Role(caller.Role) == user.RoleSuperadmin {
		if requested = strings.TrimSpace(requested); requested != "" {
			return requested
		}
	}
	return caller.BarangayID
}

// CreateRequest reports an emergency in the caller's barangay and alerts
// its officials.
func (s *Service) CreateRequest(ctx context.Context, caller requestctx.Principal, in domain.RequestInput) (domain.Request, error) {
	if err := s.ready(); err != nil {
		return domain.Request{}, err
	}
	if err := requireUser(caller); err != nil {
		return domain.Request{}, err
	}
	barangayID := scope(caller, in.BarangayID)
	if barangayID == "" {
		return domain.Request{}, apperrors.InvalidArgument("barangay is required")
	}
	requestID, err := s.newID()
	if err != nil {
		return domain.Request{}, fmt.Errorf("generate request id: %w", err)
	}
	now := s.now()
	r, err := domain.NormalizeRequest(domain.Request{
		ID:              requestID,
		BarangayID:      barangayID,
		RequesterUserID: caller.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, in)
	if err != nil {
		return domain.Request{}, err
	}
	if err := s.store.PutRequest(ctx, r); err != nil {
		return domain.Request{}, err
	}
	s.invalidate(ctx, barangayID)
	s.mutated(ctx, caller, realtime.Insert, r, "emergency.create")
	s.alertOfficials(ctx, r)
	return r, nil
}

// GetRequest returns a request. Residents only see their own.
func (s *Service) GetRequest(ctx context.Context, caller requestctx.Principal, requestID string) (domain.Request, error) {
	if err := s.ready(); err != nil {
		return domain.Request{}, err
	}
	if err := requireUser(caller); err != nil {
		return domain.Request{}, err
	}
	barangayID := caller.BarangayID
	if user.Role(caller.Role) == user.RoleSuperadmin {
		barangayID = ""
	}
	r, err := s.store.GetRequest(ctx, barangayID, strings.TrimSpace(requestID))
	if err != nil {
		return domain.Request{}, err
	}
	if !isOfficial(caller) && r.RequesterUserID != caller.UserID {
		return domain.Request{}, domain.ErrNotFound
	}
	return r, nil
}

// ListRequests pages through requests. Residents only see their own; a
// superadmin without a barangay_id sees every barangay.
func (s *Service) ListRequests(ctx context.Context, caller requestctx.Principal, q domain.ListQuery) (listing.Page[domain.Request], error) {
	if err := s.ready(); err != nil {
		return listing.Page[domain.Request]{}, err
	}
	if err := requireUser(caller); err != nil {
		return listing.Page[domain.Request]{}, err
	}
	if user.Role(caller.Role) == user.RoleSuperadmin {
		q.BarangayID = strings.TrimSpace(q.BarangayID)
	} else {
		q.BarangayID = caller.BarangayID
	}
	q.RequesterUserID = ""
	if !isOfficial(caller) {
		q.RequesterUserID = caller.UserID
	}
	return s.store.ListRequests(ctx, q)
}
