// Package service implements the registry use-cases: barangay-scoped
// records for residents, households, officials, documents, the blotter,
// announcements and forums.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/id"
	"github.com/louisbranch/baranex/internal/platform/objectstore"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	activitydomain "github.com/louisbranch/baranex/internal/services/activity/domain"
	"github.com/louisbranch/baranex/internal/services/auth/user"
	notifydomain "github.com/louisbranch/baranex/internal/services/notifications/domain"
	"github.com/louisbranch/baranex/internal/services/realtime"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
)

// Realtime table names.
const (
	TableResidents     = "residents"
	TableHouseholds    = "households"
	TableOfficials     = "officials"
	TableDocuments     = "documents"
	TableIncidents     = "incidents"
	TableWatchlist     = "watchlist"
	TableAnnouncements = "announcements"
	TableThreads       = "forum_threads"
	TablePosts         = "forum_posts"
)

var (
	// ErrNotConfigured is returned when required wiring is missing.
	ErrNotConfigured = errors.New("registry service is not configured")
	// ErrOfficialsOnly is returned when a resident attempts an official action.
	ErrOfficialsOnly = apperrors.PermissionDenied("officials only")
	// ErrUnknownBarangay is returned when a record names a missing barangay.
	ErrUnknownBarangay = apperrors.InvalidArgument("unknown barangay")
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

// ObjectStore stores ID scans.
type ObjectStore interface {
	Put(ctx context.Context, bucket objectstore.Bucket, owner string, r io.Reader) (objectstore.Object, error)
	Delete(ctx context.Context, bucket objectstore.Bucket, key string) error
}

// Config wires the service's collaborators. Only the store is required.
type Config struct {
	Publisher Publisher
	Activity  ActivityRecorder
	Notifier  Notifier
	Objects   ObjectStore
	Logger    *zap.Logger
	Clock     func() time.Time
	NewID     func() (string, error)
	// Serial returns a control number serial in [0, 1000000).
	Serial func() (int, error)
}

// Service implements registry use-cases.
type Service struct {
	store     domain.Store
	publisher Publisher
	activity  ActivityRecorder
	notifier  Notifier
	objects   ObjectStore
	logger    *zap.Logger
	clock     func() time.Time
	newID     func() (string, error)
	serial    func() (int, error)
}

// NewService builds the registry service.
func NewService(store domain.Store, cfg Config) *Service {
	s := &Service{
		store:     store,
		publisher: cfg.Publisher,
		activity:  cfg.Activity,
		notifier:  cfg.Notifier,
		objects:   cfg.Objects,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		newID:     cfg.NewID,
		serial:    cfg.Serial,
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
	if s.serial == nil {
		s.serial = randomSerial
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

func requireOfficial(caller requestctx.Principal) error {
	if caller.UserID == "" {
		return apperrors.New(apperrors.CodeUnauthenticated, "authentication required")
	}
	if !isOfficial(caller) {
		return ErrOfficialsOnly
	}
	return nil
}

func requireUser(caller requestctx.Principal) error {
	if caller.UserID == "" {
		return apperrors.New(apperrors.CodeUnauthenticated, "authentication required")
	}
	return nil
}

// readScope is the barangay a lookup is confined to; a superadmin without
// an explicit barangay reads across all of them.
func readScope(caller requestctx.Principal, requested string) string {
	if user.Role(caller.Role) == user.RoleSuperadmin {
		return strings.TrimSpace(requested)
	}
	return caller.BarangayID
}

// writeScope is the barangay a new record is created in.
func (s *Service) writeScope(ctx context.Context, caller requestctx.Principal, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if user.Role(caller.Role) == user.RoleSuperadmin && requested != "" && requested != caller.BarangayID {
		ok, err := s.BarangayExists(ctx, requested)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", ErrUnknownBarangay
		}
		return requested, nil
	}
	if caller.BarangayID == "" {
		return "", apperrors.InvalidArgument("barangay is required")
	}
	return caller.BarangayID, nil
}

// listQuery confines q to the caller's scope.
func listQuery(caller requestctx.Principal, q domain.ListQuery) domain.ListQuery {
	q.BarangayID = readScope(caller, q.BarangayID)
	return q
}

// mutated publishes a change and records an activity entry; neither
// failure is returned to the caller.
func (s *Service) mutated(ctx context.Context, caller requestctx.Principal, table string, kind realtime.ChangeType, barangayID, entityID string, record any) {
	if s.publisher != nil {
		minRole, owner := s.readers(table, record)
		s.publisher.Publish(realtime.NewChange(table, kind, barangayID, record).Restrict(minRole, owner))
	}
	s.record(ctx, activitydomain.RecordInput{
		BarangayID:  barangayID,
		ActorUserID: caller.UserID,
		Action:      entityName(table) + "." + actionVerb(kind),
		EntityType:  entityName(table),
		EntityID:    entityID,
	})
}

// officialTables are never readable by residents.
var officialTables = map[string]bool{
	TableResidents:  true,
	TableHouseholds: true,
	TableIncidents:  true,
	TableWatchlist:  true,
}

// readers mirrors the read rules of the Get and List operations for a
// published record: the lowest role that may read it and its owner.
func (s *Service) readers(table string, record any) (string, string) {
	official := string(user.RoleOfficial)
	if officialTables[table] {
		return official, ""
	}
	switch r := record.(type) {
	case domain.Document:
		return official, r.RequestedBy
	case domain.Announcement:
		if !r.Visible(s.now()) {
			return official, ""
		}
	}
	if table == TableDocuments {
		return official, ""
	}
	return "", ""
}

func (s *Service) record(ctx context.Context, input activitydomain.RecordInput) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(ctx, input); err != nil {
		s.logger.Warn("record activity", zap.String("action", input.Action), zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, input notifydomain.CreateIntentInput) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.CreateIntent(ctx, input); err != nil {
		s.logger.Warn("create notification", zap.String("topic", input.Topic), zap.Error(err))
	}
}

var entityNames = map[string]string{
	TableResidents:     "resident",
	TableHouseholds:    "household",
	TableOfficials:     "official",
	TableDocuments:     "document",
	TableIncidents:     "incident",
	TableWatchlist:     "watchlist",
	TableAnnouncements: "announcement",
	TableThreads:       "forum_thread",
	TablePosts:         "forum_post",
}

func entityName(table string) string {
	if name, ok := entityNames[table]; ok {
		return name
	}
	return table
}

func actionVerb(kind realtime.ChangeType) string {
	switch kind {
	case realtime.Insert:
		return "create"
	case realtime.Delete:
		return "delete"
	default:
		return "update"
	}
}

func requireID(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperrors.InvalidArgument(field + " is required")
	}
	return value, nil
}

// storeErr maps storage sentinels onto entity-specific errors.
func storeErr(entity string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return apperrors.NotFound(entity + " not found")
	case errors.Is(err, domain.ErrConflict):
		return apperrors.New(apperrors.CodeConflict, entity+" already exists")
	default:
		return fmt.Errorf("%s: %w", entity, err)
	}
}
