// Package service implements the auth use-cases: sign-up, login with
// optional TOTP, email verification, role administration and profiles.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/id"
	"github.com/louisbranch/baranex/internal/platform/objectstore"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/platform/secret"
	activitydomain "github.com/louisbranch/baranex/internal/services/activity/domain"
	"github.com/louisbranch/baranex/internal/services/auth/mailer"
	"github.com/louisbranch/baranex/internal/services/auth/storage"
	"github.com/louisbranch/baranex/internal/services/auth/token"
	"github.com/louisbranch/baranex/internal/services/auth/user"
	notifydomain "github.com/louisbranch/baranex/internal/services/notifications/domain"
)

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

var (
	// ErrInvalidCredentials is returned for any failed password login.
	ErrInvalidCredentials = apperrors.New(apperrors.CodeInvalidCredentials, "invalid email or password")
	// ErrUserNotFound is returned when a target user does not exist.
	ErrUserNotFound = apperrors.NotFound("user not found")
	// ErrInvalidCode is returned for a wrong or replayed TOTP code.
	ErrInvalidCode = apperrors.New(apperrors.CodeMFAInvalidCode, "invalid verification code")
	// ErrMFANotEnrolled is returned when no TOTP factor exists.
	ErrMFANotEnrolled = apperrors.New(apperrors.CodeMFANotEnrolled, "MFA is not enrolled")
	// ErrMFAAlreadyEnabled is returned when enrolling over an enabled factor.
	ErrMFAAlreadyEnabled = apperrors.New(apperrors.CodeMFAAlreadyEnabled, "MFA is already enabled")
	// ErrNotConfigured is returned when required wiring is missing.
	ErrNotConfigured = errors.New("auth service is not configured")
)

// Notifier delivers in-app notifications.
type Notifier interface {
	CreateIntent(ctx context.Context, input notifydomain.CreateIntentInput) (notifydomain.Notification, error)
}

// ActivityRecorder appends audit entries.
type ActivityRecorder interface {
	Record(ctx context.Context, input activitydomain.RecordInput) (activitydomain.Entry, error)
}

// BarangayDirectory answers whether a barangay exists.
type BarangayDirectory interface {
	BarangayExists(ctx context.Context, barangayID string) (bool, error)
}

// ObjectStore stores profile images.
type ObjectStore interface {
	Put(ctx context.Context, bucket objectstore.Bucket, owner string, r io.Reader) (objectstore.Object, error)
	Delete(ctx context.Context, bucket objectstore.Bucket, key string) error
}

// Config wires the service's collaborators. Only Tokens is required; the
// rest degrade to no-ops or defaults.
type Config struct {
	Tokens    *token.Issuer
	Sealer    secret.Sealer
	Mailer    mailer.Mailer
	Objects   ObjectStore
	Notifier  Notifier
	Activity  ActivityRecorder
	Barangays BarangayDirectory
	Logger    *zap.Logger
	Clock     func() time.Time
	NewID     func() (string, error)
	Random    io.Reader
	// VerifyURL is prefixed to verification tokens in emails.
	VerifyURL  string
	BcryptCost int
}

// Service implements auth use-cases.
type Service struct {
	store     storage.Store
	tokens    *token.Issuer
	sealer    secret.Sealer
	mailer    mailer.Mailer
	objects   ObjectStore
	notifier  Notifier
	activity  ActivityRecorder
	barangays BarangayDirectory
	logger    *zap.Logger
	clock     func() time.Time
	newID     func() (string, error)
	random    io.Reader
	verifyURL string
	cost      int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService builds the auth service.
func NewService(store storage.Store, cfg Config) *Service {
	s := &Service{
		store:     store,
		tokens:    cfg.Tokens,
		sealer:    cfg.Sealer,
		mailer:    cfg.Mailer,
		objects:   cfg.Objects,
		notifier:  cfg.Notifier,
		activity:  cfg.Activity,
		barangays: cfg.Barangays,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		newID:     cfg.NewID,
		random:    cfg.Random,
		verifyURL: cfg.VerifyURL,
		cost:      cfg.BcryptCost,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.mailer == nil {
		s.mailer = mailer.LogMailer{Logger: s.logger}
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newID == nil {
		s.newID = id.NewID
	}
	if s.random == nil {
		s.random = rand.Reader
	}
	if s.cost == 0 {
		s.cost = bcrypt.DefaultCost
	}
	return s
}

func (s *Service) ready() error {
	if s == nil || s.store == nil || s.tokens == nil {
		return ErrNotConfigured
	}
	return nil
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// Authenticate resolves an access token to the caller's current principal.
// Role and barangay are read from storage so promotions apply immediately.
func (s *Service) Authenticate(ctx context.Context, raw string) (requestctx.Principal, error) {
	if err := s.ready(); err != nil {
		return requestctx.Principal{}, err
	}
	claims, err := s.tokens.ParseAccess(raw)
	if err != nil {
		return requestctx.Principal{}, err
	}
	u, err := s.store.GetUser(ctx, claims.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return requestctx.Principal{}, token.ErrInvalid
	}
	if err != nil {
		return requestctx.Principal{}, fmt.Errorf("load user: %w", err)
	}
	return principalOf(u), nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, userID string) (user.User, error) {
	if err := s.ready(); err != nil {
		return user.User{}, err
	}
	return s.loadUser(ctx, userID)
}

// UsersByRole lists a barangay's users holding any of roles.
func (s *Service) UsersByRole(ctx context.Context, barangayID string, roles ...user.Role) ([]user.User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx, barangayID, roles...)
}

// CountUsers counts a barangay's registered users.
func (s *Service) CountUsers(ctx context.Context, barangayID string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.store.CountUsers(ctx, barangayID)
}

func (s *Service) loadUser(ctx context.Context, userID string) (user.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return user.User{}, apperrors.InvalidArgument("user id is required")
	}
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return user.User{}, ErrUserNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func principalOf(u user.User) requestctx.Principal {
	return requestctx.Principal{UserID: u.ID, Role: string(u.Role), BarangayID: u.BarangayID}
}

// record appends an activity entry; failures are logged, never returned.
func (s *Service) record(ctx context.Context, input activitydomain.RecordInput) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(ctx, input); err != nil {
		s.logger.Warn("record activity", zap.String("action", input.Action), zap.Error(err))
	}
}

// notify creates an in-app notification; failures are logged, never returned.
func (s *Service) notify(ctx context.Context, input notifydomain.CreateIntentInput) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.CreateIntent(ctx, input); err != nil {
		s.logger.Warn("create notification", zap.String("topic", input.Topic), zap.Error(err))
	}
}
