package storage

import (
	"context"
	"time"

	"github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New(errors.CodeNotFound, "record not found")
	// ErrConflict indicates a uniqueness violation.
	ErrConflict = errors.New(errors.CodeConflict, "record already exists")
)

// UserStore persists auth user records.
type UserStore interface {
	PutUser(ctx context.Context, u user.User) error
	UpdateUser(ctx context.Context, u user.User) error
	GetUser(ctx context.Context, userID string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	GetUserByPhone(ctx context.Context, phone string) (user.User, error)
	DeleteUser(ctx context.Context, userID string) error
	// ListUsers returns users of a barangay holding any of roles; no roles
	// means every user.
	ListUsers(ctx context.Context, barangayID string, roles ...user.Role) ([]user.User, error)
	CountUsers(ctx context.Context, barangayID string) (int64, error)
}

// MFAFactor is a user's TOTP enrollment.
type MFAFactor struct {
	UserID       string
	SealedSecret string
	Enabled      bool
	EnrolledAt   time.Time
	ConfirmedAt  *time.Time
	// LastUsedStep is the most recent accepted time step; codes at or before
	// it are replays.
	LastUsedStep int64
}

// MFAStore persists TOTP factors.
type MFAStore interface {
	PutMFAFactor(ctx context.Context, factor MFAFactor) error
	GetMFAFactor(ctx context.Context, userID string) (MFAFactor, error)
	DeleteMFAFactor(ctx context.Context, userID string) error
	// ConsumeMFAStep records step as used when it is newer than the stored
	// one. It reports false when the step was already consumed.
	ConsumeMFAStep(ctx context.Context, userID string, step int64) (bool, error)
}

// VerificationToken is a single-use email verification token. Only the
// SHA-256 of the token is stored.
type VerificationToken struct {
	TokenHash string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// VerificationStore persists email verification tokens.
type VerificationStore interface {
	PutVerificationToken(ctx context.Context, token VerificationToken) error
	GetVerificationToken(ctx context.Context, tokenHash string) (VerificationToken, error)
	LatestVerificationToken(ctx context.Context, userID string) (VerificationToken, error)
	// UseVerificationToken marks the token used and the user verified in one
	// transaction.
	UseVerificationToken(ctx context.Context, tokenHash string, usedAt time.Time) error
}

// Store is the full auth persistence boundary.
type Store interface {
	UserStore
	MFAStore
	VerificationStore
}
