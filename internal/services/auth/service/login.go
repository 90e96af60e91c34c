package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	activitydomain "github.com/louisbranch/baranex/internal/services/activity/domain"
	"github.com/louisbranch/baranex/internal/services/auth/storage"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

// SignUpInput is self-service registration data.
type SignUpInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	BarangayID  string `json:"barangay_id"`
}

// LoginResult is either an access token or an MFA challenge.
type LoginResult struct {
	MFARequired    bool       `json:"mfa_required"`
	ChallengeToken string     `json:"challenge_token,omitempty"`
	AccessToken    string     `json:"access_token,omitempty"`
	ExpiresAt      time.Time  `json:"expires_at"`
	User           *user.User `json:"user,omitempty"`
}

// SignUp registers a resident and sends a verification email.
func (s *Service) SignUp(ctx context.Context, input SignUpInput) (user.User, error) {
	u, err := s.createUser(ctx, input, user.RoleResident, false)
	if err != nil {
		return user.User{}, err
	}
	if err := s.issueVerification(ctx, u); err != nil {
		s.logger.Warn("send verification email after sign-up", zapUser(u.ID), zapErr(err))
	}
	s.record(ctx, activitydomain.RecordInput{
		BarangayID:  u.BarangayID,
		ActorUserID: u.ID,
		Action:      "auth.signup",
		EntityType:  "user",
		EntityID:    u.ID,
	})
	return u, nil
}

// Bootstrap creates a pre-verified user with role when the email is unused.
// It reports whether a user was created.
func (s *Service) Bootstrap(ctx context.Context, input SignUpInput, role user.Role) (user.User, bool, error) {
	email, err := user.NormalizeEmail(input.Email)
	if err != nil {
		return user.User{}, false, err
	}
	if err := s.ready(); err != nil {
		return user.User{}, false, err
	}
	existing, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return user.User{}, false, fmt.Errorf("lookup user: %w", err)
	}
	u, err := s.createUser(ctx, input, role, true)
	if err != nil {
		return user.User{}, false, err
	}
	return u, true, nil
}

func (s *Service) createUser(ctx context.Context, input SignUpInput, role user.Role, verified bool) (user.User, error) {
	if err := s.ready(); err != nil {
		return user.User{}, err
	}
	normalized, err := user.NormalizeCreateUserInput(user.CreateUserInput{
		Email:       input.Email,
		Password:    input.Password,
		DisplayName: input.DisplayName,
		Phone:       input.Phone,
		BarangayID:  input.BarangayID,
		Role:        role,
	})
	if err != nil {
		return user.User{}, err
	}
	if len(normalized.Password) > maxPasswordBytes {
		return user.User{}, apperrors.InvalidArgument(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}
	if s.barangays != nil {
		exists, err := s.barangays.BarangayExists(ctx, normalized.BarangayID)
		if err != nil {
			return user.User{}, fmt.Errorf("check barangay: %w", err)
		}
		if !exists {
			return user.User{}, apperrors.InvalidArgument("unknown barangay")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(normalized.Password), s.cost)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := user.CreateUser(normalized, string(hash), s.now, s.newID)
	if err != nil {
		return user.User{}, err
	}
	if verified {
		at := u.CreatedAt
		u.EmailVerifiedAt = &at
	}
	if err := s.store.PutUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return user.User{}, apperrors.New(apperrors.CodeConflict, "email or phone is already registered")
		}
		return user.User{}, fmt.Errorf("store user: %w", err)
	}
	return u, nil
}

// Login checks a password. Users with an enabled TOTP factor receive a
// short-lived challenge token instead of an access token.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if err := s.ready(); err != nil {
		return LoginResult{}, err
	}
	normalized, err := user.NormalizeEmail(email)
	if err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	u, err := s.store.GetUserByEmail(ctx, normalized)
	if errors.Is(err, storage.ErrNotFound) {
		// Equalize timing with the found-user path.
		_ = bcrypt.CompareHashAndPassword(s.placeholderHash(), []byte(password))
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	factor, err := s.store.GetMFAFactor(ctx, u.ID)
	switch {
	case err == nil && factor.Enabled:
		challenge, expires, err := s.tokens.IssueChallenge(u.ID)
		if err != nil {
			return LoginResult{}, err
		}
		return LoginResult{MFARequired: true, ChallengeToken: challenge, ExpiresAt: expires}, nil
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return LoginResult{}, fmt.Errorf("load mfa factor: %w", err)
	}
	return s.accessResult(u)
}

// CompleteMFALogin exchanges a challenge token and TOTP code for an access
// token.
func (s *Service) CompleteMFALogin(ctx context.Context, challenge, code string) (LoginResult, error) {
	if err := s.ready(); err != nil {
		return LoginResult{}, err
	}
	userID, err := s.tokens.ParseChallenge(challenge)
	if err != nil {
		return LoginResult{}, err
	}
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return LoginResult{}, apperrors.New(apperrors.CodeMFAChallengeFailed, "invalid or expired MFA challenge")
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	factor, err := s.store.GetMFAFactor(ctx, u.ID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !factor.Enabled) {
		return LoginResult{}, ErrMFANotEnrolled
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("load mfa factor: %w", err)
	}
	if _, err := s.checkCode(ctx, factor, code); err != nil {
		return LoginResult{}, err
	}
	return s.accessResult(u)
}

func (s *Service) accessResult(u user.User) (LoginResult, error) {
	access, expires, err := s.tokens.IssueAccess(u)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{AccessToken: access, ExpiresAt: expires, User: &u}, nil
}

func (s *Service) placeholderHash() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("baranex-placeholder-password"), s.cost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
