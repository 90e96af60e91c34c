package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	activitydomain "github.com/louisbranch/baranex/internal/services/activity/domain"
	"github.com/louisbranch/baranex/internal/services/auth/mfa"
	"github.com/louisbranch/baranex/internal/services/auth/storage"
)

func errMFAUnavailable() error {
	return apperrors.New(apperrors.CodeUnavailable, "mfa is not configured")
}

// Enrollment is returned once, when a TOTP secret is generated.
type Enrollment struct {
	Secret string `json:"secret"`
	URI    string `json:"otpauth_uri"`
}

// MFAStatus describes a user's TOTP state.
type MFAStatus struct {
	Enrolled   bool       `json:"enrolled"`
	Enabled    bool       `json:"enabled"`
	EnrolledAt *time.Time `json:"enrolled_at,omitempty"`
}

// EnrollMFA generates a new TOTP secret. The factor stays disabled until
// VerifyMFA confirms a code; a pending enrollment is replaced.
func (s *Service) EnrollMFA(ctx context.Context, userID string) (Enrollment, error) {
	if err := s.ready(); err != nil {
		return Enrollment{}, err
	}
	if s.sealer == nil {
		return Enrollment{}, errMFAUnavailable()
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return Enrollment{}, err
	}
	existing, err := s.store.GetMFAFactor(ctx, u.ID)
	if err == nil && existing.Enabled {
		return Enrollment{}, ErrMFAAlreadyEnabled
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return Enrollment{}, fmt.Errorf("load mfa factor: %w", err)
	}

	plain, err := mfa.GenerateSecret(s.random)
	if err != nil {
		return Enrollment{}, err
	}
	sealed, err := s.sealer.Seal(plain)
	if err != nil {
		return Enrollment{}, fmt.Errorf("seal totp secret: %w", err)
	}
	if err := s.store.PutMFAFactor(ctx, storage.MFAFactor{
		UserID:       u.ID,
		SealedSecret: sealed,
		EnrolledAt:   s.now(),
	}); err != nil {
		return Enrollment{}, fmt.Errorf("store mfa factor: %w", err)
	}
	return Enrollment{Secret: plain, URI: mfa.URI(u.Email, plain)}, nil
}

// VerifyMFA confirms a pending enrollment with a current code.
func (s *Service) VerifyMFA(ctx context.Context, userID, code string) (MFAStatus, error) {
	if err := s.ready(); err != nil {
		return MFAStatus{}, err
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return MFAStatus{}, err
	}
	factor, err := s.store.GetMFAFactor(ctx, u.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return MFAStatus{}, ErrMFANotEnrolled
	}
	if err != nil {
		return MFAStatus{}, fmt.Errorf("load mfa factor: %w", err)
	}
	if factor.Enabled {
		return MFAStatus{}, ErrMFAAlreadyEnabled
	}
	step, err := s.checkCode(ctx, factor, code)
	if err != nil {
		return MFAStatus{}, err
	}

	confirmed := s.now()
	factor.Enabled = true
	factor.ConfirmedAt = &confirmed
	factor.LastUsedStep = step
	if err := s.store.PutMFAFactor(ctx, factor); err != nil {
		return MFAStatus{}, fmt.Errorf("store mfa factor: %w", err)
	}
	s.record(ctx, activitydomain.RecordInput{
		BarangayID:  u.BarangayID,
		ActorUserID: u.ID,
		Action:      "mfa.enable",
		EntityType:  "user",
		EntityID:    u.ID,
	})
	return statusOf(factor), nil
}

// DisableMFA removes an enabled factor after checking a current code.
func (s *Service) DisableMFA(ctx context.Context, userID, code string) error {
	if err := s.ready(); err != nil {
		return err
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	factor, err := s.store.GetMFAFactor(ctx, u.ID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !factor.Enabled) {
		return ErrMFANotEnrolled
	}
	if err != nil {
		return fmt.Errorf("load mfa factor: %w", err)
	}
	if _, err := s.checkCode(ctx, factor, code); err != nil {
		return err
	}
	if err := s.store.DeleteMFAFactor(ctx, u.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete mfa factor: %w", err)
	}
	s.record(ctx, activitydomain.RecordInput{
		BarangayID:  u.BarangayID,
		ActorUserID: u.ID,
		Action:      "mfa.disable",
		EntityType:  "user",
		EntityID:    u.ID,
	})
	return nil
}

// GetMFAStatus reports a user's TOTP state.
func (s *Service) GetMFAStatus(ctx context.Context, userID string) (MFAStatus, error) {
	if err := s.ready(); err != nil {
		return MFAStatus{}, err
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return MFAStatus{}, err
	}
	factor, err := s.store.GetMFAFactor(ctx, u.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return MFAStatus{}, nil
	}
	if err != nil {
		return MFAStatus{}, fmt.Errorf("load mfa factor: %w", err)
	}
	return statusOf(factor), nil
}

// checkCode validates code against the factor and consumes its time step.
func (s *Service) checkCode(ctx context.Context, factor storage.MFAFactor, code string) (int64, error) {
	if s.sealer == nil {
		return 0, errMFAUnavailable()
	}
	plain, err := s.sealer.Open(factor.SealedSecret)
	if err != nil {
		return 0, fmt.Errorf("open totp secret: %w", err)
	}
	step, ok, err := mfa.Validate(plain, code, s.now(), factor.LastUsedStep)
	if err != nil {
		return 0, fmt.Errorf("validate totp: %w", err)
	}
	if !ok {
		return 0, ErrInvalidCode
	}
	consumed, err := s.store.ConsumeMFAStep(ctx, factor.UserID, step)
	if err != nil {
		return 0, fmt.Errorf("consume totp step: %w", err)
	}
	if !consumed {
		return 0, ErrInvalidCode
	}
	return step, nil
}

func statusOf(factor storage.MFAFactor) MFAStatus {
	enrolledAt := factor.EnrolledAt
	return MFAStatus{Enrolled: true, Enabled: factor.Enabled, EnrolledAt: &enrolledAt}
}
