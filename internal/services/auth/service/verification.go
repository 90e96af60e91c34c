package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/services/auth/mailer"
	"github.com/louisbranch/baranex/internal/services/auth/storage"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

const (
	// VerificationTTL is how long an emailed token stays valid.
	VerificationTTL = 24 * time.Hour
	// ResendInterval is the minimum gap between verification emails.
	ResendInterval = 60 * time.Second

	verificationTokenBytes = 32
)

// ErrInvalidVerificationToken covers unknown, used and expired tokens.
var ErrInvalidVerificationToken = apperrors.InvalidArgument("invalid or expired verification token")

// ResendVerification emails a fresh token. Unknown and already-verified
// addresses succeed silently so callers cannot probe for accounts.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	if err := s.ready(); err != nil {
		return err
	}
	normalized, err := user.NormalizeEmail(email)
	if err != nil {
		return err
	}
	u, err := s.store.GetUserByEmail(ctx, normalized)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if u.Verified() {
		return nil
	}

	latest, err := s.store.LatestVerificationToken(ctx, u.ID)
	switch {
	case err == nil:
		if wait := ResendInterval - s.now().Sub(latest.CreatedAt); wait > 0 {
			return apperrors.WithMetadata(apperrors.CodeRateLimited,
				"please wait before requesting another verification email",
				map[string]string{"retry_after_seconds": fmt.Sprint(int(wait.Seconds()) + 1)})
		}
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("load verification token: %w", err)
	}
	return s.issueVerification(ctx, u)
}

// VerifyEmail consumes a verification token and marks its user verified.
func (s *Service) VerifyEmail(ctx context.Context, raw string) error {
	if err := s.ready(); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrInvalidVerificationToken
	}
	hash := hashToken(raw)
	stored, err := s.store.GetVerificationToken(ctx, hash)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrInvalidVerificationToken
	}
	if err != nil {
		return fmt.Errorf("load verification token: %w", err)
	}
	now := s.now()
	if stored.UsedAt != nil || !now.Before(stored.ExpiresAt) {
		return ErrInvalidVerificationToken
	}
	if err := s.store.UseVerificationToken(ctx, hash, now); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidVerificationToken
		}
		return fmt.Errorf("use verification token: %w", err)
	}
	return nil
}

func (s *Service) issueVerification(ctx context.Context, u user.User) error {
	buf := make([]byte, verificationTokenBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	now := s.now()
	if err := s.store.PutVerificationToken(ctx, storage.VerificationToken{
		TokenHash: hashToken(raw),
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(VerificationTTL),
	}); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	link := raw
	if s.verifyURL != "" {
		link = s.verifyURL + raw
	}
	return s.mailer.Send(ctx, mailer.Message{
		To:      u.Email,
		Subject: "Verify your Baranex email",
		Body: fmt.Sprintf("Hello %s,\n\nConfirm your email address to finish setting up your account:\n\n%s\n\nThis link expires in 24 hours.\n",
			u.DisplayName, link),
	})
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
