package service

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/objectstore"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	activitydomain "github.com/louisbranch/baranex/internal/services/activity/domain"
	"github.com/louisbranch/baranex/internal/services/auth/storage"
	"github.com/louisbranch/baranex/internal/services/auth/user"
	notifydomain "github.com/louisbranch/baranex/internal/services/notifications/domain"
)

// ErrSelfModification is returned when a caller targets their own account.
var ErrSelfModification = apperrors.New(apperrors.CodeSelfModification, "you cannot change your own account")

// IdentityCheck answers whether an email or phone is registered.
type IdentityCheck struct {
	Exists bool   `json:"exists"`
	Field  string `json:"field,omitempty"`
}

// IdentityExists reports whether email or phone already belongs to a user.
// Email is checked first.
func (s *Service) IdentityExists(ctx context.Context, email, phone string) (IdentityCheck, error) {
	if err := s.ready(); err != nil {
		return IdentityCheck{}, err
	}
	if email == "" && phone == "" {
		return IdentityCheck{}, apperrors.InvalidArgument("email or phone is required")
	}
	if email != "" {
		normalized, err := user.NormalizeEmail(email)
		if err != nil {
			return IdentityCheck{}, err
		}
		_, err = s.store.GetUserByEmail(ctx, normalized)
		if err == nil {
			return IdentityCheck{Exists: true, Field: "email"}, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return IdentityCheck{}, fmt.Errorf("lookup email: %w", err)
		}
	}
	if phone != "" {
		normalized, err := user.NormalizePhone(phone)
		if err != nil {
			return IdentityCheck{}, err
		}
		_, err = s.store.GetUserByPhone(ctx, normalized)
		if err == nil {
			return IdentityCheck{Exists: true, Field: "phone"}, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return IdentityCheck{}, fmt.Errorf("lookup phone: %w", err)
		}
	}
	return IdentityCheck{}, nil
}

// PromoteUser changes a target user's role on behalf of an admin.
func (s *Service) PromoteUser(ctx context.Context, caller requestctx.Principal, targetID string, role user.Role) (user.User, error) {
	if err := s.ready(); err != nil {
		return user.User{}, err
	}
	if !role.Valid() {
		return user.User{}, apperrors.InvalidArgument("role is invalid")
	}
	target, err := s.authorizeAdminAction(ctx, caller, targetID)
	if err != nil {
		return user.User{}, err
	}
	callerRole := user.Role(caller.Role)
	if role.Level() >= callerRole.Level() {
		return user.User{}, apperrors.PermissionDenied("cannot grant a role at or above your own")
	}
	if target.Role == role {
		return target, nil
	}

	previous := target.Role
	target.Role = role
	target.UpdatedAt = s.now()
	if err := s.store.UpdateUser(ctx, target); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, fmt.Errorf("update user: %w", err)
	}
	s.record(ctx, activitydomain.RecordInput{
		BarangayID:  target.BarangayID,
		ActorUserID: caller.UserID,
		Action:      "user.promote",
		EntityType:  "user",
		EntityID:    target.ID,
		Details:     map[string]string{"from": string(previous), "to": string(role)},
	})
	s.notify(ctx, notifydomain.CreateIntentInput{
		RecipientUserID: target.ID,
		BarangayID:      target.BarangayID,
		Topic:           notifydomain.TopicRoleChanged,
		Payload:         map[string]string{"role": string(role), "previous_role": string(previous)},
		Source:          "auth",
	})
	return target, nil
}

// DeleteUser removes a target user on behalf of an admin. Profile images are
// deleted best-effort.
func (s *Service) DeleteUser(ctx context.Context, caller requestctx.Principal, targetID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	target, err := s.authorizeAdminAction(ctx, caller, targetID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, target.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.deleteImages(ctx, target)
	s.record(ctx, activitydomain.RecordInput{
		BarangayID:  target.BarangayID,
		ActorUserID: caller.UserID,
		Action:      "user.delete",
		EntityType:  "user",
		EntityID:    target.ID,
		Details:     map[string]string{"email": target.Email},
	})
	return nil
}

// SetRole assigns role to the user with email without caller checks. It backs
// the operator CLI.
func (s *Service) SetRole(ctx context.Context, email string, role user.Role) (user.User, error) {
	if err := s.ready(); err != nil {
		return user.User{}, err
	}
	if !role.Valid() {
		return user.User{}, apperrors.InvalidArgument("role is invalid")
	}
	normalized, err := user.NormalizeEmail(email)
	if err != nil {
		return user.User{}, err
	}
	u, err := s.store.GetUserByEmail(ctx, normalized)
	if errors.Is(err, storage.ErrNotFound) {
		return user.User{}, ErrUserNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("load user: %w", err)
	}
	u.Role = role
	u.UpdatedAt = s.now()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return user.User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// authorizeAdminAction loads the target and checks the caller may act on it.
func (s *Service) authorizeAdminAction(ctx context.Context, caller requestctx.Principal, targetID string) (user.User, error) {
	callerRole := user.Role(caller.Role)
	if !callerRole.AtLeast(user.RoleAdmin) {
		return user.User{}, apperrors.PermissionDenied("admin role required")
	}
	if caller.UserID == targetID {
		return user.User{}, ErrSelfModification
	}
	target, err := s.loadUser(ctx, targetID)
	if err != nil {
		return user.User{}, err
	}
	if callerRole != user.RoleSuperadmin && target.BarangayID != caller.BarangayID {
		// Users of other barangays are invisible.
		return user.User{}, ErrUserNotFound
	}
	if target.Role.Level() >= callerRole.Level() {
		return user.User{}, apperrors.PermissionDenied("cannot manage a user at or above your role")
	}
	return target, nil
}

func (s *Service) deleteImages(ctx context.Context, u user.User) {
	if s.objects == nil {
		return
	}
	for bucket, key := range map[objectstore.Bucket]string{
		objectstore.BucketAvatars:     u.AvatarKey,
		objectstore.BucketCovers:      u.CoverKey,
		objectstore.BucketBackgrounds: u.BackgroundKey,
	} {
		if key == "" {
			continue
		}
		if err := s.objects.Delete(ctx, bucket, key); err != nil {
			s.logger.Warn("delete profile image", zapUser(u.ID), zapErr(err))
		}
	}
}
