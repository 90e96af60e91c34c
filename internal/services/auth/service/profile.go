package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/objectstore"
	"github.com/louisbranch/baranex/internal/platform/textnorm"
	"github.com/louisbranch/baranex/internal/services/auth/storage"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

// ImageKind names a profile image slot.
type ImageKind string

const (
	ImageAvatar     ImageKind = "avatar"
	ImageCover      ImageKind = "cover"
	ImageBackground ImageKind = "background"
)

// ParseImageKind validates an image slot name.
func ParseImageKind(raw string) (ImageKind, error) {
	switch k := ImageKind(strings.ToLower(strings.TrimSpace(raw))); k {
	case ImageAvatar, ImageCover, ImageBackground:
		return k, nil
	}
	return "", apperrors.InvalidArgument("image kind must be avatar, cover or background")
}

func (k ImageKind) bucket() objectstore.Bucket {
	switch k {
	case ImageCover:
		return objectstore.BucketCovers
	case ImageBackground:
		return objectstore.BucketBackgrounds
	default:
		return objectstore.BucketAvatars
	}
}

func (k ImageKind) slot(u *user.User) *string {
	switch k {
	case ImageCover:
		return &u.CoverKey
	case ImageBackground:
		return &u.BackgroundKey
	default:
		return &u.AvatarKey
	}
}

// UpdateProfileInput carries optional profile changes; nil leaves a field as is.
type UpdateProfileInput struct {
	DisplayName *string `json:"display_name"`
	Phone       *string `json:"phone"`
}

// GetProfile returns the caller's own user record.
func (s *Service) GetProfile(ctx context.Context, userID string) (user.User, error) {
	return s.GetUser(ctx, userID)
}

// UpdateProfile applies display name and phone changes.
func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (user.User, error) {
	if err := s.ready(); err != nil {
		return user.User{}, err
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return user.User{}, err
	}
	if input.DisplayName != nil {
		name := textnorm.Clean(*input.DisplayName)
		if name == "" {
			return user.User{}, user.ErrEmptyDisplayName
		}
		u.DisplayName = name
	}
	if input.Phone != nil {
		phone, err := user.NormalizePhone(*input.Phone)
		if err != nil {
			return user.User{}, err
		}
		u.Phone = phone
	}
	u.UpdatedAt = s.now()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return user.User{}, apperrors.New(apperrors.CodeConflict, "phone is already registered")
		}
		return user.User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// UploadImage stores a profile image and replaces the previous one.
func (s *Service) UploadImage(ctx context.Context, userID string, kind ImageKind, r io.Reader) (user.User, error) {
	if err := s.ready(); err != nil {
		return user.User{}, err
	}
	if s.objects == nil {
		return user.User{}, ErrNotConfigured
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return user.User{}, err
	}
	bucket := kind.bucket()
	obj, err := s.objects.Put(ctx, bucket, u.BarangayID, r)
	if err != nil {
		return user.User{}, err
	}
	slot := kind.slot(&u)
	previous := *slot
	*slot = obj.Key
	u.UpdatedAt = s.now()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		if delErr := s.objects.Delete(ctx, bucket, obj.Key); delErr != nil {
			s.logger.Warn("delete orphaned image", zapUser(u.ID), zapErr(delErr))
		}
		return user.User{}, fmt.Errorf("update user: %w", err)
	}
	if previous != "" {
		if err := s.objects.Delete(ctx, bucket, previous); err != nil {
			s.logger.Warn("delete replaced image", zapUser(u.ID), zapErr(err))
		}
	}
	return u, nil
}
