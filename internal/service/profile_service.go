package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/task-manager/internal/auth"
	"github.com/Tomlord1122/task-manager/internal/repository"
	"github.com/Tomlord1122/task-manager/internal/storage"
)

const profileUpdateFailed = "Failed to update profile"

// AvatarStore persists avatar uploads; storage.AvatarStore implements it.
type AvatarStore interface {
	Save(r io.Reader) (string, error)
	Remove(url string) error
}

// UpdateProfileRequest carries the profile form. An empty Password keeps
// the current one and a nil Avatar keeps the current picture.
type UpdateProfileRequest struct {
	Name     string    `json:"name" validate:"required,max=100"`
	Email    string    `json:"email" validate:"required,email,max=255"`
	Password string    `json:"password" validate:"maxbytes=72"`
	Avatar   io.Reader `json:"-"`
}

type ProfileService interface {
	Me(ctx context.Context, userID uint) (*UserResponse, error)
	UpdateProfile(ctx context.Context, userID uint, req UpdateProfileRequest) (*UserResponse, error)
}

type profileService struct {
	users   repository.UserRepository
	avatars AvatarStore
	log     *logrus.Entry
}

func NewProfileService(users repository.UserRepository, avatars AvatarStore, log *logrus.Entry) ProfileService {
	return &profileService{
		users:   users,
		avatars: avatars,
		log:     log.WithField("component", "profile_service"),
	}
}

func (s *profileService) Me(ctx context.Context, userID uint) (*UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("User not found")
		}
		s.log.WithError(err).WithField("user_id", userID).Error("load user")
		return nil, serverError("Failed to load user", err)
	}
	return toUserResponse(user), nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID uint, req UpdateProfileRequest) (*UserResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("User not found")
		}
		s.log.WithError(err).WithField("user_id", userID).Error("load user for profile update")
		return nil, serverError(profileUpdateFailed, err)
	}

	user.Name = req.Name
	user.Email = req.Email

	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			s.log.WithError(err).Error("hash new password")
			return nil, serverError(profileUpdateFailed, err)
		}
		user.Password = hash
	}

	oldAvatar := user.AvatarURL
	newAvatar := ""
	if req.Avatar != nil {
		newAvatar, err = s.avatars.Save(req.Avatar)
		if err != nil {
			if errors.Is(err, storage.ErrNotAnImage) || errors.Is(err, storage.ErrAvatarTooBig) {
				return nil, validationError(err.Error())
			}
			s.log.WithError(err).Error("store avatar")
			return nil, serverError(profileUpdateFailed, err)
		}
		user.AvatarURL = newAvatar
	}

	if err := s.users.Update(ctx, user); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("update profile")
		if newAvatar != "" {
			_ = s.avatars.Remove(newAvatar)
		}
		return nil, serverError(profileUpdateFailed, err)
	}

	if newAvatar != "" && oldAvatar != "" {
		if err := s.avatars.Remove(oldAvatar); err != nil {
			s.log.WithError(err).WithField("avatar", oldAvatar).Warn("remove replaced avatar")
		}
	}

	return toUserResponse(user), nil
}
