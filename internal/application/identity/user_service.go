package identity

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/craftmarket/backend/internal/domain/identity"
	"github.com/craftmarket/backend/internal/domain/shared"
)

// MediaStorage is the slice of object storage the user service needs for
// avatar handling. *storage.S3MediaStorage satisfies it.
type MediaStorage interface {
	MediaKey(parts ...string) string
	GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error)
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

var allowedAvatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

const avatarUploadExpiry = 15 * time.Minute

// UserService handles profile and account management use cases
type UserService struct {
	userRepo identity.UserRepository
	storage  MediaStorage
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo identity.UserRepository, storage MediaStorage, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		storage:  storage,
		logger:   logger,
	}
}

// GetProfile returns a user's profile
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		s.logger.Error("Failed to load user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load profile")
	}

	info := toUserInfo(user)
	return &info, nil
}

// UpdateProfile applies the non-nil fields of the input
func (s *UserService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if input.DisplayName != nil {
		if err := user.SetDisplayName(*input.DisplayName); err != nil {
			return nil, err
		}
	}
	if input.PreferredLanguage != nil {
		user.SetPreferredLanguage(*input.PreferredLanguage)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update profile", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update profile")
	}

	info := toUserInfo(user)
	return &info, nil
}

// AvatarUploadURL returns a presigned PUT URL for the user's new avatar.
// The caller confirms the upload with ConfirmAvatar.
func (s *UserService) AvatarUploadURL(ctx context.Context, input AvatarUploadInput) (*AvatarUploadResult, error) {
	ext, ok := allowedAvatarTypes[strings.ToLower(input.ContentType)]
	if !ok {
		return nil, shared.NewDomainError("UNSUPPORTED_MEDIA_TYPE", "Avatar must be a JPEG, PNG or WebP image")
	}

	if _, err := s.userRepo.FindByID(ctx, input.UserID); err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	key := s.storage.MediaKey("avatars", input.UserID.String(), fmt.Sprintf("%s%s", uuid.New().String(), ext))

	uploadURL, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, input.ContentType, avatarUploadExpiry)
	if err != nil {
		s.logger.Error("Failed to presign avatar upload", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to prepare avatar upload")
	}

	return &AvatarUploadResult{
		UploadURL: uploadURL,
		Key:       key,
		ExpiresAt: expiresAt,
	}, nil
}

// ConfirmAvatar stores the uploaded avatar key on the profile. The key must
// belong to the user's own avatar prefix.
func (s *UserService) ConfirmAvatar(ctx context.Context, userID uuid.UUID, key string) (*UserInfo, error) {
	expectedPrefix := s.storage.MediaKey("avatars", userID.String()) + "/"
	if !strings.HasPrefix(key, expectedPrefix) || path.Clean(key) != key {
		return nil, shared.NewDomainError("INVALID_AVATAR_KEY", "Avatar key does not belong to this account")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if err := user.SetAvatar(key); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to store avatar", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to store avatar")
	}

	info := toUserInfo(user)
	return &info, nil
}

// AvatarDownloadURL resolves a user's avatar key to a presigned GET URL.
// Returns an empty string when no avatar is set.
func (s *UserService) AvatarDownloadURL(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}
	if user.Avatar == "" {
		return "", nil
	}

	url, _, err := s.storage.GenerateDownloadURL(ctx, user.Avatar, avatarUploadExpiry)
	if err != nil {
		s.logger.Error("Failed to presign avatar download", zap.Error(err))
		return "", shared.NewDomainError("INTERNAL_ERROR", "Failed to resolve avatar")
	}
	return url, nil
}

// ListUsers returns a paginated listing for the admin surface
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) (*ListUsersResult, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.PageSize < 1 || input.PageSize > 100 {
		input.PageSize = 20
	}

	users, total, err := s.userRepo.FindAll(ctx, identity.UserFilter{
		Keyword:  input.Keyword,
		Status:   input.Status,
		Page:     input.Page,
		PageSize: input.PageSize,
		OrderBy:  input.OrderBy,
		OrderDir: input.OrderDir,
	})
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list users")
	}

	infos := make([]UserInfo, 0, len(users))
	for _, user := range users {
		infos = append(infos, toUserInfo(user))
	}

	return &ListUsersResult{
		Users:    infos,
		Total:    total,
		Page:     input.Page,
		PageSize: input.PageSize,
	}, nil
}

// CreateAdmin provisions an active administrative account. Used by the
// deployctl create-admin command.
func (s *UserService) CreateAdmin(ctx context.Context, input CreateAdminInput) (*UserInfo, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check email availability")
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_TAKEN", "An account with this email already exists")
	}

	user, err := identity.NewAdminUser(input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("EMAIL_TAKEN", "An account with this email already exists")
		}
		s.logger.Error("Failed to create admin", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create admin account")
	}

	s.logger.Info("Admin account created", zap.String("email", user.Email))

	info := toUserInfo(user)
	return &info, nil
}
