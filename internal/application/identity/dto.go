package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftmarket/backend/internal/domain/identity"
)

// RegisterInput contains the data needed to register an account
type RegisterInput struct {
	Email             string
	Password          string
	DisplayName       string
	PreferredLanguage string
}

// RegisterResult is returned after successful registration
type RegisterResult struct {
	UserID uuid.UUID
	Email  string
}

// VerifyEmailInput confirms an email with a verification code
type VerifyEmailInput struct {
	Email string
	Code  string
}

// ResendCodeInput requests a fresh verification code
type ResendCodeInput struct {
	Email string
}

// LoginInput contains login credentials
type LoginInput struct {
	Email    string
	Password string
	IP       string
}

// LoginResult is returned after a successful login
type LoginResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
	User                  UserInfo
}

// RefreshTokenInput contains a refresh token
type RefreshTokenInput struct {
	RefreshToken string
}

// RefreshTokenResult is returned after a successful token refresh
type RefreshTokenResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
}

// LogoutInput invalidates the caller's tokens
type LogoutInput struct {
	UserID      uuid.UUID
	AccessJTI   string
	TokenTTL    time.Duration
	AllSessions bool
}

// ChangePasswordInput changes a user's password
type ChangePasswordInput struct {
	UserID      uuid.UUID
	OldPassword string
	NewPassword string
}

// UserInfo is the application-level view of a user account
type UserInfo struct {
	ID                uuid.UUID
	Email             string
	EmailVerified     bool
	DisplayName       string
	Avatar            string
	Status            string
	IsAdmin           bool
	PreferredLanguage string
	CreatedAt         time.Time
}

// UpdateProfileInput updates mutable profile fields. Nil pointers leave the
// field untouched.
type UpdateProfileInput struct {
	UserID            uuid.UUID
	DisplayName       *string
	PreferredLanguage *string
}

// AvatarUploadInput requests a presigned avatar upload URL
type AvatarUploadInput struct {
	UserID      uuid.UUID
	FileName    string
	ContentType string
}

// AvatarUploadResult carries the presigned URL and the storage key the
// client stores on its profile after uploading
type AvatarUploadResult struct {
	UploadURL string
	Key       string
	ExpiresAt time.Time
}

// ListUsersInput filters the admin user listing
type ListUsersInput struct {
	Keyword  string
	Status   *identity.UserStatus
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// ListUsersResult is a paginated user listing
type ListUsersResult struct {
	Users    []UserInfo
	Total    int64
	Page     int
	PageSize int
}

// CreateAdminInput creates an administrative account
type CreateAdminInput struct {
	Email    string
	Password string
}

func toUserInfo(user *identity.User) UserInfo {
	return UserInfo{
		ID:                user.ID,
		Email:             user.Email,
		EmailVerified:     user.EmailVerified,
		DisplayName:       user.DisplayName,
		Avatar:            user.Avatar,
		Status:            string(user.Status),
		IsAdmin:           user.IsAdmin,
		PreferredLanguage: user.PreferredLanguage,
		CreatedAt:         user.CreatedAt,
	}
}
