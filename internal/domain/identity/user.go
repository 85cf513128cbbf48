package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/craftmarket/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// UserStatus represents the status of a user account
type UserStatus string

const (
	UserStatusPending     UserStatus = "pending"     // Registered, email not yet verified
	UserStatusActive      UserStatus = "active"      // Normal active status
	UserStatusLocked      UserStatus = "locked"      // Locked due to failed attempts
	UserStatusDeactivated UserStatus = "deactivated" // Manually deactivated
)

// Password cost for bcrypt
const bcryptCost = 12

// VerificationCodeTTL is how long an email verification code stays valid
const VerificationCodeTTL = 15 * time.Minute

const verificationCodeLength = 6

// User is the aggregate root for account operations. Accounts are addressed
// by email; there is no separate username.
type User struct {
	shared.BaseAggregateRoot
	Email                     string
	EmailVerified             bool
	EmailVerificationCode     string
	VerificationCodeCreatedAt *time.Time
	PasswordHash              string
	DisplayName               string
	Avatar                    string
	Status                    UserStatus
	IsAdmin                   bool
	PreferredLanguage         string
	LastLoginAt               *time.Time
	LastLoginIP               string
	FailedAttempts            int
	LockedUntil               *time.Time
	PasswordChangedAt         *time.Time
}

// NewUser creates a new user in pending status with a hashed password
func NewUser(email, password string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	now := time.Now()
	user := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		PasswordHash:      passwordHash,
		Status:            UserStatusPending,
		PasswordChangedAt: &now,
	}

	user.AddDomainEvent(NewUserRegisteredEvent(user))

	return user, nil
}

// NewAdminUser creates an administrative account that is active and
// pre-verified. Used by the create-admin deployment command.
func NewAdminUser(email, password string) (*User, error) {
	user, err := NewUser(email, password)
	if err != nil {
		return nil, err
	}

	user.Status = UserStatusActive
	user.EmailVerified = true
	user.IsAdmin = true
	return user, nil
}

// GenerateVerificationCode creates a fresh 6-digit email verification code
// and stamps its creation time. The previous code, if any, is replaced.
func (u *User) GenerateVerificationCode() (string, error) {
	var sb strings.Builder
	for i := 0; i < verificationCodeLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", shared.NewDomainError("CODE_GENERATION_ERROR", "Failed to generate verification code")
		}
		sb.WriteString(n.String())
	}

	now := time.Now()
	u.EmailVerificationCode = sb.String()
	u.VerificationCodeCreatedAt = &now
	u.Touch()
	u.IncrementVersion()

	return u.EmailVerificationCode, nil
}

// IsVerificationCodeValid reports whether the given code matches the stored
// one and is still within its validity window.
func (u *User) IsVerificationCodeValid(code string) bool {
	if u.EmailVerificationCode == "" || u.VerificationCodeCreatedAt == nil {
		return false
	}
	if u.EmailVerificationCode != code {
		return false
	}
	return time.Since(*u.VerificationCodeCreatedAt) <= VerificationCodeTTL
}

// VerifyEmail confirms the account email with the given code. A pending
// account becomes active on successful verification.
func (u *User) VerifyEmail(code string) error {
	if u.EmailVerified {
		return shared.NewDomainError("ALREADY_VERIFIED", "Email is already verified")
	}
	if !u.IsVerificationCodeValid(code) {
		return shared.NewDomainError("INVALID_VERIFICATION_CODE", "Verification code is invalid or expired")
	}

	u.EmailVerified = true
	u.EmailVerificationCode = ""
	u.VerificationCodeCreatedAt = nil
	if u.Status == UserStatusPending {
		u.Status = UserStatusActive
	}
	u.Touch()
	u.IncrementVersion()

	u.AddDomainEvent(NewUserEmailVerifiedEvent(u))

	return nil
}

// ClearExpiredVerificationCode drops the stored code when it has outlived
// its validity window. Returns true when something was cleared.
func (u *User) ClearExpiredVerificationCode() bool {
	if u.EmailVerificationCode == "" || u.VerificationCodeCreatedAt == nil {
		return false
	}
	if time.Since(*u.VerificationCodeCreatedAt) <= VerificationCodeTTL {
		return false
	}
	u.EmailVerificationCode = ""
	u.VerificationCodeCreatedAt = nil
	u.Touch()
	return true
}

// VerifyPassword checks the given password against the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ChangePassword replaces the stored password hash
func (u *User) ChangePassword(newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	now := time.Now()
	u.PasswordHash = hash
	u.PasswordChangedAt = &now
	u.Touch()
	u.IncrementVersion()

	return nil
}

// SetDisplayName sets the user's display name
func (u *User) SetDisplayName(displayName string) error {
	if len(displayName) > 200 {
		return shared.NewDomainError("INVALID_DISPLAY_NAME", "Display name cannot exceed 200 characters")
	}
	u.DisplayName = strings.TrimSpace(displayName)
	u.Touch()
	u.IncrementVersion()
	return nil
}

// SetAvatar sets the user's avatar storage key
func (u *User) SetAvatar(avatar string) error {
	if len(avatar) > 500 {
		return shared.NewDomainError("INVALID_AVATAR", "Avatar key cannot exceed 500 characters")
	}
	u.Avatar = avatar
	u.Touch()
	u.IncrementVersion()
	return nil
}

// SetPreferredLanguage records the language the user last browsed in
func (u *User) SetPreferredLanguage(lang string) {
	u.PreferredLanguage = lang
	u.Touch()
}

// RecordLoginSuccess records a successful login from the given IP
func (u *User) RecordLoginSuccess(ip string) {
	now := time.Now()
	u.LastLoginAt = &now
	u.LastLoginIP = ip
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.Touch()
}

// RecordLoginFailure increments the failed attempt counter and locks the
// account when maxAttempts is reached. Returns true if the account was locked.
func (u *User) RecordLoginFailure(maxAttempts int, lockDuration time.Duration) bool {
	u.FailedAttempts++
	u.Touch()

	if u.FailedAttempts >= maxAttempts {
		until := time.Now().Add(lockDuration)
		u.Status = UserStatusLocked
		u.LockedUntil = &until
		u.AddDomainEvent(NewUserLockedEvent(u))
		return true
	}
	return false
}

// Unlock clears a lock once its period has passed
func (u *User) Unlock() {
	u.Status = UserStatusActive
	u.LockedUntil = nil
	u.FailedAttempts = 0
	u.Touch()
}

// Deactivate manually deactivates the account
func (u *User) Deactivate() {
	u.Status = UserStatusDeactivated
	u.Touch()
	u.IncrementVersion()
}

// IsLocked reports whether the account is currently locked
func (u *User) IsLocked() bool {
	if u.Status != UserStatusLocked {
		return false
	}
	if u.LockedUntil != nil && time.Now().After(*u.LockedUntil) {
		return false // Lock period has expired
	}
	return true
}

// IsPending reports whether the account is awaiting email verification
func (u *User) IsPending() bool {
	return u.Status == UserStatusPending
}

// IsDeactivated reports whether the account has been deactivated
func (u *User) IsDeactivated() bool {
	return u.Status == UserStatusDeactivated
}

// CanLogin reports whether the account may authenticate right now
func (u *User) CanLogin() bool {
	if u.IsLocked() || u.IsDeactivated() || u.IsPending() {
		return false
	}
	return true
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", shared.NewDomainError("INVALID_EMAIL", "Email is required")
	}
	if len(email) > 200 || !emailPattern.MatchString(email) {
		return "", shared.NewDomainError("INVALID_EMAIL", fmt.Sprintf("%q is not a valid email address", email))
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		// bcrypt input limit
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
