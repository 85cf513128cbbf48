package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Run("creates user with valid email and password", func(t *testing.T) {
		user, err := NewUser("buyer@example.com", "Password123")

		require.NoError(t, err)
		assert.NotNil(t, user)
		assert.Equal(t, "buyer@example.com", user.Email)
		assert.NotEmpty(t, user.PasswordHash)
		assert.Equal(t, UserStatusPending, user.Status)
		assert.False(t, user.EmailVerified)
		assert.False(t, user.IsAdmin)
		assert.NotNil(t, user.PasswordChangedAt)

		events := user.GetDomainEvents()
		assert.Len(t, events, 1)
		_, ok := events[0].(*UserRegisteredEvent)
		assert.True(t, ok)
	})

	t.Run("normalizes email to lowercase", func(t *testing.T) {
		user, err := NewUser("  Buyer@Example.COM ", "Password123")

		require.NoError(t, err)
		assert.Equal(t, "buyer@example.com", user.Email)
	})

	t.Run("fails with empty email", func(t *testing.T) {
		_, err := NewUser("", "Password123")

		assert.Error(t, err)
	})

	t.Run("fails with malformed email", func(t *testing.T) {
		_, err := NewUser("not-an-email", "Password123")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not a valid email")
	})

	t.Run("fails with short password", func(t *testing.T) {
		_, err := NewUser("buyer@example.com", "short")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "at least 8 characters")
	})
}

func TestNewAdminUser(t *testing.T) {
	user, err := NewAdminUser("admin@example.com", "Password123")

	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
	assert.True(t, user.EmailVerified)
	assert.Equal(t, UserStatusActive, user.Status)
	assert.True(t, user.CanLogin())
}

func TestUserVerificationCode(t *testing.T) {
	t.Run("generates six digit code", func(t *testing.T) {
		user, err := NewUser("buyer@example.com", "Password123")
		require.NoError(t, err)

		code, err := user.GenerateVerificationCode()
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.Regexp(t, `^\d{6}$`, code)
		assert.NotNil(t, user.VerificationCodeCreatedAt)
	})

	t.Run("accepts matching code within window", func(t *testing.T) {
		user, _ := NewUser("buyer@example.com", "Password123")
		code, err := user.GenerateVerificationCode()
		require.NoError(t, err)

		assert.True(t, user.IsVerificationCodeValid(code))
		assert.False(t, user.IsVerificationCodeValid("000000"))
	})

	t.Run("rejects expired code", func(t *testing.T) {
		user, _ := NewUser("buyer@example.com", "Password123")
		code, err := user.GenerateVerificationCode()
		require.NoError(t, err)

		expired := time.Now().Add(-VerificationCodeTTL - time.Minute)
		user.VerificationCodeCreatedAt = &expired

		assert.False(t, user.IsVerificationCodeValid(code))
	})

	t.Run("clears only expired codes", func(t *testing.T) {
		user, _ := NewUser("buyer@example.com", "Password123")
		_, err := user.GenerateVerificationCode()
		require.NoError(t, err)

		assert.False(t, user.ClearExpiredVerificationCode())

		expired := time.Now().Add(-VerificationCodeTTL - time.Minute)
		user.VerificationCodeCreatedAt = &expired
		assert.True(t, user.ClearExpiredVerificationCode())
		assert.Empty(t, user.EmailVerificationCode)
	})
}

func TestUserVerifyEmail(t *testing.T) {
	t.Run("activates pending account on verification", func(t *testing.T) {
		user, _ := NewUser("buyer@example.com", "Password123")
		code, err := user.GenerateVerificationCode()
		require.NoError(t, err)
		user.ClearDomainEvents()

		err = user.VerifyEmail(code)
		require.NoError(t, err)

		assert.True(t, user.EmailVerified)
		assert.Equal(t, UserStatusActive, user.Status)
		assert.Empty(t, user.EmailVerificationCode)
		assert.True(t, user.CanLogin())

		events := user.GetDomainEvents()
		require.Len(t, events, 1)
		_, ok := events[0].(*UserEmailVerifiedEvent)
		assert.True(t, ok)
	})

	t.Run("rejects wrong code", func(t *testing.T) {
		user, _ := NewUser("buyer@example.com", "Password123")
		_, err := user.GenerateVerificationCode()
		require.NoError(t, err)

		err = user.VerifyEmail("999999")
		assert.Error(t, err)
		assert.False(t, user.EmailVerified)
	})

	t.Run("rejects double verification", func(t *testing.T) {
		user, _ := NewAdminUser("admin@example.com", "Password123")

		err := user.VerifyEmail("123456")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already verified")
	})
}

func TestUserPassword(t *testing.T) {
	user, _ := NewUser("buyer@example.com", "Password123")

	assert.True(t, user.VerifyPassword("Password123"))
	assert.False(t, user.VerifyPassword("wrong"))

	require.NoError(t, user.ChangePassword("NewPassword456"))
	assert.True(t, user.VerifyPassword("NewPassword456"))
	assert.False(t, user.VerifyPassword("Password123"))
}

func TestUserLockout(t *testing.T) {
	t.Run("locks after max attempts", func(t *testing.T) {
		user, _ := NewAdminUser("admin@example.com", "Password123")
		user.ClearDomainEvents()

		locked := user.RecordLoginFailure(3, 15*time.Minute)
		assert.False(t, locked)
		locked = user.RecordLoginFailure(3, 15*time.Minute)
		assert.False(t, locked)
		locked = user.RecordLoginFailure(3, 15*time.Minute)
		assert.True(t, locked)

		assert.True(t, user.IsLocked())
		assert.False(t, user.CanLogin())

		events := user.GetDomainEvents()
		require.Len(t, events, 1)
		_, ok := events[0].(*UserLockedEvent)
		assert.True(t, ok)
	})

	t.Run("lock expires after lock duration", func(t *testing.T) {
		user, _ := NewAdminUser("admin@example.com", "Password123")
		user.RecordLoginFailure(1, -time.Minute) // already expired

		assert.False(t, user.IsLocked())
	})

	t.Run("successful login resets counters", func(t *testing.T) {
		user, _ := NewAdminUser("admin@example.com", "Password123")
		user.RecordLoginFailure(5, 15*time.Minute)

		user.RecordLoginSuccess("203.0.113.7")
		assert.Equal(t, 0, user.FailedAttempts)
		assert.Equal(t, "203.0.113.7", user.LastLoginIP)
		assert.NotNil(t, user.LastLoginAt)
	})
}
