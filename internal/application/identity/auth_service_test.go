package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/craftmarket/backend/internal/domain/identity"
	"github.com/craftmarket/backend/internal/domain/shared"
	"github.com/craftmarket/backend/internal/infrastructure/auth"
	"github.com/craftmarket/backend/internal/infrastructure/config"
	"github.com/craftmarket/backend/internal/infrastructure/event"
	"github.com/craftmarket/backend/internal/infrastructure/i18n"
)

// MockUserRepository is a testify mock of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, filter identity.UserFilter) ([]*identity.User, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*identity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) ClearExpiredVerificationCodes(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// recordingMailer captures sent mail for assertions
type recordingMailer struct {
	mu       sync.Mutex
	to       []string
	subjects []string
	bodies   []string
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	m.subjects = append(m.subjects, subject)
	m.bodies = append(m.bodies, body)
	return nil
}

func (m *recordingMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.to)
}

func testCatalog() *i18n.Catalog {
	return i18n.NewStaticCatalog("en", map[string]map[string]string{
		"en": {
			"mail.verification.subject": "Confirm your email",
			"mail.verification.body":    "Your verification code is %s",
		},
		"ru": {
			"mail.verification.subject": "Подтвердите почту",
			"mail.verification.body":    "Ваш код подтверждения: %s",
		},
	})
}

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-access-secret",
		RefreshSecret:          "test-refresh-secret",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "craftmarket-test",
		MaxRefreshCount:        10,
	})
}

func newTestAuthService(t *testing.T, repo *MockUserRepository, mailer *recordingMailer) *AuthService {
	t.Helper()
	return NewAuthService(
		repo,
		testJWTService(),
		auth.NewInMemoryTokenBlacklist(),
		mailer,
		testCatalog(),
		event.NewInMemoryEventBus(zap.NewNop()),
		DefaultAuthServiceConfig(),
		zap.NewNop(),
	)
}

func activeUser(t *testing.T, email, password string) *identity.User {
	t.Helper()
	user, err := identity.NewUser(email, password)
	require.NoError(t, err)
	require.NoError(t, user.VerifyEmail(mustGenerateCode(t, user)))
	user.ClearDomainEvents()
	return user
}

func mustGenerateCode(t *testing.T, user *identity.User) string {
	t.Helper()
	code, err := user.GenerateVerificationCode()
	require.NoError(t, err)
	return code
}

func TestAuthService_Register(t *testing.T) {
	repo := new(MockUserRepository)
	mailer := &recordingMailer{}
	svc := newTestAuthService(t, repo, mailer)

	repo.On("ExistsByEmail", mock.Anything, "buyer@example.com").Return(false, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*identity.User")).Return(nil)

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:       "buyer@example.com",
		Password:    "secret-password-1",
		DisplayName: "Buyer",
	})
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", result.Email)
	assert.NotEqual(t, uuid.Nil, result.UserID)

	require.Equal(t, 1, mailer.sentCount())
	assert.Equal(t, "Confirm your email", mailer.subjects[0])
	assert.Contains(t, mailer.bodies[0], "Your verification code is")

	repo.AssertExpectations(t)
}

func TestAuthService_Register_PreferredLanguageMail(t *testing.T) {
	repo := new(MockUserRepository)
	mailer := &recordingMailer{}
	svc := newTestAuthService(t, repo, mailer)

	repo.On("ExistsByEmail", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:             "seller@example.com",
		Password:          "secret-password-1",
		PreferredLanguage: "ru",
	})
	require.NoError(t, err)

	require.Equal(t, 1, mailer.sentCount())
	assert.Equal(t, "Подтвердите почту", mailer.subjects[0])
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestAuthService(t, repo, &recordingMailer{})

	repo.On("ExistsByEmail", mock.Anything, "taken@example.com").Return(true, nil)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "taken@example.com",
		Password: "secret-password-1",
	})
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "EMAIL_TAKEN", domainErr.Code)
}

func TestAuthService_VerifyEmail(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestAuthService(t, repo, &recordingMailer{})

	user, err := identity.NewUser("pending@example.com", "secret-password-1")
	require.NoError(t, err)
	code := mustGenerateCode(t, user)

	repo.On("FindByEmail", mock.Anything, "pending@example.com").Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)

	require.NoError(t, svc.VerifyEmail(context.Background(), VerifyEmailInput{
		Email: "pending@example.com",
		Code:  code,
	}))
	assert.True(t, user.EmailVerified)
	assert.Equal(t, identity.UserStatusActive, user.Status)
}

func TestAuthService_VerifyEmail_WrongCode(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestAuthService(t, repo, &recordingMailer{})

	user, err := identity.NewUser("pending@example.com", "secret-password-1")
	require.NoError(t, err)
	mustGenerateCode(t, user)

	repo.On("FindByEmail", mock.Anything, "pending@example.com").Return(user, nil)

	err = svc.VerifyEmail(context.Background(), VerifyEmailInput{
		Email: "pending@example.com",
		Code:  "000000",
	})
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_VERIFICATION_CODE", domainErr.Code)
}

func TestAuthService_ResendCode_UnknownEmailSilent(t *testing.T) {
	repo := new(MockUserRepository)
	mailer := &recordingMailer{}
	svc := newTestAuthService(t, repo, mailer)

	repo.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, shared.ErrNotFound)

	assert.NoError(t, svc.ResendCode(context.Background(), ResendCodeInput{Email: "ghost@example.com"}))
	assert.Zero(t, mailer.sentCount())
}

func TestAuthService_Login(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestAuthService(t, repo, &recordingMailer{})

	user := activeUser(t, "buyer@example.com", "secret-password-1")

	repo.On("FindByEmail", mock.Anything, "buyer@example.com").Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)

	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "buyer@example.com",
		Password: "secret-password-1",
		IP:       "203.0.113.9",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "Bearer", result.TokenType)
	assert.Equal(t, "203.0.113.9", user.LastLoginIP)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestAuthService(t, repo, &recordingMailer{})

	user := activeUser(t, "buyer@example.com", "secret-password-1")

	repo.On("FindByEmail", mock.Anything, "buyer@example.com").Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "buyer@example.com",
		Password: "nope",
	})
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
	assert.Equal(t, 1, user.FailedAttempts)
}

func TestAuthService_Login_LocksAfterMaxAttempts(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestAuthService(t, repo, &recordingMailer{})

	user := activeUser(t, "buyer@example.com", "secret-password-1")

	repo.On("FindByEmail", mock.Anything, "buyer@example.com").Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)

	ctx := context.Background()
	for i := 0; i < DefaultAuthServiceConfig().MaxLoginAttempts; i++ {
		_, err := svc.Login(ctx, LoginInput{Email: "buyer@example.com", Password: "nope"})
		require.Error(t, err)
	}

	assert.True(t, user.IsLocked())

	_, err := svc.Login(ctx, LoginInput{Email: "buyer@example.com", Password: "secret-password-1"})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ACCOUNT_LOCKED", domainErr.Code)
}

func TestAuthService_Login_PendingAccount(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestAuthService(t, repo, &recordingMailer{})

	user, err := identity.NewUser("pending@example.com", "secret-password-1")
	require.NoError(t, err)

	repo.On("FindByEmail", mock.Anything, "pending@example.com").Return(user, nil)

	_, err = svc.Login(context.Background(), LoginInput{
		Email:    "pending@example.com",
		Password: "secret-password-1",
	})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ACCOUNT_PENDING", domainErr.Code)
}

func TestAuthService_RefreshToken(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestAuthService(t, repo, &recordingMailer{})

	user := activeUser(t, "buyer@example.com", "secret-password-1")
	repo.On("FindByEmail", mock.Anything, "buyer@example.com").Return(user, nil)
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)

	login, err := svc.Login(context.Background(), LoginInput{
		Email:    "buyer@example.com",
		Password: "secret-password-1",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), RefreshTokenInput{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.AccessToken, refreshed.AccessToken)
}

func TestAuthService_RefreshToken_Garbage(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestAuthService(t, repo, &recordingMailer{})

	_, err := svc.RefreshToken(context.Background(), RefreshTokenInput{RefreshToken: "not-a-token"})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "TOKEN_INVALID", domainErr.Code)
}

func TestAuthService_ChangePassword(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestAuthService(t, repo, &recordingMailer{})

	user := activeUser(t, "buyer@example.com", "secret-password-1")
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)

	require.NoError(t, svc.ChangePassword(context.Background(), ChangePasswordInput{
		UserID:      user.ID,
		OldPassword: "secret-password-1",
		NewPassword: "another-password-2",
	}))
	assert.True(t, user.VerifyPassword("another-password-2"))
}

func TestAuthService_ChangePassword_WrongOld(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestAuthService(t, repo, &recordingMailer{})

	user := activeUser(t, "buyer@example.com", "secret-password-1")
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	err := svc.ChangePassword(context.Background(), ChangePasswordInput{
		UserID:      user.ID,
		OldPassword: "wrong",
		NewPassword: "another-password-2",
	})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
}
