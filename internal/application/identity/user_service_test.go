package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/craftmarket/backend/internal/domain/identity"
	"github.com/craftmarket/backend/internal/domain/shared"
)

// fakeMediaStorage records presign calls without talking to S3
type fakeMediaStorage struct {
	uploadKeys   []string
	downloadKeys []string
}

func (f *fakeMediaStorage) MediaKey(parts ...string) string {
	return strings.Join(parts, "/")
}

func (f *fakeMediaStorage) GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	f.uploadKeys = append(f.uploadKeys, storageKey)
	return "https://media.test/upload/" + storageKey, time.Now().Add(expiresIn), nil
}

func (f *fakeMediaStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	f.downloadKeys = append(f.downloadKeys, storageKey)
	return "https://media.test/" + storageKey, time.Now().Add(expiresIn), nil
}

func newTestUserService(repo *MockUserRepository, storage *fakeMediaStorage) *UserService {
	return NewUserService(repo, storage, zap.NewNop())
}

func TestUserService_GetProfile(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestUserService(repo, &fakeMediaStorage{})

	user := activeUser(t, "buyer@example.com", "secret-password-1")
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	info, err := svc.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, info.ID)
	assert.Equal(t, "buyer@example.com", info.Email)
	assert.True(t, info.EmailVerified)
}

func TestUserService_GetProfile_NotFound(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestUserService(repo, &fakeMediaStorage{})

	id := uuid.New()
	repo.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

	_, err := svc.GetProfile(context.Background(), id)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "USER_NOT_FOUND", domainErr.Code)
}

func TestUserService_UpdateProfile(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestUserService(repo, &fakeMediaStorage{})

	user := activeUser(t, "buyer@example.com", "secret-password-1")
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)

	name := "Handmade Hank"
	lang := "ru"
	info, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
		UserID:            user.ID,
		DisplayName:       &name,
		PreferredLanguage: &lang,
	})
	require.NoError(t, err)
	assert.Equal(t, "Handmade Hank", info.DisplayName)
	assert.Equal(t, "ru", info.PreferredLanguage)
}

func TestUserService_UpdateProfile_NilFieldsUntouched(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestUserService(repo, &fakeMediaStorage{})

	user := activeUser(t, "buyer@example.com", "secret-password-1")
	require.NoError(t, user.SetDisplayName("Original"))
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)

	info, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{UserID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, "Original", info.DisplayName)
}

func TestUserService_AvatarUploadURL(t *testing.T) {
	repo := new(MockUserRepository)
	storage := &fakeMediaStorage{}
	svc := newTestUserService(repo, storage)

	user := activeUser(t, "buyer@example.com", "secret-password-1")
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	result, err := svc.AvatarUploadURL(context.Background(), AvatarUploadInput{
		UserID:      user.ID,
		FileName:    "me.png",
		ContentType: "image/png",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Key, "avatars/"+user.ID.String()+"/"))
	assert.True(t, strings.HasSuffix(result.Key, ".png"))
	assert.Contains(t, result.UploadURL, result.Key)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), result.ExpiresAt, time.Minute)
}

func TestUserService_AvatarUploadURL_UnsupportedType(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestUserService(repo, &fakeMediaStorage{})

	_, err := svc.AvatarUploadURL(context.Background(), AvatarUploadInput{
		UserID:      uuid.New(),
		FileName:    "malware.svg",
		ContentType: "image/svg+xml",
	})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", domainErr.Code)
}

func TestUserService_ConfirmAvatar(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestUserService(repo, &fakeMediaStorage{})

	user := activeUser(t, "buyer@example.com", "secret-password-1")
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)

	key := "avatars/" + user.ID.String() + "/" + uuid.New().String() + ".jpg"
	info, err := svc.ConfirmAvatar(context.Background(), user.ID, key)
	require.NoError(t, err)
	assert.Equal(t, key, info.Avatar)
}

func TestUserService_ConfirmAvatar_RejectsForeignKey(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestUserService(repo, &fakeMediaStorage{})

	userID := uuid.New()
	cases := []string{
		"avatars/" + uuid.New().String() + "/pic.jpg",
		"avatars/" + userID.String() + "/../other/pic.jpg",
		"listings/pic.jpg",
		"",
	}
	for _, key := range cases {
		_, err := svc.ConfirmAvatar(context.Background(), userID, key)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr, "key %q", key)
		assert.Equal(t, "INVALID_AVATAR_KEY", domainErr.Code, "key %q", key)
	}
}

func TestUserService_AvatarDownloadURL(t *testing.T) {
	repo := new(MockUserRepository)
	storage := &fakeMediaStorage{}
	svc := newTestUserService(repo, storage)

	user := activeUser(t, "buyer@example.com", "secret-password-1")
	key := "avatars/" + user.ID.String() + "/pic.webp"
	require.NoError(t, user.SetAvatar(key))
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	url, err := svc.AvatarDownloadURL(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Contains(t, url, key)
}

func TestUserService_AvatarDownloadURL_NoAvatar(t *testing.T) {
	repo := new(MockUserRepository)
	storage := &fakeMediaStorage{}
	svc := newTestUserService(repo, storage)

	user := activeUser(t, "buyer@example.com", "secret-password-1")
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	url, err := svc.AvatarDownloadURL(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, url)
	assert.Empty(t, storage.downloadKeys)
}

func TestUserService_ListUsers_ClampsPaging(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestUserService(repo, &fakeMediaStorage{})

	user := activeUser(t, "buyer@example.com", "secret-password-1")
	repo.On("FindAll", mock.Anything, mock.MatchedBy(func(f identity.UserFilter) bool {
		return f.Page == 1 && f.PageSize == 100
	})).Return([]*identity.User{user}, int64(1), nil)

	result, err := svc.ListUsers(context.Background(), ListUsersInput{
		Page:     -3,
		PageSize: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 100, result.PageSize)
	require.Len(t, result.Users, 1)
	assert.Equal(t, "buyer@example.com", result.Users[0].Email)
}

func TestUserService_CreateAdmin(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestUserService(repo, &fakeMediaStorage{})

	repo.On("ExistsByEmail", mock.Anything, "admin@example.com").Return(false, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*identity.User")).Return(nil)

	info, err := svc.CreateAdmin(context.Background(), CreateAdminInput{
		Email:    "admin@example.com",
		Password: "admin-password-1",
	})
	require.NoError(t, err)
	assert.True(t, info.IsAdmin)
	assert.Equal(t, "active", info.Status)
}

func TestUserService_CreateAdmin_EmailTaken(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newTestUserService(repo, &fakeMediaStorage{})

	repo.On("ExistsByEmail", mock.Anything, "admin@example.com").Return(true, nil)

	_, err := svc.CreateAdmin(context.Background(), CreateAdminInput{
		Email:    "admin@example.com",
		Password: "admin-password-1",
	})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "EMAIL_TAKEN", domainErr.Code)
}
