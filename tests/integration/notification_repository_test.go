package integration

import (
	"context"
	"testing"
	"time"

	"github.com/craftmarket/backend/internal/domain/notification"
	"github.com/craftmarket/backend/internal/domain/shared"
	"github.com/craftmarket/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNotificationRepository_Integration tests the notification repository
// against a real PostgreSQL database
func TestNotificationRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	userRepo := persistence.NewGormUserRepository(testDB.DB)
	repo := persistence.NewGormNotificationRepository(testDB.DB)
	ctx := context.Background()

	user := createTestUser(t, userRepo, "inbox@example.com")

	t.Run("Create and FindByUser", func(t *testing.T) {
		n, err := notification.New(user.ID, notification.TypeSystem, "Welcome", "Thanks for joining the marketplace")
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, n))

		items, total, err := repo.FindByUser(ctx, user.ID, false, 1, 20)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, int64(1))
		require.NotEmpty(t, items)
		assert.Equal(t, user.ID, items[0].UserID)
	})

	t.Run("Coalescing target lookup by related object", func(t *testing.T) {
		dialogueID := uuid.New()

		n, err := notification.New(user.ID, notification.TypeNewMessage, "New message", "You have 1 new message")
		require.NoError(t, err)
		n.WithRelatedObject(dialogueID)
		require.NoError(t, repo.Create(ctx, n))

		found, err := repo.FindUnreadByRelatedObject(ctx, user.ID, notification.TypeNewMessage, dialogueID)
		require.NoError(t, err)
		assert.Equal(t, n.ID, found.ID)

		// Once read it is no longer a coalescing target
		found.MarkAsRead()
		require.NoError(t, repo.Update(ctx, found))

		_, err = repo.FindUnreadByRelatedObject(ctx, user.ID, notification.TypeNewMessage, dialogueID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("CountUnread and MarkAllRead", func(t *testing.T) {
		reader := createTestUser(t, userRepo, "reader@example.com")
		for i := 0; i < 3; i++ {
			n, err := notification.New(reader.ID, notification.TypeSystem, "Ping", "Something happened")
			require.NoError(t, err)
			require.NoError(t, repo.Create(ctx, n))
		}

		count, err := repo.CountUnread(ctx, reader.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		marked, err := repo.MarkAllRead(ctx, reader.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), marked)

		count, err = repo.CountUnread(ctx, reader.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("FindByUser onlyUnread filter", func(t *testing.T) {
		mixed := createTestUser(t, userRepo, "mixed@example.com")

		read, err := notification.New(mixed.ID, notification.TypeSystem, "Old", "Already seen")
		require.NoError(t, err)
		read.MarkAsRead()
		require.NoError(t, repo.Create(ctx, read))

		unread, err := notification.New(mixed.ID, notification.TypeSystem, "Fresh", "Not yet seen")
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, unread))

		items, total, err := repo.FindByUser(ctx, mixed.ID, true, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, "Fresh", items[0].Title)
	})

	t.Run("DeleteReadOlderThan keeps unread rows", func(t *testing.T) {
		keeper := createTestUser(t, userRepo, "keeper@example.com")

		old, err := notification.New(keeper.ID, notification.TypeSystem, "Stale", "Old and read")
		require.NoError(t, err)
		old.MarkAsRead()
		require.NoError(t, repo.Create(ctx, old))

		fresh, err := notification.New(keeper.ID, notification.TypeSystem, "Live", "Still unread")
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, fresh))

		deleted, err := repo.DeleteReadOlderThan(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, deleted, int64(1))

		_, err = repo.FindByID(ctx, old.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		found, err := repo.FindByID(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, fresh.ID, found.ID)
	})
}
