package notification

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	userID := uuid.New()

	t.Run("creates unread notification", func(t *testing.T) {
		n, err := New(userID, TypeSystem, "Maintenance window", "The site will be briefly unavailable tonight")

		require.NoError(t, err)
		assert.Equal(t, userID, n.UserID)
		assert.Equal(t, TypeSystem, n.Type)
		assert.False(t, n.IsRead)
		assert.Nil(t, n.RelatedObjectID)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := New(userID, Type("bogus"), "title", "body")
		assert.Error(t, err)
	})

	t.Run("rejects empty title", func(t *testing.T) {
		_, err := New(userID, TypeSystem, "  ", "body")
		assert.Error(t, err)
	})

	t.Run("rejects oversized title", func(t *testing.T) {
		_, err := New(userID, TypeSystem, strings.Repeat("x", 201), "body")
		assert.Error(t, err)
	})
}

func TestNotificationLinks(t *testing.T) {
	n, err := New(uuid.New(), TypeNewMessage, "New message", "you have mail")
	require.NoError(t, err)

	dialogueID := uuid.New()
	n.WithRelatedObject(dialogueID).WithActionURL("/chat/" + dialogueID.String())

	require.NotNil(t, n.RelatedObjectID)
	assert.Equal(t, dialogueID, *n.RelatedObjectID)
	assert.Contains(t, n.ActionURL, dialogueID.String())
}

func TestNotificationLifecycle(t *testing.T) {
	n, err := New(uuid.New(), TypeSystem, "title", "body")
	require.NoError(t, err)

	assert.True(t, n.IsRecent())
	assert.False(t, n.CanDelete(), "unread notifications cannot be deleted")

	n.MarkAsRead()
	assert.True(t, n.IsRead)
	assert.True(t, n.CanDelete())

	n.CreatedAt = time.Now().Add(-48 * time.Hour)
	assert.False(t, n.IsRecent())
}

func TestNotificationCoalescing(t *testing.T) {
	n, err := New(uuid.New(), TypeNewMessage, "New message", "first text")
	require.NoError(t, err)

	n.UpdateMessage("second text")
	assert.Equal(t, "second text", n.Message)
	assert.False(t, n.IsRead, "coalesced notification stays unread")
}
