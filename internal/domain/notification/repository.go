package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for notification persistence
type Repository interface {
	// Create stores a new notification
	Create(ctx context.Context, n *Notification) error

	// Update updates an existing notification
	Update(ctx context.Context, n *Notification) error

	// Delete removes a notification
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID finds a notification by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Notification, error)

	// FindByUser returns the user's notifications, newest first
	FindByUser(ctx context.Context, userID uuid.UUID, onlyUnread bool, page, pageSize int) ([]*Notification, int64, error)

	// FindUnreadByRelatedObject finds the unread notification of the given
	// type pointing at the given object, for coalescing
	FindUnreadByRelatedObject(ctx context.Context, userID uuid.UUID, typ Type, relatedID uuid.UUID) (*Notification, error)

	// CountUnread counts the user's unread notifications
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)

	// MarkAllRead marks every unread notification of the user as read.
	// Returns the number of affected rows.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)

	// DeleteReadOlderThan removes read notifications created before the
	// cutoff. Returns the number of affected rows.
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
