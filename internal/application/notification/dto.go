package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftmarket/backend/internal/domain/notification"
)

// CreateInput creates a notification for a user
type CreateInput struct {
	UserID          uuid.UUID
	Type            notification.Type
	Title           string
	Message         string
	RelatedObjectID *uuid.UUID
	ActionURL       string
}

// NotificationInfo is a notification as seen by API clients
type NotificationInfo struct {
	ID              uuid.UUID
	Type            notification.Type
	Title           string
	Message         string
	IsRead          bool
	RelatedObjectID *uuid.UUID
	ActionURL       string
	CreatedAt       time.Time
}

// ListInput pages through a user's notifications
type ListInput struct {
	UserID     uuid.UUID
	OnlyUnread bool
	Page       int
	PageSize   int
}

// ListResult is a page of notifications, newest first
type ListResult struct {
	Notifications []NotificationInfo
	Total         int64
	Page          int
	PageSize      int
}

func toNotificationInfo(n *notification.Notification) NotificationInfo {
	return NotificationInfo{
		ID:              n.ID,
		Type:            n.Type,
		Title:           n.Title,
		Message:         n.Message,
		IsRead:          n.IsRead,
		RelatedObjectID: n.RelatedObjectID,
		ActionURL:       n.ActionURL,
		CreatedAt:       n.CreatedAt,
	}
}
