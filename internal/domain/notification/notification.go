package notification

import (
	"strings"
	"time"

	"github.com/craftmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Type classifies a notification
type Type string

const (
	TypeNewOrder           Type = "new_order"
	TypeOrderStatusChanged Type = "order_status_changed"
	TypeNewMessage         Type = "new_message"
	TypeProductFavorited   Type = "product_favorited"
	TypeSystem             Type = "system"
	TypeOrderCancelled     Type = "order_cancelled"
)

// AllTypes returns every known notification type
func AllTypes() []Type {
	return []Type{
		TypeNewOrder,
		TypeOrderStatusChanged,
		TypeNewMessage,
		TypeProductFavorited,
		TypeSystem,
		TypeOrderCancelled,
	}
}

// IsValid reports whether t is a known notification type
func (t Type) IsValid() bool {
	for _, known := range AllTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Notification is a per-user inbox entry. Unread new_message notifications
// for the same dialogue coalesce into a single entry instead of piling up.
type Notification struct {
	shared.BaseEntity
	UserID          uuid.UUID
	Type            Type
	Title           string
	Message         string
	IsRead          bool
	RelatedObjectID *uuid.UUID // e.g. the dialogue a new_message entry points at
	ActionURL       string
}

// New creates a notification for the given user
func New(userID uuid.UUID, typ Type, title, message string) (*Notification, error) {
	if !typ.IsValid() {
		return nil, shared.NewDomainError("INVALID_NOTIFICATION_TYPE", "Unknown notification type")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewDomainError("INVALID_NOTIFICATION", "Notification title is required")
	}
	if len(title) > 200 {
		return nil, shared.NewDomainError("INVALID_NOTIFICATION", "Notification title cannot exceed 200 characters")
	}

	return &Notification{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		Type:       typ,
		Title:      title,
		Message:    message,
	}, nil
}

// WithRelatedObject links the notification to a domain object
func (n *Notification) WithRelatedObject(id uuid.UUID) *Notification {
	n.RelatedObjectID = &id
	return n
}

// WithActionURL records the path a client should open for this entry
func (n *Notification) WithActionURL(url string) *Notification {
	if len(url) <= 500 {
		n.ActionURL = url
	}
	return n
}

// MarkAsRead marks the notification as read
func (n *Notification) MarkAsRead() {
	if !n.IsRead {
		n.IsRead = true
		n.Touch()
	}
}

// UpdateMessage replaces the body text, used when coalescing repeated
// new_message notifications for the same dialogue
func (n *Notification) UpdateMessage(message string) {
	n.Message = message
	n.Touch()
}

// IsRecent reports whether the notification is younger than a day
func (n *Notification) IsRecent() bool {
	return time.Since(n.CreatedAt) < 24*time.Hour
}

// CanDelete reports whether the notification may be deleted. Only read
// notifications may be removed.
func (n *Notification) CanDelete() bool {
	return n.IsRead
}
