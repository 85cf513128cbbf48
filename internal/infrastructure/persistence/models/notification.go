package models

import (
	"github.com/craftmarket/backend/internal/domain/notification"
	"github.com/craftmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// NotificationModel is the persistence model for the Notification domain entity.
type NotificationModel struct {
	BaseModel
	UserID          uuid.UUID         `gorm:"type:uuid;not null;index:ix_notifications_user_created,priority:1"`
	Type            notification.Type `gorm:"type:varchar(30);not null"`
	Title           string            `gorm:"type:varchar(200);not null"`
	Message         string            `gorm:"type:text"`
	IsRead          bool              `gorm:"not null;default:false;index"`
	RelatedObjectID *uuid.UUID        `gorm:"type:uuid;index"`
	ActionURL       string            `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (NotificationModel) TableName() string {
	return "notifications"
}

// ToDomain converts the persistence model to a domain Notification entity.
func (m *NotificationModel) ToDomain() *notification.Notification {
	return &notification.Notification{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		UserID:          m.UserID,
		Type:            m.Type,
		Title:           m.Title,
		Message:         m.Message,
		IsRead:          m.IsRead,
		RelatedObjectID: m.RelatedObjectID,
		ActionURL:       m.ActionURL,
	}
}

// FromDomain populates the persistence model from a domain Notification entity.
func (m *NotificationModel) FromDomain(n *notification.Notification) {
	m.FromDomainBaseEntity(n.BaseEntity)
	m.UserID = n.UserID
	m.Type = n.Type
	m.Title = n.Title
	m.Message = n.Message
	m.IsRead = n.IsRead
	m.RelatedObjectID = n.RelatedObjectID
	m.ActionURL = n.ActionURL
}

// NotificationModelFromDomain creates a new persistence model from a domain Notification.
func NotificationModelFromDomain(n *notification.Notification) *NotificationModel {
	m := &NotificationModel{}
	m.FromDomain(n)
	return m
}
