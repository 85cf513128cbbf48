package models

import (
	"github.com/craftmarket/backend/internal/domain/messaging"
	"github.com/craftmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DialogueModel is the persistence model for the Dialogue domain entity.
// A user pair can have at most one dialogue per listing, enforced by the
// composite unique index.
type DialogueModel struct {
	AggregateModel
	InitiatorID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_dialogues_pair_listing"`
	RecipientID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_dialogues_pair_listing"`
	ListingRef  string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_dialogues_pair_listing"`
}

// TableName returns the table name for GORM
func (DialogueModel) TableName() string {
	return "dialogues"
}

// ToDomain converts the persistence model to a domain Dialogue entity.
func (m *DialogueModel) ToDomain() *messaging.Dialogue {
	d := &messaging.Dialogue{
		InitiatorID: m.InitiatorID,
		RecipientID: m.RecipientID,
		ListingRef:  m.ListingRef,
	}
	m.PopulateAggregateRoot(&d.BaseAggregateRoot)
	return d
}

// FromDomain populates the persistence model from a domain Dialogue entity.
func (m *DialogueModel) FromDomain(d *messaging.Dialogue) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.InitiatorID = d.InitiatorID
	m.RecipientID = d.RecipientID
	m.ListingRef = d.ListingRef
}

// DialogueModelFromDomain creates a new persistence model from a domain Dialogue.
func DialogueModelFromDomain(d *messaging.Dialogue) *DialogueModel {
	m := &DialogueModel{}
	m.FromDomain(d)
	return m
}

// MessageModel is the persistence model for the Message domain entity.
type MessageModel struct {
	BaseModel
	DialogueID uuid.UUID `gorm:"type:uuid;not null;index:ix_messages_dialogue_created,priority:1"`
	SenderID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Text       string    `gorm:"type:text;not null"`
	IsRead     bool      `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts the persistence model to a domain Message entity.
func (m *MessageModel) ToDomain() *messaging.Message {
	return &messaging.Message{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		DialogueID: m.DialogueID,
		SenderID:   m.SenderID,
		Text:       m.Text,
		IsRead:     m.IsRead,
	}
}

// FromDomain populates the persistence model from a domain Message entity.
func (m *MessageModel) FromDomain(msg *messaging.Message) {
	m.FromDomainBaseEntity(msg.BaseEntity)
	m.DialogueID = msg.DialogueID
	m.SenderID = msg.SenderID
	m.Text = msg.Text
	m.IsRead = msg.IsRead
}

// MessageModelFromDomain creates a new persistence model from a domain Message.
func MessageModelFromDomain(msg *messaging.Message) *MessageModel {
	m := &MessageModel{}
	m.FromDomain(msg)
	return m
}
