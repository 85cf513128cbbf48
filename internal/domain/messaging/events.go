package messaging

import (
	"github.com/craftmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant for Dialogue
const AggregateTypeDialogue = "Dialogue"

// Messaging domain event types
const (
	EventTypeDialogueOpened = "DialogueOpened"
	EventTypeMessageSent    = "MessageSent"
	EventTypeMessagesRead   = "MessagesRead"
)

// DialogueOpenedEvent is published when a dialogue is first created
type DialogueOpenedEvent struct {
	shared.BaseDomainEvent
	InitiatorID uuid.UUID `json:"initiator_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	ListingRef  string    `json:"listing_ref"`
}

// NewDialogueOpenedEvent creates a new DialogueOpenedEvent
func NewDialogueOpenedEvent(d *Dialogue) *DialogueOpenedEvent {
	return &DialogueOpenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDialogueOpened, AggregateTypeDialogue, d.ID),
		InitiatorID:     d.InitiatorID,
		RecipientID:     d.RecipientID,
		ListingRef:      d.ListingRef,
	}
}

// MessageSentEvent is published when a message is stored in a dialogue.
// The notification module listens for it to alert the recipient.
type MessageSentEvent struct {
	shared.BaseDomainEvent
	MessageID   uuid.UUID `json:"message_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	SenderEmail string    `json:"sender_email"`
	Preview     string    `json:"preview"`
}

// NewMessageSentEvent creates a new MessageSentEvent
func NewMessageSentEvent(d *Dialogue, m *Message, senderEmail string) *MessageSentEvent {
	return &MessageSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMessageSent, AggregateTypeDialogue, d.ID),
		MessageID:       m.ID,
		SenderID:        m.SenderID,
		RecipientID:     d.OtherParticipant(m.SenderID),
		SenderEmail:     senderEmail,
		Preview:         m.Preview(100),
	}
}

// MessagesReadEvent is published when a participant marks a dialogue read.
// PeerID is the sender whose messages were read.
type MessagesReadEvent struct {
	shared.BaseDomainEvent
	ReaderID uuid.UUID `json:"reader_id"`
	PeerID   uuid.UUID `json:"peer_id"`
	Count    int64     `json:"count"`
}

// NewMessagesReadEvent creates a new MessagesReadEvent
func NewMessagesReadEvent(d *Dialogue, readerID uuid.UUID, count int64) *MessagesReadEvent {
	return &MessagesReadEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMessagesRead, AggregateTypeDialogue, d.ID),
		ReaderID:        readerID,
		PeerID:          d.OtherParticipant(readerID),
		Count:           count,
	}
}
