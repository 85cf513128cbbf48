package messaging

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftmarket/backend/internal/domain/messaging"
)

// OpenDialogueInput opens (or returns the existing) dialogue between the
// caller and the recipient about a listing
type OpenDialogueInput struct {
	UserID      uuid.UUID
	RecipientID uuid.UUID
	ListingRef  string
}

// PeerInfo describes the other participant of a dialogue
type PeerInfo struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	Avatar      string
}

// MessageInfo is a chat message as seen by API clients
type MessageInfo struct {
	ID         uuid.UUID
	DialogueID uuid.UUID
	SenderID   uuid.UUID
	Text       string
	IsRead     bool
	CreatedAt  time.Time
}

// DialogueInfo is a dialogue list entry with the peer, the latest message
// and the caller's unread counter
type DialogueInfo struct {
	ID          uuid.UUID
	ListingRef  string
	Peer        PeerInfo
	LastMessage *MessageInfo
	UnreadCount int64
	UpdatedAt   time.Time
}

// ListMessagesInput pages through a dialogue's messages
type ListMessagesInput struct {
	UserID     uuid.UUID
	DialogueID uuid.UUID
	Page       int
	PageSize   int
}

// ListMessagesResult is a chronological page of messages
type ListMessagesResult struct {
	Messages []MessageInfo
	Total    int64
	Page     int
	PageSize int
}

// SendMessageInput posts a message into a dialogue
type SendMessageInput struct {
	UserID     uuid.UUID
	DialogueID uuid.UUID
	Text       string
}

func toMessageInfo(m *messaging.Message) MessageInfo {
	return MessageInfo{
		ID:         m.ID,
		DialogueID: m.DialogueID,
		SenderID:   m.SenderID,
		Text:       m.Text,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}
