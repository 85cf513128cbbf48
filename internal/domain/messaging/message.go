package messaging

import (
	"strings"

	"github.com/craftmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MaxMessageLength bounds a single chat message
const MaxMessageLength = 4000

// Message is a single chat message within a dialogue
type Message struct {
	shared.BaseEntity
	DialogueID uuid.UUID
	SenderID   uuid.UUID
	Text       string
	IsRead     bool
}

// NewMessage creates a message from sender within the given dialogue. The
// caller is responsible for checking that the sender participates in the
// dialogue.
func NewMessage(dialogueID, senderID uuid.UUID, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, shared.NewDomainError("EMPTY_MESSAGE", "Message text is required")
	}
	if len(text) > MaxMessageLength {
		return nil, shared.NewDomainError("MESSAGE_TOO_LONG", "Message text exceeds the allowed length")
	}

	return &Message{
		BaseEntity: shared.NewBaseEntity(),
		DialogueID: dialogueID,
		SenderID:   senderID,
		Text:       text,
	}, nil
}

// MarkAsRead marks the message as read by the recipient
func (m *Message) MarkAsRead() {
	if !m.IsRead {
		m.IsRead = true
		m.Touch()
	}
}

// Preview returns a shortened form of the text for notifications. The limit
// counts runes, not bytes, so multi-byte text is never split mid-character.
func (m *Message) Preview(limit int) string {
	runes := []rune(m.Text)
	if limit <= 0 || len(runes) <= limit {
		return m.Text
	}
	return string(runes[:limit]) + "..."
}
