package messaging

import (
	"context"

	"github.com/google/uuid"
)

// DialogueRepository defines the interface for dialogue persistence
type DialogueRepository interface {
	// Create creates a new dialogue
	Create(ctx context.Context, dialogue *Dialogue) error

	// FindByID finds a dialogue by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Dialogue, error)

	// FindByParticipantsAndListing finds the dialogue for the given user pair
	// and listing, regardless of which user initiated it
	FindByParticipantsAndListing(ctx context.Context, userA, userB uuid.UUID, listingRef string) (*Dialogue, error)

	// FindByParticipant returns all dialogues the user takes part in,
	// most recently updated first
	FindByParticipant(ctx context.Context, userID uuid.UUID) ([]*Dialogue, error)

	// TouchUpdatedAt bumps the dialogue's updated_at so dialogue lists sort
	// by latest activity
	TouchUpdatedAt(ctx context.Context, id uuid.UUID) error
}

// MessageRepository defines the interface for message persistence
type MessageRepository interface {
	// Create stores a new message
	Create(ctx context.Context, message *Message) error

	// FindByDialogue returns messages of a dialogue in chronological order
	FindByDialogue(ctx context.Context, dialogueID uuid.UUID, page, pageSize int) ([]*Message, int64, error)

	// CountUnread counts messages in the dialogue not yet read and not sent
	// by the given user
	CountUnread(ctx context.Context, dialogueID, userID uuid.UUID) (int64, error)

	// MarkDialogueRead marks all messages in the dialogue that were sent to
	// the given user as read. Returns the number of affected rows.
	MarkDialogueRead(ctx context.Context, dialogueID, userID uuid.UUID) (int64, error)

	// LastMessage returns the newest message of a dialogue, or nil when the
	// dialogue is empty
	LastMessage(ctx context.Context, dialogueID uuid.UUID) (*Message, error)
}
