package messaging

import (
	"github.com/craftmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Dialogue is a conversation between two users about a listing. The pair of
// participants plus the listing reference is unique: opening a chat for the
// same listing again returns the existing dialogue.
type Dialogue struct {
	shared.BaseAggregateRoot
	InitiatorID uuid.UUID // User who opened the dialogue (usually the buyer)
	RecipientID uuid.UUID // Listing owner
	ListingRef  string    // Opaque reference to the listing being discussed
}

// NewDialogue creates a dialogue between two users about a listing
func NewDialogue(initiatorID, recipientID uuid.UUID, listingRef string) (*Dialogue, error) {
	if initiatorID == recipientID {
		return nil, shared.NewDomainError("SELF_DIALOGUE", "Cannot open a dialogue with yourself")
	}
	if listingRef == "" {
		return nil, shared.NewDomainError("INVALID_LISTING_REF", "Listing reference is required")
	}

	d := &Dialogue{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InitiatorID:       initiatorID,
		RecipientID:       recipientID,
		ListingRef:        listingRef,
	}

	d.AddDomainEvent(NewDialogueOpenedEvent(d))

	return d, nil
}

// HasParticipant reports whether the given user takes part in the dialogue
func (d *Dialogue) HasParticipant(userID uuid.UUID) bool {
	return d.InitiatorID == userID || d.RecipientID == userID
}

// OtherParticipant returns the peer of the given user, or uuid.Nil when the
// user is not a participant.
func (d *Dialogue) OtherParticipant(userID uuid.UUID) uuid.UUID {
	switch userID {
	case d.InitiatorID:
		return d.RecipientID
	case d.RecipientID:
		return d.InitiatorID
	default:
		return uuid.Nil
	}
}
