package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/craftmarket/backend/internal/domain/messaging"
	"github.com/craftmarket/backend/internal/domain/shared"
	"github.com/craftmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDialogueRepository implements DialogueRepository using GORM
type GormDialogueRepository struct {
	db *gorm.DB
}

// NewGormDialogueRepository creates a new GormDialogueRepository
func NewGormDialogueRepository(db *gorm.DB) *GormDialogueRepository {
	return &GormDialogueRepository{db: db}
}

// Create creates a new dialogue
func (r *GormDialogueRepository) Create(ctx context.Context, dialogue *messaging.Dialogue) error {
	model := models.DialogueModelFromDomain(dialogue)
	err := r.db.WithContext(ctx).Create(model).Error
	if err != nil && isUniqueViolation(err) {
		return shared.ErrAlreadyExists
	}
	return err
}

// FindByID finds a dialogue by ID
func (r *GormDialogueRepository) FindByID(ctx context.Context, id uuid.UUID) (*messaging.Dialogue, error) {
	var model models.DialogueModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByParticipantsAndListing finds the dialogue for the given user pair and
// listing, regardless of which user initiated it
func (r *GormDialogueRepository) FindByParticipantsAndListing(ctx context.Context, userA, userB uuid.UUID, listingRef string) (*messaging.Dialogue, error) {
	var model models.DialogueModel
	err := r.db.WithContext(ctx).
		Where("listing_ref = ?", listingRef).
		Where(
			"(initiator_id = ? AND recipient_id = ?) OR (initiator_id = ? AND recipient_id = ?)",
			userA, userB, userB, userA,
		).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByParticipant returns all dialogues the user takes part in, most
// recently updated first
func (r *GormDialogueRepository) FindByParticipant(ctx context.Context, userID uuid.UUID) ([]*messaging.Dialogue, error) {
	var dialogueModels []*models.DialogueModel
	if err := r.db.WithContext(ctx).
		Where("initiator_id = ? OR recipient_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&dialogueModels).Error; err != nil {
		return nil, err
	}

	dialogues := make([]*messaging.Dialogue, len(dialogueModels))
	for i, model := range dialogueModels {
		dialogues[i] = model.ToDomain()
	}
	return dialogues, nil
}

// TouchUpdatedAt bumps the dialogue's updated_at so dialogue lists sort by
// latest activity
func (r *GormDialogueRepository) TouchUpdatedAt(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.DialogueModel{}).
		Where("id = ?", id).
		Update("updated_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormDialogueRepository implements DialogueRepository
var _ messaging.DialogueRepository = (*GormDialogueRepository)(nil)
