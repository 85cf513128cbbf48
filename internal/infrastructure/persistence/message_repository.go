package persistence

import (
	"context"
	"errors"

	"github.com/craftmarket/backend/internal/domain/messaging"
	"github.com/craftmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMessageRepository implements MessageRepository using GORM
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GormMessageRepository
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Create stores a new message
func (r *GormMessageRepository) Create(ctx context.Context, message *messaging.Message) error {
	model := models.MessageModelFromDomain(message)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByDialogue returns messages of a dialogue in chronological order
func (r *GormMessageRepository) FindByDialogue(ctx context.Context, dialogueID uuid.UUID, page, pageSize int) ([]*messaging.Message, int64, error) {
	var messageModels []*models.MessageModel
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Where("dialogue_id = ?", dialogueID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	if err := query.
		Order("created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&messageModels).Error; err != nil {
		return nil, 0, err
	}

	messages := make([]*messaging.Message, len(messageModels))
	for i, model := range messageModels {
		messages[i] = model.ToDomain()
	}
	return messages, total, nil
}

// CountUnread counts messages in the dialogue not yet read and not sent by
// the given user
func (r *GormMessageRepository) CountUnread(ctx context.Context, dialogueID, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Where("dialogue_id = ? AND sender_id <> ? AND is_read = false", dialogueID, userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MarkDialogueRead marks all messages in the dialogue that were sent to the
// given user as read
func (r *GormMessageRepository) MarkDialogueRead(ctx context.Context, dialogueID, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Where("dialogue_id = ? AND sender_id <> ? AND is_read = false", dialogueID, userID).
		Update("is_read", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// LastMessage returns the newest message of a dialogue, or nil when the
// dialogue is empty
func (r *GormMessageRepository) LastMessage(ctx context.Context, dialogueID uuid.UUID) (*messaging.Message, error) {
	var model models.MessageModel
	err := r.db.WithContext(ctx).
		Where("dialogue_id = ?", dialogueID).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormMessageRepository implements MessageRepository
var _ messaging.MessageRepository = (*GormMessageRepository)(nil)
