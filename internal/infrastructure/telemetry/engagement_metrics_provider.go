package telemetry

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// GormEngagementProvider implements EngagementProvider on top of the
// primary database.
type GormEngagementProvider struct {
	db *gorm.DB
}

// NewGormEngagementProvider creates an engagement provider backed by GORM.
func NewGormEngagementProvider(db *gorm.DB) *GormEngagementProvider {
	return &GormEngagementProvider{db: db}
}

// ActiveUserCount returns the number of accounts in active status.
func (p *GormEngagementProvider) ActiveUserCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("users").
		Where("status = ?", "active").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active users: %w", err)
	}
	return count, nil
}

// OpenDialogueCount returns the total number of dialogues.
func (p *GormEngagementProvider) OpenDialogueCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("dialogues").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count dialogues: %w", err)
	}
	return count, nil
}

// UnreadNotificationCount returns the number of unread notifications across
// all users.
func (p *GormEngagementProvider) UnreadNotificationCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("notifications").
		Where("is_read = ?", false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

var _ EngagementProvider = (*GormEngagementProvider)(nil)
