package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// VerificationCodeCleaner clears expired email verification codes.
type VerificationCodeCleaner interface {
	ClearExpiredVerificationCodes(ctx context.Context) (int64, error)
}

// NotificationPurger removes read notifications older than a cutoff.
type NotificationPurger interface {
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// HousekeepingExecutorConfig controls retention windows.
type HousekeepingExecutorConfig struct {
	// NotificationRetention is how long read notifications are kept
	NotificationRetention time.Duration
}

// DefaultHousekeepingExecutorConfig keeps read notifications for 30 days.
func DefaultHousekeepingExecutorConfig() HousekeepingExecutorConfig {
	return HousekeepingExecutorConfig{
		NotificationRetention: 30 * 24 * time.Hour,
	}
}

// HousekeepingExecutor runs the housekeeping job types against the
// repositories.
type HousekeepingExecutor struct {
	config HousekeepingExecutorConfig
	codes  VerificationCodeCleaner
	purger NotificationPurger
	logger *zap.Logger
}

// NewHousekeepingExecutor creates an executor for housekeeping jobs.
func NewHousekeepingExecutor(
	config HousekeepingExecutorConfig,
	codes VerificationCodeCleaner,
	purger NotificationPurger,
	logger *zap.Logger,
) *HousekeepingExecutor {
	return &HousekeepingExecutor{
		config: config,
		codes:  codes,
		purger: purger,
		logger: logger,
	}
}

// Execute dispatches a job to its housekeeping task.
func (e *HousekeepingExecutor) Execute(ctx context.Context, job *Job) error {
	switch job.Type {
	case JobTypeClearVerificationCodes:
		return e.clearVerificationCodes(ctx)
	case JobTypePurgeReadNotifications:
		return e.purgeReadNotifications(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidJobType, job.Type)
	}
}

func (e *HousekeepingExecutor) clearVerificationCodes(ctx context.Context) error {
	cleared, err := e.codes.ClearExpiredVerificationCodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear expired verification codes: %w", err)
	}

	e.logger.Info("Cleared expired verification codes",
		zap.Int64("cleared", cleared),
	)
	return nil
}

func (e *HousekeepingExecutor) purgeReadNotifications(ctx context.Context) error {
	cutoff := time.Now().Add(-e.config.NotificationRetention)

	deleted, err := e.purger.DeleteReadOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge read notifications: %w", err)
	}

	e.logger.Info("Purged read notifications",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff),
	)
	return nil
}

var _ JobExecutor = (*HousekeepingExecutor)(nil)
