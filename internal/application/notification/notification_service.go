package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/craftmarket/backend/internal/domain/notification"
	"github.com/craftmarket/backend/internal/domain/shared"
	"github.com/craftmarket/backend/internal/infrastructure/cache"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// UnreadCache caches per-user unread counters. *cache.UnreadCountCache
// satisfies it.
type UnreadCache interface {
	Get(ctx context.Context, kind cache.UnreadKind, userID uuid.UUID) (int64, bool, error)
	Set(ctx context.Context, kind cache.UnreadKind, userID uuid.UUID, count int64) error
	Invalidate(ctx context.Context, kind cache.UnreadKind, userID uuid.UUID) error
}

var _ UnreadCache = (*cache.UnreadCountCache)(nil)

// CreationRecorder counts created notifications for telemetry.
// *telemetry.MarketplaceMetrics satisfies it.
type CreationRecorder interface {
	RecordNotificationCreated(ctx context.Context, notificationType string)
}

// Service implements the notification inbox operations
type Service struct {
	repo        notification.Repository
	unreadCache UnreadCache
	activity    CreationRecorder
	logger      *zap.Logger
}

// ServiceOption customizes a Service
type ServiceOption func(*Service)

// WithUnreadCache attaches an unread counter cache
func WithUnreadCache(c UnreadCache) ServiceOption {
	return func(s *Service) {
		s.unreadCache = c
	}
}

// WithCreationRecorder attaches a telemetry recorder
func WithCreationRecorder(r CreationRecorder) ServiceOption {
	return func(s *Service) {
		s.activity = r
	}
}

// NewService creates a notification application service
func NewService(repo notification.Repository, logger *zap.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a notification for the user. Unread notifications of the
// same type pointing at the same object are coalesced: the existing entry
// gets the new message text instead of a second entry piling up.
func (s *Service) Create(ctx context.Context, input CreateInput) (*NotificationInfo, error) {
	if input.RelatedObjectID != nil {
		existing, err := s.repo.FindUnreadByRelatedObject(ctx, input.UserID, input.Type, *input.RelatedObjectID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("Failed to look up notification for coalescing", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create notification")
		}
		if existing != nil {
			existing.UpdateMessage(input.Message)
			if err := s.repo.Update(ctx, existing); err != nil {
				s.logger.Error("Failed to coalesce notification", zap.Error(err))
				return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create notification")
			}
			info := toNotificationInfo(existing)
			return &info, nil
		}
	}

	n, err := notification.New(input.UserID, input.Type, input.Title, input.Message)
	if err != nil {
		return nil, err
	}
	if input.RelatedObjectID != nil {
		n.WithRelatedObject(*input.RelatedObjectID)
	}
	if input.ActionURL != "" {
		n.WithActionURL(input.ActionURL)
	}

	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to store notification", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create notification")
	}

	s.invalidateUnread(ctx, input.UserID)

	if s.activity != nil {
		s.activity.RecordNotificationCreated(ctx, string(input.Type))
	}

	info := toNotificationInfo(n)
	return &info, nil
}

// List returns a page of the user's notifications, newest first
func (s *Service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	pageSize := input.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	notifications, total, err := s.repo.FindByUser(ctx, input.UserID, input.OnlyUnread, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list notifications", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list notifications")
	}

	result := &ListResult{
		Notifications: make([]NotificationInfo, 0, len(notifications)),
		Total:         total,
		Page:          page,
		PageSize:      pageSize,
	}
	for _, n := range notifications {
		result.Notifications = append(result.Notifications, toNotificationInfo(n))
	}
	return result, nil
}

// UnreadCount returns the user's unread notification count, served from
// cache when possible
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.unreadCache != nil {
		count, ok, err := s.unreadCache.Get(ctx, cache.UnreadNotifications, userID)
		if err != nil {
			s.logger.Warn("Failed to read unread counter cache", zap.Error(err))
		} else if ok {
			return count, nil
		}
	}

	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count unread notifications", zap.Error(err))
		return 0, shared.NewDomainError("INTERNAL_ERROR", "Failed to count unread notifications")
	}

	if s.unreadCache != nil {
		if err := s.unreadCache.Set(ctx, cache.UnreadNotifications, userID, count); err != nil {
			s.logger.Warn("Failed to store unread counter cache", zap.Error(err))
		}
	}
	return count, nil
}

// MarkRead marks a single notification as read. Only the owner may do so.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	n, err := s.loadOwned(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if n.IsRead {
		return nil
	}

	n.MarkAsRead()
	if err := s.repo.Update(ctx, n); err != nil {
		s.logger.Error("Failed to mark notification read", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to mark notification as read")
	}

	s.invalidateUnread(ctx, userID)
	return nil
}

// MarkAllRead marks every unread notification of the user as read and
// returns the number of notifications affected
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	affected, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to mark notifications read", zap.Error(err))
		return 0, shared.NewDomainError("INTERNAL_ERROR", "Failed to mark notifications as read")
	}

	if affected > 0 {
		s.invalidateUnread(ctx, userID)
	}
	return affected, nil
}

// Delete removes a notification. Unread notifications cannot be deleted;
// they have to be read (or marked read) first.
func (s *Service) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	n, err := s.loadOwned(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if !n.CanDelete() {
		return shared.NewDomainError("NOTIFICATION_UNREAD", "Unread notifications cannot be deleted")
	}

	if err := s.repo.Delete(ctx, n.ID); err != nil {
		s.logger.Error("Failed to delete notification", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete notification")
	}
	return nil
}

// PurgeRead removes read notifications older than the retention window.
// Used by the housekeeping scheduler.
func (s *Service) PurgeRead(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.DeleteReadOlderThan(ctx, time.Now().Add(-retention))
}

// loadOwned loads a notification and checks ownership. Foreign entries get
// the same not-found error as missing ones.
func (s *Service) loadOwned(ctx context.Context, notificationID, userID uuid.UUID) (*notification.Notification, error) {
	n, err := s.repo.FindByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOTIFICATION_NOT_FOUND", "Notification not found")
		}
		s.logger.Error("Failed to load notification", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load notification")
	}
	if n.UserID != userID {
		return nil, shared.NewDomainError("NOTIFICATION_NOT_FOUND", "Notification not found")
	}
	return n, nil
}

func (s *Service) invalidateUnread(ctx context.Context, userID uuid.UUID) {
	if s.unreadCache == nil {
		return
	}
	if err := s.unreadCache.Invalidate(ctx, cache.UnreadNotifications, userID); err != nil {
		s.logger.Warn("Failed to invalidate unread counter", zap.Error(err))
	}
}
