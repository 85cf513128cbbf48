package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil indicates metric instruments could not be created because the
// meter is nil.
var ErrMeterNil = errors.New("meter is nil")

// MetricsError wraps metric recording failures with the failed operation.
type MetricsError struct {
	Op  string
	Err error
}

func (e *MetricsError) Error() string {
	return fmt.Sprintf("metrics %s: %v", e.Op, e.Err)
}

func (e *MetricsError) Unwrap() error {
	return e.Err
}

// EngagementProvider supplies point-in-time marketplace counts for periodic
// gauge collection.
type EngagementProvider interface {
	ActiveUserCount(ctx context.Context) (int64, error)
	OpenDialogueCount(ctx context.Context) (int64, error)
	UnreadNotificationCount(ctx context.Context) (int64, error)
}

// MarketplaceMetrics records marketplace activity counters and periodically
// collects engagement gauges.
type MarketplaceMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	registrations        metric.Int64Counter
	logins               metric.Int64Counter
	messagesSent         metric.Int64Counter
	notificationsCreated metric.Int64Counter

	activeUsers         metric.Int64Gauge
	openDialogues       metric.Int64Gauge
	unreadNotifications metric.Int64Gauge

	provider EngagementProvider

	collectInterval time.Duration
	stopChan        chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
}

// MarketplaceMetricsOption configures MarketplaceMetrics.
type MarketplaceMetricsOption func(*MarketplaceMetrics)

// WithEngagementProvider enables periodic gauge collection from the provider.
func WithEngagementProvider(p EngagementProvider) MarketplaceMetricsOption {
	return func(m *MarketplaceMetrics) {
		m.provider = p
	}
}

// WithCollectInterval overrides the default 60s gauge collection interval.
func WithCollectInterval(d time.Duration) MarketplaceMetricsOption {
	return func(m *MarketplaceMetrics) {
		if d > 0 {
			m.collectInterval = d
		}
	}
}

// NewMarketplaceMetrics creates the marketplace instruments on the given
// meter provider.
func NewMarketplaceMetrics(mp *MeterProvider, logger *zap.Logger, opts ...MarketplaceMetricsOption) (*MarketplaceMetrics, error) {
	m := &MarketplaceMetrics{
		logger:          logger,
		collectInterval: 60 * time.Second,
		stopChan:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.meter = mp.Meter("marketplace")
	if m.meter == nil {
		return nil, &MetricsError{Op: "create_meter", Err: ErrMeterNil}
	}

	var err error
	if m.registrations, err = m.meter.Int64Counter(
		"marketplace.user.registrations",
		metric.WithDescription("Number of user registrations"),
	); err != nil {
		return nil, &MetricsError{Op: "create_registrations_counter", Err: err}
	}
	if m.logins, err = m.meter.Int64Counter(
		"marketplace.user.logins",
		metric.WithDescription("Number of login attempts by status"),
	); err != nil {
		return nil, &MetricsError{Op: "create_logins_counter", Err: err}
	}
	if m.messagesSent, err = m.meter.Int64Counter(
		"marketplace.messages.sent",
		metric.WithDescription("Number of chat messages sent"),
	); err != nil {
		return nil, &MetricsError{Op: "create_messages_counter", Err: err}
	}
	if m.notificationsCreated, err = m.meter.Int64Counter(
		"marketplace.notifications.created",
		metric.WithDescription("Number of notifications created by type"),
	); err != nil {
		return nil, &MetricsError{Op: "create_notifications_counter", Err: err}
	}

	if m.activeUsers, err = m.meter.Int64Gauge(
		"marketplace.users.active",
		metric.WithDescription("Current number of active user accounts"),
	); err != nil {
		return nil, &MetricsError{Op: "create_active_users_gauge", Err: err}
	}
	if m.openDialogues, err = m.meter.Int64Gauge(
		"marketplace.dialogues.open",
		metric.WithDescription("Current number of dialogues"),
	); err != nil {
		return nil, &MetricsError{Op: "create_dialogues_gauge", Err: err}
	}
	if m.unreadNotifications, err = m.meter.Int64Gauge(
		"marketplace.notifications.unread",
		metric.WithDescription("Current number of unread notifications"),
	); err != nil {
		return nil, &MetricsError{Op: "create_unread_gauge", Err: err}
	}

	return m, nil
}

// RecordRegistration counts a completed user registration.
func (m *MarketplaceMetrics) RecordRegistration(ctx context.Context) {
	m.registrations.Add(ctx, 1)
}

// RecordLogin counts a login attempt. Status is one of "success", "failed"
// or "locked".
func (m *MarketplaceMetrics) RecordLogin(ctx context.Context, status string) {
	m.logins.Add(ctx, 1, metric.WithAttributes(
		AttrLoginStatus.String(status),
	))
}

// RecordMessageSent counts a chat message delivery.
func (m *MarketplaceMetrics) RecordMessageSent(ctx context.Context) {
	m.messagesSent.Add(ctx, 1)
}

// RecordNotificationCreated counts a created notification by type.
func (m *MarketplaceMetrics) RecordNotificationCreated(ctx context.Context, notificationType string) {
	m.notificationsCreated.Add(ctx, 1, metric.WithAttributes(
		AttrNotificationType.String(notificationType),
	))
}

// StartPeriodicCollection launches a background goroutine that samples the
// engagement gauges at the configured interval. It is a no-op when no
// provider was configured.
func (m *MarketplaceMetrics) StartPeriodicCollection(ctx context.Context) {
	if m.provider == nil {
		m.logger.Debug("No engagement provider configured, skipping periodic collection")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.collectInterval)
		defer ticker.Stop()

		m.collectOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopChan:
				return
			case <-ticker.C:
				m.collectOnce(ctx)
			}
		}
	}()

	m.logger.Info("Started periodic engagement metrics collection",
		zap.Duration("interval", m.collectInterval),
	)
}

func (m *MarketplaceMetrics) collectOnce(ctx context.Context) {
	collectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if count, err := m.provider.ActiveUserCount(collectCtx); err != nil {
		m.logger.Warn("Failed to collect active user count", zap.Error(err))
	} else {
		m.activeUsers.Record(collectCtx, count)
	}

	if count, err := m.provider.OpenDialogueCount(collectCtx); err != nil {
		m.logger.Warn("Failed to collect dialogue count", zap.Error(err))
	} else {
		m.openDialogues.Record(collectCtx, count)
	}

	if count, err := m.provider.UnreadNotificationCount(collectCtx); err != nil {
		m.logger.Warn("Failed to collect unread notification count", zap.Error(err))
	} else {
		m.unreadNotifications.Record(collectCtx, count)
	}
}

// StopPeriodicCollection stops the collection goroutine and waits for it to
// exit. Safe to call multiple times.
func (m *MarketplaceMetrics) StopPeriodicCollection() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	m.wg.Wait()
}
