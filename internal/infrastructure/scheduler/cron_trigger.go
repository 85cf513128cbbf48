package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CronTriggerConfig holds configuration for the daily trigger
type CronTriggerConfig struct {
	// DailyRunHour and DailyRunMinute set the local time of the daily run
	DailyRunHour   int
	DailyRunMinute int

	// CheckInterval is how often to check whether it is time to run
	CheckInterval time.Duration
}

// DefaultCronTriggerConfig runs housekeeping at 3am local time
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		DailyRunHour:   3,
		DailyRunMinute: 0,
		CheckInterval:  time.Minute,
	}
}

// CronTrigger submits the housekeeping jobs once per day
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewCronTrigger creates a new daily trigger
func NewCronTrigger(config CronTriggerConfig, scheduler *Scheduler, logger *zap.Logger) *CronTrigger {
	return &CronTrigger{
		config:    config,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Start begins the check loop. Calling Start on a running trigger is a
// no-op.
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Housekeeping cron trigger started",
		zap.Int("hour", c.config.DailyRunHour),
		zap.Int("minute", c.config.DailyRunMinute),
	)
	return nil
}

// Stop stops the check loop and waits for it to exit
func (c *CronTrigger) Stop() {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	c.logger.Info("Housekeeping cron trigger stopped")
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndRun()
		}
	}
}

// checkAndRun submits the jobs when the scheduled time has passed and no
// run happened today yet.
func (c *CronTrigger) checkAndRun() {
	now := time.Now()
	today := now.Format("2006-01-02")

	c.mu.Lock()
	alreadyRan := c.lastRunDate == today
	c.mu.Unlock()

	if alreadyRan {
		return
	}

	scheduled := time.Date(now.Year(), now.Month(), now.Day(),
		c.config.DailyRunHour, c.config.DailyRunMinute, 0, 0, now.Location())
	if now.Before(scheduled) {
		return
	}

	if err := c.scheduler.ScheduleHousekeeping(); err != nil {
		c.logger.Error("Failed to schedule housekeeping jobs", zap.Error(err))
		return
	}

	c.mu.Lock()
	c.lastRunDate = today
	c.mu.Unlock()

	c.logger.Info("Daily housekeeping jobs scheduled", zap.String("date", today))
}

// TriggerNow submits the housekeeping jobs immediately, regardless of the
// schedule. Used by the admin CLI.
func (c *CronTrigger) TriggerNow() error {
	return c.scheduler.ScheduleHousekeeping()
}
