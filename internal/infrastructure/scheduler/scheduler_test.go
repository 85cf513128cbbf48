package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/craftmarket/backend/internal/infrastructure/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// recordingExecutor captures executed jobs and fails on demand.
type recordingExecutor struct {
	mu       sync.Mutex
	executed []scheduler.JobType
	failures map[scheduler.JobType]int
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{
		failures: make(map[scheduler.JobType]int),
	}
}

func (e *recordingExecutor) Execute(ctx context.Context, job *scheduler.Job) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.executed = append(e.executed, job.Type)
	if e.failures[job.Type] > 0 {
		e.failures[job.Type]--
		return errors.New("transient failure")
	}
	return nil
}

func (e *recordingExecutor) executedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.executed)
}

func testConfig() scheduler.SchedulerConfig {
	return scheduler.SchedulerConfig{
		Enabled:           true,
		MaxConcurrentJobs: 2,
		JobTimeout:        time.Second,
		RetryAttempts:     2,
		RetryDelay:        time.Millisecond,
	}
}

func TestScheduler_SubmitBeforeStart(t *testing.T) {
	s := scheduler.NewScheduler(testConfig(), newRecordingExecutor(), zaptest.NewLogger(t))

	err := s.SubmitJob(scheduler.NewJob(scheduler.JobTypeClearVerificationCodes, 0))
	assert.ErrorIs(t, err, scheduler.ErrSchedulerNotRunning)
}

func TestScheduler_ExecutesSubmittedJobs(t *testing.T) {
	executor := newRecordingExecutor()
	s := scheduler.NewScheduler(testConfig(), executor, zaptest.NewLogger(t))

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	require.NoError(t, s.ScheduleHousekeeping())

	assert.Eventually(t, func() bool {
		return executor.executedCount() >= len(scheduler.AllJobTypes())
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(stopCtx))
}

func TestScheduler_RetriesFailedJobs(t *testing.T) {
	executor := newRecordingExecutor()
	executor.failures[scheduler.JobTypePurgeReadNotifications] = 1

	s := scheduler.NewScheduler(testConfig(), executor, zaptest.NewLogger(t))

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	job := scheduler.NewJob(scheduler.JobTypePurgeReadNotifications, 2)
	require.NoError(t, s.SubmitJob(job))

	// One failure plus one successful retry
	assert.Eventually(t, func() bool {
		return executor.executedCount() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(stopCtx))
}

func TestJob_RetryBookkeeping(t *testing.T) {
	job := scheduler.NewJob(scheduler.JobTypeClearVerificationCodes, 2)
	assert.Equal(t, scheduler.JobStatusPending, job.Status)

	job.Start()
	assert.Equal(t, scheduler.JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)

	job.Fail("boom")
	assert.Equal(t, scheduler.JobStatusFailed, job.Status)
	assert.Equal(t, "boom", job.Error)
	assert.True(t, job.ShouldRetry())

	job.ScheduleRetry(time.Minute)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, scheduler.JobStatusPending, job.Status)
	require.NotNil(t, job.NextRetryAt)

	job.Fail("boom again")
	job.ScheduleRetry(time.Minute)
	job.Fail("final")
	assert.False(t, job.ShouldRetry())
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := scheduler.NewScheduler(testConfig(), newRecordingExecutor(), zaptest.NewLogger(t))

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Stop(ctx))
	assert.NoError(t, s.Stop(ctx))
}
