package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/lock"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/metrics"
	reminder "github.com/magabrotheeeer/subscription-tracker/internal/services/reminder"
)

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) TryLock(ctx context.Context, name string) (func(context.Context) error, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func(context.Context) error), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) ObserveRun(job, result string, elapsed time.Duration, s metrics.Summary) {
	m.Called(job, result, elapsed, s)
}

func (m *MockRecorder) ObserveSkippedRun(job, result string) {
	m.Called(job, result)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func okJob(name string, calls *int32) Job {
	return Job{
		Name: name,
		Spec: "0 0 * * *",
		Run: func(_ context.Context) (reminder.RunSummary, error) {
			atomic.AddInt32(calls, 1)
			return reminder.RunSummary{Job: name, Created: 2, Duplicates: 1}, nil
		},
	}
}

func TestRunJob_Success(t *testing.T) {
	locker := new(MockLocker)
	rec := new(MockRecorder)
	var released int32
	release := func(context.Context) error {
		atomic.AddInt32(&released, 1)
		return nil
	}
	locker.On("TryLock", mock.Anything, "renewal_reminders").Return(release, nil).Once()
	rec.On("ObserveRun", "renewal_reminders", metrics.ResultOK, mock.AnythingOfType("time.Duration"),
		metrics.Summary{Created: 2, Duplicates: 1}).Once()

	var calls int32
	s := NewSchedulerService(locker, rec, newNoopLogger(), time.UTC, time.Minute)
	summary, err := s.RunJob(context.Background(), okJob("renewal_reminders", &calls))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, int32(1), calls)
	assert.Equal(t, int32(1), released)
	locker.AssertExpectations(t)
	rec.AssertExpectations(t)
}

func TestRunJob_LockHeldSkipsTick(t *testing.T) {
	locker := new(MockLocker)
	rec := new(MockRecorder)
	locker.On("TryLock", mock.Anything, "trial_endings").
		Return(nil, lock.ErrHeld).Once()
	rec.On("ObserveSkippedRun", "trial_endings", metrics.ResultLocked).Once()

	var calls int32
	s := NewSchedulerService(locker, rec, newNoopLogger(), time.UTC, time.Minute)
	_, err := s.RunJob(context.Background(), okJob("trial_endings", &calls))
	require.ErrorIs(t, err, ErrSkipped)
	assert.Equal(t, int32(0), calls)
	rec.AssertExpectations(t)
}

func TestRunJob_LockErrorDoesNotRun(t *testing.T) {
	locker := new(MockLocker)
	locker.On("TryLock", mock.Anything, "renewal_reminders").
		Return(nil, errors.New("redis: connection refused")).Once()

	var calls int32
	s := NewSchedulerService(locker, nil, newNoopLogger(), time.UTC, time.Minute)
	_, err := s.RunJob(context.Background(), okJob("renewal_reminders", &calls))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSkipped)
	assert.Equal(t, int32(0), calls)
}

func TestRunJob_FailureIsIsolated(t *testing.T) {
	rec := new(MockRecorder)
	rec.On("ObserveRun", "renewal_reminders", metrics.ResultError, mock.Anything, mock.Anything).Once()
	rec.On("ObserveRun", "trial_endings", metrics.ResultOK, mock.Anything, mock.Anything).Once()

	s := NewSchedulerService(nil, rec, newNoopLogger(), time.UTC, 0)
	failing := Job{
		Name: "renewal_reminders",
		Run: func(_ context.Context) (reminder.RunSummary, error) {
			return reminder.RunSummary{}, errors.New("store unavailable")
		},
	}
	_, err := s.RunJob(context.Background(), failing)
	require.Error(t, err)

	var calls int32
	_, err = s.RunJob(context.Background(), okJob("trial_endings", &calls))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)
	rec.AssertExpectations(t)
}

func TestRunJob_Timeout(t *testing.T) {
	rec := new(MockRecorder)
	rec.On("ObserveRun", "renewal_reminders", metrics.ResultTimeout, mock.Anything, mock.Anything).Once()

	s := NewSchedulerService(nil, rec, newNoopLogger(), time.UTC, 50*time.Millisecond)
	slow := Job{
		Name: "renewal_reminders",
		Run: func(ctx context.Context) (reminder.RunSummary, error) {
			<-ctx.Done()
			return reminder.RunSummary{}, ctx.Err()
		},
	}
	_, err := s.RunJob(context.Background(), slow)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	rec.AssertExpectations(t)
}

func TestRunJob_RedisLockPreventsOverlap(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	s := NewSchedulerService(lock.New(client, time.Minute), nil, newNoopLogger(), time.UTC, time.Minute)

	started := make(chan struct{})
	finish := make(chan struct{})
	long := Job{
		Name: "renewal_reminders",
		Run: func(_ context.Context) (reminder.RunSummary, error) {
			close(started)
			<-finish
			return reminder.RunSummary{}, nil
		},
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.RunJob(context.Background(), long)
		done <- err
	}()
	<-started

	var calls int32
	_, err = s.RunJob(context.Background(), okJob("renewal_reminders", &calls))
	require.ErrorIs(t, err, ErrSkipped)
	assert.Equal(t, int32(0), calls)

	close(finish)
	require.NoError(t, <-done)

	_, err = s.RunJob(context.Background(), okJob("renewal_reminders", &calls))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)
}

func TestRegister_InvalidSpec(t *testing.T) {
	s := NewSchedulerService(nil, nil, newNoopLogger(), time.UTC, time.Minute)
	err := s.Register(Job{Name: "broken", Spec: "every day please"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestScheduler_FiresRegisteredJobs(t *testing.T) {
	s := NewSchedulerService(nil, nil, newNoopLogger(), time.UTC, time.Minute)

	fired := make(chan struct{}, 1)
	require.NoError(t, s.Register(Job{
		Name: "tick",
		Spec: "@every 1s",
		Run: func(_ context.Context) (reminder.RunSummary, error) {
			select {
			case fired <- struct{}{}:
			default:
			}
			return reminder.RunSummary{}, nil
		},
	}))
	require.NoError(t, s.Register(CleanupJob("0 2 * * 0", newNoopLogger())))

	s.Start(context.Background())
	defer s.Stop()

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not fired by cron")
	}
}

func TestCleanupJob_IsNoop(t *testing.T) {
	job := CleanupJob("0 2 * * 0", newNoopLogger())
	assert.Equal(t, JobCleanup, job.Name)
	assert.Equal(t, "0 2 * * 0", job.Spec)

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reminder.RunSummary{Job: JobCleanup}, summary)
}
