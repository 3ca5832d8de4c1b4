// Package services планировщик фоновых задач: запуск генераторов уведомлений
// по cron-расписанию с распределённой блокировкой и таймаутом на запуск.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/lock"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	reminder "github.com/magabrotheeeer/subscription-tracker/internal/services/reminder"
)

// JobCleanup имя еженедельной задачи очистки.
const JobCleanup = "cleanup"

// ErrSkipped запуск пропущен, потому что задача уже выполняется в другом процессе.
var ErrSkipped = errors.New("job run skipped: already running elsewhere")

// Locker выдаёт эксклюзивную блокировку на время запуска задачи.
type Locker interface {
	TryLock(ctx context.Context, name string) (func(context.Context) error, error)
}

// Recorder принимает итоги запусков для метрик.
type Recorder interface {
	ObserveRun(job, result string, elapsed time.Duration, s metrics.Summary)
	ObserveSkippedRun(job, result string)
}

// JobFunc один запуск задачи.
type JobFunc func(ctx context.Context) (reminder.RunSummary, error)

// Job задача с cron-расписанием из пяти полей.
type Job struct {
	Name string
	Spec string
	Run  JobFunc
}

// SchedulerService запускает зарегистрированные задачи по расписанию.
// Ошибка одной задачи не влияет на остальные; повторов внутри запуска нет.
type SchedulerService struct {
	cron    *cron.Cron
	locker  Locker
	metrics Recorder
	log     *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	baseCtx context.Context
}

// NewSchedulerService создаёт планировщик. locker и rec могут быть nil.
func NewSchedulerService(locker Locker, rec Recorder, log *slog.Logger, loc *time.Location, timeout time.Duration) *SchedulerService {
	if loc == nil {
		loc = time.Local
	}
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{log: log})),
		),
		locker:  locker,
		metrics: rec,
		log:     log,
		timeout: timeout,
		baseCtx: context.Background(),
	}
}

// Register добавляет задачу в расписание.
func (s *SchedulerService) Register(job Job) error {
	const op = "services.Register"
	_, err := s.cron.AddFunc(job.Spec, func() {
		_, _ = s.RunJob(s.context(), job)
	})
	if err != nil {
		return fmt.Errorf("%s: job %s spec %q: %w", op, job.Name, job.Spec, err)
	}
	s.log.Info("job scheduled", slog.String("job", job.Name), slog.String("spec", job.Spec))
	return nil
}

// Start запускает расписание. Запуски задач получают контекст, производный от ctx.
func (s *SchedulerService) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// Stop останавливает расписание и ждёт завершения выполняющихся задач.
func (s *SchedulerService) Stop() {
	<-s.cron.Stop().Done()
}

func (s *SchedulerService) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

// RunJob выполняет задачу один раз: берёт блокировку, ограничивает время
// выполнения, пишет итоги в лог и метрики.
func (s *SchedulerService) RunJob(ctx context.Context, job Job) (reminder.RunSummary, error) {
	log := s.log.With(slog.String("job", job.Name))

	if s.locker != nil {
		release, err := s.locker.TryLock(ctx, job.Name)
		if errors.Is(err, lock.ErrHeld) {
			log.Warn("job is already running, skipping tick")
			s.observeSkipped(job.Name, metrics.ResultLocked)
			return reminder.RunSummary{Job: job.Name}, ErrSkipped
		}
		if err != nil {
			log.Error("failed to acquire job lock", sl.Err(err))
			s.observeSkipped(job.Name, metrics.ResultError)
			return reminder.RunSummary{Job: job.Name}, fmt.Errorf("services.RunJob: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to release job lock", sl.Err(err))
			}
		}()
	}

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	summary, err := job.Run(runCtx)
	elapsed := time.Since(start)

	result := metrics.ResultOK
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		result = metrics.ResultTimeout
	case err != nil:
		result = metrics.ResultError
	}
	if s.metrics != nil {
		s.metrics.ObserveRun(job.Name, result, elapsed, metrics.Summary{
			Created:    summary.Created,
			Duplicates: summary.Duplicates,
			Skipped:    summary.Skipped,
			Failed:     summary.Failed,
		})
	}

	if err != nil {
		log.Error("job failed", slog.Duration("elapsed", elapsed), slog.Any("summary", summary), sl.Err(err))
		return summary, err
	}
	log.Info("job finished", slog.Duration("elapsed", elapsed), slog.Any("summary", summary))
	return summary, nil
}

func (s *SchedulerService) observeSkipped(job, result string) {
	if s.metrics != nil {
		s.metrics.ObserveSkippedRun(job, result)
	}
}

// CleanupJob еженедельная очистка старых уведомлений. Политика хранения пока не определена,
// поэтому задача только отмечает запуск.
func CleanupJob(spec string, log *slog.Logger) Job {
	return Job{
		Name: JobCleanup,
		Spec: spec,
		Run: func(_ context.Context) (reminder.RunSummary, error) {
			log.Info("notification cleanup has no retention policy configured, nothing to do")
			return reminder.RunSummary{Job: JobCleanup}, nil
		},
	}
}

// cronLogger передаёт сообщения cron в slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, sl.Err(err))...)
}
