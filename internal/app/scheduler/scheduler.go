// Package scheduler собирает процесс планировщика уведомлений.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscription-tracker/internal/cache"
	"github.com/magabrotheeeer/subscription-tracker/internal/config"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/lock"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/metrics"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	reminder "github.com/magabrotheeeer/subscription-tracker/internal/services/reminder"
	schedulerservice "github.com/magabrotheeeer/subscription-tracker/internal/services/scheduler"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

// App процесс планировщика.
type App struct {
	schedulerService *schedulerservice.SchedulerService
	metricsServer    *http.Server
	db               *repository.Storage
	cache            *cache.Cache
	conn             *amqp.Connection
	ch               *amqp.Channel
	logger           *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	var err error
	for range 10 {
		if err = repository.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// New создает приложение планировщика и регистрирует задачи.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "scheduler.New"

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect storage: %w", op, err)
	}
	a := &App{db: db, logger: logger}

	if err = waitForDB(ctx, db); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: cache not initialized: %w", op, err)
	}
	prefs := cache.NewPreferences(db, a.cache, cfg.PreferencesCacheTTL, logger)

	var publisher reminder.Publisher
	if cfg.RabbitMQURL != "" {
		a.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: failed to connect RabbitMQ: %w", op, err)
		}
		a.ch, err = rabbitmq.SetupChannel(a.conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			a.close()
			return nil, fmt.Errorf("%s: failed to setup RabbitMQ channel: %w", op, err)
		}
		publisher = rabbitmq.NewPublisher(a.ch)
	} else {
		logger.Warn("rabbitmq url is not set, email notifications are disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	reminderService := reminder.NewReminderService(db, prefs, db, publisher, logger, reminder.Options{
		Workers:  cfg.Workers,
		Location: loc,
	})

	a.schedulerService = schedulerservice.NewSchedulerService(
		lock.New(a.cache.Db, cfg.LockTTL), m, logger, loc, cfg.RunTimeout)

	jobs := []schedulerservice.Job{
		{Name: reminder.JobRenewal, Spec: cfg.RenewalSpec, Run: reminderService.GenerateRenewals},
		{Name: reminder.JobTrial, Spec: cfg.TrialSpec, Run: reminderService.GenerateTrialEndings},
		schedulerservice.CleanupJob(cfg.CleanupSpec, logger),
	}
	for _, job := range jobs {
		if err := a.schedulerService.Register(job); err != nil {
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		a.metricsServer = &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	logger.Info("scheduler configured",
		slog.String("timezone", loc.String()),
		slog.Int("workers", cfg.Workers),
		slog.Duration("run_timeout", cfg.RunTimeout),
	)
	return a, nil
}

// Run запускает расписание и ждет отмены ctx.
func (a *App) Run(ctx context.Context) error {
	if a.metricsServer != nil {
		go func() {
			a.logger.Info("metrics server starting", slog.String("address", a.metricsServer.Addr))
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server stopped", sl.Err(err))
			}
		}()
	}

	a.schedulerService.Start(ctx)
	<-ctx.Done()

	a.logger.Info("shutting down scheduler service")
	a.schedulerService.Stop()

	if a.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to stop metrics server", sl.Err(err))
		}
	}
	a.close()
	return nil
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Db.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
