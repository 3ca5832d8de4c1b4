package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/config"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/migrations"
	reminder "github.com/magabrotheeeer/subscription-tracker/internal/services/reminder"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

// Generator генераторы уведомлений за явно заданный день.
type Generator interface {
	RenewalsFor(ctx context.Context, today time.Time) (reminder.RunSummary, error)
	TrialEndingsFor(ctx context.Context, today time.Time) (reminder.RunSummary, error)
	Today() time.Time
}

// Runtime внешние зависимости команд. В тестах подменяются целиком.
type Runtime struct {
	LoadConfig    func(path string) (*config.Config, error)
	NewLogger     func(cfg *config.Config, w io.Writer) *slog.Logger
	OpenGenerator func(ctx context.Context, cfg *config.Config, log *slog.Logger) (Generator, io.Closer, error)
	Migrate       func(cfg *config.Config, path string) error
}

// DefaultRuntime зависимости для реального запуска.
func DefaultRuntime() *Runtime {
	return &Runtime{
		LoadConfig:    config.Load,
		NewLogger:     newLogger,
		OpenGenerator: openGenerator,
		Migrate:       migrate,
	}
}

func newLogger(_ *config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func openGenerator(_ context.Context, cfg *config.Config, log *slog.Logger) (Generator, io.Closer, error) {
	const op = "cli.openGenerator"

	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	res := closers{db}

	var publisher reminder.Publisher
	if cfg.RabbitMQURL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			_ = res.Close()
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, conn)
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			_ = res.Close()
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, ch)
		publisher = rabbitmq.NewPublisher(ch)
	} else {
		log.Warn("rabbitmq url is not set, emails will not be queued")
	}

	gen := reminder.NewReminderService(db, db, db, publisher, log, reminder.Options{
		Workers:  cfg.Workers,
		Location: loc,
	})
	return gen, res, nil
}

func migrate(cfg *config.Config, path string) error {
	const op = "cli.migrate"
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Default().Warn("failed to close storage", sl.Err(err))
		}
	}()
	if err := migrations.Run(db.DB, path); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
