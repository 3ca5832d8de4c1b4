package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/day"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

// GenerateRenewals создаёт напоминания о продлении на сегодня.
func (s *ReminderService) GenerateRenewals(ctx context.Context) (RunSummary, error) {
	return s.RenewalsFor(ctx, s.Today())
}

// RenewalsFor создаёт напоминания о продлении так, как если бы сегодня было today.
// Для каждой активной автопродлеваемой подписки и каждого смещения из настроек
// владельца уведомление создаётся, если next_billing_date == today + смещение.
func (s *ReminderService) RenewalsFor(ctx context.Context, today time.Time) (RunSummary, error) {
	const op = "services.RenewalsFor"
	today = day.Civil(today)
	log := s.log.With(slog.String("job", JobRenewal), slog.String("day", today.Format(day.Layout)))
	t := &tally{RunSummary: RunSummary{Job: JobRenewal, Day: today}}

	subs, err := s.subs.ListRenewing(ctx, today, day.Add(today, models.MaxReminderDays+1))
	if err != nil {
		return t.summary(), fmt.Errorf("%s: %w", op, err)
	}
	users, groups := groupByUser(subs)
	log.Info("renewal reminder run started", slog.Int("users", len(users)), slog.Int("subscriptions", len(subs)))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, userID := range users {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s.renewalsForUser(ctx, log.With(slog.String("user_id", userID)), t, today, userID, groups[userID])
			return nil
		})
	}
	_ = g.Wait()

	summary := t.summary()
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("%s: %w", op, err)
	}
	return summary, nil
}

func (s *ReminderService) renewalsForUser(ctx context.Context, log *slog.Logger, t *tally,
	today time.Time, userID string, subs []*models.Subscription) {
	prefs, err := s.preferences(ctx, userID)
	if err != nil {
		log.Error("failed to load preferences", sl.Err(err))
		t.add(func(r *RunSummary) { r.Failed++ })
		return
	}

	offsets, dropped := NormalizeOffsets(prefs.RenewalReminderDays)
	if len(dropped) > 0 {
		log.Warn("ignoring malformed reminder offsets", slog.Any("offsets", dropped))
	}
	delivery := prefs.DeliveryMethod()

	for _, sub := range subs {
		for _, offset := range offsets {
			if !day.Same(sub.NextBillingDate, day.Add(today, offset)) {
				continue
			}
			t.add(func(r *RunSummary) { r.Candidates++ })
			s.record(ctx, log, t, sub, NewRenewalNotification(sub, offset, today, delivery))
		}
	}
}

// preferences загружает настройки пользователя, подставляя значения по умолчанию, если их нет.
func (s *ReminderService) preferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	prefs, err := s.prefs.GetPreferences(ctx, userID)
	if errors.Is(err, repository.ErrPreferencesNotFound) {
		return models.DefaultPreferences(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

// NewRenewalNotification строит напоминание о продлении sub через offset дней.
func NewRenewalNotification(sub *models.Subscription, offset int, today time.Time,
	delivery models.DeliveryMethod) *models.Notification {
	priority := models.PriorityNormal
	if offset == 1 {
		priority = models.PriorityHigh
	}
	subscriptionID := sub.ID
	return &models.Notification{
		UserID:         sub.UserID,
		SubscriptionID: &subscriptionID,
		Type:           models.NotificationRenewalReminder,
		Title:          RenewalTitle(sub.Name),
		Message:        RenewalMessage(sub.Name, offset, sub.Currency, sub.Price),
		Priority:       priority,
		ScheduledFor:   day.Civil(today),
		DeliveryMethod: delivery,
		Status:         models.StatusPending,
	}
}
