package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/day"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// GenerateTrialEndings создаёт напоминания об окончании пробного периода на сегодня.
func (s *ReminderService) GenerateTrialEndings(ctx context.Context) (RunSummary, error) {
	return s.TrialEndingsFor(ctx, s.Today())
}

// TrialEndingsFor создаёт напоминания для пробных периодов, заканчивающихся
// ровно через TrialHorizonDays дней после today. Пользователи, отключившие
// такие уведомления (или не имеющие настроек), пропускаются.
func (s *ReminderService) TrialEndingsFor(ctx context.Context, today time.Time) (RunSummary, error) {
	const op = "services.TrialEndingsFor"
	today = day.Civil(today)
	log := s.log.With(slog.String("job", JobTrial), slog.String("day", today.Format(day.Layout)))
	t := &tally{RunSummary: RunSummary{Job: JobTrial, Day: today}}

	target := day.Add(today, TrialHorizonDays)
	from, to := day.Window(target)
	subs, err := s.subs.ListTrialsEnding(ctx, from, to)
	if err != nil {
		return t.summary(), fmt.Errorf("%s: %w", op, err)
	}
	users, groups := groupByUser(subs)
	log.Info("trial ending run started", slog.Int("users", len(users)), slog.Int("subscriptions", len(subs)))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, userID := range users {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s.trialsForUser(ctx, log.With(slog.String("user_id", userID)), t, today, target, groups[userID])
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

func (s *ReminderService) trialsForUser(ctx context.Context, log *slog.Logger, t *tally,
	today, target time.Time, subs []*models.Subscription) {
	var valid []*models.Subscription
	for _, sub := range subs {
		t.add(func(r *RunSummary) { r.Candidates++ })
		if sub.TrialEndDate == nil || !day.Same(*sub.TrialEndDate, target) {
			log.Warn("trial subscription without matching trial end date", slog.String("subscription_id", sub.ID))
			t.add(func(r *RunSummary) { r.Skipped++ })
			continue
		}
		valid = append(valid, sub)
	}
	if len(valid) == 0 {
		return
	}

	userID := valid[0].UserID
	prefs, err := s.preferences(ctx, userID)
	if err != nil {
		log.Error("failed to load preferences", sl.Err(err))
		t.add(func(r *RunSummary) { r.Failed += len(valid) })
		return
	}
	if !prefs.NotifyTrialEndings {
		log.Debug("user opted out of trial ending notifications", slog.Int("subscriptions", len(valid)))
		t.add(func(r *RunSummary) { r.Skipped += len(valid) })
		return
	}

	delivery := prefs.DeliveryMethod()
	for _, sub := range valid {
		s.record(ctx, log, t, sub, NewTrialEndingNotification(sub, today, delivery))
	}
}

// NewTrialEndingNotification строит напоминание об окончании пробного периода sub.
func NewTrialEndingNotification(sub *models.Subscription, today time.Time,
	delivery models.DeliveryMethod) *models.Notification {
	subscriptionID := sub.ID
	return &models.Notification{
		UserID:         sub.UserID,
		SubscriptionID: &subscriptionID,
		Type:           models.NotificationTrialEnding,
		Title:          TrialTitle(sub.Name),
		Message:        TrialMessage(sub.Name, sub.Currency, sub.Price),
		Priority:       models.PriorityHigh,
		ScheduledFor:   day.Civil(today),
		DeliveryMethod: delivery,
		Status:         models.StatusPending,
	}
}
