// Package services генерация напоминаний о продлении подписок и окончании
// пробного периода. Каждый запуск идемпотентен в пределах календарного дня:
// журнал уведомлений сам отбрасывает повторы.
package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/day"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// Имена задач, они же имена блокировок и значения метки job.
const (
	JobRenewal = "renewal_reminders"
	JobTrial   = "trial_endings"
)

// TrialHorizonDays за сколько дней до конца пробного периода отправляется напоминание.
const TrialHorizonDays = 3

// SubscriptionStore источник подписок для генераторов.
type SubscriptionStore interface {
	ListRenewing(ctx context.Context, from, to time.Time) ([]*models.Subscription, error)
	ListTrialsEnding(ctx context.Context, from, to time.Time) ([]*models.Subscription, error)
}

// PreferenceStore источник настроек пользователей.
type PreferenceStore interface {
	GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error)
}

// Ledger журнал уведомлений с атомарной вставкой без повторов.
type Ledger interface {
	InsertNotificationIfAbsent(ctx context.Context, n *models.Notification) (bool, error)
}

// Publisher отправляет письма в очередь.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Options параметры генератора. Нулевые значения заменяются значениями по умолчанию.
type Options struct {
	Workers  int
	Location *time.Location
	Now      func() time.Time
}

// ReminderService генерирует уведомления о продлениях и окончании пробных периодов.
type ReminderService struct {
	subs      SubscriptionStore
	prefs     PreferenceStore
	ledger    Ledger
	publisher Publisher
	log       *slog.Logger
	workers   int
	loc       *time.Location
	now       func() time.Time
}

// NewReminderService создаёт генератор. publisher может быть nil: тогда письма не ставятся в очередь.
func NewReminderService(subs SubscriptionStore, prefs PreferenceStore, ledger Ledger,
	publisher Publisher, log *slog.Logger, opts Options) *ReminderService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ReminderService{
		subs:      subs,
		prefs:     prefs,
		ledger:    ledger,
		publisher: publisher,
		log:       log,
		workers:   opts.Workers,
		loc:       opts.Location,
		now:       opts.Now,
	}
}

// Today текущая дата в часовом поясе сервиса.
func (s *ReminderService) Today() time.Time {
	return day.Today(s.now(), s.loc)
}

// RunSummary итоги одного запуска генератора.
type RunSummary struct {
	Job        string
	Day        time.Time
	Candidates int
	Created    int
	Duplicates int
	Skipped    int
	Failed     int
}

// LogValue позволяет писать сводку в лог одним атрибутом.
func (r RunSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("job", r.Job),
		slog.String("day", r.Day.Format(day.Layout)),
		slog.Int("candidates", r.Candidates),
		slog.Int("created", r.Created),
		slog.Int("duplicates", r.Duplicates),
		slog.Int("skipped", r.Skipped),
		slog.Int("failed", r.Failed),
	)
}

// tally потокобезопасный накопитель счётчиков запуска.
type tally struct {
	mu sync.Mutex
	RunSummary
}

func (t *tally) add(f func(r *RunSummary)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f(&t.RunSummary)
}

func (t *tally) summary() RunSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.RunSummary
}

// groupByUser группирует подписки по владельцу с детерминированным порядком владельцев.
func groupByUser(subs []*models.Subscription) ([]string, map[string][]*models.Subscription) {
	groups := make(map[string][]*models.Subscription)
	var users []string
	for _, sub := range subs {
		if _, ok := groups[sub.UserID]; !ok {
			users = append(users, sub.UserID)
		}
		groups[sub.UserID] = append(groups[sub.UserID], sub)
	}
	sort.Strings(users)
	return users, groups
}

// NormalizeOffsets убирает повторы и некорректные смещения (меньше нуля или больше
// models.MaxReminderDays), сохраняя исходный порядок. Отброшенные значения возвращаются вторым результатом.
func NormalizeOffsets(days []int) (valid []int, dropped []int) {
	seen := make(map[int]struct{}, len(days))
	for _, d := range days {
		if d < 0 || d > models.MaxReminderDays {
			dropped = append(dropped, d)
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		valid = append(valid, d)
	}
	return valid, dropped
}

// record вставляет уведомление в журнал, учитывает результат и при необходимости ставит письмо в очередь.
func (s *ReminderService) record(ctx context.Context, log *slog.Logger, t *tally,
	sub *models.Subscription, n *models.Notification) {
	created, err := s.ledger.InsertNotificationIfAbsent(ctx, n)
	if err != nil {
		log.Error("failed to insert notification",
			slog.String("subscription_id", sub.ID), sl.Err(err))
		t.add(func(r *RunSummary) { r.Failed++ })
		return
	}
	if !created {
		log.Debug("notification already exists", slog.String("subscription_id", sub.ID))
		t.add(func(r *RunSummary) { r.Duplicates++ })
		return
	}
	t.add(func(r *RunSummary) { r.Created++ })

	if !n.DeliveryMethod.SendsEmail() || s.publisher == nil {
		return
	}
	if sub.UserEmail == "" {
		log.Warn("email delivery requested but user has no email", slog.String("user_id", sub.UserID))
		return
	}
	msg := models.EmailMessage{
		NotificationID: n.ID,
		Email:          sub.UserEmail,
		Username:       sub.Username,
		Subject:        n.Title,
		Body:           EmailBody(sub.Username, n.Message),
	}
	if err := s.publisher.Publish(rabbitmq.EmailRoutingKey, msg); err != nil {
		log.Error("failed to publish email", slog.String("notification_id", n.ID), sl.Err(err))
	}
}
