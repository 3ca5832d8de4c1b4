package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/day"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fakeSubscriptions фильтрует подписки так же, как запросы хранилища.
type fakeSubscriptions struct {
	subs []*models.Subscription
	err  error
}

func (f *fakeSubscriptions) ListRenewing(_ context.Context, from, to time.Time) ([]*models.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Subscription
	for _, s := range f.subs {
		if s.Status == models.SubscriptionActive && s.AutoRenewal &&
			!s.NextBillingDate.Before(from) && s.NextBillingDate.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

// ListTrialsEnding пропускает и подписки без даты окончания, чтобы проверить обработку таких записей.
func (f *fakeSubscriptions) ListTrialsEnding(_ context.Context, from, to time.Time) ([]*models.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Subscription
	for _, s := range f.subs {
		if !s.IsFreeTrial || s.Status != models.SubscriptionTrial {
			continue
		}
		if s.TrialEndDate == nil || (!s.TrialEndDate.Before(from) && s.TrialEndDate.Before(to)) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakePreferences struct {
	prefs map[string]*models.UserPreferences
	errs  map[string]error
}

func (f *fakePreferences) GetPreferences(_ context.Context, userID string) (*models.UserPreferences, error) {
	if err, ok := f.errs[userID]; ok {
		return nil, err
	}
	p, ok := f.prefs[userID]
	if !ok {
		return nil, fmt.Errorf("storage.GetPreferences: %w", repository.ErrPreferencesNotFound)
	}
	return p, nil
}

// fakeLedger журнал в памяти с тем же ключом уникальности, что и в БД.
type fakeLedger struct {
	mu      sync.Mutex
	items   map[string]*models.Notification
	failFor map[string]error
	seq     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{items: map[string]*models.Notification{}, failFor: map[string]error{}}
}

func (f *fakeLedger) InsertNotificationIfAbsent(_ context.Context, n *models.Notification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subID := ""
	if n.SubscriptionID != nil {
		subID = *n.SubscriptionID
	}
	if err, ok := f.failFor[subID]; ok {
		return false, err
	}
	key := fmt.Sprintf("%s|%s|%s|%s", n.UserID, subID, n.Type, n.ScheduledFor.Format(day.Layout))
	if _, ok := f.items[key]; ok {
		return false, nil
	}
	f.seq++
	n.ID = fmt.Sprintf("n-%d", f.seq)
	n.CreatedAt = time.Now()
	f.items[key] = n
	return true, nil
}

func (f *fakeLedger) all() []*models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Notification, 0, len(f.items))
	for _, n := range f.items {
		out = append(out, n)
	}
	return out
}

func (f *fakeLedger) forDay(d time.Time) []*models.Notification {
	var out []*models.Notification
	for _, n := range f.all() {
		if day.Same(n.ScheduledFor, d) {
			out = append(out, n)
		}
	}
	return out
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, message any) error {
	args := m.Called(routingKey, message)
	return args.Error(0)
}

func renewingSub(id, userID, name string, next time.Time) *models.Subscription {
	return &models.Subscription{
		ID:              id,
		UserID:          userID,
		Name:            name,
		Price:           decimal.RequireFromString("9.99"),
		Currency:        "USD",
		BillingCycle:    "monthly",
		NextBillingDate: next,
		AutoRenewal:     true,
		Status:          models.SubscriptionActive,
		UserEmail:       userID + "@example.com",
		Username:        userID,
	}
}

func trialSub(id, userID, name string, end *time.Time) *models.Subscription {
	s := renewingSub(id, userID, name, date(2024, 7, 1))
	s.IsFreeTrial = true
	s.Status = models.SubscriptionTrial
	s.TrialEndDate = end
	return s
}
