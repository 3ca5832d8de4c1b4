package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/subscription-tracker/internal/migrations"
)

// TestDataFactory создаёт тестовые данные напрямую через SQL.
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создаёт новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создаёт пользователя и возвращает его id.
func (f *TestDataFactory) CreateUser(t *testing.T, username string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := f.storage.DB.Exec(`INSERT INTO users (id, email, username) VALUES ($1, $2, $3)`,
		id, username+"@example.com", username)
	require.NoError(t, err)
	return id
}

// CreatePreferences сохраняет настройки пользователя.
func (f *TestDataFactory) CreatePreferences(t *testing.T, userID string, days []int, email, trials bool) {
	t.Helper()
	literal := "{"
	for i, d := range days {
		if i > 0 {
			literal += ","
		}
		literal += fmt.Sprint(d)
	}
	literal += "}"
	_, err := f.storage.DB.Exec(`INSERT INTO user_preferences
		(user_id, renewal_reminder_days, enable_email_notifications, notify_trial_endings)
		VALUES ($1, $2::text::int[], $3, $4)`, userID, literal, email, trials)
	require.NoError(t, err)
}

// TestSubscriptionData параметры тестовой подписки.
type TestSubscriptionData struct {
	Name            string
	Price           string
	NextBillingDate time.Time
	AutoRenewal     bool
	IsFreeTrial     bool
	TrialEndDate    *time.Time
	Status          string
}

// GetTestSubscriptionData возвращает активную автопродлеваемую подписку на указанную дату.
func GetTestSubscriptionData(next time.Time) TestSubscriptionData {
	return TestSubscriptionData{
		Name:            "Netflix",
		Price:           "9.99",
		NextBillingDate: next,
		AutoRenewal:     true,
		Status:          "active",
	}
}

// CreateSubscription создаёт подписку и возвращает её id.
func (f *TestDataFactory) CreateSubscription(t *testing.T, userID string, d TestSubscriptionData) string {
	t.Helper()
	var id string
	err := f.storage.DB.QueryRow(`INSERT INTO subscriptions
		(user_id, name, price, currency, next_billing_date, auto_renewal, is_free_trial, trial_end_date, status)
		VALUES ($1, $2, $3::numeric, 'USD', $4, $5, $6, $7, $8) RETURNING id`,
		userID, d.Name, d.Price, d.NextBillingDate, d.AutoRenewal, d.IsFreeTrial, d.TrialEndDate, d.Status).Scan(&id)
	require.NoError(t, err)
	return id
}

// TestVerification проверки состояния БД после операций.
type TestVerification struct {
	storage *Storage
}

// NewTestVerification создаёт новый объект для проверки результатов
func NewTestVerification(storage *Storage) *TestVerification {
	return &TestVerification{storage: storage}
}

// CountNotifications возвращает число уведомлений пользователя.
func (v *TestVerification) CountNotifications(t *testing.T, userID string) int {
	t.Helper()
	var count int
	err := v.storage.DB.QueryRow("SELECT COUNT(*) FROM notifications WHERE user_id = $1", userID).Scan(&count)
	require.NoError(t, err)
	return count
}

// NotificationStatus возвращает текущий статус уведомления.
func (v *TestVerification) NotificationStatus(t *testing.T, id string) string {
	t.Helper()
	var status string
	err := v.storage.DB.QueryRow("SELECT status FROM notifications WHERE id = $1", id).Scan(&status)
	require.NoError(t, err)
	return status
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func decimalOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	var storage *Storage
	for range 10 {
		storage, err = New(dsn)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	path, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, path))

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			_ = storage.DB.Close()
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return storage, cleanup
}
