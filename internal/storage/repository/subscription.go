package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

const subscriptionColumns = `s.id, s.user_id, s.name, s.price, s.currency, s.billing_cycle,
			      s.next_billing_date, s.auto_renewal, s.is_free_trial, s.trial_end_date,
			      s.status, u.email, u.username`

// ListRenewing возвращает активные автопродлеваемые подписки,
// у которых next_billing_date попадает в [from, to). Результат упорядочен по владельцу.
func (s *Storage) ListRenewing(ctx context.Context, from, to time.Time) ([]*models.Subscription, error) {
	const op = "storage.ListRenewing"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions s
			  JOIN users u ON u.id = s.user_id
			  WHERE s.status = 'active'
			    AND s.auto_renewal = true
			    AND s.next_billing_date >= $1
			    AND s.next_billing_date < $2
			  ORDER BY s.user_id, s.next_billing_date, s.id`
	return s.querySubscriptions(ctx, op, query, from, to)
}

// ListTrialsEnding возвращает подписки в пробном периоде, который заканчивается в [from, to).
func (s *Storage) ListTrialsEnding(ctx context.Context, from, to time.Time) ([]*models.Subscription, error) {
	const op = "storage.ListTrialsEnding"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions s
			  JOIN users u ON u.id = s.user_id
			  WHERE s.is_free_trial = true
			    AND s.status = 'trial'
			    AND s.trial_end_date >= $1
			    AND s.trial_end_date < $2
			  ORDER BY s.user_id, s.id`
	return s.querySubscriptions(ctx, op, query, from, to)
}

func (s *Storage) querySubscriptions(ctx context.Context, op, query string, args ...any) ([]*models.Subscription, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		var item models.Subscription
		var trialEnd sql.NullTime
		var status string
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.Price, &item.Currency,
			&item.BillingCycle, &item.NextBillingDate, &item.AutoRenewal, &item.IsFreeTrial,
			&trialEnd, &status, &item.UserEmail, &item.Username); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if trialEnd.Valid {
			item.TrialEndDate = &trialEnd.Time
		}
		item.Status = models.SubscriptionStatus(status)
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
