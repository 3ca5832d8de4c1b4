package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

// GetPreferences возвращает настройки уведомлений пользователя.
// Если строки нет, возвращается ErrPreferencesNotFound.
func (s *Storage) GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	const op = "storage.GetPreferences"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_id, COALESCE(array_to_json(renewal_reminder_days)::text, '[]'),
			      enable_email_notifications, notify_trial_endings
			  FROM user_preferences
			  WHERE user_id = $1`
	var p models.UserPreferences
	var days string
	err := s.DB.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &days,
		&p.EnableEmailNotifications, &p.NotifyTrialEndings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrPreferencesNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal([]byte(days), &p.RenewalReminderDays); err != nil {
		return nil, fmt.Errorf("%s: malformed renewal_reminder_days: %w", op, err)
	}
	return &p, nil
}
