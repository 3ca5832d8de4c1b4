package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

const notificationColumns = `id, user_id, subscription_id, type, title, message, priority,
			      scheduled_for, delivery_method, status, created_at, read_at`

// InsertNotificationIfAbsent атомарно добавляет уведомление, если для
// (user_id, subscription_id, type, scheduled_for) записи ещё нет.
// Возвращает false, если уведомление уже существовало.
func (s *Storage) InsertNotificationIfAbsent(ctx context.Context, n *models.Notification) (bool, error) {
	const op = "storage.InsertNotificationIfAbsent"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Status == "" {
		n.Status = models.StatusPending
	}

	query := `INSERT INTO notifications (id, user_id, subscription_id, type, title, message,
			      priority, scheduled_for, delivery_method, status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  ON CONFLICT (user_id, subscription_id, type, scheduled_for) DO NOTHING
			  RETURNING created_at`
	var subscriptionID sql.NullString
	if n.SubscriptionID != nil {
		subscriptionID = sql.NullString{String: *n.SubscriptionID, Valid: true}
	}
	err := s.DB.QueryRowContext(ctx, query, n.ID, n.UserID, subscriptionID, string(n.Type),
		n.Title, n.Message, string(n.Priority), n.ScheduledFor, string(n.DeliveryMethod),
		string(n.Status)).Scan(&n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// ListNotifications возвращает последние уведомления пользователя, новые первыми.
func (s *Storage) ListNotifications(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	const op = "storage.ListNotifications"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + notificationColumns + `
			  FROM notifications
			  WHERE user_id = $1
			  ORDER BY created_at DESC, id
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountUnread считает уведомления в статусах pending и sent.
func (s *Storage) CountUnread(ctx context.Context, userID string) (int, error) {
	const op = "storage.CountUnread"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var count int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications
			  WHERE user_id = $1 AND status IN ('pending', 'sent')`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// MarkRead переводит непрочитанное уведомление в статус read и проставляет read_at.
func (s *Storage) MarkRead(ctx context.Context, userID, id string) (*models.Notification, error) {
	return s.transition(ctx, "storage.MarkRead", userID, id,
		`UPDATE notifications SET status = 'read', read_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND status IN ('pending', 'sent')
		 RETURNING `+notificationColumns)
}

// Dismiss скрывает непрочитанное уведомление.
func (s *Storage) Dismiss(ctx context.Context, userID, id string) (*models.Notification, error) {
	return s.transition(ctx, "storage.Dismiss", userID, id,
		`UPDATE notifications SET status = 'dismissed'
		 WHERE id = $1 AND user_id = $2 AND status IN ('pending', 'sent')
		 RETURNING `+notificationColumns)
}

func (s *Storage) transition(ctx context.Context, op, userID, id, query string) (*models.Notification, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	n, err := scanNotification(s.DB.QueryRowContext(ctx, query, id, userID))
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var exists bool
	err = s.DB.QueryRowContext(ctx, `SELECT EXISTS (
			  SELECT 1 FROM notifications WHERE id = $1 AND user_id = $2)`, id, userID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil, fmt.Errorf("%s: %w", op, ErrStatusConflict)
}

// MarkAllRead помечает прочитанными все непрочитанные уведомления пользователя.
func (s *Storage) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	const op = "storage.MarkAllRead"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE notifications SET status = 'read', read_at = NOW()
			  WHERE user_id = $1 AND status IN ('pending', 'sent')`, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return affected, nil
}

// MarkSent отмечает, что письмо по уведомлению отправлено.
// Меняется только pending; уже прочитанные или скрытые уведомления не трогаются.
func (s *Storage) MarkSent(ctx context.Context, id string) (bool, error) {
	const op = "storage.MarkSent"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE notifications SET status = 'sent'
			  WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	var subscriptionID sql.NullString
	var readAt sql.NullTime
	var typ, priority, delivery, status string
	if err := row.Scan(&n.ID, &n.UserID, &subscriptionID, &typ, &n.Title, &n.Message, &priority,
		&n.ScheduledFor, &delivery, &status, &n.CreatedAt, &readAt); err != nil {
		return nil, err
	}
	if subscriptionID.Valid {
		n.SubscriptionID = &subscriptionID.String
	}
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	n.Type = models.NotificationType(typ)
	n.Priority = models.Priority(priority)
	n.DeliveryMethod = models.DeliveryMethod(delivery)
	n.Status = models.NotificationStatus(status)
	return &n, nil
}
