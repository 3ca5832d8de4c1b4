// Package services операции пользователя над своими уведомлениями.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	"github.com/magabrotheeeer/subscription-tracker/internal/storage/repository"
)

// Ограничения размера выдачи списка уведомлений.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

var (
	// ErrNotFound уведомление не найдено или принадлежит другому пользователю.
	ErrNotFound = errors.New("notification not found")
	// ErrInvalidTransition из read и dismissed переходов нет.
	ErrInvalidTransition = errors.New("notification is already read or dismissed")
	// ErrInvalidLimit limit вне допустимого диапазона.
	ErrInvalidLimit = errors.New("limit must be between 1 and 100")
)

// Repository хранилище уведомлений.
type Repository interface {
	ListNotifications(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Dismiss(ctx context.Context, userID, id string) (*models.Notification, error)
}

// NotificationService сервис уведомлений пользователя.
type NotificationService struct {
	repo Repository
	log  *slog.Logger
}

// NewNotificationService создает новый экземпляр NotificationService.
func NewNotificationService(repo Repository, log *slog.Logger) *NotificationService {
	return &NotificationService{
		repo: repo,
		log:  log,
	}
}

// List возвращает последние уведомления пользователя. limit == 0 означает DefaultLimit.
func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	const op = "services.List"
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidLimit)
	}
	res, err := s.repo.ListNotifications(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// UnreadCount число уведомлений в статусах pending и sent.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	const op = "services.UnreadCount"
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// MarkRead помечает уведомление прочитанным.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (*models.Notification, error) {
	const op = "services.MarkRead"
	n, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	s.log.Debug("notification marked as read", slog.String("notification_id", id), slog.String("user_id", userID))
	return n, nil
}

// MarkAllRead помечает прочитанными все непрочитанные уведомления и возвращает их число.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	const op = "services.MarkAllRead"
	updated, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("notifications marked as read", slog.String("user_id", userID), slog.Int64("count", updated))
	return updated, nil
}

// Dismiss скрывает уведомление.
func (s *NotificationService) Dismiss(ctx context.Context, userID, id string) (*models.Notification, error) {
	const op = "services.Dismiss"
	n, err := s.repo.Dismiss(ctx, userID, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrStatusConflict) {
			s.log.Error("failed to dismiss notification", slog.String("notification_id", id), sl.Err(err))
		}
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return n, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrStatusConflict):
		return ErrInvalidTransition
	default:
		return err
	}
}
