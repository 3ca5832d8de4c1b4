// Package services отправка писем по уведомлениям из очереди notification.email.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/smtp"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

const sendTimeout = 30 * time.Second

// Ledger отмечает уведомления, по которым письмо отправлено.
type Ledger interface {
	MarkSent(ctx context.Context, id string) (bool, error)
}

// SenderService читает EmailMessage, отправляет письмо и переводит уведомление в sent.
type SenderService struct {
	transport smtp.TransportInterface
	ledger    Ledger
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.TransportInterface, ledger Ledger, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		ledger:    ledger,
		log:       log,
	}
}

// Handler возвращает обработчик сообщений очереди, привязанный к ctx.
func (s *SenderService) Handler(ctx context.Context) func([]byte) error {
	return func(body []byte) error {
		ctx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()
		return s.SendNotificationEmail(ctx, body)
	}
}

// SendNotificationEmail отправляет одно письмо. Некорректные сообщения
// отклоняются через rabbitmq.ErrDrop, ошибки SMTP возвращают сообщение в очередь.
func (s *SenderService) SendNotificationEmail(ctx context.Context, body []byte) error {
	const op = "services.SendNotificationEmail"

	var message models.EmailMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrDrop, err)
	}
	if message.Email == "" || message.NotificationID == "" {
		s.log.Error("email message without recipient or notification id",
			slog.String("notification_id", message.NotificationID))
		return fmt.Errorf("%s: %w: incomplete message", op, rabbitmq.ErrDrop)
	}
	log := s.log.With(slog.String("notification_id", message.NotificationID))

	client, err := s.transport.Connect(ctx)
	if err != nil {
		log.Error("failed to connect to SMTP server", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	from := s.transport.GetSMTPUser()
	msg := smtp.BuildMessage(from, message.Email, message.Subject, message.Body)
	if err := smtp.Send(client, from, message.Email, msg); err != nil {
		log.Error("failed to send email", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	updated, err := s.ledger.MarkSent(ctx, message.NotificationID)
	if err != nil {
		// Письмо уже ушло: повторная доставка дала бы дубль, поэтому сообщение подтверждается.
		log.Error("email sent but notification status not updated", sl.Err(err))
		return nil
	}
	if !updated {
		log.Debug("notification already left pending state")
	}
	log.Info("email sent successfully")
	return nil
}
