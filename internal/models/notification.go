package models

import "time"

// NotificationType тип уведомления.
type NotificationType string

const (
	NotificationRenewalReminder NotificationType = "renewal_reminder"
	NotificationTrialEnding     NotificationType = "trial_ending"
	NotificationOther           NotificationType = "other"
)

// Priority приоритет уведомления.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// DeliveryMethod канал доставки уведомления.
type DeliveryMethod string

const (
	DeliveryInApp DeliveryMethod = "in_app"
	DeliveryEmail DeliveryMethod = "email"
	DeliveryBoth  DeliveryMethod = "both"
)

// SendsEmail сообщает, нужно ли отправлять письмо для этого канала.
func (d DeliveryMethod) SendsEmail() bool {
	return d == DeliveryEmail || d == DeliveryBoth
}

// NotificationStatus статус жизненного цикла уведомления.
type NotificationStatus string

const (
	StatusPending   NotificationStatus = "pending"
	StatusSent      NotificationStatus = "sent"
	StatusRead      NotificationStatus = "read"
	StatusDismissed NotificationStatus = "dismissed"
)

// Unread pending и sent считаются непрочитанными.
func (s NotificationStatus) Unread() bool {
	return s == StatusPending || s == StatusSent
}

// Notification запись в журнале уведомлений.
type Notification struct {
	ID             string             `json:"id"`
	UserID         string             `json:"user_id"`
	SubscriptionID *string            `json:"subscription_id,omitempty"`
	Type           NotificationType   `json:"type"`
	Title          string             `json:"title"`
	Message        string             `json:"message"`
	Priority       Priority           `json:"priority"`
	ScheduledFor   time.Time          `json:"scheduled_for"`
	DeliveryMethod DeliveryMethod     `json:"delivery_method"`
	Status         NotificationStatus `json:"status"`
	CreatedAt      time.Time          `json:"created_at"`
	ReadAt         *time.Time         `json:"read_at,omitempty"`
}

// EmailMessage сообщение в очередь notification.email для отправки письма.
type EmailMessage struct {
	NotificationID string `json:"notification_id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
}
