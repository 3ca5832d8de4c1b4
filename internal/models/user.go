package models

// DefaultReminderDays используются, если у пользователя нет сохранённых настроек.
var DefaultReminderDays = []int{7, 1}

// MaxReminderDays верхняя граница для смещения напоминания о продлении.
const MaxReminderDays = 365

// UserPreferences настройки уведомлений пользователя (1:1 с пользователем).
type UserPreferences struct {
	UserID                   string `json:"user_id"`
	RenewalReminderDays      []int  `json:"renewal_reminder_days"`
	EnableEmailNotifications bool   `json:"enable_email_notifications"`
	NotifyTrialEndings       bool   `json:"notify_trial_endings"`
}

// DefaultPreferences возвращает настройки, которые применяются при отсутствии записи в хранилище.
func DefaultPreferences(userID string) *UserPreferences {
	days := make([]int, len(DefaultReminderDays))
	copy(days, DefaultReminderDays)
	return &UserPreferences{
		UserID:              userID,
		RenewalReminderDays: days,
	}
}

// DeliveryMethod выбирает канал доставки по настройкам пользователя.
func (p *UserPreferences) DeliveryMethod() DeliveryMethod {
	if p != nil && p.EnableEmailNotifications {
		return DeliveryBoth
	}
	return DeliveryInApp
}
