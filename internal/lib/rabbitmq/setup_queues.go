package rabbitmq

// ExchangeName direct-exchange, через который идут все уведомления.
const ExchangeName = "notifications"

const (
	// EmailQueue очередь писем для сервиса отправки.
	EmailQueue = "notification.email"
	// EmailRoutingKey ключ маршрутизации писем.
	EmailRoutingKey = "email"
)

const prefetch = 10

// QueueConfig очередь и ключ, которым она привязана к ExchangeName.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди, которые объявляют и генератор, и отправитель.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: EmailQueue, RoutingKey: EmailRoutingKey},
	}
}
