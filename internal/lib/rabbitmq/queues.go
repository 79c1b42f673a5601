// Package rabbitmq содержит подключение к брокеру и публикацию/потребление
// операционных алертов биллинга.
package rabbitmq

// BillingExchange обменник, в который сервис биллинга публикует алерты.
const BillingExchange = "billing"

// AlertRoutingKey ключ маршрутизации для алертов о неприменённых оплатах.
const AlertRoutingKey = "alert"

// QueueConfig описывает очередь и ключ, с которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetBillingQueues возвращает очереди, которые объявляются при старте.
func GetBillingQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "billing.alerts", RoutingKey: AlertRoutingKey},
	}
}
