package domain

const (
	// DefaultNotificationTopic: топик, в который публикуется OrderPlacedEvent.
	DefaultNotificationTopic = "notificationTopic"
	// EventTypeOrderPlaced: тип события для outbox и заголовков сообщения.
	EventTypeOrderPlaced = "OrderPlaced"
	// AggregateTypeOrder: тип агрегата для outbox.
	AggregateTypeOrder = "order"
)

// OrderPlacedEvent сообщает, что заказ принят и сохранён.
type OrderPlacedEvent struct {
	OrderNumber string `json:"orderNumber"`
}
