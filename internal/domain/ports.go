package domain

import (
	"context"
	"time"
)

// AvailabilityClient запрашивает у склада наличие товаров по списку SKU.
type AvailabilityClient interface {
	// Check выполняет одну синхронную проверку; повторов не делает.
	Check(ctx context.Context, skus []string) (AvailabilityResult, error)
}

// OrderStore описывает требования к хранилищу заказов.
type OrderStore interface {
	// Save атомарно сохраняет заказ вместе со всеми позициями.
	Save(ctx context.Context, order Order) error
	// Get возвращает заказ по номеру или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, orderNumber string) (Order, error)
}

// EventPublisher отправляет событие о размещённом заказе в топик уведомлений.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event OrderPlacedEvent) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, msg OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// TimelineRepository хранит переходы состояний размещения заказа.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, orderNumber string) ([]TimelineEvent, error)
}

// StockRepository хранит складские остатки по SKU.
type StockRepository interface {
	// Quantities возвращает остатки только по известным SKU; неизвестные в карту не попадают.
	Quantities(ctx context.Context, skus []string) (map[string]int64, error)
	SetQuantity(ctx context.Context, sku string, quantity int64) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	// Topic: куда relay должен доставить сообщение.
	Topic   string
	Payload []byte
	// Headers: trace context размещения (W3C traceparent/tracestate). Relay продолжает этот trace.
	Headers map[string]string
}

// OutboxMessageBuilder строит outbox-сообщение для сохраняемого заказа.
// Хранилище с транзакциями вызывает его внутри транзакции Save.
type OutboxMessageBuilder func(ctx context.Context, order Order) (OutboxMessage, error)

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
