package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
	"github.com/vladislavdragonenkov/shopflow/internal/tracing"
)

// NewOrderPlacedMessage строит outbox-сообщение OrderPlaced для topic.
// Trace context размещения из ctx сохраняется в Headers, чтобы relay продолжил тот же trace.
func NewOrderPlacedMessage(ctx context.Context, topic string, event domain.OrderPlacedEvent) (domain.OutboxMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("marshal order placed event: %w", err)
	}
	return domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   event.OrderNumber,
		EventType:     domain.EventTypeOrderPlaced,
		Topic:         topic,
		Payload:       payload,
		Headers:       tracing.InjectMap(ctx),
	}, nil
}

// OrderPlacedMessages возвращает построитель для хранилищ, которые пишут outbox в транзакции заказа.
func OrderPlacedMessages(topic string) domain.OutboxMessageBuilder {
	if topic == "" {
		topic = domain.DefaultNotificationTopic
	}
	return func(ctx context.Context, order domain.Order) (domain.OutboxMessage, error) {
		return NewOrderPlacedMessage(ctx, topic, domain.OrderPlacedEvent{OrderNumber: order.OrderNumber})
	}
}

// EventPublisher складывает OrderPlacedEvent в outbox после сохранения заказа; доставку выполняет Worker.
type EventPublisher struct {
	repo domain.OutboxRepository
}

// NewEventPublisher создаёт publisher поверх outbox-репозитория.
func NewEventPublisher(repo domain.OutboxRepository) *EventPublisher {
	return &EventPublisher{repo: repo}
}

// Publish сериализует событие и ставит его в очередь outbox с указанием топика.
func (p *EventPublisher) Publish(ctx context.Context, topic string, event domain.OrderPlacedEvent) error {
	msg, err := NewOrderPlacedMessage(ctx, topic, event)
	if err != nil {
		return err
	}
	if _, err := p.repo.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("%w: enqueue: %w", domain.ErrPublish, err)
	}
	return nil
}

// CommittedPublisher используется с хранилищем, настроенным через OrderPlacedMessages:
// к моменту Publish сообщение уже зафиксировано в outbox вместе с заказом.
type CommittedPublisher struct{}

// Publish ничего не пишет.
func (CommittedPublisher) Publish(context.Context, string, domain.OrderPlacedEvent) error {
	return nil
}

var (
	_ domain.EventPublisher = (*EventPublisher)(nil)
	_ domain.EventPublisher = CommittedPublisher{}
)
