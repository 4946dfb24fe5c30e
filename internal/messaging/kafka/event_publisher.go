package kafka

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

// EventPublisher отправляет OrderPlacedEvent напрямую в Kafka, ключ сообщения: номер заказа.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher создаёт publisher поверх Producer.
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// Publish синхронно отправляет событие в topic.
func (p *EventPublisher) Publish(ctx context.Context, topic string, event domain.OrderPlacedEvent) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("%w: kafka producer is not initialized", domain.ErrPublish)
	}
	if err := p.producer.PublishEvent(ctx, topic, event.OrderNumber, event); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPublish, err)
	}
	return nil
}

var _ domain.EventPublisher = (*EventPublisher)(nil)
