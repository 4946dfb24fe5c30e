package kafka

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

// OutboxTopicPublisher доставляет outbox-сообщения в Kafka как есть, без обёртки.
// Топик берётся из сообщения; если он пуст, используется fallbackTopic.
type OutboxTopicPublisher struct {
	producer      *Producer
	fallbackTopic string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, fallbackTopic string) domain.OutboxPublisher {
	if fallbackTopic == "" {
		fallbackTopic = domain.DefaultNotificationTopic
	}
	return &OutboxTopicPublisher{
		producer:      producer,
		fallbackTopic: fallbackTopic,
	}
}

// Publish отправляет payload сообщения; ключ: идентификатор агрегата.
func (p *OutboxTopicPublisher) Publish(ctx context.Context, msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := msg.AggregateID
	if key == "" {
		key = msg.ID
	}
	topic := msg.Topic
	if topic == "" {
		topic = p.fallbackTopic
	}

	headers := map[string]string{
		HeaderOutboxID:  msg.ID,
		HeaderEventType: msg.EventType,
	}
	return p.producer.PublishRaw(ctx, topic, key, msg.Payload, headers)
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
