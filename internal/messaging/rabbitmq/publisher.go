package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

// Channel: часть *amqp.Channel, нужная для публикации.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// tableCarrier переносит trace context в заголовки AMQP.
type tableCarrier amqp.Table

func (c tableCarrier) Get(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

func (c tableCarrier) Set(key, value string) {
	c[key] = value
}

func (c tableCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// Publisher публикует события в topic exchange; routing key: имя топика.
type Publisher struct {
	ch       Channel
	exchange string
}

// NewPublisher создаёт publisher поверх канала.
func NewPublisher(ch Channel, exchange string) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Publisher{ch: ch, exchange: exchange}
}

// Publish отправляет OrderPlacedEvent с routing key = topic.
func (p *Publisher) Publish(ctx context.Context, topic string, event domain.OrderPlacedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal order placed event: %w", err)
	}
	if err := p.send(ctx, topic, event.OrderNumber, domain.EventTypeOrderPlaced, body); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPublish, err)
	}
	return nil
}

func (p *Publisher) send(ctx context.Context, routingKey, messageID, eventType string, body []byte) error {
	if p == nil || p.ch == nil {
		return fmt.Errorf("rabbitmq channel is not initialized")
	}

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, tableCarrier(headers))

	return p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Type:         eventType,
			Timestamp:    time.Now().UTC(),
			Headers:      headers,
			Body:         body,
		},
	)
}

// OutboxPublisher доставляет outbox-сообщения в RabbitMQ как есть.
type OutboxPublisher struct {
	publisher     *Publisher
	fallbackTopic string
}

// NewOutboxPublisher создаёт relay для transactional outbox.
func NewOutboxPublisher(ch Channel, exchange, fallbackTopic string) *OutboxPublisher {
	if fallbackTopic == "" {
		fallbackTopic = domain.DefaultNotificationTopic
	}
	return &OutboxPublisher{publisher: NewPublisher(ch, exchange), fallbackTopic: fallbackTopic}
}

// Publish отправляет payload; routing key: топик сообщения.
func (p *OutboxPublisher) Publish(ctx context.Context, msg domain.OutboxMessage) error {
	topic := msg.Topic
	if topic == "" {
		topic = p.fallbackTopic
	}
	return p.publisher.send(ctx, topic, msg.ID, msg.EventType, msg.Payload)
}

var (
	_ domain.EventPublisher  = (*Publisher)(nil)
	_ domain.OutboxPublisher = (*OutboxPublisher)(nil)
	_ Channel                = (*amqp.Channel)(nil)
)
