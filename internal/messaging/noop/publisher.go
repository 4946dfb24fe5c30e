// Package noop содержит publisher для запуска без брокера сообщений.
package noop

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

// Publisher только пишет событие в лог.
type Publisher struct {
	logger *log.Entry
}

// NewPublisher создаёт log-only publisher.
func NewPublisher(logger *log.Entry) *Publisher {
	if logger == nil {
		logger = log.New().WithField("component", "noop-publisher")
	}
	return &Publisher{logger: logger}
}

// Publish логирует событие и всегда завершается успешно.
func (p *Publisher) Publish(ctx context.Context, topic string, event domain.OrderPlacedEvent) error {
	p.logger.WithContext(ctx).WithFields(log.Fields{
		"topic":        topic,
		"order_number": event.OrderNumber,
	}).Info("order placed event not sent: no broker configured")
	return nil
}

// PublishOutbox логирует outbox-сообщение. Позволяет запускать outbox worker без брокера.
func (p *Publisher) PublishOutbox(ctx context.Context, msg domain.OutboxMessage) error {
	p.logger.WithContext(ctx).WithFields(log.Fields{
		"topic":      msg.Topic,
		"outbox_id":  msg.ID,
		"event_type": msg.EventType,
	}).Info("outbox message not sent: no broker configured")
	return nil
}

// OutboxPublisher адаптирует Publisher к domain.OutboxPublisher.
type OutboxPublisher struct{ *Publisher }

// Publish делегирует в PublishOutbox.
func (p OutboxPublisher) Publish(ctx context.Context, msg domain.OutboxMessage) error {
	return p.PublishOutbox(ctx, msg)
}

var (
	_ domain.EventPublisher  = (*Publisher)(nil)
	_ domain.OutboxPublisher = OutboxPublisher{}
)
