// Package notification обрабатывает события OrderPlaced из Kafka.
package notification

import (
	"context"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/shopflow/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/shopflow/internal/metrics"
	"github.com/vladislavdragonenkov/shopflow/internal/tracing"
)

// ConsumeSpan: имя span обработки уведомления.
const ConsumeSpan = "notificationConsume"

// Sender доставляет уведомление покупателю.
type Sender interface {
	Send(ctx context.Context, orderNumber string) error
}

// LogSender «отправляет» уведомление записью в лог.
type LogSender struct {
	Logger *log.Entry
}

// Send пишет в лог факт получения уведомления.
func (s LogSender) Send(ctx context.Context, orderNumber string) error {
	logger := s.Logger
	if logger == nil {
		logger = log.New().WithField("component", "notification")
	}
	logger.WithContext(ctx).WithField("order_number", orderNumber).Info("received notification for order")
	return nil
}

// Handler разбирает сообщения топика уведомлений.
type Handler struct {
	tracer  trace.Tracer
	sender  Sender
	metrics *metrics.NotificationMetrics
	logger  *log.Entry
}

// NewHandler создаёт обработчик. sender и m могут быть nil.
func NewHandler(tracer trace.Tracer, sender Sender, m *metrics.NotificationMetrics, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "notification")
	}
	if sender == nil {
		sender = LogSender{Logger: logger}
	}
	return &Handler{tracer: tracer, sender: sender, metrics: m, logger: logger}
}

// Handle подходит как kafka.MessageHandler. Ошибка разбора возвращается consumer'у,
// который после исчерпания попыток отправит сообщение в DLQ.
func (h *Handler) Handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	_, err := tracing.WithSpan(ctx, h.tracer, ConsumeSpan, func(ctx context.Context) (struct{}, error) {
		event, err := kafka.ParseOrderPlacedEvent(message)
		if err != nil {
			h.logger.WithContext(ctx).WithError(err).WithField("topic", message.Topic).Warn("malformed notification")
			if h.metrics != nil {
				h.metrics.RecordRejected()
			}
			return struct{}{}, err
		}

		tracing.Annotate(ctx, attribute.String("order.number", event.OrderNumber))
		if err := h.sender.Send(ctx, event.OrderNumber); err != nil {
			return struct{}{}, err
		}
		if h.metrics != nil {
			h.metrics.RecordHandled()
		}
		return struct{}{}, nil
	}, trace.WithSpanKind(trace.SpanKindConsumer))
	return err
}
