package tracing

import (
	"context"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// ProducerHeaders переносит trace context в заголовки исходящего Kafka-сообщения.
type ProducerHeaders struct {
	msg *sarama.ProducerMessage
}

// NewProducerHeaders оборачивает сообщение для пропагатора.
func NewProducerHeaders(msg *sarama.ProducerMessage) ProducerHeaders {
	return ProducerHeaders{msg: msg}
}

// Get возвращает значение заголовка.
func (c ProducerHeaders) Get(key string) string {
	for _, h := range c.msg.Headers {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

// Set заменяет или добавляет заголовок.
func (c ProducerHeaders) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if string(h.Key) == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
}

// Keys возвращает имена всех заголовков.
func (c ProducerHeaders) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, string(h.Key))
	}
	return keys
}

// InjectKafka записывает trace context из ctx в заголовки сообщения.
func InjectKafka(ctx context.Context, msg *sarama.ProducerMessage) {
	otel.GetTextMapPropagator().Inject(ctx, NewProducerHeaders(msg))
}

// ExtractKafka восстанавливает trace context продьюсера из заголовков полученного сообщения.
func ExtractKafka(ctx context.Context, msg *sarama.ConsumerMessage) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range msg.Headers {
		if h == nil {
			continue
		}
		carrier[string(h.Key)] = string(h.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// InjectMap сохраняет trace context из ctx в карту, пригодную для записи в outbox.
// Возвращает nil, если в ctx нет активного span.
func InjectMap(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if len(carrier) == 0 {
		return nil
	}
	return carrier
}

// ExtractMap восстанавливает trace context, сохранённый InjectMap.
func ExtractMap(ctx context.Context, headers map[string]string) context.Context {
	if len(headers) == 0 {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(headers))
}
