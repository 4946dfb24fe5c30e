package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
	"github.com/vladislavdragonenkov/shopflow/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/shopflow/internal/storage/memory"
)

func TestEventPublisher_EnqueuesOrderPlaced(t *testing.T) {
	repo := memory.NewOutboxRepository()
	publisher := NewEventPublisher(repo)

	err := publisher.Publish(context.Background(), "notificationTopic", domain.OrderPlacedEvent{OrderNumber: "order-1"})
	require.NoError(t, err)

	pending := repo.AllPending()
	require.Len(t, pending, 1)
	msg := pending[0]
	assert.Equal(t, "notificationTopic", msg.Topic)
	assert.Equal(t, "order-1", msg.AggregateID)
	assert.Equal(t, domain.EventTypeOrderPlaced, msg.EventType)
	assert.Nil(t, msg.Headers)

	var event domain.OrderPlacedEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	assert.Equal(t, "order-1", event.OrderNumber)
}

func TestEventPublisher_EnqueueError(t *testing.T) {
	publisher := NewEventPublisher(failingOutbox{&fakeOutbox{}})

	err := publisher.Publish(context.Background(), "t", domain.OrderPlacedEvent{OrderNumber: "o"})
	assert.ErrorIs(t, err, domain.ErrPublish)
}

func TestOrderPlacedMessages_CarriesTopicAndTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tracer := sdktrace.NewTracerProvider().Tracer("test")
	ctx, span := tracer.Start(context.Background(), "placeOrder")
	defer span.End()

	msg, err := OrderPlacedMessages("")(ctx, domain.Order{OrderNumber: "order-7"})
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultNotificationTopic, msg.Topic)
	assert.Equal(t, "order-7", msg.AggregateID)
	assert.JSONEq(t, `{"orderNumber":"order-7"}`, string(msg.Payload))
	require.Contains(t, msg.Headers, "traceparent")
	assert.Contains(t, msg.Headers["traceparent"], span.SpanContext().TraceID().String())
}

func TestCommittedPublisher_WritesNothing(t *testing.T) {
	repo := memory.NewOutboxRepository()
	var publisher domain.EventPublisher = CommittedPublisher{}

	require.NoError(t, publisher.Publish(context.Background(), "notificationTopic", domain.OrderPlacedEvent{OrderNumber: "order-1"}))
	assert.Empty(t, repo.AllPending())
}

func TestEventPublisher_WorkerRelaysToBroker(t *testing.T) {
	repo := memory.NewOutboxRepository()
	broker := &fakeRelay{}

	require.NoError(t, NewEventPublisher(repo).Publish(context.Background(), "notificationTopic", domain.OrderPlacedEvent{OrderNumber: "order-9"}))
	NewWorker(repo, broker, WithRetryBaseDelay(0)).ProcessOnce(context.Background())

	assert.Equal(t, 1, broker.calls())
	assert.Equal(t, "notificationTopic", broker.last().Topic)
	assert.Empty(t, repo.AllPending())
}

func TestWorker_RelayedKafkaRecordContinuesPlacementTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	repo := memory.NewOutboxRepository()
	placeCtx, placeSpan := tracer.Start(context.Background(), "placeOrder")
	require.NoError(t, NewEventPublisher(repo).Publish(placeCtx, domain.DefaultNotificationTopic, domain.OrderPlacedEvent{OrderNumber: "order-42"}))
	placeSpan.End()

	var relayed *sarama.ProducerMessage
	syncProducer := mocks.NewSyncProducer(t, nil)
	syncProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		relayed = msg
		return nil
	})
	producer := kafka.NewProducerFromSync(syncProducer, nil)
	defer func() { assert.NoError(t, producer.Close()) }()

	// Воркер работает на фоновом ctx: trace восстанавливается только из сохранённых заголовков.
	relayCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	worker := NewWorker(repo, kafka.NewOutboxPublisher(producer, ""), WithTracer(tracer), WithRetryBaseDelay(0))
	require.Equal(t, 1, worker.ProcessOnce(relayCtx))

	require.NotNil(t, relayed)
	carrier := propagation.MapCarrier{}
	for _, h := range relayed.Headers {
		carrier[string(h.Key)] = string(h.Value)
	}
	remote := trace.SpanContextFromContext(propagation.TraceContext{}.Extract(context.Background(), carrier))
	require.True(t, remote.IsValid())
	assert.Equal(t, placeSpan.SpanContext().TraceID(), remote.TraceID())

	var relaySpans []sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		if span.Name() == RelaySpan {
			relaySpans = append(relaySpans, span)
		}
	}
	require.Len(t, relaySpans, 1)
	relaySpan := relaySpans[0]
	assert.Equal(t, trace.SpanKindProducer, relaySpan.SpanKind())
	assert.Equal(t, placeSpan.SpanContext().SpanID(), relaySpan.Parent().SpanID())
	assert.Equal(t, relaySpan.SpanContext().SpanID(), remote.SpanID())
	assert.Empty(t, repo.AllPending())
}

type failingOutbox struct {
	*fakeOutbox
}

func (failingOutbox) Enqueue(context.Context, domain.OutboxMessage) (domain.OutboxMessage, error) {
	return domain.OutboxMessage{}, errors.New("db down")
}
