package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/shopflow/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/shopflow/internal/metrics"
)

type failingSender struct{ err error }

func (s failingSender) Send(context.Context, string) error { return s.err }

func newHandler(t *testing.T, sender Sender) (*Handler, *tracetest.SpanRecorder, *test.Hook, prometheus.Gatherer) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	logger, hook := test.NewNullLogger()
	reg := prometheus.NewRegistry()
	h := NewHandler(provider.Tracer("test"), sender, metrics.NewNotificationMetricsWithRegisterer(reg), log.NewEntry(logger))
	return h, recorder, hook, reg
}

func TestHandler_Handle(t *testing.T) {
	h, recorder, hook, reg := newHandler(t, nil)

	err := h.Handle(context.Background(), &sarama.ConsumerMessage{
		Topic: "notificationTopic",
		Value: []byte(`{"orderNumber":"order-42"}`),
	})
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "received notification for order", entry.Message)
	assert.Equal(t, "order-42", entry.Data["order_number"])

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, ConsumeSpan, spans[0].Name())
	assert.Equal(t, trace.SpanKindConsumer, spans[0].SpanKind())

	count, err := testutil.GatherAndCount(reg, "shopflow_notifications_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHandler_MalformedMessage(t *testing.T) {
	h, recorder, _, reg := newHandler(t, nil)

	err := h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(`not-json`)})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	expected := `
# HELP shopflow_notifications_total Total number of OrderPlaced notifications grouped by result
# TYPE shopflow_notifications_total counter
shopflow_notifications_total{result="rejected"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "shopflow_notifications_total"))
}

func TestHandler_SenderError(t *testing.T) {
	boom := errors.New("smtp down")
	h, _, _, _ := newHandler(t, failingSender{err: boom})

	err := h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"orderNumber":"o"}`)})
	assert.ErrorIs(t, err, boom)
}

func TestHandler_ContinuesProducerTrace(t *testing.T) {
	h, recorder, _, _ := newHandler(t, nil)

	parentProvider := sdktrace.NewTracerProvider()
	ctx, parent := parentProvider.Tracer("producer").Start(context.Background(), "publish")
	parent.End()

	var handler kafka.MessageHandler = h.Handle
	require.NoError(t, handler(ctx, &sarama.ConsumerMessage{Value: []byte(`{"orderNumber":"o"}`)}))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, parent.SpanContext().TraceID(), spans[0].SpanContext().TraceID())
}
