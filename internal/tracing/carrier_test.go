package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestKafkaHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	_, tracer := newRecorder()

	ctx, span := tracer.Start(context.Background(), "produce")
	defer span.End()

	out := &sarama.ProducerMessage{Topic: "notificationTopic"}
	InjectKafka(ctx, out)
	require.NotEmpty(t, NewProducerHeaders(out).Get("traceparent"))

	in := &sarama.ConsumerMessage{Topic: "notificationTopic"}
	for _, h := range out.Headers {
		h := h
		in.Headers = append(in.Headers, &h)
	}

	extracted := trace.SpanContextFromContext(ExtractKafka(context.Background(), in))
	assert.True(t, extracted.IsRemote())
	assert.Equal(t, span.SpanContext().TraceID(), extracted.TraceID())
	assert.Equal(t, span.SpanContext().SpanID(), extracted.SpanID())
}

func TestMapCarrierRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	_, tracer := newRecorder()

	assert.Nil(t, InjectMap(context.Background()))
	assert.Equal(t, context.Background(), ExtractMap(context.Background(), nil))

	ctx, span := tracer.Start(context.Background(), "place")
	defer span.End()

	headers := InjectMap(ctx)
	require.Contains(t, headers, "traceparent")

	extracted := trace.SpanContextFromContext(ExtractMap(context.Background(), headers))
	assert.True(t, extracted.IsRemote())
	assert.Equal(t, span.SpanContext().TraceID(), extracted.TraceID())
}

func TestProducerHeadersSetReplaces(t *testing.T) {
	msg := &sarama.ProducerMessage{}
	carrier := NewProducerHeaders(msg)

	carrier.Set("a", "1")
	carrier.Set("a", "2")
	carrier.Set("b", "3")

	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "2", carrier.Get("a"))
	assert.ElementsMatch(t, []string{"a", "b"}, carrier.Keys())
}

func TestLogHookAddsTraceFields(t *testing.T) {
	_, tracer := newRecorder()
	ctx, span := tracer.Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	logger := log.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&log.JSONFormatter{})
	logger.AddHook(LogHook{})

	logger.WithContext(ctx).Info("hello")
	logger.Info("no context")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), span.SpanContext().TraceID().String())
	assert.Contains(t, string(lines[0]), span.SpanContext().SpanID().String())
	assert.NotContains(t, string(lines[1]), "trace_id")
}
