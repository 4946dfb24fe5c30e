package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
	"github.com/vladislavdragonenkov/shopflow/internal/messaging/kafka"
)

func noEnv(string) (string, bool) { return "", false }

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestExtractReplayMessage_ConsumerDLQPayload(t *testing.T) {
	raw := mustJSON(t, map[string]any{
		"original_topic": "notificationTopic",
		"original_key":   "order-1",
		"original_value": `{"orderNumber":"order-1"}`,
		"error_message":  "smtp down",
	})

	got, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: raw}, "fallback")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, replayMessage{topic: "notificationTopic", key: "order-1", value: []byte(`{"orderNumber":"order-1"}`)}, got)
}

func TestExtractReplayMessage_OutboxDLQPayload(t *testing.T) {
	raw := mustJSON(t, map[string]any{
		"outbox_id":     "outbox-1",
		"aggregate_id":  "order-1",
		"event_type":    domain.EventTypeOrderPlaced,
		"topic":         "",
		"payload":       map[string]any{"orderNumber": "order-1"},
		"publish_error": "broker unavailable",
	})

	got, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: raw}, "notificationTopic")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "notificationTopic", got.topic)
	assert.Equal(t, "order-1", got.key)
	assert.JSONEq(t, `{"orderNumber":"order-1"}`, string(got.value))
}

func TestExtractReplayMessage_OutboxWithoutPayload(t *testing.T) {
	raw := mustJSON(t, map[string]any{"outbox_id": "outbox-1", "aggregate_id": "order-1"})

	_, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: raw}, "notificationTopic")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestExtractReplayMessage_UnknownPayload(t *testing.T) {
	for _, value := range []string{`{"foo":"bar"}`, `not json`} {
		_, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: []byte(value)}, "notificationTopic")
		require.NoError(t, err, value)
		assert.False(t, ok, value)
	}
}

func TestReadConfig(t *testing.T) {
	cfg, err := readConfig([]string{"-brokers", " kafka-1:9092, ,kafka-2:9092 ", "-limit", "5", "-execute"}, noEnv)
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.brokers)
	assert.Equal(t, kafka.TopicDeadLetterQueue, cfg.sourceTopic)
	assert.Equal(t, domain.DefaultNotificationTopic, cfg.targetTopic)
	assert.Equal(t, 5, cfg.limit)
	assert.True(t, cfg.execute)

	cfg, err = readConfig(nil, func(key string) (string, bool) {
		return "kafka:29092", key == envKafkaBrokers
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka:29092"}, cfg.brokers)
}

func TestReadConfig_ValidationErrors(t *testing.T) {
	cases := map[string][]string{
		"no brokers":    nil,
		"empty source":  {"-brokers", "k:9092", "-source-topic", " "},
		"empty target":  {"-brokers", "k:9092", "-target-topic", ""},
		"zero limit":    {"-brokers", "k:9092", "-limit", "0"},
		"zero idle":     {"-brokers", "k:9092", "-idle-timeout", "0s"},
		"unknown flags": {"-replay-all"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := readConfig(args, noEnv)
			assert.Error(t, err)
		})
	}
}

type fakeOffsets struct {
	partitions []int32
	oldest     int64
	newest     int64
	err        error
}

func (f *fakeOffsets) GetOffset(_ string, _ int32, at int64) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if at == sarama.OffsetOldest {
		return f.oldest, nil
	}
	return f.newest, nil
}

func (f *fakeOffsets) Partitions(string) ([]int32, error) { return f.partitions, f.err }
func (f *fakeOffsets) Close() error                       { return nil }

type fakePartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
}

func (f *fakePartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return f.messages }
func (f *fakePartitionConsumer) Errors() <-chan *sarama.ConsumerError     { return f.errors }
func (f *fakePartitionConsumer) Close() error                             { return nil }

type fakeSource struct {
	values  [][]byte
	offsets []int64
}

func (f *fakeSource) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	f.offsets = append(f.offsets, offset)
	pc := &fakePartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage, len(f.values)),
		errors:   make(chan *sarama.ConsumerError),
	}
	for i, v := range f.values {
		pc.messages <- &sarama.ConsumerMessage{Topic: topic, Partition: partition, Offset: offset + int64(i), Value: v}
	}
	return pc, nil
}

func (f *fakeSource) Close() error { return nil }

type published struct {
	topic, key string
	value      []byte
	headers    map[string]string
}

type fakeProducer struct {
	sent []published
	err  error
}

func (f *fakeProducer) PublishRaw(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{topic: topic, key: key, value: payload, headers: headers})
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func replayConfig(execute bool) config {
	return config{
		brokers:     []string{"k:9092"},
		sourceTopic: kafka.TopicDeadLetterQueue,
		targetTopic: domain.DefaultNotificationTopic,
		limit:       10,
		execute:     execute,
		idleTimeout: 50 * time.Millisecond,
	}
}

func dlqValues(t *testing.T) [][]byte {
	return [][]byte{
		mustJSON(t, map[string]any{"original_topic": "notificationTopic", "original_key": "order-1", "original_value": `{"orderNumber":"order-1"}`}),
		[]byte(`{"foo":"bar"}`),
		mustJSON(t, map[string]any{"outbox_id": "o-2", "aggregate_id": "order-2", "payload": map[string]any{"orderNumber": "order-2"}}),
	}
}

func TestRunReplay_DryRun(t *testing.T) {
	source := &fakeSource{values: dlqValues(t)}
	offsets := &fakeOffsets{partitions: []int32{0}, oldest: 0, newest: 3}

	stats, err := runReplay(context.Background(), replayConfig(false), offsets, source, nil)
	require.NoError(t, err)
	assert.Equal(t, replayStats{processed: 3, replayed: 2, skipped: 1}, stats)
}

func TestRunReplay_Execute(t *testing.T) {
	source := &fakeSource{values: dlqValues(t)}
	offsets := &fakeOffsets{partitions: []int32{0}, oldest: 0, newest: 3}
	producer := &fakeProducer{}

	stats, err := runReplay(context.Background(), replayConfig(true), offsets, source, producer)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.replayed)
	require.Len(t, producer.sent, 2)
	assert.Equal(t, "order-1", producer.sent[0].key)
	assert.Equal(t, "order-2", producer.sent[1].key)
	assert.Equal(t, domain.DefaultNotificationTopic, producer.sent[1].topic)
	assert.Equal(t, kafka.TopicDeadLetterQueue, producer.sent[0].headers[headerReplayedFrom])
}

func TestRunReplay_FromNewestRespectsLimit(t *testing.T) {
	source := &fakeSource{values: dlqValues(t)[:1]}
	offsets := &fakeOffsets{partitions: []int32{0}, oldest: 0, newest: 100}
	cfg := replayConfig(false)
	cfg.limit = 1
	cfg.fromNewest = true

	stats, err := runReplay(context.Background(), cfg, offsets, source, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{99}, source.offsets)
	assert.Equal(t, 1, stats.processed)
}

func TestRunReplay_Errors(t *testing.T) {
	_, err := runReplay(context.Background(), replayConfig(true), &fakeOffsets{}, &fakeSource{}, nil)
	assert.EqualError(t, err, "producer is required in execute mode")

	_, err = runReplay(context.Background(), replayConfig(false), &fakeOffsets{err: errors.New("metadata")}, &fakeSource{}, nil)
	assert.ErrorContains(t, err, "get partitions")

	source := &fakeSource{values: dlqValues(t)}
	producer := &fakeProducer{err: errors.New("broker down")}
	_, err = runReplay(context.Background(), replayConfig(true), &fakeOffsets{partitions: []int32{0}, newest: 3}, source, producer)
	assert.ErrorContains(t, err, "publish replay message")
}

func TestProcessPartition_IdleTimeoutAndContext(t *testing.T) {
	source := &fakeSource{}
	offsets := &fakeOffsets{oldest: 0, newest: 5}

	stats, err := processPartition(context.Background(), source, offsets, nil, replayConfig(false), 0, 10)
	require.NoError(t, err)
	assert.Zero(t, stats.processed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := replayConfig(false)
	cfg.idleTimeout = time.Minute
	_, err = processPartition(ctx, source, offsets, nil, cfg, 0, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_UsesDependencies(t *testing.T) {
	original := newReplayDependencies
	t.Cleanup(func() { newReplayDependencies = original })

	producer := &fakeProducer{}
	newReplayDependencies = func(config) (offsetClient, partitionConsumerSource, replayProducer, error) {
		return &fakeOffsets{partitions: []int32{0}, newest: 3}, &fakeSource{values: dlqValues(t)}, producer, nil
	}
	require.NoError(t, run(context.Background(), replayConfig(true)))
	assert.Len(t, producer.sent, 2)

	newReplayDependencies = func(config) (offsetClient, partitionConsumerSource, replayProducer, error) {
		return nil, nil, nil, errors.New("dial")
	}
	assert.EqualError(t, run(context.Background(), replayConfig(false)), "dial")
}
