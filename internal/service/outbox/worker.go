// Package outbox доставляет события OrderPlaced через transactional outbox.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
	"github.com/vladislavdragonenkov/shopflow/internal/tracing"
)

// RelaySpan: имя span одной попытки доставки сообщения в брокер.
const RelaySpan = "orderPlacedRelay"

const (
	defaultPollInterval   = time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
	maxRetryDelay         = 30 * time.Second
)

var (
	relayAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopflow_outbox_relay_attempts_total",
		Help: "Outbox relay attempts grouped by result",
	}, []string{"result"})
	relayBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shopflow_outbox_pending_records",
		Help: "OrderPlaced events waiting in the outbox",
	})
	relayLag = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shopflow_outbox_oldest_pending_age_seconds",
		Help: "Age of the oldest pending outbox record in seconds",
	})
)

// Option настраивает Worker.
type Option func(*Worker)

// WithLogger задаёт logger воркера.
func WithLogger(logger *log.Entry) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithTracer включает span'ы доставки. Без него trace размещения всё равно
// передаётся брокеру, но шаг relay в нём не виден.
func WithTracer(tracer trace.Tracer) Option {
	return func(w *Worker) {
		w.tracer = tracer
	}
}

// WithDLQPublisher задаёт, куда уходят сообщения после исчерпания попыток.
func WithDLQPublisher(publisher domain.OutboxPublisher) Option {
	return func(w *Worker) {
		w.dlq = publisher
	}
}

// WithPollInterval задаёт частоту опроса outbox.
func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// WithBatchSize задаёт, сколько сообщений берётся за один проход.
func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

// WithMaxAttempts задаёт число попыток доставки одного сообщения.
func WithMaxAttempts(attempts int) Option {
	return func(w *Worker) {
		if attempts > 0 {
			w.maxAttempts = attempts
		}
	}
}

// WithRetryBaseDelay задаёт паузу после первой неудачи; дальше она удваивается.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(w *Worker) {
		w.retryBaseDelay = max(delay, 0)
	}
}

// Worker переносит OrderPlaced из outbox в брокер.
// Каждое сообщение доставляется в trace размещения, из которого оно было записано.
type Worker struct {
	repo      domain.OutboxRepository
	publisher domain.OutboxPublisher
	dlq       domain.OutboxPublisher
	tracer    trace.Tracer
	logger    *log.Entry

	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
}

// NewWorker создаёт relay поверх репозитория и publisher'а брокера.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, opts ...Option) *Worker {
	w := &Worker{
		repo:           repo,
		publisher:      publisher,
		logger:         log.WithField("component", "outbox-relay"),
		pollInterval:   defaultPollInterval,
		batchSize:      defaultBatchSize,
		maxAttempts:    defaultMaxAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run опрашивает outbox до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox relay is disabled: repository or broker publisher is missing")
		return
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.ProcessOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessOnce забирает один батч pending-сообщений и возвращает, сколько из них доставлено.
func (w *Worker) ProcessOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	defer w.observeBacklog(ctx)

	batch, err := w.repo.PullPending(ctx, w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to pull pending outbox messages")
		return 0
	}

	delivered := 0
	for _, msg := range batch {
		if ctx.Err() != nil {
			break
		}
		if w.relay(ctx, msg) {
			delivered++
		}
	}
	return delivered
}

// relay доставляет одно сообщение. При остановке воркера сообщение остаётся pending.
func (w *Worker) relay(ctx context.Context, msg domain.OutboxMessage) bool {
	ctx = tracing.ExtractMap(ctx, msg.Headers)
	logger := w.logger.WithContext(ctx).WithFields(log.Fields{
		"outbox_id":    msg.ID,
		"order_number": msg.AggregateID,
		"topic":        msg.Topic,
	})

	err := w.deliver(ctx, msg)
	if err == nil {
		if markErr := w.repo.MarkSent(ctx, msg.ID); markErr != nil {
			logger.WithError(markErr).Warn("event relayed but outbox record was not marked sent")
		}
		return true
	}
	if ctx.Err() != nil {
		logger.Debug("relay interrupted by shutdown, message stays pending")
		return false
	}

	logger.WithError(err).Error("OrderPlaced event was not relayed, giving up")
	relayAttempts.WithLabelValues("failed").Inc()
	if dlqErr := w.deadLetter(ctx, msg, err); dlqErr != nil {
		logger.WithError(dlqErr).Warn("failed to publish to DLQ")
		relayAttempts.WithLabelValues("dlq_failed").Inc()
	}
	if markErr := w.repo.MarkFailed(ctx, msg.ID); markErr != nil {
		logger.WithError(markErr).Warn("failed to mark outbox record as failed")
	}
	return false
}

// deliver делает до maxAttempts попыток, каждая в своём span.
func (w *Worker) deliver(ctx context.Context, msg domain.OutboxMessage) error {
	var err error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		_, err = tracing.WithSpan(ctx, w.tracer, RelaySpan,
			func(ctx context.Context) (struct{}, error) {
				return struct{}{}, w.publisher.Publish(ctx, msg)
			},
			trace.WithSpanKind(trace.SpanKindProducer),
			trace.WithAttributes(
				attribute.String("messaging.destination.name", msg.Topic),
				attribute.String("outbox.id", msg.ID),
				attribute.String("order.number", msg.AggregateID),
				attribute.Int("outbox.attempt", attempt),
			),
		)
		if err == nil {
			relayAttempts.WithLabelValues("sent").Inc()
			return nil
		}
		relayAttempts.WithLabelValues("retry_error").Inc()

		if attempt == w.maxAttempts {
			break
		}
		if delay := w.retryBackoff(attempt); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return fmt.Errorf("%w: %d attempts: %w", domain.ErrOutboxPublish, w.maxAttempts, err)
}

// retryBackoff возвращает паузу после попытки attempt: base, 2*base, 4*base, ... не больше maxRetryDelay.
func (w *Worker) retryBackoff(attempt int) time.Duration {
	if w.retryBaseDelay <= 0 {
		return 0
	}
	shift := uint(min(max(attempt-1, 0), 16))
	if w.retryBaseDelay > maxRetryDelay>>shift {
		return maxRetryDelay
	}
	return w.retryBaseDelay << shift
}

func (w *Worker) observeBacklog(ctx context.Context) {
	stats, err := w.repo.Stats(ctx)
	if err != nil {
		w.logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}

	relayBacklog.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		relayLag.Set(0)
		return
	}
	relayLag.Set(max(time.Since(stats.OldestPendingAt).Seconds(), 0))
}

// deadLetterRecord: тело DLQ-сообщения; dlq-reprocess читает outbox_id, aggregate_id, topic и payload.
type deadLetterRecord struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Topic         string          `json:"topic"`
	Payload       json.RawMessage `json:"payload"`
	Error         string          `json:"publish_error"`
	FailedAt      time.Time       `json:"dlq_published_at"`
}

func (w *Worker) deadLetter(ctx context.Context, msg domain.OutboxMessage, relayErr error) error {
	if w.dlq == nil {
		return nil
	}

	payload, err := json.Marshal(deadLetterRecord{
		OutboxID:      msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Topic:         msg.Topic,
		Payload:       json.RawMessage(msg.Payload),
		Error:         relayErr.Error(),
		FailedAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal dlq record: %w", err)
	}

	record := domain.OutboxMessage{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		Headers:       msg.Headers,
	}
	if err := w.dlq.Publish(ctx, record); err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}
	return nil
}
