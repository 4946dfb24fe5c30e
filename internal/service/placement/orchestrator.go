package placement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
	"github.com/vladislavdragonenkov/shopflow/internal/metrics"
	"github.com/vladislavdragonenkov/shopflow/internal/tracing"
)

const (
	// InventoryLookupSpan: имя span вокруг вызова склада.
	InventoryLookupSpan = "inventoryServiceLookup"

	defaultAvailabilityTimeout = 3 * time.Second
)

// Option настраивает Orchestrator.
type Option func(*Orchestrator)

// WithLogger задаёт logger оркестратора.
func WithLogger(logger *log.Entry) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics включает prometheus-метрики размещения.
func WithMetrics(m *metrics.PlacementMetrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithTimeline включает запись переходов состояний.
func WithTimeline(timeline domain.TimelineRepository) Option {
	return func(o *Orchestrator) {
		o.timeline = timeline
	}
}

// WithTopic задаёт топик для OrderPlacedEvent.
func WithTopic(topic string) Option {
	return func(o *Orchestrator) {
		if topic != "" {
			o.topic = topic
		}
	}
}

// WithAvailabilityTimeout ограничивает время проверки наличия.
func WithAvailabilityTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.availabilityTimeout = timeout
		}
	}
}

// WithOrderNumberGenerator подменяет генератор номеров заказов (для тестов).
func WithOrderNumberGenerator(gen func() string) Option {
	return func(o *Orchestrator) {
		if gen != nil {
			o.newOrderNumber = gen
		}
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// Orchestrator размещает заказ: проверка наличия, сохранение, публикация события.
// Безопасен для конкурентного использования, если такими являются его зависимости.
type Orchestrator struct {
	availability domain.AvailabilityClient
	orders       domain.OrderStore
	publisher    domain.EventPublisher
	tracer       trace.Tracer
	timeline     domain.TimelineRepository
	logger       *log.Entry
	metrics      *metrics.PlacementMetrics

	topic               string
	availabilityTimeout time.Duration
	newOrderNumber      func() string
	now                 func() time.Time
}

// NewOrchestrator создаёт оркестратор. tracer может быть nil, тогда span'ы не пишутся.
func NewOrchestrator(
	availability domain.AvailabilityClient,
	orders domain.OrderStore,
	publisher domain.EventPublisher,
	tracer trace.Tracer,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		availability:        availability,
		orders:              orders,
		publisher:           publisher,
		tracer:              tracer,
		logger:              log.New().WithField("component", "placement"),
		topic:               domain.DefaultNotificationTopic,
		availabilityTimeout: defaultAvailabilityTimeout,
		newOrderNumber:      uuid.NewString,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PlaceOrder выполняет одну попытку размещения и всегда возвращает исход.
// Отмена ctx вызывающим не прерывает размещение; единственная граница: таймаут проверки наличия.
// Одинаковые запросы не дедуплицируются: каждый вызов получает новый номер заказа.
// Panic любой зависимости превращается в Failed с ReasonInternal.
func (o *Orchestrator) PlaceOrder(ctx context.Context, req domain.OrderRequest) (outcome domain.PlacementOutcome) {
	ctx = context.WithoutCancel(ctx)

	if o.metrics != nil {
		started := o.now()
		o.metrics.RecordStarted()
		defer func() {
			o.metrics.RecordFinished(outcome, o.now().Sub(started))
		}()
	}

	var orderNumber string
	defer func() {
		if r := recover(); r != nil {
			outcome = o.failOnPanic(ctx, orderNumber, r)
		}
	}()

	if errs := req.Validate(); len(errs) > 0 {
		err := errors.Join(errs...)
		o.logger.WithContext(ctx).WithError(err).Info("order request rejected by validation")
		return domain.Rejected("", domain.ReasonInvalidRequest, err)
	}

	order := domain.NewOrder(o.newOrderNumber(), req, o.now().UTC())
	orderNumber = order.OrderNumber
	logger := o.logger.WithContext(ctx).WithField("order_number", order.OrderNumber)
	o.transition(ctx, order.OrderNumber, domain.StateCreated, "")

	skus := order.DistinctSKUs()
	result, err := o.checkAvailability(ctx, skus)
	if err != nil {
		logger.WithError(err).Warn("availability check failed")
		o.transition(ctx, order.OrderNumber, domain.StateFailed, domain.ReasonAvailabilityFailed)
		return domain.Failed(order.OrderNumber, domain.ReasonAvailabilityFailed, err)
	}
	o.transition(ctx, order.OrderNumber, domain.StateAvailabilityChecked, "")

	verdict, affected := result.Evaluate(skus)
	switch verdict {
	case domain.AvailabilityOutOfStock:
		logger.WithField("skus", affected).Info("order rejected: items out of stock")
		o.transition(ctx, order.OrderNumber, domain.StateRejected, domain.ReasonOutOfStock)
		return domain.Rejected(order.OrderNumber, domain.ReasonOutOfStock,
			fmt.Errorf("%w: %s", domain.ErrOutOfStock, strings.Join(affected, ",")))
	case domain.AvailabilityIncomplete:
		logger.WithField("skus", affected).Warn("availability response has no entry for requested skus")
		o.transition(ctx, order.OrderNumber, domain.StateFailed, domain.ReasonAvailabilityIncomplete)
		return domain.Failed(order.OrderNumber, domain.ReasonAvailabilityIncomplete,
			fmt.Errorf("%w: %s", domain.ErrAvailabilityIncomplete, strings.Join(affected, ",")))
	}
	o.transition(ctx, order.OrderNumber, domain.StateAccepted, "")

	if err := o.orders.Save(ctx, order); err != nil {
		logger.WithError(err).Error("failed to persist accepted order")
		o.transition(ctx, order.OrderNumber, domain.StateFailed, domain.ReasonPersistenceFailed)
		return domain.Failed(order.OrderNumber, domain.ReasonPersistenceFailed, err)
	}
	o.transition(ctx, order.OrderNumber, domain.StatePersisted, "")

	event := domain.OrderPlacedEvent{OrderNumber: order.OrderNumber}
	if err := o.publisher.Publish(ctx, o.topic, event); err != nil {
		logger.WithError(err).WithField("topic", o.topic).Warn("order persisted but OrderPlaced event was not published")
		if o.metrics != nil {
			o.metrics.RecordPublishFailure()
		}
		return domain.Accepted(order.OrderNumber, false)
	}
	o.transition(ctx, order.OrderNumber, domain.StatePublished, "")

	logger.Info("order placed successfully")
	return domain.Accepted(order.OrderNumber, true)
}

func (o *Orchestrator) checkAvailability(ctx context.Context, skus []string) (domain.AvailabilityResult, error) {
	checkCtx, cancel := context.WithTimeout(ctx, o.availabilityTimeout)
	defer cancel()

	started := o.now()
	result, err := tracing.WithSpan(checkCtx, o.tracer, InventoryLookupSpan,
		func(ctx context.Context) (domain.AvailabilityResult, error) {
			return o.availability.Check(ctx, skus)
		},
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("inventory.sku_count", len(skus))),
	)

	if o.metrics != nil {
		label := "ok"
		if err != nil {
			label = "error"
		}
		o.metrics.RecordAvailabilityCheck(label, o.now().Sub(started))
	}

	if err != nil && !domain.IsAvailabilityFailure(err) {
		err = fmt.Errorf("%w: %w", domain.ErrAvailabilityCheckFailed, err)
	}
	return result, err
}

// failOnPanic завершает размещение после panic: пишет Failed в timeline и строит исход.
func (o *Orchestrator) failOnPanic(ctx context.Context, orderNumber string, r any) domain.PlacementOutcome {
	o.logger.WithContext(ctx).WithFields(log.Fields{
		"order_number": orderNumber,
		"panic":        r,
	}).Error("order placement panicked")

	if orderNumber != "" {
		o.transition(ctx, orderNumber, domain.StateFailed, domain.ReasonInternal)
	}
	return domain.Failed(orderNumber, domain.ReasonInternal, fmt.Errorf("%w: %v", domain.ErrPlacementInternal, r))
}

func (o *Orchestrator) transition(ctx context.Context, orderNumber string, state domain.PlacementState, reason string) {
	if o.timeline == nil {
		return
	}
	event := domain.TimelineEvent{
		OrderNumber: orderNumber,
		State:       state,
		Reason:      reason,
		Occurred:    o.now().UTC(),
	}
	if err := o.timeline.Append(ctx, event); err != nil {
		o.logger.WithContext(ctx).WithError(err).WithFields(log.Fields{
			"order_number": orderNumber,
			"state":        state,
		}).Warn("append timeline event failed")
	}
}
