package placement

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

// callLog фиксирует порядок вызовов зависимостей.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeAvailability struct {
	log    *callLog
	result domain.AvailabilityResult
	err    error
	// block ждёт отмены ctx и возвращает ctx.Err().
	block bool
	panic any

	mu       sync.Mutex
	requests [][]string
}

func (f *fakeAvailability) Check(ctx context.Context, skus []string) (domain.AvailabilityResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, append([]string(nil), skus...))
	f.mu.Unlock()
	if f.log != nil {
		f.log.add("check")
	}
	if f.panic != nil {
		panic(f.panic)
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.result, f.err
}

type fakeStore struct {
	log   *callLog
	err   error
	panic any

	mu    sync.Mutex
	saved []domain.Order
}

func (f *fakeStore) Save(_ context.Context, order domain.Order) error {
	if f.log != nil {
		f.log.add("save")
	}
	if f.panic != nil {
		panic(f.panic)
	}
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, order)
	return nil
}

func (f *fakeStore) Get(_ context.Context, orderNumber string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.saved {
		if order.OrderNumber == orderNumber {
			return order, nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type published struct {
	topic string
	event domain.OrderPlacedEvent
}

type fakePublisher struct {
	log   *callLog
	err   error
	panic any

	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(_ context.Context, topic string, event domain.OrderPlacedEvent) error {
	if f.log != nil {
		f.log.add("publish")
	}
	if f.panic != nil {
		panic(f.panic)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{topic: topic, event: event})
	return f.err
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeTimeline struct {
	mu     sync.Mutex
	events []domain.TimelineEvent
}

func (f *fakeTimeline) Append(_ context.Context, event domain.TimelineEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeTimeline) List(_ context.Context, orderNumber string) ([]domain.TimelineEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.TimelineEvent
	for _, e := range f.events {
		if e.OrderNumber == orderNumber {
			result = append(result, e)
		}
	}
	return result, nil
}

func (f *fakeTimeline) states(orderNumber string) []domain.PlacementState {
	events, _ := f.List(context.Background(), orderNumber)
	states := make([]domain.PlacementState, 0, len(events))
	for _, e := range events {
		states = append(states, e.State)
	}
	return states
}
