package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

// orderStoreInMemory: простая in-memory реализация OrderStore.
type orderStoreInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderStore возвращает in-memory хранилище для локальной разработки и тестов.
func NewOrderStore() domain.OrderStore {
	return &orderStoreInMemory{
		items: make(map[string]domain.Order),
	}
}

// Save сохраняет новый заказ, если номер ещё не занят.
func (r *orderStoreInMemory) Save(ctx context.Context, order domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.OrderNumber]; exists {
		return domain.ErrOrderAlreadyExists
	}
	r.items[order.OrderNumber] = cloneOrder(order)
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderStoreInMemory) Get(_ context.Context, orderNumber string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[orderNumber]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// cloneOrder копирует срез позиций, чтобы вызывающий не мутировал хранилище.
func cloneOrder(order domain.Order) domain.Order {
	order.LineItems = append([]domain.OrderLineItem(nil), order.LineItems...)
	return order
}

var _ domain.OrderStore = (*orderStoreInMemory)(nil)
