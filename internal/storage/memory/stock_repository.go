package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

// stockRepositoryInMemory хранит складские остатки в памяти.
type stockRepositoryInMemory struct {
	mu         sync.RWMutex
	quantities map[string]int64
}

// NewStockRepository создаёт in-memory склад с начальными остатками seed.
func NewStockRepository(seed map[string]int64) domain.StockRepository {
	quantities := make(map[string]int64, len(seed))
	for sku, qty := range seed {
		quantities[sku] = qty
	}
	return &stockRepositoryInMemory{quantities: quantities}
}

// Quantities возвращает остатки только по известным SKU.
func (r *stockRepositoryInMemory) Quantities(_ context.Context, skus []string) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]int64, len(skus))
	for _, sku := range skus {
		if qty, ok := r.quantities[sku]; ok {
			result[sku] = qty
		}
	}
	return result, nil
}

// SetQuantity задаёт остаток SKU.
func (r *stockRepositoryInMemory) SetQuantity(_ context.Context, sku string, quantity int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.quantities[sku] = quantity
	return nil
}

var _ domain.StockRepository = (*stockRepositoryInMemory)(nil)
