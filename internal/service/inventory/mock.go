package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

// MockClient: конфигурируемая заглушка AvailabilityClient для локального запуска и тестов.
// По умолчанию все SKU в наличии.
type MockClient struct {
	mu sync.Mutex

	// OutOfStock: SKU, для которых возвращается inStock=false.
	OutOfStock map[string]bool
	// Unknown: SKU, по которым запись в ответ не попадает.
	Unknown map[string]bool
	// Err возвращается вместо ответа, если задана.
	Err error
	// Delay имитирует задержку склада; учитывает отмену ctx.
	Delay time.Duration

	Calls int
}

// NewMockClient возвращает mock с успешным сценарием по умолчанию.
func NewMockClient() *MockClient {
	return &MockClient{
		OutOfStock: make(map[string]bool),
		Unknown:    make(map[string]bool),
	}
}

// Check возвращает заранее настроенный ответ и считает вызовы.
func (m *MockClient) Check(ctx context.Context, skus []string) (domain.AvailabilityResult, error) {
	m.mu.Lock()
	m.Calls++
	delay, err := m.Delay, m.Err
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(domain.AvailabilityResult, 0, len(skus))
	for _, sku := range skus {
		if m.Unknown[sku] {
			continue
		}
		result = append(result, domain.AvailabilityEntry{SKUCode: sku, InStock: !m.OutOfStock[sku]})
	}
	return result, nil
}

// SetOutOfStock помечает SKU как отсутствующие.
func (m *MockClient) SetOutOfStock(skus ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sku := range skus {
		m.OutOfStock[sku] = true
	}
}

// CallCount возвращает количество вызовов Check.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

var _ domain.AvailabilityClient = (*MockClient)(nil)
