package inventory

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

// Service отвечает на вопрос «есть ли товар на складе» по данным StockRepository.
type Service struct {
	stock  domain.StockRepository
	logger *log.Entry
}

// NewService создаёт складской сервис.
func NewService(stock domain.StockRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "inventory")
	}
	return &Service{stock: stock, logger: logger}
}

// Check возвращает по одной записи на каждый различный SKU в порядке запроса.
// Неизвестный SKU считается отсутствующим: inStock=false.
func (s *Service) Check(ctx context.Context, skus []string) (domain.AvailabilityResult, error) {
	distinct := make([]string, 0, len(skus))
	seen := make(map[string]struct{}, len(skus))
	for _, sku := range skus {
		if _, ok := seen[sku]; ok {
			continue
		}
		seen[sku] = struct{}{}
		distinct = append(distinct, sku)
	}
	if len(distinct) == 0 {
		return domain.AvailabilityResult{}, nil
	}

	quantities, err := s.stock.Quantities(ctx, distinct)
	if err != nil {
		return nil, fmt.Errorf("load stock quantities: %w", err)
	}

	result := make(domain.AvailabilityResult, 0, len(distinct))
	for _, sku := range distinct {
		result = append(result, domain.AvailabilityEntry{SKUCode: sku, InStock: quantities[sku] > 0})
	}

	s.logger.WithContext(ctx).WithField("skus", len(distinct)).Debug("availability resolved")
	return result, nil
}

// Restock задаёт остаток SKU.
func (s *Service) Restock(ctx context.Context, sku string, quantity int64) error {
	if quantity < 0 {
		quantity = 0
	}
	return s.stock.SetQuantity(ctx, sku, quantity)
}

var _ domain.AvailabilityClient = (*Service)(nil)
