// Package redis хранит складские остатки в Redis: ключ stock:<sku>, значение: количество.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

const stockKeyPrefix = "stock:"

// StockRepository: реализация domain.StockRepository поверх go-redis.
type StockRepository struct {
	client goredis.UniversalClient
}

// NewStockRepository создаёт репозиторий поверх готового клиента.
func NewStockRepository(client goredis.UniversalClient) *StockRepository {
	return &StockRepository{client: client}
}

// Open подключается к Redis по адресу и проверяет соединение.
func Open(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func stockKey(sku string) string {
	return stockKeyPrefix + sku
}

// Quantities читает остатки одним MGET. Отсутствующие ключи в результат не попадают.
func (r *StockRepository) Quantities(ctx context.Context, skus []string) (map[string]int64, error) {
	result := make(map[string]int64, len(skus))
	if len(skus) == 0 {
		return result, nil
	}

	keys := make([]string, len(skus))
	for i, sku := range skus {
		keys[i] = stockKey(sku)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget stock: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		qty, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse stock for %s: %w", skus[i], err)
		}
		result[skus[i]] = qty
	}
	return result, nil
}

// SetQuantity перезаписывает остаток без TTL.
func (r *StockRepository) SetQuantity(ctx context.Context, sku string, quantity int64) error {
	if err := r.client.Set(ctx, stockKey(sku), quantity, 0).Err(); err != nil {
		return fmt.Errorf("set stock for %s: %w", sku, err)
	}
	return nil
}

// Quantity возвращает остаток одного SKU или domain.ErrStockNotFound.
func (r *StockRepository) Quantity(ctx context.Context, sku string) (int64, error) {
	qty, err := r.client.Get(ctx, stockKey(sku)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, domain.ErrStockNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get stock for %s: %w", sku, err)
	}
	return qty, nil
}

var _ domain.StockRepository = (*StockRepository)(nil)
