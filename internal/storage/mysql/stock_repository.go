// Package mysql хранит складские остатки в MySQL.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

const (
	opTimeout = 5 * time.Second

	stockTableDDL = `
CREATE TABLE IF NOT EXISTS inventory (
    sku_code VARCHAR(255) NOT NULL PRIMARY KEY,
    quantity BIGINT NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`
)

// StockRepository: реализация domain.StockRepository поверх MySQL.
type StockRepository struct {
	db *sql.DB
}

// Open открывает подключение и проверяет доступность базы.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// NewStockRepository создаёт репозиторий поверх открытого *sql.DB.
func NewStockRepository(db *sql.DB) *StockRepository {
	return &StockRepository{db: db}
}

// EnsureSchema создаёт таблицу inventory, если её нет.
func (r *StockRepository) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if _, err := r.db.ExecContext(ctx, stockTableDDL); err != nil {
		return fmt.Errorf("create inventory table: %w", err)
	}
	return nil
}

// Quantities читает остатки одним запросом с IN (...).
func (r *StockRepository) Quantities(ctx context.Context, skus []string) (map[string]int64, error) {
	result := make(map[string]int64, len(skus))
	if len(skus) == 0 {
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args := quantitiesQuery(skus)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sku string
			qty int64
		)
		if err := rows.Scan(&sku, &qty); err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		result[sku] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory rows: %w", err)
	}
	return result, nil
}

func quantitiesQuery(skus []string) (string, []any) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(skus)), ",")
	args := make([]any, len(skus))
	for i, sku := range skus {
		args[i] = sku
	}
	return "SELECT sku_code, quantity FROM inventory WHERE sku_code IN (" + placeholders + ")", args
}

// SetQuantity создаёт или обновляет остаток по SKU.
func (r *StockRepository) SetQuantity(ctx context.Context, sku string, quantity int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO inventory (sku_code, quantity) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE quantity = VALUES(quantity)
	`, sku, quantity); err != nil {
		return fmt.Errorf("upsert inventory for %s: %w", sku, err)
	}
	return nil
}

var _ domain.StockRepository = (*StockRepository)(nil)
