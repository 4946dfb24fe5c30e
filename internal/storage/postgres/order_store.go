package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/shopflow/internal/domain"
)

type orderStore struct {
	store  *Store
	outbox domain.OutboxMessageBuilder
}

// OrderStoreOption настраивает OrderStore.
type OrderStoreOption func(*orderStore)

// WithOutboxMessages включает запись outbox-сообщения в транзакции Save:
// заказ и событие о нём фиксируются или откатываются вместе.
func WithOutboxMessages(build domain.OutboxMessageBuilder) OrderStoreOption {
	return func(r *orderStore) {
		r.outbox = build
	}
}

// NewOrderStore создаёт PostgreSQL-реализацию OrderStore.
func NewOrderStore(store *Store, opts ...OrderStoreOption) domain.OrderStore {
	r := &orderStore{store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save пишет заказ, все позиции и, если настроено, outbox-сообщение в одной транзакции.
func (r *orderStore) Save(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.store.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO orders (order_number, created_at)
			VALUES ($1, $2)
		`, order.OrderNumber, order.CreatedAt.UTC()); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrOrderAlreadyExists, order.OrderNumber)
			}
			return fmt.Errorf("insert order: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO order_line_items (order_number, position, sku_code, quantity, price)
			VALUES ($1, $2, $3, $4, $5)
		`)
		if err != nil {
			return fmt.Errorf("prepare line item insert: %w", err)
		}
		defer stmt.Close()

		for i, item := range order.LineItems {
			if _, err := stmt.ExecContext(ctx, order.OrderNumber, i, item.SKUCode, item.Quantity, item.Price); err != nil {
				return fmt.Errorf("insert line item %d: %w", i, err)
			}
		}

		if r.outbox == nil {
			return nil
		}
		msg, err := r.outbox(ctx, order)
		if err != nil {
			return fmt.Errorf("build outbox message: %w", err)
		}
		_, err = insertOutboxMessage(ctx, tx, msg)
		return err
	})
}

// Get читает заказ вместе с позициями в исходном порядке.
func (r *orderStore) Get(ctx context.Context, orderNumber string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	db := r.store.DB()
	order := domain.Order{OrderNumber: orderNumber}
	err := db.QueryRowContext(ctx, `
		SELECT created_at FROM orders WHERE order_number = $1
	`, orderNumber).Scan(&order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	order.CreatedAt = order.CreatedAt.UTC()

	rows, err := db.QueryContext(ctx, `
		SELECT sku_code, quantity, price
		FROM order_line_items
		WHERE order_number = $1
		ORDER BY position
	`, orderNumber)
	if err != nil {
		return domain.Order{}, fmt.Errorf("select line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderLineItem
		if err := rows.Scan(&item.SKUCode, &item.Quantity, &item.Price); err != nil {
			return domain.Order{}, fmt.Errorf("scan line item: %w", err)
		}
		order.LineItems = append(order.LineItems, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Order{}, fmt.Errorf("iterate line items: %w", err)
	}

	return order, nil
}

var _ domain.OrderStore = (*orderStore)(nil)
