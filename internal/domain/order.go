package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LineItemRequest: позиция входящего запроса на оформление заказа.
type LineItemRequest struct {
	SKUCode  string          `json:"skuCode"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// OrderRequest описывает входящий запрос на оформление заказа.
type OrderRequest struct {
	LineItems []LineItemRequest `json:"lineItems"`
}

// Validate проверяет предусловия запроса и возвращает список замечаний.
func (r OrderRequest) Validate() []error {
	var errs []error

	if len(r.LineItems) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	for _, item := range r.LineItems {
		if strings.TrimSpace(item.SKUCode) == "" {
			errs = append(errs, ErrItemSKURequired)
		}
		if item.Quantity < 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.Price.IsNegative() {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	return errs
}

// OrderLineItem представляет одну позицию заказа. Собственной идентичности не имеет.
type OrderLineItem struct {
	// SKUCode: внешний идентификатор товара.
	SKUCode string
	// Quantity: количество единиц товара.
	Quantity int
	// Price: цена за единицу, копируется из запроса без пересчёта.
	Price decimal.Decimal
}

// Order агрегирует заказ и его позиции.
type Order struct {
	// OrderNumber назначается один раз при создании и больше не меняется.
	OrderNumber string
	LineItems   []OrderLineItem
	CreatedAt   time.Time
}

// NewOrder строит заказ из запроса, сохраняя порядок позиций.
func NewOrder(orderNumber string, req OrderRequest, createdAt time.Time) Order {
	items := make([]OrderLineItem, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		items = append(items, OrderLineItem{
			SKUCode:  item.SKUCode,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}
	return Order{
		OrderNumber: orderNumber,
		LineItems:   items,
		CreatedAt:   createdAt,
	}
}

// DistinctSKUs возвращает SKU заказа без повторов в порядке первого появления.
func (o Order) DistinctSKUs() []string {
	seen := make(map[string]struct{}, len(o.LineItems))
	skus := make([]string, 0, len(o.LineItems))
	for _, item := range o.LineItems {
		if _, ok := seen[item.SKUCode]; ok {
			continue
		}
		seen[item.SKUCode] = struct{}{}
		skus = append(skus, item.SKUCode)
	}
	return skus
}

// Total возвращает сумму заказа: quantity * price по всем позициям.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.LineItems {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
