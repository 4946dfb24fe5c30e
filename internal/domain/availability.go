package domain

// AvailabilityEntry: ответ склада по одному SKU.
type AvailabilityEntry struct {
	SKUCode string `json:"skuCode"`
	InStock bool   `json:"inStock"`
}

// AvailabilityResult: набор ответов склада, ожидается одна запись на каждый запрошенный SKU.
type AvailabilityResult []AvailabilityEntry

// AvailabilityVerdict: итог сверки ответа склада с запрошенными SKU.
type AvailabilityVerdict string

const (
	// AvailabilityAllInStock: по всем SKU есть запись и все в наличии.
	AvailabilityAllInStock AvailabilityVerdict = "all_in_stock"
	// AvailabilityOutOfStock: хотя бы один SKU отсутствует на складе.
	AvailabilityOutOfStock AvailabilityVerdict = "out_of_stock"
	// AvailabilityIncomplete: по какому-то SKU склад не ответил вовсе.
	AvailabilityIncomplete AvailabilityVerdict = "incomplete"
)

// Evaluate сверяет ответ с запрошенными SKU.
// Явный inStock=false важнее пропущенной записи. Лишние SKU в ответе игнорируются,
// повторные записи по одному SKU объединяются через AND.
func (r AvailabilityResult) Evaluate(requested []string) (AvailabilityVerdict, []string) {
	status := make(map[string]bool, len(r))
	for _, entry := range r {
		prev, seen := status[entry.SKUCode]
		status[entry.SKUCode] = entry.InStock && (!seen || prev)
	}

	var outOfStock, missing []string
	for _, sku := range requested {
		inStock, ok := status[sku]
		switch {
		case !ok:
			missing = append(missing, sku)
		case !inStock:
			outOfStock = append(outOfStock, sku)
		}
	}

	if len(outOfStock) > 0 {
		return AvailabilityOutOfStock, outOfStock
	}
	if len(missing) > 0 {
		return AvailabilityIncomplete, missing
	}
	return AvailabilityAllInStock, nil
}
