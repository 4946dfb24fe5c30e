package domain

import "errors"

var (
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one line item")
	// Ошибка пустого SKU в позиции.
	ErrItemSKURequired = errors.New("line item sku code is required")
	// Ошибка отрицательного количества товара.
	ErrItemQtyInvalid = errors.New("line item quantity must be non-negative")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("line item price must be non-negative")
	// ErrOrderNotFound возвращается, если заказ не найден в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists: заказ с таким номером уже сохранён.
	ErrOrderAlreadyExists = errors.New("order already exists")

	// ErrAvailabilityCheckFailed: общий вид ошибки: склад не смог ответить,
	// есть ли товар. Транзиентные и decode-ошибки оборачивают его.
	ErrAvailabilityCheckFailed = errors.New("availability check failed")
	// ErrAvailabilityTransient: сеть, таймаут или не-2xx ответ склада.
	ErrAvailabilityTransient = errors.New("availability transient error")
	// ErrAvailabilityMalformed: ответ склада не удалось разобрать.
	ErrAvailabilityMalformed = errors.New("availability response malformed")
	// ErrAvailabilityIncomplete: в ответе нет записи по запрошенному SKU.
	ErrAvailabilityIncomplete = errors.New("availability response incomplete")

	// ErrOutOfStock: хотя бы одной позиции нет на складе.
	ErrOutOfStock = errors.New("one or more items out of stock")

	// ErrPublish: ошибка отправки события в брокер.
	ErrPublish = errors.New("event publish failed")
	// ErrOutboxPublish: ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
	// ErrPlacementInternal: зависимость запаниковала во время размещения.
	ErrPlacementInternal = errors.New("order placement internal error")
	// ErrStockNotFound: SKU неизвестен складу.
	ErrStockNotFound = errors.New("stock not found")
)

// IsAvailabilityFailure проверяет, относится ли ошибка к инфраструктурному сбою проверки наличия.
func IsAvailabilityFailure(err error) bool {
	return errors.Is(err, ErrAvailabilityCheckFailed)
}
