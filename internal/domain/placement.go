package domain

// PlacementStatus: итог попытки размещения заказа.
type PlacementStatus string

const (
	PlacementAccepted PlacementStatus = "accepted"
	PlacementRejected PlacementStatus = "rejected"
	PlacementFailed   PlacementStatus = "failed"
)

// Причины, с которыми возвращаются отказы и сбои.
const (
	ReasonInvalidRequest         = "invalid order request"
	ReasonAvailabilityFailed     = "availability check failed"
	ReasonOutOfStock             = "one or more items out of stock"
	ReasonAvailabilityIncomplete = "availability check incomplete"
	ReasonPersistenceFailed      = "order persistence failed"
	ReasonInternal               = "internal placement error"
)

// PlacementOutcome описывает результат PlaceOrder.
// Rejected: бизнес-отказ, Failed: сбой инфраструктуры; различаются по Status.
type PlacementOutcome struct {
	Status      PlacementStatus
	OrderNumber string
	Reason      string
	Err         error
	// Notified: удалось ли передать событие публикатору. Имеет смысл только для Accepted.
	Notified bool
}

// Accepted строит успешный результат.
func Accepted(orderNumber string, notified bool) PlacementOutcome {
	return PlacementOutcome{Status: PlacementAccepted, OrderNumber: orderNumber, Notified: notified}
}

// Rejected строит бизнес-отказ.
func Rejected(orderNumber, reason string, err error) PlacementOutcome {
	return PlacementOutcome{Status: PlacementRejected, OrderNumber: orderNumber, Reason: reason, Err: err}
}

// Failed строит результат инфраструктурного сбоя.
func Failed(orderNumber, reason string, err error) PlacementOutcome {
	return PlacementOutcome{Status: PlacementFailed, OrderNumber: orderNumber, Reason: reason, Err: err}
}

// IsAccepted сообщает, что заказ сохранён.
func (o PlacementOutcome) IsAccepted() bool {
	return o.Status == PlacementAccepted
}

// PlacementState: шаг конечного автомата размещения.
type PlacementState string

const (
	StateCreated             PlacementState = "created"
	StateAvailabilityChecked PlacementState = "availability_checked"
	StateAccepted            PlacementState = "accepted"
	StatePersisted           PlacementState = "persisted"
	StatePublished           PlacementState = "published"
	StateRejected            PlacementState = "rejected"
	StateFailed              PlacementState = "failed"
)

// IsTerminal возвращает true для состояний, после которых переходов нет.
func (s PlacementState) IsTerminal() bool {
	switch s {
	case StatePublished, StateRejected, StateFailed:
		return true
	default:
		return false
	}
}
