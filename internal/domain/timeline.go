package domain

import "time"

// TimelineEvent фиксирует переход размещения заказа в новое состояние.
type TimelineEvent struct {
	OrderNumber string
	State       PlacementState
	Reason      string
	Occurred    time.Time
}
