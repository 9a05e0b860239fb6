package inventory

import "time"

const (
	FailureReasonOutOfStock   = "out_of_stock"
	FailureReasonBackendError = "backend_error"
)

// InventoryReservedEvent is emitted when a unit is committed to an order.
type InventoryReservedEvent struct {
	OrderID    string    `json:"order_id"`
	Item       string    `json:"item"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (InventoryReservedEvent) EventName() string { return "inventory.reserved" }

func NewInventoryReservedEvent(orderID, item string) InventoryReservedEvent {
	return InventoryReservedEvent{
		OrderID:    orderID,
		Item:       item,
		OccurredAt: time.Now().UTC(),
	}
}

// InventoryReservationFailedEvent is emitted when a unit cannot be reserved.
type InventoryReservationFailedEvent struct {
	OrderID    string    `json:"order_id"`
	Item       string    `json:"item"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (InventoryReservationFailedEvent) EventName() string { return "inventory.reservation_failed" }

func NewInventoryReservationFailedEvent(orderID, item, reason string) InventoryReservationFailedEvent {
	return InventoryReservationFailedEvent{
		OrderID:    orderID,
		Item:       item,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}
