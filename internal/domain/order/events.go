package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStartedEvent is emitted once the base of a new order has been reserved.
type OrderStartedEvent struct {
	OrderID    string          `json:"order_id"`
	Base       string          `json:"base"`
	Cost       decimal.Decimal `json:"cost"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (OrderStartedEvent) EventName() string { return "order.started" }

func NewOrderStartedEvent(o *Order) OrderStartedEvent {
	return OrderStartedEvent{
		OrderID:    o.ID,
		Base:       o.Base.Name,
		Cost:       o.Cost(),
		OccurredAt: time.Now().UTC(),
	}
}

// OrderToppingAddedEvent is emitted for every topping applied to an order.
type OrderToppingAddedEvent struct {
	OrderID    string          `json:"order_id"`
	Topping    string          `json:"topping"`
	Cost       decimal.Decimal `json:"cost"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (OrderToppingAddedEvent) EventName() string { return "order.topping_added" }

func NewOrderToppingAddedEvent(o *Order, topping string) OrderToppingAddedEvent {
	return OrderToppingAddedEvent{
		OrderID:    o.ID,
		Topping:    topping,
		Cost:       o.Cost(),
		OccurredAt: time.Now().UTC(),
	}
}

// OrderFinalizedEvent is emitted when the customer stops adding toppings.
type OrderFinalizedEvent struct {
	OrderID     string          `json:"order_id"`
	Description string          `json:"description"`
	Cost        decimal.Decimal `json:"cost"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func (OrderFinalizedEvent) EventName() string { return "order.finalized" }

func NewOrderFinalizedEvent(o *Order) OrderFinalizedEvent {
	return OrderFinalizedEvent{
		OrderID:     o.ID,
		Description: o.Description(),
		Cost:        o.Cost(),
		OccurredAt:  time.Now().UTC(),
	}
}

func (e OrderFinalizedEvent) MessageKey() string { return e.OrderID }
