package payment

import "time"

// PaymentCompletedEvent carries the record of a settled order.
type PaymentCompletedEvent struct {
	Record     Record    `json:"record"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (PaymentCompletedEvent) EventName() string { return "payment.completed" }

func NewPaymentCompletedEvent(r *Record) PaymentCompletedEvent {
	return PaymentCompletedEvent{
		Record:     *r,
		OccurredAt: time.Now().UTC(),
	}
}

func (e PaymentCompletedEvent) MessageKey() string { return e.Record.OrderID }
