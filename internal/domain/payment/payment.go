package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("payment: amount must be zero or greater")
	ErrUnknownMethod = errors.New("payment: unknown method")
)

// Tag identifies a payment method variant.
type Tag string

const (
	TagPayPal     Tag = "paypal"
	TagCreditCard Tag = "credit_card"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
)

// Method settles an amount. Implementations must be safe for concurrent use.
type Method interface {
	Tag() Tag
	Name() string
	Pay(ctx context.Context, amount decimal.Decimal) (*Record, error)
}

// Record is the structured confirmation of a settled order.
type Record struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Method     Tag             `json:"method"`
	MethodName string          `json:"method_name"`
	Outcome    Status          `json:"outcome"`
	PaidAt     time.Time       `json:"paid_at"`
}

// NewRecord builds a successful record for amount, validating it first.
func NewRecord(id string, m Method, amount decimal.Decimal) (*Record, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount.StringFixed(2))
	}
	return &Record{
		ID:         id,
		Amount:     amount,
		Method:     m.Tag(),
		MethodName: m.Name(),
		Outcome:    StatusSucceeded,
		PaidAt:     time.Now().UTC(),
	}, nil
}

// Confirmation renders the customer-facing line, e.g. "Paid $7.70 using PayPal.".
func (r *Record) Confirmation() string {
	return fmt.Sprintf("Paid $%s using %s.", r.Amount.StringFixed(2), r.MethodName)
}
