package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dompay "github.com/Zhima-Mochi/pizzashop/internal/domain/payment"
)

// PayPal confirms payments without contacting a gateway.
type PayPal struct{}

func (PayPal) Tag() dompay.Tag { return dompay.TagPayPal }
func (PayPal) Name() string    { return "PayPal" }

func (p PayPal) Pay(ctx context.Context, amount decimal.Decimal) (*dompay.Record, error) {
	return settle(ctx, p, amount)
}

// CreditCard confirms payments without contacting a gateway.
type CreditCard struct{}

func (CreditCard) Tag() dompay.Tag { return dompay.TagCreditCard }
func (CreditCard) Name() string    { return "Credit Card" }

func (c CreditCard) Pay(ctx context.Context, amount decimal.Decimal) (*dompay.Record, error) {
	return settle(ctx, c, amount)
}

func settle(ctx context.Context, m dompay.Method, amount decimal.Decimal) (*dompay.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("payment: %s: %w", m.Tag(), err)
	}
	rec, err := dompay.NewRecord(uuid.NewString(), m, amount)
	if err != nil {
		return nil, fmt.Errorf("payment: %s: %w", m.Tag(), err)
	}
	return rec, nil
}
