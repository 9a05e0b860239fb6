package payment

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dompay "github.com/Zhima-Mochi/pizzashop/internal/domain/payment"
)

func TestMethods(t *testing.T) {
	tests := []struct {
		method dompay.Method
		tag    dompay.Tag
		line   string
	}{
		{PayPal{}, dompay.TagPayPal, "Paid $7.70 using PayPal."},
		{CreditCard{}, dompay.TagCreditCard, "Paid $7.70 using Credit Card."},
	}
	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			rec, err := tt.method.Pay(context.Background(), decimal.RequireFromString("7.70"))
			require.NoError(t, err)
			assert.Equal(t, tt.tag, rec.Method)
			assert.NotEmpty(t, rec.ID)
			assert.Equal(t, dompay.StatusSucceeded, rec.Outcome)
			assert.Equal(t, tt.line, rec.Confirmation())
		})
	}
}

func TestMethodRejectsNegativeAmount(t *testing.T) {
	_, err := PayPal{}.Pay(context.Background(), decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, dompay.ErrInvalidAmount)
}

func TestMethodHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CreditCard{}.Pay(ctx, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, context.Canceled)
}
