package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dompay "github.com/Zhima-Mochi/pizzashop/internal/domain/payment"
	infrapay "github.com/Zhima-Mochi/pizzashop/internal/infrastructure/payment"
)

func newRegistry() *Registry {
	return NewRegistry().
		MustRegister("1", infrapay.PayPal{}).
		MustRegister("2", infrapay.CreditCard{})
}

func TestRegistryLookup(t *testing.T) {
	r := newRegistry()
	tests := []struct {
		key  string
		want dompay.Tag
	}{
		{"1", dompay.TagPayPal},
		{" 2 ", dompay.TagCreditCard},
		{"paypal", dompay.TagPayPal},
		{"CREDIT_CARD", dompay.TagCreditCard},
		{"Credit Card", dompay.TagCreditCard},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m, err := r.Lookup(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Tag())
		})
	}
}

func TestRegistryUnknown(t *testing.T) {
	for _, key := range []string{"", "3", "bitcoin"} {
		_, err := newRegistry().Lookup(key)
		assert.ErrorIs(t, err, dompay.ErrUnknownMethod, key)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := newRegistry()
	assert.Error(t, r.Register("1", infrapay.CreditCard{}))
	assert.Error(t, r.Register("3", infrapay.PayPal{}))
	assert.Error(t, r.Register("", infrapay.PayPal{}))
	assert.Panics(t, func() { r.MustRegister("1", infrapay.PayPal{}) })
}

func TestRegistryList(t *testing.T) {
	assert.Equal(t, []Listing{
		{Code: "1", Tag: dompay.TagPayPal, Name: "PayPal"},
		{Code: "2", Tag: dompay.TagCreditCard, Name: "Credit Card"},
	}, newRegistry().List())
}
