package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMenu(t *testing.T) {
	reg := Default()

	tests := []struct {
		name  string
		kind  Kind
		code  string
		want  string
		price string
	}{
		{"margherita by code", KindBase, "1", "Margherita", "5"},
		{"pepperoni by name", KindBase, "pepperoni", "Pepperoni", "6"},
		{"cheese", KindTopping, "1", "Cheese", "1"},
		{"olives", KindTopping, "2", "Olives", "0.5"},
		{"mushrooms padded", KindTopping, " 3 ", "Mushrooms", "0.7"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lookup := reg.Base
			if tc.kind == KindTopping {
				lookup = reg.Topping
			}
			e, err := lookup(tc.code)
			require.NoError(t, err)
			assert.Equal(t, tc.want, e.Name)
			assert.Equal(t, tc.want, e.Fragment)
			assert.True(t, decimal.RequireFromString(tc.price).Equal(e.Price))
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	reg := Default()

	_, err := reg.Base("3")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reg.Topping("Pineapple")
	assert.ErrorIs(t, err, ErrNotFound)
	// bases and toppings are separate namespaces
	_, err = reg.Topping("Margherita")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterNewVariant(t *testing.T) {
	reg := Default()
	require.NoError(t, reg.Register(Entry{Code: "4", Name: "Basil", Kind: KindTopping, Price: decimal.RequireFromString("0.30")}))

	e, err := reg.Topping("4")
	require.NoError(t, err)
	assert.Equal(t, "Basil", e.Name)

	names := make([]string, 0, 4)
	for _, e := range reg.Toppings() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Cheese", "Olives", "Mushrooms", "Basil"}, names)
}

func TestRegisterRejectsInvalid(t *testing.T) {
	reg := Default()

	assert.ErrorIs(t, reg.Register(Entry{Code: "1", Name: "Ham", Kind: KindTopping}), ErrDuplicate)
	assert.ErrorIs(t, reg.Register(Entry{Code: "9", Name: "olives", Kind: KindTopping}), ErrDuplicate)
	assert.ErrorIs(t, reg.Register(Entry{Code: "9", Name: "Ham", Kind: "side"}), ErrInvalidEntry)
	assert.ErrorIs(t, reg.Register(Entry{Code: "9", Name: "Ham", Kind: KindTopping, Price: decimal.NewFromInt(-1)}), ErrInvalidEntry)
	assert.ErrorIs(t, reg.Register(Entry{Name: "Ham", Kind: KindTopping}), ErrInvalidEntry)
}
