package inventory

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidQuantity = errors.New("inventory: quantity must be zero or greater")
	ErrInvalidName     = errors.New("inventory: item name is required")
)

// Store is the shared stock of every base and topping.
type Store interface {
	// Reserve claims one unit of name. It reports false, leaving the stock untouched,
	// when the item is missing or exhausted; err is only set on backend failure.
	Reserve(ctx context.Context, name string) (bool, error)
	// Snapshot returns a point-in-time copy of the quantities for display.
	Snapshot(ctx context.Context) (map[string]int, error)
}

type Item struct {
	Name      string
	Quantity  int
	UpdatedAt time.Time
}

func NewItem(name string, quantity int) (*Item, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Item{
		Name:      name,
		Quantity:  quantity,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// Take decrements the item by one unit when stock remains.
func (i *Item) Take() bool {
	if i.Quantity <= 0 {
		return false
	}
	i.Quantity--
	i.touch()
	return true
}

func (i *Item) touch() {
	i.UpdatedAt = time.Now().UTC()
}
