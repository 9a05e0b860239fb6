package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Zhima-Mochi/pizzashop/internal/domain/catalog"
)

var (
	ErrOutOfStock             = errors.New("order: out of stock")
	ErrUnknownSelection       = errors.New("order: unknown selection")
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusFinalized Status = "finalized"
	StatusPaid      Status = "paid"
)

// Order is a base followed by the toppings applied to it, in application order.
// Values are never mutated; every transition returns a new Order.
type Order struct {
	ID        string
	Base      catalog.Entry
	Toppings  []catalog.Entry
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(id string, base catalog.Entry) (*Order, error) {
	if id == "" {
		return nil, errors.New("order: id is required")
	}
	if base.Kind != catalog.KindBase {
		return nil, fmt.Errorf("%w: %s is not a base", ErrUnknownSelection, base.Name)
	}
	now := time.Now().UTC()
	return &Order{
		ID:        id,
		Base:      base,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// WithTopping returns a copy of o with e appended.
func (o *Order) WithTopping(e catalog.Entry) (*Order, error) {
	if o.Status != StatusOpen {
		return nil, fmt.Errorf("%w: order %s is %s", ErrInvalidStateTransition, o.ID, o.Status)
	}
	if e.Kind != catalog.KindTopping {
		return nil, fmt.Errorf("%w: %s is not a topping", ErrUnknownSelection, e.Name)
	}
	next := o.Clone()
	next.Toppings = append(next.Toppings, e)
	next.touch()
	return next, nil
}

// Finalize closes the order to further toppings.
func (o *Order) Finalize() (*Order, error) {
	return o.transition(StatusOpen, StatusFinalized)
}

// MarkPaid records that the finalized order has been settled.
func (o *Order) MarkPaid() (*Order, error) {
	return o.transition(StatusFinalized, StatusPaid)
}

func (o *Order) transition(from, to Status) (*Order, error) {
	if o.Status != from {
		return nil, fmt.Errorf("%w: order %s is %s, want %s", ErrInvalidStateTransition, o.ID, o.Status, from)
	}
	next := o.Clone()
	next.Status = to
	next.touch()
	return next, nil
}

// Entries lists the base followed by every topping.
func (o *Order) Entries() []catalog.Entry {
	entries := make([]catalog.Entry, 0, len(o.Toppings)+1)
	entries = append(entries, o.Base)
	return append(entries, o.Toppings...)
}

func (o *Order) Description() string {
	fragments := make([]string, 0, len(o.Toppings)+1)
	for _, e := range o.Entries() {
		fragments = append(fragments, e.Fragment)
	}
	return strings.Join(fragments, ", ")
}

func (o *Order) Cost() decimal.Decimal {
	total := decimal.Zero
	for _, e := range o.Entries() {
		total = total.Add(e.Price)
	}
	return total
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Toppings = append([]catalog.Entry(nil), o.Toppings...)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
