package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("catalog: entry not found")
	ErrDuplicate    = errors.New("catalog: entry already registered")
	ErrInvalidEntry = errors.New("catalog: invalid entry")
)

type Kind string

const (
	KindBase    Kind = "base"
	KindTopping Kind = "topping"
)

// Entry is one purchasable component. Name doubles as the inventory key.
type Entry struct {
	Code     string
	Name     string
	Kind     Kind
	Price    decimal.Decimal
	Fragment string
}

// Registry holds the fixed menu. Lookups accept either the selection code or the
// entry name (case-insensitive).
type Registry struct {
	mu      sync.RWMutex
	entries map[Kind][]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[Kind][]Entry)}
}

// Register adds an entry; registration order is the menu order.
func (r *Registry) Register(e Entry) error {
	if e.Code == "" || e.Name == "" {
		return fmt.Errorf("%w: code and name are required", ErrInvalidEntry)
	}
	if e.Kind != KindBase && e.Kind != KindTopping {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, e.Kind)
	}
	if e.Price.IsNegative() {
		return fmt.Errorf("%w: negative price for %s", ErrInvalidEntry, e.Name)
	}
	if e.Fragment == "" {
		e.Fragment = e.Name
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.entries[e.Kind] {
		if existing.Code == e.Code || strings.EqualFold(existing.Name, e.Name) {
			return fmt.Errorf("%w: %s %s", ErrDuplicate, e.Kind, e.Code)
		}
	}
	r.entries[e.Kind] = append(r.entries[e.Kind], e)
	return nil
}

// MustRegister panics on error; meant for static menus built at start-up.
func (r *Registry) MustRegister(entries ...Entry) *Registry {
	for _, e := range entries {
		if err := r.Register(e); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) Base(code string) (Entry, error) {
	return r.lookup(KindBase, code)
}

func (r *Registry) Topping(code string) (Entry, error) {
	return r.lookup(KindTopping, code)
}

// Bases lists base entries in menu order.
func (r *Registry) Bases() []Entry {
	return r.list(KindBase)
}

// Toppings lists topping entries in menu order.
func (r *Registry) Toppings() []Entry {
	return r.list(KindTopping)
}

func (r *Registry) lookup(kind Kind, key string) (Entry, error) {
	key = strings.TrimSpace(key)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries[kind] {
		if e.Code == key || strings.EqualFold(e.Name, key) {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s %q", ErrNotFound, kind, key)
}

func (r *Registry) list(kind Kind) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Entry(nil), r.entries[kind]...)
}

// Default returns the house menu.
func Default() *Registry {
	return NewRegistry().MustRegister(
		Entry{Code: "1", Name: "Margherita", Kind: KindBase, Price: decimal.RequireFromString("5.00")},
		Entry{Code: "2", Name: "Pepperoni", Kind: KindBase, Price: decimal.RequireFromString("6.00")},
		Entry{Code: "1", Name: "Cheese", Kind: KindTopping, Price: decimal.RequireFromString("1.00")},
		Entry{Code: "2", Name: "Olives", Kind: KindTopping, Price: decimal.RequireFromString("0.50")},
		Entry{Code: "3", Name: "Mushrooms", Kind: KindTopping, Price: decimal.RequireFromString("0.70")},
	)
}
