package memory

import (
	"context"
	"sync"

	domain "github.com/Zhima-Mochi/pizzashop/internal/domain/inventory"
)

// InventoryStore keeps stock in process memory. Reserve runs under one mutex so the
// check and the decrement can never interleave with another caller.
type InventoryStore struct {
	mu    sync.Mutex
	items map[string]*domain.Item
}

var _ domain.Store = (*InventoryStore)(nil)

func NewInventoryStore(seed map[string]int) (*InventoryStore, error) {
	items := make(map[string]*domain.Item, len(seed))
	for name, qty := range seed {
		item, err := domain.NewItem(name, qty)
		if err != nil {
			return nil, err
		}
		items[name] = item
	}
	return &InventoryStore{items: items}, nil
}

func (s *InventoryStore) Reserve(ctx context.Context, name string) (bool, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[name]
	if !ok {
		return false, nil
	}
	return item.Take(), nil
}

func (s *InventoryStore) Snapshot(ctx context.Context) (map[string]int, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.items))
	for name, item := range s.items {
		out[name] = item.Quantity
	}
	return out, nil
}
