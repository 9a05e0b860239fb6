package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	domain "github.com/Zhima-Mochi/pizzashop/internal/domain/inventory"
)

func TestInventoryStoreReserve(t *testing.T) {
	ctx := context.Background()
	store, err := NewInventoryStore(map[string]int{"Olives": 2, "Margherita": 0})
	require.NoError(t, err)

	for _, want := range []bool{true, true, false, false} {
		ok, err := store.Reserve(ctx, "Olives")
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}

	ok, err := store.Reserve(ctx, "Margherita")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Reserve(ctx, "Anchovies")
	require.NoError(t, err)
	assert.False(t, ok)

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Olives": 0, "Margherita": 0}, snap)
}

func TestInventoryStoreRejectsBadSeed(t *testing.T) {
	_, err := NewInventoryStore(map[string]int{"Cheese": -1})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestInventoryStoreSnapshotIsCopy(t *testing.T) {
	ctx := context.Background()
	store, err := NewInventoryStore(map[string]int{"Cheese": 3})
	require.NoError(t, err)

	snap, _ := store.Snapshot(ctx)
	snap["Cheese"] = 100

	again, _ := store.Snapshot(ctx)
	assert.Equal(t, 3, again["Cheese"])
}

func TestInventoryStoreConcurrentReserve(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		stock := rapid.IntRange(0, 40).Draw(rt, "stock")
		callers := rapid.IntRange(1, 64).Draw(rt, "callers")

		store, err := NewInventoryStore(map[string]int{"Pepperoni": stock})
		if err != nil {
			rt.Fatalf("seed: %v", err)
		}

		var granted atomic.Int64
		var wg sync.WaitGroup
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := store.Reserve(context.Background(), "Pepperoni"); ok {
					granted.Add(1)
				}
			}()
		}
		wg.Wait()

		want := min(stock, callers)
		if int(granted.Load()) != want {
			rt.Fatalf("granted %d, want %d", granted.Load(), want)
		}
		snap, _ := store.Snapshot(context.Background())
		if snap["Pepperoni"] != stock-want {
			rt.Fatalf("left %d, want %d", snap["Pepperoni"], stock-want)
		}
	})
}
