package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dominv "github.com/Zhima-Mochi/pizzashop/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/pizzashop/internal/domain/outbox"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/observability/obstest"
)

type captureSubscriber map[string]domoutbox.Handler

func (s captureSubscriber) Subscribe(name string, h domoutbox.Handler) { s[name] = h }

func TestStockWorkerReportsStockout(t *testing.T) {
	h := obstest.New()
	sub := captureSubscriber{}
	w := NewStockWorker(sub, h)
	w.Start()

	handler := sub["inventory.reservation_failed"]
	require.NotNil(t, handler)

	ctx := context.Background()
	evt := dominv.NewInventoryReservationFailedEvent("o-1", "Margherita", dominv.FailureReasonOutOfStock)
	require.NoError(t, handler(ctx, evt))
	require.NoError(t, handler(ctx, evt))

	entries := h.Logs.FilterMessage("item_out_of_stock").All()
	require.Len(t, entries, 2)
	assert.Equal(t, true, entries[0].ContextMap()["first_seen"])
	assert.Equal(t, false, entries[1].ContextMap()["first_seen"])
	assert.Equal(t, "Margherita", entries[0].ContextMap()["item"])

	assert.Contains(t, w.Depleted(), "Margherita")
	assert.Equal(t, 2.0, counterValue(t, h, "test_inventory_stockouts_total"))
}

func counterValue(t *testing.T, h *obstest.Harness, name string) float64 {
	t.Helper()
	families, err := h.Registry.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestStockWorkerIgnoresBackendErrors(t *testing.T) {
	h := obstest.New()
	sub := captureSubscriber{}
	w := NewStockWorker(sub, h)
	w.Start()

	evt := dominv.NewInventoryReservationFailedEvent("o-1", "Cheese", dominv.FailureReasonBackendError)
	require.NoError(t, sub["inventory.reservation_failed"](context.Background(), evt))

	assert.Empty(t, h.Logs.FilterMessage("item_out_of_stock").All())
	assert.Empty(t, w.Depleted())
	assert.Equal(t, "ignored", h.Last("use_case_done")["outcome"])
}
