package zaplogger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Zhima-Mochi/pizzashop/internal/observability"
)

func TestWrapForwardsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := Wrap(zap.New(core)).With(observability.F("service", "pizzashop"))

	log.Warn("reservation_denied",
		observability.F("item", "Cheese"),
		observability.F("error", errors.New("inventory: out of stock")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "reservation_denied", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "pizzashop", fields["service"])
	assert.Equal(t, "Cheese", fields["item"])
	assert.Equal(t, "inventory: out of stock", fields["error"])
}

func TestWrapNilIsSafe(t *testing.T) {
	assert.NotPanics(t, func() { Wrap(nil).Info("noop") })
}
