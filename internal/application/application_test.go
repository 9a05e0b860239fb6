package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domoutbox "github.com/Zhima-Mochi/pizzashop/internal/domain/outbox"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/observability/obstest"
	"github.com/Zhima-Mochi/pizzashop/internal/observability"
)

type namedEvent string

func (e namedEvent) EventName() string { return string(e) }

func newMetrics(t *testing.T) (observability.Metrics, *prometheus.Registry) {
	t.Helper()
	h := obstest.New()
	return h.Metrics(), h.Registry
}

func TestEventPublisherCountsOutcome(t *testing.T) {
	metrics, reg := newMetrics(t)

	var got []string
	ok := NewEventPublisher(domoutbox.PublishFunc(func(_ context.Context, e domoutbox.Event) error {
		got = append(got, e.EventName())
		return nil
	}), metrics)
	require.NoError(t, ok.Publish(context.Background(), namedEvent("order.started")))
	assert.Equal(t, []string{"order.started"}, got)

	failing := NewEventPublisher(domoutbox.PublishFunc(func(context.Context, domoutbox.Event) error {
		return errors.New("queue full")
	}), metrics)
	assert.Error(t, failing.Publish(context.Background(), namedEvent("order.started")))

	n, err := testutil.GatherAndCount(reg, "test_external_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per outcome")
}

func TestEventPublisherNilSafe(t *testing.T) {
	var p *EventPublisher
	assert.NoError(t, p.Publish(context.Background(), namedEvent("x")))
	assert.NoError(t, NewEventPublisher(nil, nil).Publish(context.Background(), namedEvent("x")))
}

func TestREDObserve(t *testing.T) {
	metrics, reg := newMetrics(t)
	red := NewRED(metrics)
	latency := red.Observe("pizza.bake", "success", time.Now().Add(-time.Millisecond))
	assert.Greater(t, latency, 0.0)

	n, err := testutil.GatherAndCount(reg, "test_usecase_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
