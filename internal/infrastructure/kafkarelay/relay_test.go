package kafkarelay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	domoutbox "github.com/Zhima-Mochi/pizzashop/internal/domain/outbox"
	"github.com/Zhima-Mochi/pizzashop/internal/infrastructure/outbox"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeSubscriber struct {
	handlers map[string]domoutbox.Handler
}

func (s *fakeSubscriber) Subscribe(name string, h domoutbox.Handler) {
	if s.handlers == nil {
		s.handlers = make(map[string]domoutbox.Handler)
	}
	s.handlers[name] = h
}

type receiptEvent struct {
	OrderID string `json:"order_id"`
}

func (receiptEvent) EventName() string    { return "payment.completed" }
func (e receiptEvent) MessageKey() string { return e.OrderID }

func TestRelayForwardsEvent(t *testing.T) {
	w := &fakeWriter{}
	sub := &fakeSubscriber{}
	relay := New(w, sub, nil, "payment.completed")
	relay.prop = propagation.TraceContext{}
	relay.Start()
	require.Contains(t, sub.handlers, "payment.completed")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01},
		SpanID:     trace.SpanID{0x02},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	require.NoError(t, sub.handlers["payment.completed"](ctx, receiptEvent{OrderID: "o-1"}))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "o-1", string(msg.Key))
	var decoded receiptEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "o-1", decoded.OrderID)

	carrier := headerCarrier{msg: &msg}
	assert.Equal(t, "payment.completed", carrier.Get(headerEvent))
	assert.Contains(t, carrier.Get("traceparent"), sc.TraceID().String())

	require.NoError(t, relay.Close())
	assert.True(t, w.closed)
}

func TestRelayWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	sub := &fakeSubscriber{}
	relay := New(w, sub, nil, "payment.completed")
	relay.Start()

	err := sub.handlers["payment.completed"](context.Background(), receiptEvent{OrderID: "o-1"})
	assert.ErrorContains(t, err, "broker down")
}

func TestRelayWithoutWriterIsInert(t *testing.T) {
	sub := &fakeSubscriber{}
	relay := New(nil, sub, nil, "payment.completed")
	relay.Start()
	assert.Empty(t, sub.handlers)
	assert.NoError(t, relay.Close())
}

func TestRelayCarriesTraceAcrossBus(t *testing.T) {
	w := &fakeWriter{}
	bus := outbox.NewBus(nil)
	relay := New(w, bus, nil, "payment.completed")
	relay.prop = propagation.TraceContext{}
	relay.Start()

	ctx := context.Background()
	bus.Start(ctx)
	defer bus.Stop(ctx)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01},
		SpanID:     trace.SpanID{0x02},
		TraceFlags: trace.FlagsSampled,
	})
	require.NoError(t, bus.Publish(trace.ContextWithSpanContext(ctx, sc), receiptEvent{OrderID: "o-7"}))

	require.Eventually(t, func() bool { return len(w.written()) == 1 }, 2*time.Second, 5*time.Millisecond)
	msg := w.written()[0]
	carrier := headerCarrier{msg: &msg}
	assert.Contains(t, carrier.Get("traceparent"), sc.TraceID().String())
	assert.Equal(t, "o-7", string(msg.Key))
}
