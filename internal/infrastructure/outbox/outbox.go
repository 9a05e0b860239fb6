package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	domoutbox "github.com/Zhima-Mochi/pizzashop/internal/domain/outbox"
	"github.com/Zhima-Mochi/pizzashop/internal/observability"
	"github.com/Zhima-Mochi/pizzashop/internal/observability/logctx"
)

const (
	componentOutbox    = "outbox"
	defaultQueueSize   = 1024
	defaultConcurrency = 8
	handlerTimeout     = 30 * time.Second
)

var ErrBusStopped = errors.New("outbox: bus stopped")

// Bus is an in-memory event bus for fanout to in-process subscribers.
// It is not durable: events still queued when Stop runs are dropped.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]domoutbox.Handler

	stateMu sync.RWMutex
	started bool
	closed  bool

	queue       chan envelope
	done        chan struct{}
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	concurrency int
	log         observability.Logger
}

// envelope keeps the publisher's span context with the event so handlers join its trace.
type envelope struct {
	sc    trace.SpanContext
	event domoutbox.Event
}

var (
	_ domoutbox.Publisher  = (*Bus)(nil)
	_ domoutbox.Subscriber = (*Bus)(nil)
)

type Option func(*Bus)

// WithQueueSize sets the enqueue buffer; Publish blocks once it is full.
func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queue = make(chan envelope, n)
		}
	}
}

// WithConcurrency caps the handlers run in parallel for one event.
func WithConcurrency(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

func NewBus(logger observability.Logger, opts ...Option) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	b := &Bus{
		subs:        make(map[string][]domoutbox.Handler),
		queue:       make(chan envelope, defaultQueueSize),
		done:        make(chan struct{}),
		concurrency: defaultConcurrency,
		log:         logger.With(observability.F("component", componentOutbox)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	if b.started || b.closed {
		return
	}
	b.started = true

	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancel = cancel
	b.wg.Add(1)
	go b.dispatchLoop(bg)

	logctx.FromOr(ctx, b.log).Info("event_bus_started")
}

// Stop halts dispatch and waits for the in-flight fanout to return.
func (b *Bus) Stop(ctx context.Context) {
	b.stateMu.Lock()
	if b.closed {
		b.stateMu.Unlock()
		return
	}
	b.closed = true
	close(b.done)
	if b.cancel != nil {
		b.cancel()
	}
	b.stateMu.Unlock()

	b.wg.Wait()
	logctx.FromOr(ctx, b.log).Info("event_bus_stopped",
		observability.F("dropped", len(b.queue)),
	)
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))

	b.stateMu.RLock()
	closed := b.closed
	b.stateMu.RUnlock()
	if closed {
		logger.Warn("event_enqueue_rejected", observability.F("error", ErrBusStopped))
		return ErrBusStopped
	}

	select {
	case b.queue <- envelope{sc: trace.SpanContextFromContext(ctx), event: e}:
		logger.Debug("event_enqueued")
		return nil
	case <-b.done:
		logger.Warn("event_enqueue_rejected", observability.F("error", ErrBusStopped))
		return ErrBusStopped
	case <-ctx.Done():
		logger.Warn("event_enqueue_aborted", observability.F("error", ctx.Err()))
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-b.queue:
			b.fanout(ctx, env)
		}
	}
}

func (b *Bus) fanout(ctx context.Context, env envelope) {
	e := env.event
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debug("event_dropped_no_subscriber", observability.F("event", name))
		return
	}

	// Handlers finish even when Stop cancels the loop.
	ctx = context.WithoutCancel(ctx)
	if env.sc.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, env.sc)
	}

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			hctx := withEventContext(ctx, b.log, name)
			logger := logctx.FromOr(hctx, b.log)
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(hctx, handlerTimeout)
			defer cancel()
			if err := h(hctx, e); err != nil {
				logger.Warn("event_handler_error", observability.F("error", err))
			}
		}()
	}

	wg.Wait()

	b.log.Debug("event_fanned_out",
		observability.F("event", name),
		observability.F("handlers", len(handlers)),
	)
}
