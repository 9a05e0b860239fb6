package inventory

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Zhima-Mochi/pizzashop/internal/application"
	dominv "github.com/Zhima-Mochi/pizzashop/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/pizzashop/internal/domain/outbox"
	"github.com/Zhima-Mochi/pizzashop/internal/observability"
	"github.com/Zhima-Mochi/pizzashop/internal/observability/logctx"
)

const (
	workerService     = "inventory_worker"
	useCaseStockAlert = "inventory.worker.stockout"
)

// StockWorker watches failed reservations and reports items that have run out.
type StockWorker struct {
	subscriber domoutbox.Subscriber
	log        observability.Logger
	tracer     observability.Tracer
	red        application.RED
	stockouts  observability.Counter // inventory_stockouts_total{item}

	mu       sync.Mutex
	depleted map[string]time.Time
}

func NewStockWorker(subscriber domoutbox.Subscriber, tel observability.Observability) *StockWorker {
	logger, tracer, metrics := observability.Resolve(tel)
	return &StockWorker{
		subscriber: subscriber,
		log:        logger.With(observability.F("service", workerService)),
		tracer:     tracer,
		red:        application.NewRED(metrics),
		stockouts:  metrics.Counter(observability.MInventoryStockouts),
		depleted:   make(map[string]time.Time),
	}
}

func (w *StockWorker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(dominv.InventoryReservationFailedEvent{}.EventName(), w.handleReservationFailed)
}

// Depleted lists the items first seen out of stock, with the time of that first denial.
func (w *StockWorker) Depleted() map[string]time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]time.Time, len(w.depleted))
	for k, v := range w.depleted {
		out[k] = v
	}
	return out
}

func (w *StockWorker) handleReservationFailed(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(dominv.InventoryReservationFailedEvent)
	if !ok {
		w.red.Observe(useCaseStockAlert, "ignored", time.Now())
		return nil
	}

	ctx, span := w.tracer.Start(ctx, application.SpanPrefix+"ReservationFailed",
		attribute.String("use_case", useCaseStockAlert),
		attribute.String("inventory.item", evt.Item),
	)
	start := time.Now()
	outcome, status := "success", "OK"

	ctx, logger := logctx.Enrich(ctx, w.log,
		observability.F("use_case", useCaseStockAlert),
		observability.F("order_id", evt.OrderID),
		observability.F("item", evt.Item),
	)
	logger = logger.With(observability.TraceFields(ctx)...)

	defer func() {
		latency := w.red.Observe(useCaseStockAlert, outcome, start)
		logger.Info("use_case_done",
			observability.F("outcome", outcome),
			observability.F("status", status),
			observability.F("latency_seconds", latency),
			observability.F("failure_reason", evt.Reason),
		)
		span.SetStatus(codes.Ok, status)
		span.End()
	}()

	if evt.Reason != dominv.FailureReasonOutOfStock {
		outcome, status = "ignored", "NOT_A_STOCKOUT"
		return nil
	}

	w.stockouts.Add(1, observability.L("item", evt.Item))

	w.mu.Lock()
	_, seen := w.depleted[evt.Item]
	if !seen {
		w.depleted[evt.Item] = evt.OccurredAt
	}
	w.mu.Unlock()

	logger.Warn("item_out_of_stock", observability.F("first_seen", !seen))
	return nil
}
