package payment

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Zhima-Mochi/pizzashop/internal/application"
	domoutbox "github.com/Zhima-Mochi/pizzashop/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/pizzashop/internal/domain/payment"
	"github.com/Zhima-Mochi/pizzashop/internal/observability"
	"github.com/Zhima-Mochi/pizzashop/internal/observability/logctx"
)

const (
	paymentWorker      = "payment_worker"
	useCaseReceipt     = "payment.worker.receipt"
	defaultReceiptKeep = 50
)

// ReceiptWorker logs every payment confirmation and keeps the most recent ones.
type ReceiptWorker struct {
	subscriber domoutbox.Subscriber
	log        observability.Logger
	tracer     observability.Tracer
	red        application.RED

	mu       sync.Mutex
	keep     int
	receipts []dompay.Record
}

func NewReceiptWorker(subscriber domoutbox.Subscriber, keep int, tel observability.Observability) *ReceiptWorker {
	if keep <= 0 {
		keep = defaultReceiptKeep
	}
	logger, tracer, metrics := observability.Resolve(tel)
	return &ReceiptWorker{
		subscriber: subscriber,
		log:        logger.With(observability.F("service", paymentWorker)),
		tracer:     tracer,
		red:        application.NewRED(metrics),
		keep:       keep,
	}
}

func (w *ReceiptWorker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(dompay.PaymentCompletedEvent{}.EventName(), w.handlePaymentCompleted)
}

// Recent returns the kept receipts, newest first.
func (w *ReceiptWorker) Recent() []dompay.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]dompay.Record, len(w.receipts))
	for i, r := range w.receipts {
		out[len(w.receipts)-1-i] = r
	}
	return out
}

func (w *ReceiptWorker) handlePaymentCompleted(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(dompay.PaymentCompletedEvent)
	if !ok {
		w.red.Observe(useCaseReceipt, "ignored", time.Now())
		return nil
	}
	rec := evt.Record

	ctx, span := w.tracer.Start(ctx, application.SpanPrefix+"PaymentCompleted",
		attribute.String("use_case", useCaseReceipt),
		attribute.String("order.id", rec.OrderID),
	)
	start := time.Now()
	ctx, logger := logctx.Enrich(ctx, w.log,
		observability.F("use_case", useCaseReceipt),
		observability.F("order_id", rec.OrderID),
		observability.F("payment_id", rec.ID),
	)
	logger = logger.With(observability.TraceFields(ctx)...)

	w.mu.Lock()
	w.receipts = append(w.receipts, rec)
	if over := len(w.receipts) - w.keep; over > 0 {
		w.receipts = append([]dompay.Record(nil), w.receipts[over:]...)
	}
	w.mu.Unlock()

	logger.Info("payment_confirmed",
		observability.F("method", string(rec.Method)),
		observability.F("amount", rec.Amount.StringFixed(2)),
		observability.F("confirmation", rec.Confirmation()),
	)

	latency := w.red.Observe(useCaseReceipt, "success", start)
	logger.Info("use_case_done",
		observability.F("outcome", "success"),
		observability.F("status", "OK"),
		observability.F("latency_seconds", latency),
	)
	span.SetStatus(codes.Ok, "OK")
	span.End()
	return nil
}
