package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/pizzashop/internal/application"
	domorder "github.com/Zhima-Mochi/pizzashop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/pizzashop/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/pizzashop/internal/domain/payment"
	"github.com/Zhima-Mochi/pizzashop/internal/observability"
	"github.com/Zhima-Mochi/pizzashop/internal/observability/logctx"
)

const (
	paymentService  = "payment-service"
	useCaseSettle   = "payment.settle"
	paymentSpanName = "SettleOrder"
)

type SettleInput struct {
	Order  *domorder.Order
	Method string
}

type SettleResult struct {
	Order  *domorder.Order
	Record *dompay.Record
}

// SettleUseCase charges a finalized order through the chosen method.
type SettleUseCase struct {
	methods  *Registry
	events   *application.EventPublisher
	log      observability.Logger
	tracer   observability.Tracer
	red      application.RED
	payments observability.Counter // payments_total{method}
}

var _ application.UseCase[SettleInput, *SettleResult] = (*SettleUseCase)(nil)

func NewSettleUseCase(methods *Registry, publisher domoutbox.Publisher, tel observability.Observability) *SettleUseCase {
	logger, tracer, metrics := observability.Resolve(tel)
	return &SettleUseCase{
		methods:  methods,
		events:   application.NewEventPublisher(publisher, metrics),
		log:      logger.With(observability.F("service", paymentService)),
		tracer:   tracer,
		red:      application.NewRED(metrics),
		payments: metrics.Counter(observability.MPayments),
	}
}

// Execute resolves the method, pays the order total and marks the order paid. No
// record is produced unless every step succeeds.
func (uc *SettleUseCase) Execute(ctx context.Context, cmd SettleInput) (_ *SettleResult, err error) {
	if cmd.Order == nil {
		return nil, errors.New("payment: settle: order is required")
	}
	o := cmd.Order
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseSettle),
		observability.F("order_id", o.ID),
		observability.F("method", cmd.Method),
	)

	ctx, span := uc.tracer.Start(ctx, application.SpanPrefix+paymentSpanName,
		attribute.String("use_case", useCaseSettle),
		attribute.String("order.id", o.ID),
		attribute.String("payment.method", cmd.Method),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	amount := o.Cost()
	var record *dompay.Record
	var publishErr error

	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		latency := uc.red.Observe(useCaseSettle, outcome, start)
		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", latency),
			observability.F("amount", amount.StringFixed(2)),
		}
		fields = append(fields, observability.TraceFields(ctx)...)
		if record != nil {
			fields = append(fields, observability.F("payment_id", record.ID))
		}
		if publishErr != nil {
			fields = append(fields, observability.F("event_publish_error", publishErr.Error()))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	method, lookupErr := uc.methods.Lookup(cmd.Method)
	if lookupErr != nil {
		outcome, statusText = "rejected", "UNKNOWN_METHOD"
		return nil, fmt.Errorf("payment: settle: %w: %w", domorder.ErrUnknownSelection, lookupErr)
	}
	if o.Status != domorder.StatusFinalized {
		outcome, statusText = "rejected", "ORDER_NOT_FINALIZED"
		return nil, fmt.Errorf("payment: settle: %w: order is %s", domorder.ErrInvalidStateTransition, o.Status)
	}

	record, err = method.Pay(ctx, amount)
	if err != nil {
		outcome, statusText = "error", "PAYMENT_FAILED"
		return nil, fmt.Errorf("payment: settle: %w", err)
	}
	record.OrderID = o.ID

	paid, err := o.MarkPaid()
	if err != nil {
		outcome, statusText = "error", "STATE_TRANSITION_FAILED"
		return nil, fmt.Errorf("payment: settle: %w", err)
	}

	uc.payments.Add(1, observability.L("method", string(method.Tag())))
	span.AddEvent("payment.completed", trace.WithAttributes(
		attribute.String("payment.id", record.ID),
		attribute.String("payment.amount", amount.StringFixed(2)),
	))
	publishErr = uc.events.Publish(ctx, dompay.NewPaymentCompletedEvent(record))

	return &SettleResult{Order: paid, Record: record}, nil
}
