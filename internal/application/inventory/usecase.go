package inventory

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/pizzashop/internal/application"
	dominv "github.com/Zhima-Mochi/pizzashop/internal/domain/inventory"
	domoutbox "github.com/Zhima-Mochi/pizzashop/internal/domain/outbox"
	"github.com/Zhima-Mochi/pizzashop/internal/observability"
	"github.com/Zhima-Mochi/pizzashop/internal/observability/logctx"
)

const (
	inventoryService            = "inventory-service"
	useCaseInventoryReservation = "inventory.reserve"
	inventorySpanName           = "ReserveInventory"
)

type ReserveInput struct {
	OrderID string
	Item    string
}

// ReservationResult exposes the outcome of the inventory reservation attempt.
type ReservationResult struct {
	Reserved      bool
	FailureReason string
}

type ReserveUseCase struct {
	store        dominv.Store
	events       *application.EventPublisher
	log          observability.Logger
	tracer       observability.Tracer
	red          application.RED
	reservations observability.Counter // inventory_reservations_total{item,outcome}
}

var _ application.UseCase[ReserveInput, *ReservationResult] = (*ReserveUseCase)(nil)

func NewReserveUseCase(store dominv.Store, publisher domoutbox.Publisher, tel observability.Observability) *ReserveUseCase {
	logger, tracer, metrics := observability.Resolve(tel)
	return &ReserveUseCase{
		store:        store,
		events:       application.NewEventPublisher(publisher, metrics),
		log:          logger.With(observability.F("service", inventoryService)),
		tracer:       tracer,
		red:          application.NewRED(metrics),
		reservations: metrics.Counter(observability.MInventoryReservations),
	}
}

// Execute claims one unit of in.Item. A denial is a result, not an error; err is set
// only when the store itself fails.
func (uc *ReserveUseCase) Execute(ctx context.Context, in ReserveInput) (_ *ReservationResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseInventoryReservation),
		observability.F("order_id", in.OrderID),
		observability.F("item", in.Item),
	)

	ctx, span := uc.tracer.Start(ctx, application.SpanPrefix+inventorySpanName,
		attribute.String("use_case", useCaseInventoryReservation),
		attribute.String("order.id", in.OrderID),
		attribute.String("inventory.item", in.Item),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	result := &ReservationResult{}
	var publishErr error

	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		latency := uc.red.Observe(useCaseInventoryReservation, outcome, start)
		uc.reservations.Add(1,
			observability.L("item", in.Item),
			observability.L("outcome", outcome),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", latency),
		}
		fields = append(fields, observability.TraceFields(ctx)...)
		if result.FailureReason != "" {
			fields = append(fields, observability.F("failure_reason", result.FailureReason))
		}
		if publishErr != nil {
			fields = append(fields, observability.F("event_error", publishErr.Error()))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	ok, err := uc.store.Reserve(ctx, in.Item)
	if err != nil {
		outcome, statusText = "error", "RESERVE_FAILED"
		result.FailureReason = dominv.FailureReasonBackendError
		publishErr = uc.events.Publish(ctx, dominv.NewInventoryReservationFailedEvent(in.OrderID, in.Item, result.FailureReason))
		return result, fmt.Errorf("inventory: reserve %s: %w", in.Item, err)
	}
	if !ok {
		outcome, statusText = "denied", "OUT_OF_STOCK"
		result.FailureReason = dominv.FailureReasonOutOfStock
		publishErr = uc.events.Publish(ctx, dominv.NewInventoryReservationFailedEvent(in.OrderID, in.Item, result.FailureReason))
		return result, nil
	}

	result.Reserved = true
	span.AddEvent("inventory.reserved", trace.WithAttributes(attribute.String("inventory.item", in.Item)))
	// The unit is already taken; a lost notification must not undo the reservation.
	publishErr = uc.events.Publish(ctx, dominv.NewInventoryReservedEvent(in.OrderID, in.Item))
	return result, nil
}
