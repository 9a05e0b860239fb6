package compose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/pizzashop/internal/application"
	appinv "github.com/Zhima-Mochi/pizzashop/internal/application/inventory"
	"github.com/Zhima-Mochi/pizzashop/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/pizzashop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/pizzashop/internal/domain/outbox"
	"github.com/Zhima-Mochi/pizzashop/internal/observability"
	"github.com/Zhima-Mochi/pizzashop/internal/observability/logctx"
)

const (
	composeService    = "compose-service"
	useCaseStartOrder = "order.start"
	useCaseAddTopping = "order.add_topping"
)

// Reserver claims inventory for one catalog entry.
type Reserver = application.UseCase[appinv.ReserveInput, *appinv.ReservationResult]

// Chain builds orders one reserved entry at a time. Each step checks stock for the
// entry it is about to add; a denied step leaves the order as it was. Units reserved
// by earlier steps are never released.
type Chain struct {
	menu    *catalog.Registry
	reserve Reserver
	ids     application.IDGenerator
	events  *application.EventPublisher
	log     observability.Logger
	tracer  observability.Tracer
	red     application.RED
}

func NewChain(
	menu *catalog.Registry,
	reserve Reserver,
	ids application.IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *Chain {
	logger, tracer, metrics := observability.Resolve(tel)
	return &Chain{
		menu:    menu,
		reserve: reserve,
		ids:     ids,
		events:  application.NewEventPublisher(publisher, metrics),
		log:     logger.With(observability.F("service", composeService)),
		tracer:  tracer,
		red:     application.NewRED(metrics),
	}
}

// StartOrder reserves the base named by code and opens a new order around it.
func (c *Chain) StartOrder(ctx context.Context, code string) (_ *domorder.Order, err error) {
	ctx, span := c.tracer.Start(ctx, application.SpanPrefix+"StartOrder",
		attribute.String("use_case", useCaseStartOrder),
		attribute.String("selection.code", code),
	)
	ctx, logger := logctx.Enrich(ctx, c.log,
		observability.F("use_case", useCaseStartOrder),
		observability.F("code", code),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	var o *domorder.Order
	var publishErr error

	defer func() {
		c.finish(ctx, span, logger, useCaseStartOrder, start, outcome, statusText, o, publishErr, err)
	}()

	base, lookupErr := c.menu.Base(code)
	if lookupErr != nil {
		outcome, statusText = "rejected", "UNKNOWN_BASE"
		return nil, fmt.Errorf("compose: start order: %w: %w", domorder.ErrUnknownSelection, lookupErr)
	}

	orderID := c.ids.NewID()
	logger = logger.With(observability.F("order_id", orderID))
	res, resErr := c.reserve.Execute(ctx, appinv.ReserveInput{OrderID: orderID, Item: base.Name})
	if resErr != nil {
		outcome, statusText = "error", "RESERVE_FAILED"
		return nil, fmt.Errorf("compose: start order: %w", resErr)
	}
	if !res.Reserved {
		outcome, statusText = "rejected", "OUT_OF_STOCK"
		return nil, fmt.Errorf("compose: start order: %w: %s", domorder.ErrOutOfStock, base.Name)
	}

	o, err = domorder.New(orderID, base)
	if err != nil {
		outcome, statusText = "error", "DOMAIN_CONSTRUCTION_FAILED"
		return nil, fmt.Errorf("compose: start order: %w", err)
	}

	span.AddEvent("order.started", trace.WithAttributes(attribute.String("order.id", o.ID)))
	publishErr = c.events.Publish(ctx, domorder.NewOrderStartedEvent(o))
	return o, nil
}

// AddTopping reserves the topping named by code and returns o extended with it.
// On any failure the returned order is o itself.
func (c *Chain) AddTopping(ctx context.Context, o *domorder.Order, code string) (_ *domorder.Order, err error) {
	if o == nil {
		return nil, errors.New("compose: add topping: nil order")
	}
	ctx, span := c.tracer.Start(ctx, application.SpanPrefix+"AddTopping",
		attribute.String("use_case", useCaseAddTopping),
		attribute.String("order.id", o.ID),
		attribute.String("selection.code", code),
	)
	ctx, logger := logctx.Enrich(ctx, c.log,
		observability.F("use_case", useCaseAddTopping),
		observability.F("order_id", o.ID),
		observability.F("code", code),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	next := o
	var publishErr error

	defer func() {
		c.finish(ctx, span, logger, useCaseAddTopping, start, outcome, statusText, next, publishErr, err)
	}()

	if o.Status != domorder.StatusOpen {
		outcome, statusText = "rejected", "ORDER_NOT_OPEN"
		return o, fmt.Errorf("compose: add topping: %w: order is %s", domorder.ErrInvalidStateTransition, o.Status)
	}

	topping, lookupErr := c.menu.Topping(code)
	if lookupErr != nil {
		outcome, statusText = "rejected", "UNKNOWN_TOPPING"
		return o, fmt.Errorf("compose: add topping: %w: %w", domorder.ErrUnknownSelection, lookupErr)
	}

	res, resErr := c.reserve.Execute(ctx, appinv.ReserveInput{OrderID: o.ID, Item: topping.Name})
	if resErr != nil {
		outcome, statusText = "error", "RESERVE_FAILED"
		return o, fmt.Errorf("compose: add topping: %w", resErr)
	}
	if !res.Reserved {
		outcome, statusText = "rejected", "OUT_OF_STOCK"
		return o, fmt.Errorf("compose: add topping: %w: %s", domorder.ErrOutOfStock, topping.Name)
	}

	extended, wErr := o.WithTopping(topping)
	if wErr != nil {
		outcome, statusText = "error", "DOMAIN_TRANSITION_FAILED"
		return o, fmt.Errorf("compose: add topping: %w", wErr)
	}
	next = extended

	span.AddEvent("order.topping_added", trace.WithAttributes(attribute.String("topping", topping.Name)))
	publishErr = c.events.Publish(ctx, domorder.NewOrderToppingAddedEvent(next, topping.Name))
	return next, nil
}

func (c *Chain) finish(
	ctx context.Context,
	span trace.Span,
	logger observability.Logger,
	useCase string,
	start time.Time,
	outcome, statusText string,
	o *domorder.Order,
	publishErr, err error,
) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, statusText)
	} else {
		span.SetStatus(codes.Ok, statusText)
	}
	if o != nil {
		span.SetAttributes(attribute.String("order.cost", o.Cost().StringFixed(2)))
	}
	span.End()

	latency := c.red.Observe(useCase, outcome, start)
	fields := []observability.Field{
		observability.F("outcome", outcome),
		observability.F("status", statusText),
		observability.F("latency_seconds", latency),
	}
	fields = append(fields, observability.TraceFields(ctx)...)
	if o != nil {
		fields = append(fields, observability.F("cost", o.Cost().StringFixed(2)))
	}
	if publishErr != nil {
		fields = append(fields, observability.F("event_publish_error", publishErr.Error()))
	}
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	logger.Info("use_case_done", fields...)
}
