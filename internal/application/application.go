package application

import (
	"context"
	"time"

	domoutbox "github.com/Zhima-Mochi/pizzashop/internal/domain/outbox"
	"github.com/Zhima-Mochi/pizzashop/internal/observability"
)

const (
	SpanPrefix     = "UC."
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

// IDGenerator issues identifiers for orders and sessions.
type IDGenerator interface {
	NewID() string
}

// EventPublisher publishes domain events with a bounded wait and records the call as
// an external request against the outbox.
type EventPublisher struct {
	publisher    domoutbox.Publisher
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewEventPublisher(publisher domoutbox.Publisher, metrics observability.Metrics) *EventPublisher {
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &EventPublisher{
		publisher:    publisher,
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

func (p *EventPublisher) Publish(ctx context.Context, event domoutbox.Event) error {
	if p == nil || p.publisher == nil || event == nil {
		return nil
	}
	endpoint := event.EventName()

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	start := time.Now()
	err := p.publisher.Publish(pubCtx, event)
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else if pubCtx.Err() != nil {
		outcome = "canceled"
		err = pubCtx.Err()
	}
	cancel()

	p.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	p.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", endpoint),
	)
	return err
}

// RED bundles the per-use-case request counter and duration histogram.
type RED struct {
	requests observability.Counter   // usecase_requests_total{use_case,outcome}
	duration observability.Histogram // usecase_duration_seconds{use_case}
}

func NewRED(metrics observability.Metrics) RED {
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return RED{
		requests: metrics.Counter(observability.MUsecaseRequests),
		duration: metrics.Histogram(observability.MUsecaseDuration),
	}
}

func (r RED) Observe(useCase, outcome string, since time.Time) float64 {
	latency := time.Since(since).Seconds()
	if r.requests != nil {
		r.requests.Add(1,
			observability.L("use_case", useCase),
			observability.L("outcome", outcome),
		)
	}
	if r.duration != nil {
		r.duration.Observe(latency, observability.L("use_case", useCase))
	}
	return latency
}
