package outbox

import "context"

// Event is any domain event with a name identifier.
type Event interface {
	EventName() string
}

// Handler processes a published event.
type Handler func(ctx context.Context, e Event) error

// Publisher publishes events to interested subscribers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers for event names.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}

// PublishFunc adapts a function to Publisher.
type PublishFunc func(ctx context.Context, e Event) error

func (f PublishFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

// Discard drops every event.
var Discard Publisher = PublishFunc(func(context.Context, Event) error { return nil })
