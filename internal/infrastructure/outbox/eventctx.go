package outbox

import (
	"context"

	"github.com/google/uuid"

	"github.com/Zhima-Mochi/pizzashop/internal/observability"
	"github.com/Zhima-Mochi/pizzashop/internal/observability/logctx"
)

// withEventContext gives each handler invocation its own logger carrying a fresh
// event_id, the event name and any trace ids already on ctx.
func withEventContext(ctx context.Context, base observability.Logger, eventName string) context.Context {
	fields := make([]observability.Field, 0, 4)
	fields = append(fields,
		observability.F("event_id", uuid.NewString()),
		observability.F("event", eventName),
	)
	fields = append(fields, observability.TraceFields(ctx)...)
	return logctx.With(ctx, base.With(fields...))
}
