package assembler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Zhima-Mochi/pizzashop/internal/application"
	apppay "github.com/Zhima-Mochi/pizzashop/internal/application/payment"
	domorder "github.com/Zhima-Mochi/pizzashop/internal/domain/order"
	dompay "github.com/Zhima-Mochi/pizzashop/internal/domain/payment"
	"github.com/Zhima-Mochi/pizzashop/internal/observability"
	"github.com/Zhima-Mochi/pizzashop/internal/observability/logctx"
)

// Summary is what the customer sees once the order is finalized.
type Summary struct {
	OrderID     string          `json:"order_id"`
	Description string          `json:"description"`
	Cost        decimal.Decimal `json:"cost"`
}

// View is a point-in-time copy of a session for rendering.
type View struct {
	ID          string          `json:"session_id"`
	Phase       domorder.Phase  `json:"phase"`
	OrderID     string          `json:"order_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Cost        decimal.Decimal `json:"cost"`
	Payment     *dompay.Record  `json:"payment,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Session walks one customer through base, toppings, finish and payment. Every event
// first asks the current state for its successor; the successor is committed only
// after the side effect succeeds, so a failed step leaves the phase unchanged.
type Session struct {
	mu        sync.Mutex
	id        string
	state     domorder.SessionState
	order     *domorder.Order
	record    *dompay.Record
	updatedAt time.Time

	chain  Composer
	settle Settler
	events *application.EventPublisher
	log    observability.Logger
}

func (s *Session) ID() string { return s.id }

func (s *Session) Phase() domorder.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Phase()
}

// Order returns the order built so far, or nil before a base is chosen.
func (s *Session) Order() *domorder.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Clone()
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		ID:        s.id,
		Phase:     s.state.Phase(),
		Cost:      decimal.Zero,
		UpdatedAt: s.updatedAt,
	}
	if s.order != nil {
		v.OrderID = s.order.ID
		v.Description = s.order.Description()
		v.Cost = s.order.Cost()
	}
	if s.record != nil {
		rec := *s.record
		v.Payment = &rec
	}
	return v
}

func (s *Session) SelectBase(ctx context.Context, code string) (*domorder.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.OnBaseSelected()
	if err != nil {
		return nil, s.rejected("select base", err)
	}
	o, err := s.chain.StartOrder(s.scope(ctx), code)
	if err != nil {
		return nil, err
	}
	s.order = o
	s.commit(ctx, next)
	return o.Clone(), nil
}

// AddTopping applies one topping. A denied topping keeps the session collecting
// toppings with the order unchanged.
func (s *Session) AddTopping(ctx context.Context, code string) (*domorder.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.OnToppingSelected()
	if err != nil {
		return nil, s.rejected("add topping", err)
	}
	o, err := s.chain.AddTopping(s.scope(ctx), s.order, code)
	if err != nil {
		return s.order.Clone(), err
	}
	s.order = o
	s.commit(ctx, next)
	return o.Clone(), nil
}

// Finish closes the order to toppings and returns its summary.
func (s *Session) Finish(ctx context.Context) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.OnFinish()
	if err != nil {
		return Summary{}, s.rejected("finish", err)
	}
	finalized, err := s.order.Finalize()
	if err != nil {
		return Summary{}, fmt.Errorf("assembler: finish: %w", err)
	}
	s.order = finalized
	s.commit(ctx, next)

	if pubErr := s.events.Publish(ctx, domorder.NewOrderFinalizedEvent(finalized)); pubErr != nil {
		logctx.FromOr(ctx, s.log).Warn("event_publish_failed",
			observability.F("event", domorder.OrderFinalizedEvent{}.EventName()),
			observability.F("error", pubErr),
		)
	}
	return Summary{
		OrderID:     finalized.ID,
		Description: finalized.Description(),
		Cost:        finalized.Cost(),
	}, nil
}

// Pay settles the finalized order. An unknown method leaves the session finalized
// and produces no record.
func (s *Session) Pay(ctx context.Context, method string) (*dompay.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.OnPaid()
	if err != nil {
		return nil, s.rejected("pay", err)
	}
	res, err := s.settle.Execute(s.scope(ctx), apppay.SettleInput{Order: s.order, Method: method})
	if err != nil {
		return nil, err
	}
	s.order = res.Order
	s.record = res.Record
	s.commit(ctx, next)

	rec := *res.Record
	return &rec, nil
}

// Cancel abandons the session. Units already reserved stay reserved.
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.OnCancel()
	if err != nil {
		return s.rejected("cancel", err)
	}
	fields := []observability.Field{observability.F("from_phase", string(s.state.Phase()))}
	if s.order != nil {
		fields = append(fields,
			observability.F("order_id", s.order.ID),
			observability.F("units_kept", len(s.order.Entries())),
		)
	}
	s.commit(ctx, next)
	logctx.FromOr(ctx, s.log).Info("session_cancelled", fields...)
	return nil
}

// scope makes sure downstream use cases log with the session id.
func (s *Session) scope(ctx context.Context) context.Context {
	if logctx.From(ctx) == nil {
		return logctx.With(ctx, s.log)
	}
	ctx, _ = logctx.Enrich(ctx, nil, observability.F("session_id", s.id))
	return ctx
}

func (s *Session) commit(ctx context.Context, next domorder.SessionState) {
	from := s.state.Phase()
	s.state = next
	s.updatedAt = time.Now().UTC()
	logctx.FromOr(ctx, s.log).Debug("session_transition",
		observability.F("from", string(from)),
		observability.F("to", string(next.Phase())),
	)
}

func (s *Session) rejected(op string, err error) error {
	return fmt.Errorf("assembler: %s in phase %s: %w", op, s.state.Phase(), err)
}
