package assembler

import (
	"context"

	"github.com/Zhima-Mochi/pizzashop/internal/application"
	apppay "github.com/Zhima-Mochi/pizzashop/internal/application/payment"
	domorder "github.com/Zhima-Mochi/pizzashop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/pizzashop/internal/domain/outbox"
	"github.com/Zhima-Mochi/pizzashop/internal/observability"
)

const assemblerService = "assembler"

// Composer builds orders entry by entry.
type Composer interface {
	StartOrder(ctx context.Context, code string) (*domorder.Order, error)
	AddTopping(ctx context.Context, o *domorder.Order, code string) (*domorder.Order, error)
}

// Settler charges a finalized order.
type Settler = application.UseCase[apppay.SettleInput, *apppay.SettleResult]

// Assembler creates sessions that share one chain and one settle use case.
type Assembler struct {
	chain  Composer
	settle Settler
	ids    application.IDGenerator
	events *application.EventPublisher
	log    observability.Logger
}

func New(
	chain Composer,
	settle Settler,
	ids application.IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *Assembler {
	logger, _, metrics := observability.Resolve(tel)
	return &Assembler{
		chain:  chain,
		settle: settle,
		ids:    ids,
		events: application.NewEventPublisher(publisher, metrics),
		log:    logger.With(observability.F("service", assemblerService)),
	}
}

// NewSession starts a session in the SelectingBase phase.
func (a *Assembler) NewSession() *Session {
	id := a.ids.NewID()
	return &Session{
		id:     id,
		state:  domorder.InitialState(),
		chain:  a.chain,
		settle: a.settle,
		events: a.events,
		log:    a.log.With(observability.F("session_id", id)),
	}
}
