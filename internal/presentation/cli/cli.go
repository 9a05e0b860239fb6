package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Zhima-Mochi/pizzashop/internal/application/assembler"
	apppay "github.com/Zhima-Mochi/pizzashop/internal/application/payment"
	"github.com/Zhima-Mochi/pizzashop/internal/domain/catalog"
	dominv "github.com/Zhima-Mochi/pizzashop/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/pizzashop/internal/domain/order"
	dompay "github.com/Zhima-Mochi/pizzashop/internal/domain/payment"
	"github.com/Zhima-Mochi/pizzashop/internal/observability"
	"github.com/Zhima-Mochi/pizzashop/internal/observability/logctx"
)

const finishChoice = "finish"

type Deps struct {
	Menu      *catalog.Registry
	Methods   *apppay.Registry
	Inventory dominv.Store
	Assembler *assembler.Assembler
}

// Runner drives one interactive order over a line-oriented terminal.
type Runner struct {
	deps Deps
	in   *bufio.Scanner
	out  io.Writer
	log  observability.Logger
}

func New(in io.Reader, out io.Writer, deps Deps, logger observability.Logger) *Runner {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Runner{
		deps: deps,
		in:   bufio.NewScanner(in),
		out:  out,
		log:  logger.With(observability.F("component", "cli")),
	}
}

// Run walks the customer through one order. End of input at any prompt ends the
// session quietly; only write failures and input errors are returned.
func (r *Runner) Run(ctx context.Context) error {
	session := r.deps.Assembler.NewSession()
	ctx, logger := logctx.Enrich(ctx, r.log, observability.F("session_id", session.ID()))
	logger.Info("cli_session_started")

	ok, err := r.chooseBase(ctx, session)
	if err != nil || !ok {
		return r.abandon(ctx, session, err)
	}
	ok, err = r.chooseToppings(ctx, session)
	if err != nil || !ok {
		return r.abandon(ctx, session, err)
	}

	summary, err := session.Finish(ctx)
	if err != nil {
		return err
	}
	r.printf("\nYour order:\n")
	r.printf("Description: %s\n", summary.Description)
	r.printf("Total cost: $%s\n", summary.Cost.StringFixed(2))

	rec, ok, err := r.choosePayment(ctx, session)
	if err != nil || !ok {
		return r.abandon(ctx, session, err)
	}
	if rec != nil {
		r.printf("%s\n", rec.Confirmation())
	}

	return r.printInventory(ctx)
}

func (r *Runner) chooseBase(ctx context.Context, s *assembler.Session) (bool, error) {
	for {
		r.printf("\nChoose your base:\n")
		for _, e := range r.deps.Menu.Bases() {
			r.printf("%s. %s ($%s)\n", e.Code, e.Name, e.Price.StringFixed(2))
		}
		line, ok, err := r.prompt()
		if err != nil || !ok {
			return false, err
		}
		if _, err := s.SelectBase(ctx, line); err != nil {
			r.printError(err)
			continue
		}
		return true, nil
	}
}

func (r *Runner) chooseToppings(ctx context.Context, s *assembler.Session) (bool, error) {
	toppings := r.deps.Menu.Toppings()
	finish := finishCode(toppings)
	for {
		r.printf("\nAvailable toppings:\n")
		for _, e := range toppings {
			r.printf("%s. %s (+$%s)\n", e.Code, e.Name, e.Price.StringFixed(2))
		}
		r.printf("%s. Finish order\n", finish)

		line, ok, err := r.prompt()
		if err != nil || !ok {
			return false, err
		}
		if line == finish || strings.EqualFold(line, finishChoice) {
			return true, nil
		}
		if o, err := s.AddTopping(ctx, line); err != nil {
			r.printError(err)
		} else {
			r.printf("Current pizza: %s ($%s)\n", o.Description(), o.Cost().StringFixed(2))
		}
	}
}

// choosePayment asks once; an invalid choice is reported and nothing is charged.
func (r *Runner) choosePayment(ctx context.Context, s *assembler.Session) (*dompay.Record, bool, error) {
	r.printf("\nChoose payment method:\n")
	for _, m := range r.deps.Methods.List() {
		r.printf("%s. %s\n", m.Code, m.Name)
	}
	line, ok, err := r.prompt()
	if err != nil || !ok {
		return nil, false, err
	}
	rec, err := s.Pay(ctx, line)
	if err != nil {
		r.printError(err)
		return nil, true, nil
	}
	return rec, true, nil
}

func (r *Runner) printInventory(ctx context.Context) error {
	snap, err := r.deps.Inventory.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("cli: inventory: %w", err)
	}
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	r.printf("\nRemaining Inventory:\n")
	for _, name := range names {
		r.printf("%s: %d\n", name, snap[name])
	}
	return nil
}

func (r *Runner) abandon(ctx context.Context, s *assembler.Session, err error) error {
	if err != nil {
		return err
	}
	logctx.FromOr(ctx, r.log).Info("cli_input_closed", observability.F("phase", string(s.Phase())))
	r.printf("\n")
	return nil
}

func (r *Runner) prompt() (string, bool, error) {
	r.printf("Enter the number of your choice: ")
	if !r.in.Scan() {
		if err := r.in.Err(); err != nil {
			return "", false, fmt.Errorf("cli: read: %w", err)
		}
		return "", false, nil
	}
	return strings.TrimSpace(r.in.Text()), true, nil
}

func (r *Runner) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func (r *Runner) printError(err error) {
	r.printf("Error! %s\n", describe(err))
}

func describe(err error) string {
	switch {
	case errors.Is(err, domorder.ErrOutOfStock):
		return "That item is out of stock."
	case errors.Is(err, dompay.ErrUnknownMethod):
		return "Unknown payment method."
	case errors.Is(err, domorder.ErrUnknownSelection):
		return "Invalid choice."
	case errors.Is(err, domorder.ErrInvalidStateTransition):
		return "That step is not allowed now."
	default:
		return err.Error()
	}
}

// finishCode is the first numeric code after the toppings, "4" for the house menu.
func finishCode(toppings []catalog.Entry) string {
	return fmt.Sprint(len(toppings) + 1)
}
