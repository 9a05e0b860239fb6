package order

// Phase is where a selection session stands.
type Phase string

const (
	PhaseSelectingBase     Phase = "selecting_base"
	PhaseSelectingToppings Phase = "selecting_toppings"
	PhaseFinalized         Phase = "finalized"
	PhasePaid              Phase = "paid"
	PhaseCancelled         Phase = "cancelled"
)

// SessionState implements the state pattern for the selection flow. States carry no
// data, so calling a transition only computes the next state; the caller commits it.
type SessionState interface {
	Phase() Phase
	OnBaseSelected() (SessionState, error)
	OnToppingSelected() (SessionState, error)
	OnFinish() (SessionState, error)
	OnPaid() (SessionState, error)
	OnCancel() (SessionState, error)
}

// InitialState is where every session starts.
func InitialState() SessionState { return selectingBaseState{} }

type selectingBaseState struct{}

func (selectingBaseState) Phase() Phase { return PhaseSelectingBase }

func (selectingBaseState) OnBaseSelected() (SessionState, error) {
	return selectingToppingsState{}, nil
}

func (selectingBaseState) OnToppingSelected() (SessionState, error) {
	return nil, ErrInvalidStateTransition
}

func (selectingBaseState) OnFinish() (SessionState, error) {
	return nil, ErrInvalidStateTransition
}

func (selectingBaseState) OnPaid() (SessionState, error) {
	return nil, ErrInvalidStateTransition
}

func (selectingBaseState) OnCancel() (SessionState, error) {
	return cancelledState{}, nil
}

type selectingToppingsState struct{}

func (selectingToppingsState) Phase() Phase { return PhaseSelectingToppings }

func (selectingToppingsState) OnBaseSelected() (SessionState, error) {
	return nil, ErrInvalidStateTransition
}

func (selectingToppingsState) OnToppingSelected() (SessionState, error) {
	return selectingToppingsState{}, nil
}

func (selectingToppingsState) OnFinish() (SessionState, error) {
	return finalizedState{}, nil
}

func (selectingToppingsState) OnPaid() (SessionState, error) {
	return nil, ErrInvalidStateTransition
}

func (selectingToppingsState) OnCancel() (SessionState, error) {
	return cancelledState{}, nil
}

type finalizedState struct{}

func (finalizedState) Phase() Phase { return PhaseFinalized }

func (finalizedState) OnBaseSelected() (SessionState, error) {
	return nil, ErrInvalidStateTransition
}

func (finalizedState) OnToppingSelected() (SessionState, error) {
	return nil, ErrInvalidStateTransition
}

func (finalizedState) OnFinish() (SessionState, error) {
	return nil, ErrInvalidStateTransition
}

func (finalizedState) OnPaid() (SessionState, error) {
	return paidState{}, nil
}

func (finalizedState) OnCancel() (SessionState, error) {
	return cancelledState{}, nil
}

type paidState struct{}

func (paidState) Phase() Phase { return PhasePaid }

func (paidState) OnBaseSelected() (SessionState, error)    { return nil, ErrInvalidStateTransition }
func (paidState) OnToppingSelected() (SessionState, error) { return nil, ErrInvalidStateTransition }
func (paidState) OnFinish() (SessionState, error)          { return nil, ErrInvalidStateTransition }
func (paidState) OnPaid() (SessionState, error)            { return nil, ErrInvalidStateTransition }
func (paidState) OnCancel() (SessionState, error)          { return nil, ErrInvalidStateTransition }

type cancelledState struct{}

func (cancelledState) Phase() Phase { return PhaseCancelled }

func (cancelledState) OnBaseSelected() (SessionState, error)    { return nil, ErrInvalidStateTransition }
func (cancelledState) OnToppingSelected() (SessionState, error) { return nil, ErrInvalidStateTransition }
func (cancelledState) OnFinish() (SessionState, error)          { return nil, ErrInvalidStateTransition }
func (cancelledState) OnPaid() (SessionState, error)            { return nil, ErrInvalidStateTransition }
func (cancelledState) OnCancel() (SessionState, error)          { return nil, ErrInvalidStateTransition }
