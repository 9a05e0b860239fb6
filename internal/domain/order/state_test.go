package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStateHappyPath(t *testing.T) {
	s := InitialState()
	assert.Equal(t, PhaseSelectingBase, s.Phase())

	var err error
	s, err = s.OnBaseSelected()
	require.NoError(t, err)
	assert.Equal(t, PhaseSelectingToppings, s.Phase())

	s, err = s.OnToppingSelected()
	require.NoError(t, err)
	assert.Equal(t, PhaseSelectingToppings, s.Phase())

	s, err = s.OnFinish()
	require.NoError(t, err)
	assert.Equal(t, PhaseFinalized, s.Phase())

	s, err = s.OnPaid()
	require.NoError(t, err)
	assert.Equal(t, PhasePaid, s.Phase())
}

func TestSessionStateRejects(t *testing.T) {
	tests := []struct {
		name string
		try  func() (SessionState, error)
	}{
		{"topping before base", InitialState().OnToppingSelected},
		{"finish before base", InitialState().OnFinish},
		{"pay before base", InitialState().OnPaid},
		{"second base", selectingToppingsState{}.OnBaseSelected},
		{"pay before finish", selectingToppingsState{}.OnPaid},
		{"topping after finish", finalizedState{}.OnToppingSelected},
		{"finish twice", finalizedState{}.OnFinish},
		{"pay twice", paidState{}.OnPaid},
		{"cancel after pay", paidState{}.OnCancel},
		{"base after cancel", cancelledState{}.OnBaseSelected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := tt.try()
			assert.ErrorIs(t, err, ErrInvalidStateTransition)
			assert.Nil(t, next)
		})
	}
}

func TestSessionStateCancel(t *testing.T) {
	for _, s := range []SessionState{selectingBaseState{}, selectingToppingsState{}, finalizedState{}} {
		next, err := s.OnCancel()
		require.NoError(t, err)
		assert.Equal(t, PhaseCancelled, next.Phase())
	}
}
