package fsmadapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoriumlabs/grainfsm/fsmtype"
)

func TestPermitDynamicSelectsDestination(t *testing.T) {
	stateReview := fsmtype.State("Review")
	triggerDecide := fsmtype.Trigger("Decide")

	b := NewBuilder(stateOpen)
	b.Configure(stateOpen).PermitDynamic(triggerDecide, "approve-or-reject",
		[]fsmtype.StateSymbol{stateShipped, stateClosed},
		func(_ context.Context, args ...any) (fsmtype.StateSymbol, error) {
			if approved, _ := args[0].(bool); approved {
				return stateShipped, nil
			}
			return stateClosed, nil
		})
	b.Configure(stateShipped)
	b.Configure(stateClosed)
	b.Configure(stateReview)
	m := b.Build()

	ctx := context.Background()
	require.NoError(t, m.Fire(ctx, triggerDecide, true))
	state, err := m.CurrentState(ctx)
	require.NoError(t, err)
	assert.Equal(t, stateShipped, state)
}

func TestIgnoreIsANoOp(t *testing.T) {
	b := NewBuilder(stateOpen)
	b.Configure(stateOpen).Permit(triggerShip, stateShipped).Ignore(triggerClose)
	b.Configure(stateShipped)
	m := b.Build()

	ctx := context.Background()
	require.NoError(t, m.Fire(ctx, triggerClose))
	state, err := m.CurrentState(ctx)
	require.NoError(t, err)
	assert.Equal(t, stateOpen, state)
}

func TestOnEntryAndOnExitActionsFire(t *testing.T) {
	var entered, exited bool
	b := NewBuilder(stateOpen)
	b.Configure(stateOpen).
		Permit(triggerShip, stateShipped).
		OnExit("leave open", func(context.Context, ...any) error { exited = true; return nil })
	b.Configure(stateShipped).
		OnEntry("enter shipped", func(context.Context, ...any) error { entered = true; return nil })
	m := b.Build()

	require.NoError(t, m.Fire(context.Background(), triggerShip))
	assert.True(t, entered)
	assert.True(t, exited)
}

func TestOnEntryActionErrorAbortsTransition(t *testing.T) {
	b := NewBuilder(stateOpen)
	b.Configure(stateOpen).Permit(triggerShip, stateShipped)
	b.Configure(stateShipped).
		OnEntry("always fails", func(context.Context, ...any) error { return assert.AnError })
	m := b.Build()

	err := m.Fire(context.Background(), triggerShip)
	assert.Error(t, err)
}
