package grainfsm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoriumlabs/grainfsm/compat"
	"github.com/quoriumlabs/grainfsm/eventlog"
	"github.com/quoriumlabs/grainfsm/fsmtype"
	"github.com/quoriumlabs/grainfsm/migrate"
	"github.com/quoriumlabs/grainfsm/registry"
	"github.com/quoriumlabs/grainfsm/saga"
	"github.com/quoriumlabs/grainfsm/shadow"
)

var (
	stateOpen     = fsmtype.State("Open")
	stateShipped  = fsmtype.State("Shipped")
	stateClosed   = fsmtype.State("Closed")
	triggerShip   = fsmtype.Trigger("Ship")
	triggerClose  = fsmtype.Trigger("Close")
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(nil)

	b1 := Configure(stateOpen)
	b1.Configure(stateOpen).Permit(triggerShip, stateShipped)
	b1.Configure(stateShipped).Permit(triggerClose, stateClosed)
	b1.Configure(stateClosed)
	require.NoError(t, reg.Register("order", fsmtype.New(1, 0, 0), "State", "Trigger", b1.Build, registry.Metadata{Description: "v1"}))

	b2 := Configure(stateOpen)
	b2.Configure(stateOpen).Permit(triggerShip, stateShipped)
	b2.Configure(stateShipped).Permit(triggerClose, stateClosed)
	b2.Configure(stateClosed)
	require.NoError(t, reg.Register("order", fsmtype.New(1, 1, 0), "State", "Trigger", b2.Build, registry.Metadata{Description: "v1.1"}))

	return reg
}

func TestGrainCoreSurface(t *testing.T) {
	reg := newRegistry(t)
	g, err := New("order-1", "order", "State", "Trigger", Deps{Reg: reg})
	require.NoError(t, err)

	ctx := context.Background()
	state, err := g.CurrentState(ctx)
	require.NoError(t, err)
	assert.Equal(t, stateOpen, state)

	can, err := g.CanFire(ctx, triggerShip)
	require.NoError(t, err)
	assert.True(t, can)

	require.NoError(t, g.Fire(ctx, triggerShip))
	state, err = g.CurrentState(ctx)
	require.NoError(t, err)
	assert.Equal(t, stateShipped, state)

	in, err := g.InStateOrSubstate(ctx, stateShipped)
	require.NoError(t, err)
	assert.True(t, in)
}

func TestGrainVersionedExtensions(t *testing.T) {
	reg := newRegistry(t)
	g, err := NewAtVersion("order-2", "order", fsmtype.New(1, 0, 0), "State", "Trigger", Deps{Reg: reg})
	require.NoError(t, err)

	assert.Equal(t, fsmtype.New(1, 0, 0), g.GetVersion())
	versions := g.AvailableVersions()
	require.Len(t, versions, 2)
	assert.Equal(t, fsmtype.New(1, 1, 0), versions[0])
}

func TestNewAtVersionRejectsMismatchedTypePair(t *testing.T) {
	reg := newRegistry(t)
	_, err := NewAtVersion("order-mismatch", "order", fsmtype.New(1, 0, 0), "WrongState", "WrongTrigger", Deps{Reg: reg})
	assert.Error(t, err)
}

func TestGrainUpgradeTo(t *testing.T) {
	reg := newRegistry(t)
	checker := compat.NewChecker(reg)
	controller := migrate.NewController(reg, checker, nil, nil)

	g, err := NewAtVersion("order-3", "order", fsmtype.New(1, 0, 0), "State", "Trigger", Deps{Reg: reg, Checker: checker, Migrator: controller})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, g.Fire(ctx, triggerShip))

	report, err := g.UpgradeTo(ctx, fsmtype.New(1, 1, 0), migrate.Automatic)
	require.NoError(t, err)
	assert.Equal(t, migrate.Committed, report.Outcome)
	assert.Equal(t, fsmtype.New(1, 1, 0), g.GetVersion())

	state, err := g.CurrentState(ctx)
	require.NoError(t, err)
	assert.Equal(t, stateShipped, state, "rebind must land the grain at its prior state, not the target version's fresh initial state")

	require.NoError(t, g.Fire(ctx, triggerClose))
}

func TestGrainUpgradeToWithoutMigratorFails(t *testing.T) {
	reg := newRegistry(t)
	g, err := New("order-4", "order", "State", "Trigger", Deps{Reg: reg})
	require.NoError(t, err)

	_, err = g.UpgradeTo(context.Background(), fsmtype.New(1, 1, 0), migrate.Automatic)
	assert.Error(t, err)
}

func TestGrainRunShadow(t *testing.T) {
	reg := newRegistry(t)
	g, err := New("order-5", "order", "State", "Trigger", Deps{Reg: reg})
	require.NoError(t, err)

	comparison, err := g.RunShadow(context.Background(), triggerShip)
	require.NoError(t, err)
	assert.Equal(t, shadow.AllSuccess, comparison.ConsensusType)
	assert.Len(t, comparison.Results, 2)
}

func TestGrainTransitionEventLogging(t *testing.T) {
	reg := newRegistry(t)
	store := eventlog.NewMemoryStore()
	log := eventlog.New("order-6", store)

	g, err := New("order-6", "order", "State", "Trigger", Deps{Reg: reg, Log: log})
	require.NoError(t, err)

	ctx := WithCorrelationID(context.Background(), "corr-1")
	require.NoError(t, g.Fire(ctx, triggerShip))

	events, err := store.ReadEvents(context.Background(), "order-6", 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestGrainSagaExtensions(t *testing.T) {
	reg := newRegistry(t)
	g, err := New("order-7", "order", "State", "Trigger", Deps{Reg: reg})
	require.NoError(t, err)

	assert.Equal(t, "", g.GetStatus())
	assert.Nil(t, g.GetHistory())

	steps := []saga.Definition{
		{Name: "reserve-inventory", Execute: func(context.Context, any) saga.StepResult { return saga.Success(nil) }},
	}
	require.NoError(t, g.Execute(context.Background(), steps, nil, "corr-2"))

	assert.Equal(t, saga.StatusSucceeded, g.GetStatus())
	assert.Len(t, g.GetHistory(), 1)
}
