package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoriumlabs/grainfsm/compat"
	"github.com/quoriumlabs/grainfsm/fsmadapter"
	"github.com/quoriumlabs/grainfsm/fsmtype"
	"github.com/quoriumlabs/grainfsm/registry"
)

var (
	stateOpen    = fsmtype.State("Open")
	stateShipped = fsmtype.State("Shipped")
	triggerShip  = fsmtype.Trigger("Ship")
)

type fakeEntity struct {
	state       fsmtype.StateSymbol
	blob        []byte
	boundTo     fsmtype.Version
	boundMachine *fsmadapter.Machine
}

func (f *fakeEntity) CurrentState(context.Context) (fsmtype.StateSymbol, error) { return f.state, nil }
func (f *fakeEntity) CustomStateBlob() []byte                                   { return f.blob }
func (f *fakeEntity) RestoreCustomStateBlob(_ context.Context, blob []byte) error {
	f.blob = blob
	return nil
}
func (f *fakeEntity) Rebind(_ context.Context, version fsmtype.Version, m *fsmadapter.Machine, atState fsmtype.StateSymbol) error {
	f.boundTo = version
	f.boundMachine = m
	f.state = atState
	return nil
}

func buildRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(nil)

	b1 := fsmadapter.NewBuilder(stateOpen)
	b1.Configure(stateOpen).Permit(triggerShip, stateShipped)
	b1.Configure(stateShipped)
	require.NoError(t, reg.Register("order", fsmtype.New(1, 0, 0), "State", "Trigger", b1.Build, registry.Metadata{}))

	b2 := fsmadapter.NewBuilder(stateOpen)
	b2.Configure(stateOpen).Permit(triggerShip, stateShipped)
	b2.Configure(stateShipped)
	require.NoError(t, reg.Register("order", fsmtype.New(1, 1, 0), "State", "Trigger", b2.Build, registry.Metadata{}))

	return reg
}

func TestControllerUpgradeAutomaticCommits(t *testing.T) {
	reg := buildRegistry(t)
	checker := compat.NewChecker(reg)
	var events []fsmtype.MigrationEvent

	c := NewController(reg, checker, func(e fsmtype.MigrationEvent) { events = append(events, e) }, nil)
	entity := &fakeEntity{state: stateOpen}

	report, err := c.Upgrade(context.Background(), entity, "order-1", "order", fsmtype.New(1, 0, 0), fsmtype.New(1, 1, 0), Automatic)
	require.NoError(t, err)
	assert.Equal(t, Committed, report.Outcome)
	assert.Equal(t, StageCommitted, report.Stage)
	assert.Equal(t, fsmtype.New(1, 1, 0), entity.boundTo)
	assert.NotNil(t, entity.boundMachine)
	require.NotEmpty(t, events)
	assert.Equal(t, fsmtype.MigrationOutcome(Committed), events[len(events)-1].Outcome)
}

func TestControllerUpgradeAbortsOnIncompatibleVersions(t *testing.T) {
	reg := registry.New(nil)
	b1 := fsmadapter.NewBuilder(stateOpen)
	b1.Configure(stateOpen).Permit(triggerShip, stateShipped)
	b1.Configure(stateShipped)
	require.NoError(t, reg.Register("order", fsmtype.New(1, 0, 0), "State", "Trigger", b1.Build, registry.Metadata{}))

	b2 := fsmadapter.NewBuilder(stateOpen)
	b2.Configure(stateOpen)
	require.NoError(t, reg.Register("order", fsmtype.New(2, 0, 0), "State", "Trigger", b2.Build, registry.Metadata{}))

	checker := compat.NewChecker(reg)
	c := NewController(reg, checker, nil, nil)
	entity := &fakeEntity{state: stateOpen}

	report, err := c.Upgrade(context.Background(), entity, "order-2", "order", fsmtype.New(1, 0, 0), fsmtype.New(2, 0, 0), Automatic)
	require.Error(t, err)
	assert.Equal(t, Aborted, report.Outcome)
	assert.Nil(t, entity.boundMachine)
}

func TestControllerUpgradeBeforeHookAbort(t *testing.T) {
	reg := buildRegistry(t)
	checker := compat.NewChecker(reg)
	c := NewController(reg, checker, nil, nil)
	c.RegisterHook(Hook{
		Name:          "veto",
		BeforeMigrate: func(context.Context, *Context) (bool, error) { return false, nil },
	})
	entity := &fakeEntity{state: stateOpen, blob: []byte("original")}

	report, err := c.Upgrade(context.Background(), entity, "order-3", "order", fsmtype.New(1, 0, 0), fsmtype.New(1, 1, 0), Automatic)
	require.NoError(t, err)
	assert.Equal(t, Aborted, report.Outcome)
	assert.Equal(t, "original", string(entity.blob))
}

func TestControllerUpgradeAfterHookFailureRollsBack(t *testing.T) {
	reg := buildRegistry(t)
	checker := compat.NewChecker(reg)
	c := NewController(reg, checker, nil, nil)
	rollbackCalled := false
	c.RegisterHook(Hook{
		Name:         "failing-after",
		AfterMigrate: func(context.Context, *Context) error { return assert.AnError },
		OnRollback:   func(context.Context, *Context) { rollbackCalled = true },
	})
	entity := &fakeEntity{state: stateOpen, blob: []byte("snap")}

	report, err := c.Upgrade(context.Background(), entity, "order-4", "order", fsmtype.New(1, 0, 0), fsmtype.New(1, 1, 0), Automatic)
	require.Error(t, err)
	assert.Equal(t, RolledBack, report.Outcome)
	assert.True(t, rollbackCalled)
	assert.Equal(t, "snap", string(entity.blob))
	assert.Equal(t, fsmtype.New(1, 0, 0), entity.boundTo,
		"a rolled-back entity must be rebound to its pre-migration version, not left on ToVersion")
	assert.Equal(t, stateOpen, entity.state)
}

func TestControllerUpgradeDryRunRollsBackOnSuccess(t *testing.T) {
	reg := buildRegistry(t)
	checker := compat.NewChecker(reg)
	c := NewController(reg, checker, nil, nil)
	entity := &fakeEntity{state: stateOpen, blob: []byte("blob")}

	report, err := c.Upgrade(context.Background(), entity, "order-5", "order", fsmtype.New(1, 0, 0), fsmtype.New(1, 1, 0), DryRun)
	require.NoError(t, err)
	assert.Equal(t, RolledBack, report.Outcome)
	assert.Equal(t, "blob", string(entity.blob))
}

func TestControllerRegisterHookOrdersByPriority(t *testing.T) {
	reg := buildRegistry(t)
	checker := compat.NewChecker(reg)
	c := NewController(reg, checker, nil, nil)

	var order []string
	c.RegisterHook(Hook{Name: "second", Priority: 10, BeforeMigrate: func(context.Context, *Context) (bool, error) { order = append(order, "second"); return true, nil }})
	c.RegisterHook(Hook{Name: "first", Priority: 1, BeforeMigrate: func(context.Context, *Context) (bool, error) { order = append(order, "first"); return true, nil }})

	entity := &fakeEntity{state: stateOpen}
	_, err := c.Upgrade(context.Background(), entity, "order-6", "order", fsmtype.New(1, 0, 0), fsmtype.New(1, 1, 0), Automatic)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}
