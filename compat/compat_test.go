package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoriumlabs/grainfsm/fsmadapter"
	"github.com/quoriumlabs/grainfsm/fsmtype"
	"github.com/quoriumlabs/grainfsm/registry"
)

var (
	stateOpen    = fsmtype.State("Open")
	stateShipped = fsmtype.State("Shipped")
	stateClosed  = fsmtype.State("Closed")
	triggerShip  = fsmtype.Trigger("Ship")
)

func TestAnalyzeVersionCompatibility(t *testing.T) {
	assert.Equal(t, FullyCompatible, AnalyzeVersionCompatibility(fsmtype.New(1, 0, 0), fsmtype.New(1, 0, 1)))
	assert.Equal(t, BackwardCompatible, AnalyzeVersionCompatibility(fsmtype.New(1, 0, 0), fsmtype.New(1, 1, 0)))
	assert.Equal(t, Incompatible, AnalyzeVersionCompatibility(fsmtype.New(1, 0, 0), fsmtype.New(1, 0, 0)))
	assert.Equal(t, Incompatible, AnalyzeVersionCompatibility(fsmtype.New(2, 0, 0), fsmtype.New(1, 0, 0)))
}

func TestAnalyzeVersionCompatibilityMajorBump(t *testing.T) {
	level := AnalyzeVersionCompatibility(fsmtype.New(1, 0, 0), fsmtype.New(2, 0, 0))
	assert.Equal(t, Incompatible, level, "a major bump with no diff supplied is treated as a breaking change")
}

func registerTwoVersions(t *testing.T) *registry.Registry {
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

func TestCheckCompatibilityBackwardCompatible(t *testing.T) {
	reg := registerTwoVersions(t)
	checker := NewChecker(reg)

	result, err := checker.CheckCompatibility("order", fsmtype.New(1, 0, 0), fsmtype.New(1, 1, 0))
	require.NoError(t, err)
	assert.True(t, result.Compatible)
	assert.Equal(t, BackwardCompatible, result.Level)
	assert.Empty(t, result.BreakingChanges)
}

func TestCheckCompatibilityDetectsRemovedState(t *testing.T) {
	reg := registry.New(nil)
	b1 := fsmadapter.NewBuilder(stateOpen)
	b1.Configure(stateOpen).Permit(triggerShip, stateShipped)
	b1.Configure(stateShipped)
	require.NoError(t, reg.Register("order", fsmtype.New(1, 0, 0), "State", "Trigger", b1.Build, registry.Metadata{}))

	b2 := fsmadapter.NewBuilder(stateOpen)
	b2.Configure(stateOpen)
	require.NoError(t, reg.Register("order", fsmtype.New(2, 0, 0), "State", "Trigger", b2.Build, registry.Metadata{}))

	checker := NewChecker(reg)
	result, err := checker.CheckCompatibility("order", fsmtype.New(1, 0, 0), fsmtype.New(2, 0, 0))
	require.NoError(t, err)
	assert.False(t, result.Compatible)
	assert.Contains(t, result.BreakingChanges, "StateRemoved:Shipped")
}

func TestCheckCompatibilityUnknownVersion(t *testing.T) {
	reg := registerTwoVersions(t)
	checker := NewChecker(reg)

	_, err := checker.CheckCompatibility("order", fsmtype.New(9, 9, 9), fsmtype.New(1, 1, 0))
	assert.Error(t, err)
}

func TestRuleSetMigrationPath(t *testing.T) {
	reg := registerTwoVersions(t)
	checker := NewChecker(reg)

	from, to := fsmtype.New(1, 0, 0), fsmtype.New(1, 1, 0)
	_, ok := checker.GetMigrationPath("order", from, to)
	assert.False(t, ok, "no path has been registered yet")

	checker.Rules("order").AddRule(Rule{FromVersion: from, ToVersion: to, Step: Step{Name: "noop", Type: StepAutomatic}})
	path, ok := checker.GetMigrationPath("order", from, to)
	require.True(t, ok)
	assert.Len(t, path.Steps, 1)
}

func TestRuleSetMigrationPathMultiHop(t *testing.T) {
	rs := NewRuleSet()
	v1, v2, v3 := fsmtype.New(1, 0, 0), fsmtype.New(2, 0, 0), fsmtype.New(3, 0, 0)
	rs.AddRule(Rule{FromVersion: v1, ToVersion: v2, Step: Step{Name: "1-to-2"}})
	rs.AddRule(Rule{FromVersion: v2, ToVersion: v3, Step: Step{Name: "2-to-3"}})

	path, ok := rs.GetMigrationPath(v1, v3)
	require.True(t, ok)
	require.Len(t, path.Steps, 2)
	assert.Equal(t, "1-to-2", path.Steps[0].Name)
	assert.Equal(t, "2-to-3", path.Steps[1].Name)
}

func TestRuleSetMigrationPathUnreachable(t *testing.T) {
	rs := NewRuleSet()
	_, ok := rs.GetMigrationPath(fsmtype.New(1, 0, 0), fsmtype.New(5, 0, 0))
	assert.False(t, ok)
}
