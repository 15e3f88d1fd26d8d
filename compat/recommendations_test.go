package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoriumlabs/grainfsm/fsmadapter"
	"github.com/quoriumlabs/grainfsm/fsmtype"
	"github.com/quoriumlabs/grainfsm/registry"
)

func TestGetUpgradeRecommendationsFullyCompatible(t *testing.T) {
	reg := registry.New(nil)
	b1 := fsmadapter.NewBuilder(stateOpen)
	b1.Configure(stateOpen).Permit(triggerShip, stateShipped)
	b1.Configure(stateShipped)
	require.NoError(t, reg.Register("order", fsmtype.New(1, 0, 0), "State", "Trigger", b1.Build, registry.Metadata{}))
	require.NoError(t, reg.Register("order", fsmtype.New(1, 0, 1), "State", "Trigger", b1.Build, registry.Metadata{}))

	checker := NewChecker(reg)
	recs, err := checker.GetUpgradeRecommendations("order", fsmtype.New(1, 0, 0))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, HighlyRecommended, recs[0].Recommendation)
	assert.Equal(t, RiskLow, recs[0].RiskLevel)
	assert.Contains(t, recs[0].Benefits, "no state transformation required")
}

func TestGetUpgradeRecommendationsExcludesOlderVersions(t *testing.T) {
	reg := registerTwoVersions(t)
	checker := NewChecker(reg)

	recs, err := checker.GetUpgradeRecommendations("order", fsmtype.New(1, 1, 0))
	require.NoError(t, err)
	assert.Empty(t, recs, "nothing newer than the current version is available")
}

func TestGetUpgradeRecommendationsNotRecommendedOnIncompatible(t *testing.T) {
	reg := registry.New(nil)
	b1 := fsmadapter.NewBuilder(stateOpen)
	b1.Configure(stateOpen).Permit(triggerShip, stateShipped)
	b1.Configure(stateShipped)
	require.NoError(t, reg.Register("order", fsmtype.New(1, 0, 0), "State", "Trigger", b1.Build, registry.Metadata{}))

	b2 := fsmadapter.NewBuilder(stateOpen)
	b2.Configure(stateOpen)
	require.NoError(t, reg.Register("order", fsmtype.New(2, 0, 0), "State", "Trigger", b2.Build, registry.Metadata{}))

	checker := NewChecker(reg)
	recs, err := checker.GetUpgradeRecommendations("order", fsmtype.New(1, 0, 0))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, NotRecommended, recs[0].Recommendation)
	assert.Equal(t, RiskVeryHigh, recs[0].RiskLevel)
}

func TestGetUpgradeRecommendationsOrderingAscending(t *testing.T) {
	reg := registry.New(nil)
	b1 := fsmadapter.NewBuilder(stateOpen)
	b1.Configure(stateOpen).Permit(triggerShip, stateShipped)
	b1.Configure(stateShipped)
	require.NoError(t, reg.Register("order", fsmtype.New(1, 0, 0), "State", "Trigger", b1.Build, registry.Metadata{}))
	require.NoError(t, reg.Register("order", fsmtype.New(1, 0, 1), "State", "Trigger", b1.Build, registry.Metadata{}))

	b2 := fsmadapter.NewBuilder(stateOpen)
	b2.Configure(stateOpen)
	require.NoError(t, reg.Register("order", fsmtype.New(2, 0, 0), "State", "Trigger", b2.Build, registry.Metadata{}))

	checker := NewChecker(reg)
	recs, err := checker.GetUpgradeRecommendations("order", fsmtype.New(1, 0, 0))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, HighlyRecommended, recs[0].Recommendation, "1.0.1 sorts before the incompatible 2.0.0")
	assert.Equal(t, NotRecommended, recs[1].Recommendation)
}

func TestHasHighImpactChange(t *testing.T) {
	assert.True(t, hasHighImpactChange([]string{"StateRemoved:Shipped"}))
	assert.True(t, hasHighImpactChange([]string{"TransitionRemoved:Ship"}))
	assert.False(t, hasHighImpactChange([]string{"StateAdded:Returned"}))
	assert.False(t, hasHighImpactChange(nil))
}
