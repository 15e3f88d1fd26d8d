package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoriumlabs/grainfsm/fsmadapter"
	"github.com/quoriumlabs/grainfsm/fsmtype"
	"github.com/quoriumlabs/grainfsm/registry"
)

func TestValidateDeploymentCompatibilityRollingUpdate(t *testing.T) {
	reg := registerTwoVersions(t)
	checker := NewChecker(reg)

	validation, err := checker.ValidateDeploymentCompatibility("order", fsmtype.New(1, 1, 0), []fsmtype.Version{fsmtype.New(1, 0, 0)})
	require.NoError(t, err)
	assert.Equal(t, StrategyRollingUpdate, validation.Strategy)
	assert.Empty(t, validation.Issues)
}

func TestValidateDeploymentCompatibilityCannotDeploy(t *testing.T) {
	reg := registry.New(nil)
	b1 := fsmadapter.NewBuilder(stateOpen)
	b1.Configure(stateOpen).Permit(triggerShip, stateShipped)
	b1.Configure(stateShipped)
	require.NoError(t, reg.Register("order", fsmtype.New(1, 0, 0), "State", "Trigger", b1.Build, registry.Metadata{}))

	b2 := fsmadapter.NewBuilder(stateOpen)
	b2.Configure(stateOpen)
	require.NoError(t, reg.Register("order", fsmtype.New(2, 0, 0), "State", "Trigger", b2.Build, registry.Metadata{}))

	checker := NewChecker(reg)
	validation, err := checker.ValidateDeploymentCompatibility("order", fsmtype.New(2, 0, 0), []fsmtype.Version{fsmtype.New(1, 0, 0)})
	require.NoError(t, err)
	assert.Equal(t, StrategyCannotDeploy, validation.Strategy)
	require.Len(t, validation.Issues, 2, "both the non-backward-compatible and the breaking-change warning fire")
}

func TestValidateDeploymentCompatibilitySkipsEqualVersions(t *testing.T) {
	reg := registerTwoVersions(t)
	checker := NewChecker(reg)

	v := fsmtype.New(1, 1, 0)
	validation, err := checker.ValidateDeploymentCompatibility("order", v, []fsmtype.Version{v})
	require.NoError(t, err)
	assert.Empty(t, validation.Issues)
	assert.Equal(t, StrategyRollingUpdate, validation.Strategy)
}
