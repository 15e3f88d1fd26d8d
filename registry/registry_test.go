package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoriumlabs/grainfsm/fsmadapter"
	"github.com/quoriumlabs/grainfsm/fsmtype"
)

func factoryFor(initial fsmtype.StateSymbol) Factory {
	return func() *fsmadapter.Machine {
		b := fsmadapter.NewBuilder(initial)
		b.Configure(initial)
		return b.Build()
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := New(nil)
	v1 := fsmtype.New(1, 0, 0)

	require.NoError(t, reg.Register("order", v1, "State", "Trigger", factoryFor(fsmtype.State("Open")), Metadata{Description: "first"}))

	entry, err := reg.Get("order", v1)
	require.NoError(t, err)
	assert.Equal(t, "first", entry.Metadata.Description)
	assert.NotNil(t, entry.Factory())
}

func TestGetUnregisteredVersionFails(t *testing.T) {
	reg := New(nil)
	_, err := reg.Get("order", fsmtype.New(9, 9, 9))
	assert.Error(t, err)
}

func TestGetLatestOrdersByPrecedence(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register("order", fsmtype.New(1, 0, 0), "State", "Trigger", factoryFor(fsmtype.State("Open")), Metadata{}))
	require.NoError(t, reg.Register("order", fsmtype.New(2, 0, 0), "State", "Trigger", factoryFor(fsmtype.State("Open")), Metadata{}))
	require.NoError(t, reg.Register("order", fsmtype.New(1, 5, 0), "State", "Trigger", factoryFor(fsmtype.State("Open")), Metadata{}))

	latest, err := reg.GetLatest("order")
	require.NoError(t, err)
	assert.Equal(t, fsmtype.New(2, 0, 0), latest.Version)
}

func TestGetAvailableVersionsDescending(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register("order", fsmtype.New(1, 0, 0), "State", "Trigger", factoryFor(fsmtype.State("Open")), Metadata{}))
	require.NoError(t, reg.Register("order", fsmtype.New(1, 1, 0), "State", "Trigger", factoryFor(fsmtype.State("Open")), Metadata{}))

	versions := reg.GetAvailableVersions("order")
	require.Len(t, versions, 2)
	assert.Equal(t, fsmtype.New(1, 1, 0), versions[0])
	assert.Equal(t, fsmtype.New(1, 0, 0), versions[1])
}

func TestGetAvailableVersionsUnknownType(t *testing.T) {
	reg := New(nil)
	assert.Nil(t, reg.GetAvailableVersions("nonexistent"))
}

func TestRegisterValidatesMetadata(t *testing.T) {
	reg := New(nil)
	longDescription := make([]byte, 600)
	for i := range longDescription {
		longDescription[i] = 'x'
	}
	err := reg.Register("order", fsmtype.New(1, 0, 0), "State", "Trigger", factoryFor(fsmtype.State("Open")), Metadata{Description: string(longDescription)})
	assert.Error(t, err)
}

func TestIsCompatible(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register("order", fsmtype.New(1, 0, 0), "State", "Trigger", factoryFor(fsmtype.State("Open")), Metadata{}))
	require.NoError(t, reg.Register("order", fsmtype.New(1, 1, 0), "State", "Trigger", factoryFor(fsmtype.State("Open")), Metadata{IsDeprecated: false}))

	assert.True(t, reg.IsCompatible("order", fsmtype.New(1, 0, 0)))
	assert.False(t, reg.IsCompatible("order", fsmtype.New(9, 9, 9)))
}

func TestIsCompatibleRespectsDeprecationAndMinSupported(t *testing.T) {
	reg := New(nil)
	min := fsmtype.New(1, 1, 0)
	require.NoError(t, reg.Register("order", fsmtype.New(1, 0, 0), "State", "Trigger", factoryFor(fsmtype.State("Open")), Metadata{IsDeprecated: true}))
	require.NoError(t, reg.Register("order", fsmtype.New(1, 1, 0), "State", "Trigger", factoryFor(fsmtype.State("Open")), Metadata{MinSupportedVersion: &min}))

	assert.False(t, reg.IsCompatible("order", fsmtype.New(1, 0, 0)), "deprecated versions are never compatible")
	assert.True(t, reg.IsCompatible("order", fsmtype.New(1, 1, 0)))
}

type recordingMirror struct {
	calls []string
}

func (m *recordingMirror) OnRegister(_ context.Context, entityType string, version fsmtype.Version, stateType, triggerType string, _ Metadata) error {
	m.calls = append(m.calls, entityType+"@"+version.String())
	return nil
}

func TestRegisterForwardsToMirror(t *testing.T) {
	mirror := &recordingMirror{}
	reg := New(nil, WithMirror(mirror))

	require.NoError(t, reg.Register("order", fsmtype.New(1, 0, 0), "State", "Trigger", factoryFor(fsmtype.State("Open")), Metadata{}))
	require.Len(t, mirror.calls, 1)
	assert.Equal(t, "order@1.0.0", mirror.calls[0])
}

func TestGetCheckedRejectsMismatchedTypePair(t *testing.T) {
	reg := New(nil)
	v1 := fsmtype.New(1, 0, 0)
	require.NoError(t, reg.Register("order", v1, "OrderState", "OrderTrigger", factoryFor(fsmtype.State("Open")), Metadata{}))

	_, err := reg.GetChecked("order", v1, "OrderState", "OrderTrigger")
	assert.NoError(t, err)

	_, err = reg.GetChecked("order", v1, "ShipmentState", "ShipmentTrigger")
	assert.Error(t, err)
}

func TestRegisterRejectsInconsistentTypePairAcrossVersions(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Register("order", fsmtype.New(1, 0, 0), "OrderState", "OrderTrigger", factoryFor(fsmtype.State("Open")), Metadata{}))

	err := reg.Register("order", fsmtype.New(1, 1, 0), "ShipmentState", "ShipmentTrigger", factoryFor(fsmtype.State("Open")), Metadata{})
	assert.Error(t, err, "(StateType, TriggerType) must stay fixed per entity type across versions")

	versions := reg.GetAvailableVersions("order")
	assert.Len(t, versions, 1, "the rejected registration must not have been applied")
}

func TestRegisterLastWriterWins(t *testing.T) {
	reg := New(nil)
	v1 := fsmtype.New(1, 0, 0)
	require.NoError(t, reg.Register("order", v1, "State", "Trigger", factoryFor(fsmtype.State("Open")), Metadata{Description: "first"}))
	require.NoError(t, reg.Register("order", v1, "State", "Trigger", factoryFor(fsmtype.State("Open")), Metadata{Description: "second"}))

	entry, err := reg.Get("order", v1)
	require.NoError(t, err)
	assert.Equal(t, "second", entry.Metadata.Description)
}
