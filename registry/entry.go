// Package registry is the process-wide definition registry (component
// C3): a per-entity-type catalog mapping a version triple to a factory
// that produces a freshly configured Machine, plus metadata governing
// deprecation and compatibility.
package registry

import (
	"time"

	"github.com/quoriumlabs/grainfsm/fsmadapter"
	"github.com/quoriumlabs/grainfsm/fsmtype"
)

// Factory builds a freshly configured Machine for one registered
// version. The registry never calls or memoizes it: callers invoke
// Entry.Factory themselves and own the returned Machine's lifetime.
type Factory func() *fsmadapter.Machine

// Metadata describes one registered version, checked with validator/v10
// tags before a registration is accepted (see registry.Register).
type Metadata struct {
	Description        string   `validate:"max=500"`
	Author              string   `validate:"max=200"`
	IsDeprecated        bool
	IsUnsupported       bool
	MinSupportedVersion *fsmtype.Version
	BreakingChanges     []string
	Features            []string
}

// Entry is one (entityType, version) registration.
type Entry struct {
	EntityType   string
	Version      fsmtype.Version
	StateType    string
	TriggerType  string
	Factory      Factory
	Metadata     Metadata
	RegisteredAt time.Time
}
