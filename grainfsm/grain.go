// Package grainfsm is the public surface host grains embed or wrap: a
// single Grain type exposing Configure/Fire/CanFire/PermittedTriggers/
// CurrentState/InStateOrSubstate for day-to-day transitions, versioned
// extensions (GetVersion/AvailableVersions/UpgradeTo/RunShadow) for
// introspecting and migrating across registered versions, and saga
// extensions (Execute/GetStatus/GetHistory) for running an ordered
// step sequence as part of the same entity. It composes fsmadapter,
// registry, compat, shadow, migrate, saga, and eventlog without adding
// any transition semantics of its own.
package grainfsm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quoriumlabs/grainfsm/compat"
	"github.com/quoriumlabs/grainfsm/eventlog"
	"github.com/quoriumlabs/grainfsm/fsmadapter"
	"github.com/quoriumlabs/grainfsm/fsmerr"
	"github.com/quoriumlabs/grainfsm/fsmtype"
	"github.com/quoriumlabs/grainfsm/migrate"
	"github.com/quoriumlabs/grainfsm/registry"
	"github.com/quoriumlabs/grainfsm/saga"
	"github.com/quoriumlabs/grainfsm/shadow"
)

// Configure starts topology configuration for a new entity type/version,
// identical to fsmadapter.NewBuilder. Host code defines states and
// transitions through the returned Builder, calls Build, and registers
// the result with a Registry before any Grain activates it; Configure
// exists so host code never needs to import fsmadapter directly.
func Configure(initial fsmtype.StateSymbol) *fsmadapter.Builder {
	return fsmadapter.NewBuilder(initial)
}

// Deps bundles the process-wide collaborators a Grain needs. Reg is
// required and is all RunShadow uses. Checker, Migrator, and Log may be
// nil: Grain never consults Checker itself, UpgradeTo fails without
// Migrator, and transitions are not persisted without Log (a grain used
// only for in-memory prototyping, for instance, has no need for an
// eventlog.Log).
type Deps struct {
	Reg      *registry.Registry
	Checker  *compat.Checker
	Migrator *migrate.Controller
	Log      *eventlog.Log
	Logger   *slog.Logger
}

// Grain is one activated entity: a live fsmadapter.Machine at a specific
// registered version, plus whatever of Deps was supplied at New. Grains
// are single-threaded, the same concurrency assumption fsmadapter.Machine
// and saga.Saga make; the mutex here guards the version/machine pair
// against the narrow overlap between an in-flight Fire and a concurrent
// UpgradeTo, not against general concurrent use.
type Grain struct {
	mu          sync.RWMutex
	entityID    string
	entityType  string
	stateType   string
	triggerType string
	version     fsmtype.Version
	machine     *fsmadapter.Machine
	blob        []byte

	deps   Deps
	logger *slog.Logger

	sagaMu     sync.Mutex
	activeSaga *saga.Saga
}

// New activates a Grain for (entityType, entityID) at the highest
// registered version, wiring the supplied Deps. stateType/triggerType
// are the caller's own names for the entity's state/trigger enumeration
// (the same strings passed to registry.Register); New rejects the
// latest version if the registry's own (StateType, TriggerType) for this
// entityType disagrees with what the caller declares, rather than
// silently activating a Grain the caller misidentified.
func New(entityID, entityType, stateType, triggerType string, deps Deps) (*Grain, error) {
	entry, err := deps.Reg.GetLatest(entityType)
	if err != nil {
		return nil, err
	}
	if entry.StateType != stateType || entry.TriggerType != triggerType {
		return nil, fsmerr.New(fsmerr.KindTypeMismatch, entityType,
			fmt.Sprintf("registered as (%s, %s), requested as (%s, %s)",
				entry.StateType, entry.TriggerType, stateType, triggerType), nil)
	}
	return newGrain(entityID, entityType, entry, deps)
}

// NewAtVersion activates a Grain at a specific, already-registered
// version rather than the latest one, e.g. when reconstituting an
// entity from a snapshot recorded at an older version. See New for
// stateType/triggerType.
func NewAtVersion(entityID, entityType string, version fsmtype.Version, stateType, triggerType string, deps Deps) (*Grain, error) {
	entry, err := deps.Reg.GetChecked(entityType, version, stateType, triggerType)
	if err != nil {
		return nil, err
	}
	return newGrain(entityID, entityType, entry, deps)
}

func newGrain(entityID, entityType string, entry *registry.Entry, deps Deps) (*Grain, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.WithGroup("grainfsm").With("entityId", entityID, "entityType", entityType)

	g := &Grain{
		entityID:    entityID,
		entityType:  entityType,
		stateType:   entry.StateType,
		triggerType: entry.TriggerType,
		version:     entry.Version,
		deps:        deps,
		logger:      logger,
	}
	g.machine = g.wireMachine(entry.Factory().WithSubject(entityID))
	return g, nil
}

// wireMachine attaches the transition-event logging hook a Machine needs
// whenever g.deps.Log is set. Every newly built or rebound Machine goes
// through this so eventlog wiring survives both New and UpgradeTo.
func (g *Grain) wireMachine(m *fsmadapter.Machine) *fsmadapter.Machine {
	if g.deps.Log == nil {
		return m
	}
	m.OnTransitioned(func(ctx context.Context, from, to fsmtype.StateSymbol, trigger fsmtype.TriggerSymbol) {
		g.mu.RLock()
		version := g.version
		g.mu.RUnlock()

		_, err := g.deps.Log.AppendTransition(ctx, fsmtype.TransitionEvent{
			EntityID:      g.entityID,
			FromState:     from,
			ToState:       to,
			Trigger:       trigger,
			TimestampUTC:  time.Now().UTC(),
			CorrelationID: correlationIDFrom(ctx),
			DedupeKey:     dedupeKeyFrom(ctx),
			FSMVersion:    version,
		})
		if err != nil {
			g.logger.Error("failed to append transition event", "error", err)
		}
	})
	return m
}

// --- context-carried Fire metadata ---

type contextKey int

const (
	dedupeKeyContextKey contextKey = iota
	correlationIDContextKey
)

// WithDedupeKey attaches a dedupe key to ctx, recorded on the
// TransitionEvent that a Fire driven by the returned context produces.
// eventlog.Log skips appending an event whose key it has already seen.
// The Fire itself still runs: a repeated key moves the machine again
// (or fails as an invalid transition) and does not replay the earlier
// outcome.
func WithDedupeKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, dedupeKeyContextKey, key)
}

// WithCorrelationID attaches a correlation id to ctx, recorded alongside
// the resulting TransitionEvent for cross-entity tracing.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDContextKey, id)
}

func dedupeKeyFrom(ctx context.Context) string {
	v, _ := ctx.Value(dedupeKeyContextKey).(string)
	return v
}

func correlationIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(correlationIDContextKey).(string)
	return v
}

// --- core surface ---

// Fire drives trigger to completion against the Grain's current machine.
func (g *Grain) Fire(ctx context.Context, trigger fsmtype.TriggerSymbol, args ...any) error {
	g.mu.RLock()
	m := g.machine
	g.mu.RUnlock()
	return m.Fire(ctx, trigger, args...)
}

// CanFire reports whether trigger can currently be fired.
func (g *Grain) CanFire(ctx context.Context, trigger fsmtype.TriggerSymbol, args ...any) (bool, error) {
	g.mu.RLock()
	m := g.machine
	g.mu.RUnlock()
	return m.CanFire(ctx, trigger, args...)
}

// PermittedTriggers returns the triggers that can currently be fired.
func (g *Grain) PermittedTriggers(ctx context.Context, args ...any) ([]fsmtype.TriggerSymbol, error) {
	g.mu.RLock()
	m := g.machine
	g.mu.RUnlock()
	return m.PermittedTriggers(ctx, args...)
}

// CurrentState returns the machine's current state.
func (g *Grain) CurrentState(ctx context.Context) (fsmtype.StateSymbol, error) {
	g.mu.RLock()
	m := g.machine
	g.mu.RUnlock()
	return m.CurrentState(ctx)
}

// InStateOrSubstate reports whether the machine is in state or a
// substate nested under it.
func (g *Grain) InStateOrSubstate(ctx context.Context, state fsmtype.StateSymbol) (bool, error) {
	g.mu.RLock()
	m := g.machine
	g.mu.RUnlock()
	return m.InStateOrSubstate(ctx, state)
}

// --- versioned extensions ---

// GetVersion returns the version the Grain is currently activated at.
func (g *Grain) GetVersion() fsmtype.Version {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

// AvailableVersions returns every version registered for this Grain's
// entity type, highest precedence first.
func (g *Grain) AvailableVersions() []fsmtype.Version {
	return g.deps.Reg.GetAvailableVersions(g.entityType)
}

// UpgradeTo migrates the Grain from its current version to toVersion
// using strategy, delegating to the configured migrate.Controller. It
// requires deps.Migrator to have been supplied at construction.
func (g *Grain) UpgradeTo(ctx context.Context, toVersion fsmtype.Version, strategy migrate.Strategy) (*migrate.Report, error) {
	if g.deps.Migrator == nil {
		return nil, fsmerr.New(fsmerr.KindMigrationFailure, g.entityID, "no migration controller configured for this grain", nil)
	}
	fromVersion := g.GetVersion()
	return g.deps.Migrator.Upgrade(ctx, g, g.entityID, g.entityType, fromVersion, toVersion, strategy)
}

// RunShadow predicts how trigger would behave across every version in
// versions (or every registered version, if versions is empty) without
// mutating the Grain's live machine.
func (g *Grain) RunShadow(ctx context.Context, trigger fsmtype.TriggerSymbol, versions ...fsmtype.Version) (shadow.Comparison, error) {
	current, err := g.CurrentState(ctx)
	if err != nil {
		return shadow.Comparison{}, err
	}
	if len(versions) == 0 {
		versions = g.AvailableVersions()
	}

	configs := make([]shadow.VersionedConfiguration, 0, len(versions))
	for _, v := range versions {
		entry, err := g.deps.Reg.GetChecked(g.entityType, v, g.stateType, g.triggerType)
		if err != nil {
			continue
		}
		configs = append(configs, shadow.VersionedConfiguration{
			Version: v,
			Config:  entry.Factory().Configuration(),
		})
	}

	return shadow.EvaluateAcrossVersions(current, trigger, configs, g.GetVersion()), nil
}

// --- migrate.Entity ---

// CustomStateBlob returns the implementer-defined extra state a Custom
// migration strategy carries across the upgrade, satisfying migrate.Entity.
func (g *Grain) CustomStateBlob() []byte {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.blob
}

// RestoreCustomStateBlob installs blob as the Grain's custom state,
// satisfying migrate.Entity.
func (g *Grain) RestoreCustomStateBlob(_ context.Context, blob []byte) error {
	g.mu.Lock()
	g.blob = blob
	g.mu.Unlock()
	return nil
}

// SetCustomStateBlob lets host code seed the blob a Custom migration
// strategy will carry forward, before any UpgradeTo call.
func (g *Grain) SetCustomStateBlob(blob []byte) {
	g.mu.Lock()
	g.blob = blob
	g.mu.Unlock()
}

// Rebind atomically swaps the Grain onto a freshly built machine at
// atState, satisfying migrate.Entity. m is rebuilt at atState rather
// than used as-is, since a registry Factory always returns a Machine
// started at its version's declared initial state.
func (g *Grain) Rebind(_ context.Context, version fsmtype.Version, m *fsmadapter.Machine, atState fsmtype.StateSymbol) error {
	rebuilt := g.wireMachine(m.RebuildAt(atState))

	g.mu.Lock()
	g.version = version
	g.machine = rebuilt
	g.mu.Unlock()
	return nil
}

// --- saga extensions ---

// Execute runs steps as one saga owned by this Grain. opts are passed
// straight through to saga.New, so callers wire an event sink or
// backoff override the same way they would constructing a bare Saga.
func (g *Grain) Execute(ctx context.Context, steps []saga.Definition, data any, correlationID string, opts ...saga.Option) error {
	s, err := saga.New(steps, opts...)
	if err != nil {
		return err
	}

	g.sagaMu.Lock()
	g.activeSaga = s
	g.sagaMu.Unlock()

	return s.Execute(ctx, data, correlationID)
}

// GetStatus returns the status of the Grain's most recently started
// saga, or the empty string if none has run yet.
func (g *Grain) GetStatus() string {
	g.sagaMu.Lock()
	s := g.activeSaga
	g.sagaMu.Unlock()
	if s == nil {
		return ""
	}
	return s.Status.GetState()
}

// GetHistory returns the step execution history of the Grain's most
// recently started saga, or nil if none has run yet.
func (g *Grain) GetHistory() []saga.Execution {
	g.sagaMu.Lock()
	s := g.activeSaga
	g.sagaMu.Unlock()
	if s == nil {
		return nil
	}
	return s.History
}
