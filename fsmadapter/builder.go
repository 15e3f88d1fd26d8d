// Package fsmadapter is the thin tracking wrapper around
// github.com/qmuntal/stateless described by component C1: it configures
// a real stateless.StateMachine[string] for transition semantics while
// independently recording an fsmtype.Configuration, because stateless
// exposes no GetInfo()-style reflection and its ToGraph() DOT output is
// not meant to be parsed back into structured data.
package fsmadapter

import (
	"context"

	"github.com/qmuntal/stateless"

	"github.com/quoriumlabs/grainfsm/fsmtype"
)

// GuardFunc is a predicate evaluated before a conditional transition
// fires. It receives the same args passed to Fire.
type GuardFunc func(ctx context.Context, args ...any) bool

// ActionFunc is an entry/exit callback. Returning an error aborts the
// transition in progress the same way stateless itself would.
type ActionFunc func(ctx context.Context, args ...any) error

type trackedGuard struct {
	description string
	fn          GuardFunc
}

type trackedPermit struct {
	trigger     fsmtype.TriggerSymbol
	destination fsmtype.StateSymbol
	guard       *trackedGuard
}

type trackedDynamic struct {
	trigger      fsmtype.TriggerSymbol
	possible     []fsmtype.StateSymbol
	selectorDesc string
	selector     func(ctx context.Context, args ...any) (fsmtype.StateSymbol, error)
}

type trackedState struct {
	state        fsmtype.StateSymbol
	superstate   *fsmtype.StateSymbol
	isInitial    bool
	permits      []trackedPermit
	dynamics     []trackedDynamic
	ignores      []fsmtype.TriggerSymbol
	entryActions []fsmtype.ActionDescriptor
	exitActions  []fsmtype.ActionDescriptor
	onEntryFns   []ActionFunc
	onExitFns    []ActionFunc
}

// Builder accumulates a Configuration the same way a caller would
// configure a stateless.StateMachine, one StateBuilder per state, so
// that Build can replay every recorded call against the real machine
// and hand back both the live Machine and its static Configuration.
type Builder struct {
	initial fsmtype.StateSymbol
	states  map[fsmtype.StateSymbol]*trackedState
	order   []fsmtype.StateSymbol
}

// NewBuilder starts configuration for an entity type whose first
// activation begins in initial.
func NewBuilder(initial fsmtype.StateSymbol) *Builder {
	return &Builder{
		initial: initial,
		states:  make(map[fsmtype.StateSymbol]*trackedState),
	}
}

func (b *Builder) stateFor(s fsmtype.StateSymbol) *trackedState {
	ts, ok := b.states[s]
	if !ok {
		ts = &trackedState{state: s, isInitial: s == b.initial}
		b.states[s] = ts
		b.order = append(b.order, s)
	}
	return ts
}

// Configure begins configuration of one state's transitions and
// callbacks, mirroring stateless's StateMachine.Configure.
func (b *Builder) Configure(state fsmtype.StateSymbol) *StateBuilder {
	return &StateBuilder{b: b, ts: b.stateFor(state)}
}

// StateBuilder records permits, guards, and actions for one state.
type StateBuilder struct {
	b  *Builder
	ts *trackedState
}

// Permit registers an unconditional transition to destination on trigger.
func (s *StateBuilder) Permit(trigger fsmtype.TriggerSymbol, destination fsmtype.StateSymbol) *StateBuilder {
	s.ts.permits = append(s.ts.permits, trackedPermit{trigger: trigger, destination: destination})
	s.b.stateFor(destination)
	return s
}

// PermitIf registers a guarded transition: destination is only taken
// when guard returns true. description is surfaced by introspection
// (Configuration never carries the closure itself).
func (s *StateBuilder) PermitIf(trigger fsmtype.TriggerSymbol, destination fsmtype.StateSymbol, description string, guard GuardFunc) *StateBuilder {
	s.ts.permits = append(s.ts.permits, trackedPermit{
		trigger:     trigger,
		destination: destination,
		guard:       &trackedGuard{description: description, fn: guard},
	})
	s.b.stateFor(destination)
	return s
}

// PermitDynamic registers a dynamic transition whose destination is
// resolved at Fire time by selector, out of possible. Shadow evaluation
// and introspection treat every entry in possible as a reachable edge.
func (s *StateBuilder) PermitDynamic(trigger fsmtype.TriggerSymbol, description string, possible []fsmtype.StateSymbol, selector func(ctx context.Context, args ...any) (fsmtype.StateSymbol, error)) *StateBuilder {
	s.ts.dynamics = append(s.ts.dynamics, trackedDynamic{
		trigger:      trigger,
		possible:     possible,
		selectorDesc: description,
		selector:     selector,
	})
	for _, p := range possible {
		s.b.stateFor(p)
	}
	return s
}

// Ignore marks trigger as a no-op in this state: Fire succeeds without
// any state change or callback invocation.
func (s *StateBuilder) Ignore(trigger fsmtype.TriggerSymbol) *StateBuilder {
	s.ts.ignores = append(s.ts.ignores, trigger)
	return s
}

// SubstateOf marks this state as hierarchically nested under super:
// InStateOrSubstate(super) is true whenever the machine is in this
// state, and triggers not handled here fall through to super.
func (s *StateBuilder) SubstateOf(super fsmtype.StateSymbol) *StateBuilder {
	s.ts.superstate = &super
	s.b.stateFor(super)
	return s
}

// OnEntry registers an entry action, described for introspection and
// invoked whenever the machine enters this state. The action is called
// with ctx only; the trigger args are not passed to it.
func (s *StateBuilder) OnEntry(description string, fn ActionFunc) *StateBuilder {
	s.ts.entryActions = append(s.ts.entryActions, fsmtype.ActionDescriptor{Description: description})
	s.ts.onEntryFns = append(s.ts.onEntryFns, fn)
	return s
}

// OnExit registers an exit action, described for introspection and
// invoked whenever the machine leaves this state.
func (s *StateBuilder) OnExit(description string, fn ActionFunc) *StateBuilder {
	s.ts.exitActions = append(s.ts.exitActions, fsmtype.ActionDescriptor{Description: description})
	s.ts.onExitFns = append(s.ts.onExitFns, fn)
	return s
}

// Build replays every recorded state into a real stateless.StateMachine
// and returns the resulting Machine together with the static
// Configuration derived from the same recording.
func (b *Builder) Build() *Machine {
	return b.buildAt(b.initial)
}

// buildAt is Build generalized to an arbitrary starting state: migration
// rebinding needs a freshly built Machine landed at an upgraded entity's
// prior current state, not at the configuration's declared initial
// state, so RebuildAt replays the same recorded topology against a new
// stateless.StateMachine seeded at start instead.
func (b *Builder) buildAt(start fsmtype.StateSymbol) *Machine {
	sm := stateless.NewStateMachine[string](start.Name, struct{}{})

	for _, name := range b.order {
		ts := b.states[name]
		cfg := sm.Configure(ts.state.Name)
		if ts.superstate != nil {
			cfg.SubstateOf(ts.superstate.Name)
		}
		for _, p := range ts.permits {
			if p.guard != nil {
				guard := p.guard.fn
				cfg.PermitIf(p.trigger.Name, p.destination.Name, func(ctx context.Context, args ...any) bool {
					return guard(ctx, args...)
				})
			} else {
				cfg.Permit(p.trigger.Name, p.destination.Name)
			}
		}
		for _, d := range ts.dynamics {
			selector := d.selector
			cfg.PermitDynamic(d.trigger.Name, func(ctx context.Context, args ...any) (string, error) {
				dest, err := selector(ctx, args...)
				if err != nil {
					return "", err
				}
				return dest.Name, nil
			})
		}
		for _, trig := range ts.ignores {
			cfg.Ignore(trig.Name)
		}
		for _, fn := range ts.onEntryFns {
			action := fn
			cfg.OnEntry(func(ctx context.Context, _ stateless.Transition) error {
				return action(ctx)
			})
		}
		for _, fn := range ts.onExitFns {
			action := fn
			cfg.OnExit(func(ctx context.Context, _ stateless.Transition) error {
				return action(ctx)
			})
		}
	}

	config := b.toConfiguration()
	return &Machine{sm: sm, config: config, builder: b}
}

func (b *Builder) toConfiguration() *fsmtype.Configuration {
	states := make(map[fsmtype.StateSymbol]fsmtype.StateConfig, len(b.states))
	for _, name := range b.order {
		ts := b.states[name]
		sc := fsmtype.StateConfig{
			Superstate:        ts.superstate,
			PermittedTriggers: make(map[fsmtype.TriggerSymbol]bool),
			IgnoredTriggers:   make(map[fsmtype.TriggerSymbol]bool),
			EntryActions:      ts.entryActions,
			ExitActions:       ts.exitActions,
			IsInitial:         ts.isInitial,
		}
		for _, p := range ts.permits {
			sc.PermittedTriggers[p.trigger] = true
			t := fsmtype.Transition{Source: ts.state, Trigger: p.trigger}
			if p.guard != nil {
				t.HasGuard = true
				t.GuardDescription = p.guard.description
				t.PossibleDestinations = []fsmtype.StateSymbol{p.destination}
			} else {
				dest := p.destination
				t.Destination = &dest
			}
			sc.Transitions = append(sc.Transitions, t)
		}
		for _, d := range ts.dynamics {
			sc.PermittedTriggers[d.trigger] = true
			sc.Transitions = append(sc.Transitions, fsmtype.Transition{
				Source:               ts.state,
				Trigger:              d.trigger,
				PossibleDestinations: d.possible,
				HasGuard:             true,
				GuardDescription:     d.selectorDesc,
			})
		}
		for _, trig := range ts.ignores {
			sc.IgnoredTriggers[trig] = true
		}
		states[ts.state] = sc
	}
	for _, name := range b.order {
		ts := b.states[name]
		if ts.superstate == nil {
			continue
		}
		super := states[*ts.superstate]
		super.Substates = append(super.Substates, ts.state)
		states[*ts.superstate] = super
	}
	return fsmtype.NewConfiguration(b.initial, states)
}
