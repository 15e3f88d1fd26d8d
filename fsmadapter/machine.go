package fsmadapter

import (
	"context"
	"fmt"

	"github.com/qmuntal/stateless"

	"github.com/quoriumlabs/grainfsm/fsmerr"
	"github.com/quoriumlabs/grainfsm/fsmtype"
)

// Machine is a live instance of one entity's state machine, backed by a
// stateless.StateMachine[string] for transition execution and an
// fsmtype.Configuration recorded at Build time for introspection,
// registry storage, compatibility checks, and shadow evaluation.
//
// Entities in this model are single-threaded: one goroutine drives Fire
// calls for a given entity at a time, the same assumption the host
// runtime (see the host package) makes for timers and event delivery.
// The firing field is therefore a plain bool, not a mutex or atomic: it
// exists to catch a callback that calls back into Fire on the same
// entity, not to guard against concurrent callers.
type Machine struct {
	sm      *stateless.StateMachine[string]
	config  *fsmtype.Configuration
	firing  bool
	subject string // entity id, used only to annotate errors
	builder *Builder
}

// WithSubject attaches an entity identifier used in error messages. It
// returns the same Machine for chaining after Build.
func (m *Machine) WithSubject(id string) *Machine {
	m.subject = id
	return m
}

// Configuration returns the static topology recorded for this machine.
func (m *Machine) Configuration() *fsmtype.Configuration {
	return m.config
}

// CurrentState returns the machine's current state.
func (m *Machine) CurrentState(ctx context.Context) (fsmtype.StateSymbol, error) {
	raw, err := m.sm.State(ctx)
	if err != nil {
		return fsmtype.StateSymbol{}, err
	}
	name, _ := raw.(string)
	return fsmtype.State(name), nil
}

// InStateOrSubstate reports whether the machine is currently in state,
// or in a substate nested (directly or transitively) under it.
func (m *Machine) InStateOrSubstate(ctx context.Context, state fsmtype.StateSymbol) (bool, error) {
	return m.sm.IsInStateCtx(ctx, state.Name)
}

// CanFire reports whether trigger can be fired from the current state,
// taking active guards into account.
func (m *Machine) CanFire(ctx context.Context, trigger fsmtype.TriggerSymbol, args ...any) (bool, error) {
	return m.sm.CanFireCtx(ctx, trigger.Name, args...)
}

// PermittedTriggers returns the triggers that can currently be fired.
func (m *Machine) PermittedTriggers(ctx context.Context, args ...any) ([]fsmtype.TriggerSymbol, error) {
	raw, err := m.sm.PermittedTriggersCtx(ctx, args...)
	if err != nil {
		return nil, err
	}
	out := make([]fsmtype.TriggerSymbol, 0, len(raw))
	for _, t := range raw {
		name, _ := t.(string)
		out = append(out, fsmtype.Trigger(name))
	}
	return out, nil
}

// Fire drives one trigger to completion. It returns a *fsmerr.Error of
// KindCallbackReentrancy if an entry/exit action calls back into Fire on
// the same Machine, and KindInvalidTransition if the trigger is not
// permitted in the current state.
func (m *Machine) Fire(ctx context.Context, trigger fsmtype.TriggerSymbol, args ...any) error {
	if m.firing {
		return fsmerr.New(fsmerr.KindCallbackReentrancy, m.subject,
			fmt.Sprintf("trigger %q fired from inside a callback", trigger), nil)
	}
	m.firing = true
	defer func() { m.firing = false }()

	if err := m.sm.FireCtx(ctx, trigger.Name, args...); err != nil {
		return fsmerr.New(fsmerr.KindInvalidTransition, m.subject, err.Error(), err)
	}
	return nil
}

// RebuildAt constructs a fresh Machine from the same recorded topology as
// m, started at state rather than the configuration's declared initial
// state. The host migration controller uses this to land an upgraded
// entity at its prior current state instead of a brand-new entity's
// initial one; it panics if m was not produced by Builder.Build, since
// that indicates a programming error rather than a runtime condition.
func (m *Machine) RebuildAt(state fsmtype.StateSymbol) *Machine {
	if m.builder == nil {
		panic("fsmadapter: RebuildAt called on a Machine with no recorded builder")
	}
	return m.builder.buildAt(state).WithSubject(m.subject)
}

// OnTransitioned registers a callback invoked after every successful
// transition, receiving the source and destination state names.
func (m *Machine) OnTransitioned(fn func(ctx context.Context, from, to fsmtype.StateSymbol, trigger fsmtype.TriggerSymbol)) {
	m.sm.OnTransitioned(func(ctx context.Context, t stateless.Transition) {
		from, _ := t.Source.(string)
		to, _ := t.Destination.(string)
		trig, _ := t.Trigger.(string)
		fn(ctx, fsmtype.State(from), fsmtype.State(to), fsmtype.Trigger(trig))
	})
}
