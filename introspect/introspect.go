// Package introspect derives static facts about an fsmtype.Configuration
// without ever driving the live machine it came from: diffing two
// versions, predicting the outcome of a not-yet-fired trigger, and
// cloning a configuration's unguarded shape into a fresh builder.
package introspect

import (
	"fmt"

	"github.com/quoriumlabs/grainfsm/fsmadapter"
	"github.com/quoriumlabs/grainfsm/fsmtype"
)

// Extract returns the Configuration recorded for m. Since fsmadapter
// builds Configuration at Build time rather than reflecting over a live
// stateless.StateMachine, this is O(1); it exists so callers work
// against the introspect package's contract instead of reaching into
// fsmadapter directly.
func Extract(m *fsmadapter.Machine) *fsmtype.Configuration {
	return m.Configuration()
}

// ConfigurationDiff is the result of comparing two Configurations,
// typically two versions of the same entity type.
type ConfigurationDiff struct {
	AddedStates      []fsmtype.StateSymbol
	RemovedStates    []fsmtype.StateSymbol
	AddedTransitions []fsmtype.Transition
	RemovedTransitions []fsmtype.Transition
	ModifiedTransitions []ModifiedTransition
	GuardChanges     []GuardChange
	HasBreakingChanges bool
	Similarity       float64
}

// ModifiedTransition records a (state, trigger) pair present in both
// configurations whose fixed destination changed.
type ModifiedTransition struct {
	Source      fsmtype.StateSymbol
	Trigger     fsmtype.TriggerSymbol
	FromDest    fsmtype.StateSymbol
	ToDest      fsmtype.StateSymbol
}

// GuardChange records a (state, trigger) pair whose number of guarded
// alternatives changed between A and B.
type GuardChange struct {
	Source     fsmtype.StateSymbol
	Trigger    fsmtype.TriggerSymbol
	FromGuards int
	ToGuards   int
}

// Diff computes the structural difference between two configurations,
// typically representing two versions of one entity type.
func Diff(a, b *fsmtype.Configuration) ConfigurationDiff {
	var d ConfigurationDiff

	for s := range a.States {
		if !b.HasState(s) {
			d.RemovedStates = append(d.RemovedStates, s)
		}
	}
	for s := range b.States {
		if !a.HasState(s) {
			d.AddedStates = append(d.AddedStates, s)
		}
	}

	common := make(map[fsmtype.StateSymbol]bool)
	for s := range a.States {
		if b.HasState(s) {
			common[s] = true
		}
	}

	for s := range common {
		aCfg := a.States[s]
		bCfg := b.States[s]

		aTriggers := triggerSet(aCfg)
		bTriggers := triggerSet(bCfg)

		for trig := range aTriggers {
			if !bTriggers[trig] {
				d.RemovedTransitions = append(d.RemovedTransitions, a.TransitionsFor(s, trig)...)
			}
		}
		for trig := range bTriggers {
			if !aTriggers[trig] {
				d.AddedTransitions = append(d.AddedTransitions, b.TransitionsFor(s, trig)...)
			}
		}

		for trig := range aTriggers {
			if !bTriggers[trig] {
				continue
			}
			aTs := a.TransitionsFor(s, trig)
			bTs := b.TransitionsFor(s, trig)
			compareTransitionPair(s, trig, aTs, bTs, &d)
		}
	}

	denom := len(a.States) + len(b.States) + a.TransitionMapLen() + b.TransitionMapLen()
	changed := len(d.AddedStates) + len(d.RemovedStates) + len(d.AddedTransitions) + len(d.RemovedTransitions) + len(d.ModifiedTransitions)
	if denom == 0 {
		d.Similarity = 1.0
	} else {
		d.Similarity = 1.0 - float64(changed)/float64(denom)
	}

	d.HasBreakingChanges = len(d.RemovedStates) > 0 || len(d.RemovedTransitions) > 0
	for _, m := range d.ModifiedTransitions {
		if m.FromDest != m.ToDest {
			d.HasBreakingChanges = true
		}
	}

	return d
}

func triggerSet(cfg fsmtype.StateConfig) map[fsmtype.TriggerSymbol]bool {
	out := make(map[fsmtype.TriggerSymbol]bool)
	for t := range cfg.PermittedTriggers {
		out[t] = true
	}
	return out
}

func compareTransitionPair(source fsmtype.StateSymbol, trigger fsmtype.TriggerSymbol, aTs, bTs []fsmtype.Transition, d *ConfigurationDiff) {
	aFixed, aGuarded := splitFixed(aTs)
	bFixed, bGuarded := splitFixed(bTs)

	if len(aGuarded) != len(bGuarded) {
		d.GuardChanges = append(d.GuardChanges, GuardChange{
			Source: source, Trigger: trigger, FromGuards: len(aGuarded), ToGuards: len(bGuarded),
		})
	}

	if len(aFixed) == 1 && len(bFixed) == 1 && *aFixed[0].Destination != *bFixed[0].Destination {
		d.ModifiedTransitions = append(d.ModifiedTransitions, ModifiedTransition{
			Source: source, Trigger: trigger,
			FromDest: *aFixed[0].Destination, ToDest: *bFixed[0].Destination,
		})
	}
}

func splitFixed(ts []fsmtype.Transition) (fixed, guarded []fsmtype.Transition) {
	for _, t := range ts {
		if t.IsFixed() {
			fixed = append(fixed, t)
		} else {
			guarded = append(guarded, t)
		}
	}
	return fixed, guarded
}

// Prediction is the outcome of a hypothetical Fire, computed without
// touching any live machine. Guards are never evaluated: a guarded
// transition's outcome is intentionally indeterminate (PredictedState is
// unset, PossibleDestinations lists every guarded alternative).
type Prediction struct {
	CanFire              bool
	IsIgnored            bool
	HasGuard             bool
	PredictedState       *fsmtype.StateSymbol
	PossibleDestinations []fsmtype.StateSymbol
	Reason               string
}

// Predict evaluates what would happen if trigger were fired from
// currentState under cfg, following the lookup order: state presence,
// ignored triggers, permitted triggers, fixed destination, single-option
// dynamic destination, multi-option dynamic destination.
func Predict(cfg *fsmtype.Configuration, currentState fsmtype.StateSymbol, trigger fsmtype.TriggerSymbol) Prediction {
	stateCfg, ok := cfg.States[currentState]
	if !ok {
		return Prediction{CanFire: false, Reason: fmt.Sprintf("state %q is not part of this configuration", currentState)}
	}

	if stateCfg.IgnoredTriggers[trigger] {
		s := currentState
		return Prediction{CanFire: true, IsIgnored: true, PredictedState: &s, Reason: "trigger is ignored in this state"}
	}

	if !stateCfg.PermittedTriggers[trigger] {
		return Prediction{CanFire: false, Reason: fmt.Sprintf("trigger %q is not permitted from state %q", trigger, currentState)}
	}

	transitions := cfg.TransitionsFor(currentState, trigger)
	fixed, guarded := splitFixed(transitions)

	if len(fixed) > 0 {
		dest := *fixed[0].Destination
		return Prediction{CanFire: true, PredictedState: &dest, Reason: "fixed transition"}
	}

	var possible []fsmtype.StateSymbol
	for _, t := range guarded {
		possible = append(possible, t.PossibleDestinations...)
	}
	if len(possible) == 1 {
		dest := possible[0]
		return Prediction{CanFire: true, HasGuard: true, PredictedState: &dest, PossibleDestinations: possible, Reason: "single guarded destination"}
	}

	return Prediction{
		CanFire:              true,
		HasGuard:             true,
		PossibleDestinations: possible,
		Reason:               "multiple guarded destinations, outcome depends on runtime guard evaluation",
	}
}

// CloneWarning records a guarded transition that Clone could not carry
// over, since a Configuration holds only the guard's description, never
// the predicate closure itself.
type CloneWarning struct {
	Source  fsmtype.StateSymbol
	Trigger fsmtype.TriggerSymbol
	Message string
}

// CloneResult is the output of Clone: the new builder plus any warnings
// about transitions it could not faithfully reproduce.
type CloneResult struct {
	Builder  *fsmadapter.Builder
	Warnings []CloneWarning
}

// Clone rebuilds cfg's unguarded shape into a fresh Builder: states and
// substate relations and ignored triggers first, then fixed transitions.
// Guarded transitions are omitted with a warning, never an error, since
// their predicate cannot be recovered from a Configuration. If newInitial
// is the zero value, cfg.InitialState is kept.
func Clone(cfg *fsmtype.Configuration, newInitial fsmtype.StateSymbol) CloneResult {
	initial := cfg.InitialState
	if newInitial != (fsmtype.StateSymbol{}) {
		initial = newInitial
	}
	b := fsmadapter.NewBuilder(initial)
	var warnings []CloneWarning

	for state, sc := range cfg.States {
		sb := b.Configure(state)
		if sc.Superstate != nil {
			sb.SubstateOf(*sc.Superstate)
		}
		for trig := range sc.IgnoredTriggers {
			sb.Ignore(trig)
		}
	}

	for state, sc := range cfg.States {
		sb := b.Configure(state)
		for _, t := range sc.Transitions {
			if t.IsFixed() {
				sb.Permit(t.Trigger, *t.Destination)
				continue
			}
			warnings = append(warnings, CloneWarning{
				Source:  state,
				Trigger: t.Trigger,
				Message: "guarded transition omitted: predicate is not recoverable from a Configuration",
			})
		}
	}

	return CloneResult{Builder: b, Warnings: warnings}
}
