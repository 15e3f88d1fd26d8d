package fsmtype

// ActionDescriptor names an entry/exit action without carrying the
// closure itself — actions are opaque callbacks supplied by the grain
// author, the same way guards are opaque predicates (see Transition).
type ActionDescriptor struct {
	Description string
}

// Transition describes one (source, trigger) edge in a Configuration.
// A transition is fixed when !HasGuard && Destination is set; otherwise
// it is dynamic, with one or more PossibleDestinations.
type Transition struct {
	Source               StateSymbol
	Trigger               TriggerSymbol
	Destination          *StateSymbol // nil unless fixed
	PossibleDestinations []StateSymbol
	HasGuard             bool
	GuardDescription     string
}

// IsFixed reports whether this transition has exactly one, unconditional
// destination.
func (t Transition) IsFixed() bool {
	return !t.HasGuard && t.Destination != nil
}

// StateConfig is the per-state slice of a Configuration.
type StateConfig struct {
	Superstate        *StateSymbol
	Substates         []StateSymbol // ordered
	PermittedTriggers map[TriggerSymbol]bool
	IgnoredTriggers   map[TriggerSymbol]bool
	Transitions       []Transition
	EntryActions      []ActionDescriptor
	ExitActions       []ActionDescriptor
	IsInitial         bool
}

// transitionKey indexes the TransitionMap by (source, trigger).
type transitionKey struct {
	Source  StateSymbol
	Trigger TriggerSymbol
}

// Configuration is the immutable topology of one FSM version, as
// extracted by the introspector (see the introspect package). Once
// built it is never mutated.
type Configuration struct {
	InitialState StateSymbol
	States       map[StateSymbol]StateConfig

	// transitionMap is the derived O(1) (source, trigger) -> []Transition
	// index described in spec §3. Built once by NewConfiguration, never touched
	// afterwards.
	transitionMap map[transitionKey][]Transition
}

// NewConfiguration builds a Configuration from a states map, deriving the
// TransitionMap index. It is the only way to construct a Configuration,
// keeping the invariant that Configurations are immutable once returned.
func NewConfiguration(initial StateSymbol, states map[StateSymbol]StateConfig) *Configuration {
	tm := make(map[transitionKey][]Transition)
	for state, cfg := range states {
		for _, t := range cfg.Transitions {
			key := transitionKey{Source: state, Trigger: t.Trigger}
			tm[key] = append(tm[key], t)
		}
	}
	return &Configuration{
		InitialState:  initial,
		States:        states,
		transitionMap: tm,
	}
}

// TransitionsFor returns the transitions registered for (source, trigger),
// in registration order. O(1) lookup via the derived index.
func (c *Configuration) TransitionsFor(source StateSymbol, trigger TriggerSymbol) []Transition {
	return c.transitionMap[transitionKey{Source: source, Trigger: trigger}]
}

// TransitionMapLen returns the number of distinct (source, trigger) pairs
// with at least one transition — used by the similarity score in Diff.
func (c *Configuration) TransitionMapLen() int {
	return len(c.transitionMap)
}

// HasState reports whether state is part of this configuration.
func (c *Configuration) HasState(state StateSymbol) bool {
	_, ok := c.States[state]
	return ok
}
