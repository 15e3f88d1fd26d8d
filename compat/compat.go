package compat

import (
	"fmt"

	"github.com/quoriumlabs/grainfsm/fsmerr"
	"github.com/quoriumlabs/grainfsm/fsmtype"
	"github.com/quoriumlabs/grainfsm/introspect"
	"github.com/quoriumlabs/grainfsm/registry"
)

// Checker computes compatibility and migration plans for entity types
// registered in reg, using rule sets registered per entity type for
// migration-path discovery.
type Checker struct {
	reg       *registry.Registry
	ruleSets  map[string]*RuleSet
}

// NewChecker constructs a Checker bound to reg.
func NewChecker(reg *registry.Registry) *Checker {
	return &Checker{reg: reg, ruleSets: make(map[string]*RuleSet)}
}

// Rules returns the RuleSet for entityType, creating an empty one on
// first use so callers can register migration rules before any
// CheckCompatibility call.
func (c *Checker) Rules(entityType string) *RuleSet {
	rs, ok := c.ruleSets[entityType]
	if !ok {
		rs = NewRuleSet()
		c.ruleSets[entityType] = rs
	}
	return rs
}

// AnalyzeVersionCompatibility classifies to relative to from, following
// spec's SemVer-driven level assignment, then force-demotes to
// Incompatible if the breaking-change predicate holds.
func AnalyzeVersionCompatibility(from, to fsmtype.Version) Level {
	if !from.Less(to) {
		return Incompatible
	}
	if from.Major == to.Major && from.Minor == to.Minor {
		return FullyCompatible
	}
	if from.Major == to.Major && from.Minor < to.Minor {
		return BackwardCompatible
	}
	level := RequiresMigration
	if from.BreakingChangeFrom(to) {
		level = Incompatible
	}
	return level
}

// AnalyzeBreakingChanges lists the breaking-change reasons between from
// and to. diff may be nil when no Configuration comparison is available
// (e.g. one version failed to build); in that case only the version-level
// predicate is evaluated.
func AnalyzeBreakingChanges(from, to fsmtype.Version, diff *introspect.ConfigurationDiff) []string {
	var reasons []string
	if to.Major > from.Major {
		reasons = append(reasons, "MajorVersionIncrease")
	}
	if diff == nil {
		return reasons
	}
	for _, s := range diff.RemovedStates {
		reasons = append(reasons, fmt.Sprintf("StateRemoved:%s", s))
	}
	for _, t := range diff.RemovedTransitions {
		reasons = append(reasons, fmt.Sprintf("TransitionRemoved:%s/%s", t.Source, t.Trigger))
	}
	for _, m := range diff.ModifiedTransitions {
		reasons = append(reasons, fmt.Sprintf("TransitionDestinationChanged:%s/%s", m.Source, m.Trigger))
	}
	return reasons
}

// CheckCompatibility computes a full Result for upgrading entityType
// from version "from" to version "to".
func (c *Checker) CheckCompatibility(entityType string, from, to fsmtype.Version) (*Result, error) {
	fromEntry, err := c.reg.Get(entityType, from)
	if err != nil {
		return nil, fsmerr.New(fsmerr.KindVersionNotFound, entityType, from.String(), err)
	}
	toEntry, err := c.reg.Get(entityType, to)
	if err != nil {
		return nil, fsmerr.New(fsmerr.KindVersionNotFound, entityType, to.String(), err)
	}

	level := AnalyzeVersionCompatibility(from, to)

	var diff *introspect.ConfigurationDiff
	fromCfg := introspect.Extract(fromEntry.Factory())
	toCfg := introspect.Extract(toEntry.Factory())
	d := introspect.Diff(fromCfg, toCfg)
	diff = &d

	path, _ := c.Rules(entityType).GetMigrationPath(from, to)
	breaking := AnalyzeBreakingChanges(from, to, diff)

	compatible := level != Incompatible && (path != nil || len(breaking) == 0)

	return &Result{
		EntityType:      entityType,
		From:            from,
		To:              to,
		Level:           level,
		Compatible:      compatible,
		MigrationPath:   path,
		BreakingChanges: breaking,
	}, nil
}

// GetMigrationPath is a convenience wrapper around the entity type's
// registered RuleSet.
func (c *Checker) GetMigrationPath(entityType string, from, to fsmtype.Version) (*Path, bool) {
	return c.Rules(entityType).GetMigrationPath(from, to)
}
