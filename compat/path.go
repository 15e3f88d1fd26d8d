package compat

import "github.com/quoriumlabs/grainfsm/fsmtype"

// MaxPathSteps is the hard ceiling on the bounded greedy walk performed
// by GetMigrationPath: a cycle or divergent rule set stops here rather
// than looping forever. Spec treats 10 as a safety net, not a tuned
// value, and leaves it implementer-configurable — grainfsm keeps it a
// constant rather than exposing a knob nothing in the corpus needed.
const MaxPathSteps = 10

// RuleSet holds the direct migration rules registered for one entity
// type, keyed by (fromVersion, toVersion).
type RuleSet struct {
	rules map[fsmtype.Version]map[fsmtype.Version]Rule
}

// NewRuleSet returns an empty RuleSet.
func NewRuleSet() *RuleSet {
	return &RuleSet{rules: make(map[fsmtype.Version]map[fsmtype.Version]Rule)}
}

// AddRule registers a direct fromVersion -> toVersion edge.
func (rs *RuleSet) AddRule(rule Rule) {
	if rs.rules[rule.FromVersion] == nil {
		rs.rules[rule.FromVersion] = make(map[fsmtype.Version]Rule)
	}
	rs.rules[rule.FromVersion][rule.ToVersion] = rule
}

// GetMigrationPath finds a path from -> to: a direct rule if one is
// registered, otherwise a bounded greedy walk that at each step picks
// the unvisited neighbor whose version is numerically closest to to.
// Returns (nil, false) if no path is found within MaxPathSteps.
func (rs *RuleSet) GetMigrationPath(from, to fsmtype.Version) (*Path, bool) {
	if direct, ok := rs.rules[from][to]; ok {
		return &Path{Steps: []Step{direct.Step}, EstimatedDurationMs: direct.Step.EstimatedDurationMs}, true
	}

	visited := map[fsmtype.Version]bool{from: true}
	current := from
	var steps []Step
	var totalMs int64

	for i := 0; i < MaxPathSteps; i++ {
		neighbors := rs.rules[current]
		if len(neighbors) == 0 {
			return nil, false
		}

		var best fsmtype.Version
		var bestRule Rule
		bestDistance := -1
		found := false
		for next, rule := range neighbors {
			if visited[next] {
				continue
			}
			dist := versionDistance(next, to)
			if !found || dist < bestDistance {
				found = true
				bestDistance = dist
				best = next
				bestRule = rule
			}
		}
		if !found {
			return nil, false
		}

		steps = append(steps, bestRule.Step)
		totalMs += bestRule.Step.EstimatedDurationMs
		visited[best] = true
		current = best

		if current.Equal(to) {
			return &Path{Steps: steps, EstimatedDurationMs: totalMs}, true
		}
	}

	return nil, false
}

// versionDistance is an absolute, monotonic distance proxy used to pick
// the greedy walk's next hop: it compares major/minor/patch triples in
// lexicographic priority so that a candidate matching more of to's
// leading components always wins over one with a smaller raw patch diff.
func versionDistance(v, to fsmtype.Version) int {
	d := absInt(int64(v.Major) - int64(to.Major))
	d = d*1_000_000 + absInt(int64(v.Minor)-int64(to.Minor))
	d = d*1_000_000 + absInt(int64(v.Patch)-int64(to.Patch))
	return int(d)
}

func absInt(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
