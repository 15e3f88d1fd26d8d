// Package fsmtype holds the data types shared across grainfsm's
// introspection, registry, compatibility, shadow-evaluation, migration,
// and event-log packages: version triples, state/trigger symbols, the
// immutable Configuration graph, and the persisted event shapes.
package fsmtype

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a SemVer-ordered (major, minor, patch) triple with optional
// pre-release identifiers. Build metadata is accepted but ignored for
// ordering and compatibility purposes.
type Version struct {
	Major      uint64
	Minor      uint64
	Patch      uint64
	PreRelease string // dot-separated identifiers, e.g. "alpha.1"
	Build      string // ignored for ordering
}

// New constructs a Version with no pre-release or build metadata.
func New(major, minor, patch uint64) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// String renders the version as "major.minor.patch[-prerelease][+build]".
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.PreRelease != "" {
		s += "-" + v.PreRelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// ParseVersion parses a "major.minor.patch[-prerelease][+build]" string.
func ParseVersion(s string) (Version, error) {
	var v Version
	if b := strings.IndexByte(s, '+'); b >= 0 {
		v.Build = s[b+1:]
		s = s[:b]
	}
	if p := strings.IndexByte(s, '-'); p >= 0 {
		v.PreRelease = s[p+1:]
		s = s[:p]
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("fsmtype: invalid version %q: expected major.minor.patch", s)
	}
	nums := make([]uint64, 3)
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("fsmtype: invalid version component %q in %q: %w", p, s, err)
		}
		nums[i] = n
	}
	v.Major, v.Minor, v.Patch = nums[0], nums[1], nums[2]
	return v, nil
}

// Compare returns -1, 0, or 1 as v precedes, equals, or follows other,
// following SemVer precedence rules. Build metadata never participates.
func (v Version) Compare(other Version) int {
	if c := compareUint(v.Major, other.Major); c != 0 {
		return c
	}
	if c := compareUint(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := compareUint(v.Patch, other.Patch); c != 0 {
		return c
	}
	return comparePreRelease(v.PreRelease, other.PreRelease)
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// comparePreRelease implements SemVer precedence for the pre-release
// portion: a version with a pre-release has lower precedence than the
// same version without one; otherwise identifiers are compared
// left-to-right (numeric identifiers compare numerically and are always
// lower than non-numeric ones, which compare lexically).
func comparePreRelease(a, b string) int {
	if a == "" && b == "" {
		return 0
	}
	if a == "" {
		return 1 // no pre-release outranks having one
	}
	if b == "" {
		return -1
	}
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")
	for i := 0; i < len(aParts) && i < len(bParts); i++ {
		if c := compareIdentifier(aParts[i], bParts[i]); c != 0 {
			return c
		}
	}
	return compareUint(uint64(len(aParts)), uint64(len(bParts)))
}

func compareIdentifier(a, b string) int {
	an, aErr := strconv.ParseUint(a, 10, 64)
	bn, bErr := strconv.ParseUint(b, 10, 64)
	aNumeric, bNumeric := aErr == nil, bErr == nil
	switch {
	case aNumeric && bNumeric:
		return compareUint(an, bn)
	case aNumeric && !bNumeric:
		return -1
	case !aNumeric && bNumeric:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// Less reports whether v sorts strictly before other.
func (v Version) Less(other Version) bool { return v.Compare(other) < 0 }

// Equal reports whether v and other compare equal (ignoring build metadata).
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// CompatibleWith implements spec's compatibility predicate:
// A compatibleWith B iff A.Major == B.Major && A.Minor <= B.Minor.
func (v Version) CompatibleWith(other Version) bool {
	return v.Major == other.Major && v.Minor <= other.Minor
}

// BreakingChangeFrom reports whether moving from v to other is a breaking
// change: other.Major > v.Major.
func (v Version) BreakingChangeFrom(other Version) bool {
	return other.Major > v.Major
}
