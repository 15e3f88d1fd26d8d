package compat

import (
	"sort"
	"strings"

	"github.com/quoriumlabs/grainfsm/fsmtype"
)

// GetUpgradeRecommendations returns a recommendation for every available
// version of entityType greater than current, sorted by recommendation
// ascending then risk level ascending.
func (c *Checker) GetUpgradeRecommendations(entityType string, current fsmtype.Version) ([]UpgradeRecommendation, error) {
	versions := c.reg.GetAvailableVersions(entityType)

	var out []UpgradeRecommendation
	for _, target := range versions {
		if !current.Less(target) {
			continue
		}
		result, err := c.CheckCompatibility(entityType, current, target)
		if err != nil {
			return nil, err
		}
		out = append(out, buildRecommendation(current, target, result))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Recommendation != out[j].Recommendation {
			return out[i].Recommendation < out[j].Recommendation
		}
		return out[i].RiskLevel < out[j].RiskLevel
	})

	return out, nil
}

func buildRecommendation(current, target fsmtype.Version, result *Result) UpgradeRecommendation {
	hasHighImpact := hasHighImpactChange(result.BreakingChanges)

	rec := UpgradeRecommendation{From: current, To: target}

	switch {
	case result.Level == Incompatible:
		rec.Recommendation = NotRecommended
		rec.EstimatedEffort = RiskVeryHigh
		rec.RiskLevel = RiskVeryHigh
	case result.Level == FullyCompatible:
		rec.Recommendation = HighlyRecommended
		rec.EstimatedEffort = RiskLow
		rec.RiskLevel = RiskLow
	case len(result.BreakingChanges) == 0:
		rec.Recommendation = Recommended
		rec.EstimatedEffort = RiskMedium
		if hasHighImpact {
			rec.RiskLevel = RiskMedium
		} else {
			rec.RiskLevel = RiskLow
		}
	default:
		rec.Recommendation = ConsiderWithCaution
		rec.EstimatedEffort = RiskHigh
		if hasHighImpact {
			rec.RiskLevel = RiskHigh
		} else {
			rec.RiskLevel = RiskMedium
		}
	}

	if result.MigrationPath != nil {
		rec.Prerequisites = append(rec.Prerequisites, "migration path available")
	}
	if result.Level == FullyCompatible || result.Level == BackwardCompatible {
		rec.Benefits = append(rec.Benefits, "no state transformation required")
	}

	return rec
}

// hasHighImpactChange reports whether any breaking change reason names a
// removal rather than a purely additive or version-counter change.
func hasHighImpactChange(reasons []string) bool {
	for _, r := range reasons {
		if strings.HasPrefix(r, "StateRemoved:") || strings.HasPrefix(r, "TransitionRemoved:") {
			return true
		}
	}
	return false
}
