package compat

import (
	"fmt"

	"github.com/quoriumlabs/grainfsm/fsmtype"
)

// ValidateDeploymentCompatibility checks newVersion against every
// currently deployed existing version in both directions: whether
// existing entities could be served by newVersion's code, and whether
// newVersion's entities could fall back to an existing deployment.
func (c *Checker) ValidateDeploymentCompatibility(entityType string, newVersion fsmtype.Version, existing []fsmtype.Version) (*DeploymentValidation, error) {
	var issues []DeploymentIssue
	anyHighSeverity := false
	anyExistingBreaksFromNew := false

	for _, old := range existing {
		if old.Equal(newVersion) {
			continue
		}

		forward, err := c.CheckCompatibility(entityType, old, newVersion)
		if err != nil {
			return nil, err
		}
		if !forward.Compatible {
			issues = append(issues, DeploymentIssue{
				Severity:        SeverityHigh,
				ExistingVersion: old,
				Message:         fmt.Sprintf("entities on %s cannot be served by %s: not backward compatible", old, newVersion),
			})
			anyHighSeverity = true
		}

		if old.BreakingChangeFrom(newVersion) || newVersion.BreakingChangeFrom(old) {
			issues = append(issues, DeploymentIssue{
				Severity:        SeverityWarning,
				ExistingVersion: old,
				Message:         fmt.Sprintf("%s and %s differ by a breaking change; consider a staged migration", old, newVersion),
			})
			if newVersion.BreakingChangeFrom(old) {
				anyExistingBreaksFromNew = true
			}
		}
	}

	strategy := StrategyRollingUpdate
	switch {
	case anyHighSeverity:
		strategy = StrategyCannotDeploy
	case anyExistingBreaksFromNew:
		strategy = StrategyBlueGreenDeployment
	}

	return &DeploymentValidation{Issues: issues, Strategy: strategy}, nil
}
