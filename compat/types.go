// Package compat implements compatibility analysis and migration-path
// planning between two registered versions of one entity type
// (component C4): CheckCompatibility, GetMigrationPath,
// GetUpgradeRecommendations, and ValidateDeploymentCompatibility.
package compat

import "github.com/quoriumlabs/grainfsm/fsmtype"

// Level classifies how version "to" relates to version "from".
type Level string

const (
	Incompatible       Level = "Incompatible"
	FullyCompatible    Level = "FullyCompatible"
	BackwardCompatible Level = "BackwardCompatible"
	RequiresMigration  Level = "RequiresMigration"
)

// StepType enumerates the mechanism a MigrationStep uses to move state
// from one version's shape to another's.
type StepType string

const (
	StepAutomatic           StepType = "Automatic"
	StepCustom              StepType = "Custom"
	StepStateTransformation StepType = "StateTransformation"
	StepEventReplay         StepType = "EventReplay"
	StepManual              StepType = "Manual"
)

// Step is one registered unit of work in a migration path.
type Step struct {
	Name                string
	Description         string
	Type                StepType
	EstimatedDurationMs int64
	Transform           func(fsmtype.StateSymbol) (fsmtype.StateSymbol, error)
	Parameters          map[string]any
}

// Rule is a registered direct edge fromVersion -> toVersion.
type Rule struct {
	FromVersion fsmtype.Version
	ToVersion   fsmtype.Version
	Step        Step
}

// Path is an ordered sequence of steps whose concatenation carries an
// entity from one version to another.
type Path struct {
	Steps               []Step
	EstimatedDurationMs int64
}

// Result is the outcome of CheckCompatibility.
type Result struct {
	EntityType      string
	From            fsmtype.Version
	To              fsmtype.Version
	Level           Level
	Compatible      bool
	MigrationPath   *Path
	BreakingChanges []string
}

// RiskLevel orders qualitative risk/effort estimates. Ordinal values fix
// the ascending sort order GetUpgradeRecommendations requires.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskVeryHigh
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	case RiskVeryHigh:
		return "VeryHigh"
	default:
		return "Unknown"
	}
}

// Recommendation classifies how strongly an upgrade is endorsed.
// Ordinal values fix the ascending sort order spec requires.
type Recommendation int

const (
	HighlyRecommended Recommendation = iota
	Recommended
	ConsiderWithCaution
	NotRecommended
)

func (r Recommendation) String() string {
	switch r {
	case HighlyRecommended:
		return "HighlyRecommended"
	case Recommended:
		return "Recommended"
	case ConsiderWithCaution:
		return "ConsiderWithCaution"
	case NotRecommended:
		return "NotRecommended"
	default:
		return "Unknown"
	}
}

// UpgradeRecommendation is one entry returned by GetUpgradeRecommendations.
type UpgradeRecommendation struct {
	From            fsmtype.Version
	To              fsmtype.Version
	Recommendation  Recommendation
	EstimatedEffort RiskLevel
	RiskLevel       RiskLevel
	Benefits        []string
	Prerequisites   []string
}

// IssueSeverity classifies a deployment-compatibility issue.
type IssueSeverity string

const (
	SeverityWarning IssueSeverity = "Warning"
	SeverityHigh    IssueSeverity = "High"
)

// DeploymentIssue is one problem surfaced by ValidateDeploymentCompatibility.
type DeploymentIssue struct {
	Severity        IssueSeverity
	ExistingVersion fsmtype.Version
	Message         string
}

// DeploymentStrategy is the recommended rollout mechanism for deploying
// newVersion alongside a set of existing versions.
type DeploymentStrategy string

const (
	StrategyCannotDeploy       DeploymentStrategy = "CannotDeploy"
	StrategyBlueGreenDeployment DeploymentStrategy = "BlueGreenDeployment"
	StrategyRollingUpdate      DeploymentStrategy = "RollingUpdate"
)

// DeploymentValidation is the result of ValidateDeploymentCompatibility.
type DeploymentValidation struct {
	Issues   []DeploymentIssue
	Strategy DeploymentStrategy
}
