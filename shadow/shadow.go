// Package shadow predicts how a trigger would behave across several
// versions of an entity type without mutating any live machine
// (component C5): every version's configuration is checked for the
// current state and run through introspect.Predict.
package shadow

import (
	"time"

	"github.com/quoriumlabs/grainfsm/fsmtype"
	"github.com/quoriumlabs/grainfsm/introspect"
)

// VersionedConfiguration pairs one registered version with the
// Configuration extracted from its factory, the unit EvaluateAcrossVersions
// fans out over.
type VersionedConfiguration struct {
	Version fsmtype.Version
	Config  *fsmtype.Configuration
}

// Result is the outcome of shadow-evaluating one version.
type Result struct {
	Version        fsmtype.Version
	WouldSucceed   bool
	PredictedState *fsmtype.StateSymbol
	Duration       time.Duration
	Error          string
}

// Consensus classifies the agreement across every Result in a Comparison.
type Consensus string

const (
	NoResults            Consensus = "NoResults"
	AllSuccess           Consensus = "AllSuccess"
	SuccessWithDivergence Consensus = "SuccessWithDivergence"
	AllFailure           Consensus = "AllFailure"
	Mixed                Consensus = "Mixed"
)

// Comparison is the full result of EvaluateAcrossVersions.
type Comparison struct {
	CurrentVersion      fsmtype.Version
	CurrentState        fsmtype.StateSymbol
	Trigger             fsmtype.TriggerSymbol
	Results             []Result
	DivergentBehavior   bool
	ConsensusType       Consensus
	ConsensusPrediction *fsmtype.StateSymbol
}

// EvaluateAcrossVersions runs Predict against every configuration in
// versioned, anchored at currentState, without mutating any live
// machine. Guarded transitions use the first possible destination as
// their nominal prediction, a documented limitation: real guard
// evaluation would require live state the shadow evaluator never touches.
func EvaluateAcrossVersions(currentState fsmtype.StateSymbol, trigger fsmtype.TriggerSymbol, versioned []VersionedConfiguration, currentVersion fsmtype.Version) Comparison {
	comparison := Comparison{
		CurrentVersion: currentVersion,
		CurrentState:   currentState,
		Trigger:        trigger,
	}

	for _, vc := range versioned {
		start := time.Now()
		result := evaluateOne(vc, currentState, trigger)
		result.Duration = time.Since(start)
		comparison.Results = append(comparison.Results, result)
	}

	classify(&comparison)
	return comparison
}

func evaluateOne(vc VersionedConfiguration, currentState fsmtype.StateSymbol, trigger fsmtype.TriggerSymbol) Result {
	if !vc.Config.HasState(currentState) {
		return Result{Version: vc.Version, WouldSucceed: false, Error: "state not present in this version's configuration"}
	}

	prediction := introspect.Predict(vc.Config, currentState, trigger)
	if !prediction.CanFire {
		return Result{Version: vc.Version, WouldSucceed: false, Error: prediction.Reason}
	}

	predicted := prediction.PredictedState
	if predicted == nil && len(prediction.PossibleDestinations) > 0 {
		nominal := prediction.PossibleDestinations[0]
		predicted = &nominal
	}

	return Result{Version: vc.Version, WouldSucceed: true, PredictedState: predicted}
}

func classify(c *Comparison) {
	if len(c.Results) == 0 {
		c.ConsensusType = NoResults
		return
	}

	successCount, failureCount := 0, 0
	distinct := make(map[fsmtype.StateSymbol]bool)
	for _, r := range c.Results {
		if r.WouldSucceed {
			successCount++
			if r.PredictedState != nil {
				distinct[*r.PredictedState] = true
			}
		} else {
			failureCount++
		}
	}

	c.DivergentBehavior = (successCount > 0 && failureCount > 0) || len(distinct) >= 2

	switch {
	case failureCount == 0:
		if len(distinct) >= 2 {
			c.ConsensusType = SuccessWithDivergence
		} else {
			c.ConsensusType = AllSuccess
			for s := range distinct {
				state := s
				c.ConsensusPrediction = &state
			}
		}
	case successCount == 0:
		c.ConsensusType = AllFailure
	default:
		c.ConsensusType = Mixed
	}
}
