package saga

import (
	"context"
	"time"
)

// ResultKind classifies the outcome of one step execution attempt.
type ResultKind string

const (
	ResultSuccess          ResultKind = "Success"
	ResultBusinessFailure  ResultKind = "BusinessFailure"
	ResultTechnicalFailure ResultKind = "TechnicalFailure"
)

// StepResult is what a step's Execute function returns.
type StepResult struct {
	Kind    ResultKind
	Payload any
	Reason  string
	Cause   error
}

// Success builds a successful StepResult carrying payload. The payload
// is not kept once the step ends: a later compensation of this step
// receives a successful StepResult whose Payload is nil.
func Success(payload any) StepResult { return StepResult{Kind: ResultSuccess, Payload: payload} }

// BusinessFailure builds a non-retryable failure: the saga falls through
// to compensation immediately, regardless of the step's retry budget.
func BusinessFailure(reason string) StepResult {
	return StepResult{Kind: ResultBusinessFailure, Reason: reason}
}

// TechnicalFailure builds a failure eligible for retry when the step
// allows it and its retry budget is not exhausted.
func TechnicalFailure(reason string, cause error) StepResult {
	return StepResult{Kind: ResultTechnicalFailure, Reason: reason, Cause: cause}
}

// CompensationResult is what a step's Compensate function returns.
type CompensationResult struct {
	Success bool
	Reason  string
	Cause   error
}

// CompensationSuccess is the zero-argument successful CompensationResult.
func CompensationSuccess() CompensationResult { return CompensationResult{Success: true} }

// CompensationFailure builds a failed CompensationResult. Compensation
// failures are recorded but never abort compensation of earlier steps.
func CompensationFailure(reason string, cause error) CompensationResult {
	return CompensationResult{Success: false, Reason: reason, Cause: cause}
}

// Definition is one ordered step in a saga.
type Definition struct {
	Name       string
	Timeout    time.Duration
	CanRetry   bool
	MaxRetries int
	Execute    func(ctx context.Context, data any) StepResult
	Compensate func(ctx context.Context, data any, lastResult *StepResult) CompensationResult
	Metadata   map[string]any
}

// Execution is the persisted record of one step's terminal attempt
// within a saga run.
type Execution struct {
	StepName     string
	Attempt      int
	StartedAt    time.Time
	EndedAt      time.Time
	Result       ResultKind
	Error        string
	Compensation *CompensationResult
}
