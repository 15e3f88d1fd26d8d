package saga

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoriumlabs/grainfsm/fsmtype"
)

func succeedingStep(name string) Definition {
	return Definition{
		Name:    name,
		Execute: func(context.Context, any) StepResult { return Success(name) },
	}
}

func TestSagaExecuteAllStepsSucceed(t *testing.T) {
	var events []fsmtype.SagaEvent
	s, err := New([]Definition{succeedingStep("reserve"), succeedingStep("charge")},
		WithEventSink(func(e fsmtype.SagaEvent) { events = append(events, e) }))
	require.NoError(t, err)

	require.NoError(t, s.Execute(context.Background(), nil, "corr-1"))
	assert.Equal(t, StatusSucceeded, s.Status.GetState())
	assert.Equal(t, 2, s.CurrentIndex)
	assert.Len(t, s.History, 2)
	assert.NotEmpty(t, events)
	assert.NotEmpty(t, s.BusinessTxID)
}

func TestSagaExecuteCompensatesOnBusinessFailure(t *testing.T) {
	compensated := make([]string, 0)
	reserve := Definition{
		Name:       "reserve",
		Execute:    func(context.Context, any) StepResult { return Success(nil) },
		Compensate: func(context.Context, any, *StepResult) CompensationResult { compensated = append(compensated, "reserve"); return CompensationSuccess() },
	}
	charge := Definition{
		Name:    "charge",
		Execute: func(context.Context, any) StepResult { return BusinessFailure("insufficient funds") },
	}

	s, err := New([]Definition{reserve, charge})
	require.NoError(t, err)

	err = s.Execute(context.Background(), nil, "corr-2")
	require.NoError(t, err)
	assert.Equal(t, StatusCompensated, s.Status.GetState())
	assert.Equal(t, []string{"reserve"}, compensated)
}

func TestSagaExecuteRetriesTechnicalFailure(t *testing.T) {
	attempts := 0
	flaky := Definition{
		Name:       "flaky",
		CanRetry:   true,
		MaxRetries: 3,
		Execute: func(context.Context, any) StepResult {
			attempts++
			if attempts < 2 {
				return TechnicalFailure("transient", nil)
			}
			return Success(nil)
		},
	}

	s, err := New([]Definition{flaky}, WithBackoffBase(time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, s.Execute(context.Background(), nil, "corr-3"))
	assert.Equal(t, 2, attempts)
	assert.Equal(t, StatusSucceeded, s.Status.GetState())
}

func TestSagaExecuteFailsAfterRetriesExhausted(t *testing.T) {
	attempts := 0
	alwaysFails := Definition{
		Name:       "always-fails",
		CanRetry:   true,
		MaxRetries: 2,
		Execute: func(context.Context, any) StepResult {
			attempts++
			return TechnicalFailure("boom", nil)
		},
	}

	s, err := New([]Definition{alwaysFails}, WithBackoffBase(time.Millisecond))
	require.NoError(t, err)

	err = s.Execute(context.Background(), nil, "corr-4")
	require.Error(t, err)
	assert.Equal(t, StatusCompensated, s.Status.GetState(), "no prior successful steps to compensate, so the status still reaches compensated")
	assert.Equal(t, 3, attempts, "MaxRetries=2 must allow one initial attempt plus two retries")
	require.Len(t, s.History, 1)
	assert.Equal(t, 3, s.History[0].Attempt)
}

func TestSagaExecuteRecordsFailedCompensation(t *testing.T) {
	reserve := Definition{
		Name:       "reserve",
		Execute:    func(context.Context, any) StepResult { return Success(nil) },
		Compensate: func(context.Context, any, *StepResult) CompensationResult { return CompensationFailure("cannot undo", nil) },
	}
	charge := Definition{Name: "charge", Execute: func(context.Context, any) StepResult { return BusinessFailure("no funds") }}

	s, err := New([]Definition{reserve, charge})
	require.NoError(t, err)

	err = s.Execute(context.Background(), nil, "corr-5")
	require.Error(t, err)
	assert.Equal(t, StatusFailed, s.Status.GetState())
}

func TestSagaExecuteTimeoutBecomesTechnicalFailure(t *testing.T) {
	slow := Definition{
		Name:    "slow",
		Timeout: 5 * time.Millisecond,
		Execute: func(ctx context.Context, _ any) StepResult {
			select {
			case <-time.After(50 * time.Millisecond):
				return Success(nil)
			case <-ctx.Done():
				return TechnicalFailure("timeout", ctx.Err())
			}
		},
	}

	s, err := New([]Definition{slow}, WithBackoffBase(time.Millisecond))
	require.NoError(t, err)

	err = s.Execute(context.Background(), nil, "corr-6")
	require.Error(t, err)
	require.Len(t, s.History, 1)
	assert.Equal(t, ResultTechnicalFailure, s.History[0].Result)
}

func TestSagaBusinessTxIDGeneratorOverride(t *testing.T) {
	s, err := New([]Definition{succeedingStep("a")}, WithBusinessTxIDGenerator(func(any) string { return "custom-id" }))
	require.NoError(t, err)

	require.NoError(t, s.Execute(context.Background(), nil, "corr-7"))
	assert.Equal(t, "custom-id", s.BusinessTxID)
}

func TestBackoffDelayCapsAtMaxBackoff(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(time.Second, 1))
	assert.Equal(t, 2*time.Second, backoffDelay(time.Second, 2))
	assert.Equal(t, MaxBackoff, backoffDelay(time.Second, 10))
}
