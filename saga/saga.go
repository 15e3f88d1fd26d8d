package saga

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/quoriumlabs/grainfsm/fsmerr"
	"github.com/quoriumlabs/grainfsm/fsmtype"
)

// DefaultBackoffBase is the base retry delay: attempt N waits
// base*2^(attempt-1), capped at MaxBackoff.
const DefaultBackoffBase = time.Second

// MaxBackoff caps the exponential backoff applied between retries.
const MaxBackoff = 30 * time.Second

// EventSink receives a SagaEvent for every step lifecycle occurrence.
type EventSink func(fsmtype.SagaEvent)

// Option configures a Saga at construction time, following the
// functional-options pattern used throughout the retrieved corpus.
type Option func(*Saga)

// WithBackoffBase overrides DefaultBackoffBase.
func WithBackoffBase(d time.Duration) Option {
	return func(s *Saga) { s.backoffBase = d }
}

// WithEventSink routes every SagaEvent this saga emits to sink.
func WithEventSink(sink EventSink) Option {
	return func(s *Saga) { s.emit = sink }
}

// WithBusinessTxIDGenerator overrides the default
// "SAGA-<id>-<utcMillis>" business transaction id generator.
func WithBusinessTxIDGenerator(fn func(data any) string) Option {
	return func(s *Saga) { s.generateBusinessTxID = fn }
}

// WithLogger attaches a logger, following the teacher's convention of a
// single *slog.Logger passed through every component constructor.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Saga) { s.logger = logger }
}

// Saga is one runnable instance of an ordered step sequence. Saga
// instances are entity-addressable: one saga runs as one single-threaded
// entity, the same concurrency assumption fsmadapter.Machine makes.
type Saga struct {
	ID           string
	BusinessTxID string
	Steps        []Definition
	CurrentIndex int
	Status       *StatusMachine
	History      []Execution

	backoffBase           time.Duration
	emit                  EventSink
	generateBusinessTxID  func(data any) string
	logger                *slog.Logger
}

// New constructs a Saga with a freshly generated id and the given ordered
// steps.
func New(steps []Definition, opts ...Option) (*Saga, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().WithGroup("saga")
	status, err := newStatusMachine(logger.Handler())
	if err != nil {
		return nil, err
	}

	s := &Saga{
		ID:          id.String(),
		Steps:       steps,
		Status:      status,
		backoffBase: DefaultBackoffBase,
		emit:        func(fsmtype.SagaEvent) {},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Execute drives every step in order to completion, falling through to
// reverse-order compensation on the first unrecoverable failure. It
// returns an error when a compensation fails or when a step's technical
// failure exhausts its retries; a business failure whose compensation
// succeeds returns nil.
func (s *Saga) Execute(ctx context.Context, data any, correlationID string) error {
	if err := s.Status.Transition(StatusRunning); err != nil {
		return fsmerr.New(fsmerr.KindInvalidTransition, s.ID, "cannot start saga", err)
	}

	if s.generateBusinessTxID != nil {
		s.BusinessTxID = s.generateBusinessTxID(data)
	} else {
		s.BusinessTxID = fmt.Sprintf("SAGA-%s-%d", s.ID, time.Now().UTC().UnixMilli())
	}
	s.emitStatusChange(correlationID)

	for i := 0; i < len(s.Steps); i++ {
		step := s.Steps[i]
		result, attempt := s.runStepWithRetries(ctx, step, data, correlationID)
		s.History = append(s.History, Execution{
			StepName:  step.Name,
			Attempt:   attempt,
			EndedAt:   time.Now().UTC(),
			Result:    result.Kind,
			Error:     result.Reason,
		})

		if result.Kind == ResultSuccess {
			s.CurrentIndex = i + 1
			s.emitStepEnd(step.Name, attempt, result, correlationID)
			continue
		}

		s.emitStepEnd(step.Name, attempt, result, correlationID)
		if err := s.compensate(ctx, data, correlationID, i); err != nil {
			return err
		}
		if result.Kind == ResultTechnicalFailure {
			return fsmerr.New(fsmerr.KindStepTechnicalFailure, s.ID,
				fmt.Sprintf("step %s failed after %d attempt(s): %s", step.Name, attempt, result.Reason), result.Cause)
		}
		return nil
	}

	if err := s.Status.Transition(StatusSucceeded); err != nil {
		return fsmerr.New(fsmerr.KindInvalidTransition, s.ID, "cannot mark saga succeeded", err)
	}
	s.emitStatusChange(correlationID)
	return nil
}

// runStepWithRetries runs one step to its terminal outcome: success,
// business failure (no retry), or technical failure/timeout retried up
// to step.MaxRetries times with exponential backoff.
func (s *Saga) runStepWithRetries(ctx context.Context, step Definition, data any, correlationID string) (StepResult, int) {
	attempt := 1
	for {
		s.emitStepStart(step.Name, attempt, correlationID)
		result := s.runStepOnce(ctx, step, data)

		if result.Kind == ResultSuccess || result.Kind == ResultBusinessFailure {
			return result, attempt
		}

		if !step.CanRetry || attempt > step.MaxRetries {
			return result, attempt
		}

		delay := backoffDelay(s.backoffBase, attempt)
		s.logger.Debug("retrying saga step after technical failure",
			"saga", s.ID, "step", step.Name, "attempt", attempt, "delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return TechnicalFailure("context canceled during backoff", ctx.Err()), attempt
		}
		attempt++
	}
}

// runStepOnce invokes step.Execute under a per-step timeout, reporting a
// timeout as a TechnicalFailure eligible for the same retry budget as any
// other technical failure.
func (s *Saga) runStepOnce(ctx context.Context, step Definition, data any) StepResult {
	stepCtx := ctx
	var cancel context.CancelFunc
	if step.Timeout > 0 {
		stepCtx, cancel = context.WithTimeout(ctx, step.Timeout)
		defer cancel()
	}

	done := make(chan StepResult, 1)
	go func() {
		done <- step.Execute(stepCtx, data)
	}()

	select {
	case result := <-done:
		return result
	case <-stepCtx.Done():
		return TechnicalFailure("timeout", stepCtx.Err())
	}
}

// compensate rolls back every step that succeeded before failureIndex, in
// reverse order, recording but not aborting on individual compensation
// failures.
func (s *Saga) compensate(ctx context.Context, data any, correlationID string, failureIndex int) error {
	if err := s.Status.Transition(StatusCompensating); err != nil {
		return fsmerr.New(fsmerr.KindInvalidTransition, s.ID, "cannot begin compensation", err)
	}
	s.emitStatusChange(correlationID)

	allCompensated := true
	for j := failureIndex - 1; j >= 0; j-- {
		step := s.Steps[j]
		if step.Compensate == nil {
			continue
		}

		var lastResult *StepResult
		for i := len(s.History) - 1; i >= 0; i-- {
			if s.History[i].StepName == step.Name && s.History[i].Result == ResultSuccess {
				r := Success(nil)
				lastResult = &r
				break
			}
		}

		s.emit(fsmtype.SagaEvent{SagaID: s.ID, Kind: SagaEventCompStart, StepName: step.Name, TimestampUTC: time.Now().UTC(), CorrelationID: correlationID})
		compResult := step.Compensate(ctx, data, lastResult)
		s.emit(fsmtype.SagaEvent{SagaID: s.ID, Kind: SagaEventCompEnd, StepName: step.Name, TimestampUTC: time.Now().UTC(), CorrelationID: correlationID})

		if !compResult.Success {
			allCompensated = false
			s.logger.Error("compensation failed", "saga", s.ID, "step", step.Name, "reason", compResult.Reason)
		}

		for i := range s.History {
			if s.History[i].StepName == step.Name {
				cr := compResult
				s.History[i].Compensation = &cr
				break
			}
		}
	}

	final := StatusCompensated
	if !allCompensated {
		final = StatusFailed
	}
	if err := s.Status.Transition(final); err != nil {
		return fsmerr.New(fsmerr.KindInvalidTransition, s.ID, "cannot finalize compensation", err)
	}
	s.emitStatusChange(correlationID)

	if !allCompensated {
		return fsmerr.New(fsmerr.KindCompensationFailure, s.ID, "one or more compensations failed", nil)
	}
	return nil
}

// SagaEventCompStart etc. alias the fsmtype kinds for readability within
// this package.
const (
	SagaEventStepStart    = fsmtype.SagaEventStepStart
	SagaEventStepEnd      = fsmtype.SagaEventStepEnd
	SagaEventCompStart    = fsmtype.SagaEventCompStart
	SagaEventCompEnd      = fsmtype.SagaEventCompEnd
	SagaEventStatusChange = fsmtype.SagaEventStatusChange
)

func (s *Saga) emitStepStart(stepName string, attempt int, correlationID string) {
	s.emit(fsmtype.SagaEvent{SagaID: s.ID, Kind: SagaEventStepStart, StepName: stepName, Attempt: attempt, TimestampUTC: time.Now().UTC(), CorrelationID: correlationID, BusinessTxID: s.BusinessTxID})
}

func (s *Saga) emitStepEnd(stepName string, attempt int, result StepResult, correlationID string) {
	s.emit(fsmtype.SagaEvent{SagaID: s.ID, Kind: SagaEventStepEnd, StepName: stepName, Attempt: attempt, Outcome: string(result.Kind), TimestampUTC: time.Now().UTC(), CorrelationID: correlationID, BusinessTxID: s.BusinessTxID})
}

func (s *Saga) emitStatusChange(correlationID string) {
	s.emit(fsmtype.SagaEvent{SagaID: s.ID, Kind: SagaEventStatusChange, Status: s.Status.GetState(), TimestampUTC: time.Now().UTC(), CorrelationID: correlationID, BusinessTxID: s.BusinessTxID})
}

func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= MaxBackoff {
			return MaxBackoff
		}
	}
	return delay
}
