// Package saga implements the saga orchestrator (component C7): ordered
// steps executed with per-step timeout and retry, with compensation run
// in reverse order on failure. A saga's own progress is tracked as a
// finite state machine, the same pattern the migration controller uses
// for its stage progress.
package saga

import (
	"context"
	"log/slog"
	"time"

	"github.com/robbyt/go-fsm/v2"
)

// Status values for a saga's own lifecycle.
const (
	StatusNotStarted   = "not_started"
	StatusRunning       = "running"
	StatusCompensating = "compensating"
	StatusSucceeded    = "succeeded"
	StatusFailed       = "failed"
	StatusCompensated  = "compensated"
)

// StatusTransitions defines the valid transitions for a saga's status
// machine, following spec's NotStarted -> Running -> {Compensating |
// Succeeded | Failed}, Compensating -> {Compensated | Failed}.
var StatusTransitions = map[string][]string{
	StatusNotStarted:   {StatusRunning},
	StatusRunning:       {StatusSucceeded, StatusFailed, StatusCompensating},
	StatusCompensating: {StatusCompensated, StatusFailed},
	StatusSucceeded:    {},
	StatusFailed:       {},
	StatusCompensated:  {},
}

// StatusMachine wraps fsm.Machine for one saga instance.
type StatusMachine struct {
	*fsm.Machine
}

// GetStatusChan returns a synchronously-broadcast channel of status
// changes, matching the 5-second sync timeout the teacher's machines use.
func (s *StatusMachine) GetStatusChan(ctx context.Context) <-chan string {
	return s.GetStateChanWithOptions(ctx, fsm.WithSyncTimeout(5*time.Second))
}

func newStatusMachine(handler slog.Handler) (*StatusMachine, error) {
	m, err := fsm.New(handler, StatusNotStarted, StatusTransitions)
	if err != nil {
		return nil, err
	}
	return &StatusMachine{Machine: m}, nil
}
