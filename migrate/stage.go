// Package migrate is the migration controller (component C6): it
// upgrades one entity from its current version to a target version
// through snapshot/rollback, ordered priority hooks, and one of four
// strategies, tracking its own progress as a finite state machine the
// same way the saga orchestrator tracks its status.
package migrate

import (
	"context"
	"log/slog"
	"time"

	"github.com/robbyt/go-fsm/v2"
)

// Stage states for one migration attempt, mirroring the teacher's
// configuration-saga FSM shape.
const (
	StageValidating   = "validating"
	StageSnapshotting = "snapshotting"
	StageBeforeHooks  = "before_hooks"
	StageMigrating    = "migrating"
	StageAfterHooks   = "after_hooks"
	StageCommitted    = "committed"
	StageRolledBack   = "rolled_back"
	StageAborted      = "aborted"
)

// StageTransitions defines the valid transitions for one migration
// attempt's stage machine.
var StageTransitions = map[string][]string{
	StageValidating:   {StageSnapshotting, StageAborted},
	StageSnapshotting: {StageBeforeHooks, StageRolledBack},
	StageBeforeHooks:  {StageMigrating, StageAborted},
	StageMigrating:    {StageAfterHooks, StageRolledBack},
	StageAfterHooks:   {StageCommitted, StageRolledBack},
	StageCommitted:    {},
	StageRolledBack:   {},
	StageAborted:      {},
}

// StageMachine wraps fsm.Machine for one migration attempt's stage
// progress, exposed separately from the attempt's outcome so callers can
// subscribe to stage changes (e.g. for progress reporting) independent
// of the final MigrationEvent.
type StageMachine struct {
	*fsm.Machine
}

// GetStageChan returns a synchronously-broadcast channel of stage
// changes, matching the 5-second sync timeout the teacher's saga and
// server machines use for shutdown-safe delivery.
func (s *StageMachine) GetStageChan(ctx context.Context) <-chan string {
	return s.GetStateChanWithOptions(ctx, fsm.WithSyncTimeout(5*time.Second))
}

// newStageMachine starts a fresh stage machine at StageValidating.
func newStageMachine(handler slog.Handler) (*StageMachine, error) {
	m, err := fsm.New(handler, StageValidating, StageTransitions)
	if err != nil {
		return nil, err
	}
	return &StageMachine{Machine: m}, nil
}
