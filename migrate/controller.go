package migrate

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/robbyt/go-loglater"

	"github.com/quoriumlabs/grainfsm/compat"
	"github.com/quoriumlabs/grainfsm/fsmerr"
	"github.com/quoriumlabs/grainfsm/fsmtype"
	"github.com/quoriumlabs/grainfsm/registry"
)

// EventSink receives a MigrationEvent once an Upgrade call reaches a
// terminal outcome. Implementations typically forward to the eventlog
// package's append-only store.
type EventSink func(fsmtype.MigrationEvent)

// Controller drives Upgrade calls for one process: a set of priority-
// ordered hooks shared across entity types, plus the registry and
// compatibility checker it consults to resolve and validate versions.
type Controller struct {
	reg     *registry.Registry
	checker *compat.Checker
	hooks   []Hook
	emit    EventSink
	logger  *slog.Logger
}

// NewController constructs a Controller. emit may be nil, in which case
// migration events are dropped (useful in tests).
func NewController(reg *registry.Registry, checker *compat.Checker, emit EventSink, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if emit == nil {
		emit = func(fsmtype.MigrationEvent) {}
	}
	return &Controller{reg: reg, checker: checker, emit: emit, logger: logger.WithGroup("migrate")}
}

// RegisterHook adds h to the controller's hook set, keeping hooks sorted
// by ascending priority so BeforeMigrate/AfterMigrate run in that order
// and OnRollback runs in the reverse.
func (c *Controller) RegisterHook(h Hook) {
	c.hooks = append(c.hooks, h)
	sort.SliceStable(c.hooks, func(i, j int) bool { return c.hooks[i].Priority < c.hooks[j].Priority })
}

// Upgrade migrates entity from fromVersion to toVersion using strategy,
// per component C6's seven-step sequence: snapshot, hook validation,
// migration proper, after-hooks, and event emission.
func (c *Controller) Upgrade(ctx context.Context, entity Entity, entityID, entityType string, fromVersion, toVersion fsmtype.Version, strategy Strategy) (*Report, error) {
	start := time.Now()
	stage, err := newStageMachine(c.logger.Handler())
	if err != nil {
		return nil, err
	}

	currentState, err := entity.CurrentState(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := Snapshot{
		CurrentVersion:  fromVersion,
		CurrentState:    currentState,
		CustomStateBlob: entity.CustomStateBlob(),
	}
	collector := loglater.NewLogCollector(c.logger.Handler())
	mc := &Context{
		EntityID:    entityID,
		EntityType:  entityType,
		FromVersion: fromVersion,
		ToVersion:   toVersion,
		Strategy:    strategy,
		Snapshot:    snapshot,
		SharedBag:   make(map[string]any),
		Logger:      slog.New(collector).With("entityId", entityID, "entityType", entityType),
		collector:   collector,
	}

	if strategy != Custom {
		result, cErr := c.checker.CheckCompatibility(entityType, fromVersion, toVersion)
		if cErr != nil {
			return c.finish(stage, mc, StageAborted, Aborted, time.Since(start), cErr)
		}
		if !result.Compatible {
			return c.finish(stage, mc, StageAborted, Aborted, time.Since(start),
				fsmerr.New(fsmerr.KindVersionIncompatible, entityID, "versions are not compatible for migration", nil))
		}
	}

	_ = stage.Transition(StageSnapshotting)
	_ = stage.Transition(StageBeforeHooks)

	for _, h := range c.hooks {
		if h.BeforeMigrate == nil {
			continue
		}
		proceed, hErr := h.BeforeMigrate(ctx, mc)
		if hErr != nil {
			return c.finish(stage, mc, StageAborted, Aborted, time.Since(start), hErr)
		}
		if !proceed {
			if err := entity.RestoreCustomStateBlob(ctx, snapshot.CustomStateBlob); err != nil {
				mc.Logger.Error("restore after planned abort failed", "error", err)
			}
			return c.finish(stage, mc, StageAborted, Aborted, time.Since(start), nil)
		}
	}

	_ = stage.Transition(StageMigrating)
	if err := c.runStrategy(ctx, entity, mc); err != nil {
		c.rollback(ctx, entity, mc, snapshot)
		return c.finish(stage, mc, StageRolledBack, RolledBack, time.Since(start), err)
	}

	_ = stage.Transition(StageAfterHooks)
	for _, h := range c.hooks {
		if h.AfterMigrate == nil {
			continue
		}
		if err := h.AfterMigrate(ctx, mc); err != nil {
			c.runRollbackHooksDescending(ctx, mc)
			c.rollback(ctx, entity, mc, snapshot)
			return c.finish(stage, mc, StageRolledBack, RolledBack, time.Since(start), err)
		}
	}

	if strategy == DryRun {
		c.rollback(ctx, entity, mc, snapshot)
		return c.finish(stage, mc, StageRolledBack, RolledBack, time.Since(start), nil)
	}

	return c.finish(stage, mc, StageCommitted, Committed, time.Since(start), nil)
}

func (c *Controller) runStrategy(ctx context.Context, entity Entity, mc *Context) error {
	switch mc.Strategy {
	case Automatic, BlueGreen:
		entry, err := c.reg.Get(mc.EntityType, mc.ToVersion)
		if err != nil {
			return err
		}
		target := entry.Factory()
		if !target.Configuration().HasState(mc.Snapshot.CurrentState) {
			return fsmerr.New(fsmerr.KindMigrationFailure, mc.EntityID,
				"current state does not exist in target version's configuration", nil)
		}
		return entity.Rebind(ctx, mc.ToVersion, target, mc.Snapshot.CurrentState)

	case Custom:
		path, ok := c.checker.Rules(mc.EntityType).GetMigrationPath(mc.FromVersion, mc.ToVersion)
		if !ok {
			return fsmerr.New(fsmerr.KindMigrationFailure, mc.EntityID, "no custom migration path registered", nil)
		}
		blob := mc.Snapshot.CustomStateBlob
		for _, step := range path.Steps {
			if step.Transform == nil {
				continue
			}
			// Custom transforms operate on state symbols derived from the
			// blob by the caller's own encoding; grainfsm only sequences them.
			if _, err := step.Transform(mc.Snapshot.CurrentState); err != nil {
				return fsmerr.New(fsmerr.KindMigrationFailure, mc.EntityID, "custom step "+step.Name+" failed", err)
			}
		}
		if err := entity.RestoreCustomStateBlob(ctx, blob); err != nil {
			return err
		}
		entry, err := c.reg.Get(mc.EntityType, mc.ToVersion)
		if err != nil {
			return err
		}
		return entity.Rebind(ctx, mc.ToVersion, entry.Factory(), mc.Snapshot.CurrentState)

	case DryRun:
		entry, err := c.reg.Get(mc.EntityType, mc.ToVersion)
		if err != nil {
			return err
		}
		if !entry.Factory().Configuration().HasState(mc.Snapshot.CurrentState) {
			return fsmerr.New(fsmerr.KindMigrationFailure, mc.EntityID,
				"current state does not exist in target version's configuration", nil)
		}
		return nil

	default:
		return fsmerr.New(fsmerr.KindMigrationFailure, mc.EntityID, "unknown strategy", nil)
	}
}

// rollback restores entity to its pre-migration snapshot: both the
// custom state blob and the version/machine binding. runStrategy rebinds
// the entity onto the target version before AfterMigrate hooks run, so a
// hook failing after a successful strategy run leaves the entity bound
// to ToVersion unless rollback undoes that bind too.
func (c *Controller) rollback(ctx context.Context, entity Entity, mc *Context, snapshot Snapshot) {
	if err := entity.RestoreCustomStateBlob(ctx, snapshot.CustomStateBlob); err != nil {
		mc.Logger.Error("rollback restore failed", "error", err)
	}

	entry, err := c.reg.Get(mc.EntityType, snapshot.CurrentVersion)
	if err != nil {
		mc.Logger.Error("rollback rebind lookup failed", "error", err)
		return
	}
	if err := entity.Rebind(ctx, snapshot.CurrentVersion, entry.Factory(), snapshot.CurrentState); err != nil {
		mc.Logger.Error("rollback rebind failed", "error", err)
	}
}

func (c *Controller) runRollbackHooksDescending(ctx context.Context, mc *Context) {
	for i := len(c.hooks) - 1; i >= 0; i-- {
		if c.hooks[i].OnRollback != nil {
			c.hooks[i].OnRollback(ctx, mc)
		}
	}
}

func (c *Controller) finish(stage *StageMachine, mc *Context, finalStage string, outcome Outcome, duration time.Duration, cause error) (*Report, error) {
	_ = stage.SetState(finalStage)

	if mc.collector != nil {
		if err := mc.collector.PlayLogs(c.logger.Handler()); err != nil {
			c.logger.Warn("failed to play back migration attempt logs", "entityId", mc.EntityID, "error", err)
		}
	}

	var causeText string
	if cause != nil {
		causeText = cause.Error()
	}
	c.emit(fsmtype.MigrationEvent{
		EntityID:     mc.EntityID,
		FromVersion:  mc.FromVersion,
		ToVersion:    mc.ToVersion,
		Strategy:     string(mc.Strategy),
		Stage:        finalStage,
		TimestampUTC: time.Now().UTC(),
		Outcome:      fsmtype.MigrationOutcome(outcome),
		Cause:        causeText,
	})

	return &Report{Outcome: outcome, Stage: finalStage, Cause: cause}, cause
}
