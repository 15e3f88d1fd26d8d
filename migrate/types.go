package migrate

import (
	"context"
	"log/slog"

	"github.com/robbyt/go-loglater"

	"github.com/quoriumlabs/grainfsm/fsmadapter"
	"github.com/quoriumlabs/grainfsm/fsmtype"
)

// Strategy selects how Upgrade carries out the migration proper once
// hooks and compatibility checks have passed.
type Strategy string

const (
	Automatic Strategy = "Automatic"
	Custom    Strategy = "Custom"
	BlueGreen Strategy = "BlueGreen"
	DryRun    Strategy = "DryRun"
)

// Outcome is the terminal result of one Upgrade call.
type Outcome string

const (
	Committed  Outcome = "Committed"
	RolledBack Outcome = "RolledBack"
	Aborted    Outcome = "Aborted"
)

// Snapshot is the pre-migration backup used to restore an entity if the
// upgrade fails or is aborted.
type Snapshot struct {
	CurrentVersion  fsmtype.Version
	CurrentState    fsmtype.StateSymbol
	CustomStateBlob []byte
}

// Context is passed to every hook and carries state hooks may read or
// write; SharedBag writes from one hook are visible to every hook that
// runs after it within the same Upgrade call.
type Context struct {
	EntityID    string
	EntityType  string
	FromVersion fsmtype.Version
	ToVersion   fsmtype.Version
	Strategy    Strategy
	Snapshot    Snapshot
	SharedBag   map[string]any

	// Logger is scoped to this one Upgrade call; hooks may use it instead
	// of rolling their own. Its records are buffered by collector and
	// played back to the controller's real handler once the attempt
	// reaches a terminal stage, so an aborted attempt's trace lands in
	// the log in one ordered block rather than interleaved with whatever
	// else the process is doing concurrently.
	Logger    *slog.Logger
	collector *loglater.LogCollector
}

// Hook is one named, priority-ordered participant in a migration.
// BeforeMigrate returning (false, nil) is a planned abort: the snapshot
// is restored and OnRollback is NOT invoked, since the migration never
// actually started.
type Hook struct {
	Name          string
	Priority      int
	BeforeMigrate func(ctx context.Context, mc *Context) (bool, error)
	AfterMigrate  func(ctx context.Context, mc *Context) error
	OnRollback    func(ctx context.Context, mc *Context)
}

// Entity is the narrow contract the migration controller needs from the
// host-runtime grain being upgraded: read its current state/version and
// custom blob, and atomically rebind it onto a freshly built Machine.
type Entity interface {
	CurrentState(ctx context.Context) (fsmtype.StateSymbol, error)
	CustomStateBlob() []byte
	RestoreCustomStateBlob(ctx context.Context, blob []byte) error
	Rebind(ctx context.Context, version fsmtype.Version, m *fsmadapter.Machine, atState fsmtype.StateSymbol) error
}

// Report is the outcome of one Upgrade call, independent of the entity's
// own event log.
type Report struct {
	Outcome Outcome
	Stage   string
	Cause   error
}
