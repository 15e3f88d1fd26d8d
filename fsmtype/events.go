package fsmtype

import "time"

// TransitionEvent is the persistent record of one successful Fire, per
// spec §3/§6. Events within one entity are totally ordered by Seq.
type TransitionEvent struct {
	EntityID      string
	Seq           uint64
	FromState     StateSymbol
	ToState       StateSymbol
	Trigger       TriggerSymbol
	TimestampUTC  time.Time
	CorrelationID string // optional
	DedupeKey     string // optional
	FSMVersion    Version
	Parameters    map[string]any // optional
}

// SagaEventKind enumerates the kinds of lifecycle events a saga emits.
type SagaEventKind string

const (
	SagaEventStepStart     SagaEventKind = "StepStart"
	SagaEventStepEnd       SagaEventKind = "StepEnd"
	SagaEventCompStart     SagaEventKind = "CompStart"
	SagaEventCompEnd       SagaEventKind = "CompEnd"
	SagaEventStatusChange  SagaEventKind = "StatusChange"
)

// SagaEvent is the persistent record of one saga lifecycle occurrence.
type SagaEvent struct {
	SagaID        string
	Seq           uint64
	Kind          SagaEventKind
	StepName      string // optional, empty for StatusChange
	Attempt       int    // optional
	Outcome       string // optional: success/business-failure/technical-failure
	Status        string // set for StatusChange
	TimestampUTC  time.Time
	CorrelationID string
	BusinessTxID  string
}

// MigrationOutcome is the terminal outcome of one migration attempt.
type MigrationOutcome string

const (
	MigrationCommitted  MigrationOutcome = "Committed"
	MigrationRolledBack MigrationOutcome = "RolledBack"
	MigrationAborted    MigrationOutcome = "Aborted"
)

// MigrationEvent is the persistent record of one migration attempt.
type MigrationEvent struct {
	EntityID     string
	Seq          uint64
	FromVersion  Version
	ToVersion    Version
	Strategy     string
	Stage        string
	TimestampUTC time.Time
	Outcome      MigrationOutcome
	Cause        string // optional, populated on RolledBack/Aborted
}

// StoredEvent is the envelope persisted by an EventStore implementation
// (see eventlog.EventStore): a stream-scoped, sequence-numbered blob. The
// Payload carries a TransitionEvent, SagaEvent, or MigrationEvent encoded
// by the caller; the event log never interprets it beyond Seq ordering.
type StoredEvent struct {
	Seq     uint64
	Kind    string
	Payload []byte
}

// Snapshot is a periodic checkpoint written every snapshotInterval events
// (default 100, see eventlog.DefaultSnapshotInterval) so replay on
// activation does not have to read the whole stream.
type Snapshot struct {
	Seq       uint64
	State     StateSymbol
	Version   Version
	Blob      []byte // implementer-defined extra state (e.g. custom migration blob)
	CreatedAt time.Time
}
