// Package eventlog is the append-only event log and deduplication layer
// (component C8): every state-changing Fire appends a TransitionEvent,
// duplicate dedupeKeys within the LRU window are no-ops, and periodic
// snapshots bound replay cost on activation.
package eventlog

import (
	"context"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/quoriumlabs/grainfsm/fsmtype"
)

// DefaultDedupeCapacity is the default size of the per-entity LRU of
// recently observed dedupe keys.
const DefaultDedupeCapacity = 1024

// DefaultSnapshotInterval is how many events accumulate between
// automatic snapshot writes.
const DefaultSnapshotInterval = 100

// EventStore is the durable append/read substrate the host runtime
// provides (spec's AppendEvents/ReadEvents/WriteSnapshot/ReadLatestSnapshot).
// This package supplies an in-memory reference implementation
// (MemoryStore) and eventlog/pgeventstore a Postgres-backed one.
type EventStore interface {
	AppendEvents(ctx context.Context, streamID string, events []fsmtype.StoredEvent) error
	ReadEvents(ctx context.Context, streamID string, fromSeq uint64, limit int) ([]fsmtype.StoredEvent, error)
	WriteSnapshot(ctx context.Context, streamID string, snapshot fsmtype.Snapshot) error
	ReadLatestSnapshot(ctx context.Context, streamID string) (*fsmtype.Snapshot, bool, error)
}

// StreamPublisher optionally fans out appended events to an external
// subscriber (spec's optional PublishStream). Either of
// eventlog/natsbus or eventlog/redisbus satisfy this.
type StreamPublisher interface {
	Publish(ctx context.Context, namespace, streamID string, event fsmtype.StoredEvent) error
}

// dedupeOutcome caches an appended event's (toState, seq) so a repeated
// dedupeKey returns its seq instead of appending the event again.
type dedupeOutcome struct {
	toState fsmtype.StateSymbol
	seq     uint64
}

// Log is one entity's append-only event history plus its dedupe cache.
// Dedupe LRUs are per-entity, per spec's concurrency model — never
// shared across entities.
type Log struct {
	streamID         string
	store            EventStore
	publisher        StreamPublisher
	snapshotInterval int
	dedupe           *lru.Cache[string, dedupeOutcome]
	logger           *slog.Logger

	mu       sync.Mutex
	nextSeq  uint64
	sinceSnap int
}

// Option configures a Log at construction.
type Option func(*Log)

// WithSnapshotInterval overrides DefaultSnapshotInterval.
func WithSnapshotInterval(n int) Option {
	return func(l *Log) { l.snapshotInterval = n }
}

// WithDedupeCapacity overrides DefaultDedupeCapacity.
func WithDedupeCapacity(n int) Option {
	return func(l *Log) {
		cache, err := lru.New[string, dedupeOutcome](n)
		if err == nil {
			l.dedupe = cache
		}
	}
}

// WithStreamPublisher fans out every appended event to publisher in
// addition to the durable store.
func WithStreamPublisher(publisher StreamPublisher) Option {
	return func(l *Log) { l.publisher = publisher }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// New constructs a Log for one entity stream, backed by store.
func New(streamID string, store EventStore, opts ...Option) *Log {
	dedupe, _ := lru.New[string, dedupeOutcome](DefaultDedupeCapacity)
	l := &Log{
		streamID:         streamID,
		store:            store,
		snapshotInterval: DefaultSnapshotInterval,
		dedupe:           dedupe,
		logger:           slog.Default().WithGroup("eventlog"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AppendTransition appends a TransitionEvent, honoring deduplication: if
// event.DedupeKey is non-empty and was already seen, the append is
// skipped and the cached seq is returned as if the append had happened,
// per spec's "no-op, not an error" dedupe contract.
func (l *Log) AppendTransition(ctx context.Context, event fsmtype.TransitionEvent) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.DedupeKey != "" {
		if cached, ok := l.dedupe.Get(event.DedupeKey); ok {
			return cached.seq, nil
		}
	}

	l.nextSeq++
	event.Seq = l.nextSeq
	seq := event.Seq

	if err := l.appendAndMaybeSnapshot(ctx, event); err != nil {
		l.nextSeq--
		return 0, err
	}

	if event.DedupeKey != "" {
		l.dedupe.Add(event.DedupeKey, dedupeOutcome{toState: event.ToState, seq: seq})
	}

	return seq, nil
}

func (l *Log) appendAndMaybeSnapshot(ctx context.Context, event fsmtype.TransitionEvent) error {
	payload := encodeTransitionEvent(event)
	stored := fsmtype.StoredEvent{Seq: event.Seq, Kind: "transition", Payload: payload}

	if err := l.store.AppendEvents(ctx, l.streamID, []fsmtype.StoredEvent{stored}); err != nil {
		return err
	}

	if l.publisher != nil {
		if err := l.publisher.Publish(ctx, "grainfsm.transitions", l.streamID, stored); err != nil {
			l.logger.Warn("stream publish failed", "stream", l.streamID, "error", err)
		}
	}

	l.sinceSnap++
	if l.sinceSnap >= l.snapshotInterval {
		l.sinceSnap = 0
		snap := fsmtype.Snapshot{Seq: event.Seq, State: event.ToState, Version: event.FSMVersion}
		if err := l.store.WriteSnapshot(ctx, l.streamID, snap); err != nil {
			// Snapshot failures never fail the transition that triggered
			// them: logged, retried at the next interval boundary.
			l.logger.Error("snapshot write failed, will retry at next interval", "stream", l.streamID, "error", err)
		}
	}

	return nil
}

// Replay loads the latest snapshot (if any) and the tail of events after
// it, returning the snapshot and the events to apply on top of it.
func (l *Log) Replay(ctx context.Context) (*fsmtype.Snapshot, []fsmtype.StoredEvent, error) {
	snapshot, ok, err := l.store.ReadLatestSnapshot(ctx, l.streamID)
	if err != nil {
		return nil, nil, err
	}
	var fromSeq uint64
	if ok {
		fromSeq = snapshot.Seq + 1
	}

	events, err := l.store.ReadEvents(ctx, l.streamID, fromSeq, 0)
	if err != nil {
		return nil, nil, err
	}

	l.mu.Lock()
	if len(events) > 0 {
		l.nextSeq = events[len(events)-1].Seq
	} else if ok {
		l.nextSeq = snapshot.Seq
	}
	l.mu.Unlock()

	if ok {
		return snapshot, events, nil
	}
	return nil, events, nil
}
