package eventlog

import (
	"context"
	"fmt"
	"sync"

	"github.com/quoriumlabs/grainfsm/fsmtype"
)

// MemoryStore is the default EventStore: an in-process, per-streamID
// append log plus one latest-snapshot slot, grounded on the
// mutex-guarded copy-before-return discipline of the teacher's
// txstorage.MemoryStorage. It is what every test in this module runs
// against; durable deployments use pgeventstore.Store instead.
type MemoryStore struct {
	mu        sync.RWMutex
	streams   map[string][]fsmtype.StoredEvent
	snapshots map[string]fsmtype.Snapshot
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		streams:   make(map[string][]fsmtype.StoredEvent),
		snapshots: make(map[string]fsmtype.Snapshot),
	}
}

// AppendEvents appends events to streamID's in-memory log in order,
// rejecting an append whose first Seq does not immediately follow the
// stream's current tail.
func (m *MemoryStore) AppendEvents(ctx context.Context, streamID string, events []fsmtype.StoredEvent) error {
	if len(events) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.streams[streamID]
	var tail uint64
	if len(existing) > 0 {
		tail = existing[len(existing)-1].Seq
	}
	if events[0].Seq != tail+1 {
		return fmt.Errorf("eventlog: non-contiguous append to %q: tail=%d, got seq=%d", streamID, tail, events[0].Seq)
	}

	m.streams[streamID] = append(existing, events...)
	return nil
}

// ReadEvents returns a copy of streamID's events with seq >= fromSeq,
// bounded by limit (0 meaning unbounded).
func (m *MemoryStore) ReadEvents(ctx context.Context, streamID string, fromSeq uint64, limit int) ([]fsmtype.StoredEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []fsmtype.StoredEvent
	for _, event := range m.streams[streamID] {
		if event.Seq < fromSeq {
			continue
		}
		result = append(result, event)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// WriteSnapshot replaces streamID's latest snapshot.
func (m *MemoryStore) WriteSnapshot(ctx context.Context, streamID string, snapshot fsmtype.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[streamID] = snapshot
	return nil
}

// ReadLatestSnapshot returns streamID's snapshot, or ok=false if none
// has been written.
func (m *MemoryStore) ReadLatestSnapshot(ctx context.Context, streamID string) (*fsmtype.Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[streamID]
	if !ok {
		return nil, false, nil
	}
	return &snap, true, nil
}
