package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quoriumlabs/grainfsm/fsmerr"
	"github.com/quoriumlabs/grainfsm/fsmtype"
)

var validate = validator.New()

// perType is the copy-on-write snapshot held for one entity type: reads
// take the current *perType value under a short RLock, then iterate it
// lock-free, exactly as the teacher's MemoryStorage snapshots its
// transaction slice before returning it to callers.
type perType struct {
	entries map[fsmtype.Version]*Entry
}

func (p *perType) cloneWith(v fsmtype.Version, e *Entry) *perType {
	next := &perType{entries: make(map[fsmtype.Version]*Entry, len(p.entries)+1)}
	for k, existing := range p.entries {
		next.entries[k] = existing
	}
	next.entries[v] = e
	return next
}

// Mirror receives a copy of every successful Register call, so an
// external system can stay in sync with the in-process catalog without
// becoming the source of truth for it. registry/pgregistry.Mirror
// satisfies this interface.
type Mirror interface {
	OnRegister(ctx context.Context, entityType string, version fsmtype.Version, stateType, triggerType string, metadata Metadata) error
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithMirror attaches m: every successful Register call is also
// forwarded to m.OnRegister. A mirror failure is logged, not returned,
// since the live Registry remains authoritative regardless of whether
// the mirror write lands.
func WithMirror(m Mirror) Option {
	return func(r *Registry) { r.mirror = m }
}

// Registry is the process-wide, per-entity-type catalog of registered
// FSM versions. It is the only process-wide shared state in grainfsm
// (see the host/concurrency notes in DESIGN.md): every other component
// is either immutable once constructed or scoped to one entity.
type Registry struct {
	mu     sync.RWMutex // guards the types map itself and per-type writes
	types  map[string]*perType
	logger *slog.Logger
	mirror Mirror
}

// New constructs an empty Registry, applying any Options.
func New(logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		types:  make(map[string]*perType),
		logger: logger.WithGroup("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores factory and metadata under (entityType, version).
// Concurrent registration of the same key is last-writer-wins: the
// metadata's RegisteredAt reflects whichever write observed the lock
// last, matching spec's "concurrent write is exclusive-last-writer-wins"
// rule for registry entries.
func (r *Registry) Register(entityType string, version fsmtype.Version, stateType, triggerType string, factory Factory, metadata Metadata) error {
	if err := validate.Struct(metadata); err != nil {
		return fsmerr.New(fsmerr.KindInvalidTransition, entityType, "invalid registration metadata", err)
	}

	entry := &Entry{
		EntityType:   entityType,
		Version:      version,
		StateType:    stateType,
		TriggerType:  triggerType,
		Factory:      factory,
		Metadata:     metadata,
		RegisteredAt: time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.types[entityType]
	if !ok {
		existing = &perType{entries: make(map[fsmtype.Version]*Entry)}
	} else {
		for _, e := range existing.entries {
			if e.StateType != stateType || e.TriggerType != triggerType {
				return fsmerr.New(fsmerr.KindTypeMismatch, entityType,
					fmt.Sprintf("entity type already registered as (%s, %s), cannot register version %s as (%s, %s)",
						e.StateType, e.TriggerType, version.String(), stateType, triggerType), nil)
			}
			break
		}
	}
	r.types[entityType] = existing.cloneWith(version, entry)

	r.logger.Debug("registered entity version", "entityType", entityType, "version", version.String())

	if r.mirror != nil {
		if err := r.mirror.OnRegister(context.Background(), entityType, version, stateType, triggerType, metadata); err != nil {
			r.logger.Warn("registry mirror failed", "entityType", entityType, "version", version.String(), "error", err)
		}
	}
	return nil
}

// Get returns the Entry registered for (entityType, version). It performs
// no type-identity check; callers that know the (StateType, TriggerType)
// pair they expect should use GetChecked instead, which is the only
// accessor that can surface a mismatch as a structured error rather than
// silently handing back an Entry for the wrong pair.
func (r *Registry) Get(entityType string, version fsmtype.Version) (*Entry, error) {
	entry, ok := r.lookup(entityType, version)
	if !ok {
		return nil, fsmerr.New(fsmerr.KindVersionNotFound, entityType, version.String(), nil)
	}
	return entry, nil
}

// GetChecked is Get plus a type-identity check: it fails with
// KindTypeMismatch if the registered Entry's (StateType, TriggerType)
// does not match the pair the caller declares it expects. Register
// already enforces that the pair is fixed per entityType, so a mismatch
// here means the caller's own expectation is stale, not that different
// versions of the same entity type disagree with each other.
func (r *Registry) GetChecked(entityType string, version fsmtype.Version, stateType, triggerType string) (*Entry, error) {
	entry, err := r.Get(entityType, version)
	if err != nil {
		return nil, err
	}
	if entry.StateType != stateType || entry.TriggerType != triggerType {
		return nil, fsmerr.New(fsmerr.KindTypeMismatch, entityType,
			fmt.Sprintf("registered as (%s, %s), requested as (%s, %s)",
				entry.StateType, entry.TriggerType, stateType, triggerType), nil)
	}
	return entry, nil
}

// GetLatest returns the highest-precedence registered version for
// entityType and its Entry. It performs no type-identity check, the same
// as Get; see GetChecked.
func (r *Registry) GetLatest(entityType string) (*Entry, error) {
	versions := r.GetAvailableVersions(entityType)
	if len(versions) == 0 {
		return nil, fsmerr.New(fsmerr.KindVersionNotFound, entityType, "no versions registered", nil)
	}
	return r.Get(entityType, versions[0])
}

// GetAvailableVersions returns every registered version for entityType,
// sorted descending (highest precedence first).
func (r *Registry) GetAvailableVersions(entityType string) []fsmtype.Version {
	r.mu.RLock()
	snap, ok := r.types[entityType]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	versions := make([]fsmtype.Version, 0, len(snap.entries))
	for v := range snap.entries {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[j].Less(versions[i]) })
	return versions
}

// IsCompatible reports whether version is registered, not deprecated, not
// unsupported, and satisfies the latest entry's MinSupportedVersion (if
// any is set).
func (r *Registry) IsCompatible(entityType string, version fsmtype.Version) bool {
	entry, ok := r.lookup(entityType, version)
	if !ok {
		return false
	}
	if entry.Metadata.IsDeprecated || entry.Metadata.IsUnsupported {
		return false
	}

	latest, err := r.GetLatest(entityType)
	if err != nil {
		return true
	}
	min := latest.Metadata.MinSupportedVersion
	if min == nil {
		return true
	}
	return !version.Less(*min)
}

func (r *Registry) lookup(entityType string, version fsmtype.Version) (*Entry, bool) {
	r.mu.RLock()
	snap, ok := r.types[entityType]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	entry, ok := snap.entries[version]
	return entry, ok
}
