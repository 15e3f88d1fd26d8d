// Package host defines the contracts grainfsm expects a surrounding
// actor runtime to provide — entity addressing/activation and
// timer/reminder scheduling — plus in-memory reference adapters for
// tests and standalone use, grounded on the teacher's in-memory
// storage conventions (internal/server/runnables/txmgr/txstorage):
// sync.RWMutex-guarded maps, a logger passed at construction, and a
// copy-before-return discipline on any exported read.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// EntityHost addresses and activates/deactivates entities by
// (typeName, id). The actor runtime supplies this; grainfsm never
// implements entity placement or durable activation itself.
type EntityHost interface {
	GetEntity(ctx context.Context, typeName, id string) (any, error)
	ActivateEntity(ctx context.Context, typeName, id string) error
	DeactivateEntity(ctx context.Context, typeName, id string) error
}

// TimerHandle identifies a scheduled one-shot timer.
type TimerHandle string

// ReminderHandle identifies a scheduled durable reminder.
type ReminderHandle string

// TimerScheduler schedules the short-lived timers (step timeouts) and
// longer-lived reminders the saga and migration controllers rely on.
type TimerScheduler interface {
	ScheduleTimer(ctx context.Context, id string, d time.Duration, payload any) (TimerHandle, error)
	CancelTimer(ctx context.Context, h TimerHandle) error
	ScheduleReminder(ctx context.Context, id, name string, d time.Duration) (ReminderHandle, error)
	CancelReminder(ctx context.Context, h ReminderHandle) error
}

// MemoryHost is a single-process EntityHost: entities are registered
// up front with Register and held in a map; ActivateEntity fails for an
// entity that was never registered. It exists
// for tests and standalone deployments; a real actor runtime (Orleans,
// Dapr actors, a custom scheduler) supplies its own EntityHost.
type MemoryHost struct {
	mu       sync.RWMutex
	entities map[string]any
	active   map[string]bool
	logger   *slog.Logger
}

// NewMemoryHost constructs an empty MemoryHost.
func NewMemoryHost(logger *slog.Logger) *MemoryHost {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryHost{
		entities: make(map[string]any),
		active:   make(map[string]bool),
		logger:   logger.WithGroup("host"),
	}
}

// Register installs entity under (typeName, id), available to GetEntity
// once activated.
func (h *MemoryHost) Register(typeName, id string, entity any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entities[key(typeName, id)] = entity
}

// GetEntity returns the entity registered under (typeName, id), if
// active.
func (h *MemoryHost) GetEntity(ctx context.Context, typeName, id string) (any, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	k := key(typeName, id)
	if !h.active[k] {
		return nil, fmt.Errorf("host: entity %s is not active", k)
	}
	entity, ok := h.entities[k]
	if !ok {
		return nil, fmt.Errorf("host: entity %s not registered", k)
	}
	return entity, nil
}

// ActivateEntity marks (typeName, id) active, logging the transition
// the way the teacher's runnables log lifecycle events.
func (h *MemoryHost) ActivateEntity(ctx context.Context, typeName, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := key(typeName, id)
	if _, ok := h.entities[k]; !ok {
		return fmt.Errorf("host: cannot activate unregistered entity %s", k)
	}
	h.active[k] = true
	h.logger.Debug("entity activated", "type", typeName, "id", id)
	return nil
}

// DeactivateEntity marks (typeName, id) inactive; GetEntity fails until
// it is reactivated.
func (h *MemoryHost) DeactivateEntity(ctx context.Context, typeName, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := key(typeName, id)
	h.active[k] = false
	h.logger.Debug("entity deactivated", "type", typeName, "id", id)
	return nil
}

func key(typeName, id string) string { return typeName + "/" + id }

// MemoryTimerScheduler schedules timers with time.AfterFunc and
// reminders identically (in-process, non-durable) — adequate for tests
// and for hosts that provide their own durability out of band.
type MemoryTimerScheduler struct {
	mu        sync.Mutex
	timers    map[TimerHandle]*time.Timer
	reminders map[ReminderHandle]*time.Timer
	logger    *slog.Logger
	seq       uint64
}

// NewMemoryTimerScheduler constructs an empty MemoryTimerScheduler.
func NewMemoryTimerScheduler(logger *slog.Logger) *MemoryTimerScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryTimerScheduler{
		timers:    make(map[TimerHandle]*time.Timer),
		reminders: make(map[ReminderHandle]*time.Timer),
		logger:    logger.WithGroup("host.timers"),
	}
}

// ScheduleTimer fires a no-op timer after d; payload is logged only —
// callers that need the fired payload should close over id in their own
// callback via a richer TimerScheduler implementation.
func (s *MemoryTimerScheduler) ScheduleTimer(ctx context.Context, id string, d time.Duration, payload any) (TimerHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	h := TimerHandle(fmt.Sprintf("timer-%s-%d", id, s.seq))
	s.timers[h] = time.AfterFunc(d, func() {
		s.logger.Debug("timer fired", "id", id, "handle", h)
	})
	return h, nil
}

// CancelTimer stops a previously scheduled timer, if still pending.
func (s *MemoryTimerScheduler) CancelTimer(ctx context.Context, h TimerHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[h]
	if !ok {
		return fmt.Errorf("host: unknown timer handle %s", h)
	}
	t.Stop()
	delete(s.timers, h)
	return nil
}

// ScheduleReminder behaves like ScheduleTimer but under the reminder
// handle namespace; a durable implementation would instead persist the
// firing time and survive process restarts.
func (s *MemoryTimerScheduler) ScheduleReminder(ctx context.Context, id, name string, d time.Duration) (ReminderHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	h := ReminderHandle(fmt.Sprintf("reminder-%s-%s-%d", id, name, s.seq))
	s.reminders[h] = time.AfterFunc(d, func() {
		s.logger.Debug("reminder fired", "id", id, "name", name, "handle", h)
	})
	return h, nil
}

// CancelReminder stops a previously scheduled reminder, if still pending.
func (s *MemoryTimerScheduler) CancelReminder(ctx context.Context, h ReminderHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.reminders[h]
	if !ok {
		return fmt.Errorf("host: unknown reminder handle %s", h)
	}
	t.Stop()
	delete(s.reminders, h)
	return nil
}
