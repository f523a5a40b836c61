// Package listenertbl implements the ordered, per-event-name listener
// lists shared by the Client facade (client-wide scope) and each
// resource.Instance (per-instance scope).
//
// Go closures are not comparable, so a listener cannot be removed by
// identity the way an event emitter in a language with reference equality
// would. Registration instead returns an opaque Handle that
// RemoveListener accepts.
package listenertbl

import (
	"context"
	"fmt"
	"sync"
)

// Callback receives the event envelope and any promoted resource
// instances.
type Callback func(ctx context.Context, args ...any)

// Handle identifies one registration, returned by On/Once and consumed by
// RemoveListener.
type Handle struct {
	event string
	id    uint64
}

type entry struct {
	handle Handle
	fn     Callback
	once   bool
}

// Table is a concurrency-safe, ordered multimap from event name to an
// ordered list of listeners.
type Table struct {
	mu      sync.Mutex
	entries map[string][]entry
	nextID  uint64
}

// NewTable constructs an empty Table.
func NewTable() *Table {
	return &Table{entries: make(map[string][]entry)}
}

// On registers fn for event, appended after any existing registrations
// for the same event (registration order is dispatch order).
func (t *Table) On(event string, fn Callback) Handle {
	return t.add(event, fn, false)
}

// Once registers fn for event; it is removed before being invoked the
// first time event fires.
func (t *Table) Once(event string, fn Callback) Handle {
	return t.add(event, fn, true)
}

func (t *Table) add(event string, fn Callback, once bool) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	h := Handle{event: event, id: t.nextID}
	t.entries[event] = append(t.entries[event], entry{handle: h, fn: fn, once: once})
	return h
}

// RemoveListener removes exactly the registration identified by h, if it
// is still present. It reports whether an entry was removed.
func (t *Table) RemoveListener(h Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := t.entries[h.event]
	for i, e := range list {
		if e.handle.id == h.id {
			t.entries[h.event] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveAllListeners removes every listener registered for event. An
// empty event name removes every listener for every event.
func (t *Table) RemoveAllListeners(event string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if event == "" {
		t.entries = make(map[string][]entry)
		return
	}
	delete(t.entries, event)
}

// Dispatch invokes every listener registered for event, in registration
// order, against a snapshot of the registration list taken under lock, so
// a listener added or removed by another listener firing for the same
// event only affects subsequent events. once listeners are removed from
// the table before being invoked. A listener that panics is recovered and
// reported to recoverFn rather than aborting dispatch of the remaining
// listeners.
func (t *Table) Dispatch(ctx context.Context, event string, recoverFn func(error), args ...any) {
	snapshot := t.snapshotAndPruneOnce(event)
	for _, e := range snapshot {
		invokeSafely(ctx, e.fn, recoverFn, args...)
	}
}

func (t *Table) snapshotAndPruneOnce(event string) []entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := t.entries[event]
	snapshot := make([]entry, len(list))
	copy(snapshot, list)

	if !anyOnce(list) {
		return snapshot
	}
	remaining := make([]entry, 0, len(list))
	for _, e := range list {
		if !e.once {
			remaining = append(remaining, e)
		}
	}
	t.entries[event] = remaining
	return snapshot
}

func anyOnce(list []entry) bool {
	for _, e := range list {
		if e.once {
			return true
		}
	}
	return false
}

func invokeSafely(ctx context.Context, fn Callback, recoverFn func(error), args ...any) {
	defer func() {
		if r := recover(); r != nil {
			if recoverFn != nil {
				recoverFn(panicToError(r))
			}
		}
	}()
	fn(ctx, args...)
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &panicError{value: r}
}

type panicError struct{ value any }

func (e *panicError) Error() string { return fmt.Sprintf("listener panic: %v", e.value) }
