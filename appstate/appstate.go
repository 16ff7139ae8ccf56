// Package appstate defines the application state store the inspector plugs
// into. The inspector never owns the store — it reads and writes one
// namespaced slice of whatever store the host application provides. For
// hosts without their own store (the dominspect CLI, tests), Memory is a
// reference implementation.
package appstate

import "sync"

// SliceDOMInspector is the store slice the inspector owns.
const SliceDOMInspector = "domInspector"

// Action is a store mutation request. Slice names the top-level slice the
// payload replaces.
type Action struct {
	Type    string
	Slice   string
	Payload any
}

// Snapshot is the full store contents keyed by slice name.
type Snapshot map[string]any

// Store is the injected global-store abstraction: read the current
// snapshot, subscribe to changes, dispatch mutations. All inspector state
// mutation serialises through Dispatch.
type Store interface {
	GetState() Snapshot
	// Subscribe registers fn for every state change and returns an
	// unsubscribe function. Unsubscribing twice is a no-op.
	Subscribe(fn func(Snapshot)) (unsubscribe func())
	Dispatch(a Action)
}

// Memory is an in-memory Store. Dispatch replaces the named slice and
// notifies subscribers synchronously, which serialises all mutation
// through a single path the way a browser main thread would.
type Memory struct {
	mu      sync.Mutex
	state   Snapshot
	nextSub int
	subs    map[int]func(Snapshot)
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		state: make(Snapshot),
		subs:  make(map[int]func(Snapshot)),
	}
}

// GetState returns a shallow copy of the current snapshot. Slice values
// are owned by their writers and must be treated as immutable.
func (m *Memory) GetState() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(Snapshot, len(m.state))
	for k, v := range m.state {
		out[k] = v
	}
	return out
}

// Subscribe registers a change callback.
func (m *Memory) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Dispatch replaces the action's slice and notifies subscribers with the
// new snapshot. Notification happens outside the lock so a subscriber may
// dispatch again without deadlocking.
func (m *Memory) Dispatch(a Action) {
	m.mu.Lock()
	m.state[a.Slice] = a.Payload
	snap := make(Snapshot, len(m.state))
	for k, v := range m.state {
		snap[k] = v
	}
	subs := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
