// Package state owns the inspector's persisted state: a single source of
// truth mirrored into the host application's store, diffed field by field on
// every mutation, and republished as named change events.
package state

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/dominspect/appstate"
	"github.com/hazyhaar/dominspect/inspect"
)

// Manager serialises all inspector state mutation. Every setter diffs the
// incoming value against the current one: an unchanged value emits nothing
// and persists nothing; a changed value emits exactly one named event, one
// aggregate stateChanged, and triggers one persist.
type Manager struct {
	logger  *slog.Logger
	store   appstate.Store
	persist Persister

	mu         sync.Mutex
	state      inspect.State
	selectedID string
	destroyed  bool
	applying   bool // our own store dispatch is in flight

	nextListener int
	listeners    map[string]map[int]func(inspect.Event)
	anyListeners map[int]func(inspect.Event)

	persistDelay time.Duration
	persistTimer *time.Timer
	dirty        bool

	unsubStore func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithPersistDelay debounces persistence: rapid mutations (drag-resizing the
// panel) coalesce into one write after d of quiet. Zero persists
// synchronously on every change.
func WithPersistDelay(d time.Duration) Option {
	return func(m *Manager) { m.persistDelay = d }
}

// NewManager wires a manager to the host store and a persister. Call
// Initialize before use and Destroy when done.
func NewManager(store appstate.Store, persist Persister, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if persist == nil {
		persist = &MemoryPersister{}
	}
	m := &Manager{
		logger:       logger,
		store:        store,
		persist:      persist,
		state:        inspect.DefaultState(),
		listeners:    make(map[string]map[int]func(inspect.Event)),
		anyListeners: make(map[int]func(inspect.Event)),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Initialize loads persisted state, seeds the store slice, and subscribes to
// external store changes. A load failure falls back to defaults and logs;
// the inspector then runs with in-memory state only.
func (m *Manager) Initialize() {
	loaded, err := m.persist.Load()
	if err != nil {
		m.logger.Error("state: load persisted state failed, using defaults", "error", err)
	}

	m.mu.Lock()
	if loaded != nil {
		m.state = loaded.Clone()
		if m.state.CollapsedSections == nil {
			m.state.CollapsedSections = map[string]bool{}
		}
	}
	seed := m.state.Clone()
	m.mu.Unlock()

	m.dispatchToStore(seed)
	if m.store != nil {
		m.unsubStore = m.store.Subscribe(m.onStoreChange)
	}
}

// State returns a deep copy of the current state.
func (m *Manager) State() inspect.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// SelectedID returns the stable ID of the currently selected element, or ""
// when nothing is selected. Selection is runtime-only and never persisted.
func (m *Manager) SelectedID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectedID
}

// On registers a listener for one named event and returns its unsubscribe
// function. Unsubscribing twice is a no-op.
func (m *Manager) On(name string, fn func(inspect.Event)) func() {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	if m.listeners[name] == nil {
		m.listeners[name] = make(map[int]func(inspect.Event))
	}
	m.listeners[name][id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners[name], id)
		m.mu.Unlock()
	}
}

// OnAny registers a listener for every event. Sinks attach here.
func (m *Manager) OnAny(fn func(inspect.Event)) func() {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.anyListeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.anyListeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) SetVisible(v bool) {
	m.mutate(func(s *inspect.State) (string, any, any, bool) {
		if s.Visible == v {
			return "", nil, nil, false
		}
		old := s.Visible
		s.Visible = v
		return inspect.EventVisibility, v, old, true
	})
}

func (m *Manager) SetPosition(p inspect.Position) {
	m.mutate(func(s *inspect.State) (string, any, any, bool) {
		if s.Position == p {
			return "", nil, nil, false
		}
		old := s.Position
		s.Position = p
		return inspect.EventPosition, p, old, true
	})
}

func (m *Manager) SetSize(sz inspect.Size) {
	m.mutate(func(s *inspect.State) (string, any, any, bool) {
		if s.Size == sz {
			return "", nil, nil, false
		}
		old := s.Size
		s.Size = sz
		return inspect.EventSize, sz, old, true
	})
}

// SetSplitPosition sets the tree/detail split percentage, clamped to 0-100.
func (m *Manager) SetSplitPosition(pct int) {
	pct = min(max(pct, 0), 100)
	m.mutate(func(s *inspect.State) (string, any, any, bool) {
		if s.SplitPosition == pct {
			return "", nil, nil, false
		}
		old := s.SplitPosition
		s.SplitPosition = pct
		return inspect.EventSplitPosition, pct, old, true
	})
}

func (m *Manager) SetHighlight(h inspect.Highlight) {
	m.mutate(func(s *inspect.State) (string, any, any, bool) {
		if s.Highlight == h {
			return "", nil, nil, false
		}
		old := s.Highlight
		s.Highlight = h
		return inspect.EventHighlight, h, old, true
	})
}

// CycleHighlightMode advances the highlight mode border → shade → both →
// none → border and returns the new mode.
func (m *Manager) CycleHighlightMode() inspect.HighlightMode {
	m.mu.Lock()
	next := inspect.NextHighlightMode(m.state.Highlight.Mode)
	m.mu.Unlock()

	h := m.State().Highlight
	h.Mode = next
	m.SetHighlight(h)
	return next
}

func (m *Manager) SetTreeState(ts inspect.TreeState) {
	ts.ExpandedNodes = slices.Clone(ts.ExpandedNodes)
	m.mutate(func(s *inspect.State) (string, any, any, bool) {
		if s.TreeState.Equal(ts) {
			return "", nil, nil, false
		}
		old := s.TreeState
		s.TreeState = ts
		return inspect.EventTreeState, ts, old, true
	})
}

// SetSectionCollapsed records whether one detail section is collapsed.
func (m *Manager) SetSectionCollapsed(section string, collapsed bool) {
	m.mutate(func(s *inspect.State) (string, any, any, bool) {
		cur, present := s.CollapsedSections[section]
		if present && cur == collapsed {
			return "", nil, nil, false
		}
		old := maps.Clone(s.CollapsedSections)
		next := maps.Clone(s.CollapsedSections)
		if next == nil {
			next = map[string]bool{}
		}
		next[section] = collapsed
		s.CollapsedSections = next
		return inspect.EventCollapsedSections, next, old, true
	})
}

// AddToHistory prepends a selector to the history, deduplicating and capping
// at the history limit. Blank selectors are ignored.
func (m *Manager) AddToHistory(sel string) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return
	}
	m.mutate(func(s *inspect.State) (string, any, any, bool) {
		next := make([]string, 0, len(s.SelectorHistory)+1)
		next = append(next, sel)
		for _, h := range s.SelectorHistory {
			if h != sel {
				next = append(next, h)
			}
		}
		if len(next) > inspect.HistoryLimit {
			next = next[:inspect.HistoryLimit]
		}
		if slices.Equal(next, s.SelectorHistory) {
			return "", nil, nil, false
		}
		old := s.SelectorHistory
		s.SelectorHistory = next
		return inspect.EventSelectorHistory, slices.Clone(next), slices.Clone(old), true
	})
}

// RemoveFromHistory drops a selector from the history if present.
func (m *Manager) RemoveFromHistory(sel string) {
	m.mutate(func(s *inspect.State) (string, any, any, bool) {
		i := slices.Index(s.SelectorHistory, sel)
		if i < 0 {
			return "", nil, nil, false
		}
		old := s.SelectorHistory
		s.SelectorHistory = slices.Delete(slices.Clone(old), i, i+1)
		return inspect.EventSelectorHistory, slices.Clone(s.SelectorHistory), slices.Clone(old), true
	})
}

// SetSelectedElement records the selected element's stable ID and emits
// selectedElementChanged. Selection is never written to the store slice or
// the persister: live-page identity does not survive a reload.
func (m *Manager) SetSelectedElement(id string) {
	m.mu.Lock()
	if m.destroyed || m.selectedID == id {
		m.mu.Unlock()
		return
	}
	old := m.selectedID
	m.selectedID = id
	m.mu.Unlock()

	m.emit(inspect.Event{
		Name:      inspect.EventSelectedElement,
		New:       id,
		Old:       old,
		Timestamp: time.Now().UnixMilli(),
	})
}

// mutate runs one state mutation under the lock. fn reports the named event
// to emit; when it declines (no change) nothing is emitted or persisted.
func (m *Manager) mutate(fn func(*inspect.State) (name string, newVal, oldVal any, changed bool)) {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	oldState := m.state.Clone()
	name, newVal, oldVal, changed := fn(&m.state)
	if !changed {
		m.mu.Unlock()
		return
	}
	newState := m.state.Clone()
	m.mu.Unlock()

	now := time.Now().UnixMilli()
	m.emit(inspect.Event{Name: name, New: newVal, Old: oldVal, Timestamp: now})
	m.emit(inspect.Event{Name: inspect.EventStateChanged, New: newState, Old: oldState, Timestamp: now})
	m.dispatchToStore(newState)
	m.schedulePersist()
}

func (m *Manager) emit(ev inspect.Event) {
	m.mu.Lock()
	fns := make([]func(inspect.Event), 0, len(m.listeners[ev.Name])+len(m.anyListeners))
	for _, fn := range m.listeners[ev.Name] {
		fns = append(fns, fn)
	}
	for _, fn := range m.anyListeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (m *Manager) dispatchToStore(s inspect.State) {
	if m.store == nil {
		return
	}
	m.mu.Lock()
	m.applying = true
	m.mu.Unlock()

	m.store.Dispatch(appstate.Action{
		Type:    "domInspector/setState",
		Slice:   appstate.SliceDOMInspector,
		Payload: s,
	})

	m.mu.Lock()
	m.applying = false
	m.mu.Unlock()
}

// onStoreChange reacts to external mutations of the inspector slice, for
// hosts that dispatch into the store directly instead of calling setters.
func (m *Manager) onStoreChange(snap appstate.Snapshot) {
	m.mu.Lock()
	skip := m.applying || m.destroyed
	m.mu.Unlock()
	if skip {
		return
	}

	var incoming inspect.State
	switch v := snap[appstate.SliceDOMInspector].(type) {
	case inspect.State:
		incoming = v
	case *inspect.State:
		if v == nil {
			return
		}
		incoming = *v
	default:
		return
	}
	m.applyExternal(incoming)
}

func (m *Manager) applyExternal(in inspect.State) {
	m.mu.Lock()
	old := m.state.Clone()
	if old.Equal(in) {
		m.mu.Unlock()
		return
	}
	m.state = in.Clone()
	if m.state.CollapsedSections == nil {
		m.state.CollapsedSections = map[string]bool{}
	}
	newState := m.state.Clone()
	m.mu.Unlock()

	now := time.Now().UnixMilli()
	type diff struct {
		name     string
		new, old any
		changed  bool
	}
	diffs := []diff{
		{inspect.EventVisibility, newState.Visible, old.Visible, newState.Visible != old.Visible},
		{inspect.EventPosition, newState.Position, old.Position, newState.Position != old.Position},
		{inspect.EventSize, newState.Size, old.Size, newState.Size != old.Size},
		{inspect.EventSplitPosition, newState.SplitPosition, old.SplitPosition, newState.SplitPosition != old.SplitPosition},
		{inspect.EventHighlight, newState.Highlight, old.Highlight, newState.Highlight != old.Highlight},
		{inspect.EventSelectorHistory, newState.SelectorHistory, old.SelectorHistory, !slices.Equal(newState.SelectorHistory, old.SelectorHistory)},
		{inspect.EventCollapsedSections, newState.CollapsedSections, old.CollapsedSections, !maps.Equal(newState.CollapsedSections, old.CollapsedSections)},
		{inspect.EventTreeState, newState.TreeState, old.TreeState, !newState.TreeState.Equal(old.TreeState)},
	}
	for _, d := range diffs {
		if d.changed {
			m.emit(inspect.Event{Name: d.name, New: d.new, Old: d.old, Timestamp: now})
		}
	}
	m.emit(inspect.Event{Name: inspect.EventStateChanged, New: newState, Old: old, Timestamp: now})
	m.schedulePersist()
}

func (m *Manager) schedulePersist() {
	if m.persistDelay <= 0 {
		m.persistNow()
		return
	}
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.dirty = true
	if m.persistTimer != nil {
		m.persistTimer.Stop()
	}
	m.persistTimer = time.AfterFunc(m.persistDelay, m.persistNow)
	m.mu.Unlock()
}

func (m *Manager) persistNow() {
	m.mu.Lock()
	m.dirty = false
	snapshot := m.state.Clone()
	m.mu.Unlock()

	if err := m.persist.Save(snapshot); err != nil {
		m.logger.Error("state: persist failed, continuing in-memory", "error", err)
	}
}

// Destroy cancels the pending persist timer, flushes any unsaved state,
// detaches from the store, and drops all listeners. Idempotent.
func (m *Manager) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	timer := m.persistTimer
	m.persistTimer = nil
	dirty := m.dirty
	m.dirty = false
	unsub := m.unsubStore
	m.unsubStore = nil
	m.listeners = make(map[string]map[int]func(inspect.Event))
	m.anyListeners = make(map[int]func(inspect.Event))
	snapshot := m.state.Clone()
	m.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if dirty {
		if err := m.persist.Save(snapshot); err != nil {
			m.logger.Error("state: final persist failed", "error", err)
		}
	}
	if unsub != nil {
		unsub()
	}
}
