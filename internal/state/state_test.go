package state

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/dominspect/appstate"
	"github.com/hazyhaar/dominspect/dbopen"
	"github.com/hazyhaar/dominspect/inspect"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type counter struct {
	events []inspect.Event
}

func (c *counter) on(ev inspect.Event) { c.events = append(c.events, ev) }

func (c *counter) named(name string) int {
	n := 0
	for _, ev := range c.events {
		if ev.Name == name {
			n++
		}
	}
	return n
}

func newTestManager(t *testing.T) (*Manager, *MemoryPersister) {
	t.Helper()
	p := &MemoryPersister{}
	m := NewManager(appstate.NewMemory(), p, discard())
	m.Initialize()
	t.Cleanup(m.Destroy)
	return m, p
}

func TestSetterDiffsBeforeEmitting(t *testing.T) {
	m, p := newTestManager(t)
	var c counter
	m.OnAny(c.on)

	h := m.State().Highlight
	m.SetHighlight(h) // unchanged
	if len(c.events) != 0 {
		t.Fatalf("unchanged value emitted %d events", len(c.events))
	}
	if p.Saves != 0 {
		t.Fatalf("unchanged value persisted %d times", p.Saves)
	}

	h.Color = "#ff0000"
	m.SetHighlight(h)
	if got := c.named(inspect.EventHighlight); got != 1 {
		t.Fatalf("highlightChanged emitted %d times, want 1", got)
	}
	if got := c.named(inspect.EventStateChanged); got != 1 {
		t.Fatalf("stateChanged emitted %d times, want 1", got)
	}
	if p.Saves != 1 {
		t.Fatalf("persisted %d times, want 1", p.Saves)
	}
}

func TestNamedEventCarriesOldAndNew(t *testing.T) {
	m, _ := newTestManager(t)
	var got inspect.Event
	m.On(inspect.EventPosition, func(ev inspect.Event) { got = ev })

	m.SetPosition(inspect.Position{X: 5, Y: 7})

	if got.Name != inspect.EventPosition {
		t.Fatalf("event name %q", got.Name)
	}
	if got.New != (inspect.Position{X: 5, Y: 7}) {
		t.Fatalf("new payload %+v", got.New)
	}
	if got.Old != (inspect.Position{X: 100, Y: 100}) {
		t.Fatalf("old payload %+v", got.Old)
	}
	if got.Timestamp == 0 {
		t.Fatal("timestamp missing")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	m, _ := newTestManager(t)
	var c counter
	off := m.On(inspect.EventVisibility, c.on)

	m.SetVisible(true)
	off()
	off() // second call is a no-op
	m.SetVisible(false)

	if len(c.events) != 1 {
		t.Fatalf("delivered %d events after unsubscribe, want 1", len(c.events))
	}
}

func TestHistoryDedupAndCap(t *testing.T) {
	m, _ := newTestManager(t)

	m.AddToHistory("  ") // blank ignored
	if got := m.State().SelectorHistory; len(got) != 0 {
		t.Fatalf("blank selector entered history: %v", got)
	}

	m.AddToHistory("#a")
	m.AddToHistory(".b")
	m.AddToHistory("#a") // moves to front, no duplicate

	got := m.State().SelectorHistory
	if len(got) != 2 || got[0] != "#a" || got[1] != ".b" {
		t.Fatalf("history after dedup: %v", got)
	}

	for i := 0; i < inspect.HistoryLimit+5; i++ {
		m.AddToHistory(fmt.Sprintf("#sel-%d", i))
	}
	got = m.State().SelectorHistory
	if len(got) != inspect.HistoryLimit {
		t.Fatalf("history length %d, want cap %d", len(got), inspect.HistoryLimit)
	}
	if got[0] != fmt.Sprintf("#sel-%d", inspect.HistoryLimit+4) {
		t.Fatalf("newest entry not first: %v", got[0])
	}
}

func TestRemoveFromHistory(t *testing.T) {
	m, p := newTestManager(t)
	m.AddToHistory("#a")
	m.AddToHistory(".b")
	saves := p.Saves

	m.RemoveFromHistory("#a")
	if got := m.State().SelectorHistory; len(got) != 1 || got[0] != ".b" {
		t.Fatalf("history after remove: %v", got)
	}
	if p.Saves != saves+1 {
		t.Fatalf("remove persisted %d times", p.Saves-saves)
	}

	m.RemoveFromHistory("absent")
	if p.Saves != saves+1 {
		t.Fatal("removing an absent selector must not persist")
	}
}

func TestSelectedElementEmitsOnlyNeverPersists(t *testing.T) {
	m, p := newTestManager(t)
	var c counter
	m.OnAny(c.on)

	m.SetSelectedElement("di-abc")
	m.SetSelectedElement("di-abc") // unchanged

	if got := c.named(inspect.EventSelectedElement); got != 1 {
		t.Fatalf("selectedElementChanged emitted %d times, want 1", got)
	}
	if got := c.named(inspect.EventStateChanged); got != 0 {
		t.Fatal("selection must not produce stateChanged")
	}
	if p.Saves != 0 {
		t.Fatal("selection must never persist")
	}
	if m.SelectedID() != "di-abc" {
		t.Fatalf("selected ID %q", m.SelectedID())
	}
}

func TestCycleHighlightMode(t *testing.T) {
	m, _ := newTestManager(t)

	want := []inspect.HighlightMode{
		inspect.HighlightShade, inspect.HighlightBoth,
		inspect.HighlightNone, inspect.HighlightBorder,
	}
	for _, w := range want {
		if got := m.CycleHighlightMode(); got != w {
			t.Fatalf("cycle returned %q, want %q", got, w)
		}
		if got := m.State().Highlight.Mode; got != w {
			t.Fatalf("state mode %q, want %q", got, w)
		}
	}
}

func TestInitializeLoadsPersisted(t *testing.T) {
	p := &MemoryPersister{}
	saved := inspect.DefaultState()
	saved.Visible = true
	saved.SplitPosition = 50
	saved.SelectorHistory = []string{"#app"}
	if err := p.Save(saved); err != nil {
		t.Fatal(err)
	}
	p.Saves = 0

	m := NewManager(appstate.NewMemory(), p, discard())
	m.Initialize()
	defer m.Destroy()

	got := m.State()
	if !got.Visible || got.SplitPosition != 50 || len(got.SelectorHistory) != 1 {
		t.Fatalf("loaded state %+v", got)
	}
}

func TestInitializeLoadFailureFallsBackToDefaults(t *testing.T) {
	m := NewManager(appstate.NewMemory(), failingPersister{}, discard())
	m.Initialize()
	defer m.Destroy()

	if !m.State().Equal(inspect.DefaultState()) {
		t.Fatal("load failure must fall back to defaults")
	}

	// Mutation still works; the save failure is logged, not fatal.
	m.SetVisible(true)
	if !m.State().Visible {
		t.Fatal("mutation after persist failure")
	}
}

type failingPersister struct{}

func (failingPersister) Load() (*inspect.State, error) { return nil, fmt.Errorf("disk gone") }
func (failingPersister) Save(inspect.State) error      { return fmt.Errorf("disk gone") }

func TestExternalDispatchEmitsPerFieldEvents(t *testing.T) {
	store := appstate.NewMemory()
	m := NewManager(store, &MemoryPersister{}, discard())
	m.Initialize()
	defer m.Destroy()

	var c counter
	m.OnAny(c.on)

	next := m.State()
	next.Visible = true
	next.SplitPosition = 60
	store.Dispatch(appstate.Action{
		Type:    "domInspector/setState",
		Slice:   appstate.SliceDOMInspector,
		Payload: next,
	})

	if got := c.named(inspect.EventVisibility); got != 1 {
		t.Fatalf("visibilityChanged %d, want 1", got)
	}
	if got := c.named(inspect.EventSplitPosition); got != 1 {
		t.Fatalf("splitPositionChanged %d, want 1", got)
	}
	if got := c.named(inspect.EventPosition); got != 0 {
		t.Fatal("unchanged field produced an event")
	}
	if got := c.named(inspect.EventStateChanged); got != 1 {
		t.Fatalf("stateChanged %d, want 1", got)
	}
	if m.State().SplitPosition != 60 {
		t.Fatal("external state not adopted")
	}
}

func TestOwnDispatchDoesNotEcho(t *testing.T) {
	store := appstate.NewMemory()
	m := NewManager(store, &MemoryPersister{}, discard())
	m.Initialize()
	defer m.Destroy()

	var c counter
	m.OnAny(c.on)
	m.SetVisible(true)

	// One visibilityChanged from the setter, none from the store echo.
	if got := c.named(inspect.EventVisibility); got != 1 {
		t.Fatalf("visibilityChanged %d, want 1", got)
	}
}

func TestPersistDelayCoalescesAndDestroyFlushes(t *testing.T) {
	p := &MemoryPersister{}
	m := NewManager(appstate.NewMemory(), p, discard(), WithPersistDelay(time.Hour))
	m.Initialize()

	m.SetPosition(inspect.Position{X: 1, Y: 1})
	m.SetPosition(inspect.Position{X: 2, Y: 2})
	m.SetPosition(inspect.Position{X: 3, Y: 3})
	if p.Saves != 0 {
		t.Fatalf("debounced mutations persisted %d times before the delay", p.Saves)
	}

	m.Destroy()
	if p.Saves != 1 {
		t.Fatalf("destroy flushed %d times, want 1", p.Saves)
	}
	got, err := p.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Position != (inspect.Position{X: 3, Y: 3}) {
		t.Fatalf("flushed state %+v", got.Position)
	}

	m.Destroy() // idempotent
	if p.Saves != 1 {
		t.Fatal("second destroy persisted again")
	}
}

func TestDestroyStopsMutation(t *testing.T) {
	m, p := newTestManager(t)
	m.Destroy()

	var c counter
	m.OnAny(c.on)
	m.SetVisible(true)
	m.SetSelectedElement("di-x")

	if len(c.events) != 0 || p.Saves != 0 {
		t.Fatal("destroyed manager must ignore mutation")
	}
}

func TestSQLitePersisterRoundTrip(t *testing.T) {
	db := dbopen.OpenMemory(t)
	p, err := NewSQLitePersister(db)
	if err != nil {
		t.Fatal(err)
	}

	if s, err := p.Load(); err != nil || s != nil {
		t.Fatalf("empty database: state=%v err=%v", s, err)
	}

	want := inspect.DefaultState()
	want.Visible = true
	want.SelectorHistory = []string{"#app", ".nav"}
	want.CollapsedSections = map[string]bool{"styles": true}
	if err := p.Save(want); err != nil {
		t.Fatal(err)
	}

	// Second save overwrites the same key.
	want.SplitPosition = 75
	if err := p.Save(want); err != nil {
		t.Fatal(err)
	}

	got, err := p.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || !got.Equal(want) {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM inspector_kv`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("%d rows in kv table, want 1", n)
	}
}
