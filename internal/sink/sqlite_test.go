package sink

import (
	"context"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/dominspect/dbopen"
	"github.com/hazyhaar/dominspect/inspect"
)

func TestSQLiteSinkRecordsEvents(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(eventSchema))
	s := NewSQLite(db)
	ctx := context.Background()

	events := []inspect.Event{
		{Name: inspect.EventVisibility, New: true, Old: false, Timestamp: 1000},
		{Name: inspect.EventSelectedElement, New: "di-abc", Timestamp: 2000},
		{Name: inspect.EventVisibility, New: false, Old: true, Timestamp: 3000},
	}
	for _, ev := range events {
		if err := s.Send(ctx, ev); err != nil {
			t.Fatalf("Send(%s): %v", ev.Name, err)
		}
	}

	total, err := s.Count(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	vis, err := s.Count(ctx, inspect.EventVisibility)
	if err != nil {
		t.Fatal(err)
	}
	if vis != 2 {
		t.Errorf("visibility count = %d, want 2", vis)
	}

	var name, newVal string
	err = db.QueryRow(`SELECT name, new_value FROM inspector_events WHERE timestamp = 2000`).
		Scan(&name, &newVal)
	if err != nil {
		t.Fatal(err)
	}
	if name != inspect.EventSelectedElement || newVal != `"di-abc"` {
		t.Errorf("row = (%s, %s)", name, newVal)
	}
}

func TestSQLiteSinkPrune(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(eventSchema))
	s := NewSQLite(db)
	ctx := context.Background()

	if err := s.Send(ctx, inspect.Event{Name: inspect.EventStateChanged, Timestamp: 1}); err != nil {
		t.Fatal(err)
	}
	// Backdate the row past a 7-day window.
	if _, err := db.Exec(`UPDATE inspector_events SET created_at = created_at - 10*86400`); err != nil {
		t.Fatal(err)
	}
	if err := s.Send(ctx, inspect.Event{Name: inspect.EventStateChanged, Timestamp: 2}); err != nil {
		t.Fatal(err)
	}

	if err := s.Prune(ctx, 7); err != nil {
		t.Fatal(err)
	}
	n, err := s.Count(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("after prune count = %d, want 1", n)
	}

	// Zero retention disables pruning.
	if err := s.Prune(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if n, _ = s.Count(ctx, ""); n != 1 {
		t.Errorf("after no-op prune count = %d, want 1", n)
	}
}
