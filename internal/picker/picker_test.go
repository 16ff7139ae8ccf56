package picker

import (
	"log/slog"
	"strings"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestHandlePayloadDispatch(t *testing.T) {
	var hovers, selects []Event
	cancels := 0

	p := New(nil, Callbacks{
		OnHover:  func(e Event) { hovers = append(hovers, e) },
		OnSelect: func(e Event) { selects = append(selects, e) },
		OnCancel: func() { cancels++ },
	}, discard())

	p.handlePayload(`{"type":"hover","id":"di-a","tag":"div","x":10,"y":20}`)
	p.handlePayload(`{"type":"select","id":"di-b","tag":"button","x":30,"y":40}`)
	p.handlePayload(`{"type":"cancel"}`)

	if len(hovers) != 1 || hovers[0].ID != "di-a" || hovers[0].Tag != "div" {
		t.Fatalf("hovers %+v", hovers)
	}
	if len(selects) != 1 || selects[0].ID != "di-b" || selects[0].X != 30 {
		t.Fatalf("selects %+v", selects)
	}
	if cancels != 1 {
		t.Fatalf("cancels %d", cancels)
	}
}

func TestHandlePayloadToleratesGarbage(t *testing.T) {
	p := New(nil, Callbacks{}, discard())

	// None of these may panic, with or without callbacks registered.
	p.handlePayload(`not json`)
	p.handlePayload(`{"type":"teleport"}`)
	p.handlePayload(`{"type":"hover","id":"di-x"}`)
	p.handlePayload(`{"type":"select"}`)
	p.handlePayload(`{"type":"cancel"}`)
}

func TestInactiveByDefault(t *testing.T) {
	p := New(nil, Callbacks{}, discard())
	if p.Active() {
		t.Fatal("picker must start inactive")
	}
	p.Stop() // stopping an inactive picker is a no-op
}

func TestInjectedScriptsShape(t *testing.T) {
	for _, want := range []string{bindingName, "mousemove", "click", "keydown", "Escape", "data-di-overlay", "data-di-id"} {
		if !strings.Contains(startJS, want) {
			t.Errorf("picker script missing %q", want)
		}
	}
	if !strings.Contains(stopJS, "__diPicker") {
		t.Error("stop script must tear down the installed handlers")
	}
}
