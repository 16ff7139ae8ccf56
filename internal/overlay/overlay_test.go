package overlay

import (
	"strings"
	"testing"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/dominspect/inspect"
)

type fakePage struct {
	calls []call
}

type call struct {
	js   string
	args []any
}

func (f *fakePage) Eval(js string, jsArgs ...any) (*proto.RuntimeRemoteObject, error) {
	f.calls = append(f.calls, call{js: js, args: jsArgs})
	return &proto.RuntimeRemoteObject{}, nil
}

func TestApplyPassesHighlightParams(t *testing.T) {
	page := &fakePage{}
	o := New(page, nil)

	h := inspect.Highlight{Mode: inspect.HighlightBoth, Color: "#ff0000", ZIndex: 99}
	if err := o.Apply("di-abc", h); err != nil {
		t.Fatal(err)
	}

	if len(page.calls) != 1 {
		t.Fatalf("%d evals, want 1", len(page.calls))
	}
	c := page.calls[0]
	if !strings.Contains(c.js, "data-di-overlay") {
		t.Fatal("apply JS must mark overlay nodes")
	}
	want := []any{"di-abc", "both", "#ff0000", 99}
	if len(c.args) != len(want) {
		t.Fatalf("args %v", c.args)
	}
	for i := range want {
		if c.args[i] != want[i] {
			t.Fatalf("arg %d = %v, want %v", i, c.args[i], want[i])
		}
	}
	if !o.Active() {
		t.Fatal("overlay should report active")
	}
}

func TestModeNoneClears(t *testing.T) {
	page := &fakePage{}
	o := New(page, nil)

	if err := o.Apply("di-abc", inspect.Highlight{Mode: inspect.HighlightBorder, Color: "#448aff", ZIndex: 1}); err != nil {
		t.Fatal(err)
	}
	if err := o.Apply("di-abc", inspect.Highlight{Mode: inspect.HighlightNone}); err != nil {
		t.Fatal(err)
	}

	if len(page.calls) != 2 {
		t.Fatalf("%d evals, want 2", len(page.calls))
	}
	if !strings.Contains(page.calls[1].js, "remove()") {
		t.Fatal("mode none must run the clear script")
	}
	if o.Active() {
		t.Fatal("overlay should report inactive after clear")
	}
}

func TestClearIdempotent(t *testing.T) {
	page := &fakePage{}
	o := New(page, nil)

	if err := o.Clear(); err != nil {
		t.Fatal(err)
	}
	if len(page.calls) != 0 {
		t.Fatal("clearing a clear overlay must not touch the page")
	}

	o.Apply("di-x", inspect.Highlight{Mode: inspect.HighlightShade, Color: "#000", ZIndex: 1})
	o.Clear()
	o.Clear()
	if len(page.calls) != 2 {
		t.Fatalf("%d evals, want 2 (one apply, one clear)", len(page.calls))
	}
}

func TestEmptyIDClears(t *testing.T) {
	page := &fakePage{}
	o := New(page, nil)
	o.Apply("di-x", inspect.Highlight{Mode: inspect.HighlightBorder, Color: "#000", ZIndex: 1})

	if err := o.Apply("", inspect.Highlight{Mode: inspect.HighlightBorder, Color: "#000", ZIndex: 1}); err != nil {
		t.Fatal(err)
	}
	if o.Active() {
		t.Fatal("empty selection must clear the highlight")
	}
}
