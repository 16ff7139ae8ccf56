package annotate

import "testing"

func TestIsStackingContextRules(t *testing.T) {
	cases := []struct {
		name  string
		style Style
		want  bool
	}{
		{"static default", Style{}, false},
		{"static with z-index", Style{"position": "static", "z-index": "5"}, false},
		{"positioned with z-index", Style{"position": "relative", "z-index": "5"}, true},
		{"positioned auto z", Style{"position": "absolute"}, false},
		{"opacity", Style{"opacity": "0.9"}, true},
		{"opacity one", Style{"opacity": "1"}, false},
		{"transform", Style{"transform": "translateX(10px)"}, true},
		{"filter", Style{"filter": "blur(2px)"}, true},
		{"isolation", Style{"isolation": "isolate"}, true},
		{"blend mode", Style{"mix-blend-mode": "multiply"}, true},
		{"contain layout", Style{"contain": "layout"}, true},
		{"contain paint", Style{"contain": "paint"}, true},
		{"contain size only", Style{"contain": "size"}, false},
	}
	for _, c := range cases {
		got, reasons := IsStackingContext(c.style)
		if got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
		if got && len(reasons) == 0 {
			t.Errorf("%s: context without reasons", c.name)
		}
	}
}

func TestEffectiveZIndexOwnValue(t *testing.T) {
	chain := []Style{
		{"position": "relative", "z-index": "10"},
		{"position": "relative", "z-index": "99"},
	}
	if got := EffectiveZIndex(chain); got != "10" {
		t.Fatalf("got %q, want 10", got)
	}
}

func TestEffectiveZIndexInheritsNearest(t *testing.T) {
	chain := []Style{
		{}, // element itself: auto
		{}, // plain ancestor
		{"position": "absolute", "z-index": "7"},
	}
	if got := EffectiveZIndex(chain); got != "7" {
		t.Fatalf("got %q, want 7", got)
	}
}

func TestEffectiveZIndexStopsAtContextBoundary(t *testing.T) {
	// The transformed ancestor opens a new stacking context before any
	// explicit z-index is found, so the outer value must not leak in.
	chain := []Style{
		{},
		{"transform": "scale(1.1)"},
		{"position": "fixed", "z-index": "1000"},
	}
	if got := EffectiveZIndex(chain); got != "auto" {
		t.Fatalf("got %q, want auto", got)
	}
}

func TestAnnotate(t *testing.T) {
	chain := []Style{
		{"position": "relative", "z-index": "3", "opacity": "0.5"},
		{"isolation": "isolate"},
	}
	anns := Annotate(chain)

	byType := map[string]string{}
	for _, a := range anns {
		byType[a.Type] = a.Value
	}
	if byType["z-index"] != "3" {
		t.Errorf("z-index: got %q", byType["z-index"])
	}
	if byType["effective-z-index"] != "3" {
		t.Errorf("effective-z-index: got %q", byType["effective-z-index"])
	}
	if byType["stacking-context"] != "yes" {
		t.Errorf("stacking-context: got %q", byType["stacking-context"])
	}
	if byType["layer"] == "" || byType["layer"] == "root" {
		t.Errorf("layer should name the ancestor context, got %q", byType["layer"])
	}
}

func TestAnnotateRootLayer(t *testing.T) {
	anns := Annotate([]Style{{}})
	found := false
	for _, a := range anns {
		if a.Type == "layer" && a.Value == "root" {
			found = true
		}
	}
	if !found {
		t.Fatal("plain element should sit in the root layer")
	}
}
