package tree

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/hazyhaar/dominspect/inspect"
	"github.com/hazyhaar/dominspect/internal/selector"
)

const fixture = `<html><body>
	<div id="app">
		<nav id="menu"><a href="/">home</a></nav>
		<main>
			<article><p>one</p><p>two</p></article>
		</main>
	</div>
</body></html>`

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func idOf(t *testing.T, doc *html.Node, q string) string {
	t.Helper()
	n, err := selector.Query(doc, q)
	if err != nil || n == nil {
		t.Fatalf("fixture query %q failed", q)
	}
	id := selector.GetAttr(n, StableIDAttr)
	if id == "" {
		t.Fatalf("element %q has no stable ID", q)
	}
	return id
}

func TestBuildAssignsStableIDs(t *testing.T) {
	doc := parse(t, fixture)
	m := New(nil, nil)
	if err := m.Build(doc); err != nil {
		t.Fatal(err)
	}

	if m.Root() == nil || m.Root().Tag != "body" {
		t.Fatal("root should be body")
	}

	appID := idOf(t, doc, "#app")
	if m.Find(appID) == nil {
		t.Fatal("node not indexed by stable ID")
	}

	// Rebuilding over the same mirror must reuse the minted IDs.
	if err := m.Build(doc); err != nil {
		t.Fatal(err)
	}
	if m.Find(appID) == nil {
		t.Fatal("stable ID lost across rebuild")
	}
}

func TestBuildIdempotentWithStatePreserved(t *testing.T) {
	doc := parse(t, fixture)
	m := New(nil, nil)
	if err := m.Build(doc); err != nil {
		t.Fatal(err)
	}

	appID := idOf(t, doc, "#app")
	navID := idOf(t, doc, "#menu")
	m.Expand(appID)
	m.Expand(navID)
	m.SetScroll(7)

	before := m.TreeState()

	if err := m.Build(doc); err != nil {
		t.Fatal(err)
	}
	after := m.TreeState()

	if !before.Equal(after) {
		t.Fatalf("rebuild changed user context:\nbefore %+v\nafter  %+v", before, after)
	}
	if m.Scroll() != 7 {
		t.Fatalf("scroll: got %d, want 7", m.Scroll())
	}
}

func TestChildlessToggleDisabled(t *testing.T) {
	doc := parse(t, fixture)
	m := New(nil, nil)
	if err := m.Build(doc); err != nil {
		t.Fatal(err)
	}

	pID := idOf(t, doc, "article > p")
	n := m.Find(pID)
	if n == nil {
		t.Fatal("p node missing")
	}
	if !n.ToggleDisabled {
		t.Fatal("childless node should have a disabled toggle")
	}

	m.Expand(pID)
	if n.Expanded {
		t.Fatal("expanding a childless node must be a no-op")
	}
}

func TestExpandToElementExpandsAncestors(t *testing.T) {
	doc := parse(t, fixture)
	m := New(nil, nil)
	if err := m.Build(doc); err != nil {
		t.Fatal(err)
	}

	pID := idOf(t, doc, "article > p:nth-child(2)")
	if err := m.ExpandToElement(pID, nil); err != nil {
		t.Fatal(err)
	}

	for n := m.Find(pID).Parent; n != nil; n = n.Parent {
		if !n.Expanded {
			t.Fatalf("ancestor %s not expanded", n.Label())
		}
	}
}

func TestExpandToElementRebuildRetry(t *testing.T) {
	doc := parse(t, fixture)
	m := New(nil, nil)
	if err := m.Build(doc); err != nil {
		t.Fatal(err)
	}

	// A richer document appears only through the rebuilder, simulating an
	// element added to the live page after the last build.
	grown := parse(t, `<html><body><div id="app"><section id="late"><em>x</em></section></div></body></html>`)
	lateID := ""
	rebuilds := 0
	rebuild := func() (*html.Node, error) {
		rebuilds++
		return grown, nil
	}

	// Mint the ID the way a snapshot would.
	probe := New(nil, nil)
	if err := probe.Build(grown); err != nil {
		t.Fatal(err)
	}
	lateID = idOf(t, grown, "#late")

	if err := m.ExpandToElement(lateID, rebuild); err != nil {
		t.Fatalf("expand after rebuild: %v", err)
	}
	if rebuilds != 1 {
		t.Fatalf("rebuilds: got %d, want exactly 1", rebuilds)
	}

	// A genuinely missing element gives up after the single retry.
	if err := m.ExpandToElement("di-missing", rebuild); err == nil {
		t.Fatal("expected give-up error for missing element")
	}
	if rebuilds != 2 {
		t.Fatalf("rebuilds: got %d, want 2 (one per call)", rebuilds)
	}
}

func TestUpdateAnnotationsPreservesState(t *testing.T) {
	doc := parse(t, fixture)

	val := "1"
	annotate := func(string) []inspect.Annotation {
		return []inspect.Annotation{{Type: "z-index", Value: val}}
	}
	m := New(nil, annotate)
	if err := m.Build(doc); err != nil {
		t.Fatal(err)
	}

	appID := idOf(t, doc, "#app")
	m.Expand(appID)
	m.SetScroll(3)

	val = "2"
	m.UpdateAnnotations()

	if m.Scroll() != 3 || !m.Find(appID).Expanded {
		t.Fatal("annotation update disturbed tree state")
	}
	if got := m.Find(appID).Annotations[0].Value; got != "2" {
		t.Fatalf("annotation not patched: got %q", got)
	}
}

func TestRenderVisibleRows(t *testing.T) {
	doc := parse(t, fixture)
	m := New(nil, nil)
	if err := m.Build(doc); err != nil {
		t.Fatal(err)
	}

	// Only the root is expanded initially: body plus its direct children.
	rows := m.Render()
	if len(rows) != 2 {
		t.Fatalf("rows: got %d, want 2 (body + #app)", len(rows))
	}
	if rows[0].Label != "body" || rows[1].Label != "div#app" {
		t.Fatalf("labels: %q, %q", rows[0].Label, rows[1].Label)
	}

	appID := idOf(t, doc, "#app")
	m.Expand(appID)
	rows = m.Render()
	if len(rows) != 4 {
		t.Fatalf("rows after expand: got %d, want 4", len(rows))
	}
}

func TestOverlayNodesExcluded(t *testing.T) {
	doc := parse(t, `<html><body><div id="real"></div><div data-di-overlay="1"></div></body></html>`)
	m := New(nil, nil)
	if err := m.Build(doc); err != nil {
		t.Fatal(err)
	}

	for _, row := range m.Render() {
		if strings.Contains(row.Label, "overlay") {
			t.Fatal("overlay node leaked into the tree")
		}
	}
	if len(m.Root().Children) != 1 {
		t.Fatalf("body children: got %d, want 1", len(m.Root().Children))
	}
}
