// Package tree builds the inspector's mirrored DOM tree. The tree is an
// ephemeral model: every build tears it down and reconstructs it from the
// current mirror document, replaying the user's expand/collapse set and
// scroll offset afterwards so a full rebuild feels incremental. That
// tradeoff — rebuild with state replay instead of diffing — is deliberate:
// it is simple and correct at devtool scale (hundreds of nodes).
package tree

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/dominspect/idgen"
	"github.com/hazyhaar/dominspect/inspect"
	"github.com/hazyhaar/dominspect/internal/selector"
)

// StableIDAttr is the data attribute carrying an element's stable ID. The
// browser side writes it into the live page; the mirror parse carries it
// back, so the same physical element keeps one ID across rebuilds.
const StableIDAttr = inspect.StableIDAttr

// overlayAttr marks nodes the inspector itself injected; they never appear
// in the tree.
const overlayAttr = inspect.OverlayAttr

// Node is one tree entry mirroring a DOM element.
type Node struct {
	ID          string
	Tag         string
	DOMID       string
	Classes     []string
	Annotations []inspect.Annotation
	Expanded    bool
	// ToggleDisabled marks childless nodes: their expander renders as a
	// non-interactive affordance.
	ToggleDisabled bool

	Parent   *Node
	Children []*Node

	el *html.Node
}

// Label renders the node header the way the tree displays it.
func (n *Node) Label() string {
	var b strings.Builder
	b.WriteString(n.Tag)
	if n.DOMID != "" {
		b.WriteString("#" + n.DOMID)
	}
	for _, c := range n.Classes {
		b.WriteString("." + c)
	}
	return b.String()
}

// Element returns the mirror node this entry was built from.
func (n *Node) Element() *html.Node { return n.el }

// Annotator computes display annotations for a stable element ID. Nil
// means no annotations.
type Annotator func(stableID string) []inspect.Annotation

// Rebuilder produces a fresh mirror document, re-snapshotting the live
// page. ExpandToElement uses it for its one rebuild-and-retry cycle.
type Rebuilder func() (*html.Node, error)

// Manager owns the tree model and the user context that survives rebuilds.
type Manager struct {
	logger *slog.Logger
	newID  idgen.Generator

	root     *Node
	index    map[string]*Node
	expanded map[string]bool
	scroll   int
	selected string

	// ViewportRows approximates how many rows are visible at once; used
	// to centre a row when scrolling to it.
	ViewportRows int

	annotate Annotator
}

// New creates a tree Manager.
func New(logger *slog.Logger, annotate Annotator) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:       logger,
		newID:        idgen.Prefixed("di-", idgen.NanoID(8)),
		index:        make(map[string]*Node),
		expanded:     make(map[string]bool),
		ViewportRows: 20,
		annotate:     annotate,
	}
}

// Build tears the tree down and reconstructs it from the document's body,
// depth-first in document order. Expand state and scroll offset are
// snapshotted before teardown and replayed after, keyed by stable element
// ID, so no user context is lost across the rebuild.
func (m *Manager) Build(doc *html.Node) error {
	body, err := selector.Query(doc, "body")
	if err != nil || body == nil {
		return fmt.Errorf("tree: document has no body")
	}

	// Snapshot user context before clearing.
	saved := m.snapshotExpanded()
	savedScroll := m.scroll

	m.root = nil
	m.index = make(map[string]*Node)

	m.root = m.buildNode(body, nil)

	// Replay: only IDs that still exist keep their expansion. The root
	// is always expanded.
	m.expanded = make(map[string]bool)
	for id := range saved {
		if _, ok := m.index[id]; ok {
			m.expanded[id] = true
		}
	}
	if m.root != nil {
		m.expanded[m.root.ID] = true
	}
	m.applyExpanded()
	m.scroll = savedScroll

	m.logger.Debug("tree: built", "nodes", len(m.index))
	return nil
}

func (m *Manager) snapshotExpanded() map[string]bool {
	out := make(map[string]bool, len(m.expanded))
	for id, v := range m.expanded {
		if v {
			out[id] = true
		}
	}
	return out
}

func (m *Manager) buildNode(el *html.Node, parent *Node) *Node {
	n := &Node{
		ID:      m.ensureStableID(el),
		Tag:     el.Data,
		DOMID:   selector.GetAttr(el, "id"),
		Classes: strings.Fields(selector.GetAttr(el, "class")),
		Parent:  parent,
		el:      el,
	}
	if m.annotate != nil {
		n.Annotations = m.annotate(n.ID)
	}

	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if selector.GetAttr(c, overlayAttr) != "" {
			continue
		}
		n.Children = append(n.Children, m.buildNode(c, n))
	}
	n.ToggleDisabled = len(n.Children) == 0

	m.index[n.ID] = n
	return n
}

// ensureStableID reads the element's existing stable ID or mints one and
// attaches it to the mirror node, so a rebuild over the same mirror reuses
// it. Live pages get their IDs attached during snapshotting; this path
// covers mirrors built from raw HTML.
func (m *Manager) ensureStableID(el *html.Node) string {
	if id := selector.GetAttr(el, StableIDAttr); id != "" {
		return id
	}
	id := m.newID()
	el.Attr = append(el.Attr, html.Attribute{Key: StableIDAttr, Val: id})
	return id
}

func (m *Manager) applyExpanded() {
	for id, n := range m.index {
		n.Expanded = m.expanded[id]
	}
}

// Root returns the tree root (the body node), or nil before the first Build.
func (m *Manager) Root() *Node { return m.root }

// Find returns the node for a stable element ID, or nil.
func (m *Manager) Find(id string) *Node { return m.index[id] }

// FindByElement returns the node mirroring a document element, or nil.
func (m *Manager) FindByElement(el *html.Node) *Node {
	if el == nil {
		return nil
	}
	if id := selector.GetAttr(el, StableIDAttr); id != "" {
		return m.index[id]
	}
	return nil
}

// Expand marks a node expanded.
func (m *Manager) Expand(id string) {
	if n, ok := m.index[id]; ok && !n.ToggleDisabled {
		m.expanded[id] = true
		n.Expanded = true
	}
}

// Collapse marks a node collapsed.
func (m *Manager) Collapse(id string) {
	if n, ok := m.index[id]; ok {
		delete(m.expanded, id)
		n.Expanded = false
	}
}

// Toggle flips a node's expansion and reports the new state.
func (m *Manager) Toggle(id string) bool {
	if m.expanded[id] {
		m.Collapse(id)
		return false
	}
	m.Expand(id)
	return m.expanded[id]
}

// Select marks the selected node; selection highlighting is independent of
// the annotation path.
func (m *Manager) Select(id string) { m.selected = id }

// Selected returns the selected stable ID, or empty.
func (m *Manager) Selected() string { return m.selected }

// Scroll returns the current scroll offset in rows.
func (m *Manager) Scroll() int { return m.scroll }

// SetScroll stores the scroll offset.
func (m *Manager) SetScroll(rows int) {
	if rows < 0 {
		rows = 0
	}
	m.scroll = rows
}

// ExpandedIDs returns the expanded set as a sorted-insensitive slice for
// persistence.
func (m *Manager) ExpandedIDs() []string {
	out := make([]string, 0, len(m.expanded))
	for id, v := range m.expanded {
		if v {
			out = append(out, id)
		}
	}
	return out
}

// TreeState exports the persistable user context.
func (m *Manager) TreeState() inspect.TreeState {
	return inspect.TreeState{
		ExpandedNodes:     m.ExpandedIDs(),
		SelectedElementID: m.selected,
		ScrollPosition:    m.scroll,
	}
}

// ApplyTreeState seeds the manager from persisted context, typically once
// at startup before the first Build.
func (m *Manager) ApplyTreeState(ts inspect.TreeState) {
	m.expanded = make(map[string]bool, len(ts.ExpandedNodes))
	for _, id := range ts.ExpandedNodes {
		m.expanded[id] = true
	}
	m.selected = ts.SelectedElementID
	m.scroll = ts.ScrollPosition
	m.applyExpanded()
}

// ExpandToElement makes the element's node visible: every ancestor up to
// the root ends expanded, in root-to-target order, and the scroll offset
// centres the target. If the element is not represented — it appeared
// after the last build — one rebuild-and-retry cycle runs via the
// rebuilder; after that the operation logs a diagnostic and gives up
// rather than looping.
func (m *Manager) ExpandToElement(id string, rebuild Rebuilder) error {
	n := m.index[id]
	if n == nil && rebuild != nil {
		doc, err := rebuild()
		if err != nil {
			return fmt.Errorf("tree: rebuild for expand: %w", err)
		}
		if err := m.Build(doc); err != nil {
			return err
		}
		n = m.index[id]
	}
	if n == nil {
		m.logger.Error("tree: element not found after rebuild, giving up", "id", id)
		return fmt.Errorf("tree: element %s not in tree", id)
	}

	// Collect unexpanded ancestors, then expand top-down so parent
	// visibility is established before the child's.
	var chain []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		if !p.Expanded {
			chain = append(chain, p)
		}
	}
	for i := len(chain) - 1; i >= 0; i-- {
		m.Expand(chain[i].ID)
	}

	m.scrollTo(n)
	return nil
}

// scrollTo centres the node's row in the viewport.
func (m *Manager) scrollTo(n *Node) {
	row := m.rowOf(n)
	if row < 0 {
		return
	}
	offset := row - m.ViewportRows/2
	if offset < 0 {
		offset = 0
	}
	m.scroll = offset
}

// rowOf returns the node's index among currently visible rows, or -1.
func (m *Manager) rowOf(target *Node) int {
	row := -1
	found := false
	var walk func(n *Node)
	walk = func(n *Node) {
		if found {
			return
		}
		row++
		if n == target {
			found = true
			return
		}
		if n.Expanded {
			for _, c := range n.Children {
				walk(c)
				if found {
					return
				}
			}
		}
	}
	if m.root != nil {
		walk(m.root)
	}
	if !found {
		return -1
	}
	return row
}

// UpdateAnnotations re-computes annotations on existing nodes in place,
// without a rebuild, so live re-annotation never disturbs expand or
// scroll state.
func (m *Manager) UpdateAnnotations() {
	if m.annotate == nil {
		return
	}
	for id, n := range m.index {
		n.Annotations = m.annotate(id)
	}
}

// Row is one visible line of the rendered tree.
type Row struct {
	ID             string               `json:"id"`
	Depth          int                  `json:"depth"`
	Label          string               `json:"label"`
	Expanded       bool                 `json:"expanded"`
	ToggleDisabled bool                 `json:"toggle_disabled"`
	Selected       bool                 `json:"selected"`
	Annotations    []inspect.Annotation `json:"annotations,omitempty"`
}

// Render flattens the visible portion of the tree into rows.
func (m *Manager) Render() []Row {
	var rows []Row
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		rows = append(rows, Row{
			ID:             n.ID,
			Depth:          depth,
			Label:          n.Label(),
			Expanded:       n.Expanded,
			ToggleDisabled: n.ToggleDisabled,
			Selected:       n.ID == m.selected,
			Annotations:    n.Annotations,
		})
		if n.Expanded {
			for _, c := range n.Children {
				walk(c, depth+1)
			}
		}
	}
	if m.root != nil {
		walk(m.root, 0)
	}
	return rows
}
