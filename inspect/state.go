// Package inspect defines the structured types emitted and persisted by
// dominspect. These are the public API contract: any consumer (control API,
// MCP clients, custom sinks) imports this package to receive and process
// inspector state.
package inspect

import (
	"maps"
	"slices"
)

// HighlightMode controls how a selected element is marked in the live page.
type HighlightMode string

const (
	HighlightNone   HighlightMode = "none"
	HighlightBorder HighlightMode = "border"
	HighlightShade  HighlightMode = "shade"
	HighlightBoth   HighlightMode = "both"
)

// NextHighlightMode returns the successor in the documented cycle
// border → shade → both → none → border.
func NextHighlightMode(m HighlightMode) HighlightMode {
	switch m {
	case HighlightBorder:
		return HighlightShade
	case HighlightShade:
		return HighlightBoth
	case HighlightBoth:
		return HighlightNone
	default:
		return HighlightBorder
	}
}

// Position is the panel's top-left corner in page coordinates.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is the panel's extent in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Highlight configures the overlay drawn over the selected element.
type Highlight struct {
	Mode   HighlightMode `json:"mode"`
	Color  string        `json:"color"`
	ZIndex int           `json:"zIndex"`
}

// TreeState captures the tree widget's user context so it survives full
// rebuilds: which nodes are expanded, which element is selected, and the
// scroll offset. Element identity is the stable data-attribute ID, never a
// live node reference.
type TreeState struct {
	ExpandedNodes     []string `json:"expandedNodes"`
	SelectedElementID string   `json:"selectedElementId,omitempty"`
	ScrollPosition    int      `json:"scrollPosition"`
}

// Equal reports whether two tree states are identical. ExpandedNodes is
// order-insensitive — it is a set serialised as a slice.
func (t TreeState) Equal(o TreeState) bool {
	if t.SelectedElementID != o.SelectedElementID || t.ScrollPosition != o.ScrollPosition {
		return false
	}
	if len(t.ExpandedNodes) != len(o.ExpandedNodes) {
		return false
	}
	a := slices.Clone(t.ExpandedNodes)
	b := slices.Clone(o.ExpandedNodes)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// State is the complete persisted inspector state. It never contains a live
// DOM reference — selection travels as an opaque stable element ID.
type State struct {
	Visible           bool            `json:"visible"`
	Position          Position        `json:"position"`
	Size              Size            `json:"size"`
	SplitPosition     int             `json:"splitPosition"` // tree/detail split, 0–100
	Highlight         Highlight       `json:"highlight"`
	SelectorHistory   []string        `json:"selectorHistory"` // most-recent-first, capped
	CollapsedSections map[string]bool `json:"collapsedSections"`
	TreeState         TreeState       `json:"treeState"`
}

// HistoryLimit caps SelectorHistory length.
const HistoryLimit = 20

// DefaultState returns the state used when nothing has been persisted yet.
func DefaultState() State {
	return State{
		Visible:       false,
		Position:      Position{X: 100, Y: 100},
		Size:          Size{Width: 800, Height: 600},
		SplitPosition: 33,
		Highlight: Highlight{
			Mode:   HighlightBorder,
			Color:  "#448aff",
			ZIndex: 2147483000,
		},
		CollapsedSections: map[string]bool{},
	}
}

// Equal reports whether two states are identical field by field.
func (s State) Equal(o State) bool {
	return s.Visible == o.Visible &&
		s.Position == o.Position &&
		s.Size == o.Size &&
		s.SplitPosition == o.SplitPosition &&
		s.Highlight == o.Highlight &&
		slices.Equal(s.SelectorHistory, o.SelectorHistory) &&
		maps.Equal(s.CollapsedSections, o.CollapsedSections) &&
		s.TreeState.Equal(o.TreeState)
}

// Clone returns a deep copy. State holds slices and maps, so assignment
// alone would alias them between the store and the manager's snapshot.
func (s State) Clone() State {
	c := s
	c.SelectorHistory = slices.Clone(s.SelectorHistory)
	c.CollapsedSections = maps.Clone(s.CollapsedSections)
	c.TreeState.ExpandedNodes = slices.Clone(s.TreeState.ExpandedNodes)
	return c
}
