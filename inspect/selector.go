package inspect

// SelectorResult is the structured outcome of testing a CSS selector.
// Selector testing never panics or propagates errors — syntax problems
// come back here with suggestions.
type SelectorResult struct {
	Success bool   `json:"success"`
	Query   string `json:"query"`
	// Fixed is the auto-repaired form actually used, when the input
	// needed escaping. Empty if the input ran as-is.
	Fixed string `json:"fixed,omitempty"`
	// ElementID is the stable ID of the first match.
	ElementID string `json:"element_id,omitempty"`
	Matches   int    `json:"matches,omitempty"`
	Error     string `json:"error,omitempty"`
	// Suggestions are actionable alternatives for a failed query, e.g.
	// the escaped form or an attribute-selector equivalent.
	Suggestions []string `json:"suggestions,omitempty"`
}

// Annotation is one computed display annotation for an element.
type Annotation struct {
	Type  string `json:"type"` // z-index | effective-z-index | stacking-context | layer
	Value string `json:"value"`
	// Reasons lists why an element establishes a stacking context.
	Reasons []string `json:"reasons,omitempty"`
}

// Crumb is one segment of the breadcrumb trail from <html> down to the
// selected element.
type Crumb struct {
	ElementID string `json:"element_id"`
	Tag       string `json:"tag"`
	DOMID     string `json:"dom_id,omitempty"`
	Class     string `json:"class,omitempty"`
}

// Breadcrumbs is the ancestor chain with an independently movable active
// index: navigating to an ancestor moves Active without recomputing Trail.
type Breadcrumbs struct {
	Trail  []Crumb `json:"trail"`
	Active int     `json:"active"`
}

// ClickSample is one hit-test probe of an element's bounding box.
type ClickSample struct {
	Label  string `json:"label"` // center, top-left, … , right-middle
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Result string `json:"result"` // direct | descendant | foreign | offscreen
	HitTag string `json:"hit_tag,omitempty"`
}

// Clickability summarises the nine-point hit test: whether pointer events
// aimed at the element actually reach it or are intercepted.
type Clickability struct {
	ElementID string        `json:"element_id"`
	Clickable bool          `json:"clickable"`
	Direct    int           `json:"direct"`
	Samples   []ClickSample `json:"samples"`
}
