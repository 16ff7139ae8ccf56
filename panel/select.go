package panel

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/dominspect/inspect"
	"github.com/hazyhaar/dominspect/internal/annotate"
	"github.com/hazyhaar/dominspect/internal/detail"
	"github.com/hazyhaar/dominspect/internal/picker"
	"github.com/hazyhaar/dominspect/internal/selector"
)

// SelectElement is the convergence point every selection path funnels
// through: tree clicks, selector queries, breadcrumb navigation, and the
// picker. It expands the tree to the element, updates selection state and
// breadcrumbs, recomputes annotations, and draws the highlight.
func (p *Panel) SelectElement(ctx context.Context, stableID string) error {
	return p.selectElement(ctx, stableID, true)
}

func (p *Panel) selectElement(ctx context.Context, stableID string, rebuildCrumbs bool) error {
	if stableID == "" {
		return p.ClearSelection()
	}

	el, ok := p.reg.ResolveStable(stableID)
	if !ok {
		// The mirror may predate the element; one refresh gets a second
		// chance before giving up.
		if err := p.Refresh(ctx); err != nil {
			return err
		}
		el, ok = p.reg.ResolveStable(stableID)
		if !ok {
			return fmt.Errorf("panel: element %s not found", stableID)
		}
	}

	if err := p.tree.ExpandToElement(stableID, func() (*html.Node, error) {
		if err := p.Refresh(ctx); err != nil {
			return nil, err
		}
		return p.Document(), nil
	}); err != nil {
		p.logger.Warn("panel: expand to element", "id", stableID, "error", err)
	}
	p.tree.Select(stableID)
	p.state.SetTreeState(p.tree.TreeState())
	p.state.SetSelectedElement(stableID)

	if rebuildCrumbs {
		p.mu.Lock()
		p.crumbs = buildCrumbs(el)
		p.mu.Unlock()
	}

	p.updateAnnotations(ctx, stableID)
	p.applyHighlight()
	return nil
}

// ClearSelection deselects, clearing the highlight and the breadcrumbs.
func (p *Panel) ClearSelection() error {
	p.tree.Select("")
	p.state.SetSelectedElement("")
	p.mu.Lock()
	p.crumbs = inspect.Breadcrumbs{Active: -1}
	p.mu.Unlock()
	return p.over.Clear()
}

// SelectedID returns the selected element's stable ID, or "".
func (p *Panel) SelectedID() string { return p.state.SelectedID() }

// TestSelector runs a selector against the mirror without selecting. It
// never fails: syntax problems come back inside the result.
func (p *Panel) TestSelector(query string) inspect.SelectorResult {
	doc := p.Document()
	if doc == nil {
		return inspect.SelectorResult{Query: query, Error: "no document snapshot yet"}
	}
	return selector.Test(doc, query)
}

// SelectBySelector tests a selector and, when it matches, records it in the
// history and selects the first match.
func (p *Panel) SelectBySelector(ctx context.Context, query string) (inspect.SelectorResult, error) {
	res := p.TestSelector(query)
	if !res.Success {
		return res, nil
	}
	p.state.AddToHistory(strings.TrimSpace(query))
	if err := p.selectElement(ctx, res.ElementID, true); err != nil {
		return res, err
	}
	return res, nil
}

// GenerateSelector builds a selector for the selected element, preferring a
// safe ID, then a unique class, then a structural path.
func (p *Panel) GenerateSelector(stableID string) (string, error) {
	doc := p.Document()
	if doc == nil {
		return "", fmt.Errorf("panel: no document snapshot yet")
	}
	el, ok := p.reg.ResolveStable(stableID)
	if !ok {
		return "", fmt.Errorf("panel: element %s not found", stableID)
	}
	return selector.Generate(doc, el), nil
}

// Breadcrumbs returns the ancestor trail of the current selection.
func (p *Panel) Breadcrumbs() inspect.Breadcrumbs {
	p.mu.Lock()
	defer p.mu.Unlock()
	return inspect.Breadcrumbs{
		Trail:  slices.Clone(p.crumbs.Trail),
		Active: p.crumbs.Active,
	}
}

// NavigateToBreadcrumb selects the trail entry at index. The trail itself
// is kept so the user can come back down the same path; only the active
// index moves.
func (p *Panel) NavigateToBreadcrumb(ctx context.Context, index int) error {
	p.mu.Lock()
	if index < 0 || index >= len(p.crumbs.Trail) {
		n := len(p.crumbs.Trail)
		p.mu.Unlock()
		return fmt.Errorf("panel: breadcrumb index %d out of range (%d crumbs)", index, n)
	}
	p.crumbs.Active = index
	id := p.crumbs.Trail[index].ElementID
	p.mu.Unlock()

	return p.selectElement(ctx, id, false)
}

// StartPicker begins a point-and-click pick session. Selecting an element
// routes through SelectElement; Escape re-applies the previous highlight.
func (p *Panel) StartPicker(ctx context.Context) error {
	if p.picker == nil {
		return fmt.Errorf("panel: picker not available")
	}
	return p.picker.Start(ctx)
}

// StopPicker cancels a running pick session.
func (p *Panel) StopPicker() {
	if p.picker != nil {
		p.picker.Stop()
	}
}

// PickerCallbacks builds the callback set wiring a picker to this panel.
func (p *Panel) PickerCallbacks(ctx context.Context) picker.Callbacks {
	return picker.Callbacks{
		OnHover: func(ev picker.Event) {
			h := p.state.State().Highlight
			if h.Mode == inspect.HighlightNone {
				h.Mode = inspect.HighlightBorder
			}
			if err := p.over.Apply(ev.ID, h); err != nil {
				p.logger.Debug("panel: hover highlight", "error", err)
			}
		},
		OnSelect: func(ev picker.Event) {
			if err := p.selectElement(ctx, ev.ID, true); err != nil {
				p.logger.Warn("panel: picker select", "id", ev.ID, "error", err)
			}
		},
		OnCancel: func() {
			p.applyHighlight()
		},
	}
}

// applyHighlight draws the overlay for the current selection and highlight
// setting, or clears it when nothing is selected.
func (p *Panel) applyHighlight() {
	id := p.state.SelectedID()
	if id == "" {
		if err := p.over.Clear(); err != nil {
			p.logger.Debug("panel: clear highlight", "error", err)
		}
		return
	}
	if err := p.over.Apply(id, p.state.State().Highlight); err != nil {
		p.logger.Warn("panel: apply highlight", "id", id, "error", err)
	}
}

// updateAnnotations probes computed styles for the selected element and
// patches the tree's annotation column.
func (p *Panel) updateAnnotations(ctx context.Context, stableID string) {
	raw, err := p.page.EvalString(ctx, detail.ComputedJS(), stableID, detail.ComputedProps())
	if err != nil {
		p.logger.Debug("panel: computed styles probe", "id", stableID, "error", err)
		return
	}
	c, err := detail.ParseComputed([]byte(raw))
	if err != nil {
		p.logger.Debug("panel: computed styles", "id", stableID, "error", err)
		return
	}

	chain := append([]annotate.Style{c.Element}, c.Chain...)
	anns := annotate.Annotate(chain)
	if n := p.tree.Find(stableID); n != nil {
		n.Annotations = anns
	}
}

// buildCrumbs walks from the element up to the document element and
// returns the trail root-first with the element active.
func buildCrumbs(el *html.Node) inspect.Breadcrumbs {
	var trail []inspect.Crumb
	for n := el; n != nil && n.Type == html.ElementNode; n = n.Parent {
		trail = append(trail, inspect.Crumb{
			ElementID: selector.GetAttr(n, inspect.StableIDAttr),
			Tag:       n.Data,
			DOMID:     selector.GetAttr(n, "id"),
			Class:     selector.GetAttr(n, "class"),
		})
	}
	slices.Reverse(trail)
	return inspect.Breadcrumbs{Trail: trail, Active: len(trail) - 1}
}
