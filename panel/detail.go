package panel

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazyhaar/dominspect/inspect"
	"github.com/hazyhaar/dominspect/internal/annotate"
	"github.com/hazyhaar/dominspect/internal/detail"
	"github.com/hazyhaar/dominspect/internal/element"
	"github.com/hazyhaar/dominspect/internal/selector"
)

// previewLimit caps the HTML preview length in the detail pane.
const previewLimit = 2000

// ElementDetail is everything the detail pane shows for one element.
type ElementDetail struct {
	ID          string               `json:"id"`
	Tag         string               `json:"tag"`
	DOMID       string               `json:"dom_id,omitempty"`
	Classes     []string             `json:"classes,omitempty"`
	Badges      []string             `json:"badges,omitempty"`
	Selector    string               `json:"selector"`
	Sections    []detail.Section     `json:"sections"`
	Box         detail.BoxModel      `json:"box"`
	Annotations []inspect.Annotation `json:"annotations,omitempty"`
	Listeners   []string             `json:"listeners,omitempty"`
	Preview     string               `json:"preview"`
}

// Detail assembles the detail pane content for an element: live computed
// styles and box model, mirror-derived badges and listener hints, a
// generated selector, and a sanitised preview.
func (p *Panel) Detail(ctx context.Context, stableID string) (*ElementDetail, error) {
	doc := p.Document()
	if doc == nil {
		return nil, fmt.Errorf("panel: no document snapshot yet")
	}
	el, ok := p.reg.ResolveStable(stableID)
	if !ok {
		if err := p.Refresh(ctx); err != nil {
			return nil, err
		}
		doc = p.Document()
		el, ok = p.reg.ResolveStable(stableID)
		if !ok {
			return nil, fmt.Errorf("panel: element %s not found", stableID)
		}
	}

	raw, err := p.page.EvalString(ctx, detail.ComputedJS(), stableID, detail.ComputedProps())
	if err != nil {
		return nil, fmt.Errorf("panel: computed styles: %w", err)
	}
	computed, err := detail.ParseComputed([]byte(raw))
	if err != nil {
		return nil, err
	}

	outer, err := p.page.OuterHTML(ctx, stableID)
	if err != nil {
		p.logger.Debug("panel: outer html for preview", "id", stableID, "error", err)
	}

	chain := append([]annotate.Style{computed.Element}, computed.Chain...)

	d := &ElementDetail{
		ID:          stableID,
		Tag:         el.Data,
		DOMID:       selector.GetAttr(el, "id"),
		Badges:      element.Badges(el),
		Selector:    selector.Generate(doc, el),
		Sections:    detail.GroupStyles(computed.Element),
		Box:         detail.ParseBoxModel(computed.Element, computed.Rect),
		Annotations: annotate.Annotate(chain),
		Listeners:   detail.ListenerHints(el),
		Preview:     p.render.Preview(outer, previewLimit),
	}
	if cls := selector.GetAttr(el, "class"); cls != "" {
		d.Classes = strings.Fields(cls)
	}
	return d, nil
}

// Clickability runs the nine-point hit test against the live page.
func (p *Panel) Clickability(ctx context.Context, stableID string) (*inspect.Clickability, error) {
	raw, err := p.page.EvalString(ctx, element.ClickabilityJS(stableID))
	if err != nil {
		return nil, fmt.Errorf("panel: clickability probe: %w", err)
	}
	return element.ParseClickability([]byte(raw))
}

// ExportMarkdown converts the element's live outer HTML to Markdown.
func (p *Panel) ExportMarkdown(ctx context.Context, stableID string) (string, error) {
	outer, err := p.page.OuterHTML(ctx, stableID)
	if err != nil {
		return "", err
	}
	return p.render.Markdown(outer)
}

// ScrollToElement scrolls the live page to the element.
func (p *Panel) ScrollToElement(ctx context.Context, stableID string) error {
	return p.page.ScrollIntoView(ctx, stableID)
}
