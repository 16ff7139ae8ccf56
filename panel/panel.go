// Package panel is the inspector's orchestrator: it ties the DOM mirror,
// the tree, selection, highlighting, and state persistence together behind
// one API that the CLI, the control API, and the MCP tools all share.
package panel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/net/html"

	"github.com/hazyhaar/dominspect/appstate"
	"github.com/hazyhaar/dominspect/inspect"
	"github.com/hazyhaar/dominspect/internal/detail"
	"github.com/hazyhaar/dominspect/internal/element"
	"github.com/hazyhaar/dominspect/internal/overlay"
	"github.com/hazyhaar/dominspect/internal/picker"
	"github.com/hazyhaar/dominspect/internal/sink"
	"github.com/hazyhaar/dominspect/internal/state"
	"github.com/hazyhaar/dominspect/internal/tree"
)

// PageDriver is the live-page surface the panel needs. *browser.Page
// satisfies it; tests substitute a fixture-backed fake.
type PageDriver interface {
	Snapshot(ctx context.Context) (*html.Node, error)
	Eval(js string, jsArgs ...any) (*proto.RuntimeRemoteObject, error)
	EvalString(ctx context.Context, js string, jsArgs ...any) (string, error)
	OuterHTML(ctx context.Context, stableID string) (string, error)
	ScrollIntoView(ctx context.Context, stableID string) error
}

// Options wires a Panel. Page and Store are required; everything else has a
// working default.
type Options struct {
	Page   PageDriver
	Store  appstate.Store
	Logger *slog.Logger

	// Persist stores state across sessions. Nil keeps state in memory.
	Persist state.Persister
	// Sinks receive every inspector event.
	Sinks []sink.Sink
	// Picker enables point-and-click selection when the page is a real
	// browser page. Nil disables it.
	Picker *picker.Picker

	StateOptions []state.Option
}

// Panel is one inspector instance bound to one page.
type Panel struct {
	logger *slog.Logger
	page   PageDriver
	state  *state.Manager
	tree   *tree.Manager
	reg    *element.Registry
	over   *overlay.Overlay
	picker *picker.Picker
	render *detail.Renderer
	router *sink.Router

	mu        sync.Mutex
	doc       *html.Node
	crumbs    inspect.Breadcrumbs
	destroyed bool
	unsubs    []func()
}

// New assembles a Panel. Call Initialize before use.
func New(opts Options) (*Panel, error) {
	if opts.Page == nil {
		return nil, fmt.Errorf("panel: page is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("panel: store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Panel{
		logger: logger,
		page:   opts.Page,
		state:  state.NewManager(opts.Store, opts.Persist, logger, opts.StateOptions...),
		tree:   tree.New(logger, nil),
		reg:    element.NewRegistry(),
		over:   overlay.New(opts.Page, logger),
		picker: opts.Picker,
		render: detail.NewRenderer(),
		router: sink.NewRouter(logger, opts.Sinks...),
	}
	return p, nil
}

// AttachPicker wires a pick session source after construction. The picker
// needs the panel's callbacks, so it is usually built second.
func (p *Panel) AttachPicker(pk *picker.Picker) {
	p.mu.Lock()
	p.picker = pk
	p.mu.Unlock()
}

// Initialize loads persisted state, takes the first DOM snapshot, and
// begins routing events to the configured sinks.
func (p *Panel) Initialize(ctx context.Context) error {
	p.state.Initialize()

	p.unsubs = append(p.unsubs, p.state.OnAny(func(ev inspect.Event) {
		if err := p.router.Send(ctx, ev); err != nil {
			p.logger.Debug("panel: sink delivery", "event", ev.Name, "error", err)
		}
	}))

	// Re-apply the overlay whenever the highlight setting changes.
	p.unsubs = append(p.unsubs, p.state.On(inspect.EventHighlight, func(ev inspect.Event) {
		p.applyHighlight()
	}))

	if err := p.Refresh(ctx); err != nil {
		return err
	}

	// Restore the tree context the last session left behind.
	if ts := p.state.State().TreeState; len(ts.ExpandedNodes) > 0 || ts.SelectedElementID != "" {
		p.tree.ApplyTreeState(ts)
	}
	return nil
}

// Refresh re-snapshots the live page and rebuilds the mirror, the element
// registry, and the tree. Expansion, selection, and scroll survive the
// rebuild.
func (p *Panel) Refresh(ctx context.Context) error {
	doc, err := p.page.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("panel: refresh: %w", err)
	}

	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()

	p.reg.SetDocument(doc)
	if err := p.tree.Build(doc); err != nil {
		return fmt.Errorf("panel: rebuild tree: %w", err)
	}
	return nil
}

// Document returns the current mirror.
func (p *Panel) Document() *html.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc
}

// State returns the current inspector state.
func (p *Panel) State() inspect.State { return p.state.State() }

// StateManager exposes the event registry for in-process listeners.
func (p *Panel) StateManager() *state.Manager { return p.state }

// Show makes the panel visible.
func (p *Panel) Show() { p.state.SetVisible(true) }

// Hide hides the panel.
func (p *Panel) Hide() { p.state.SetVisible(false) }

// Toggle flips panel visibility and reports the new state.
func (p *Panel) Toggle() bool {
	next := !p.state.State().Visible
	p.state.SetVisible(next)
	return next
}

// SetPosition moves the panel.
func (p *Panel) SetPosition(pos inspect.Position) { p.state.SetPosition(pos) }

// SetSize resizes the panel.
func (p *Panel) SetSize(sz inspect.Size) { p.state.SetSize(sz) }

// SetSplitPosition moves the tree/detail divider.
func (p *Panel) SetSplitPosition(pct int) { p.state.SetSplitPosition(pct) }

// CycleHighlightMode advances the highlight mode; the overlay re-applies
// through the highlightChanged listener.
func (p *Panel) CycleHighlightMode() inspect.HighlightMode {
	return p.state.CycleHighlightMode()
}

// SetHighlight replaces the highlight configuration.
func (p *Panel) SetHighlight(h inspect.Highlight) { p.state.SetHighlight(h) }

// TreeRows returns the currently visible tree rows.
func (p *Panel) TreeRows() []tree.Row { return p.tree.Render() }

// ToggleNode expands or collapses one tree node and persists the tree
// state.
func (p *Panel) ToggleNode(id string) bool {
	expanded := p.tree.Toggle(id)
	p.state.SetTreeState(p.tree.TreeState())
	return expanded
}

// SetScroll records the tree scroll offset.
func (p *Panel) SetScroll(rows int) {
	p.tree.SetScroll(rows)
	p.state.SetTreeState(p.tree.TreeState())
}

// History returns the selector history, most recent first.
func (p *Panel) History() []string { return p.state.State().SelectorHistory }

// RemoveFromHistory drops one selector from the history.
func (p *Panel) RemoveFromHistory(sel string) { p.state.RemoveFromHistory(sel) }

// SetSectionCollapsed records a detail section's collapsed state.
func (p *Panel) SetSectionCollapsed(section string, collapsed bool) {
	p.state.SetSectionCollapsed(section, collapsed)
}

// Destroy stops the picker, clears the overlay, detaches all listeners,
// flushes state, and closes the sinks. Idempotent.
func (p *Panel) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	unsubs := p.unsubs
	p.unsubs = nil
	p.mu.Unlock()

	if p.picker != nil {
		p.picker.Stop()
	}
	if err := p.over.Clear(); err != nil {
		p.logger.Debug("panel: clear overlay on destroy", "error", err)
	}
	for _, u := range unsubs {
		u()
	}
	p.state.Destroy()
	if err := p.router.Close(); err != nil {
		p.logger.Debug("panel: close sinks", "error", err)
	}
}
