package panel

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/dominspect/inspect"
	"github.com/hazyhaar/dominspect/kit"
)

// RegisterMCP registers the inspector tools on an MCP server, giving agents
// the same operations the control API exposes.
func (p *Panel) RegisterMCP(srv *mcp.Server) {
	p.registerShowTool(srv)
	p.registerHideTool(srv)
	p.registerStateTool(srv)
	p.registerRefreshTool(srv)
	p.registerTreeTool(srv)
	p.registerSelectTool(srv)
	p.registerTestSelectorTool(srv)
	p.registerDetailTool(srv)
	p.registerClickabilityTool(srv)
	p.registerMarkdownTool(srv)
	p.registerHighlightTool(srv)
	p.registerHistoryTool(srv)
	p.registerBreadcrumbTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

type visibilityResponse struct {
	Visible bool `json:"visible"`
}

func (p *Panel) registerShowTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inspector_show",
		Description: "Show the DOM inspector panel.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	endpoint := func(ctx context.Context, _ any) (any, error) {
		p.Show()
		return visibilityResponse{Visible: true}, nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeNone)
}

func (p *Panel) registerHideTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inspector_hide",
		Description: "Hide the DOM inspector panel.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	endpoint := func(ctx context.Context, _ any) (any, error) {
		p.Hide()
		return visibilityResponse{Visible: false}, nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeNone)
}

func (p *Panel) registerStateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inspector_state",
		Description: "Return the full inspector state: visibility, layout, highlight, history, tree context.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	endpoint := func(ctx context.Context, _ any) (any, error) {
		return p.State(), nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeNone)
}

func (p *Panel) registerRefreshTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inspector_refresh",
		Description: "Re-snapshot the live page and rebuild the element tree. Expansion and selection survive.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	endpoint := func(ctx context.Context, _ any) (any, error) {
		if err := p.Refresh(ctx); err != nil {
			return nil, err
		}
		return map[string]any{"rows": len(p.TreeRows())}, nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeNone)
}

func (p *Panel) registerTreeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inspector_tree",
		Description: "Return the visible element tree rows with expansion state and display annotations.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	endpoint := func(ctx context.Context, _ any) (any, error) {
		return p.TreeRows(), nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeNone)
}

type selectRequest struct {
	Selector  string `json:"selector,omitempty"`
	ElementID string `json:"element_id,omitempty"`
}

func (p *Panel) registerSelectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inspector_select",
		Description: "Select an element by CSS selector or stable element ID. Expands the tree, draws the highlight, and updates breadcrumbs.",
		InputSchema: inputSchema(map[string]any{
			"selector":   map[string]any{"type": "string", "description": "CSS selector; first match is selected"},
			"element_id": map[string]any{"type": "string", "description": "Stable element ID from a previous tree or select call"},
		}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*selectRequest)
		if r.Selector != "" {
			res, err := p.SelectBySelector(ctx, r.Selector)
			if err != nil {
				return nil, err
			}
			return res, nil
		}
		if err := p.SelectElement(ctx, r.ElementID); err != nil {
			return nil, err
		}
		return inspect.SelectorResult{Success: true, ElementID: r.ElementID, Matches: 1}, nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeJSON[selectRequest]())
}

type selectorRequest struct {
	Selector string `json:"selector"`
}

func (p *Panel) registerTestSelectorTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inspector_test_selector",
		Description: "Test a CSS selector without selecting. Reports match count, auto-repairs common escaping mistakes, and suggests fixes for failures.",
		InputSchema: inputSchema(map[string]any{
			"selector": map[string]any{"type": "string", "description": "CSS selector to test"},
		}, []string{"selector"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*selectorRequest)
		return p.TestSelector(r.Selector), nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeJSON[selectorRequest]())
}

type elementRequest struct {
	ElementID string `json:"element_id"`
}

var decodeElementRequest = kit.DecodeJSON[elementRequest]()

var elementIDSchema = inputSchema(map[string]any{
	"element_id": map[string]any{"type": "string", "description": "Stable element ID"},
}, []string{"element_id"})

func (p *Panel) registerDetailTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inspector_detail",
		Description: "Return the detail pane for an element: grouped computed styles, box model, stacking annotations, listener hints, and a sanitised HTML preview.",
		InputSchema: elementIDSchema,
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*elementRequest)
		return p.Detail(ctx, r.ElementID)
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeElementRequest)
}

func (p *Panel) registerClickabilityTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inspector_clickability",
		Description: "Hit-test an element at nine points to check whether pointer events reach it or are intercepted.",
		InputSchema: elementIDSchema,
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*elementRequest)
		return p.Clickability(ctx, r.ElementID)
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeElementRequest)
}

func (p *Panel) registerMarkdownTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inspector_markdown",
		Description: "Export an element's live HTML as Markdown.",
		InputSchema: elementIDSchema,
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*elementRequest)
		md, err := p.ExportMarkdown(ctx, r.ElementID)
		if err != nil {
			return nil, err
		}
		return map[string]string{"markdown": md}, nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeElementRequest)
}

type highlightRequest struct {
	Cycle  bool   `json:"cycle,omitempty"`
	Mode   string `json:"mode,omitempty"`
	Color  string `json:"color,omitempty"`
	ZIndex int    `json:"z_index,omitempty"`
}

func (p *Panel) registerHighlightTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inspector_highlight",
		Description: "Configure the selection highlight, or cycle its mode (border, shade, both, none).",
		InputSchema: inputSchema(map[string]any{
			"cycle":   map[string]any{"type": "boolean", "description": "Advance to the next highlight mode"},
			"mode":    map[string]any{"type": "string", "enum": []any{"border", "shade", "both", "none"}},
			"color":   map[string]any{"type": "string", "description": "CSS color"},
			"z_index": map[string]any{"type": "integer"},
		}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*highlightRequest)
		if r.Cycle {
			return inspect.Highlight{Mode: p.CycleHighlightMode()}, nil
		}
		h := p.State().Highlight
		if r.Mode != "" {
			h.Mode = inspect.HighlightMode(r.Mode)
		}
		if r.Color != "" {
			h.Color = r.Color
		}
		if r.ZIndex != 0 {
			h.ZIndex = r.ZIndex
		}
		p.SetHighlight(h)
		return h, nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeJSON[highlightRequest]())
}

func (p *Panel) registerHistoryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inspector_history",
		Description: "Return the selector history, most recent first.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	endpoint := func(ctx context.Context, _ any) (any, error) {
		return map[string]any{"history": p.History()}, nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeNone)
}

type breadcrumbRequest struct {
	Index *int `json:"index,omitempty"`
}

func (p *Panel) registerBreadcrumbTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "inspector_breadcrumbs",
		Description: "Return the selection's ancestor trail, or navigate to one of its entries.",
		InputSchema: inputSchema(map[string]any{
			"index": map[string]any{"type": "integer", "description": "Trail index to navigate to; omit to just read the trail"},
		}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*breadcrumbRequest)
		if r.Index != nil {
			if err := p.NavigateToBreadcrumb(ctx, *r.Index); err != nil {
				return nil, err
			}
		}
		return p.Breadcrumbs(), nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeJSON[breadcrumbRequest]())
}
