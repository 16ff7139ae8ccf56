package panel

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/dominspect/appstate"
	"github.com/hazyhaar/dominspect/inspect"
)

var testMCPImpl = &mcp.Implementation{Name: "dominspect-test", Version: "0.1.0"}

func mcpSession(t *testing.T) (*Panel, *mcp.ClientSession) {
	t.Helper()
	page := &fakePage{src: fixture}
	pnl, err := New(Options{
		Page:   page,
		Store:  appstate.NewMemory(),
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := pnl.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pnl.Destroy)

	srv := mcp.NewServer(testMCPImpl, nil)
	pnl.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return pnl, session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if result.IsError {
		t.Fatalf("CallTool(%s) tool error: %+v", name, result.Content)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func TestMCP_ShowHideState(t *testing.T) {
	pnl, session := mcpSession(t)

	mcpCallTool(t, session, "inspector_show", map[string]any{})
	if !pnl.State().Visible {
		t.Fatal("show tool did not show")
	}

	text := mcpCallTool(t, session, "inspector_state", map[string]any{})
	var s inspect.State
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		t.Fatal(err)
	}
	if !s.Visible {
		t.Fatalf("state %+v", s)
	}

	mcpCallTool(t, session, "inspector_hide", map[string]any{})
	if pnl.State().Visible {
		t.Fatal("hide tool did not hide")
	}
}

func TestMCP_SelectAndTree(t *testing.T) {
	pnl, session := mcpSession(t)

	text := mcpCallTool(t, session, "inspector_select", map[string]any{"selector": "#app"})
	var res inspect.SelectorResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.ElementID != "di-app" {
		t.Fatalf("select result %+v", res)
	}
	if pnl.SelectedID() != "di-app" {
		t.Fatalf("selected %q", pnl.SelectedID())
	}

	text = mcpCallTool(t, session, "inspector_tree", map[string]any{})
	var rows []struct {
		ID       string `json:"id"`
		Selected bool   `json:"selected"`
	}
	if err := json.Unmarshal([]byte(text), &rows); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range rows {
		if r.ID == "di-app" && r.Selected {
			found = true
		}
	}
	if !found {
		t.Fatalf("selected row missing in %d rows", len(rows))
	}
}

func TestMCP_TestSelectorRepair(t *testing.T) {
	_, session := mcpSession(t)

	text := mcpCallTool(t, session, "inspector_test_selector", map[string]any{"selector": ".nope"})
	var res inspect.SelectorResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatal(err)
	}
	if res.Success || res.Error == "" {
		t.Fatalf("result %+v", res)
	}
}

func TestMCP_DetailAndMarkdown(t *testing.T) {
	_, session := mcpSession(t)

	text := mcpCallTool(t, session, "inspector_detail", map[string]any{"element_id": "di-p"})
	var d ElementDetail
	if err := json.Unmarshal([]byte(text), &d); err != nil {
		t.Fatal(err)
	}
	if d.Tag != "p" || len(d.Sections) == 0 {
		t.Fatalf("detail %+v", d)
	}

	text = mcpCallTool(t, session, "inspector_markdown", map[string]any{"element_id": "di-p"})
	var md map[string]string
	if err := json.Unmarshal([]byte(text), &md); err != nil {
		t.Fatal(err)
	}
	if md["markdown"] == "" {
		t.Fatal("empty markdown")
	}
}

func TestMCP_HighlightCycle(t *testing.T) {
	pnl, session := mcpSession(t)

	text := mcpCallTool(t, session, "inspector_highlight", map[string]any{"cycle": true})
	var h inspect.Highlight
	if err := json.Unmarshal([]byte(text), &h); err != nil {
		t.Fatal(err)
	}
	if h.Mode != inspect.HighlightShade {
		t.Fatalf("cycled to %q", h.Mode)
	}
	if pnl.State().Highlight.Mode != inspect.HighlightShade {
		t.Fatal("state not updated")
	}
}

func TestMCP_ToolError(t *testing.T) {
	_, session := mcpSession(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "inspector_detail",
		Arguments: map[string]any{"element_id": "di-ghost"},
	})
	if err != nil {
		t.Fatal(err)
	}
	// Endpoint failures are tool errors, not protocol errors.
	if !result.IsError {
		t.Fatal("expected a tool error for a missing element")
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	if !strings.Contains(tc.Text, "di-ghost") || !strings.Contains(tc.Text, "not found") {
		t.Fatalf("tool error text = %q", tc.Text)
	}
}
