// Package kit adapts the inspector's transport-agnostic endpoints to the
// MCP tool surface. The HTTP control API reaches the panel directly; MCP
// tools go through RegisterMCPTool so every failure mode renders the same
// way to an agent.
package kit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Endpoint is one inspector operation: typed request in, typed response
// out. Both serving surfaces terminate in Endpoints.
type Endpoint func(ctx context.Context, req any) (any, error)

// DecodeFunc extracts an Endpoint's typed request from a tool call.
type DecodeFunc func(*mcp.CallToolRequest) (any, error)

// DecodeJSON returns a DecodeFunc that unmarshals the tool arguments into
// a fresh T. Absent arguments decode to the zero value.
func DecodeJSON[T any]() DecodeFunc {
	return func(req *mcp.CallToolRequest) (any, error) {
		r := new(T)
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, r); err != nil {
				return nil, err
			}
		}
		return r, nil
	}
}

// DecodeNone ignores the arguments, for tools that take none.
func DecodeNone(*mcp.CallToolRequest) (any, error) { return nil, nil }

// RegisterMCPTool registers an Endpoint as an MCP tool on srv. Decode and
// endpoint failures become tool errors, never protocol errors, and
// successful responses render as a single JSON text block.
func RegisterMCPTool(srv *mcp.Server, tool *mcp.Tool, endpoint Endpoint, decode DecodeFunc) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		in, err := decode(req)
		if err != nil {
			return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
		}

		resp, err := endpoint(ctx, in)
		if err != nil {
			return toolError(errors.New(err.Error())), nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return toolError(fmt.Errorf("marshal: %w", err)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}
