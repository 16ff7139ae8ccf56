package kit

import (
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type pingRequest struct {
	ID string `json:"id"`
}

func TestDecodeJSON(t *testing.T) {
	decode := DecodeJSON[pingRequest]()

	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{
		Arguments: json.RawMessage(`{"id":"di-abc"}`),
	}}
	got, err := decode(req)
	if err != nil {
		t.Fatal(err)
	}
	if got.(*pingRequest).ID != "di-abc" {
		t.Fatalf("decoded %+v", got)
	}

	// Absent arguments decode to the zero value.
	empty := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{}}
	got, err = decode(empty)
	if err != nil {
		t.Fatal(err)
	}
	if got.(*pingRequest).ID != "" {
		t.Fatalf("zero decode %+v", got)
	}

	bad := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{
		Arguments: json.RawMessage(`{`),
	}}
	if _, err := decode(bad); err == nil {
		t.Fatal("expected a decode error for malformed arguments")
	}
}

func TestDecodeNone(t *testing.T) {
	got, err := DecodeNone(&mcp.CallToolRequest{})
	if err != nil || got != nil {
		t.Fatalf("DecodeNone = (%v, %v)", got, err)
	}
}
