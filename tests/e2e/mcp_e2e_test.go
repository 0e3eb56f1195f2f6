package e2e

import (
	"context"
	"encoding/json"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compoundkit/compoundc/pkg/compiler"
	"github.com/compoundkit/compoundc/pkg/mcp"
)

// callTool drives a tool through the real MCP server dispatch, not the
// handler directly, so registration and routing are covered too.
func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]any) *mcpgo.CallToolResult {
	t.Helper()

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      name,
			"arguments": args,
		},
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	init := map[string]any{
		"jsonrpc": "2.0",
		"id":      0,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-03-26",
			"capabilities":    map[string]any{},
			"clientInfo": map[string]any{
				"name":    "e2e-test",
				"version": "1.0.0",
			},
		},
	}
	rawInit, err := json.Marshal(init)
	require.NoError(t, err)
	require.NotNil(t, srv.HandleMessage(context.Background(), rawInit))

	respMsg := srv.HandleMessage(context.Background(), raw)
	require.NotNil(t, respMsg)

	respRaw, err := json.Marshal(respMsg)
	require.NoError(t, err)

	var resp struct {
		Result *mcpgo.CallToolResult `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(respRaw, &resp))
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
	return resp.Result
}

func textOf(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcpgo.GetTextFromContent(result.Content[0])
}

func TestMCPOpenValidateSerializeClose(t *testing.T) {
	c, err := compiler.New()
	require.NoError(t, err)
	srv := mcp.NewCompoundServer(mcp.ServerDeps{Compiler: c}).MCPServer()

	yamlText := string(readExample(t, "user-onboarding.yaml"))

	openRes := callTool(t, srv, "compound.open", map[string]any{"yaml": yamlText})
	require.False(t, openRes.IsError, textOf(t, openRes))

	var opened struct {
		DocumentID string `json:"document_id"`
		Errors     int    `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, openRes)), &opened))
	require.NotEmpty(t, opened.DocumentID)
	assert.Zero(t, opened.Errors)

	valRes := callTool(t, srv, "compound.validate", map[string]any{"document_id": opened.DocumentID})
	require.False(t, valRes.IsError)
	assert.Contains(t, textOf(t, valRes), `"valid": true`)

	serRes := callTool(t, srv, "compound.serialize", map[string]any{"document_id": opened.DocumentID})
	require.False(t, serRes.IsError)
	assert.Contains(t, textOf(t, serRes), "action_name: fetch_user")

	scopeRes := callTool(t, srv, "compound.scope", map[string]any{
		"document_id": opened.DocumentID,
		"path":        "steps[1]",
	})
	require.False(t, scopeRes.IsError)
	assert.Contains(t, textOf(t, scopeRes), `"user_info"`)

	closeRes := callTool(t, srv, "compound.close", map[string]any{"document_id": opened.DocumentID})
	require.False(t, closeRes.IsError)

	// The handle is gone afterwards.
	afterRes := callTool(t, srv, "compound.validate", map[string]any{"document_id": opened.DocumentID})
	assert.True(t, afterRes.IsError)
}
