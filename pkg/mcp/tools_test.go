package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compoundkit/compoundc/pkg/compiler"
)

const validYAML = `steps:
  - action:
      action_name: fetch_user
      output_key: user_info
      input_args:
        email: data.input_email
  - action:
      action_name: send_email
      output_key: sent
      input_args:
        to: data.user_info.user.email
`

// --- Helpers ---

func newTestServer(t *testing.T) *CompoundServer {
	t.Helper()
	c, err := compiler.New()
	require.NoError(t, err)
	return NewCompoundServer(ServerDeps{Compiler: c})
}

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	return out
}

// --- Open / Close ---

func TestOpenTool(t *testing.T) {
	s := newTestServer(t)
	req := buildRequest("compound.open", map[string]any{"yaml": validYAML})

	result, err := s.handleOpen(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	payload := resultJSON(t, result)
	assert.NotEmpty(t, payload["document_id"])
	assert.EqualValues(t, 0, payload["errors"])
	assert.Equal(t, 1, s.registry.Len())
}

func TestOpenToolInvalidYAML(t *testing.T) {
	s := newTestServer(t)
	req := buildRequest("compound.open", map[string]any{"yaml": "steps:\n  - teleport: {}\n"})

	result, err := s.handleOpen(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, 0, s.registry.Len())
}

func TestOpenToolMissingArguments(t *testing.T) {
	s := newTestServer(t)
	result, err := s.handleOpen(context.Background(), buildRequest("compound.open", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestCloseTool(t *testing.T) {
	s := newTestServer(t)
	openRes, err := s.handleOpen(context.Background(), buildRequest("compound.open", map[string]any{"yaml": validYAML}))
	require.NoError(t, err)
	id := resultJSON(t, openRes)["document_id"].(string)

	closeRes, err := s.handleClose(context.Background(), buildRequest("compound.close", map[string]any{"document_id": id}))
	require.NoError(t, err)
	assert.False(t, closeRes.IsError)
	assert.Equal(t, 0, s.registry.Len())
}

func TestCloseToolUnknownHandle(t *testing.T) {
	s := newTestServer(t)
	result, err := s.handleClose(context.Background(), buildRequest("compound.close", map[string]any{"document_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// --- Validate ---

func TestValidateToolByHandle(t *testing.T) {
	s := newTestServer(t)
	openRes, err := s.handleOpen(context.Background(), buildRequest("compound.open", map[string]any{"yaml": validYAML}))
	require.NoError(t, err)
	id := resultJSON(t, openRes)["document_id"].(string)

	result, err := s.handleValidate(context.Background(), buildRequest("compound.validate", map[string]any{"document_id": id}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	payload := resultJSON(t, result)
	assert.Equal(t, true, payload["valid"])
}

func TestValidateToolInlineDefinition(t *testing.T) {
	s := newTestServer(t)
	req := buildRequest("compound.validate", map[string]any{
		"definition": map[string]any{
			"steps": []any{
				map[string]any{"action": map[string]any{
					"action_name": "a",
					"output_key":  "x",
				}},
			},
		},
	})
	result, err := s.handleValidate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestValidateToolReportsDiagnostics(t *testing.T) {
	s := newTestServer(t)
	badYAML := "steps:\n  - switch:\n"
	result, err := s.handleValidate(context.Background(), buildRequest("compound.validate", map[string]any{"yaml": badYAML}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	payload := resultJSON(t, result)
	assert.Equal(t, false, payload["valid"])
	assert.NotEmpty(t, payload["diagnostics"])
}

func TestValidateToolUnknownHandle(t *testing.T) {
	s := newTestServer(t)
	result, err := s.handleValidate(context.Background(), buildRequest("compound.validate", map[string]any{"document_id": "missing"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// --- Serialize ---

func TestSerializeTool(t *testing.T) {
	s := newTestServer(t)
	result, err := s.handleSerialize(context.Background(), buildRequest("compound.serialize", map[string]any{"yaml": validYAML}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.True(t, strings.HasPrefix(text, "steps:"))
	assert.Contains(t, text, "action_name: fetch_user")
}

func TestSerializeToolRefusesInvalid(t *testing.T) {
	s := newTestServer(t)
	badYAML := "steps:\n  - raise:\n      output_key: oops\n"
	result, err := s.handleSerialize(context.Background(), buildRequest("compound.serialize", map[string]any{"yaml": badYAML}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "UNVALIDATED_DOCUMENT")
}

// --- Scope ---

func TestScopeTool(t *testing.T) {
	s := newTestServer(t)
	req := buildRequest("compound.scope", map[string]any{
		"yaml": validYAML,
		"path": "steps[1]",
	})
	result, err := s.handleScope(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	payload := resultJSON(t, result)
	bindings, ok := payload["bindings"].([]any)
	require.True(t, ok)
	require.Len(t, bindings, 1)
	first := bindings[0].(map[string]any)
	assert.Equal(t, "user_info", first["name"])
	assert.Equal(t, "output", first["kind"])
}

func TestScopeToolMissingPath(t *testing.T) {
	s := newTestServer(t)
	result, err := s.handleScope(context.Background(), buildRequest("compound.scope", map[string]any{"yaml": validYAML}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestScopeToolUnknownPath(t *testing.T) {
	s := newTestServer(t)
	req := buildRequest("compound.scope", map[string]any{
		"yaml": validYAML,
		"path": "steps[9].for.steps[0]",
	})
	result, err := s.handleScope(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// --- Registry ---

func TestRegistryReplace(t *testing.T) {
	r := NewDocumentRegistry()
	c, err := compiler.New()
	require.NoError(t, err)

	doc, err := c.Parse([]byte(validYAML))
	require.NoError(t, err)

	id := r.Open(doc)
	assert.True(t, r.Replace(id, doc))
	assert.False(t, r.Replace("unknown", doc))

	got, ok := r.Get(id)
	require.True(t, ok)
	assert.Same(t, doc, got)
}

// --- Log correlation ---

func TestToolLogsCarryDocumentID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c, err := compiler.New()
	require.NoError(t, err)
	s := NewCompoundServer(ServerDeps{Compiler: c, Logger: logger})

	openResult, err := s.handleOpen(context.Background(), buildRequest("compound.open", map[string]any{"yaml": validYAML}))
	require.NoError(t, err)
	id, ok := resultJSON(t, openResult)["document_id"].(string)
	require.True(t, ok)
	assert.Contains(t, buf.String(), "document_id="+id)

	buf.Reset()
	_, err = s.handleValidate(context.Background(), buildRequest("compound.validate", map[string]any{"document_id": id}))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "document_id="+id)

	buf.Reset()
	req := buildRequest("compound.scope", map[string]any{"document_id": id, "path": "steps[1]"})
	_, err = s.handleScope(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "document_id="+id)
	assert.Contains(t, buf.String(), "step_path=steps[1]")

	buf.Reset()
	_, err = s.handleClose(context.Background(), buildRequest("compound.close", map[string]any{"document_id": id}))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "document_id="+id)
}
