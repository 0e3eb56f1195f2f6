package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/compoundkit/compoundc/internal/logging"
	"github.com/compoundkit/compoundc/pkg/schema"
)

// requestContext attaches the document handle named in the request, if
// any, so log records carry the document ID.
func requestContext(ctx context.Context, req mcp.CallToolRequest) context.Context {
	if id := req.GetString("document_id", ""); id != "" {
		ctx = logging.WithDocumentID(ctx, id)
	}
	return ctx
}

// handleOpen registers a document supplied as YAML or JSON and returns
// its handle together with an initial diagnostic summary.
func (s *CompoundServer) handleOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.decodeDocument(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id := s.registry.Open(doc)
	ctx = logging.WithDocumentID(ctx, id)
	result, vErr := s.compiler.Validate(doc)
	if vErr != nil {
		return mcp.NewToolResultError(vErr.Error()), nil
	}

	logging.LogWith(ctx, s.logger).Info("document opened",
		"errors", len(result.Errors),
		"warnings", len(result.Warnings))

	return marshalResult(map[string]any{
		"document_id": id,
		"errors":      len(result.Errors),
		"warnings":    len(result.Warnings),
	})
}

// handleValidate returns every diagnostic for the document.
func (s *CompoundServer) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = requestContext(ctx, req)
	doc, err := s.resolveDocument(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, vErr := s.compiler.Validate(doc)
	if vErr != nil {
		return mcp.NewToolResultError(vErr.Error()), nil
	}
	logging.LogWith(ctx, s.logger).Debug("document validated",
		"errors", len(result.Errors),
		"warnings", len(result.Warnings))

	return marshalResult(map[string]any{
		"valid":       result.Valid(),
		"diagnostics": result.All(),
	})
}

// handleSerialize renders canonical YAML, refusing documents with errors.
func (s *CompoundServer) handleSerialize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = requestContext(ctx, req)
	doc, err := s.resolveDocument(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, sErr := s.compiler.Serialize(doc)
	if sErr != nil {
		return mcp.NewToolResultError(sErr.Error()), nil
	}
	logging.LogWith(ctx, s.logger).Debug("document serialized", "bytes", len(text))
	return mcp.NewToolResultText(string(text)), nil
}

// handleScope lists the bindings visible at a step path.
func (s *CompoundServer) handleScope(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path is required"), nil
	}
	ctx = logging.WithStepPath(requestContext(ctx, req), path)

	doc, dErr := s.resolveDocument(req)
	if dErr != nil {
		return mcp.NewToolResultError(dErr.Error()), nil
	}

	bindings, rErr := s.compiler.ResolveScope(doc, path)
	if rErr != nil {
		return mcp.NewToolResultError(rErr.Error()), nil
	}
	logging.LogWith(ctx, s.logger).Debug("scope resolved", "bindings", len(bindings))

	return marshalResult(map[string]any{
		"path":     path,
		"bindings": bindings,
	})
}

// handleClose releases a document handle.
func (s *CompoundServer) handleClose(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("document_id is required"), nil
	}
	if _, ok := s.registry.Get(id); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown document_id %q", id)), nil
	}
	s.registry.Close(id)
	ctx = logging.WithDocumentID(ctx, id)
	logging.LogWith(ctx, s.logger).Info("document closed")
	return marshalResult(map[string]any{"closed": id})
}

// resolveDocument finds the document a request refers to: an open handle,
// inline YAML, or an inline JSON definition, in that order.
func (s *CompoundServer) resolveDocument(req mcp.CallToolRequest) (*schema.CompoundAction, error) {
	if id := req.GetString("document_id", ""); id != "" {
		doc, ok := s.registry.Get(id)
		if !ok {
			return nil, schema.NewErrorf(schema.ErrCodeNotFound, "unknown document_id %q", id)
		}
		return doc, nil
	}
	return s.decodeDocument(req)
}

// decodeDocument decodes an inline document from the request arguments.
func (s *CompoundServer) decodeDocument(req mcp.CallToolRequest) (*schema.CompoundAction, error) {
	if text := req.GetString("yaml", ""); text != "" {
		return s.compiler.Parse([]byte(text))
	}
	if def := mcp.ParseStringMap(req, "definition", nil); def != nil {
		raw, err := json.Marshal(def)
		if err != nil {
			return nil, schema.NewError(schema.ErrCodeParse, "encode definition").WithCause(err)
		}
		return s.compiler.DecodeJSON(raw)
	}
	return nil, schema.NewError(schema.ErrCodeValidation,
		"provide one of document_id, yaml, or definition")
}

// marshalResult renders a tool result as indented JSON text.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
