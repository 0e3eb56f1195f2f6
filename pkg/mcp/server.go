package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/compoundkit/compoundc/pkg/compiler"
)

// ServerDeps holds the dependencies for creating a CompoundServer.
type ServerDeps struct {
	Compiler *compiler.Compiler
	Logger   *slog.Logger
}

// CompoundServer wraps an MCP server exposing the compiler core to
// editors and agents: open documents, validate, serialize, resolve scope.
type CompoundServer struct {
	compiler  *compiler.Compiler
	registry  *DocumentRegistry
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewCompoundServer creates a CompoundServer with all tools registered.
func NewCompoundServer(deps ServerDeps) *CompoundServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &CompoundServer{
		compiler: deps.Compiler,
		registry: NewDocumentRegistry(),
		logger:   logger,
	}

	mcpSrv := server.NewMCPServer(
		"compoundc",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("compoundc is a compound-action workflow compiler. Use compound.open to register a document, compound.validate to get diagnostics, compound.serialize to render canonical YAML, compound.scope to list the bindings visible at a step, and compound.close to release a document handle."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or
// stdin closes.
func (s *CompoundServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom
// transports.
func (s *CompoundServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the registered MCP tools as ServerTool entries.
func (s *CompoundServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: openTool(), Handler: s.handleOpen},
		{Tool: validateTool(), Handler: s.handleValidate},
		{Tool: serializeTool(), Handler: s.handleSerialize},
		{Tool: scopeTool(), Handler: s.handleScope},
		{Tool: closeTool(), Handler: s.handleClose},
	}
}

// --- Tool definitions ---

func openTool() mcp.Tool {
	return mcp.NewTool("compound.open",
		mcp.WithDescription("Register a compound-action document and get a reusable document_id"),
		mcp.WithString("yaml", mcp.Description("Document as YAML text")),
		mcp.WithObject("definition", mcp.Description("Document as a JSON object")),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("compound.validate",
		mcp.WithDescription("Validate a compound-action document and return all diagnostics"),
		mcp.WithString("document_id", mcp.Description("Handle from compound.open")),
		mcp.WithString("yaml", mcp.Description("Document as YAML text (alternative to document_id)")),
		mcp.WithObject("definition", mcp.Description("Document as a JSON object (alternative to document_id)")),
	)
}

func serializeTool() mcp.Tool {
	return mcp.NewTool("compound.serialize",
		mcp.WithDescription("Render a compound-action document as canonical YAML; fails if the document has validation errors"),
		mcp.WithString("document_id", mcp.Description("Handle from compound.open")),
		mcp.WithString("yaml", mcp.Description("Document as YAML text (alternative to document_id)")),
		mcp.WithObject("definition", mcp.Description("Document as a JSON object (alternative to document_id)")),
	)
}

func scopeTool() mcp.Tool {
	return mcp.NewTool("compound.scope",
		mcp.WithDescription("List the bindings visible at a step, for reference autocompletion"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Structural step path, e.g. steps[1].for.steps[0]")),
		mcp.WithString("document_id", mcp.Description("Handle from compound.open")),
		mcp.WithString("yaml", mcp.Description("Document as YAML text (alternative to document_id)")),
		mcp.WithObject("definition", mcp.Description("Document as a JSON object (alternative to document_id)")),
	)
}

func closeTool() mcp.Tool {
	return mcp.NewTool("compound.close",
		mcp.WithDescription("Release a document handle"),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Handle from compound.open")),
	)
}
