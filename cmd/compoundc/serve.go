package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/compoundkit/compoundc/pkg/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdio",
	Long: `serve exposes the compiler to editors and agents over the Model
Context Protocol on stdin/stdout. Tools: compound.open, compound.validate,
compound.serialize, compound.scope, compound.close. Logs go to stderr so
the protocol stream stays clean.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := newCompiler()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := mcp.NewCompoundServer(mcp.ServerDeps{
		Compiler: c,
		Logger:   slog.Default(),
	})
	slog.Info("mcp server listening on stdio")
	return srv.Serve(ctx)
}
