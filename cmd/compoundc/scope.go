package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var scopeAt string

var scopeCmd = &cobra.Command{
	Use:   "scope <file>",
	Short: "List the bindings visible at a step",
	Long: `scope parses a document and resolves the set of output and loop
bindings visible at the step addressed by --at. An index one past the
end of a sequence addresses the insertion point for a new step, so
editors can complete references for a step being written.`,
	Args: cobra.ExactArgs(1),
	RunE: runScope,
}

func init() {
	scopeCmd.Flags().StringVar(&scopeAt, "at", "", "step path, e.g. steps[1].for.steps[0]")
	scopeCmd.MarkFlagRequired("at")
	rootCmd.AddCommand(scopeCmd)
}

func runScope(cmd *cobra.Command, args []string) error {
	c, err := newCompiler()
	if err != nil {
		return err
	}

	data, err := readDocument(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	doc, err := c.Parse(data)
	if err != nil {
		return err
	}

	bindings, err := c.ResolveScope(doc, scopeAt)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(bindings)
}
