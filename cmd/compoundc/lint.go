package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/compoundkit/compoundc/pkg/schema"
)

var (
	lintFormat string
	lintFilter string
)

var lintCmd = &cobra.Command{
	Use:   "lint <file>",
	Short: "Validate a document and report diagnostics",
	Long: `lint parses a compound action document and runs the full
validation pipeline: structural shape, cross-field rules, reference
resolution, and embedded script analysis. Diagnostics are printed to
stdout; the exit code is non-zero when any error-severity diagnostic
is present.`,
	Args: cobra.ExactArgs(1),
	RunE: runLint,
}

func init() {
	lintCmd.Flags().StringVarP(&lintFormat, "format", "f", "text", "output format: text or json")
	lintCmd.Flags().StringVar(&lintFilter, "filter", "", "jq program applied to the diagnostics JSON")
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
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

	result, err := c.Validate(doc)
	if err != nil {
		return err
	}
	slog.Debug("validation complete",
		"file", args[0],
		"errors", len(result.Errors),
		"warnings", len(result.Warnings))

	if lintFilter != "" {
		if err := printFiltered(result, lintFilter); err != nil {
			return err
		}
	} else if lintFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printText(args[0], result)
	}

	if !result.Valid() {
		// Diagnostics were already printed; signal failure via exit code.
		cmd.SilenceErrors = true
		return fmt.Errorf("%d errors", len(result.Errors))
	}
	return nil
}

func printText(file string, result *schema.ValidationResult) {
	for _, d := range result.All() {
		loc := file
		if d.Path != "" {
			loc += ":" + d.Path
		}
		fmt.Printf("%s: %s: [%s] %s\n", loc, d.Severity, d.Code, d.Message)
	}
	if result.Len() == 0 {
		fmt.Printf("%s: ok\n", file)
	}
}

// printFiltered runs a jq program over the diagnostics JSON and prints
// each emitted value on its own line.
func printFiltered(result *schema.ValidationResult, program string) error {
	query, err := gojq.Parse(program)
	if err != nil {
		return fmt.Errorf("parse filter: %w", err)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return err
	}

	iter := query.Run(input)
	enc := json.NewEncoder(os.Stdout)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("filter: %w", err)
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}
