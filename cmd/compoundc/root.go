package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/compoundkit/compoundc/internal/logging"
	"github.com/compoundkit/compoundc/pkg/compiler"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "compoundc",
	Short: "Compiler core for compound action documents",
	Long: `compoundc validates compound action documents, renders them in
canonical form, and resolves the binding scope at any step for
editor tooling. Documents are never executed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		initLogging()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.compoundc.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().Int("max-diagnostics", 0, "diagnostic ceiling per run (0 = default)")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("max_diagnostics", rootCmd.PersistentFlags().Lookup("max-diagnostics"))
}

// initConfig layers viper sources: flags > env (COMPOUNDC_*) > config file.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".compoundc")
	}

	viper.SetEnvPrefix("COMPOUNDC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
		// A missing default config file is fine.
	}
	return nil
}

func initLogging() {
	var level slog.Level
	switch viper.GetString("log_level") {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: level}
	var inner slog.Handler
	if viper.GetString("log_format") == "json" {
		inner = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		inner = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(logging.NewCorrelationHandler(inner)))
}

// newCompiler builds the shared compiler with the configured diagnostic
// ceiling applied.
func newCompiler() (*compiler.Compiler, error) {
	c, err := compiler.New()
	if err != nil {
		return nil, fmt.Errorf("initialize compiler: %w", err)
	}
	if n := viper.GetInt("max_diagnostics"); n > 0 {
		c.SetDiagnosticLimit(n)
	}
	return c, nil
}

// readDocument loads YAML from a file path, or stdin for "-".
func readDocument(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
