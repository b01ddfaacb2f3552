package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/matheus-szfig/LLMPromptBuilder/internal/config"
	"github.com/matheus-szfig/LLMPromptBuilder/internal/home"
	"github.com/matheus-szfig/LLMPromptBuilder/internal/logging"
	"github.com/matheus-szfig/LLMPromptBuilder/internal/output"
	"github.com/matheus-szfig/LLMPromptBuilder/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

// Set by PersistentPreRunE for every command.
var (
	homeDirectory *home.Dir
	configManager *config.Manager
	logger        *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "promptbuilder",
	Short: "Compose LLM prompts from named, ordered sections",
	Long: `Promptbuilder assembles large LLM prompts from small, independently editable
sections and renders them into a single Markdown document.

Documents are JSON or YAML files holding:
  - Sections with optional titles, character caps and inclusion conditions
  - An explicit section order
  - {{ dotted.path }} variables filled from a context file at compile time

Named documents live in a SQLite library that layers your edits over the
defaults shipped with the binary.`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.promptbuilder/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "promptbuilder home directory (default: ~/.promptbuilder)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "", "output format: json or yaml (default from config)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)",
	)

	// Load config, logger and output format before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		homeDirectory = h

		cm, err := config.NewManager(cfgFile, h.Path())
		if err != nil {
			return err
		}
		configManager = cm
		cfg := cm.Get()

		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		logger, err = logging.New(os.Stderr, level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("invalid log config: %w", err)
		}
		cm.SetLogger(logger)
		slog.SetDefault(logger)

		format := cfg.Output
		if outputFormat != "" {
			if _, err := output.ParseFormat(outputFormat); err != nil {
				return err
			}
			format = outputFormat
		}
		output.SetFormat(format)
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}
