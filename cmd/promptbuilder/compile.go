package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matheus-szfig/LLMPromptBuilder/internal/config"
	"github.com/matheus-szfig/LLMPromptBuilder/pkg/prompt"
)

var (
	compileKey          string
	compileContextFile  string
	compileSets         []string
	compileJoiner       string
	compileIncludeEmpty bool
)

var compileCmd = &cobra.Command{
	Use:   "compile [FILE]",
	Short: "Render a prompt document to text",
	Long: `Render a prompt document into a single Markdown prompt.

The document comes from FILE (JSON or YAML, "-" for stdin) or, with --key, from
the library. Variables are filled from --context and --set; sections whose
include_if conditions do not match are left out. Without any context, sections
with conditions are skipped and {{ variables }} are printed as written.

Examples:
  promptbuilder compile prompt.yaml --context ctx.yaml
  promptbuilder compile --key analysis.system --set role=admin --set locale=pt-BR
  promptbuilder compile prompt.json --joiner '\n---\n' --include-empty`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (len(args) == 1) == (compileKey != "") {
			return fmt.Errorf("give either FILE or --key")
		}

		var b *prompt.Builder
		if compileKey != "" {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()

			res, err := lib.resolver.Resolve(cmd.Context(), compileKey)
			if err != nil {
				return err
			}
			b = res.Builder
		} else {
			var err error
			if b, err = loadDocument(args[0]); err != nil {
				return err
			}
		}

		opts, err := compileOptions(cmd, compileContextFile, compileSets)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), b.Compile(opts...))
		return nil
	},
}

// compileOptions merges config defaults with the compile flags. The context stays nil
// unless a context file or --set is given.
func compileOptions(cmd *cobra.Command, contextFile string, sets []string) ([]prompt.CompileOption, error) {
	cfg := configManager.Get()
	opts := cfg.CompileOptions()

	if cmd.Flags().Changed("joiner") {
		opts = append(opts, prompt.WithJoiner(config.UnescapeJoiner(compileJoiner)))
	}
	if cmd.Flags().Changed("include-empty") {
		opts = append(opts, prompt.WithIncludeEmpty(compileIncludeEmpty))
	}

	ctx, err := buildContext(contextFile, sets)
	if err != nil {
		return nil, err
	}
	if ctx != nil {
		opts = append(opts, prompt.WithContext(ctx))
	}
	return opts, nil
}

func buildContext(file string, sets []string) (prompt.Context, error) {
	if file == "" && len(sets) == 0 {
		return nil, nil
	}
	ctx := prompt.Context{}
	if file != "" {
		var err error
		if ctx, err = loadContext(file); err != nil {
			return nil, err
		}
	}
	if err := applySets(ctx, sets); err != nil {
		return nil, err
	}
	return ctx, nil
}

func init() {
	compileCmd.Flags().StringVar(&compileKey, "key", "", "Compile a library document instead of a file")
	compileCmd.Flags().StringVar(&compileContextFile, "context", "", "JSON or YAML file with variables")
	compileCmd.Flags().StringArrayVar(&compileSets, "set", nil, "Set a variable (path=value, repeatable)")
	compileCmd.Flags().StringVar(&compileJoiner, "joiner", "", `Separator between sections (escapes like \n allowed)`)
	compileCmd.Flags().BoolVar(&compileIncludeEmpty, "include-empty", false, "Keep the header of titled sections with no content")

	rootCmd.AddCommand(compileCmd)
}
