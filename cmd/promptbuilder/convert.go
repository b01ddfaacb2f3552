package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matheus-szfig/LLMPromptBuilder/pkg/prompt"
)

var (
	convertTo      string
	convertCompact bool
)

var convertCmd = &cobra.Command{
	Use:   "convert FILE",
	Short: "Convert a prompt document between JSON and YAML",
	Long: `Validate a prompt document and write it out in another format.

Section order is preserved in both directions.

Examples:
  promptbuilder convert prompt.json --to yaml > prompt.yaml
  promptbuilder convert prompt.yaml --to json --compact`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := loadDocument(args[0])
		if err != nil {
			return err
		}

		var out string
		switch prompt.Format(convertTo) {
		case prompt.FormatJSON:
			out, err = b.ToJSON(!convertCompact)
		case prompt.FormatYAML:
			out, err = b.ToYAML()
		default:
			return fmt.Errorf("unknown target format %q (want json or yaml)", convertTo)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertTo, "to", "yaml", "Target format: json or yaml")
	convertCmd.Flags().BoolVar(&convertCompact, "compact", false, "Write JSON without indentation")

	rootCmd.AddCommand(convertCmd)
}
