package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matheus-szfig/LLMPromptBuilder/internal/output"
	"github.com/matheus-szfig/LLMPromptBuilder/internal/schema"
)

// ValidateResult reports the outcome for one file.
type ValidateResult struct {
	File  string `json:"file" yaml:"file"`
	Valid bool   `json:"valid" yaml:"valid"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check prompt documents against the interchange schema",
	Long: `Validate one or more prompt documents against the interchange JSON Schema
(see "promptbuilder schema"). Exits non-zero if any file is invalid.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results := make([]ValidateResult, 0, len(args))
		invalid := 0
		for _, path := range args {
			res := ValidateResult{File: path, Valid: true}
			data, err := readInput(path)
			if err == nil {
				err = schema.Validate(data, schema.DetectFormat(path))
			}
			if err != nil {
				res.Valid = false
				res.Error = err.Error()
				invalid++
			}
			results = append(results, res)
		}

		if err := output.Fprint(cmd.OutOrStdout(), results); err != nil {
			return err
		}
		if invalid > 0 {
			return fmt.Errorf("%d of %d documents invalid", invalid, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
