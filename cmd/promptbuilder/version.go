package main

import (
	"github.com/spf13/cobra"

	"github.com/matheus-szfig/LLMPromptBuilder/internal/output"
	"github.com/matheus-szfig/LLMPromptBuilder/version"
)

// VersionInfo is the build metadata printed by "version".
type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Go      string `json:"go" yaml:"go"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return output.Fprint(cmd.OutOrStdout(), VersionInfo{
			Version: version.GitRelease,
			Go:      version.GoInfo,
			Commit:  version.GitCommit,
			Date:    version.GitCommitDate,
		})
	},
}
