package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kiesman99/pano/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pano %s (commit %s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
