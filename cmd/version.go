package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ripecheck/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}
