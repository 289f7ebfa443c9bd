package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/collect"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and export format",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mudra %s (feature width %d)\n", Version, collect.FeatureWidth)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
