package cmd

import (
	"fmt"

	"github.com/metal-toolbox/dutfw/internal/version"
	"github.com/spf13/cobra"
)

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "Print dutfw version along with dependency information.",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf(
			"commit: %s\nbranch: %s\ngit summary: %s\nbuildDate: %s\nversion: %s\nGo version: %s\nbmclib version: %s\nstateswitch version: %s\n",
			version.GitCommit, version.GitBranch, version.GitSummary, version.BuildDate, version.AppVersion, version.GoVersion, version.BmclibVersion, version.StateswitchVersion)
	},
}

func init() {
	rootCmd.AddCommand(cmdVersion)
}
