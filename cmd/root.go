package cmd

import (
	"fmt"
	"os"

	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	dryrun   bool
)

var rootCmd = &cobra.Command{
	Use:           model.AppName,
	Short:         "Upgrade, downgrade and inspect DUT firmware in-band over SSH or out-of-band through the BMC",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command, errors are printed as a single line and exit non-zero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file (default is $HOME/.dutfw.yml when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "debug", "log level - info, debug, trace")
	rootCmd.PersistentFlags().BoolVarP(&dryrun, "dry-run", "", false, "plan firmware changes without installing them")
}
