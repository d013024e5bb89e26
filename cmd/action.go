package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/equinix-labs/otel-init-go/otelinit"
	"github.com/metal-toolbox/dutfw/internal/app"
	"github.com/metal-toolbox/dutfw/internal/classify"
	"github.com/metal-toolbox/dutfw/internal/firmware"
	"github.com/metal-toolbox/dutfw/internal/inband"
	"github.com/metal-toolbox/dutfw/internal/lifecycle"
	"github.com/metal-toolbox/dutfw/internal/metrics"
	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/metal-toolbox/dutfw/internal/outofband"
	"github.com/metal-toolbox/dutfw/internal/remote"
	"github.com/metal-toolbox/dutfw/internal/version"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// bmc flag values, equivalent to BMC_IP, BMC_USER, BMC_PASSWORD
var (
	bmcAddr string
	bmcUser string
	bmcPass string
)

var (
	cmdUpgrade   = newActionCommand(model.ActionUpgrade, "Install the newest firmware available for the DUT")
	cmdDowngrade = newActionCommand(model.ActionDowngrade, "Install the previous firmware version on the DUT")
	cmdDetect    = newActionCommand(model.ActionDetect, "Classify the DUT and record its current firmware inventory")
)

func newActionCommand(action model.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " DEVICE_IP",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd.Context(), cmd.Flags(), action, args[0], cmd.OutOrStdout())
		},
	}
}

// defaultConfigFile returns $HOME/.dutfw.yml when it exists.
func defaultConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	path := filepath.Join(home, "."+model.AppName+".yml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}

	return path
}

func runAction(ctx context.Context, flags *pflag.FlagSet, action model.Action, address string, out io.Writer) error {
	if cfgFile == "" {
		cfgFile = defaultConfigFile()
	}

	dutfw, err := app.New(cfgFile, flags)
	if err != nil {
		return err
	}

	defer dutfw.Close()

	cfg := dutfw.Config

	ctx, otelShutdown := otelinit.InitOpenTelemetry(ctx, model.AppName)
	defer otelShutdown(ctx)

	// Setup cancel context with cancel func.
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	// routine listens for termination signal and cancels the context
	go func() {
		select {
		case <-dutfw.TermCh:
			dutfw.Logger.Info("got TERM signal, exiting...")
			cancelFunc()
		case <-ctx.Done():
		}
	}()

	run := model.NewRun(action)
	run.DryRun = cfg.DryRun

	logger := dutfw.Logger.WithFields(logrus.Fields{"runID": run.ID.String(), "dut": address})

	var catalog *firmware.Catalog
	if cfg.FirmwareCatalog != "" {
		catalog, err = firmware.Load(cfg.FirmwareCatalog)
		if err != nil {
			logger.WithError(err).Error("firmware catalog load error")
			return err
		}
	}

	classifier := classify.NewClassifier(
		classify.DefaultRegistry(),
		classify.Defaults{Username: cfg.DUT.Username, Password: cfg.DUT.PlaceholderPassword},
		logger,
	)

	target := classifier.Target(address, cfg.DUT.Password, cfg.BMC.Credentials())

	exec := remote.NewSSH(
		remote.Config{
			Host:           target.DUT.Address,
			Port:           cfg.DUT.Port,
			User:           target.DUT.Username,
			Password:       target.DUT.Password,
			KeyFile:        cfg.DUT.SSHKeyFile,
			KnownHostsFile: cfg.DUT.KnownHostsFile,
			ConnectTimeout: cfg.DUT.ConnectTimeout,
		},
		logger,
	)

	defer exec.Close()

	binding := &classify.Binding{
		Classifier: classifier,
		Exec:       exec,
		Target:     target,
		Env: &classify.Env{
			Logger: logger,
			Inband: inband.Params{
				RebootTimeout:      cfg.Reboot.Timeout,
				RebootInitialDelay: cfg.Reboot.InitialDelay,
				DryRun:             cfg.DryRun,
				Catalog:            catalog,
				DownloadDir:        cfg.DownloadDir,
			},
			Outofband: outofband.Params{
				RebootTimeout:      cfg.Reboot.Timeout,
				RebootInitialDelay: cfg.Reboot.InitialDelay,
				DryRun:             cfg.DryRun,
				Catalog:            catalog,
				DownloadDir:        cfg.DownloadDir,
				RunID:              run.ID.String(),
			},
		},
	}

	errRun := lifecycle.New(binding, logger).Run(ctx, run)

	if cfg.MetricsTextfile != "" {
		version.ExportBuildInfoMetric()

		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.WithError(err).Warn("metrics textfile write error")
		}
	}

	return report(out, run, errRun, cfg.LogFile)
}

// report prints the run outcome, a failed run returns its error for the root command to print.
func report(out io.Writer, run *model.Run, err error, logFile string) error {
	if err != nil {
		// multierror output spans lines
		msg := strings.Join(strings.Fields(err.Error()), " ")

		return errors.New(fmt.Sprintf("%s failed: %s, check %s for details", run.Action, msg, logFile))
	}

	if run.NotPerformed() {
		fmt.Fprintf(out, "Firmware %s is not performed.\n", run.Action)
		fmt.Fprintf(out, "Check %s for more details.\n", logFile)

		return nil
	}

	fmt.Fprintf(out, "Check %s for details.\n", logFile)

	return nil
}

func init() {
	for _, cmd := range []*cobra.Command{cmdUpgrade, cmdDowngrade, cmdDetect} {
		cmd.Flags().StringVarP(&bmcAddr, "bmc-ip", "i", "", "BMC address, equivalent to $BMC_IP")
		cmd.Flags().StringVarP(&bmcUser, "bmc-user", "u", "", "BMC user, equivalent to $BMC_USER")
		cmd.Flags().StringVarP(&bmcPass, "bmc-password", "p", "", "BMC password, equivalent to $BMC_PASSWORD")

		rootCmd.AddCommand(cmd)
	}
}
