// Package inband implements the device handler for DUTs updated by fwupd running on the DUT operating system.
package inband

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/metal-toolbox/dutfw/internal/download"
	"github.com/metal-toolbox/dutfw/internal/firmware"
	"github.com/metal-toolbox/dutfw/internal/metrics"
	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	cmdGetDevices  = "fwupdmgr get-devices --json"
	cmdRefresh     = "sudo fwupdmgr refresh --force"
	cmdGetUpdates  = "fwupdmgr get-updates --json"
	cmdUpdate      = "sudo fwupdmgr update --assume-yes --no-reboot-check"
	cmdGetReleases = "fwupdmgr get-releases %s --json"
	cmdInstall     = "sudo fwupdmgr install %s %s --allow-older --assume-yes --no-reboot-check"
	cmdReboot      = "sudo shutdown -r now"

	// fwupdmgr exits 2 when there is nothing to do
	exitNothingToDo = 2

	// firmware files are pushed into this directory on the DUT
	remoteFirmwareDir = "/tmp/dutfw"

	defaultRebootTimeout      = 30 * time.Minute
	defaultRebootInitialDelay = 60 * time.Second
)

var (
	// envTesting is set by tests to '1' to skip sleeps and backoffs in the handler.
	//
	// nolint:gosec // no gosec, this isn't a credential
	envTesting = "ENV_TESTING"

	ErrDeviceUnreachable = errors.New("device unreachable after reboot")
	ErrRebootRequest     = errors.New("reboot request failed")
)

// Params configures the in-band handler.
type Params struct {
	// RebootTimeout bounds the wait for the DUT to come back after a reboot.
	RebootTimeout time.Duration

	// RebootInitialDelay is waited before the first reachability check.
	RebootInitialDelay time.Duration

	// DryRun plans firmware changes without installing them.
	DryRun bool

	// Catalog holds pinned firmware files for downgrades, optional.
	Catalog *firmware.Catalog

	// DownloadDir is the local directory pinned firmware files are downloaded into.
	DownloadDir string
}

// Handler implements the model.Handler interface with fwupdmgr commands run over SSH.
type Handler struct {
	device     *model.Device
	exec       model.RemoteExecutor
	params     Params
	downloader *download.Downloader
	logger     *logrus.Entry
}

// New returns an in-band Handler for the device.
func New(device *model.Device, exec model.RemoteExecutor, params Params, logger *logrus.Entry) *Handler {
	if params.RebootTimeout == 0 {
		params.RebootTimeout = defaultRebootTimeout
	}

	if params.RebootInitialDelay == 0 {
		params.RebootInitialDelay = defaultRebootInitialDelay
	}

	return &Handler{
		device:     device,
		exec:       exec,
		params:     params,
		downloader: download.New(params.DownloadDir, logger),
		logger:     logger.WithField("handler", device.Handler),
	}
}

func sleepWithContext(ctx context.Context, t time.Duration) error {
	// skip sleep in tests
	if os.Getenv(envTesting) == "1" {
		return ctx.Err()
	}

	select {
	case <-time.After(t):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run executes the command and returns its result, exit codes in allowed are not considered failures.
func (h *Handler) run(ctx context.Context, cmd string, allowed ...int) (*model.CommandResult, error) {
	label := cmd
	if fields := strings.Fields(strings.TrimPrefix(cmd, "sudo ")); len(fields) > 1 {
		label = fields[0] + " " + fields[1]
	}

	result, err := h.exec.Run(ctx, cmd)
	if err != nil {
		metrics.RemoteCommandCounter.With(prometheus.Labels{"command": label, "result": metrics.CommandResult(-1)}).Inc()
		return result, err
	}

	metrics.RemoteCommandCounter.With(prometheus.Labels{"command": label, "result": metrics.CommandResult(result.ExitCode)}).Inc()

	if result.Success() {
		return result, nil
	}

	for _, code := range allowed {
		if result.ExitCode == code {
			return result, nil
		}
	}

	return result, model.NewRemoteCommandError(h.exec.Host(), cmd, result)
}

func (h *Handler) queryDevices(ctx context.Context) ([]*fwupdDevice, error) {
	result, err := h.run(ctx, cmdGetDevices)
	if err != nil {
		return nil, err
	}

	return parseDevices(result.Stdout)
}

// FirmwareInfo records the updatable fwupd devices as the device inventory.
func (h *Handler) FirmwareInfo(ctx context.Context) (model.Components, error) {
	devices, err := h.queryDevices(ctx)
	if err != nil {
		return nil, err
	}

	components := toComponents(devices)
	h.device.RecordInventory(components)

	for _, c := range components {
		h.logger.WithFields(logrus.Fields{
			"device":   c.Name,
			"deviceID": c.ID,
			"vendor":   c.Vendor,
			"version":  c.FirmwareInstalled,
		}).Info("firmware installed")
	}

	return components, nil
}

func (h *Handler) inventory(ctx context.Context) (model.Components, error) {
	if h.device.Inventory != nil {
		return h.device.Inventory, nil
	}

	return h.FirmwareInfo(ctx)
}

// Upgrade installs the updates published for the DUT by the fwupd remotes.
func (h *Handler) Upgrade(ctx context.Context) (model.LifecycleResult, error) {
	if _, err := h.run(ctx, cmdRefresh, exitNothingToDo); err != nil {
		return model.NoActionNeeded, errors.Wrap(err, "refresh metadata")
	}

	result, err := h.run(ctx, cmdGetUpdates, exitNothingToDo)
	if err != nil {
		return model.NoActionNeeded, errors.Wrap(err, "query updates")
	}

	if result.ExitCode == exitNothingToDo {
		h.logger.Info("no firmware updates available")
		return model.NoActionNeeded, nil
	}

	devices, err := parseDevices(result.Stdout)
	if err != nil {
		return model.NoActionNeeded, err
	}

	planned := 0

	for _, d := range devices {
		if len(d.Releases) == 0 {
			continue
		}

		// releases are listed newest first
		h.logger.WithFields(logrus.Fields{
			"device":    d.Name,
			"deviceID":  d.DeviceID,
			"installed": d.Version,
			"version":   d.Releases[0].Version,
			"dryrun":    h.params.DryRun,
		}).Info("firmware update planned")

		planned++
	}

	if planned == 0 {
		h.logger.Info("no firmware updates available")
		return model.NoActionNeeded, nil
	}

	if h.params.DryRun {
		return model.NoActionNeeded, nil
	}

	result, err = h.run(ctx, cmdUpdate, exitNothingToDo)
	if err != nil {
		return model.NoActionNeeded, errors.Wrap(err, "install updates")
	}

	if result.ExitCode == exitNothingToDo {
		return model.NoActionNeeded, nil
	}

	return h.rebootRequirement(ctx)
}

// Downgrade installs the previous firmware release on each updatable device,
// a release pinned in the firmware catalog takes precedence over the fwupd remotes.
func (h *Handler) Downgrade(ctx context.Context) (model.LifecycleResult, error) {
	components, err := h.inventory(ctx)
	if err != nil {
		return model.NoActionNeeded, err
	}

	installed := 0

	for _, component := range components.Updatable() {
		le := h.logger.WithFields(logrus.Fields{
			"device":    component.Name,
			"deviceID":  component.ID,
			"installed": component.FirmwareInstalled,
			"dryrun":    h.params.DryRun,
		})

		if pinned := h.params.Catalog.Previous(h.device.Vendor, component); pinned != nil {
			le.WithFields(logrus.Fields{"version": pinned.Version, "file": pinned.FileName}).Info("pinned firmware downgrade planned")

			if h.params.DryRun {
				continue
			}

			if err := h.installFile(ctx, component, pinned); err != nil {
				return model.NoActionNeeded, err
			}

			installed++

			continue
		}

		result, err := h.run(ctx, fmt.Sprintf(cmdGetReleases, shellQuote(component.ID)), exitNothingToDo)
		if err != nil {
			return model.NoActionNeeded, errors.Wrap(err, "query releases")
		}

		releases, err := parseReleases(result.Stdout)
		if err != nil {
			return model.NoActionNeeded, err
		}

		release := previousRelease(releases)
		if release == nil {
			le.Info("no previous firmware release available")
			continue
		}

		le.WithField("version", release.Version).Info("firmware downgrade planned")

		if h.params.DryRun {
			continue
		}

		cmd := fmt.Sprintf(cmdInstall, shellQuote(component.ID), shellQuote(release.Version))
		if _, err := h.run(ctx, cmd); err != nil {
			return model.NoActionNeeded, errors.Wrap(err, "install release")
		}

		installed++
	}

	if installed == 0 {
		return model.NoActionNeeded, nil
	}

	return h.rebootRequirement(ctx)
}

// installFile downloads the firmware file, pushes it to the DUT and installs it on the component.
func (h *Handler) installFile(ctx context.Context, component *model.Component, fw *model.Firmware) error {
	local, err := h.downloader.Fetch(ctx, fw)
	if err != nil {
		return err
	}

	defer os.Remove(local)

	f, err := os.Open(local)
	if err != nil {
		return errors.Wrap(download.ErrDownload, err.Error())
	}

	defer f.Close()

	remotePath := path.Join(remoteFirmwareDir, path.Base(fw.FileName))
	if err := h.exec.Upload(ctx, f, remotePath); err != nil {
		return errors.Wrap(err, "push firmware file")
	}

	if info, err := f.Stat(); err == nil {
		metrics.UploadBytes.With(prometheus.Labels{
			"component": component.Slug,
			"vendor":    fw.Vendor,
		}).Add(float64(info.Size()))
	}

	cmd := fmt.Sprintf(cmdInstall, shellQuote(remotePath), shellQuote(component.ID))
	if _, err := h.run(ctx, cmd); err != nil {
		return errors.Wrap(err, "install firmware file")
	}

	return nil
}

// rebootRequirement returns ActionAppliedRebootRequired when a device reports it needs a reboot.
func (h *Handler) rebootRequirement(ctx context.Context) (model.LifecycleResult, error) {
	devices, err := h.queryDevices(ctx)
	if err != nil {
		return model.NoActionNeeded, errors.Wrap(err, "query reboot requirement")
	}

	if pending := needsReboot(devices); len(pending) > 0 {
		h.logger.WithField("devices", strings.Join(pending, ", ")).Info("reboot required to apply firmware")
		return model.ActionAppliedRebootRequired, nil
	}

	return model.ActionAppliedNoReboot, nil
}

// Reboot requests the DUT restart, a session dropped by the restarting DUT counts as accepted.
func (h *Handler) Reboot(ctx context.Context) error {
	_, err := h.run(ctx, cmdReboot)

	switch {
	case err == nil, errors.Is(err, model.ErrRemoteSessionLost):
	default:
		return errors.Wrap(ErrRebootRequest, err.Error())
	}

	h.logger.Info("reboot requested")

	// drop the connection to the restarting DUT
	_ = h.exec.Close()

	return nil
}

// CheckResults waits for the DUT to come back and verifies the firmware inventory changed.
func (h *Handler) CheckResults(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.params.RebootTimeout)
	defer cancel()

	if err := sleepWithContext(ctx, h.params.RebootInitialDelay); err != nil {
		return errors.Wrap(ErrDeviceUnreachable, err.Error())
	}

	// nolint:gomnd // time duration definitions are clear as is.
	delay := &backoff.Backoff{
		Min:    5 * time.Second,
		Max:    60 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var devices []*fwupdDevice

	for attempt := 1; ; attempt++ {
		var err error

		devices, err = h.queryDevices(ctx)
		if err == nil {
			break
		}

		h.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"err":     err,
		}).Debug("device not reachable")

		if errSleep := sleepWithContext(ctx, delay.Duration()); errSleep != nil {
			return errors.Wrapf(ErrDeviceUnreachable, "attempts: %d, last error: %s", attempt, err.Error())
		}
	}

	current := toComponents(devices)
	h.device.RecordInventory(current)

	changed := h.device.Snapshot.Diff(current)
	if len(changed) == 0 {
		return model.ErrVerificationFailed
	}

	for _, c := range changed {
		previous := ""
		if p := h.device.Snapshot.ByID(c.Key()); p != nil {
			previous = p.FirmwareInstalled
		}

		h.logger.WithFields(logrus.Fields{
			"device":   c.Name,
			"deviceID": c.ID,
			"previous": previous,
			"current":  c.FirmwareInstalled,
		}).Info("firmware changed")
	}

	return nil
}
