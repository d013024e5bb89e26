// Package outofband implements the device handler for DUTs updated through their BMC.
package outofband

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/metal-toolbox/dutfw/internal/download"
	"github.com/metal-toolbox/dutfw/internal/firmware"
	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	defaultRebootTimeout      = 30 * time.Minute
	defaultRebootInitialDelay = 5 * time.Minute
)

var (
	// envTesting is set by tests to '1' to skip sleeps and backoffs in the handler.
	//
	// nolint:gosec // no gosec, this isn't a credential
	envTesting = "ENV_TESTING"

	ErrDeviceUnreachable = errors.New("device unreachable after reboot")
	ErrPowerCycle        = errors.New("device power cycle request failed")
)

// Params configures the out-of-band handler.
type Params struct {
	// Drivers limits the bmclib drivers used for the BMC.
	Drivers []string

	// RebootTimeout bounds the wait for the host and BMC to come back after a power cycle.
	RebootTimeout time.Duration

	// RebootInitialDelay is waited before the first inventory query after a power cycle.
	RebootInitialDelay time.Duration

	DryRun bool

	// Catalog lists the firmware available for install.
	Catalog *firmware.Catalog

	// DownloadDir is the local directory firmware files are downloaded into.
	DownloadDir string

	// RunID prefixes the install action identifiers.
	RunID string
}

// Handler implements the model.Handler interface with bmclib calls against the DUT BMC.
type Handler struct {
	device     *model.Device
	queryor    model.BMCQueryor
	params     Params
	downloader *download.Downloader
	logger     *logrus.Entry

	// actions are the firmware installs planned by the last Upgrade or Downgrade
	actions model.InstallActions
}

// New returns an out-of-band Handler for the device.
func New(device *model.Device, queryor model.BMCQueryor, params Params, logger *logrus.Entry) *Handler {
	if params.RebootTimeout == 0 {
		params.RebootTimeout = defaultRebootTimeout
	}

	if params.RebootInitialDelay == 0 {
		params.RebootInitialDelay = defaultRebootInitialDelay
	}

	return &Handler{
		device:     device,
		queryor:    queryor,
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

func (h *Handler) queryInventory(ctx context.Context) (model.Components, error) {
	if err := h.queryor.Open(ctx); err != nil {
		return nil, err
	}

	device, err := h.queryor.Inventory(ctx)
	if err != nil {
		return nil, err
	}

	return model.NewComponentConverter().CommonDeviceToComponents(device)
}

// FirmwareInfo records the BMC reported component inventory as the device inventory.
func (h *Handler) FirmwareInfo(ctx context.Context) (model.Components, error) {
	components, err := h.queryInventory(ctx)
	if err != nil {
		return nil, err
	}

	h.device.RecordInventory(components)

	for _, c := range components {
		h.logger.WithFields(logrus.Fields{
			"component": c.Slug,
			"vendor":    c.Vendor,
			"model":     c.Model,
			"serial":    c.Serial,
			"version":   c.FirmwareInstalled,
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

// Upgrade installs the newest catalog firmware on each component.
func (h *Handler) Upgrade(ctx context.Context) (model.LifecycleResult, error) {
	return h.apply(ctx, model.ActionUpgrade)
}

// Downgrade installs the catalog firmware listed before the installed version on each component.
func (h *Handler) Downgrade(ctx context.Context) (model.LifecycleResult, error) {
	return h.apply(ctx, model.ActionDowngrade)
}

func (h *Handler) apply(ctx context.Context, action model.Action) (model.LifecycleResult, error) {
	components, err := h.inventory(ctx)
	if err != nil {
		return model.NoActionNeeded, err
	}

	h.actions = h.params.Catalog.Plan(h.device.Vendor, components, action)
	if len(h.actions) == 0 {
		h.logger.WithField("action", action).Info("no firmware changes planned")
		return model.NoActionNeeded, nil
	}

	for idx, a := range h.actions {
		a.SetID(h.params.RunID, a.Component.Slug, idx)

		h.logger.WithFields(logrus.Fields{
			"component": a.Component.Slug,
			"installed": a.Component.FirmwareInstalled,
			"version":   a.Firmware.Version,
			"file":      a.Firmware.FileName,
			"dryrun":    h.params.DryRun,
		}).Info("firmware " + string(action) + " planned")
	}

	if h.params.DryRun {
		return model.NoActionNeeded, nil
	}

	for _, a := range h.actions {
		if err := h.install(ctx, a); err != nil {
			return model.NoActionNeeded, errors.Wrapf(err, "%s %s to %s", action, a.Component.Slug, a.Firmware.Version)
		}
	}

	return h.actions.Result(), nil
}

// Reboot power cycles the host, a powered off host is powered on.
func (h *Handler) Reboot(ctx context.Context) error {
	if err := h.queryor.Open(ctx); err != nil {
		return errors.Wrap(ErrPowerCycle, err.Error())
	}

	status, err := h.queryor.PowerStatus(ctx)
	if err != nil {
		return errors.Wrap(ErrPowerCycle, err.Error())
	}

	state := "cycle"
	// covers states - Off, PoweringOff
	if strings.Contains(strings.ToLower(status), "off") {
		state = "on"
	}

	if err := h.queryor.SetPowerState(ctx, state); err != nil {
		return errors.Wrap(ErrPowerCycle, err.Error())
	}

	h.logger.WithFields(logrus.Fields{
		"powerStatus": status,
		"state":       state,
	}).Info("host power state change requested")

	return nil
}

// CheckResults waits for the host to power on and the BMC to report inventory,
// then verifies the firmware inventory changed.
func (h *Handler) CheckResults(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.params.RebootTimeout)
	defer cancel()

	if err := sleepWithContext(ctx, h.params.RebootInitialDelay); err != nil {
		return errors.Wrap(ErrDeviceUnreachable, err.Error())
	}

	// nolint:gomnd // time duration definitions are clear as is.
	delay := &backoff.Backoff{
		Min:    10 * time.Second,
		Max:    2 * time.Minute,
		Factor: 2,
		Jitter: true,
	}

	var current model.Components

	for attempt := 1; ; attempt++ {
		var err error

		current, err = h.hostInventory(ctx)
		if err == nil {
			break
		}

		h.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"err":     err,
		}).Debug("device not ready")

		if errSleep := sleepWithContext(ctx, delay.Duration()); errSleep != nil {
			return errors.Wrapf(ErrDeviceUnreachable, "attempts: %d, last error: %s", attempt, err.Error())
		}
	}

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
			"component": c.Slug,
			"serial":    c.Serial,
			"previous":  previous,
			"current":   c.FirmwareInstalled,
		}).Info("firmware changed")
	}

	for _, a := range h.actions {
		found := current.ByID(a.Component.Key())
		if found != nil && !strings.EqualFold(found.FirmwareInstalled, a.Firmware.Version) {
			h.logger.WithFields(logrus.Fields{
				"component": a.Component.Slug,
				"expected":  a.Firmware.Version,
				"current":   found.FirmwareInstalled,
			}).Warn("installed firmware differs from planned version")
		}
	}

	return nil
}

// hostInventory returns the inventory once the host reports it is powered on.
func (h *Handler) hostInventory(ctx context.Context) (model.Components, error) {
	if err := h.queryor.Open(ctx); err != nil {
		return nil, err
	}

	status, err := h.queryor.PowerStatus(ctx)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(strings.TrimSpace(status), "on") {
		return nil, errors.New("host power status: " + status)
	}

	return h.queryInventory(ctx)
}

// Close logs out of the BMC.
func (h *Handler) Close(ctx context.Context) error {
	return h.queryor.Close(ctx)
}
