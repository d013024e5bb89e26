package outofband

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	bconsts "github.com/bmc-toolbox/bmclib/v2/constants"
	"github.com/bmc-toolbox/common"
	"github.com/hashicorp/go-multierror"
	"github.com/metal-toolbox/dutfw/internal/metrics"
	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	// delay after when the BMC was reset
	delayBMCReset = 5 * time.Minute

	// delay between polling the firmware install status
	delayPollStatus = 10 * time.Second

	// maxPollStatusAttempts is set based on how long the loop below should keep polling
	// for a finalized state before giving up
	//
	// 600 (maxAttempts) * 10s (delayPollInstallStatus) = 100 minutes (1.6hours)
	maxPollStatusAttempts = 600
)

var (
	ErrFirmwareInstallFailed       = errors.New("error firmware install failed")
	ErrFirmwareTaskStateUnexpected = errors.New("BMC returned unexpected firmware task state")
	ErrMaxBMCQueryAttempts         = errors.New("reached maximum BMC query attempts")
	ErrInstalledFirmwareNotEqual   = errors.New("installed and expected firmware not equal")
	ErrInstalledVersionUnknown     = errors.New("installed version unknown")
	ErrComponentNotFound           = errors.New("component not found for firmware install")
)

func componentIsBMC(c string) bool {
	return strings.EqualFold(c, common.SlugBMC)
}

// install downloads the firmware, uploads it to the BMC and waits for the install to complete.
func (h *Handler) install(ctx context.Context, action *model.InstallAction) (err error) {
	startTS := time.Now()

	le := h.logger.WithFields(logrus.Fields{
		"actionID":  action.ID,
		"component": action.Firmware.Component,
		"version":   action.Firmware.Version,
	})

	defer func() {
		state := "succeeded"
		if err != nil {
			state = "failed"
		}

		labels := prometheus.Labels{
			"vendor":    action.Firmware.Vendor,
			"component": action.Firmware.Component,
			"state":     state,
		}

		metrics.InstallActionCounter.With(labels).Inc()
		metrics.InstallActionRuntimeSummary.With(labels).Observe(time.Since(startTS).Seconds())
	}()

	action.FirmwareTempFile, err = h.downloader.Fetch(ctx, &action.Firmware)
	if err != nil {
		return err
	}

	defer os.Remove(action.FirmwareTempFile)

	if err := h.uploadInitiateInstall(ctx, action); err != nil {
		return err
	}

	le.WithField("bmcTaskID", action.BMCTaskID).Info("uploaded firmware and initiated install")

	if err := h.pollFirmwareTaskStatus(ctx, action); err != nil {
		return err
	}

	le.WithFields(logrus.Fields{
		"elapsed":                time.Since(startTS).String(),
		"hostPowerCycleRequired": action.HostPowerCycleRequired,
	}).Info("firmware install complete")

	return nil
}

func (h *Handler) uploadInitiateInstall(ctx context.Context, action *model.InstallAction) error {
	fileHandle, err := os.Open(action.FirmwareTempFile)
	if err != nil {
		return errors.Wrap(err, action.FirmwareTempFile)
	}

	defer fileHandle.Close()

	if err := h.queryor.Open(ctx); err != nil {
		return err
	}

	taskID, err := h.queryor.FirmwareInstallUploadAndInitiate(ctx, action.Firmware.Component, fileHandle)
	if err != nil {
		return errors.Wrap(ErrFirmwareInstallFailed, err.Error())
	}

	// returned taskID corresponds to a redfish task ID on BMCs that support redfish
	// for the rest we track the taskID as the action.ID
	if taskID == "" {
		taskID = action.ID
	}

	action.FirmwareInstallStep = bconsts.FirmwareInstallStepUploadInitiateInstall
	action.BMCTaskID = taskID

	if info, err := fileHandle.Stat(); err == nil {
		metrics.UploadBytes.With(
			prometheus.Labels{
				"component": action.Firmware.Component,
				"vendor":    action.Firmware.Vendor,
			},
		).Add(float64(info.Size()))
	}

	return nil
}

func (h *Handler) installedEqualsExpected(ctx context.Context, action *model.InstallAction) error {
	components, err := h.queryInventory(ctx)
	if err != nil {
		return err
	}

	found := components.BySlugModel(action.Firmware.Component, action.Firmware.Models)
	if found == nil {
		return errors.Wrap(ErrComponentNotFound,
			fmt.Sprintf("component: %s, vendor: %s, models: %s",
				action.Firmware.Component,
				action.Firmware.Vendor,
				action.Firmware.Models,
			),
		)
	}

	if strings.TrimSpace(found.FirmwareInstalled) == "" {
		return ErrInstalledVersionUnknown
	}

	if !strings.EqualFold(action.Firmware.Version, found.FirmwareInstalled) {
		return ErrInstalledFirmwareNotEqual
	}

	return nil
}

func (h *Handler) resetBMC(ctx context.Context, action *model.InstallAction) error {
	h.logger.WithFields(logrus.Fields{
		"component": action.Firmware.Component,
		"bmcTaskID": action.BMCTaskID,
	}).Info("resetting BMC")

	if err := h.queryor.ResetBMC(ctx); err != nil {
		return err
	}

	action.BMCResetDone = true

	return sleepWithContext(ctx, delayBMCReset)
}

// polls firmware install status from the BMC
//
// nolint:gocyclo // for now this is best kept in the same method
func (h *Handler) pollFirmwareTaskStatus(ctx context.Context, action *model.InstallAction) error {
	startTS := time.Now()

	// number of status queries attempted
	var attempts int

	var attemptErrors *multierror.Error

	// inventory is set when the loop below determines that
	// a new collection should be attempted.
	var inventory bool

	for {
		attempts++

		// delay if we're in the second or subsequent attempts
		if attempts > 1 {
			if err := sleepWithContext(ctx, delayPollStatus); err != nil {
				attemptErrors = multierror.Append(attemptErrors, err)
				return attemptErrors
			}
		}

		// return when attempts exceed maxPollStatusAttempts
		if attempts >= maxPollStatusAttempts {
			attemptErrors = multierror.Append(attemptErrors, errors.Wrapf(
				ErrMaxBMCQueryAttempts,
				"%d attempts querying FirmwareTaskStatus(), elapsed: %s",
				attempts,
				time.Since(startTS).String(),
			))

			return attemptErrors
		}

		if inventory {
			err := h.installedEqualsExpected(ctx, action)
			switch {
			case err == nil:
				h.logger.WithField("component", action.Firmware.Component).Debug("installed firmware matches expected")

				return nil

			case errors.Is(err, ErrInstalledFirmwareNotEqual):
				// if the BMC came online and is still running the previous version
				// the install failed
				if componentIsBMC(action.Firmware.Component) {
					return errors.Wrap(ErrFirmwareInstallFailed, "BMC failed to install expected firmware")
				}

			default:
				// includes errors - ErrInstalledVersionUnknown, ErrComponentNotFound
				attemptErrors = multierror.Append(attemptErrors, err)
				h.logger.WithFields(logrus.Fields{
					"component": action.Firmware.Component,
					"err":       err.Error(),
				}).Debug("inventory collection for component returned error")
			}

			continue
		}

		state, status, err := h.queryor.FirmwareTaskStatus(
			ctx,
			action.FirmwareInstallStep,
			action.Firmware.Component,
			action.BMCTaskID,
			action.Firmware.Version,
		)

		h.logger.WithFields(logrus.Fields{
			"component": action.Firmware.Component,
			"version":   action.Firmware.Version,
			"elapsed":   time.Since(startTS).String(),
			"attempts":  fmt.Sprintf("attempt %d/%d", attempts, maxPollStatusAttempts),
			"taskState": state,
			"bmcTaskID": action.BMCTaskID,
			"status":    status,
		}).Debug("firmware task status query attempt")

		if err != nil {
			attemptErrors = multierror.Append(attemptErrors, err)

			// no implementations available.
			if strings.Contains(err.Error(), "no FirmwareTaskVerifier implementations found") {
				return errors.Wrap(
					ErrFirmwareInstallFailed,
					"firmware install support for component not available: "+err.Error(),
				)
			}

			// When BMCs are updating its own firmware, they can go unreachable
			// they apply the new firmware and in most cases the BMC task information is lost.
			//
			// And so if we get an error and its a BMC component that was being updated, we wait for
			// the BMC to be available again and validate its firmware matches the one expected.
			if componentIsBMC(action.Firmware.Component) {
				inventory = true
			}

			continue
		}

		switch state {
		// continue polling when install is running
		case bconsts.FirmwareInstallInitializing, bconsts.FirmwareInstallQueued, bconsts.FirmwareInstallRunning:
			continue

		// record the unknown status as an error
		case bconsts.FirmwareInstallUnknown:
			attemptErrors = multierror.Append(attemptErrors, errors.New("BMC firmware task status unknown"))

			continue

		// reset the BMC inline and continue polling
		case bconsts.FirmwareInstallPowerCycleBMC:
			if action.BMCResetDone {
				return errors.Wrap(ErrFirmwareInstallFailed, "BMC requested a second reset, bmc task ID: "+action.BMCTaskID)
			}

			if err := h.resetBMC(ctx, action); err != nil {
				return err
			}

			if componentIsBMC(action.Firmware.Component) {
				inventory = true
			}

			continue

		// return when host power cycle is required
		case bconsts.FirmwareInstallPowerCycleHost:
			action.HostPowerCycleRequired = true
			return nil

		// return error when install fails
		case bconsts.FirmwareInstallFailed:
			return errors.Wrap(
				ErrFirmwareInstallFailed,
				"check logs on the BMC for information, bmc task ID: "+action.BMCTaskID,
			)

		// return nil when install is complete
		case bconsts.FirmwareInstallComplete:
			// The BMC would reset itself and returning now would mean the next install fails,
			// wait until the BMC is available again and verify its on the expected version.
			if componentIsBMC(action.Firmware.Component) {
				inventory = true

				continue
			}

			return nil

		default:
			return errors.Wrap(ErrFirmwareTaskStateUnexpected, "state: "+string(state))
		}
	}
}
