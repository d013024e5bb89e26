package model

import (
	"fmt"
	"strconv"

	bconsts "github.com/bmc-toolbox/bmclib/v2/constants"
)

// InstallAction holds attributes for each firmware installed out-of-band
//
// nolint:govet // fieldalignment - struct is better readable in its current form.
type InstallAction struct {
	// ID is a unique identifier for this action
	ID string `json:"id"`

	// BMCTaskID is the task identifier to track a BMC job
	// these are returned when the firmware is uploaded and is being verified
	// or an install was initiated on the BMC .
	BMCTaskID string `json:"bmc_task_id,omitempty"`

	// Component is the target of the firmware install.
	Component *Component `json:"component"`

	// Firmware to be installed.
	Firmware Firmware `json:"firmware"`

	FirmwareInstallStep bconsts.FirmwareInstallStep `json:"firmware_install_step"`

	// FirmwareTempFile is the temporary file downloaded to be installed.
	//
	// This is declared once the firmware file has been downloaded for install.
	FirmwareTempFile string `json:"firmware_temp_file"`

	// HostPowerCycleRequired is set when the BMC indicates the install completes on a host power cycle.
	HostPowerCycleRequired bool `json:"host_power_cycle_required"`

	// BMCResetDone is set once the BMC was reset for the install.
	BMCResetDone bool `json:"bmc_reset_done"`
}

func (a *InstallAction) SetID(runID, componentSlug string, idx int) {
	a.ID = fmt.Sprintf("%s-%s-%s", runID, componentSlug, strconv.Itoa(idx))
}

// InstallActions is a list of install actions
type InstallActions []*InstallAction

// ByID returns the InstallAction matched by the identifier
func (a InstallActions) ByID(id string) *InstallAction {
	for _, action := range a {
		if action.ID == id {
			return action
		}
	}

	return nil
}

// Result returns the lifecycle result of the actions, nil or empty actions need no action.
func (a InstallActions) Result() LifecycleResult {
	result := NoActionNeeded

	for _, action := range a {
		if action.HostPowerCycleRequired || action.Firmware.RequiresReboot() {
			result = result.Merge(ActionAppliedRebootRequired)
			continue
		}

		result = result.Merge(ActionAppliedNoReboot)
	}

	return result
}
