package model

import (
	"context"
	"io"
	"os"

	bconsts "github.com/bmc-toolbox/bmclib/v2/constants"
	"github.com/bmc-toolbox/common"
)

//go:generate mockgen -source interface.go -destination=../fixtures/mock.go -package=fixtures

// CommandResult is the outcome of a command executed on a remote host.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true when the command exited zero.
func (r *CommandResult) Success() bool {
	return r != nil && r.ExitCode == 0
}

// RemoteExecutor runs commands on a remote host.
//
// Run returns an error only when the command could not be executed or its exit
// status was not received, a non-zero exit is reported in the CommandResult.
type RemoteExecutor interface {
	// Host returns the remote host address.
	Host() string

	Run(ctx context.Context, cmd string) (*CommandResult, error)

	// Upload writes the contents of src to the remote path.
	Upload(ctx context.Context, src io.Reader, remotePath string) error

	// Close closes the connection, a subsequent Run reconnects.
	Close() error
}

// BMCQueryor defines the out-of-band methods to query and update a device through its BMC.
type BMCQueryor interface {
	// Open logs into the BMC.
	Open(ctx context.Context) error

	// Close logs out of the BMC.
	Close(ctx context.Context) error

	PowerStatus(ctx context.Context) (status string, err error)

	SetPowerState(ctx context.Context, state string) error

	ResetBMC(ctx context.Context) error

	// Inventory returns the device inventory
	Inventory(ctx context.Context) (*common.Device, error)

	// FirmwareInstallUploadAndInitiate uploads the firmware file and initiates the install, returning the BMC task identifier.
	FirmwareInstallUploadAndInitiate(ctx context.Context, component string, file *os.File) (taskID string, err error)

	FirmwareTaskStatus(ctx context.Context, kind bconsts.FirmwareInstallStep, component, taskID, installVersion string) (state bconsts.TaskState, status string, err error)
}

// Handler is the capability set of a device handler.
type Handler interface {
	// FirmwareInfo queries and records the current firmware inventory of the device.
	FirmwareInfo(ctx context.Context) (Components, error)

	// Upgrade installs the newest available firmware.
	Upgrade(ctx context.Context) (LifecycleResult, error)

	// Downgrade installs the previous firmware version.
	Downgrade(ctx context.Context) (LifecycleResult, error)

	// Reboot requests a device restart and returns once the request was accepted.
	Reboot(ctx context.Context) error

	// CheckResults waits for the device to be reachable and verifies the firmware changed.
	CheckResults(ctx context.Context) error
}
