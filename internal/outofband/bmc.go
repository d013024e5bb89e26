package outofband

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	bmclibv2 "github.com/bmc-toolbox/bmclib/v2"
	bconsts "github.com/bmc-toolbox/bmclib/v2/constants"
	"github.com/bmc-toolbox/common"
	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/sirupsen/logrus"
)

var (
	// logoutTimeout is the timeout value when logging out of a bmc
	logoutTimeout = 5 * time.Minute
	loginTimeout  = 5 * time.Second
	loginAttempts = 3

	// login errors
	errBMCLogin             = errors.New("bmc login error")
	errBMCLoginTimeout      = errors.New("bmc login timeout")
	errBMCLoginUnAuthorized = errors.New("bmc login unauthorized")

	errBMCSession   = errors.New("bmc session error")
	errBMCInventory = errors.New("bmc inventory error")
	errBMCLogout    = errors.New("bmc logout error")
	errBMCPower     = errors.New("bmc power state error")
	errBMCReset     = errors.New("bmc reset error")
)

// bmc wraps the bmclib client and implements the model.BMCQueryor interface
type bmc struct {
	address string
	client  *bmclibv2.Client
	logger  *logrus.Entry
}

// NewBMCQueryor returns a bmc queryor for the device BMC limited to the given bmclib drivers,
// no drivers selects both the redfish and vendorapi drivers.
func NewBMCQueryor(device *model.Device, drivers []string, logger *logrus.Entry) model.BMCQueryor {
	return &bmc{
		address: device.BMC.Address,
		client:  newBmclibv2Client(device.BMC, drivers, logger),
		logger:  logger.WithField("bmc", device.BMC.Address),
	}
}

// Open creates a BMC session
func (b *bmc) Open(ctx context.Context) error {
	if b.client == nil {
		return errors.Wrap(errBMCLogin, "bmclibv2 client not initialized")
	}

	// return if a session is active
	if err := b.sessionActive(ctx); err == nil {
		b.logger.Trace("bmc session active, skipped login attempt")

		return nil
	}

	return b.loginWithRetries(ctx, loginAttempts)
}

// Close logs out of the BMC
func (b *bmc) Close(ctx context.Context) error {
	if b.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, logoutTimeout)
	defer cancel()

	if err := b.client.Close(ctx); err != nil {
		return errors.Wrap(errBMCLogout, err.Error())
	}

	return nil
}

// PowerStatus returns the device power status
func (b *bmc) PowerStatus(ctx context.Context) (string, error) {
	status, err := b.client.GetPowerState(ctx)
	if err != nil {
		return "", errors.Wrap(errBMCPower, err.Error())
	}

	return status, nil
}

// SetPowerState sets the device power state, on, off, cycle...
func (b *bmc) SetPowerState(ctx context.Context, state string) error {
	ok, err := b.client.SetPowerState(ctx, state)
	if err != nil {
		return errors.Wrap(errBMCPower, err.Error())
	}

	if !ok {
		return errors.Wrap(errBMCPower, "power state not set: "+state)
	}

	return nil
}

// ResetBMC gracefully restarts the BMC.
func (b *bmc) ResetBMC(ctx context.Context) error {
	ok, err := b.client.ResetBMC(ctx, "GracefulRestart")
	if err != nil {
		return errors.Wrap(errBMCReset, err.Error())
	}

	if !ok {
		return errors.Wrap(errBMCReset, "reset not accepted")
	}

	return nil
}

// Inventory queries the BMC for the device inventory and returns an object with the device inventory.
func (b *bmc) Inventory(ctx context.Context) (*common.Device, error) {
	inventory, err := b.client.Inventory(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "no compatible System Odata IDs identified") {
			return nil, errors.Wrap(errBMCInventory, "redfish_incompatible: no compatible System Odata IDs identified")
		}

		return nil, errors.Wrap(errBMCInventory, err.Error())
	}

	// format the device inventory vendor attribute so its consistent
	inventory.Vendor = common.FormatVendorName(inventory.Vendor)

	return inventory, nil
}

// FirmwareInstallUploadAndInitiate uploads the firmware file to the BMC and initiates the install.
func (b *bmc) FirmwareInstallUploadAndInitiate(ctx context.Context, component string, file *os.File) (string, error) {
	return b.client.FirmwareInstallUploadAndInitiate(ctx, component, file)
}

// FirmwareTaskStatus returns the state of the BMC firmware task.
func (b *bmc) FirmwareTaskStatus(ctx context.Context, kind bconsts.FirmwareInstallStep, component, taskID, installVersion string) (bconsts.TaskState, string, error) {
	return b.client.FirmwareTaskStatus(ctx, kind, component, taskID, installVersion)
}
