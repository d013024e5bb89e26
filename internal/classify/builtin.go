package classify

import (
	"github.com/metal-toolbox/dutfw/internal/inband"
	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/metal-toolbox/dutfw/internal/outofband"
	"github.com/pkg/errors"
)

var errNilExecutor = errors.New("in-band handler requires a remote executor")

// NewInbandHandler constructs an fwupd handler run over the DUT SSH session.
func NewInbandHandler(device *model.Device, _ *Descriptor, env *Env) (model.Handler, error) {
	if env.Exec == nil {
		return nil, errNilExecutor
	}

	return inband.New(device, env.Exec, env.Inband, env.Logger), nil
}

// NewOutofbandHandler constructs a bmclib handler for the DUT BMC.
func NewOutofbandHandler(device *model.Device, desc *Descriptor, env *Env) (model.Handler, error) {
	if !device.BMC.Complete() {
		return nil, errors.Wrapf(model.ErrMissingBmcCredentials, "missing bmc %v", device.BMC.Missing())
	}

	queryor := env.BMC
	if queryor == nil {
		queryor = outofband.NewBMCQueryor(device, desc.Drivers, env.Logger)
	}

	params := env.Outofband
	if len(desc.Drivers) > 0 {
		params.Drivers = desc.Drivers
	}

	return outofband.New(device, queryor, params, env.Logger), nil
}

// DefaultRegistry returns a registry with the built-in device handlers registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	for _, desc := range []*Descriptor{
		{
			Name:        "lenovo-client",
			Vendors:     []string{"LENOVO"},
			Category:    model.CategoryClient,
			Family:      model.FamilyInband,
			Constructor: NewInbandHandler,
		},
		{
			Name:        "hp-client",
			Vendors:     []string{"HP"},
			Category:    model.CategoryClient,
			Family:      model.FamilyInband,
			Constructor: NewInbandHandler,
		},
		{
			Name:        "generic-iot",
			Vendors:     []string{"Advantech", "OnLogic"},
			Category:    model.CategoryIoT,
			Family:      model.FamilyInband,
			Constructor: NewInbandHandler,
		},
		{
			Name:        "dell-server",
			Vendors:     []string{"Dell Inc."},
			Category:    model.CategoryServer,
			Family:      model.FamilyOutofband,
			Drivers:     []string{outofband.DriverRedfish},
			Constructor: NewOutofbandHandler,
		},
		{
			Name:        "hpe-server",
			Vendors:     []string{"HPE"},
			Category:    model.CategoryServer,
			Family:      model.FamilyOutofband,
			Drivers:     []string{outofband.DriverRedfish},
			Constructor: NewOutofbandHandler,
		},
		{
			Name:        "lenovo-server",
			Vendors:     []string{"Lenovo"},
			Category:    model.CategoryServer,
			Family:      model.FamilyOutofband,
			Drivers:     []string{outofband.DriverRedfish},
			Constructor: NewOutofbandHandler,
		},
		{
			Name:        "supermicro-server",
			Vendors:     []string{"Supermicro"},
			Category:    model.CategoryServer,
			Family:      model.FamilyOutofband,
			Drivers:     []string{outofband.DriverRedfish, outofband.DriverVendorAPI},
			Constructor: NewOutofbandHandler,
		},
		{
			Name:        "asrockrack-server",
			Vendors:     []string{"ASRockRack"},
			Category:    model.CategoryServer,
			Family:      model.FamilyOutofband,
			Drivers:     []string{outofband.DriverVendorAPI},
			Constructor: NewOutofbandHandler,
		},
	} {
		r.MustRegister(desc)
	}

	return r
}
