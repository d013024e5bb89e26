package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/metal-toolbox/dutfw/internal/dmi"
	"github.com/metal-toolbox/dutfw/internal/metrics"
	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	cmdChassisVendor = "sudo cat " + dmi.ChassisVendorPath
	cmdChassisType   = "sudo cat " + dmi.ChassisTypePath

	ErrMissingDUTCredentials = errors.New("DUT address and username are required")
)

// Defaults are the DUT access values used when the operator supplies none.
type Defaults struct {
	// Username is the DUT user name.
	Username string

	// Password is the placeholder DUT password used on the in-band path.
	Password string
}

// Identity is the DUT platform identification data.
type Identity struct {
	// Vendor is the chassis vendor string without its line terminator.
	Vendor      string
	ChassisType dmi.ChassisType
}

// Target is the DUT and BMC access supplied by the operator.
type Target struct {
	DUT model.Credentials
	BMC model.Credentials
}

// Classifier selects the device handler for a DUT.
type Classifier struct {
	registry *Registry
	defaults Defaults
	logger   *logrus.Entry
}

// NewClassifier returns a Classifier over the registry.
func NewClassifier(registry *Registry, defaults Defaults, logger *logrus.Entry) *Classifier {
	return &Classifier{
		registry: registry,
		defaults: defaults,
		logger:   logger,
	}
}

// Target returns the DUT access for the address, complete BMC credentials select the out-of-band
// path with the DUT password as given, otherwise the placeholder password is used when none is given.
func (c *Classifier) Target(address, password string, bmc model.Credentials) Target {
	t := Target{
		DUT: model.Credentials{
			Address:  address,
			Username: c.defaults.Username,
			Password: password,
		},
	}

	if bmc.Complete() {
		t.BMC = bmc
		return t
	}

	if t.DUT.Password == "" {
		t.DUT.Password = c.defaults.Password

		c.logger.WithFields(logrus.Fields{
			"dut":  address,
			"user": t.DUT.Username,
		}).Warn("using the placeholder DUT password, set dut.password or dut.ssh_key_file to override")
	}

	return t
}

// Detect reads the chassis vendor and type from the DUT.
//
// A failed query returns ErrDetectionFailed with the output of every failed query.
func (c *Classifier) Detect(ctx context.Context, exec model.RemoteExecutor) (*Identity, error) {
	var merr *multierror.Error

	query := func(cmd string) string {
		result, err := exec.Run(ctx, cmd)
		if err != nil {
			merr = multierror.Append(merr, errors.Wrap(err, cmd))
			return ""
		}

		if !result.Success() {
			merr = multierror.Append(merr, model.NewRemoteCommandError(exec.Host(), cmd, result))

			// stdout is kept for the diagnostic, the exit code error only carries stderr
			if s := strings.TrimSpace(result.Stdout); s != "" {
				merr = multierror.Append(merr, errors.New("stdout: "+s))
			}

			return ""
		}

		return result.Stdout
	}

	vendor := query(cmdChassisVendor)
	chassisType := query(cmdChassisType)

	if err := merr.ErrorOrNil(); err != nil {
		c.logger.WithFields(logrus.Fields{
			"dut": exec.Host(),
			"err": err,
		}).Error(model.ErrDetectionFailed.Error())

		return nil, errors.Wrap(model.ErrDetectionFailed, err.Error())
	}

	code, err := dmi.ParseChassisType(chassisType)
	if err != nil {
		return nil, err
	}

	identity := &Identity{
		Vendor:      dmi.NormalizeVendor(vendor),
		ChassisType: code,
	}

	c.logger.WithFields(logrus.Fields{
		"dut":         exec.Host(),
		"vendor":      identity.Vendor,
		"chassisType": int(identity.ChassisType),
	}).Debug("DUT identification data")

	return identity, nil
}

// Classify returns the descriptor of the first registered handler claiming the vendor and
// the category of the chassis type.
func (c *Classifier) Classify(vendor string, code dmi.ChassisType) (*Descriptor, error) {
	chassis, err := dmi.Lookup(code)
	if err != nil {
		return nil, err
	}

	le := c.logger.WithFields(logrus.Fields{
		"vendor":   vendor,
		"chassis":  chassis.Name,
		"category": chassis.Category,
	})

	candidates := []*Descriptor{}
	if chassis.Supported() {
		candidates = c.registry.Candidates(vendor, chassis.Category)
	}

	if len(candidates) == 0 {
		metrics.ClassificationCounter.With(prometheus.Labels{
			"category": string(chassis.Category),
			"handler":  "none",
		}).Inc()

		category := string(chassis.Category)
		if category == "" {
			category = "no update category"
		}

		err := errors.Wrap(
			model.ErrUnsupportedDevice,
			fmt.Sprintf("%s %s (%s)", vendor, chassis.Name, category),
		)

		le.Error(err.Error())

		return nil, err
	}

	selected := candidates[0]

	if len(candidates) > 1 {
		names := make([]string, 0, len(candidates))
		for _, d := range candidates {
			names = append(names, d.Name)
		}

		le.WithFields(logrus.Fields{
			"candidates": strings.Join(names, ", "),
			"selected":   selected.Name,
		}).Warn("multiple device handlers claim the vendor and category, the first registered is used")
	}

	metrics.ClassificationCounter.With(prometheus.Labels{
		"category": string(chassis.Category),
		"handler":  selected.Name,
	}).Inc()

	le.WithFields(logrus.Fields{
		"handler": selected.Name,
		"family":  selected.Family,
	}).Info("device classified")

	return selected, nil
}

// NewDevice returns the Device bound to the descriptor and its handler.
func (c *Classifier) NewDevice(desc *Descriptor, identity *Identity, target Target, env *Env) (*model.Device, model.Handler, error) {
	if strings.TrimSpace(target.DUT.Address) == "" || strings.TrimSpace(target.DUT.Username) == "" {
		return nil, nil, errors.Wrapf(ErrMissingDUTCredentials, "missing dut %v", target.DUT.Missing())
	}

	if desc.Family == model.FamilyOutofband && !target.BMC.Complete() {
		return nil, nil, errors.Wrapf(model.ErrMissingBmcCredentials, "missing bmc %v", target.BMC.Missing())
	}

	device := &model.Device{
		DUT:      target.DUT,
		BMC:      target.BMC,
		Handler:  desc.Name,
		Family:   desc.Family,
		Category: desc.Category,
	}

	if identity != nil {
		device.Vendor = identity.Vendor
		device.ChassisType = int(identity.ChassisType)

		if chassis, err := dmi.Lookup(identity.ChassisType); err == nil {
			device.ChassisName = chassis.Name
		}
	}

	if env == nil {
		env = &Env{}
	}

	if env.Logger == nil {
		env.Logger = c.logger
	}

	handler, err := desc.Constructor(device, desc, env)
	if err != nil {
		return nil, nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"dut":     device.DUT.Address,
		"bmc":     device.BMC.Address,
		"vendor":  device.Vendor,
		"handler": device.Handler,
	}).Info(fmt.Sprintf("%s is a %s %s", device.DUT.Address, device.Vendor, device.Handler))

	return device, handler, nil
}

// Binding classifies a single DUT reached through Exec.
type Binding struct {
	Classifier *Classifier
	Exec       model.RemoteExecutor
	Target     Target
	Env        *Env
}

// Bind detects and classifies the DUT and returns the device bound to its handler.
func (b *Binding) Bind(ctx context.Context) (*model.Device, model.Handler, error) {
	identity, err := b.Classifier.Detect(ctx, b.Exec)
	if err != nil {
		return nil, nil, err
	}

	desc, err := b.Classifier.Classify(identity.Vendor, identity.ChassisType)
	if err != nil {
		return nil, nil, err
	}

	env := b.Env
	if env == nil {
		env = &Env{}
	}

	if env.Exec == nil {
		env.Exec = b.Exec
	}

	return b.Classifier.NewDevice(desc, identity, b.Target, env)
}
