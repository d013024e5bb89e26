// Package classify resolves the device handler for a DUT from its platform identification data.
package classify

import (
	"strings"

	"github.com/metal-toolbox/dutfw/internal/inband"
	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/metal-toolbox/dutfw/internal/outofband"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

var ErrInvalidDescriptor = errors.New("invalid device handler descriptor")

// Env holds the collaborators handed to a handler constructor.
type Env struct {
	Logger *logrus.Entry

	// Exec runs commands on the DUT operating system.
	Exec model.RemoteExecutor

	// BMC overrides the BMC queryor built for out-of-band handlers.
	BMC model.BMCQueryor

	Inband    inband.Params
	Outofband outofband.Params
}

// Constructor returns the handler for the device.
type Constructor func(device *model.Device, desc *Descriptor, env *Env) (model.Handler, error)

// Descriptor describes a device handler variant and the DUTs it claims.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type Descriptor struct {
	Name string

	// Vendors are the chassis vendor strings claimed, matched exactly.
	Vendors []string

	Category model.Category
	Family   model.Family

	// Drivers limits the bmclib drivers of out-of-band handlers.
	Drivers []string

	Constructor Constructor
}

// Claims returns true when the descriptor serves the vendor and category.
func (d *Descriptor) Claims(vendor string, category model.Category) bool {
	return d.Category == category && slices.Contains(d.Vendors, vendor)
}

func (d *Descriptor) validate() error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return errors.Wrap(ErrInvalidDescriptor, "empty name")
	case len(d.Vendors) == 0:
		return errors.Wrap(ErrInvalidDescriptor, d.Name+": empty vendor set")
	case d.Category == model.CategoryNone:
		return errors.Wrap(ErrInvalidDescriptor, d.Name+": empty category")
	case d.Family != model.FamilyInband && d.Family != model.FamilyOutofband:
		return errors.Wrap(ErrInvalidDescriptor, d.Name+": unknown family: "+string(d.Family))
	case d.Constructor == nil:
		return errors.Wrap(ErrInvalidDescriptor, d.Name+": nil constructor")
	}

	return nil
}

// Registry holds the device handler descriptors in registration order,
// it is populated at process start and only read afterwards.
type Registry struct {
	descriptors []*Descriptor
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds the descriptor to the registry.
func (r *Registry) Register(desc *Descriptor) error {
	if desc == nil {
		return errors.Wrap(ErrInvalidDescriptor, "nil descriptor")
	}

	if err := desc.validate(); err != nil {
		return err
	}

	for _, existing := range r.descriptors {
		if existing.Name == desc.Name {
			return errors.Wrap(ErrInvalidDescriptor, "duplicate name: "+desc.Name)
		}
	}

	r.descriptors = append(r.descriptors, desc)

	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(desc *Descriptor) {
	if err := r.Register(desc); err != nil {
		panic(err)
	}
}

// Descriptors returns the registered descriptors in registration order.
func (r *Registry) Descriptors() []*Descriptor {
	return slices.Clone(r.descriptors)
}

// ByName returns the descriptor registered with the name.
func (r *Registry) ByName(name string) *Descriptor {
	for _, d := range r.descriptors {
		if d.Name == name {
			return d
		}
	}

	return nil
}

// Candidates returns the descriptors claiming the vendor and category in registration order.
func (r *Registry) Candidates(vendor string, category model.Category) []*Descriptor {
	found := []*Descriptor{}

	for _, d := range r.descriptors {
		if d.Claims(vendor, category) {
			found = append(found, d)
		}
	}

	return found
}
