package model

import (
	"strconv"
	"strings"

	"github.com/bmc-toolbox/common"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
)

// Component is a device component with firmware
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type Component struct {
	// Slug is the lower case component kind, bios, bmc, nic...
	Slug string `json:"slug"`

	// ID identifies the component on the device, for in-band devices this is the fwupd device ID.
	ID string `json:"id,omitempty"`

	Name              string `json:"name,omitempty"`
	Vendor            string `json:"vendor"`
	Model             string `json:"model"`
	Serial            string `json:"serial"`
	FirmwareInstalled string `json:"firmware_installed"`

	// Updatable is set when the firmware of the component can be changed by the handler.
	Updatable bool `json:"updatable"`
}

// Key returns the value identifying the component across inventory queries.
func (c *Component) Key() string {
	if c.ID != "" {
		return c.ID
	}

	return c.Slug + "/" + c.Serial
}

// Components is a slice of Component on which one or more methods may be available.
type Components []*Component

// ByID returns the component with the given key.
func (c Components) ByID(key string) *Component {
	for idx, component := range c {
		if component.Key() == key {
			return c[idx]
		}
	}

	return nil
}

// BySlugModel returns the first component that matches the slug and contains one of the models.
//
// An empty models list matches on the slug alone.
func (c Components) BySlugModel(cSlug string, cModels []string) *Component {
	for idx, component := range c {
		if !strings.EqualFold(cSlug, component.Slug) {
			continue
		}

		if len(cModels) == 0 {
			return c[idx]
		}

		for _, findModel := range cModels {
			if strings.Contains(strings.ToLower(component.Model), strings.ToLower(strings.TrimSpace(findModel))) {
				return c[idx]
			}
		}
	}

	return nil
}

// Updatable returns the components the handler can install firmware on.
func (c Components) Updatable() Components {
	found := Components{}

	for _, component := range c {
		if component.Updatable {
			found = append(found, component)
		}
	}

	return found
}

// Diff returns the components in current whose installed firmware differs from the
// component with the same key in c, components not present in c are included.
func (c Components) Diff(current Components) Components {
	changed := Components{}

	for _, cur := range current {
		prev := c.ByID(cur.Key())
		if prev == nil || prev.FirmwareInstalled != cur.FirmwareInstalled {
			changed = append(changed, cur)
		}
	}

	return changed
}

// DeepCopy returns a copy of the components that shares no pointers with c.
func (c Components) DeepCopy() Components {
	if c == nil {
		return nil
	}

	dst := make(Components, 0, len(c))
	if err := copier.CopyWithOption(&dst, &c, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched kinds, fall back to copying values
		dst = dst[:0]
		for _, component := range c {
			cp := *component
			dst = append(dst, &cp)
		}
	}

	return dst
}

// ComponentConverter converts a bmc-toolbox/common Device to its Component equivalents.
type ComponentConverter struct {
	deviceVendor string
	deviceModel  string
}

var (
	// ErrComponentConverter is returned when an error occurs in the component data conversion.
	ErrComponentConverter = errors.New("error in component converter")
)

// NewComponentConverter returns a new ComponentConverter
func NewComponentConverter() *ComponentConverter { return &ComponentConverter{} }

// CommonDeviceToComponents converts a bmc-toolbox/common Device object to Components,
// components of a kind listed in FirmwareInstallOrder are marked updatable.
func (cc *ComponentConverter) CommonDeviceToComponents(device *common.Device) (Components, error) {
	if device == nil {
		return nil, errors.Wrap(ErrComponentConverter, "device object is nil")
	}

	cc.deviceModel = common.FormatProductName(device.Model)
	cc.deviceVendor = device.Vendor

	components := Components{}
	add := func(slug string, idx int, c *common.Common) {
		if c == nil {
			return
		}

		components = append(components, cc.newComponent(slug, idx, c))
	}

	if device.BIOS != nil {
		add(common.SlugBIOS, 0, &device.BIOS.Common)
	}

	if device.BMC != nil {
		add(common.SlugBMC, 0, &device.BMC.Common)
	}

	if device.Mainboard != nil {
		add(common.SlugMainboard, 0, &device.Mainboard.Common)
	}

	for idx, c := range device.CPLDs {
		add(common.SlugCPLD, idx, &c.Common)
	}

	for idx, c := range device.Memory {
		// skip empty dimm slots
		if c.Vendor == "" && c.ProductName == "" && c.SizeBytes == 0 && c.ClockSpeedHz == 0 {
			continue
		}

		add(common.SlugPhysicalMem, idx, &c.Common)
	}

	for idx, c := range device.NICs {
		add(common.SlugNIC, idx, &c.Common)
	}

	for idx, c := range device.Drives {
		add(common.SlugDrive, idx, &c.Common)
	}

	for idx, c := range device.PSUs {
		add(common.SlugPSU, idx, &c.Common)
	}

	for idx, c := range device.CPUs {
		add(common.SlugCPU, idx, &c.Common)
	}

	for idx, c := range device.TPMs {
		add(common.SlugTPM, idx, &c.Common)
	}

	for idx, c := range device.GPUs {
		add(common.SlugGPU, idx, &c.Common)
	}

	for idx, c := range device.StorageControllers {
		add(common.SlugStorageController, idx, &c.Common)
	}

	for idx, c := range device.Enclosures {
		add(common.SlugEnclosure, idx, &c.Common)
	}

	return components, nil
}

func (cc *ComponentConverter) newComponent(slug string, idx int, c *common.Common) *Component {
	slug = strings.ToLower(slug)

	vendor := c.Vendor
	if vendor == "" {
		vendor = cc.deviceVendor
	}

	model := c.Model
	if model == "" {
		model = cc.deviceModel
	}

	// set incrementing serial when one isn't found
	serial := strings.TrimSpace(c.Serial)
	if serial == "" {
		serial = strconv.Itoa(idx)
	}

	var installed string
	if c.Firmware != nil {
		installed = strings.TrimSpace(c.Firmware.Installed)
	}

	_, updatable := FirmwareInstallOrder[slug]

	return &Component{
		Slug:              slug,
		Name:              c.ProductName,
		Vendor:            common.FormatVendorName(vendor),
		Model:             common.FormatProductName(model),
		Serial:            serial,
		FirmwareInstalled: installed,
		Updatable:         updatable,
	}
}
