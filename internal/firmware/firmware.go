// Package firmware loads the firmware catalog and plans the firmware to install for a device.
package firmware

import (
	"os"
	"sort"
	"strings"

	"github.com/bmc-toolbox/common"
	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	ErrCatalogLoad = errors.New("error loading firmware catalog")
)

// Planner plans the firmware to install on the components of a device.
type Planner interface {
	Plan(vendor string, components model.Components, action model.Action) model.InstallActions
}

// Catalog is the list of firmware available per vendor and component,
// entries for the same component are listed oldest first.
type Catalog struct {
	Firmware []*model.Firmware `yaml:"firmware"`
}

// Load reads the catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(ErrCatalogLoad, err.Error())
	}

	return Parse(b)
}

// Parse decodes and validates the catalog.
func Parse(b []byte) (*Catalog, error) {
	catalog := &Catalog{}
	if err := yaml.Unmarshal(b, catalog); err != nil {
		return nil, errors.Wrap(ErrCatalogLoad, err.Error())
	}

	for idx, fw := range catalog.Firmware {
		if err := fw.Validate(); err != nil {
			return nil, errors.Wrapf(ErrCatalogLoad, "entry %d: %s", idx, err.Error())
		}
	}

	return catalog, nil
}

func vendorMatch(a, b string) bool {
	return strings.EqualFold(common.FormatVendorName(a), common.FormatVendorName(b))
}

func componentMatch(fw *model.Firmware, component *model.Component) bool {
	if !strings.EqualFold(fw.Component, component.Slug) &&
		fw.Component != component.ID &&
		!strings.EqualFold(fw.Component, component.Name) {
		return false
	}

	if len(fw.Models) == 0 {
		return true
	}

	for _, m := range fw.Models {
		if strings.Contains(strings.ToLower(component.Model), strings.ToLower(strings.TrimSpace(m))) {
			return true
		}
	}

	return false
}

// Candidates returns the catalog entries for the component in catalog order.
func (c *Catalog) Candidates(vendor string, component *model.Component) []*model.Firmware {
	if c == nil || component == nil {
		return nil
	}

	found := []*model.Firmware{}

	for _, fw := range c.Firmware {
		if vendorMatch(fw.Vendor, vendor) && componentMatch(fw, component) {
			found = append(found, fw)
		}
	}

	return found
}

// Newest returns the last catalog entry for the component.
func (c *Catalog) Newest(vendor string, component *model.Component) *model.Firmware {
	candidates := c.Candidates(vendor, component)
	if len(candidates) == 0 {
		return nil
	}

	return candidates[len(candidates)-1]
}

// Previous returns the entry listed before the installed version,
// nil is returned when the installed version is not in the catalog or is the oldest entry.
func (c *Catalog) Previous(vendor string, component *model.Component) *model.Firmware {
	candidates := c.Candidates(vendor, component)

	for idx, fw := range candidates {
		if fw.Version != component.FirmwareInstalled {
			continue
		}

		if idx == 0 {
			return nil
		}

		return candidates[idx-1]
	}

	return nil
}

// Plan returns the install actions for the updatable components, ordered by model.FirmwareInstallOrder.
//
// Components already at the target version are skipped.
func (c *Catalog) Plan(vendor string, components model.Components, action model.Action) model.InstallActions {
	actions := model.InstallActions{}

	for _, component := range components.Updatable() {
		var target *model.Firmware

		switch action {
		case model.ActionUpgrade:
			target = c.Newest(vendor, component)
		case model.ActionDowngrade:
			target = c.Previous(vendor, component)
		default:
			return nil
		}

		if target == nil || target.Version == component.FirmwareInstalled {
			continue
		}

		actions = append(actions, &model.InstallAction{Component: component, Firmware: *target})
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Firmware.InstallOrder() < actions[j].Firmware.InstallOrder()
	})

	return actions
}
