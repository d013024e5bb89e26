package model

import (
	"strings"

	"github.com/bmc-toolbox/common"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

var (
	// FirmwareInstallOrder defines the order in which firmware is installed.
	FirmwareInstallOrder = map[string]int{
		strings.ToLower(common.SlugBMC):               0,
		strings.ToLower(common.SlugBIOS):              1,
		strings.ToLower(common.SlugCPLD):              2,
		strings.ToLower(common.SlugDrive):             3,
		strings.ToLower(common.SlugBackplaneExpander): 4,
		strings.ToLower(common.SlugStorageController): 5,
		strings.ToLower(common.SlugNIC):               6,
		strings.ToLower(common.SlugPSU):               7,
		strings.ToLower(common.SlugTPM):               8,
		strings.ToLower(common.SlugGPU):               9,
		strings.ToLower(common.SlugCPU):               10,
	}

	// RebootRequiredSlugs lists the component kinds whose firmware is only applied after a host power cycle.
	RebootRequiredSlugs = []string{
		strings.ToLower(common.SlugBIOS),
		strings.ToLower(common.SlugCPLD),
	}

	ErrFirmwareInvalid = errors.New("invalid firmware entry")
)

// Firmware is a firmware catalog entry.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type Firmware struct {
	// Vendor is the device vendor the firmware applies to, matched case insensitive.
	Vendor string `yaml:"vendor" json:"vendor"`

	// Component is the component slug, for in-band devices this may also be the fwupd device ID.
	Component string `yaml:"component" json:"component"`

	// Models restricts the entry to components whose model contains one of the values.
	Models []string `yaml:"models,omitempty" json:"models,omitempty"`

	Version  string `yaml:"version" json:"version"`
	URL      string `yaml:"url" json:"url"`
	FileName string `yaml:"filename" json:"filename"`

	// Checksum is the hex encoded md5 sum of the file.
	Checksum string `yaml:"checksum" json:"checksum"`
}

// Validate returns an error when a required attribute is missing.
func (f *Firmware) Validate() error {
	missing := []string{}

	for name, value := range map[string]string{
		"vendor":    f.Vendor,
		"component": f.Component,
		"version":   f.Version,
		"url":       f.URL,
		"filename":  f.FileName,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		return errors.Wrap(ErrFirmwareInvalid, "missing: "+strings.Join(missing, ", "))
	}

	return nil
}

// InstallOrder returns the position of the firmware in the install order,
// kinds not in FirmwareInstallOrder are installed last.
func (f *Firmware) InstallOrder() int {
	if order, exists := FirmwareInstallOrder[strings.ToLower(f.Component)]; exists {
		return order
	}

	return len(FirmwareInstallOrder)
}

// RequiresReboot returns true when the firmware component is applied only after a host power cycle.
func (f *Firmware) RequiresReboot() bool {
	return slices.Contains(RebootRequiredSlugs, strings.ToLower(f.Component))
}
