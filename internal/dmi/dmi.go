// Package dmi maps SMBIOS chassis type codes to their names and to the firmware
// update category serviced for them.
package dmi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/pkg/errors"
)

const (
	// ChassisVendorPath and ChassisTypePath are the sysfs files read on the DUT.
	ChassisVendorPath = "/sys/class/dmi/id/chassis_vendor"
	ChassisTypePath   = "/sys/class/dmi/id/chassis_type"
)

// ChassisType is an SMBIOS chassis type code.
type ChassisType int

// Chassis is a platform identification table entry.
type Chassis struct {
	Code     ChassisType
	Name     string
	Category model.Category
}

// Supported returns true when the chassis type belongs to an update category.
func (c Chassis) Supported() bool {
	return c.Category != model.CategoryNone
}

// chassisTypes is indexed by code, the zero index is unused.
var chassisTypes = [...]Chassis{
	{},
	{1, "Other", model.CategoryNone},
	{2, "Unknown", model.CategoryNone},
	{3, "Desktop", model.CategoryClient},
	{4, "Low Profile Desktop", model.CategoryClient},
	{5, "Pizza Box", model.CategoryClient},
	{6, "Mini Tower", model.CategoryClient},
	{7, "Tower", model.CategoryClient},
	{8, "Portable", model.CategoryClient},
	{9, "Laptop", model.CategoryClient},
	{10, "Notebook", model.CategoryClient},
	{11, "Hand Held", model.CategoryClient},
	{12, "Docking Station", model.CategoryClient},
	{13, "All in One", model.CategoryClient},
	{14, "Sub Notebook", model.CategoryClient},
	{15, "Space-saving", model.CategoryClient},
	{16, "Lunch Box", model.CategoryClient},
	{17, "Main Server Chassis", model.CategoryServer},
	{18, "Expansion Chassis", model.CategoryNone},
	{19, "SubChassis", model.CategoryNone},
	{20, "Bus Expansion Chassis", model.CategoryNone},
	{21, "Peripheral Chassis", model.CategoryNone},
	{22, "RAID Chassis", model.CategoryNone},
	{23, "Rack Mount Chassis", model.CategoryServer},
	{24, "Sealed-case PC", model.CategoryClient},
	{25, "Multi-system chassis", model.CategoryServer},
	{26, "Compact PCI", model.CategoryNone},
	{27, "Advanced TCA", model.CategoryNone},
	{28, "Blade", model.CategoryServer},
	{29, "Blade Enclosure", model.CategoryServer},
	{30, "Tablet", model.CategoryClient},
	{31, "Convertible", model.CategoryClient},
	{32, "Detachable", model.CategoryClient},
	{33, "IoT Gateway", model.CategoryIoT},
	{34, "Embedded PC", model.CategoryIoT},
	{35, "Mini PC", model.CategoryClient},
	{36, "Stick PC", model.CategoryClient},
}

// MaxChassisType is the highest code in the table.
const MaxChassisType = ChassisType(len(chassisTypes) - 1)

// Lookup returns the table entry for the chassis type code.
func Lookup(code ChassisType) (Chassis, error) {
	if code < 1 || code > MaxChassisType {
		return Chassis{}, errors.Wrap(model.ErrUnknownChassisType, fmt.Sprintf("code %d not in range 1-%d", code, MaxChassisType))
	}

	return chassisTypes[code], nil
}

// ParseChassisType converts the raw chassis_type file contents into a ChassisType.
func ParseChassisType(raw string) (ChassisType, error) {
	trimmed := strings.TrimSpace(raw)

	code, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, errors.Wrap(model.ErrUnknownChassisType, fmt.Sprintf("non numeric chassis type: %q", trimmed))
	}

	return ChassisType(code), nil
}

// NormalizeVendor removes the line terminator emitted when the vendor file is read,
// the vendor string is otherwise kept verbatim.
func NormalizeVendor(raw string) string {
	raw = strings.TrimSuffix(raw, "\n")
	return strings.TrimSuffix(raw, "\r")
}

// ChassisTypes returns all table entries in code order.
func ChassisTypes() []Chassis {
	out := make([]Chassis, 0, MaxChassisType)
	out = append(out, chassisTypes[1:]...)

	return out
}
