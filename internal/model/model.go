package model

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	AppName = "dutfw"

	LogLevelInfo  = 0
	LogLevelDebug = 1
	LogLevelTrace = 2
)

// Action is the operation requested for a DUT.
type Action string

const (
	ActionUpgrade   Action = "upgrade"
	ActionDowngrade Action = "downgrade"
	ActionDetect    Action = "detect"
)

var errInvalidAction = errors.New("invalid action")

// Actions returns the supported actions.
func Actions() []Action { return []Action{ActionUpgrade, ActionDowngrade, ActionDetect} }

// ParseAction returns the Action for the given string.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions() {
		if string(a) == s {
			return a, nil
		}
	}

	return "", errors.Wrap(errInvalidAction, "expected one of upgrade, downgrade, detect; got: "+s)
}

// Mutates returns true when the action changes firmware on the DUT.
func (a Action) Mutates() bool {
	return a == ActionUpgrade || a == ActionDowngrade
}

// Category is the firmware update mechanism bucket a chassis type belongs to.
type Category string

const (
	CategoryNone   Category = ""
	CategoryClient Category = "CLIENT"
	CategoryServer Category = "SERVER"
	CategoryIoT    Category = "IOT"
)

// Family is the transport family of a device handler.
type Family string

const (
	// FamilyInband handlers run firmware tooling on the DUT operating system over SSH.
	FamilyInband Family = "inband"
	// FamilyOutofband handlers talk to the DUT BMC.
	FamilyOutofband Family = "outofband"
)

// LifecycleResult is the outcome of an upgrade or downgrade.
type LifecycleResult int

const (
	NoActionNeeded LifecycleResult = iota
	ActionAppliedRebootRequired
	ActionAppliedNoReboot
)

func (r LifecycleResult) String() string {
	switch r {
	case NoActionNeeded:
		return "noActionNeeded"
	case ActionAppliedRebootRequired:
		return "actionAppliedRebootRequired"
	case ActionAppliedNoReboot:
		return "actionAppliedNoReboot"
	default:
		return "unknown"
	}
}

// Merge combines two results, a reboot requirement takes precedence over an applied change.
func (r LifecycleResult) Merge(o LifecycleResult) LifecycleResult {
	if r == ActionAppliedRebootRequired || o == ActionAppliedRebootRequired {
		return ActionAppliedRebootRequired
	}

	if r == ActionAppliedNoReboot || o == ActionAppliedNoReboot {
		return ActionAppliedNoReboot
	}

	return NoActionNeeded
}

// Credentials is an address, username, password triple.
type Credentials struct {
	Address  string
	Username string
	Password string
}

// Complete returns true when all three values are set.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.Address) != "" &&
		strings.TrimSpace(c.Username) != "" &&
		c.Password != ""
}

// Missing returns the names of the unset values.
func (c Credentials) Missing() []string {
	missing := []string{}

	if strings.TrimSpace(c.Address) == "" {
		missing = append(missing, "address")
	}

	if strings.TrimSpace(c.Username) == "" {
		missing = append(missing, "username")
	}

	if c.Password == "" {
		missing = append(missing, "password")
	}

	return missing
}

// Device is a DUT bound to the handler resolved for it.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type Device struct {
	// DUT operating system access
	DUT Credentials

	// DUT BMC access, required by out-of-band handlers
	BMC Credentials

	// Raw identification data
	Vendor      string
	ChassisType int
	ChassisName string

	// Resolved handler descriptor attributes
	Handler  string
	Family   Family
	Category Category

	// Inventory is the last known firmware inventory.
	Inventory Components

	// Snapshot is the inventory recorded before firmware was changed.
	Snapshot Components
}

// RecordInventory sets the last known inventory, the first recorded inventory
// is kept as the snapshot to compare against after an action.
func (d *Device) RecordInventory(components Components) {
	d.Inventory = components

	if d.Snapshot == nil {
		d.Snapshot = components.DeepCopy()
	}
}
