package inband

import (
	"encoding/json"
	"strings"

	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

const (
	flagUpdatable   = "updatable"
	flagNeedsReboot = "needs-reboot"
	flagIsDowngrade = "is-downgrade"
)

var ErrFwupdOutput = errors.New("error parsing fwupdmgr output")

// fwupdDevice is a device as listed by fwupdmgr --json.
type fwupdDevice struct {
	Name     string         `json:"Name"`
	DeviceID string         `json:"DeviceId"`
	Plugin   string         `json:"Plugin"`
	Vendor   string         `json:"Vendor"`
	Serial   string         `json:"Serial"`
	Version  string         `json:"Version"`
	Flags    []string       `json:"Flags"`
	Releases []fwupdRelease `json:"Releases"`
}

func (d *fwupdDevice) hasFlag(flag string) bool {
	return slices.Contains(d.Flags, flag)
}

// fwupdRelease is a firmware release as listed by fwupdmgr --json.
type fwupdRelease struct {
	AppstreamID string   `json:"AppstreamId"`
	Version     string   `json:"Version"`
	Flags       []string `json:"Flags"`
}

type fwupdDevices struct {
	Devices []*fwupdDevice `json:"Devices"`
}

type fwupdReleases struct {
	Releases []*fwupdRelease `json:"Releases"`
}

func parseDevices(out string) ([]*fwupdDevice, error) {
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}

	d := &fwupdDevices{}
	if err := json.Unmarshal([]byte(out), d); err != nil {
		return nil, errors.Wrap(ErrFwupdOutput, err.Error())
	}

	return d.Devices, nil
}

func parseReleases(out string) ([]*fwupdRelease, error) {
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}

	r := &fwupdReleases{}
	if err := json.Unmarshal([]byte(out), r); err != nil {
		return nil, errors.Wrap(ErrFwupdOutput, err.Error())
	}

	return r.Releases, nil
}

// toComponents converts the updatable fwupd devices to components.
func toComponents(devices []*fwupdDevice) model.Components {
	components := model.Components{}

	for _, d := range devices {
		if !d.hasFlag(flagUpdatable) {
			continue
		}

		components = append(components, &model.Component{
			Slug:              strings.ToLower(d.Plugin),
			ID:                d.DeviceID,
			Name:              d.Name,
			Vendor:            d.Vendor,
			Model:             d.Name,
			Serial:            d.Serial,
			FirmwareInstalled: d.Version,
			Updatable:         true,
		})
	}

	return components
}

// previousRelease returns the newest release flagged as a downgrade, releases are listed newest first.
func previousRelease(releases []*fwupdRelease) *fwupdRelease {
	for _, r := range releases {
		if slices.Contains(r.Flags, flagIsDowngrade) {
			return r
		}
	}

	return nil
}

func needsReboot(devices []*fwupdDevice) []string {
	names := []string{}

	for _, d := range devices {
		if d.hasFlag(flagNeedsReboot) {
			names = append(names, d.Name)
		}
	}

	return names
}

// shellQuote single quotes s for the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
