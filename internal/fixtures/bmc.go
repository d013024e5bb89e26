package fixtures

import (
	"strings"

	"github.com/bmc-toolbox/common"
)

// CommonDevice returns a bmc-toolbox/common Device with the given BIOS and BMC firmware versions installed.
func CommonDevice(biosVersion, bmcVersion string) *common.Device {
	return &common.Device{
		Common: common.Common{
			Vendor: common.VendorDell,
			Model:  "PowerEdge R6515",
			Serial: "FOOBAR1",
		},
		BIOS: &common.BIOS{
			Common: common.Common{
				Vendor:   common.VendorDell,
				Firmware: &common.Firmware{Installed: biosVersion},
			},
		},
		BMC: &common.BMC{
			Common: common.Common{
				Vendor:   common.VendorDell,
				Firmware: &common.Firmware{Installed: bmcVersion},
			},
		},
		Mainboard: &common.Mainboard{
			Common: common.Common{
				Vendor: common.VendorDell,
				Serial: "MB0001",
			},
		},
		NICs: []*common.NIC{
			{
				Common: common.Common{
					Vendor:   "Broadcom",
					Model:    "BCM57414",
					Serial:   "NIC0001",
					Firmware: &common.Firmware{Installed: "22.31.6"},
				},
			},
		},
	}
}

// FirmwareCatalog returns a catalog for the CommonDevice fixture with files served from baseURL,
// entries are listed oldest first.
func FirmwareCatalog(baseURL string) string {
	return strings.ReplaceAll(firmwareCatalog, "https://dl.example.com", baseURL)
}

var firmwareCatalog = `
firmware:
  - vendor: Dell Inc.
    component: bios
    models: [r6515]
    version: 2.6.4
    url: https://dl.example.com/BIOS_2.6.4.EXE
    filename: BIOS_2.6.4.EXE
    checksum: 1649cff06611a6025da3dd511a97fb43
  - vendor: Dell Inc.
    component: bios
    models: [r6515]
    version: 2.6.6
    url: https://dl.example.com/BIOS_2.6.6.EXE
    filename: BIOS_2.6.6.EXE
    checksum: 1649cff06611a6025da3dd511a97fb43
  - vendor: Dell Inc.
    component: bmc
    models: [r6515]
    version: 6.10.00.00
    url: https://dl.example.com/iDRAC_6.10.00.00.EXE
    filename: iDRAC_6.10.00.00.EXE
    checksum: 1649cff06611a6025da3dd511a97fb43
  - vendor: Dell Inc.
    component: bmc
    models: [r6515]
    version: 6.10.30.00
    url: https://dl.example.com/iDRAC_6.10.30.00.EXE
    filename: iDRAC_6.10.30.00.EXE
    checksum: 1649cff06611a6025da3dd511a97fb43
`
