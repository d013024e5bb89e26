package fixtures

const (
	// FwupdDeviceIDSystemFirmware is the fwupd device ID of the system firmware in the fwupd fixtures.
	FwupdDeviceIDSystemFirmware = "a45df35ac0e948ee180fe216a5f703f32dda163f"

	// FwupdDeviceIDEmbeddedController is the fwupd device ID of the embedded controller in the fwupd fixtures.
	FwupdDeviceIDEmbeddedController = "2d47f29b83a00bc3a87ab3ebd64e2dd4ec1c4e1b"

	// FwupdGetDevices is fwupdmgr get-devices --json output for a laptop,
	// the TPM is not updatable.
	FwupdGetDevices = `{
  "Devices" : [
    {
      "Name" : "System Firmware",
      "DeviceId" : "a45df35ac0e948ee180fe216a5f703f32dda163f",
      "Guid" : [
        "230c8b18-8d9b-53ec-838b-6cfc0383493a"
      ],
      "Plugin" : "uefi_capsule",
      "Flags" : [
        "internal",
        "updatable",
        "require-ac",
        "supported",
        "registered"
      ],
      "Vendor" : "LENOVO",
      "VendorId" : "DMI:LENOVO",
      "Version" : "0.1.56",
      "VersionFormat" : "quad"
    },
    {
      "Name" : "Embedded Controller",
      "DeviceId" : "2d47f29b83a00bc3a87ab3ebd64e2dd4ec1c4e1b",
      "Plugin" : "uefi_capsule",
      "Flags" : [
        "internal",
        "updatable",
        "registered"
      ],
      "Vendor" : "LENOVO",
      "Serial" : "EC0001",
      "Version" : "0.1.20"
    },
    {
      "Name" : "TPM",
      "DeviceId" : "c6a80ac3a22083423992a3cb15018989f37834d6",
      "Plugin" : "tpm",
      "Flags" : [
        "internal",
        "registered"
      ],
      "Vendor" : "Infineon",
      "Version" : "7.2.2.0"
    }
  ]
}
`

	// FwupdGetDevicesUpgraded is FwupdGetDevices after the system firmware was updated and before a reboot.
	FwupdGetDevicesUpgraded = `{
  "Devices" : [
    {
      "Name" : "System Firmware",
      "DeviceId" : "a45df35ac0e948ee180fe216a5f703f32dda163f",
      "Plugin" : "uefi_capsule",
      "Flags" : [
        "internal",
        "updatable",
        "needs-reboot",
        "registered"
      ],
      "Vendor" : "LENOVO",
      "Version" : "0.1.56"
    },
    {
      "Name" : "Embedded Controller",
      "DeviceId" : "2d47f29b83a00bc3a87ab3ebd64e2dd4ec1c4e1b",
      "Plugin" : "uefi_capsule",
      "Flags" : [
        "internal",
        "updatable",
        "registered"
      ],
      "Vendor" : "LENOVO",
      "Serial" : "EC0001",
      "Version" : "0.1.20"
    }
  ]
}
`

	// FwupdGetDevicesRebooted is FwupdGetDevices after the system firmware update was applied on reboot.
	FwupdGetDevicesRebooted = `{
  "Devices" : [
    {
      "Name" : "System Firmware",
      "DeviceId" : "a45df35ac0e948ee180fe216a5f703f32dda163f",
      "Plugin" : "uefi_capsule",
      "Flags" : [
        "internal",
        "updatable",
        "registered"
      ],
      "Vendor" : "LENOVO",
      "Version" : "0.1.57"
    },
    {
      "Name" : "Embedded Controller",
      "DeviceId" : "2d47f29b83a00bc3a87ab3ebd64e2dd4ec1c4e1b",
      "Plugin" : "uefi_capsule",
      "Flags" : [
        "internal",
        "updatable",
        "registered"
      ],
      "Vendor" : "LENOVO",
      "Serial" : "EC0001",
      "Version" : "0.1.20"
    }
  ]
}
`

	// FwupdGetUpdates is fwupdmgr get-updates --json output with an update for the system firmware.
	FwupdGetUpdates = `{
  "Devices" : [
    {
      "Name" : "System Firmware",
      "DeviceId" : "a45df35ac0e948ee180fe216a5f703f32dda163f",
      "Flags" : [
        "internal",
        "updatable"
      ],
      "Version" : "0.1.56",
      "Releases" : [
        {
          "AppstreamId" : "com.lenovo.ThinkPadN2HET.firmware",
          "Version" : "0.1.57",
          "Flags" : [
            "is-upgrade"
          ]
        }
      ]
    }
  ]
}
`

	// FwupdGetReleases is fwupdmgr get-releases --json output for the system firmware, newest first.
	FwupdGetReleases = `{
  "Releases" : [
    {
      "AppstreamId" : "com.lenovo.ThinkPadN2HET.firmware",
      "Version" : "0.1.57",
      "Flags" : [
        "is-upgrade"
      ]
    },
    {
      "AppstreamId" : "com.lenovo.ThinkPadN2HET.firmware",
      "Version" : "0.1.56",
      "Flags" : [ ]
    },
    {
      "AppstreamId" : "com.lenovo.ThinkPadN2HET.firmware",
      "Version" : "0.1.55",
      "Flags" : [
        "is-downgrade"
      ]
    },
    {
      "AppstreamId" : "com.lenovo.ThinkPadN2HET.firmware",
      "Version" : "0.1.54",
      "Flags" : [
        "is-downgrade"
      ]
    }
  ]
}
`
)
