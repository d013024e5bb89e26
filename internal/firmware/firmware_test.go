package firmware

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var catalogYAML = `
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
    version: 6.10.30.00
    url: https://dl.example.com/iDRAC_6.10.30.00.EXE
    filename: iDRAC_6.10.30.00.EXE
    checksum: 1649cff06611a6025da3dd511a97fb43
  - vendor: Dell Inc.
    component: nic
    version: 22.31.6
    url: https://dl.example.com/Network_22.31.6.EXE
    filename: Network_22.31.6.EXE
    checksum: 1649cff06611a6025da3dd511a97fb43
  - vendor: LENOVO
    component: 2d47f29b83a00bc3a87ab3ebd64e2dd4ec1c4e1b
    version: 0.1.21
    url: https://fwupd.example.com/thinkpad-ec-0.1.21.cab
    filename: thinkpad-ec-0.1.21.cab
    checksum: 1649cff06611a6025da3dd511a97fb43
`

func testCatalog(t *testing.T) *Catalog {
	t.Helper()

	c, err := Parse([]byte(catalogYAML))
	require.NoError(t, err)

	return c
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Firmware, 5)
	assert.Equal(t, []string{"r6515"}, c.Firmware[0].Models)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, ErrCatalogLoad)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", "firmware: [\n"},
		{"missing version", "firmware:\n  - vendor: HP\n    component: bios\n    url: https://x\n    filename: x.cab\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			require.ErrorIs(t, err, ErrCatalogLoad)
		})
	}
}

func TestNewestPrevious(t *testing.T) {
	c := testCatalog(t)

	bios := &model.Component{Slug: "bios", Model: "r6515", FirmwareInstalled: "2.6.6", Updatable: true}

	newest := c.Newest("Dell Inc.", bios)
	require.NotNil(t, newest)
	assert.Equal(t, "2.6.6", newest.Version)

	previous := c.Previous("Dell Inc.", bios)
	require.NotNil(t, previous)
	assert.Equal(t, "2.6.4", previous.Version)

	// oldest entry has no predecessor
	bios.FirmwareInstalled = "2.6.4"
	assert.Nil(t, c.Previous("Dell Inc.", bios))

	// installed version not in the catalog
	bios.FirmwareInstalled = "1.0.0"
	assert.Nil(t, c.Previous("Dell Inc.", bios))

	// model mismatch
	assert.Nil(t, c.Newest("Dell Inc.", &model.Component{Slug: "bios", Model: "r750"}))

	// vendor mismatch
	assert.Nil(t, c.Newest("HPE", &model.Component{Slug: "bios", Model: "r6515"}))

	// fwupd device ID match
	ec := &model.Component{Slug: "thinklmi", ID: "2d47f29b83a00bc3a87ab3ebd64e2dd4ec1c4e1b", Name: "Embedded Controller"}
	require.NotNil(t, c.Newest("LENOVO", ec))

	// nil catalog
	var nilCatalog *Catalog
	assert.Nil(t, nilCatalog.Newest("Dell Inc.", bios))
}

func TestPlan(t *testing.T) {
	c := testCatalog(t)

	components := model.Components{
		{Slug: "nic", Serial: "0", Model: "r6515", FirmwareInstalled: "22.0.1", Updatable: true},
		{Slug: "bios", Serial: "0", Model: "r6515", FirmwareInstalled: "2.6.4", Updatable: true},
		{Slug: "bmc", Serial: "0", Model: "r6515", FirmwareInstalled: "6.10.30.00", Updatable: true},
		{Slug: "mainboard", Serial: "0", Model: "r6515", FirmwareInstalled: "", Updatable: false},
	}

	t.Run("upgrade orders by install order and skips installed", func(t *testing.T) {
		actions := c.Plan("Dell Inc.", components, model.ActionUpgrade)
		require.Len(t, actions, 2)

		assert.Equal(t, "bios", actions[0].Component.Slug)
		assert.Equal(t, "2.6.6", actions[0].Firmware.Version)
		assert.Equal(t, "nic", actions[1].Component.Slug)
		assert.Equal(t, "22.31.6", actions[1].Firmware.Version)
	})

	t.Run("downgrade", func(t *testing.T) {
		upgraded := components.DeepCopy()
		upgraded.BySlugModel("bios", nil).FirmwareInstalled = "2.6.6"

		actions := c.Plan("Dell Inc.", upgraded, model.ActionDowngrade)
		require.Len(t, actions, 1)
		assert.Equal(t, "2.6.4", actions[0].Firmware.Version)
		assert.Equal(t, model.ActionAppliedRebootRequired, actions.Result())
	})

	t.Run("detect plans nothing", func(t *testing.T) {
		assert.Empty(t, c.Plan("Dell Inc.", components, model.ActionDetect))
	})

	t.Run("unknown vendor plans nothing", func(t *testing.T) {
		actions := c.Plan("Supermicro", components, model.ActionUpgrade)
		assert.Empty(t, actions)
		assert.Equal(t, model.NoActionNeeded, actions.Result())
	})
}
