package inband

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/metal-toolbox/dutfw/internal/firmware"
	"github.com/metal-toolbox/dutfw/internal/fixtures"
	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func ok(stdout string) *model.CommandResult {
	return &model.CommandResult{Stdout: stdout}
}

func exit(code int, stderr string) *model.CommandResult {
	return &model.CommandResult{ExitCode: code, Stderr: stderr}
}

func newTestHandler(t *testing.T, params Params) (*Handler, *fixtures.MockRemoteExecutor, *model.Device) {
	t.Helper()
	t.Setenv(envTesting, "1")

	ctrl := gomock.NewController(t)
	exec := fixtures.NewMockRemoteExecutor(ctrl)
	exec.EXPECT().Host().Return("10.0.0.1").AnyTimes()

	device := &model.Device{
		DUT:      model.Credentials{Address: "10.0.0.1", Username: "ubuntu", Password: "insecure"},
		Vendor:   "LENOVO",
		Handler:  "lenovo-client",
		Family:   model.FamilyInband,
		Category: model.CategoryClient,
	}

	if params.RebootTimeout == 0 {
		params.RebootTimeout = time.Second
	}

	params.DownloadDir = t.TempDir()

	return New(device, exec, params, logrus.NewEntry(&logrus.Logger{})), exec, device
}

func TestFirmwareInfo(t *testing.T) {
	t.Run("updatable devices recorded", func(t *testing.T) {
		h, exec, device := newTestHandler(t, Params{})

		exec.EXPECT().Run(gomock.Any(), cmdGetDevices).Return(ok(fixtures.FwupdGetDevices), nil)

		components, err := h.FirmwareInfo(context.Background())
		require.NoError(t, err)
		require.Len(t, components, 2)

		assert.Equal(t, fixtures.FwupdDeviceIDSystemFirmware, components[0].ID)
		assert.Equal(t, "System Firmware", components[0].Name)
		assert.Equal(t, "0.1.56", components[0].FirmwareInstalled)
		assert.Equal(t, "uefi_capsule", components[0].Slug)
		assert.Equal(t, "EC0001", components[1].Serial)

		assert.Equal(t, components, device.Inventory)
		assert.Len(t, device.Snapshot, 2)
	})

	t.Run("command failure", func(t *testing.T) {
		h, exec, _ := newTestHandler(t, Params{})

		exec.EXPECT().Run(gomock.Any(), cmdGetDevices).Return(exit(1, "fwupd not running"), nil)

		_, err := h.FirmwareInfo(context.Background())
		require.ErrorIs(t, err, model.ErrRemoteCommandFailed)
		assert.Contains(t, err.Error(), "fwupd not running")
	})

	t.Run("unparseable output", func(t *testing.T) {
		h, exec, _ := newTestHandler(t, Params{})

		exec.EXPECT().Run(gomock.Any(), cmdGetDevices).Return(ok("WARNING: not json"), nil)

		_, err := h.FirmwareInfo(context.Background())
		require.ErrorIs(t, err, ErrFwupdOutput)
	})
}

func TestUpgrade(t *testing.T) {
	tests := []struct {
		name       string
		dryRun     bool
		mock       func(exec *fixtures.MockRemoteExecutor)
		wantResult model.LifecycleResult
		wantErr    error
	}{
		{
			name: "nothing to do",
			mock: func(exec *fixtures.MockRemoteExecutor) {
				gomock.InOrder(
					exec.EXPECT().Run(gomock.Any(), cmdRefresh).Return(ok(""), nil),
					exec.EXPECT().Run(gomock.Any(), cmdGetUpdates).Return(exit(exitNothingToDo, "No updatable devices"), nil),
				)
			},
			wantResult: model.NoActionNeeded,
		},
		{
			name: "applied, reboot required",
			mock: func(exec *fixtures.MockRemoteExecutor) {
				gomock.InOrder(
					exec.EXPECT().Run(gomock.Any(), cmdRefresh).Return(ok(""), nil),
					exec.EXPECT().Run(gomock.Any(), cmdGetUpdates).Return(ok(fixtures.FwupdGetUpdates), nil),
					exec.EXPECT().Run(gomock.Any(), cmdUpdate).Return(ok("Successfully installed firmware"), nil),
					exec.EXPECT().Run(gomock.Any(), cmdGetDevices).Return(ok(fixtures.FwupdGetDevicesUpgraded), nil),
				)
			},
			wantResult: model.ActionAppliedRebootRequired,
		},
		{
			name: "applied, no reboot",
			mock: func(exec *fixtures.MockRemoteExecutor) {
				gomock.InOrder(
					exec.EXPECT().Run(gomock.Any(), cmdRefresh).Return(exit(exitNothingToDo, "metadata is up to date"), nil),
					exec.EXPECT().Run(gomock.Any(), cmdGetUpdates).Return(ok(fixtures.FwupdGetUpdates), nil),
					exec.EXPECT().Run(gomock.Any(), cmdUpdate).Return(ok(""), nil),
					exec.EXPECT().Run(gomock.Any(), cmdGetDevices).Return(ok(fixtures.FwupdGetDevicesRebooted), nil),
				)
			},
			wantResult: model.ActionAppliedNoReboot,
		},
		{
			name:   "dry run",
			dryRun: true,
			mock: func(exec *fixtures.MockRemoteExecutor) {
				gomock.InOrder(
					exec.EXPECT().Run(gomock.Any(), cmdRefresh).Return(ok(""), nil),
					exec.EXPECT().Run(gomock.Any(), cmdGetUpdates).Return(ok(fixtures.FwupdGetUpdates), nil),
				)
			},
			wantResult: model.NoActionNeeded,
		},
		{
			name: "refresh fails",
			mock: func(exec *fixtures.MockRemoteExecutor) {
				exec.EXPECT().Run(gomock.Any(), cmdRefresh).Return(exit(1, "failed to download metadata"), nil)
			},
			wantResult: model.NoActionNeeded,
			wantErr:    model.ErrRemoteCommandFailed,
		},
		{
			name: "update fails",
			mock: func(exec *fixtures.MockRemoteExecutor) {
				gomock.InOrder(
					exec.EXPECT().Run(gomock.Any(), cmdRefresh).Return(ok(""), nil),
					exec.EXPECT().Run(gomock.Any(), cmdGetUpdates).Return(ok(fixtures.FwupdGetUpdates), nil),
					exec.EXPECT().Run(gomock.Any(), cmdUpdate).Return(exit(1, "failed to write"), nil),
				)
			},
			wantResult: model.NoActionNeeded,
			wantErr:    model.ErrRemoteCommandFailed,
		},
		{
			name: "transport failure",
			mock: func(exec *fixtures.MockRemoteExecutor) {
				exec.EXPECT().Run(gomock.Any(), cmdRefresh).Return(nil, errors.New("connection refused"))
			},
			wantResult: model.NoActionNeeded,
			wantErr:    errors.New("connection refused"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, exec, _ := newTestHandler(t, Params{DryRun: tc.dryRun})
			tc.mock(exec)

			got, err := h.Upgrade(context.Background())
			if tc.wantErr != nil {
				require.Error(t, err)

				if errors.Is(tc.wantErr, model.ErrRemoteCommandFailed) {
					require.ErrorIs(t, err, tc.wantErr)
				} else {
					assert.Contains(t, err.Error(), tc.wantErr.Error())
				}
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tc.wantResult, got)
		})
	}
}

func TestDowngradeFromReleases(t *testing.T) {
	h, exec, device := newTestHandler(t, Params{})

	getReleasesSystem := fmt.Sprintf(cmdGetReleases, shellQuote(fixtures.FwupdDeviceIDSystemFirmware))
	getReleasesEC := fmt.Sprintf(cmdGetReleases, shellQuote(fixtures.FwupdDeviceIDEmbeddedController))
	install := fmt.Sprintf(cmdInstall, shellQuote(fixtures.FwupdDeviceIDSystemFirmware), shellQuote("0.1.55"))

	gomock.InOrder(
		exec.EXPECT().Run(gomock.Any(), cmdGetDevices).Return(ok(fixtures.FwupdGetDevices), nil),
		exec.EXPECT().Run(gomock.Any(), getReleasesSystem).Return(ok(fixtures.FwupdGetReleases), nil),
		exec.EXPECT().Run(gomock.Any(), install).Return(ok(""), nil),
		exec.EXPECT().Run(gomock.Any(), getReleasesEC).Return(exit(exitNothingToDo, "No releases available"), nil),
		exec.EXPECT().Run(gomock.Any(), cmdGetDevices).Return(ok(fixtures.FwupdGetDevicesUpgraded), nil),
	)

	_, err := h.FirmwareInfo(context.Background())
	require.NoError(t, err)

	got, err := h.Downgrade(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ActionAppliedRebootRequired, got)

	// the snapshot is the inventory before the downgrade
	assert.Equal(t, "0.1.56", device.Snapshot.ByID(fixtures.FwupdDeviceIDSystemFirmware).FirmwareInstalled)
}

func TestDowngradeNoPreviousRelease(t *testing.T) {
	h, exec, device := newTestHandler(t, Params{})

	device.RecordInventory(model.Components{
		{Slug: "uefi_capsule", ID: fixtures.FwupdDeviceIDEmbeddedController, Name: "Embedded Controller", FirmwareInstalled: "0.1.20", Updatable: true},
	})

	exec.EXPECT().
		Run(gomock.Any(), fmt.Sprintf(cmdGetReleases, shellQuote(fixtures.FwupdDeviceIDEmbeddedController))).
		Return(ok(`{"Releases": [{"Version": "0.1.21", "Flags": ["is-upgrade"]}]}`), nil)

	got, err := h.Downgrade(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.NoActionNeeded, got)
}

func TestDowngradePinned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`BLOB`))
	}))
	defer server.Close()

	catalog, err := firmware.Parse([]byte(fmt.Sprintf(`
firmware:
  - vendor: LENOVO
    component: %[1]s
    version: 0.1.19
    url: %[2]s/ec-0.1.19.cab
    filename: ec-0.1.19.cab
    checksum: 1649cff06611a6025da3dd511a97fb43
  - vendor: LENOVO
    component: %[1]s
    version: 0.1.20
    url: %[2]s/ec-0.1.20.cab
    filename: ec-0.1.20.cab
    checksum: 1649cff06611a6025da3dd511a97fb43
`, fixtures.FwupdDeviceIDEmbeddedController, server.URL)))
	require.NoError(t, err)

	h, exec, device := newTestHandler(t, Params{Catalog: catalog})

	device.RecordInventory(model.Components{
		{Slug: "uefi_capsule", ID: fixtures.FwupdDeviceIDEmbeddedController, Name: "Embedded Controller", FirmwareInstalled: "0.1.20", Updatable: true},
	})

	remotePath := remoteFirmwareDir + "/ec-0.1.19.cab"
	install := fmt.Sprintf(cmdInstall, shellQuote(remotePath), shellQuote(fixtures.FwupdDeviceIDEmbeddedController))

	gomock.InOrder(
		exec.EXPECT().Upload(gomock.Any(), gomock.Any(), remotePath).Return(nil),
		exec.EXPECT().Run(gomock.Any(), install).Return(ok(""), nil),
		exec.EXPECT().Run(gomock.Any(), cmdGetDevices).Return(ok(fixtures.FwupdGetDevicesRebooted), nil),
	)

	got, err := h.Downgrade(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ActionAppliedNoReboot, got)
}

func TestReboot(t *testing.T) {
	t.Run("session lost is accepted", func(t *testing.T) {
		h, exec, _ := newTestHandler(t, Params{})

		gomock.InOrder(
			exec.EXPECT().Run(gomock.Any(), cmdReboot).Return(&model.CommandResult{}, model.ErrRemoteSessionLost),
			exec.EXPECT().Close().Return(nil),
		)

		require.NoError(t, h.Reboot(context.Background()))
	})

	t.Run("exit zero is accepted", func(t *testing.T) {
		h, exec, _ := newTestHandler(t, Params{})

		exec.EXPECT().Run(gomock.Any(), cmdReboot).Return(ok(""), nil)
		exec.EXPECT().Close().Return(nil)

		require.NoError(t, h.Reboot(context.Background()))
	})

	t.Run("refused", func(t *testing.T) {
		h, exec, _ := newTestHandler(t, Params{})

		exec.EXPECT().Run(gomock.Any(), cmdReboot).Return(exit(1, "sudo: a password is required"), nil)

		err := h.Reboot(context.Background())
		require.ErrorIs(t, err, ErrRebootRequest)
		assert.Contains(t, err.Error(), "a password is required")
	})
}

func TestCheckResults(t *testing.T) {
	snapshot := func(device *model.Device) {
		device.RecordInventory(model.Components{
			{Slug: "uefi_capsule", ID: fixtures.FwupdDeviceIDSystemFirmware, Name: "System Firmware", FirmwareInstalled: "0.1.56", Updatable: true},
			{Slug: "uefi_capsule", ID: fixtures.FwupdDeviceIDEmbeddedController, Name: "Embedded Controller", FirmwareInstalled: "0.1.20", Updatable: true},
		})
	}

	t.Run("firmware changed after reconnect", func(t *testing.T) {
		h, exec, device := newTestHandler(t, Params{})
		snapshot(device)

		gomock.InOrder(
			exec.EXPECT().Run(gomock.Any(), cmdGetDevices).Return(nil, errors.New("connection refused")),
			exec.EXPECT().Run(gomock.Any(), cmdGetDevices).Return(nil, errors.New("connection refused")),
			exec.EXPECT().Run(gomock.Any(), cmdGetDevices).Return(ok(fixtures.FwupdGetDevicesRebooted), nil),
		)

		require.NoError(t, h.CheckResults(context.Background()))
		assert.Equal(t, "0.1.57", device.Inventory.ByID(fixtures.FwupdDeviceIDSystemFirmware).FirmwareInstalled)
		assert.Equal(t, "0.1.56", device.Snapshot.ByID(fixtures.FwupdDeviceIDSystemFirmware).FirmwareInstalled)
	})

	t.Run("firmware unchanged", func(t *testing.T) {
		h, exec, device := newTestHandler(t, Params{})
		snapshot(device)

		exec.EXPECT().Run(gomock.Any(), cmdGetDevices).Return(ok(fixtures.FwupdGetDevices), nil)

		require.ErrorIs(t, h.CheckResults(context.Background()), model.ErrVerificationFailed)
	})

	t.Run("device does not come back", func(t *testing.T) {
		h, exec, device := newTestHandler(t, Params{RebootTimeout: 50 * time.Millisecond})
		snapshot(device)

		exec.EXPECT().Run(gomock.Any(), cmdGetDevices).Return(nil, errors.New("no route to host")).MinTimes(1)

		err := h.CheckResults(context.Background())
		require.ErrorIs(t, err, ErrDeviceUnreachable)
		assert.Contains(t, err.Error(), "no route to host")
	})
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'abc'`, shellQuote("abc"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}
