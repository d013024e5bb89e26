package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "info", "")
	fs.Bool("dry-run", false, "")
	fs.StringP("bmc-ip", "i", "", "")
	fs.StringP("bmc-user", "u", "", "")
	fs.StringP("bmc-password", "p", "", "")

	require.NoError(t, fs.Parse(args))

	return fs
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dutfw.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadConfigurationDefaults(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "upgrade_fw.log")
	t.Setenv("DUTFW_LOG_FILE", logFile)

	a, err := New("", testFlags(t))
	require.NoError(t, err)

	defer a.Close()

	assert.Equal(t, logFile, a.Config.LogFile)
	assert.Equal(t, "debug", a.Config.LogLevel)
	assert.True(t, a.Logger.IsLevelEnabled(logrus.DebugLevel))
	assert.Equal(t, DefaultDUTUsername, a.Config.DUT.Username)
	assert.Equal(t, "", a.Config.DUT.Password)
	assert.Equal(t, DefaultDUTPort, a.Config.DUT.Port)
	assert.Equal(t, 30*time.Minute, a.Config.Reboot.Timeout)
	assert.False(t, a.Config.BMC.Credentials().Complete())
	assert.False(t, a.Config.DryRun)
}

func TestLoadConfigurationFileEnvFlags(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, `
log_file: `+filepath.Join(dir, "file.log")+`
log_level: info
dut:
  username: admin
  port: 2222
  connect_timeout: 10s
reboot:
  timeout: 5m
bmc:
  address: 10.0.0.10
`)

	t.Setenv("BMC_USER", "root")
	t.Setenv("DUTFW_DUT_PASSWORD", "secret")

	a, err := New(cfg, testFlags(t, "-p", "calvin", "--dry-run"))
	require.NoError(t, err)

	defer a.Close()

	assert.Equal(t, "info", a.Config.LogLevel)
	assert.Equal(t, "admin", a.Config.DUT.Username)
	assert.Equal(t, "secret", a.Config.DUT.Password)
	assert.Equal(t, 2222, a.Config.DUT.Port)
	assert.Equal(t, 10*time.Second, a.Config.DUT.ConnectTimeout)
	assert.Equal(t, 5*time.Minute, a.Config.Reboot.Timeout)
	assert.True(t, a.Config.DryRun)

	creds := a.Config.BMC.Credentials()
	assert.Equal(t, "10.0.0.10", creds.Address)
	assert.Equal(t, "root", creds.Username)
	assert.Equal(t, "calvin", creds.Password)
	assert.True(t, creds.Complete())
}

func TestLoadConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"bad yaml", "dut: [", "ReadConfig error"},
		{"port out of range", "dut:\n  port: 70000\n", "dut.port out of range"},
		{"zero reboot timeout", "reboot:\n  timeout: 0s\n", "reboot.timeout must be positive"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("DUTFW_LOG_FILE", filepath.Join(t.TempDir(), "upgrade_fw.log"))

			_, err := New(writeConfig(t, tc.body), testFlags(t))
			require.ErrorIs(t, err, ErrConfig)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	_, err := New(filepath.Join(t.TempDir(), "missing.yml"), nil)
	require.ErrorIs(t, err, ErrConfig)
}

func TestLogFileTruncated(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "upgrade_fw.log")
	require.NoError(t, os.WriteFile(logFile, []byte("previous run\n"), 0o600))

	t.Setenv("DUTFW_LOG_FILE", logFile)

	a, err := New("", nil)
	require.NoError(t, err)

	a.Logger.WithField("dut", "10.0.0.1").Info("device classified")
	require.NoError(t, a.Close())

	b, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "previous run")

	entry := map[string]any{}
	require.NoError(t, json.Unmarshal(b, &entry))
	assert.Equal(t, "device classified", entry["msg"])
	assert.Equal(t, "10.0.0.1", entry["dut"])

	_, err = time.Parse(timestampFormat, entry["time"].(string))
	assert.NoError(t, err)
}
