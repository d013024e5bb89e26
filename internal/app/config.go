package app

import (
	"os"
	"strings"
	"time"

	"github.com/jeremywohl/flatten"
	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

const (
	DefaultLogFile            = "/tmp/upgrade_fw.log"
	DefaultDUTUsername        = "ubuntu"
	DefaultDUTPassword        = "insecure"
	DefaultDUTPort            = 22
	DefaultDownloadDir        = "/tmp/dutfw"
	defaultDUTConnectTimeout  = 30 * time.Second
	defaultRebootTimeout      = 30 * time.Minute
	defaultRebootInitialDelay = 2 * time.Minute
)

var (
	ErrConfig = errors.New("configuration error")
)

// Configuration holds application configuration read from a YAML or set by env variables.
//
// nolint:govet // prefer readability over field alignment optimization for this case.
type Configuration struct {
	// LogFile is the log sink, truncated on each run.
	LogFile string `mapstructure:"log_file"`

	// LogLevel is the app verbose logging level, remote commands are logged at debug.
	// one of - info, debug, trace
	LogLevel string `mapstructure:"log_level"`

	// DryRun plans firmware changes without installing them.
	DryRun bool `mapstructure:"dry_run"`

	DUT *DUTOptions `mapstructure:"dut"`

	BMC *BMCOptions `mapstructure:"bmc"`

	// FirmwareCatalog is the path to the firmware catalog YAML, optional.
	FirmwareCatalog string `mapstructure:"firmware_catalog"`

	// DownloadDir is where firmware files are downloaded before install.
	DownloadDir string `mapstructure:"download_dir"`

	Reboot *RebootOptions `mapstructure:"reboot"`

	// MetricsTextfile is the node exporter textfile the run metrics are written to, optional.
	MetricsTextfile string `mapstructure:"metrics_textfile"`
}

// DUTOptions defines the DUT operating system access.
type DUTOptions struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// PlaceholderPassword is used on the in-band path when no password is set.
	PlaceholderPassword string `mapstructure:"placeholder_password"`

	Port           int           `mapstructure:"port"`
	SSHKeyFile     string        `mapstructure:"ssh_key_file"`
	KnownHostsFile string        `mapstructure:"known_hosts_file"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// BMCOptions defines the DUT BMC access, all three values select the BMC credential path.
type BMCOptions struct {
	Address  string `mapstructure:"address"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Credentials returns the BMC options as model.Credentials.
func (b *BMCOptions) Credentials() model.Credentials {
	if b == nil {
		return model.Credentials{}
	}

	return model.Credentials{Address: b.Address, Username: b.Username, Password: b.Password}
}

// RebootOptions bounds the wait for the DUT after a reboot.
type RebootOptions struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
}

// bmcEnvVars are the BMC environment variables accepted without the app prefix.
var bmcEnvVars = map[string]string{
	"bmc.address":  "BMC_IP",
	"bmc.username": "BMC_USER",
	"bmc.password": "BMC_PASSWORD",
}

// LoadConfiguration loads application configuration
//
// Reads in the cfgFile when available and overrides from environment variables and flags.
func (a *App) LoadConfiguration(cfgFile string, flags *pflag.FlagSet) error {
	a.v.SetConfigType("yaml")
	a.v.SetEnvPrefix(model.AppName)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	// these are initialized here so viper can read in configuration from env vars
	a.Config.DUT = &DUTOptions{}
	a.Config.BMC = &BMCOptions{}
	a.Config.Reboot = &RebootOptions{}

	if cfgFile != "" {
		fh, err := os.Open(cfgFile)
		if err != nil {
			return errors.Wrap(ErrConfig, err.Error())
		}
		defer fh.Close()

		if err = a.v.ReadConfig(fh); err != nil {
			return errors.Wrap(ErrConfig, "ReadConfig error:"+err.Error())
		}
	}

	a.setDefaults()

	if err := a.envBindVars(); err != nil {
		return errors.Wrap(ErrConfig, "env var bind error:"+err.Error())
	}

	for key, env := range bmcEnvVars {
		if err := a.v.BindEnv(key, env); err != nil {
			return errors.Wrap(ErrConfig, "env var bind error: "+err.Error())
		}
	}

	if err := a.bindFlags(flags); err != nil {
		return err
	}

	if err := a.v.Unmarshal(a.Config); err != nil {
		return errors.Wrap(ErrConfig, "Unmarshal error: "+err.Error())
	}

	return a.validate()
}

func (a *App) setDefaults() {
	a.v.SetDefault("log_file", DefaultLogFile)
	a.v.SetDefault("log_level", "debug")
	a.v.SetDefault("download_dir", DefaultDownloadDir)
	a.v.SetDefault("dut.username", DefaultDUTUsername)
	a.v.SetDefault("dut.password", "")
	a.v.SetDefault("dut.placeholder_password", DefaultDUTPassword)
	a.v.SetDefault("dut.port", DefaultDUTPort)
	a.v.SetDefault("dut.connect_timeout", defaultDUTConnectTimeout)
	a.v.SetDefault("reboot.timeout", defaultRebootTimeout)
	a.v.SetDefault("reboot.initial_delay", defaultRebootInitialDelay)
}

// envBindVars binds environment variables to the struct
// without a configuration file being unmarshalled,
// this is a workaround for a viper bug,
//
// This can be replaced by the solution in https://github.com/spf13/viper/pull/1429
// once that PR is merged.
func (a *App) envBindVars() error {
	envKeysMap := map[string]interface{}{}
	if err := mapstructure.Decode(a.Config, &envKeysMap); err != nil {
		return err
	}

	// Flatten nested conf map
	flat, err := flatten.Flatten(envKeysMap, "", flatten.DotStyle)
	if err != nil {
		return errors.Wrap(err, "Unable to flatten config")
	}

	for k := range flat {
		if err := a.v.BindEnv(k); err != nil {
			return errors.Wrap(ErrConfig, "env var bind error: "+err.Error())
		}
	}

	return nil
}

// flagKeys maps command line flags to their configuration keys.
var flagKeys = map[string]string{
	"log-level":    "log_level",
	"dry-run":      "dry_run",
	"bmc-ip":       "bmc.address",
	"bmc-user":     "bmc.username",
	"bmc-password": "bmc.password",
}

// bindFlags binds the flags present in the set, a flag takes precedence over env and file only when set.
func (a *App) bindFlags(flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}

		if err := a.v.BindPFlag(key, flag); err != nil {
			return errors.Wrap(ErrConfig, "flag bind error: "+err.Error())
		}
	}

	return nil
}

func (a *App) validate() error {
	if strings.TrimSpace(a.Config.LogFile) == "" {
		return errors.Wrap(ErrConfig, "log_file not defined")
	}

	if strings.TrimSpace(a.Config.DUT.Username) == "" {
		return errors.Wrap(ErrConfig, "dut.username not defined")
	}

	if a.Config.DUT.Port <= 0 || a.Config.DUT.Port > 65535 {
		return errors.Wrap(ErrConfig, "dut.port out of range")
	}

	if a.Config.Reboot.Timeout <= 0 {
		return errors.Wrap(ErrConfig, "reboot.timeout must be positive")
	}

	return nil
}
