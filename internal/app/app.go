package app

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	runtime "github.com/banzaicloud/logrus-runtime-formatter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// timestampFormat is the log timestamp layout, as yy-mm-dd HH:MM:SS
const timestampFormat = "06-01-02 15:04:05"

// App holds attributes for the dutfw application
type App struct {
	v *viper.Viper
	// dutfw configuration.
	Config *Configuration
	// TermCh is the channel to terminate the app based on a signal
	TermCh chan os.Signal
	// Logger is the app logger
	Logger *logrus.Logger
	// logFile is the log sink opened for this run
	logFile *os.File
}

// New returns a new instance of the dutfw app, the log file is truncated and opened for writing.
func New(cfgFile string, flags *pflag.FlagSet) (*App, error) {
	app := &App{
		v:      viper.New(),
		Config: &Configuration{},
		Logger: logrus.New(),
		TermCh: make(chan os.Signal, 1),
	}

	if err := app.LoadConfiguration(cfgFile, flags); err != nil {
		return nil, err
	}

	// nolint:gomnd // file mode is clearer inline
	fh, err := os.OpenFile(app.Config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrap(ErrConfig, "log file: "+err.Error())
	}

	app.logFile = fh

	app.setLogger(fh)

	// register for SIGINT, SIGTERM
	signal.Notify(app.TermCh, syscall.SIGINT, syscall.SIGTERM)

	return app, nil
}

func (a *App) setLogger(out io.Writer) {
	a.Logger.Out = out

	// set log level, format
	switch a.Config.LogLevel {
	case "debug":
		a.Logger.Level = logrus.DebugLevel
	case "trace":
		a.Logger.Level = logrus.TraceLevel
	default:
		a.Logger.Level = logrus.InfoLevel
	}

	a.Logger.SetFormatter(
		&runtime.Formatter{ChildFormatter: &logrus.JSONFormatter{TimestampFormat: timestampFormat}},
	)
}

// Close stops signal delivery and closes the log file.
func (a *App) Close() error {
	signal.Stop(a.TermCh)

	if a.logFile == nil {
		return nil
	}

	return a.logFile.Close()
}
