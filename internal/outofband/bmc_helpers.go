package outofband

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	bmclibv2 "github.com/bmc-toolbox/bmclib/v2"
	logrusrv2 "github.com/bombsimon/logrusr/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"

	"github.com/jacobweinstock/registrar"
	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/sirupsen/logrus"
)

const (
	// bmclib ProviderProtocol values
	// https://github.com/bmc-toolbox/bmclib/blob/v2/providers/redfish/redfish.go#L26
	DriverRedfish   = "redfish"
	DriverVendorAPI = "vendorapi"
)

func newHTTPClient() *http.Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		panic(err)
	}

	// nolint:gomnd // time duration declarations are clear as is.
	return &http.Client{
		Timeout: time.Second * 600,
		Jar:     jar,
		Transport: &http.Transport{
			// nolint:gosec // BMCs don't have valid certs.
			TLSClientConfig:   &tls.Config{InsecureSkipVerify: true},
			DisableKeepAlives: true,
			Dial: (&net.Dialer{
				Timeout:   180 * time.Second,
				KeepAlive: 180 * time.Second,
			}).Dial,
			TLSHandshakeTimeout:   180 * time.Second,
			ResponseHeaderTimeout: 600 * time.Second,
			IdleConnTimeout:       180 * time.Second,
		},
	}
}

// newBmclibv2Client initializes a bmclibv2 client with the given credentials
func newBmclibv2Client(creds model.Credentials, drivers []string, l *logrus.Entry) *bmclibv2.Client {
	logger := logrus.New()
	logger.Formatter = l.Logger.Formatter
	logger.Out = l.Logger.Out

	// setup a logr logger for bmclib
	// bmclib uses logr, for which the trace logs are logged with log.V(3),
	// this is a hax so the logrusr lib will enable trace logging
	// since any value that is less than (logrus.LogLevel - 4) >= log.V(3) is ignored
	// https://github.com/bombsimon/logrusr/blob/master/logrusr.go#L64
	switch l.Logger.GetLevel() {
	case logrus.TraceLevel:
		logger.Level = 7
	case logrus.DebugLevel:
		logger.Level = 5
	}

	logruslogr := logrusrv2.New(logger)

	bmcClient := bmclibv2.NewClient(
		creds.Address,
		creds.Username,
		creds.Password,
		bmclibv2.WithLogger(logruslogr),
		bmclibv2.WithHTTPClient(newHTTPClient()),
		bmclibv2.WithPerProviderTimeout(loginTimeout),
	)

	// The bmclib drivers here are limited to the HTTPS means of connection,
	// that is, drivers like ipmi are excluded.
	if len(drivers) == 0 {
		drivers = []string{DriverRedfish, DriverVendorAPI}
	}

	selected := registrar.Drivers{}
	for _, driver := range drivers {
		selected = append(selected, bmcClient.Registry.Using(driver)...)
	}

	bmcClient.Registry.Drivers = selected

	return bmcClient
}

func (b *bmc) sessionActive(ctx context.Context) error {
	if b.client == nil {
		return errors.Wrap(errBMCSession, "bmclibv2 client not initialized")
	}

	// check if we're able to query the power state
	powerStatus, err := b.client.GetPowerState(ctx)
	if err != nil {
		b.logger.WithFields(
			logrus.Fields{
				"err": err.Error(),
			},
		).Trace("session not active, checked with GetPowerState()")

		return errors.Wrap(errBMCSession, err.Error())
	}

	b.logger.WithFields(
		logrus.Fields{
			"powerStatus": powerStatus,
		},
	).Trace("session currently active, checked with GetPowerState()")

	return nil
}

// login to the BMC, re-trying tries times with exponential backoff
func (b *bmc) loginWithRetries(ctx context.Context, tries int) error {
	// nolint:gomnd // time duration definitions are clear as is.
	delay := &backoff.Backoff{
		Min:    5 * time.Second,
		Max:    30 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	if tries == 0 {
		tries = loginAttempts
	}

	// loop returns when a session was established or after tries attempts
	for attempts := 1; ; attempts++ {
		attemptstr := fmt.Sprintf("%d/%d", attempts, tries)

		err := b.login(ctx)
		if err == nil {
			b.logger.WithField("attempt", attemptstr).Debug("bmc login successful")

			return nil
		}

		b.logger.WithFields(
			logrus.Fields{
				"attempt": attemptstr,
				"err":     err,
			}).Debug("bmc login error")

		// return if attempts match tries
		if attempts >= tries {
			if strings.Contains(err.Error(), "operation timed out") || errors.Is(err, context.DeadlineExceeded) {
				err = multierror.Append(errBMCLoginTimeout, err)
			}

			if strings.Contains(err.Error(), "401: ") || strings.Contains(err.Error(), "failed to login") {
				err = multierror.Append(errBMCLoginUnAuthorized, err)
			}

			return errors.Wrapf(errBMCLogin, "attempts: %s, last error: %s", attemptstr, err.Error())
		}

		if errSleep := sleepWithContext(ctx, delay.Duration()); errSleep != nil {
			return errors.Wrap(errBMCLogin, errSleep.Error())
		}
	}
}

func (b *bmc) login(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	return b.client.Open(ctx)
}
