package model

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownChassisType is returned when a chassis type code is not part of the platform identification table.
	ErrUnknownChassisType = errors.New("unknown chassis type")

	// ErrUnsupportedDevice is returned when no registered handler claims the DUT vendor and category.
	ErrUnsupportedDevice = errors.New("device is not in current support scope")

	// ErrDetectionFailed is returned when the DUT identification data could not be queried.
	ErrDetectionFailed = errors.New("unable to detect device vendor/type due to lacking of dmi info")

	// ErrMissingBmcCredentials is returned when an out-of-band handler is constructed without the BMC address, user and password.
	ErrMissingBmcCredentials = errors.New("please provide $BMC_IP, $BMC_USER, $BMC_PASSWORD for this device")

	// ErrRemoteCommandFailed is returned when a required remote command or BMC call fails.
	ErrRemoteCommandFailed = errors.New("remote command failed")

	// ErrVerificationFailed is returned when the firmware inventory is unchanged after an action that required a reboot.
	ErrVerificationFailed = errors.New("firmware verification failed, installed versions unchanged after reboot")

	// ErrRemoteSessionLost is returned by an executor when the remote end closed the session without an exit status.
	ErrRemoteSessionLost = errors.New("remote session closed without exit status")
)

// RemoteCommandError carries the result of a remote command that exited non-zero.
type RemoteCommandError struct {
	Host     string
	Cmd      string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *RemoteCommandError) Error() string {
	msg := fmt.Sprintf("%s: host: %s, cmd: %q, exit code: %d", ErrRemoteCommandFailed.Error(), e.Host, e.Cmd, e.ExitCode)

	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ", stderr: " + s
	}

	return msg
}

// Is lets errors.Is match the error against ErrRemoteCommandFailed.
func (e *RemoteCommandError) Is(target error) bool {
	return target == ErrRemoteCommandFailed
}

// NewRemoteCommandError returns a RemoteCommandError for the command result.
func NewRemoteCommandError(host, cmd string, result *CommandResult) error {
	e := &RemoteCommandError{Host: host, Cmd: cmd, ExitCode: -1}
	if result != nil {
		e.ExitCode = result.ExitCode
		e.Stdout = result.Stdout
		e.Stderr = result.Stderr
	}

	return e
}
