package remote

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

var (
	defaultPort           = 22
	defaultConnectTimeout = 30 * time.Second

	// default private keys tried when no password or key file is configured
	defaultKeyFiles = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

	ErrConnect      = errors.New("ssh connect error")
	ErrNoAuthMethod = errors.New("no ssh password or private key available")
	ErrSession      = errors.New("ssh session error")
)

// Config holds the DUT SSH connection parameters.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string

	// KeyFile is the private key used when Password is empty.
	KeyFile string

	// KnownHostsFile enables host key verification, host keys are not verified when empty.
	KnownHostsFile string

	ConnectTimeout time.Duration
}

// SSH implements the model.RemoteExecutor interface over an SSH connection,
// the connection is established on first use and re-established after a failure.
type SSH struct {
	mu     sync.Mutex
	cfg    Config
	client *ssh.Client
	logger *logrus.Entry
}

// NewSSH returns an SSH executor for the given configuration.
func NewSSH(cfg Config, logger *logrus.Entry) *SSH {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}

	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}

	return &SSH{cfg: cfg, logger: logger.WithField("host", cfg.Host)}
}

// Host returns the remote host address.
func (s *SSH) Host() string {
	return s.cfg.Host
}

func (s *SSH) address() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

func (s *SSH) authMethods() ([]ssh.AuthMethod, error) {
	if s.cfg.Password != "" {
		password := s.cfg.Password

		return []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}

				return answers, nil
			}),
		}, nil
	}

	keyFiles := []string{}
	if s.cfg.KeyFile != "" {
		keyFiles = append(keyFiles, s.cfg.KeyFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		for _, name := range defaultKeyFiles {
			keyFiles = append(keyFiles, filepath.Join(home, ".ssh", name))
		}
	}

	signers := []ssh.Signer{}

	for _, keyFile := range keyFiles {
		b, err := os.ReadFile(keyFile)
		if err != nil {
			if s.cfg.KeyFile != "" {
				return nil, errors.Wrap(ErrNoAuthMethod, err.Error())
			}

			continue
		}

		signer, err := ssh.ParsePrivateKey(b)
		if err != nil {
			return nil, errors.Wrap(ErrNoAuthMethod, keyFile+": "+err.Error())
		}

		signers = append(signers, signer)
	}

	if len(signers) == 0 {
		return nil, ErrNoAuthMethod
	}

	return []ssh.AuthMethod{ssh.PublicKeys(signers...)}, nil
}

func (s *SSH) clientConfig() (*ssh.ClientConfig, error) {
	auth, err := s.authMethods()
	if err != nil {
		return nil, err
	}

	// nolint:gosec // DUTs are re-imaged frequently, host keys are verified only when a known hosts file is given.
	hostKeyCallback := ssh.InsecureIgnoreHostKey()

	if s.cfg.KnownHostsFile != "" {
		hostKeyCallback, err = knownhosts.New(s.cfg.KnownHostsFile)
		if err != nil {
			return nil, errors.Wrap(ErrConnect, "known hosts: "+err.Error())
		}
	}

	return &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         s.cfg.ConnectTimeout,
	}, nil
}

// connect returns the cached client or dials a new one, the caller holds s.mu.
func (s *SSH) connect(ctx context.Context) (*ssh.Client, error) {
	if s.client != nil {
		return s.client, nil
	}

	config, err := s.clientConfig()
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: s.cfg.ConnectTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", s.address())
	if err != nil {
		return nil, errors.Wrap(ErrConnect, err.Error())
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, s.address(), config)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(ErrConnect, err.Error())
	}

	// clear the handshake deadline
	_ = conn.SetDeadline(time.Time{})

	s.client = ssh.NewClient(sshConn, chans, reqs)

	s.logger.WithField("user", s.cfg.User).Trace("ssh connection established")

	return s.client, nil
}

func (s *SSH) session(ctx context.Context) (*ssh.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err != nil {
		// the connection is stale, reconnect on the next call
		client.Close()
		s.client = nil

		return nil, errors.Wrap(ErrSession, err.Error())
	}

	return session, nil
}

// Run executes the command and returns its result, a non-zero exit is not an error.
//
// ErrRemoteSessionLost is returned when the remote end closed the session without an exit status.
func (s *SSH) Run(ctx context.Context, cmd string) (*model.CommandResult, error) {
	session, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	le := s.logger.WithField("cmd", cmd)
	le.Debug("remote command")

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		_ = session.Close()
		return nil, ctx.Err()
	case err = <-done:
	}

	result := &model.CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *ssh.ExitError
	var exitMissingErr *ssh.ExitMissingError

	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitStatus()
	case errors.As(err, &exitMissingErr):
		s.reset()
		le.Debug("remote session closed without exit status")

		return result, model.ErrRemoteSessionLost
	default:
		s.reset()
		return nil, errors.Wrap(ErrSession, err.Error())
	}

	le.WithFields(logrus.Fields{
		"exitCode": result.ExitCode,
		"stdout":   result.Stdout,
		"stderr":   result.Stderr,
	}).Debug("remote command result")

	return result, nil
}

func (s *SSH) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
}

// Close closes the connection, a subsequent Run reconnects.
func (s *SSH) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	err := s.client.Close()
	s.client = nil

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return errors.Wrap(ErrSession, fmt.Sprintf("close: %s", err.Error()))
	}

	return nil
}
