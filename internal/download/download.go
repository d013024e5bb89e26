package download

import (
	"context"
	"crypto/md5" // nolint:gosec // md5 sums are published with vendor firmware
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/metal-toolbox/dutfw/internal/metrics"
	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	downloadRetryDelay = 4 * time.Second
	// allow upto 5 minutes of timeout for downloading over slow connections
	downloadClientTimeout = 300 * time.Second

	ErrDownload = errors.New("error downloading file")
	ErrChecksum = errors.New("error validating file checksum")
	ErrFormat   = errors.New("bad checksum format")
)

// Downloader fetches firmware files into a local directory.
type Downloader struct {
	client *retryablehttp.Client
	dir    string
	logger *logrus.Entry
}

// New returns a Downloader that stores files under dir, an empty dir defaults to the OS temp directory.
func New(dir string, logger *logrus.Entry) *Downloader {
	if dir == "" {
		dir = os.TempDir()
	}

	client := retryablehttp.NewClient()
	client.RetryWaitMin = downloadRetryDelay
	client.Logger = nil
	client.HTTPClient.Timeout = downloadClientTimeout

	return &Downloader{client: client, dir: dir, logger: logger}
}

// Fetch downloads the firmware file and validates its checksum, returning the local file path.
//
// The file is removed when the checksum does not match.
func (d *Downloader) Fetch(ctx context.Context, firmware *model.Firmware) (string, error) {
	if err := os.MkdirAll(d.dir, 0o750); err != nil {
		return "", errors.Wrap(ErrDownload, err.Error())
	}

	dst := filepath.Join(d.dir, filepath.Base(firmware.FileName))

	le := d.logger.WithFields(logrus.Fields{
		"url":     firmware.URL,
		"file":    dst,
		"version": firmware.Version,
	})

	le.Info("downloading firmware")

	startTS := time.Now()

	if err := d.fromURLToFile(ctx, firmware.URL, dst); err != nil {
		_ = os.Remove(dst)
		return "", err
	}

	if err := ChecksumValidate(dst, firmware.Checksum); err != nil {
		_ = os.Remove(dst)
		return "", err
	}

	if info, err := os.Stat(dst); err == nil {
		metrics.DownloadBytes.With(
			prometheus.Labels{
				"component": firmware.Component,
				"vendor":    firmware.Vendor,
			},
		).Add(float64(info.Size()))
	}

	le.WithField("elapsed", time.Since(startTS).String()).Debug("firmware downloaded and checksum validated")

	return dst, nil
}

// fromURLToFile fetches the file into dst
func (d *Downloader) fromURLToFile(ctx context.Context, fileURL, dst string) error {
	fileHandle, err := os.Create(dst)
	if err != nil {
		return errors.Wrap(ErrDownload, err.Error())
	}

	defer fileHandle.Close()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return errors.Wrap(ErrDownload, err.Error())
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return errors.Wrap(ErrDownload, err.Error())
	}
	defer resp.Body.Close()

	// Check server response
	if resp.StatusCode != http.StatusOK {
		return errors.Wrap(ErrDownload, fmt.Sprintf("URL: %s, status code %s", fileURL, resp.Status))
	}

	if _, err = io.Copy(fileHandle, resp.Body); err != nil {
		return errors.Wrap(ErrDownload, err.Error())
	}

	return nil
}

// ChecksumValidate compares the file digest with the checksum,
// the checksum is of the form [md5sum:|sha256:]<hex digest>, md5sum is the default.
func ChecksumValidate(filename, checksum string) error {
	digest := "md5sum"
	expected := checksum

	if strings.Contains(checksum, ":") {
		parts := strings.Split(checksum, ":")
		if len(parts) != 2 {
			return errors.Wrap(ErrFormat, "invalid checksum: "+checksum)
		}

		digest, expected = parts[0], parts[1]
	}

	var h hash.Hash

	switch digest {
	case "md5sum":
		// nolint:gosec // md5 sums are published with vendor firmware
		h = md5.New()
	case "sha256":
		h = sha256.New()
	default:
		return errors.Wrap(ErrFormat, "unsupported digest: "+digest)
	}

	if filename == "" {
		return errors.Wrap(ErrChecksum, "expected a filename to validate checksum")
	}

	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(ErrChecksum, err.Error()+filename)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return errors.Wrap(ErrChecksum, err.Error())
	}

	calculated := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(expected, calculated) {
		return errors.Wrap(
			ErrChecksum,
			fmt.Sprintf("filename: %s expected: %s, got: %s", filename, expected, calculated),
		)
	}

	return nil
}
