package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumValidate(t *testing.T) {
	tests := []struct {
		testName      string
		filename      string
		checksum      string
		expectedError error
	}{
		{
			"no checksum prefix defined, default to md5",
			"foo.bin",
			"1649cff06611a6025da3dd511a97fb43", // file contents 'BLOB'
			nil,
		},
		{
			"md5 prefix defined",
			"foo.bin",
			"md5sum:1649cff06611a6025da3dd511a97fb43",
			nil,
		},
		{
			"sha256 prefix defined",
			"foo.bin",
			"sha256:671a0d168d8e3d31819402ac7c3a3cc0abedebbf6a4cda26deacd89724bd6bdc",
			nil,
		},
		{
			"upper case digest",
			"foo.bin",
			"1649CFF06611A6025DA3DD511A97FB43",
			nil,
		},
		{
			"checksum is wrong",
			"foo.bin",
			"md5sum:bee8af7a84cb640cff90cf31fbf56950",
			ErrChecksum,
		},
		{
			"too many colons",
			"foo.bin",
			"md5sum:1649:cff06611a6025da3dd511a97fb43",
			ErrFormat,
		},
		{
			"unsupported digest format",
			"foo.bin",
			"vince:some-digest-format",
			ErrFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			tmpdir := t.TempDir()
			binPath := filepath.Join(tmpdir, tt.filename)
			err := os.WriteFile(binPath, []byte(`BLOB`), 0600)
			if err != nil {
				t.Fatal(err)
			}

			err = ChecksumValidate(binPath, tt.checksum)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}

			assert.Nil(t, err)
		})
	}
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fw/BIOS_1.2.bin":
			_, _ = w.Write([]byte(`BLOB`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	tests := []struct {
		name          string
		firmware      *model.Firmware
		expectedError error
	}{
		{
			"downloaded and validated",
			&model.Firmware{URL: server.URL + "/fw/BIOS_1.2.bin", FileName: "BIOS_1.2.bin", Checksum: "1649cff06611a6025da3dd511a97fb43"},
			nil,
		},
		{
			"checksum mismatch",
			&model.Firmware{URL: server.URL + "/fw/BIOS_1.2.bin", FileName: "BIOS_1.2.bin", Checksum: "bee8af7a84cb640cff90cf31fbf56950"},
			ErrChecksum,
		},
		{
			"not found",
			&model.Firmware{URL: server.URL + "/fw/missing.bin", FileName: "missing.bin", Checksum: "bee8af7a84cb640cff90cf31fbf56950"},
			ErrDownload,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			d := New(dir, logrus.NewEntry(&logrus.Logger{}))
			// no retries on 404
			d.client.RetryMax = 0

			got, err := d.Fetch(context.Background(), tc.firmware)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)

				_, statErr := os.Stat(filepath.Join(dir, tc.firmware.FileName))
				assert.True(t, os.IsNotExist(statErr), "failed download is removed")

				return
			}

			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, "BIOS_1.2.bin"), got)

			b, err := os.ReadFile(got)
			require.NoError(t, err)
			assert.Equal(t, "BLOB", string(b))
		})
	}
}
