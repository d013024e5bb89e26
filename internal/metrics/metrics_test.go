package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	RunCounter.WithLabelValues("upgrade", "inband", "verified").Inc()

	path := filepath.Join(t.TempDir(), "dutfw.prom")
	require.NoError(t, WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `dutfw_runs_total{action="upgrade",family="inband",state="verified"} 1`)

	err = WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "dutfw.prom"))
	require.ErrorIs(t, err, ErrTextfileWrite)
}

func TestCommandResult(t *testing.T) {
	assert.Equal(t, "success", CommandResult(0))
	assert.Equal(t, "exit_nonzero", CommandResult(2))
	assert.Equal(t, "error", CommandResult(-1))

}
