package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/watch"
)

func TestWatchCmd_Flags(t *testing.T) {
	flag := watchCmd.Flags().Lookup("settle")
	require.NotNil(t, flag)
	assert.Equal(t, watch.DefaultSettle.String(), flag.DefValue)
}

func TestWatchCmd_MissingDir(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "watch", filepath.Join(t.TempDir(), "missing"))

	require.Error(t, err)
	assert.Equal(t, 1, ts.orch.Mounts)
	assert.True(t, ts.closed)
}

func TestWatchCmd_RequiresDir(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "watch")

	assert.Error(t, err)
}
