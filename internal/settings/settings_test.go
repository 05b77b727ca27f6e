package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elicheradice/support-platform/pkg/logger"
)

func TestOpenMissingFileDefaultsDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setting.json")

	st, err := Open(path, logger.NewNop())
	require.NoError(t, err)
	assert.False(t, st.Enabled())
}

func TestSetEnabledPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setting.json")

	st, err := Open(path, logger.NewNop())
	require.NoError(t, err)

	require.NoError(t, st.SetEnabled(true))
	assert.True(t, st.Enabled())

	reopened, err := Open(path, logger.NewNop())
	require.NoError(t, err)
	assert.True(t, reopened.Enabled())

	require.NoError(t, st.SetEnabled(false))
	reopened, err = Open(path, logger.NewNop())
	require.NoError(t, err)
	assert.False(t, reopened.Enabled())
}

func TestOpenCorruptFileDefaultsDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setting.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	st, err := Open(path, logger.NewNop())
	require.NoError(t, err)
	assert.False(t, st.Enabled())
}
