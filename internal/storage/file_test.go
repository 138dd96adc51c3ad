package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_Contract(t *testing.T) {
	b, err := NewFileBackend(filepath.Join(t.TempDir(), "state.yaml"))
	require.NoError(t, err)
	runBackendContract(t, b)
}

func TestFileBackend_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.yaml")
	ctx := context.Background()

	b, err := NewFileBackend(path)
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, "selectedNationality", "US"))
	require.NoError(t, b.Set(ctx, "comparisonDestinations", `["TH","JP","FR"]`))
	require.NoError(t, b.Close())

	reopened, err := NewFileBackend(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, "comparisonDestinations")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["TH","JP","FR"]`, v)
	assert.Equal(t, path, reopened.Path())
}

func TestFileBackend_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a mapping\n"), 0o600))

	_, err := NewFileBackend(path)
	var storageErr *vcerrors.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "open", storageErr.Op)
}

func TestFileBackend_EmptyPath(t *testing.T) {
	_, err := NewFileBackend("")
	var cfgErr *vcerrors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestFileBackend_FailedRenameLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.yaml")
	ctx := context.Background()

	b, err := NewFileBackend(path)
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, "mode", "single"))

	// A non-empty directory at the target path makes the rename fail.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "keep"), nil, 0o600))

	err = b.Set(ctx, "mode", "compare")
	var storageErr *vcerrors.StorageError
	require.ErrorAs(t, err, &storageErr)

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	v, _, _ := b.Get(ctx, "mode")
	assert.Equal(t, "single", v, "in-memory state is kept when the write fails")
}
