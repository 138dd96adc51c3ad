package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gxo-labs/visacheck/internal/config"
	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, config.StorageSettings{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)

	path := filepath.Join(t.TempDir(), "s.yaml")
	b, err = Open(ctx, config.StorageSettings{Backend: config.BackendFile, File: &config.FileSettings{Path: path}})
	require.NoError(t, err)
	fb, ok := b.(*FileBackend)
	require.True(t, ok)
	assert.Equal(t, path, fb.Path())

	var cfgErr *vcerrors.ConfigError
	_, err = Open(ctx, config.StorageSettings{Backend: config.BackendRedis})
	assert.ErrorAs(t, err, &cfgErr)
	_, err = Open(ctx, config.StorageSettings{Backend: config.BackendPostgres})
	assert.ErrorAs(t, err, &cfgErr)
	_, err = Open(ctx, config.StorageSettings{Backend: "etcd"})
	assert.ErrorAs(t, err, &cfgErr)
}
