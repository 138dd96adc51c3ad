package storage

import (
	"context"
	"testing"

	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runBackendContract exercises the behaviour every backend must share.
func runBackendContract(t *testing.T, b storage.Backend) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := b.Get(ctx, "selectedNationality")
	require.NoError(t, err)
	assert.False(t, ok, "fresh backend must be empty")

	require.NoError(t, b.Set(ctx, "selectedNationality", "US"))
	require.NoError(t, b.Set(ctx, "selectedDestination", "TH"))
	require.NoError(t, b.Set(ctx, "comparisonDestinations", `["TH","JP"]`))

	v, ok, err := b.Get(ctx, "selectedNationality")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "US", v)

	require.NoError(t, b.Set(ctx, "selectedNationality", "ZA"))
	v, _, _ = b.Get(ctx, "selectedNationality")
	assert.Equal(t, "ZA", v)

	require.NoError(t, b.Remove(ctx, "comparisonDestinations"))
	_, ok, err = b.Get(ctx, "comparisonDestinations")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Remove(ctx, "never-set"), "removing a missing key is not an error")

	require.NoError(t, b.RemoveMany(ctx, "selectedNationality", "selectedDestination", "missing"))
	for _, k := range []string{"selectedNationality", "selectedDestination"} {
		_, ok, err := b.Get(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, k)
	}
	require.NoError(t, b.RemoveMany(ctx))
}
