package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_Contract(t *testing.T) {
	runBackendContract(t, NewMemoryBackend())
}

func TestMemoryBackend_SnapshotIsCopy(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Set(context.Background(), "mode", "compare"))
	snap := b.Snapshot()
	snap["mode"] = "single"
	v, _, _ := b.Get(context.Background(), "mode")
	assert.Equal(t, "compare", v)
}

func TestMemoryBackend_CancelledContext(t *testing.T) {
	b := NewMemoryBackend()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Set(ctx, "mode", "single"), context.Canceled)
	_, _, err := b.Get(ctx, "mode")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryBackend_ConcurrentAccess(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Set(ctx, "mode", "compare")
			_, _, _ = b.Get(ctx, "mode")
			_ = b.Remove(ctx, "mode")
		}()
	}
	wg.Wait()
}
