// Package storage provides the key-value backends that hold persisted
// selection state: an in-process map, a YAML file, Redis and PostgreSQL.
package storage

import (
	"context"
	"maps"
	"sync"

	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/storage"
)

//go:generate mockgen -destination=storagemock/backend_mock.go -package=storagemock github.com/gxo-labs/visacheck/pkg/visacheck/v1/storage Backend

// MemoryBackend implements storage.Backend with a map guarded by a RWMutex.
// State is lost when the process exits.
type MemoryBackend struct {
	data map[string]string
	mu   sync.RWMutex
}

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryBackend) Remove(ctx context.Context, key string) error {
	return m.RemoveMany(ctx, key)
}

func (m *MemoryBackend) RemoveMany(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Snapshot returns a copy of every stored key and value.
func (m *MemoryBackend) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.data)
}

// Close is a no-op.
func (m *MemoryBackend) Close() error {
	return nil
}

var _ storage.Backend = (*MemoryBackend)(nil)
