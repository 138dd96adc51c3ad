package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/storage"
	"gopkg.in/yaml.v3"
)

// FileBackend keeps every key in a single YAML mapping on disk. The whole
// file is rewritten on each change through a temp file and rename, so a
// crash never leaves a half-written document.
type FileBackend struct {
	path string
	mu   sync.Mutex
	data map[string]string
}

// NewFileBackend opens path, creating parent directories as needed. A missing
// file starts empty; an unreadable or malformed one is an error.
func NewFileBackend(path string) (*FileBackend, error) {
	if path == "" {
		return nil, vcerrors.NewConfigError("file backend path cannot be empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, vcerrors.NewStorageError("open", path, err)
	}
	b := &FileBackend{path: path, data: make(map[string]string)}
	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return b, nil
	case err != nil:
		return nil, vcerrors.NewStorageError("open", path, err)
	}
	if len(content) > 0 {
		if err := yaml.Unmarshal(content, &b.data); err != nil {
			return nil, vcerrors.NewStorageError("open", path, fmt.Errorf("malformed state file: %w", err))
		}
		if b.data == nil {
			b.data = make(map[string]string)
		}
	}
	return b, nil
}

func (b *FileBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *FileBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	next := maps.Clone(b.data)
	next[key] = value
	if err := b.write(next); err != nil {
		return vcerrors.NewStorageError("set", key, err)
	}
	b.data = next
	return nil
}

func (b *FileBackend) Remove(ctx context.Context, key string) error {
	return b.RemoveMany(ctx, key)
}

func (b *FileBackend) RemoveMany(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	next := maps.Clone(b.data)
	changed := false
	for _, k := range keys {
		if _, ok := next[k]; ok {
			delete(next, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := b.write(next); err != nil {
		return vcerrors.NewStorageError("remove_many", "", err)
	}
	b.data = next
	return nil
}

func (b *FileBackend) write(data map[string]string) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Path returns the backing file.
func (b *FileBackend) Path() string { return b.path }

// Close is a no-op; every change is already on disk.
func (b *FileBackend) Close() error { return nil }

var _ storage.Backend = (*FileBackend)(nil)
