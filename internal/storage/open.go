package storage

import (
	"context"
	"fmt"

	"github.com/gxo-labs/visacheck/internal/config"
	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/storage"
)

// Open builds the backend selected by settings.
func Open(ctx context.Context, s config.StorageSettings) (storage.Backend, error) {
	switch s.Backend {
	case "", config.BackendMemory:
		return NewMemoryBackend(), nil
	case config.BackendFile:
		path := config.DefaultStateFile
		if s.File != nil && s.File.Path != "" {
			path = s.File.Path
		}
		return NewFileBackend(path)
	case config.BackendRedis:
		if s.Redis == nil {
			return nil, vcerrors.NewConfigError("redis backend requires redis settings", nil)
		}
		prefix := s.Redis.KeyPrefix
		if prefix == "" {
			prefix = config.DefaultRedisPrefix
		}
		return DialRedis(ctx, s.Redis.Addr, s.Redis.Password, s.Redis.DB, prefix)
	case config.BackendPostgres:
		if s.Postgres == nil {
			return nil, vcerrors.NewConfigError("postgres backend requires postgres settings", nil)
		}
		table := s.Postgres.Table
		if table == "" {
			table = config.DefaultPostgresTable
		}
		return OpenPostgres(ctx, s.Postgres.DSN, table)
	default:
		return nil, vcerrors.NewConfigError(fmt.Sprintf("unknown storage backend '%s'", s.Backend), nil)
	}
}
