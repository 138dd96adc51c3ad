package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	vcerrors "github.com/gxo-labs/visacheck/pkg/visacheck/v1/errors"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/storage"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// PostgresBackend stores keys in a two-column table.
type PostgresBackend struct {
	db    *sql.DB
	table string
	owned bool
}

// NewPostgresBackend uses an existing connection pool and creates the table
// if needed. The caller keeps ownership of db.
func NewPostgresBackend(ctx context.Context, db *sql.DB, table string) (*PostgresBackend, error) {
	b := &PostgresBackend{db: db, table: pgx.Identifier{table}.Sanitize()}
	if err := b.migrate(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// OpenPostgres opens a pool for dsn through the pgx driver.
// The returned backend closes the pool on Close.
func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresBackend, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, vcerrors.NewStorageError("open", table, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, vcerrors.NewStorageError("open", table, fmt.Errorf("postgres ping failed: %w", err))
	}
	b, err := NewPostgresBackend(ctx, db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	b.owned = true
	return b, nil
}

func (p *PostgresBackend) migrate(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, p.table)
	if _, err := p.db.ExecContext(ctx, stmt); err != nil {
		return vcerrors.NewStorageError("migrate", p.table, err)
	}
	return nil
}

func (p *PostgresBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, p.table), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, vcerrors.NewStorageError("get", key, err)
	}
	return value, true, nil
}

func (p *PostgresBackend) Set(ctx context.Context, key, value string) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, p.table)
	if _, err := p.db.ExecContext(ctx, stmt, key, value); err != nil {
		return vcerrors.NewStorageError("set", key, err)
	}
	return nil
}

func (p *PostgresBackend) Remove(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, p.table), key); err != nil {
		return vcerrors.NewStorageError("remove", key, err)
	}
	return nil
}

func (p *PostgresBackend) RemoveMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := make([]string, len(keys))
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = k
	}
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE key IN (%s)`, p.table, strings.Join(placeholders, ", "))
	if _, err := p.db.ExecContext(ctx, stmt, args...); err != nil {
		return vcerrors.NewStorageError("remove_many", "", err)
	}
	return nil
}

// Close closes the pool if the backend opened it.
func (p *PostgresBackend) Close() error {
	if !p.owned {
		return nil
	}
	return p.db.Close()
}

var _ storage.Backend = (*PostgresBackend)(nil)
