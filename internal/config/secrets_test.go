package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func envOf(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestApplySecrets(t *testing.T) {
	s := DefaultSettings()
	s.Storage.Redis = &RedisSettings{Addr: "localhost:6379", Password: "from-file"}
	s.Storage.Postgres = &PostgresSettings{DSN: "postgres://app@db/visacheck"}

	s.ApplySecrets(envOf(map[string]string{
		EnvRedisPassword: "from-env",
		EnvPostgresDSN:   "postgres://app:pw@db/visacheck",
	}))
	assert.Equal(t, "from-env", s.Storage.Redis.Password)
	assert.Equal(t, "postgres://app:pw@db/visacheck", s.Storage.Postgres.DSN)
}

func TestApplySecrets_IgnoresMissingBlocks(t *testing.T) {
	s := DefaultSettings()
	s.ApplySecrets(envOf(map[string]string{EnvRedisPassword: "x"}))
	assert.Nil(t, s.Storage.Redis)
	s.ApplySecrets(nil)
}

func TestRedacted(t *testing.T) {
	s := DefaultSettings()
	s.Storage.Redis = &RedisSettings{Addr: "localhost:6379", Password: "hunter2"}
	s.Storage.Postgres = &PostgresSettings{DSN: "postgres://app:hunter2@db:5432/visacheck?sslmode=disable"}

	r := s.Redacted()
	assert.Equal(t, RedactedValue, r.Storage.Redis.Password)
	assert.NotContains(t, r.Storage.Postgres.DSN, "hunter2")
	assert.Contains(t, r.Storage.Postgres.DSN, "db:5432/visacheck")
	assert.Equal(t, "hunter2", s.Storage.Redis.Password, "original is untouched")
}

func TestRedactDSN(t *testing.T) {
	cases := map[string]struct {
		in       string
		contains string
	}{
		"url without password": {"postgres://app@db/visacheck", "postgres://app@db/visacheck"},
		"keyword form":         {"host=db user=app password=hunter2 dbname=v", "password=" + RedactedValue},
		"quoted keyword":       {"host=db password='hun ter2' dbname=v", "password=" + RedactedValue + " dbname=v"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			out := RedactDSN(tc.in)
			assert.Contains(t, out, tc.contains)
			assert.NotContains(t, out, "hunter2")
			assert.NotContains(t, out, "hun ter2")
		})
	}
}
