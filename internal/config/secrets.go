package config

import (
	"net/url"
	"regexp"
)

// Environment variables that override connection secrets in a settings file.
const (
	EnvRedisPassword = "VISACHECK_REDIS_PASSWORD"
	EnvPostgresDSN   = "VISACHECK_POSTGRES_DSN"
)

// RedactedValue replaces secret values in loggable settings.
const RedactedValue = "[REDACTED]"

// LookupFunc resolves an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplySecrets overrides the Redis password and the Postgres DSN from the
// environment when the corresponding storage block is present.
func (s *Settings) ApplySecrets(lookup LookupFunc) {
	if lookup == nil {
		return
	}
	if s.Storage.Redis != nil {
		if v, ok := lookup(EnvRedisPassword); ok {
			s.Storage.Redis.Password = v
		}
	}
	if s.Storage.Postgres != nil {
		if v, ok := lookup(EnvPostgresDSN); ok && v != "" {
			s.Storage.Postgres.DSN = v
		}
	}
}

// Redacted returns a copy of s that is safe to log.
func (s *Settings) Redacted() Settings {
	out := *s
	if s.Storage.Redis != nil {
		r := *s.Storage.Redis
		if r.Password != "" {
			r.Password = RedactedValue
		}
		out.Storage.Redis = &r
	}
	if s.Storage.Postgres != nil {
		p := *s.Storage.Postgres
		p.DSN = RedactDSN(p.DSN)
		out.Storage.Postgres = &p
	}
	return out
}

var keywordPassword = regexp.MustCompile(`(?i)(password\s*=\s*)('[^']*'|\S+)`)

// RedactDSN masks the password of a URL or keyword/value connection string.
func RedactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.User != nil {
		if _, has := u.User.Password(); has {
			u.User = url.UserPassword(u.User.Username(), RedactedValue)
			return u.String()
		}
		return dsn
	}
	return keywordPassword.ReplaceAllString(dsn, "${1}"+RedactedValue)
}
