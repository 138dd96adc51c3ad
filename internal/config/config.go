package config

import "time"

// Storage backend identifiers accepted in settings.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendFile     = "file"
)

// Settings is the top-level structure of a visacheck settings YAML file.
type Settings struct {
	SchemaVersion string          `yaml:"schemaVersion"`
	Log           LogSettings     `yaml:"log,omitempty"`
	Storage       StorageSettings `yaml:"storage,omitempty"`
	Rules         RulesSettings   `yaml:"rules,omitempty"`
	HTTP          HTTPSettings    `yaml:"http,omitempty"`

	// FilePath is the source file of the settings, for log and error context.
	// It is not parsed from the YAML.
	FilePath string `yaml:"-"`
}

// LogSettings configures the structured logger.
type LogSettings struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// StorageSettings selects and configures the selection-state backend.
type StorageSettings struct {
	Backend  string            `yaml:"backend,omitempty"`
	Redis    *RedisSettings    `yaml:"redis,omitempty"`
	Postgres *PostgresSettings `yaml:"postgres,omitempty"`
	File     *FileSettings     `yaml:"file,omitempty"`
}

// RedisSettings configures the Redis backend.
type RedisSettings struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password,omitempty"`
	DB        int    `yaml:"db,omitempty"`
	KeyPrefix string `yaml:"key_prefix,omitempty"`
}

// PostgresSettings configures the PostgreSQL backend.
type PostgresSettings struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table,omitempty"`
}

// FileSettings configures the YAML file backend.
type FileSettings struct {
	Path string `yaml:"path"`
}

// RulesSettings controls rule table loading.
type RulesSettings struct {
	Preload      bool   `yaml:"preload,omitempty"`
	LoadAttempts int    `yaml:"load_attempts,omitempty"`
	LoadDelay    string `yaml:"load_delay,omitempty"`
}

// HTTPSettings configures the optional HTTP API.
type HTTPSettings struct {
	Addr string `yaml:"addr,omitempty"`
}

// Default values applied when a setting is absent.
const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultLoadAttempts  = 1
	DefaultHTTPAddr      = ":8080"
	DefaultRedisPrefix   = "visacheck:"
	DefaultPostgresTable = "visacheck_state"
	DefaultStateFile     = "visacheck-state.yaml"
)

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() *Settings {
	return &Settings{
		SchemaVersion: "v1.0.0",
		Log:           LogSettings{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Storage:       StorageSettings{Backend: BackendMemory},
		Rules:         RulesSettings{LoadAttempts: DefaultLoadAttempts},
		HTTP:          HTTPSettings{Addr: DefaultHTTPAddr},
	}
}

// LoadDelayDuration parses Rules.LoadDelay. An empty value means no delay.
// Settings returned by LoadSettings have already been validated.
func (s *Settings) LoadDelayDuration() time.Duration {
	if s.Rules.LoadDelay == "" {
		return 0
	}
	d, err := time.ParseDuration(s.Rules.LoadDelay)
	if err != nil {
		return 0
	}
	return d
}

// applyDefaults fills unset fields after decoding.
func (s *Settings) applyDefaults() {
	if s.Log.Level == "" {
		s.Log.Level = DefaultLogLevel
	}
	if s.Log.Format == "" {
		s.Log.Format = DefaultLogFormat
	}
	if s.Storage.Backend == "" {
		s.Storage.Backend = BackendMemory
	}
	if s.Rules.LoadAttempts == 0 {
		s.Rules.LoadAttempts = DefaultLoadAttempts
	}
	if s.HTTP.Addr == "" {
		s.HTTP.Addr = DefaultHTTPAddr
	}
	if s.Storage.Redis != nil && s.Storage.Redis.KeyPrefix == "" {
		s.Storage.Redis.KeyPrefix = DefaultRedisPrefix
	}
	if s.Storage.Postgres != nil && s.Storage.Postgres.Table == "" {
		s.Storage.Postgres.Table = DefaultPostgresTable
	}
	if s.Storage.Backend == BackendFile && s.Storage.File == nil {
		s.Storage.File = &FileSettings{Path: DefaultStateFile}
	}
}
