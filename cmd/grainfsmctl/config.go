package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ServeConfig configures the `serve` command's backends. Every section
// beyond ListenAddr is optional; a Postgres/NATS/Redis section left out
// of the file means that backend stays on its in-memory default.
type ServeConfig struct {
	ListenAddr string `toml:"listen_addr"`

	Postgres *PostgresConfig `toml:"postgres"`
	NATS     *NATSConfig     `toml:"nats"`
	Redis    *RedisConfig    `toml:"redis"`
}

// PostgresConfig, when present, mirrors registration metadata into
// Postgres (registry/pgregistry) and backs the event log with it
// (eventlog/pgeventstore) instead of the in-memory defaults.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	RegistryTable string `toml:"registry_table"`
	EventsTable   string `toml:"events_table"`
	SnapshotTable string `toml:"snapshot_table"`
	SchemaName    string `toml:"schema_name"`
}

// NATSConfig, when present, fans out appended events onto NATS
// subjects (eventlog/natsbus).
type NATSConfig struct {
	URL           string `toml:"url"`
	SubjectPrefix string `toml:"subject_prefix"`
}

// RedisConfig, when present, fans out appended events onto a Redis
// Stream (eventlog/redisbus).
type RedisConfig struct {
	Addr   string `toml:"addr"`
	MaxLen int64  `toml:"max_len"`
}

// defaultServeConfig is used when no --config flag is given: an
// in-memory registry with no mirror and an in-memory event store,
// listening on the same default address the admin client dials.
func defaultServeConfig() ServeConfig {
	return ServeConfig{ListenAddr: "localhost:9191"}
}

// loadServeConfig reads and parses a TOML config file at path,
// layering it over defaultServeConfig so a partial file only overrides
// what it sets.
func loadServeConfig(path string) (ServeConfig, error) {
	cfg := defaultServeConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file %q: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	return cfg, nil
}
