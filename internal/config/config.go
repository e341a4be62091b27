// Package config provides hierarchical configuration loading for Gatekeeper.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the guardrail core.
type Config struct {
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
	Postgres  Postgres  `yaml:"postgres"`
	NATS      NATS      `yaml:"nats"`
	Otel      Otel      `yaml:"otel"`
	Breaker   Breaker   `yaml:"breaker"`
	Rate      Rate      `yaml:"rate"`
	Proposals Proposals `yaml:"proposals"`
	Catalog   Catalog   `yaml:"catalog"`
	Cache     Cache     `yaml:"cache"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port string `yaml:"port"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Postgres holds PostgreSQL connection configuration. An empty DSN selects
// the in-memory proposal store.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// NATS holds the audit stream configuration. An empty URL disables audit
// publishing.
type NATS struct {
	URL string `yaml:"url"`
}

// Otel holds OpenTelemetry exporter configuration. An empty endpoint leaves
// the no-op meter provider in place.
type Otel struct {
	Endpoint string `yaml:"endpoint"`
}

// Breaker holds per-session circuit breaker configuration.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Cooldown    time.Duration `yaml:"cooldown"`
	MaxTurns    int           `yaml:"max_turns"`
	SweepEvery  int           `yaml:"sweep_every"`
	MaxSessions int           `yaml:"max_sessions"`
}

// Rate holds the per-scope admission windows.
type Rate struct {
	IPWindow      time.Duration `yaml:"ip_window"`
	IPMax         int           `yaml:"ip_max"`
	SessionWindow time.Duration `yaml:"session_window"`
	SessionMax    int           `yaml:"session_max"`
	ToolWindow    time.Duration `yaml:"tool_window"`
	ToolMax       int           `yaml:"tool_max"`
	MaxBuckets    int           `yaml:"max_buckets"`
}

// Proposals holds proposal lifecycle configuration.
type Proposals struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Catalog points at the tool catalog file. Empty selects the built-in
// reference catalog.
type Catalog struct {
	Path string `yaml:"path"`
}

// Cache holds notice cache configuration.
type Cache struct {
	NoticeTTL time.Duration `yaml:"notice_ttl"`
	MaxSizeMB int64         `yaml:"max_size_mb"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port: "8080",
		},
		Logging: Logging{
			Level:   "info",
			Service: "gatekeeper-core",
		},
		Postgres: Postgres{
			DSN:             "",
			MaxConns:        15,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Breaker: Breaker{
			MaxFailures: 3,
			Cooldown:    30 * time.Second,
			MaxTurns:    200,
			SweepEvery:  256,
			MaxSessions: 10000,
		},
		Rate: Rate{
			IPWindow:      15 * time.Minute,
			IPMax:         50,
			SessionWindow: time.Minute,
			SessionMax:    30,
			ToolWindow:    10 * time.Minute,
			ToolMax:       5,
			MaxBuckets:    100000,
		},
		Proposals: Proposals{
			TTL:           15 * time.Minute,
			SweepInterval: time.Minute,
		},
		Cache: Cache{
			NoticeTTL: 2 * time.Minute,
			MaxSizeMB: 16,
		},
	}
}
