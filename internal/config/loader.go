package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "gatekeeper.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "GATEKEEPER_PORT")
	setString(&cfg.Logging.Level, "GATEKEEPER_LOG_LEVEL")
	setString(&cfg.Logging.Service, "GATEKEEPER_LOG_SERVICE")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "GATEKEEPER_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "GATEKEEPER_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "GATEKEEPER_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "GATEKEEPER_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "GATEKEEPER_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Otel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setInt(&cfg.Breaker.MaxFailures, "GATEKEEPER_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Cooldown, "GATEKEEPER_BREAKER_COOLDOWN")
	setInt(&cfg.Breaker.MaxTurns, "GATEKEEPER_BREAKER_MAX_TURNS")
	setInt(&cfg.Breaker.SweepEvery, "GATEKEEPER_BREAKER_SWEEP_EVERY")
	setInt(&cfg.Breaker.MaxSessions, "GATEKEEPER_BREAKER_MAX_SESSIONS")
	setDuration(&cfg.Rate.IPWindow, "GATEKEEPER_RATE_IP_WINDOW")
	setInt(&cfg.Rate.IPMax, "GATEKEEPER_RATE_IP_MAX")
	setDuration(&cfg.Rate.SessionWindow, "GATEKEEPER_RATE_SESSION_WINDOW")
	setInt(&cfg.Rate.SessionMax, "GATEKEEPER_RATE_SESSION_MAX")
	setDuration(&cfg.Rate.ToolWindow, "GATEKEEPER_RATE_TOOL_WINDOW")
	setInt(&cfg.Rate.ToolMax, "GATEKEEPER_RATE_TOOL_MAX")
	setInt(&cfg.Rate.MaxBuckets, "GATEKEEPER_RATE_MAX_BUCKETS")
	setDuration(&cfg.Proposals.TTL, "GATEKEEPER_PROPOSAL_TTL")
	setDuration(&cfg.Proposals.SweepInterval, "GATEKEEPER_PROPOSAL_SWEEP_INTERVAL")
	setString(&cfg.Catalog.Path, "GATEKEEPER_CATALOG_PATH")
	setDuration(&cfg.Cache.NoticeTTL, "GATEKEEPER_NOTICE_TTL")
	setInt64(&cfg.Cache.MaxSizeMB, "GATEKEEPER_CACHE_SIZE_MB")
}

// validate rejects configurations the guardrail cannot run safely with.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server port is required")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker max_failures must be >= 1")
	}
	if cfg.Breaker.Cooldown <= 0 {
		return errors.New("breaker cooldown must be > 0")
	}
	if cfg.Rate.IPWindow <= 0 || cfg.Rate.SessionWindow <= 0 || cfg.Rate.ToolWindow <= 0 {
		return errors.New("rate windows must be > 0")
	}
	if cfg.Rate.IPMax < 1 || cfg.Rate.SessionMax < 1 || cfg.Rate.ToolMax < 1 {
		return errors.New("rate maximums must be >= 1")
	}
	if cfg.Proposals.TTL <= 0 {
		return errors.New("proposal ttl must be > 0")
	}
	if cfg.Cache.NoticeTTL <= 0 {
		return errors.New("notice ttl must be > 0")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
