// Package config provides configuration loading for intaked.
//
// Configuration is loaded from a YAML file, then overridden by environment
// variables, then backfilled with defaults. See LoadWithFile for precedence
// and security rules.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete intaked configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Engine    EngineConfig    `koanf:"engine"`
	Schema    SchemaConfig    `koanf:"schema"`
	Store     StoreConfig     `koanf:"store"`
	Audit     AuditConfig     `koanf:"audit"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	// RateLimit caps session creation per client IP, in requests per second.
	// Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// EngineConfig holds dialogue engine configuration.
type EngineConfig struct {
	// MaxTurns bounds the number of answer rounds before a session fails.
	MaxTurns int `koanf:"max_turns"`
	// SessionTTL is the inactivity window after which a session times out.
	SessionTTL Duration `koanf:"session_ttl"`
	// SweepInterval controls how often expired sessions are reaped.
	// Defaults to one minute; expiry is also enforced lazily on access.
	SweepInterval Duration `koanf:"sweep_interval"`
}

// SchemaConfig holds program schema source configuration.
//
// Exactly one source style is required: a JSON document (Path) or a SQLite
// program catalog (CatalogPath). When both are set the JSON document wins
// for programs defined in both.
type SchemaConfig struct {
	Path        string `koanf:"path"`
	CatalogPath string `koanf:"catalog_path"`
	// Watch reloads the JSON document when it changes on disk.
	Watch bool `koanf:"watch"`
}

// StoreConfig holds session store configuration.
type StoreConfig struct {
	// Backend selects the session store implementation: "memory" or "redis".
	Backend string      `koanf:"backend"`
	Redis   RedisConfig `koanf:"redis"`
}

// RedisConfig holds connection settings for the Redis session store.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password Secret `koanf:"password"`
	DB       int    `koanf:"db"`
}

// AuditConfig holds audit trail configuration.
type AuditConfig struct {
	// Publish mirrors every appended audit entry onto NATS for downstream
	// observability consumers.
	Publish       bool   `koanf:"publish"`
	NATSURL       string `koanf:"nats_url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// LoggingConfig holds logger construction settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`
	// Protocol selects the OTLP transport: "grpc" or "http/protobuf".
	Protocol   string  `koanf:"protocol"`
	Insecure   bool    `koanf:"insecure"`
	SampleRate float64 `koanf:"sample_rate"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = int(cfg.Server.RateLimit) * 2
	}

	if cfg.Engine.MaxTurns == 0 {
		cfg.Engine.MaxTurns = 5
	}
	if cfg.Engine.SessionTTL == 0 {
		cfg.Engine.SessionTTL = Duration(30 * time.Minute)
	}
	if cfg.Engine.SweepInterval == 0 {
		cfg.Engine.SweepInterval = Duration(time.Minute)
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Store.Redis.Addr == "" {
		cfg.Store.Redis.Addr = "localhost:6379"
	}

	if cfg.Audit.NATSURL == "" {
		cfg.Audit.NATSURL = "nats://localhost:4222"
	}
	if cfg.Audit.SubjectPrefix == "" {
		cfg.Audit.SubjectPrefix = "intake.audit"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Shutdown timeout is not positive
//   - No schema source is configured
//   - Engine limits are not positive
//   - The store backend is unknown, or redis is selected without an address
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		return errors.New("rate limit cannot be negative")
	}

	if c.Schema.Path == "" && c.Schema.CatalogPath == "" {
		return errors.New("schema source required: set schema.path or schema.catalog_path")
	}

	if c.Engine.MaxTurns < 1 {
		return fmt.Errorf("engine max_turns must be at least 1, got %d", c.Engine.MaxTurns)
	}
	if c.Engine.SessionTTL.Duration() <= 0 {
		return errors.New("engine session_ttl must be positive")
	}

	switch c.Store.Backend {
	case "memory":
	case "redis":
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr required for redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q (must be memory or redis)", c.Store.Backend)
	}

	if c.Audit.Publish && c.Audit.NATSURL == "" {
		return errors.New("audit.nats_url required when audit publishing is enabled")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging format %q (must be json or console)", c.Logging.Format)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return errors.New("telemetry endpoint required when telemetry is enabled")
		}
		switch c.Telemetry.Protocol {
		case "grpc", "http/protobuf":
		default:
			return fmt.Errorf("unknown telemetry protocol %q (must be grpc or http/protobuf)", c.Telemetry.Protocol)
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			return fmt.Errorf("telemetry sample_rate must be in [0.0, 1.0], got %f", c.Telemetry.SampleRate)
		}
	}

	return nil
}
