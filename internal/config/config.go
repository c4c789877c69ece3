// Package config loads the process configuration from INTAKE_* environment
// variables. Command-line flags override the parsed values.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Config is the full runtime configuration.
type Config struct {
	Storage string `env:"INTAKE_STORAGE" envDefault:"sqlite"`
	DBPath  string `env:"INTAKE_DB_PATH" envDefault:"intake.db"`

	RedisAddr     string `env:"INTAKE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"INTAKE_REDIS_PASSWORD"`
	RedisDB       int    `env:"INTAKE_REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"INTAKE_REDIS_PREFIX" envDefault:"{intake}:"`

	// ScriptPath is a YAML script file; empty selects the embedded default.
	ScriptPath string `env:"INTAKE_SCRIPT"`

	OperatorChannel string `env:"INTAKE_OPERATOR_CHANNEL" envDefault:"operators"`
	Source          string `env:"INTAKE_SOURCE" envDefault:"telegram"`
	BackPolicy      string `env:"INTAKE_BACK_POLICY" envDefault:"last_answer"`
	EscalationNode  int    `env:"INTAKE_ESCALATION_NODE" envDefault:"0"`

	HTTPAddr   string `env:"INTAKE_HTTP_ADDR" envDefault:":8080"`
	WebhookURL string `env:"INTAKE_WEBHOOK_URL"`
	ExportDir  string `env:"INTAKE_EXPORT_DIR" envDefault:"exports"`

	LogLevel string        `env:"INTAKE_LOG_LEVEL" envDefault:"info"`
	LockTTL  time.Duration `env:"INTAKE_LOCK_TTL" envDefault:"30s"`

	// AuditLog writes one info line per turn, delivery and notification.
	AuditLog bool `env:"INTAKE_AUDIT_LOG" envDefault:"false"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Storage {
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("config: sqlite storage needs a db path")
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config: redis storage needs an address")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage)
	}
	if c.OperatorChannel == "" {
		return fmt.Errorf("config: operator channel is required")
	}
	if c.EscalationNode > 0 {
		return fmt.Errorf("config: escalation node %d must be terminal (<= 0)", c.EscalationNode)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("config: lock ttl must be positive")
	}
	return nil
}
