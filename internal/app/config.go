package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Counter backends accepted by COUNTER_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendPebble   = "pebble"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	RateLimitPerMin   int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"600"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// PGDSN is optional. Without it orders, the stock journal and audit
	// records live in process memory.
	PGDSN      string `envconfig:"PG_DSN"`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"10"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	CounterBackend string `envconfig:"COUNTER_BACKEND" default:"memory"`
	PebbleDir      string `envconfig:"PEBBLE_DIR" default:"data/counters"`

	AdminToken string `envconfig:"ADMIN_TOKEN"`

	NATSURL      string `envconfig:"NATS_URL"`
	DriftSubject string `envconfig:"DRIFT_SUBJECT" default:"stock.drift"`

	ReconcileCron     string `envconfig:"RECONCILE_CRON" default:"@every 15m"`
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.CounterBackend {
	case BackendMemory, BackendRedis, BackendPebble:
	case BackendPostgres:
		if c.PGDSN == "" {
			return errors.New("PG_DSN must be set when COUNTER_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown COUNTER_BACKEND %q", c.CounterBackend)
	}
	if c.CounterBackend == BackendPebble && c.PebbleDir == "" {
		return errors.New("PEBBLE_DIR must be set when COUNTER_BACKEND=pebble")
	}
	if c.IsProduction() && c.AdminToken == "" {
		return errors.New("admin token must be provided in production")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// HasDatabase reports whether a Postgres DSN was configured.
func (c *Config) HasDatabase() bool {
	return c != nil && c.PGDSN != ""
}
