package app

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/orderdesk/internal/ordernumber"
)

// Backends carries the connections a counter store may be built on. Nil
// fields mean the connection was not opened.
type Backends struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

// OpenCounterStore builds the store selected by COUNTER_BACKEND.
func OpenCounterStore(cfg *Config, b Backends) (ordernumber.CounterStore, error) {
	switch cfg.CounterBackend {
	case BackendMemory, "":
		return ordernumber.NewMemoryStore(), nil
	case BackendRedis:
		if b.Redis == nil {
			return nil, fmt.Errorf("app: counter backend %q needs a redis client", cfg.CounterBackend)
		}
		return ordernumber.NewRedisStore(b.Redis), nil
	case BackendPostgres:
		if b.Pool == nil {
			return nil, fmt.Errorf("app: counter backend %q needs a database pool", cfg.CounterBackend)
		}
		return ordernumber.NewPostgresStore(b.Pool), nil
	case BackendPebble:
		store, err := ordernumber.OpenPebbleStore(cfg.PebbleDir, &pebble.Options{})
		if err != nil {
			return nil, fmt.Errorf("app: open pebble counters: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("app: unknown counter backend %q", cfg.CounterBackend)
	}
}
