package app

import (
	"context"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/orderdesk/internal/ordernumber"
)

func TestOpenCounterStoreSelectsBackend(t *testing.T) {
	ctx := context.Background()

	store, err := OpenCounterStore(&Config{CounterBackend: BackendMemory}, Backends{})
	require.NoError(t, err)
	assert.IsType(t, &ordernumber.MemoryStore{}, store)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store, err = OpenCounterStore(&Config{CounterBackend: BackendRedis}, Backends{Redis: client})
	require.NoError(t, err)
	v, err := store.Incr(ctx, "admin:20240115")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	store, err = OpenCounterStore(&Config{CounterBackend: BackendPebble, PebbleDir: t.TempDir()}, Backends{})
	require.NoError(t, err)
	v, err = store.Incr(ctx, "portal:20240115")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	require.NoError(t, store.(io.Closer).Close())
}

func TestOpenCounterStoreMissingConnection(t *testing.T) {
	_, err := OpenCounterStore(&Config{CounterBackend: BackendRedis}, Backends{})
	assert.Error(t, err)
	_, err = OpenCounterStore(&Config{CounterBackend: BackendPostgres}, Backends{})
	assert.Error(t, err)
	_, err = OpenCounterStore(&Config{CounterBackend: "zookeeper"}, Backends{})
	assert.Error(t, err)
}
