package ordernumber

import (
	"context"
	"errors"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func newPebbleStore(t *testing.T) *PebbleStore {
	t.Helper()
	store, err := OpenPebbleStore("counters", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func storeSuite(t *testing.T, store CounterStore) {
	ctx := context.Background()

	val, err := store.Get(ctx, "admin:20240115")
	require.NoError(t, err)
	assert.Zero(t, val)

	for want := int64(1); want <= 3; want++ {
		got, err := store.Incr(ctx, "admin:20240115")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := store.Incr(ctx, "portal:20240115")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	val, err = store.Get(ctx, "admin:20240115")
	require.NoError(t, err)
	assert.Equal(t, int64(3), val)

	require.NoError(t, store.Reset(ctx))
	val, err = store.Get(ctx, "admin:20240115")
	require.NoError(t, err)
	assert.Zero(t, val)
	got, err = store.Incr(ctx, "portal:20240115")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestMemoryStore(t *testing.T) {
	storeSuite(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	store, mr := newRedisStore(t)
	storeSuite(t, store)

	_, err := store.Incr(context.Background(), "rep:u1:20240115")
	require.NoError(t, err)
	raw, err := mr.Get(redisKeyPrefix + "rep:u1:20240115")
	require.NoError(t, err)
	assert.Equal(t, "1", raw)
}

func TestRedisStoreResetKeepsForeignKeys(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set("analytics:version", "4"))

	_, err := store.Incr(context.Background(), "admin:20240115")
	require.NoError(t, err)
	require.NoError(t, store.Reset(context.Background()))

	assert.False(t, mr.Exists(redisKeyPrefix+"admin:20240115"))
	assert.True(t, mr.Exists("analytics:version"))
}

func TestRedisStoreSharedAcrossGenerators(t *testing.T) {
	store, _ := newRedisStore(t)
	a := NewGenerator(store, GeneratorConfig{})
	b := NewGenerator(store, GeneratorConfig{})
	ctx := context.Background()

	var wg sync.WaitGroup
	numbers := make(chan string, 40)
	for _, gen := range []*Generator{a, b} {
		wg.Add(1)
		go func(gen *Generator) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				n, err := gen.Generate(ctx, ChannelAdmin, "", jan15)
				if err != nil {
					t.Error(err)
					return
				}
				numbers <- n
			}
		}(gen)
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for n := range numbers {
		require.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
	assert.Len(t, seen, 40)
}

func TestPebbleStore(t *testing.T) {
	storeSuite(t, newPebbleStore(t))
}

func TestPebbleStoreSurvivesReopen(t *testing.T) {
	fs := vfs.NewMem()
	ctx := context.Background()

	store, err := OpenPebbleStore("counters", &pebble.Options{FS: fs})
	require.NoError(t, err)
	gen := NewGenerator(store, GeneratorConfig{})
	_, err = gen.Generate(ctx, ChannelAdmin, "", jan15)
	require.NoError(t, err)
	require.NoError(t, gen.Close())

	reopened, err := OpenPebbleStore("counters", &pebble.Options{FS: fs})
	require.NoError(t, err)
	defer reopened.Close()
	got, err := NewGenerator(reopened, GeneratorConfig{}).Generate(ctx, ChannelAdmin, "", jan15)
	require.NoError(t, err)
	assert.Equal(t, "ADM-20240115-002", got)
}

type fakeRow struct {
	val int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.val
	return nil
}

type fakeDB struct {
	mu       sync.Mutex
	counters map[string]int64
	execs    []string
	failWith error
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...interface{}) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, sql)
	if sql == resetCountersSQL {
		f.counters = map[string]int64{}
	}
	return pgconn.NewCommandTag("DELETE"), nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...interface{}) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return fakeRow{err: f.failWith}
	}
	key := args[0].(string)
	switch sql {
	case incrCounterSQL:
		f.counters[key]++
		return fakeRow{val: f.counters[key]}
	case getCounterSQL:
		val, ok := f.counters[key]
		if !ok {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{val: val}
	}
	return fakeRow{err: errors.New("unexpected query")}
}

func TestPostgresStore(t *testing.T) {
	db := &fakeDB{counters: map[string]int64{}}
	storeSuite(t, NewPostgresStore(db))
	assert.Equal(t, []string{resetCountersSQL}, db.execs)
}

func TestPostgresStoreWrapsErrors(t *testing.T) {
	db := &fakeDB{counters: map[string]int64{}, failWith: errors.New("connection reset")}
	store := NewPostgresStore(db)

	_, err := store.Incr(context.Background(), "admin:20240115")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres incr")

	_, err = store.Get(context.Background(), "admin:20240115")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres get")
}
