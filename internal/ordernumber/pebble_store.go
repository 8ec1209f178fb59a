package ordernumber

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
)

const pebbleKeyPrefix = "counter/"

// PebbleStore persists counters on local disk so a single process survives
// restarts without reissuing numbers. It does not coordinate across processes.
type PebbleStore struct {
	mu sync.Mutex
	db *pebble.DB
}

// OpenPebbleStore opens (or creates) the store at dir. opts may be nil.
func OpenPebbleStore(dir string, opts *pebble.Options) (*PebbleStore, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("ordernumber: open pebble: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// Close releases the underlying database.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}

// Incr implements CounterStore.
func (s *PebbleStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.read(key)
	if err != nil {
		return 0, err
	}
	next := cur + 1
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(next))
	if err := s.db.Set(pebbleKey(key), buf[:], pebble.Sync); err != nil {
		return 0, fmt.Errorf("ordernumber: pebble set: %w", err)
	}
	return next, nil
}

// Get implements CounterStore.
func (s *PebbleStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(key)
}

// Reset implements CounterStore.
func (s *PebbleStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lower := []byte(pebbleKeyPrefix)
	upper := []byte(pebbleKeyPrefix + "\xff")
	if err := s.db.DeleteRange(lower, upper, pebble.Sync); err != nil {
		return fmt.Errorf("ordernumber: pebble reset: %w", err)
	}
	return nil
}

func (s *PebbleStore) read(key string) (int64, error) {
	val, closer, err := s.db.Get(pebbleKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ordernumber: pebble get: %w", err)
	}
	defer closer.Close()
	if len(val) != 8 {
		return 0, fmt.Errorf("ordernumber: corrupt counter %q", key)
	}
	return int64(binary.BigEndian.Uint64(val)), nil
}

func pebbleKey(key string) []byte {
	return []byte(pebbleKeyPrefix + key)
}
