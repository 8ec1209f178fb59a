package ordernumber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// IssueObserver is notified after every successfully issued number.
type IssueObserver interface {
	OrderNumberIssued(channel string)
}

// GeneratorConfig groups optional settings.
type GeneratorConfig struct {
	// Now supplies the reference date when a request carries none.
	Now      func() time.Time
	Observer IssueObserver
}

// Generator issues order numbers. One instance is shared by every caller in a
// process; share the CounterStore as well when several processes issue
// numbers for the same day.
type Generator struct {
	store    CounterStore
	now      func() time.Time
	observer IssueObserver
}

// NewGenerator builds a Generator over store.
func NewGenerator(store CounterStore, cfg GeneratorConfig) *Generator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Generator{store: store, now: now, observer: cfg.Observer}
}

// Issued is a generated order number together with the counter key that
// produced it.
type Issued struct {
	Number string
	Key    string
}

// Generate returns the next order number for channel. A zero at means now.
// Invalid requests fail before the store is touched.
func (g *Generator) Generate(ctx context.Context, channel Channel, actorID string, at time.Time) (string, error) {
	issued, err := g.Issue(ctx, channel, actorID, at)
	if err != nil {
		return "", err
	}
	return issued.Number, nil
}

// Issue is Generate that also reports the counter key.
func (g *Generator) Issue(ctx context.Context, channel Channel, actorID string, at time.Time) (Issued, error) {
	if g == nil || g.store == nil {
		return Issued{}, errors.New("ordernumber: generator not initialised")
	}
	if at.IsZero() {
		at = g.now()
	}
	key, err := KeyFor(channel, actorID, at)
	if err != nil {
		return Issued{}, err
	}
	prefix, err := Prefix(channel, actorID)
	if err != nil {
		return Issued{}, err
	}
	seq, err := g.store.Incr(ctx, key)
	if err != nil {
		return Issued{}, fmt.Errorf("ordernumber: advance %s: %w", key, err)
	}
	if g.observer != nil {
		g.observer.OrderNumberIssued(string(channel))
	}
	return Issued{Number: Format(prefix, at, seq), Key: key}, nil
}

// Counter peeks at the current value for a derived key; 0 when unseen.
func (g *Generator) Counter(ctx context.Context, key string) (int64, error) {
	if g == nil || g.store == nil {
		return 0, errors.New("ordernumber: generator not initialised")
	}
	return g.store.Get(ctx, key)
}

// Reset clears every counter. Only the admin reset route and tests call it.
func (g *Generator) Reset(ctx context.Context) error {
	if g == nil || g.store == nil {
		return errors.New("ordernumber: generator not initialised")
	}
	return g.store.Reset(ctx)
}

// Close releases the store when it holds resources.
func (g *Generator) Close() error {
	if g == nil {
		return nil
	}
	if c, ok := g.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
