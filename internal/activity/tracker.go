// Package activity records per-domain last-seen timestamps through a fast
// in-memory layer backed by the durable store.
package activity

import (
	"context"
	"sync"
	"time"
)

// Store is the durable side of the tracker.
type Store interface {
	TouchActivity(ctx context.Context, domain string, now time.Time) error
	LastActivity(ctx context.Context, domain string) (time.Time, bool, error)
}

// Tracker keeps an in-memory shadow of the durable activity table.
//
// The shadow is populated only by Touch: reads that miss it fall through to
// the store and are deliberately NOT backfilled, so after a restart the
// fast path stays cold until the next activity event. That keeps a cold
// cache correct (the store answers) at the cost of one round trip.
type Tracker struct {
	store Store

	mu  sync.RWMutex
	mem map[string]time.Time
}

// NewTracker creates a Tracker over the durable store.
func NewTracker(store Store) *Tracker {
	return &Tracker{
		store: store,
		mem:   make(map[string]time.Time),
	}
}

// Touch records now as the domain's last activity in both layers. The
// durable write is an upsert; concurrent writers race and the last physical
// write wins.
func (t *Tracker) Touch(ctx context.Context, domain string, now time.Time) error {
	t.mu.Lock()
	t.mem[domain] = now
	t.mu.Unlock()

	return t.store.TouchActivity(ctx, domain, now)
}

// Last returns the domain's last activity: the in-memory value when
// present, otherwise the durable value. The miss path does not warm the
// in-memory map.
func (t *Tracker) Last(ctx context.Context, domain string) (time.Time, bool, error) {
	t.mu.RLock()
	ts, ok := t.mem[domain]
	t.mu.RUnlock()
	if ok {
		return ts, true, nil
	}
	return t.store.LastActivity(ctx, domain)
}
