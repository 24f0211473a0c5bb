package orchestrator

import (
	"context"
	"sync"
	"time"
)

// gate owns the orchestrator's only shared mutable state: per-(module,target)
// in-flight locks and per-module token buckets. Each orchestrator carries its
// own gate, so concurrent investigations through different orchestrators
// never interfere.
type gate struct {
	mu      sync.Mutex
	locks   map[string]*lockEntry
	buckets map[string]*bucket

	maxTokens  int
	refillRate time.Duration
}

// lockEntry is a reference-counted in-flight lock. Entries are pruned from the
// gate once the last holder releases, so the map stays bounded by the number
// of concurrent invocations rather than growing with target cardinality.
type lockEntry struct {
	mu   sync.Mutex
	key  string
	refs int
}

type bucket struct {
	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
}

func newGate(callsPerMinute int) *gate {
	if callsPerMinute <= 0 {
		callsPerMinute = 60
	}
	return &gate{
		locks:      make(map[string]*lockEntry),
		buckets:    make(map[string]*bucket),
		maxTokens:  callsPerMinute,
		refillRate: time.Minute / time.Duration(callsPerMinute),
	}
}

// acquire blocks until the caller holds the lock serializing calls against
// one external source for one target. Every acquire must be paired with a
// release.
func (g *gate) acquire(key string) *lockEntry {
	g.mu.Lock()
	e, ok := g.locks[key]
	if !ok {
		e = &lockEntry{key: key}
		g.locks[key] = e
	}
	e.refs++
	g.mu.Unlock()

	e.mu.Lock()
	return e
}

func (g *gate) release(e *lockEntry) {
	e.mu.Unlock()

	g.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(g.locks, e.key)
	}
	g.mu.Unlock()
}

// waitToken blocks until the module's bucket has a token or ctx is done.
func (g *gate) waitToken(ctx context.Context, moduleID string) error {
	b := g.bucket(moduleID)

	for {
		if b.take(g.maxTokens, g.refillRate) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.refillRate):
		}
	}
}

func (g *gate) bucket(moduleID string) *bucket {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.buckets[moduleID]
	if !ok {
		b = &bucket{tokens: g.maxTokens, lastRefill: time.Now()}
		g.buckets[moduleID] = b
	}
	return b
}

func (b *bucket) take(maxTokens int, refillRate time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	refill := int(now.Sub(b.lastRefill) / refillRate)
	if refill > 0 {
		b.tokens = min(maxTokens, b.tokens+refill)
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
