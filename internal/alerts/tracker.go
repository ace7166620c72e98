package alerts

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryTracker is the process-local price tracker. State is intentionally
// not shared across worker instances: a restart or failover resets crossing
// detection, which is an accepted tradeoff of the in-memory design.
//
// The map is mutex-guarded. The engine's loop is single-threaded under the
// distributed lock, but the guard is a required invariant, not an option:
// concurrent per-user evaluation must stay safe if it is ever enabled.
type MemoryTracker struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
}

// NewMemoryTracker returns an empty in-process tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{prices: make(map[string]decimal.Decimal)}
}

// Get returns the last observed midpoint for the pair, if any.
func (t *MemoryTracker) Get(_ context.Context, userID, symbol string) (decimal.Decimal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.prices[PairKey(userID, symbol)]
	return p, ok
}

// Set records the midpoint for the pair, overwriting any prior observation.
func (t *MemoryTracker) Set(_ context.Context, userID, symbol string, price decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prices[PairKey(userID, symbol)] = price
}

// Prune evicts pairs that are no longer in the active alert set.
func (t *MemoryTracker) Prune(_ context.Context, active map[string]struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.prices {
		if _, ok := active[key]; !ok {
			delete(t.prices, key)
		}
	}
}

// Len reports the number of tracked pairs.
func (t *MemoryTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.prices)
}
