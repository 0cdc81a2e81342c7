package memory

import (
	"sync"

	"github.com/lorrc/ticket-broker/internal/core/ports"
)

type counterKey struct {
	scopeID string
	ownerID string
}

// NumberAllocator is an in-memory ports.NumberAllocator. Counters are
// created on first use and never deleted.
type NumberAllocator struct {
	mu       sync.Mutex
	counters map[counterKey]uint64
}

var _ ports.NumberAllocator = (*NumberAllocator)(nil)

// NewNumberAllocator creates an allocator with no counters.
func NewNumberAllocator() *NumberAllocator {
	return &NumberAllocator{counters: make(map[counterKey]uint64)}
}

// Next increments and returns the counter for the pair. The first call
// returns 1.
func (a *NumberAllocator) Next(scopeID, ownerID string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := counterKey{scopeID, ownerID}
	a.counters[key]++
	return a.counters[key]
}

// Rollback decrements the counter only when it still equals n. It reports
// whether the number was returned.
func (a *NumberAllocator) Rollback(scopeID, ownerID string, n uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := counterKey{scopeID, ownerID}
	if n == 0 || a.counters[key] != n {
		return false
	}
	a.counters[key] = n - 1
	return true
}

// Current returns the last number issued for the pair, 0 if none.
func (a *NumberAllocator) Current(scopeID, ownerID string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counters[counterKey{scopeID, ownerID}]
}
