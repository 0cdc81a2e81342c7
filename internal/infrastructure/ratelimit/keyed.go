// Package ratelimit provides token-bucket limiters keyed by caller.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config controls a keyed limiter.
type Config struct {
	RequestsPerSecond float64       // Tokens added per second
	BurstSize         int           // Maximum burst size
	CleanupInterval   time.Duration // How often idle keys are evicted
	TTL               time.Duration // How long an idle key is kept
}

// DefaultHTTPConfig is used for the REST surface, keyed by client IP.
func DefaultHTTPConfig() Config {
	return Config{
		RequestsPerSecond: 10,
		BurstSize:         20,
		CleanupInterval:   time.Minute,
		TTL:               3 * time.Minute,
	}
}

// DefaultOpenConfig throttles ticket-open attempts per user.
func DefaultOpenConfig() Config {
	return Config{
		RequestsPerSecond: 0.2,
		BurstSize:         2,
		CleanupInterval:   time.Minute,
		TTL:               5 * time.Minute,
	}
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Keyed holds one limiter per key and evicts keys that have been idle
// longer than the configured TTL.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
	rate    rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewKeyed creates a limiter and starts its cleanup loop. Call Stop to end
// the loop.
func NewKeyed(cfg Config) *Keyed {
	k := newKeyed(cfg, time.Now)
	if cfg.CleanupInterval > 0 {
		go k.cleanupLoop(cfg.CleanupInterval)
	}
	return k
}

func newKeyed(cfg Config, now func() time.Time) *Keyed {
	return &Keyed{
		entries: make(map[string]*entry),
		rate:    rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.BurstSize,
		ttl:     cfg.TTL,
		now:     now,
		stop:    make(chan struct{}),
	}
}

// Allow reports whether an event for key may happen now.
func (k *Keyed) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(k.rate, k.burst)}
		k.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (k *Keyed) Stop() {
	k.stopOnce.Do(func() { close(k.stop) })
}

func (k *Keyed) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			k.evictIdle()
		case <-k.stop:
			return
		}
	}
}

func (k *Keyed) evictIdle() {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	for key, e := range k.entries {
		if now.Sub(e.lastSeen) > k.ttl {
			delete(k.entries, key)
		}
	}
}
