package registry

import (
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// retryCounterTTL bounds how long a counter survives after its last bump —
// long enough to span several supervision ticks at the spec's default 60s
// interval, short enough not to accumulate forever across unrelated
// delegations that happen to reuse old reference codes.
const retryCounterTTL = 24 * time.Hour

// RetryCounterRegistry tracks per-reference-code retry counts for the
// supervision service, spec §3.10/§4.3/§4.8. Backed by go-cache for the
// same self-expiring reasoning as PendingPlanRegistry; counter mutation
// itself is additionally guarded by a mutex since go-cache's Increment
// requires the key to already hold a numeric value.
type RetryCounterRegistry struct {
	mu sync.Mutex
	c  *cache.Cache
}

func NewRetryCounterRegistry() *RetryCounterRegistry {
	return &RetryCounterRegistry{c: cache.New(retryCounterTTL, retryCounterTTL/2)}
}

// Increment bumps the counter for refCode and returns the new count.
func (r *RetryCounterRegistry) Increment(refCode string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.c.Get(refCode)
	n := 0
	if ok {
		n = v.(int)
	}
	n++
	r.c.Set(refCode, n, cache.DefaultExpiration)
	return n
}

func (r *RetryCounterRegistry) Get(refCode string) int {
	v, ok := r.c.Get(refCode)
	if !ok {
		return 0
	}
	return v.(int)
}

func (r *RetryCounterRegistry) Reset(refCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.c.Delete(refCode)
}
