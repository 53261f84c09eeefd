package supervision

import (
	"sync"
	"time"
)

// BreakerState mirrors the teacher's CBState three-state circuit breaker,
// narrowed to the one signal this runtime actually has per agent:
// consecutive supervision escalations. The teacher's trust-score input
// (CheckTrustDrop) has no equivalent here — this runtime carries no
// per-agent trust score — so it is dropped rather than faked.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// Breaker trips an agent out of service after FailureThreshold consecutive
// supervision escalations, and offers it back for one probe after
// CooldownPeriod, adapted from the teacher's `security.CircuitBreaker`.
type Breaker struct {
	AgentId          string
	FailureCount     int
	FailureThreshold int
	CooldownPeriod   time.Duration
	State            BreakerState
	LastTripped      time.Time
}

func newBreaker(agentId string, failureThreshold int, cooldown time.Duration) *Breaker {
	return &Breaker{AgentId: agentId, FailureThreshold: failureThreshold, CooldownPeriod: cooldown, State: BreakerClosed}
}

// recordFailure increments the failure counter and reports whether this
// call tripped the breaker from Closed/HalfOpen into Open.
func (b *Breaker) recordFailure(now time.Time) bool {
	b.FailureCount++
	if b.FailureCount >= b.FailureThreshold && b.State != BreakerOpen {
		b.State = BreakerOpen
		b.LastTripped = now
		return true
	}
	return false
}

func (b *Breaker) recordSuccess() {
	b.FailureCount = 0
	b.State = BreakerClosed
}

// BreakerRegistry is a concurrency-safe keyed store of per-agent Breakers,
// all sharing the same threshold/cooldown configuration.
type BreakerRegistry struct {
	mu               sync.Mutex
	breakers         map[string]*Breaker
	failureThreshold int
	cooldown         time.Duration
}

func NewBreakerRegistry(failureThreshold int, cooldown time.Duration) *BreakerRegistry {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Minute
	}
	return &BreakerRegistry{breakers: make(map[string]*Breaker), failureThreshold: failureThreshold, cooldown: cooldown}
}

func (r *BreakerRegistry) get(agentId string) *Breaker {
	b, ok := r.breakers[agentId]
	if !ok {
		b = newBreaker(agentId, r.failureThreshold, r.cooldown)
		r.breakers[agentId] = b
	}
	return b
}

// RecordFailure registers one supervision escalation against agentId and
// reports whether this call tripped the breaker open.
func (r *BreakerRegistry) RecordFailure(agentId string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(agentId).recordFailure(now)
}

// RecordSuccess clears agentId's failure count, e.g. after a completed
// delegation.
func (r *BreakerRegistry) RecordSuccess(agentId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[agentId]; ok {
		b.recordSuccess()
	}
}

// ReadyForProbe returns every agentId whose breaker has been Open past its
// cooldown, flipping each to HalfOpen as a side effect — the one-probe
// admission window of the teacher's IsAllowed.
func (r *BreakerRegistry) ReadyForProbe(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, b := range r.breakers {
		if b.State == BreakerOpen && now.Sub(b.LastTripped) > b.CooldownPeriod {
			b.State = BreakerHalfOpen
			ids = append(ids, id)
		}
	}
	return ids
}
