package registry

import (
	"sync"
	"time"

	"github.com/cortexrt/runtime/internal/envelope"
)

// AuthorityRegistry grants and checks authority claims, spec §4.3:
// "hasAuthority(agentId, action, minTier) returns true iff a non-expired
// claim exists with GrantedTo == agentId, action ∈ PermittedActions, and
// Tier ≥ minTier." Reads are lock-free-ish (RWMutex read lock); writes are
// serialized (spec §5).
type AuthorityRegistry struct {
	mu     sync.RWMutex
	claims map[string]envelope.AuthorityClaim // keyed by agentId+"|"+action
	now    func() time.Time
}

func NewAuthorityRegistry() *AuthorityRegistry {
	return &AuthorityRegistry{claims: make(map[string]envelope.AuthorityClaim), now: time.Now}
}

func key(agentId, action string) string { return agentId + "|" + action }

func (r *AuthorityRegistry) Grant(agentId, action string, claim envelope.AuthorityClaim) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims[key(agentId, action)] = claim
}

func (r *AuthorityRegistry) Revoke(agentId, action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claims, key(agentId, action))
}

func (r *AuthorityRegistry) GetClaim(agentId, action string) (envelope.AuthorityClaim, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.claims[key(agentId, action)]
	return c, ok
}

func (r *AuthorityRegistry) HasAuthority(agentId, action string, minTier envelope.Tier) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.claims[key(agentId, action)]
	if !ok {
		return false
	}
	return c.Permits(action, minTier, r.now())
}
