// Package registry holds the process-local, concurrency-safe stores of
// spec §3.10/§4.3: agents, skills, delegations, authority grants, pending
// plans, retry counters, and context entries.
package registry

import (
	"errors"
	"sync"
)

// AgentStatus mirrors the mutable runtime flag of spec §3.3.
type AgentStatus int

const (
	Available AgentStatus = iota
	Unavailable
)

// Agent is the registry-level view of spec §3.3: a stable AgentId, an
// ordered capability list, and a mutable availability flag. Queue is
// derived deterministically as agent.<AgentId>.
type Agent struct {
	AgentId      string
	Capabilities []string
	Status       AgentStatus
}

func (a Agent) Queue() string { return "agent." + a.AgentId }

// ErrAgentNotFound is returned by lookups that miss.
var ErrAgentNotFound = errors.New("registry: agent not found")

// AgentRegistry is a concurrency-safe keyed store of Agents, keyed by
// AgentId per spec §4.3. order tracks registration order separately from
// the map — Go map iteration is randomized, and FindByCapability's
// registration-order contract (market.FirstAvailable's determinism, spec
// §4.7.2 "first available in registry") depends on it.
type AgentRegistry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	order  []string
}

func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{agents: make(map[string]Agent)}
}

func (r *AgentRegistry) Register(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[a.AgentId]; !exists {
		r.order = append(r.order, a.AgentId)
	}
	r.agents[a.AgentId] = a
}

func (r *AgentRegistry) Unregister(agentId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, agentId)
	for i, id := range r.order {
		if id == agentId {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *AgentRegistry) FindById(agentId string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[agentId]
	if !ok {
		return Agent{}, ErrAgentNotFound
	}
	return a, nil
}

// SetStatus updates an agent's availability flag in place, leaving
// everything else untouched.
func (r *AgentRegistry) SetStatus(agentId string, status AgentStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[agentId]; ok {
		a.Status = status
		r.agents[agentId] = a
	}
}

// FindByCapability returns every Available agent declaring capability, in
// registration order, for the caller (market.FirstAvailable or a scored
// selector) to pick from.
func (r *AgentRegistry) FindByCapability(capability string) []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Agent
	for _, id := range r.order {
		a := r.agents[id]
		if a.Status != Available {
			continue
		}
		for _, c := range a.Capabilities {
			if c == capability {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// AllCapabilities returns the deduplicated union of every registered
// agent's capabilities, used by the Chief of Staff to tell its
// decomposition skill what capabilities it may assign tasks to.
func (r *AgentRegistry) AllCapabilities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, id := range r.order {
		a := r.agents[id]
		for _, c := range a.Capabilities {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// HasCapability reports whether any registered agent (regardless of
// availability) declares capability — used by the Chief of Staff to reject
// a DecompositionResult task whose capability is entirely unknown, spec
// §4.7.2 "any task's Capability is not in the registry".
func (r *AgentRegistry) HasCapability(capability string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.agents {
		for _, c := range a.Capabilities {
			if c == capability {
				return true
			}
		}
	}
	return false
}
