// Package market resolves a capability to a candidate agent, spec §4.7.2
// "Resolve the capability to an agent (first available in registry)" plus
// the optional scored selection SPEC_FULL §12 supplements from the
// teacher's bidding optimizer.
package market

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/cortexrt/runtime/internal/registry"
)

var ErrNoCandidates = errors.New("market: no available agent for capability")

// Selector picks one agent from candidates (already filtered to Available
// agents declaring capability by registry.AgentRegistry.FindByCapability).
type Selector interface {
	SelectAsync(ctx context.Context, candidates []registry.Agent, capability string) (registry.Agent, error)
}

// FirstAvailable is the spec-mandated default: registration-order first
// match, spec §4.7.2.
type FirstAvailable struct{}

func (FirstAvailable) SelectAsync(ctx context.Context, candidates []registry.Agent, capability string) (registry.Agent, error) {
	if len(candidates) == 0 {
		return registry.Agent{}, ErrNoCandidates
	}
	return candidates[0], nil
}

// Weights tunes ScoredSelector's three objectives. Unlike the teacher's
// bidding market, this runtime has no cost/time bids to rank — load and
// capability breadth replace cost/speed, and a reputation score (the
// teacher's trust score reborn as "share of this agent's own delegation
// history that completed rather than failed", SPEC_FULL §12) replaces
// trust/confidence.
type Weights struct {
	Load       float64 // lower in-flight delegation count is better
	Breadth    float64 // fewer declared capabilities is better (specialist preference)
	Reputation float64 // higher completed-vs-failed ratio is better
}

func DefaultWeights() Weights {
	return Weights{Load: 0.5, Breadth: 0.2, Reputation: 0.3}
}

// ScoredSelector ranks candidates by normalized load, capability breadth,
// and reputation, adapted from the teacher's `optimizer.go` RankBids: the
// min/max normalization and weighted-sum shape are kept, the cost/speed/
// trust/confidence/capMatch objectives are replaced with the three signals
// this runtime actually has. Reputation is read directly off
// DelegationRegistry's own Completed/Failed history rather than a separate
// ledger — every input ScoredSelector needs is already tracked there.
// Opt-in; FirstAvailable remains the default.
type ScoredSelector struct {
	delegations *registry.DelegationRegistry
	weights     Weights
}

func NewScoredSelector(delegations *registry.DelegationRegistry, weights Weights) *ScoredSelector {
	return &ScoredSelector{delegations: delegations, weights: weights}
}

func (s *ScoredSelector) SelectAsync(ctx context.Context, candidates []registry.Agent, capability string) (registry.Agent, error) {
	if len(candidates) == 0 {
		return registry.Agent{}, ErrNoCandidates
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	type loaded struct {
		agent      registry.Agent
		load       int
		reputation float64
	}
	loads := make([]loaded, len(candidates))
	minLoad, maxLoad := math.MaxInt64, 0
	minBreadth, maxBreadth := math.MaxInt64, 0
	for i, a := range candidates {
		load := s.inFlightCount(a.AgentId)
		loads[i] = loaded{agent: a, load: load, reputation: s.reputationOf(a.AgentId)}
		if load < minLoad {
			minLoad = load
		}
		if load > maxLoad {
			maxLoad = load
		}
		breadth := len(a.Capabilities)
		if breadth < minBreadth {
			minBreadth = breadth
		}
		if breadth > maxBreadth {
			maxBreadth = breadth
		}
	}

	type scored struct {
		agent registry.Agent
		score float64
	}
	out := make([]scored, len(loads))
	for i, l := range loads {
		loadScore := 1.0
		if maxLoad > minLoad {
			loadScore = 1.0 - float64(l.load-minLoad)/float64(maxLoad-minLoad)
		}
		breadthScore := 1.0
		if maxBreadth > minBreadth {
			breadthScore = 1.0 - float64(len(l.agent.Capabilities)-minBreadth)/float64(maxBreadth-minBreadth)
		}
		out[i] = scored{
			agent: l.agent,
			score: s.weights.Load*loadScore + s.weights.Breadth*breadthScore + s.weights.Reputation*l.reputation,
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out[0].agent, nil
}

func (s *ScoredSelector) inFlightCount(agentId string) int {
	if s.delegations == nil {
		return 0
	}
	count := 0
	for _, d := range s.delegations.FindByAssignee(agentId) {
		if d.Status == registry.Pending || d.Status == registry.InProgress {
			count++
		}
	}
	return count
}

// reputationOf is the Completed share of agentId's settled (Completed or
// Failed) delegation history, spec-supplemented per SPEC_FULL §12: an
// agent with no settled history yet gets a neutral 0.5 rather than being
// penalized or favored before it has a track record.
func (s *ScoredSelector) reputationOf(agentId string) float64 {
	if s.delegations == nil {
		return 0.5
	}
	var completed, failed int
	for _, d := range s.delegations.FindByAssignee(agentId) {
		switch d.Status {
		case registry.Completed:
			completed++
		case registry.Failed:
			failed++
		}
	}
	settled := completed + failed
	if settled == 0 {
		return 0.5
	}
	return float64(completed) / float64(settled)
}
