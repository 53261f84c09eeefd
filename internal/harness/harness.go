// Package harness binds one agent to its inbox queue, enforces authority on
// every inbound envelope, and stamps/publishes replies, spec §4.5 (C5).
package harness

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cortexrt/runtime/internal/bus"
	"github.com/cortexrt/runtime/internal/envelope"
	"github.com/cortexrt/runtime/internal/registry"
)

// Agent is the business logic a Harness drives. The skill-driven agent
// (internal/cos) is the only implementation in this runtime, but the
// interface keeps the harness agent-agnostic per spec §4.5/§4.6.
type Agent interface {
	ProcessAsync(ctx context.Context, env envelope.Envelope) (*envelope.Envelope, error)
}

// AuthorityChecker is the optional stored-grant provider referenced in
// spec §4.5 step 1 ("if an authority provider is configured"). A nil
// checker skips the stored-grant check, relying only on claim expiry and
// GrantedTo matching.
type AuthorityChecker interface {
	HasAuthority(agentId, action string, minTier envelope.Tier) bool
}

var (
	ErrClaimExpired     = errors.New("harness: authority claim expired")
	ErrClaimMisdirected = errors.New("harness: authority claim granted to a different agent")
	ErrClaimUngranted   = errors.New("harness: authority claim not found in authority provider")
	ErrTeamCeiling      = errors.New("harness: outbound claim exceeds team ceiling")
)

// TeamCeiling resolves the authority ceiling for an agent's team, if any.
// Returning ok=false means the agent has no team ceiling in effect.
type TeamCeiling func(agentId string) (ceiling envelope.Tier, ok bool)

// Harness binds exactly one Agent to queue agent.<AgentId>, spec §4.5.
type Harness struct {
	self       registry.Agent
	agent      Agent
	bus        bus.Bus
	agents     *registry.AgentRegistry
	authority  AuthorityChecker
	teamCeil   TeamCeiling
	logger     *log.Logger

	handle bus.ConsumerHandle
}

func New(self registry.Agent, agent Agent, b bus.Bus, agents *registry.AgentRegistry, authority AuthorityChecker, teamCeil TeamCeiling, logger *log.Logger) *Harness {
	if logger == nil {
		logger = log.Default()
	}
	return &Harness{self: self, agent: agent, bus: b, agents: agents, authority: authority, teamCeil: teamCeil, logger: logger}
}

func (h *Harness) AgentId() string { return h.self.AgentId }

// Start registers the agent as Available and binds a consumer to its
// queue, spec §4.5 "On start" steps 1-3.
func (h *Harness) Start(ctx context.Context) error {
	h.agents.Register(registry.Agent{AgentId: h.self.AgentId, Capabilities: h.self.Capabilities, Status: registry.Available})

	handle, err := h.bus.StartConsumingAsync(ctx, h.self.Queue(), h.dispatch)
	if err != nil {
		h.agents.SetStatus(h.self.AgentId, registry.Unavailable)
		return fmt.Errorf("harness: start consuming on %s: %w", h.self.Queue(), err)
	}
	h.handle = handle
	return nil
}

// Stop disposes the consumer handle and marks the agent Unavailable. The
// consumer's own Release drains the in-flight handler before returning,
// spec §4.5 "Stop: dispose the consumer handle... drain by allowing the
// current handler to finish."
func (h *Harness) Stop(ctx context.Context) error {
	h.agents.SetStatus(h.self.AgentId, registry.Unavailable)
	if h.handle == nil {
		return nil
	}
	if err := h.handle.Release(ctx); err != nil {
		return fmt.Errorf("harness: release consumer for %s: %w", h.self.AgentId, err)
	}
	return nil
}

// dispatch is the bus.Handler bound to this harness's queue, implementing
// spec §4.5's per-message dispatch steps 1-5.
func (h *Harness) dispatch(ctx context.Context, env envelope.Envelope) error {
	if err := h.validateAuthority(env); err != nil {
		return err
	}

	reply, err := h.agent.ProcessAsync(ctx, env)
	if err != nil {
		return fmt.Errorf("harness: agent %s: %w", h.self.AgentId, err)
	}

	if reply == nil {
		return nil
	}
	if env.Context.ReplyTo == "" {
		h.logger.Printf("harness: dropping reply for %s, no ReplyTo on inbound envelope %s", h.self.AgentId, env.ReferenceCode)
		return nil
	}

	out := *reply
	out.Context.FromAgentId = h.self.AgentId
	out.Context.ParentMessageId = env.Message.Base().MessageId
	out.ReferenceCode = env.ReferenceCode

	if err := h.bus.PublishAsync(ctx, out, env.Context.ReplyTo); err != nil {
		return fmt.Errorf("harness: publish reply to %s: %w", env.Context.ReplyTo, err)
	}
	return nil
}

// validateAuthority implements spec §4.5 step 1: reject envelopes carrying
// an expired claim, a claim granted to a different agent, a claim absent
// from the authority provider (when one is configured), or an outbound
// claim above this agent's team ceiling.
func (h *Harness) validateAuthority(env envelope.Envelope) error {
	for _, claim := range env.AuthorityClaims {
		if claim.Expired(time.Now()) {
			return fmt.Errorf("%w: %s", ErrClaimExpired, h.self.AgentId)
		}
		if claim.GrantedTo != "" && claim.GrantedTo != h.self.AgentId {
			return fmt.Errorf("%w: granted to %s, harness is %s", ErrClaimMisdirected, claim.GrantedTo, h.self.AgentId)
		}
		if h.authority != nil {
			permitted := false
			for _, action := range claim.PermittedActions {
				if h.authority.HasAuthority(h.self.AgentId, action, claim.Tier) {
					permitted = true
					break
				}
			}
			if !permitted && len(claim.PermittedActions) > 0 {
				return fmt.Errorf("%w: %s", ErrClaimUngranted, h.self.AgentId)
			}
		}
	}

	if h.teamCeil != nil {
		if ceiling, ok := h.teamCeil(h.self.AgentId); ok {
			for _, claim := range env.AuthorityClaims {
				if claim.Tier > ceiling {
					return fmt.Errorf("%w: claim tier %s exceeds ceiling %s", ErrTeamCeiling, claim.Tier, ceiling)
				}
			}
		}
	}
	return nil
}
