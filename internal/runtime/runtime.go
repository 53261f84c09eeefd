// Package runtime owns the collection of running agent harnesses and team
// membership, spec §4.6 (C6).
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/cortexrt/runtime/internal/envelope"
	"github.com/cortexrt/runtime/internal/harness"
)

var ErrAgentNotRunning = errors.New("runtime: agent not running")

// Runtime is the C6 component. Dynamic agents created by other agents at
// runtime use the same StartAgentAsync/StopAgentAsync entry points as
// boot-time agents — spec §4.6 "no distinction from boot-time agents".
type Runtime struct {
	mu       sync.RWMutex
	harnesses map[string]*harness.Harness
	teams     map[string]map[string]struct{} // teamId -> set of agentIds
	logger    *log.Logger
}

func New(logger *log.Logger) *Runtime {
	if logger == nil {
		logger = log.Default()
	}
	return &Runtime{
		harnesses: make(map[string]*harness.Harness),
		teams:     make(map[string]map[string]struct{}),
		logger:    logger,
	}
}

// StartAgentAsync starts the already-constructed harness h, optionally
// recording team membership.
func (rt *Runtime) StartAgentAsync(ctx context.Context, h *harness.Harness, teamId string) error {
	if err := h.Start(ctx); err != nil {
		return err
	}

	rt.mu.Lock()
	rt.harnesses[h.AgentId()] = h
	if teamId != "" {
		if rt.teams[teamId] == nil {
			rt.teams[teamId] = make(map[string]struct{})
		}
		rt.teams[teamId][h.AgentId()] = struct{}{}
	}
	rt.mu.Unlock()

	rt.logger.Printf("runtime: agent started: %s (team %s)", h.AgentId(), teamId)
	return nil
}

// StopAgentAsync disposes the harness for agentId and removes it from any
// team map.
func (rt *Runtime) StopAgentAsync(ctx context.Context, agentId string) error {
	rt.mu.Lock()
	h, ok := rt.harnesses[agentId]
	if !ok {
		rt.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAgentNotRunning, agentId)
	}
	delete(rt.harnesses, agentId)
	for teamId, members := range rt.teams {
		delete(members, agentId)
		if len(members) == 0 {
			delete(rt.teams, teamId)
		}
	}
	rt.mu.Unlock()

	return h.Stop(ctx)
}

// StopTeamAsync stops every member of teamId independently: one member's
// stop failure does not prevent the others from being attempted.
func (rt *Runtime) StopTeamAsync(ctx context.Context, teamId string) error {
	rt.mu.RLock()
	members := make([]string, 0, len(rt.teams[teamId]))
	for agentId := range rt.teams[teamId] {
		members = append(members, agentId)
	}
	rt.mu.RUnlock()

	var errs []error
	for _, agentId := range members {
		if err := rt.StopAgentAsync(ctx, agentId); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RunningAgentIds is a read-only snapshot of all currently running agents.
func (rt *Runtime) RunningAgentIds() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]string, 0, len(rt.harnesses))
	for id := range rt.harnesses {
		out = append(out, id)
	}
	return out
}

// GetTeamAgentIds is a read-only snapshot of teamId's current membership.
func (rt *Runtime) GetTeamAgentIds(teamId string) []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]string, 0, len(rt.teams[teamId]))
	for id := range rt.teams[teamId] {
		out = append(out, id)
	}
	return out
}

// IsRunning reports whether agentId currently has a live harness — the
// `isAgentRunning` signal the supervision service carries on
// SupervisionAlert, spec §4.8 step 3.
func (rt *Runtime) IsRunning(agentId string) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	_, ok := rt.harnesses[agentId]
	return ok
}

// StopAll stops every running harness, used on host shutdown, spec §4.6
// "On host stop: stop all; drain."
func (rt *Runtime) StopAll(ctx context.Context) error {
	for _, agentId := range rt.RunningAgentIds() {
		if err := rt.StopAgentAsync(ctx, agentId); err != nil {
			rt.logger.Printf("runtime: stop on shutdown failed for %s: %v", agentId, err)
		}
	}
	return nil
}

// TeamCeiling adapts per-team ceiling tiers (an envelope.Tier stored per
// team) into the harness.TeamCeiling signature.
type TeamCeiling struct {
	ceilings map[string]envelope.Tier // teamId -> ceiling
	teamOf   func(agentId string) (teamId string, ok bool)
}

func NewTeamCeiling(ceilings map[string]envelope.Tier, teamOf func(agentId string) (string, bool)) *TeamCeiling {
	return &TeamCeiling{ceilings: ceilings, teamOf: teamOf}
}

func (t *TeamCeiling) Resolve(agentId string) (envelope.Tier, bool) {
	teamId, ok := t.teamOf(agentId)
	if !ok {
		return 0, false
	}
	ceiling, ok := t.ceilings[teamId]
	return ceiling, ok
}
