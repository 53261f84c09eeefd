package cos

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cortexrt/runtime/internal/envelope"
	"github.com/cortexrt/runtime/internal/market"
	"github.com/cortexrt/runtime/internal/pipeline"
	"github.com/cortexrt/runtime/internal/refcode"
	"github.com/cortexrt/runtime/internal/registry"
	"github.com/cortexrt/runtime/internal/workflow"
)

// memSequenceStore is a trivial in-memory refcode.SequenceStore for tests.
type memSequenceStore struct {
	state refcode.SequenceState
}

func (m *memSequenceStore) Load(ctx context.Context) (refcode.SequenceState, error) {
	return m.state, nil
}

func (m *memSequenceStore) Save(ctx context.Context, state refcode.SequenceState) error {
	m.state = state
	return nil
}

// fixedExecutor returns whatever result is configured, regardless of
// params, for deterministic pipeline outcomes in tests.
type fixedExecutor struct {
	executorType string
	result       any
	err          error
}

func (f *fixedExecutor) ExecutorType() string { return f.executorType }
func (f *fixedExecutor) ExecuteAsync(ctx context.Context, skill registry.Skill, params map[string]any) (any, error) {
	return f.result, f.err
}

// capturingBus records every published envelope for inspection.
type capturingBus struct {
	mu        sync.Mutex
	published []published
}

type published struct {
	env   envelope.Envelope
	queue string
}

func (b *capturingBus) PublishAsync(ctx context.Context, env envelope.Envelope, queueName string) error {
	b.mu.Lock()
	b.published = append(b.published, published{env, queueName})
	b.mu.Unlock()
	return nil
}

func (b *capturingBus) snapshot() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]published, len(b.published))
	copy(out, b.published)
	return out
}

func newTestAgent(t *testing.T, cfg Config, skill registry.Skill, exec pipeline.Executor, b Bus) (*Agent, *registry.AgentRegistry, *registry.DelegationRegistry) {
	t.Helper()
	skills := registry.NewSkillRegistry()
	skills.Register(skill)
	runner := pipeline.NewRunner(skills, exec)

	agents := registry.NewAgentRegistry()
	delegations := registry.NewDelegationRegistry()
	refcodes := refcode.NewGenerator(&memSequenceStore{}, time.Now)

	a := New(cfg, Deps{
		Bus:         b,
		Refcodes:    refcodes,
		Agents:      agents,
		Delegations: delegations,
		Pending:     registry.NewPendingPlanRegistry(),
		Retries:     registry.NewRetryCounterRegistry(),
		Workflows:   workflow.NewTracker(),
		Pipeline:    runner,
		Selector:    market.FirstAvailable{},
	})
	return a, agents, delegations
}

func requestEnvelope(content, replyTo string) envelope.Envelope {
	return envelope.Envelope{
		Message:       &envelope.Request{Base: envelope.NewBase(), Content: content},
		ReferenceCode: "CTX-2026-0731-001",
		Context:       envelope.Context{ReplyTo: replyTo},
	}
}

func TestFastPathDispatchesSingleTask(t *testing.T) {
	b := &capturingBus{}
	decomp := DecompositionResult{
		Tasks:      []envelope.DecomposedTask{{Capability: "research", Description: "look into Q3"}},
		Summary:    "one research task",
		Confidence: 0.9,
	}
	exec := &fixedExecutor{executorType: "heuristic-decompose", result: decomp}
	cfg := Config{AgentId: "agent-cos", Pipeline: []string{"triage"}, EscalationTarget: "agent.human-overseer"}
	a, agents, delegations := newTestAgent(t, cfg, registry.Skill{SkillId: "triage", ExecutorType: "heuristic-decompose"}, exec, b)
	agents.Register(registry.Agent{AgentId: "agent-research", Capabilities: []string{"research"}, Status: registry.Available})

	reply, err := a.ProcessAsync(context.Background(), requestEnvelope("look into Q3", "agent.caller"))
	if err != nil {
		t.Fatalf("ProcessAsync: %v", err)
	}
	if reply != nil {
		t.Fatalf("ProcessAsync returned a reply %v, want nil (cos always publishes directly)", reply)
	}

	pubs := b.snapshot()
	if len(pubs) != 1 {
		t.Fatalf("published %d envelopes, want 1", len(pubs))
	}
	if pubs[0].queue != "agent.agent-research" {
		t.Fatalf("queue = %q, want agent.agent-research", pubs[0].queue)
	}

	delegs := delegations.FindByAssignee("agent-research")
	if len(delegs) != 1 {
		t.Fatalf("delegations for agent-research = %d, want 1", len(delegs))
	}
	if delegs[0].Status != registry.Pending {
		t.Fatalf("delegation status = %v, want Pending", delegs[0].Status)
	}
}

func TestFastPathSetsDueAtFromEnvelopeSla(t *testing.T) {
	b := &capturingBus{}
	decomp := DecompositionResult{
		Tasks:      []envelope.DecomposedTask{{Capability: "research", Description: "look into Q3"}},
		Summary:    "one research task",
		Confidence: 0.9,
	}
	exec := &fixedExecutor{executorType: "heuristic-decompose", result: decomp}
	cfg := Config{AgentId: "agent-cos", Pipeline: []string{"triage"}, EscalationTarget: "agent.human-overseer"}
	a, agents, delegations := newTestAgent(t, cfg, registry.Skill{SkillId: "triage", ExecutorType: "heuristic-decompose"}, exec, b)
	agents.Register(registry.Agent{AgentId: "agent-research", Capabilities: []string{"research"}, Status: registry.Available})

	fixedNow := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixedNow }

	sla := 2 * time.Hour
	req := requestEnvelope("look into Q3", "agent.caller")
	req.Sla = &sla

	if _, err := a.ProcessAsync(context.Background(), req); err != nil {
		t.Fatalf("ProcessAsync: %v", err)
	}

	delegs := delegations.FindByAssignee("agent-research")
	if len(delegs) != 1 {
		t.Fatalf("delegations for agent-research = %d, want 1", len(delegs))
	}
	if delegs[0].DueAt == nil {
		t.Fatal("DueAt is nil, want fixedNow+2h so supervision can find it overdue")
	}
	wantDueAt := fixedNow.Add(sla)
	if !delegs[0].DueAt.Equal(wantDueAt) {
		t.Fatalf("DueAt = %v, want %v", *delegs[0].DueAt, wantDueAt)
	}
}

func TestFastPathLeavesDueAtNilWithoutSla(t *testing.T) {
	b := &capturingBus{}
	decomp := DecompositionResult{
		Tasks:      []envelope.DecomposedTask{{Capability: "research", Description: "look into Q3"}},
		Summary:    "one research task",
		Confidence: 0.9,
	}
	exec := &fixedExecutor{executorType: "heuristic-decompose", result: decomp}
	cfg := Config{AgentId: "agent-cos", Pipeline: []string{"triage"}, EscalationTarget: "agent.human-overseer"}
	a, agents, delegations := newTestAgent(t, cfg, registry.Skill{SkillId: "triage", ExecutorType: "heuristic-decompose"}, exec, b)
	agents.Register(registry.Agent{AgentId: "agent-research", Capabilities: []string{"research"}, Status: registry.Available})

	if _, err := a.ProcessAsync(context.Background(), requestEnvelope("look into Q3", "agent.caller")); err != nil {
		t.Fatalf("ProcessAsync: %v", err)
	}

	delegs := delegations.FindByAssignee("agent-research")
	if len(delegs) != 1 {
		t.Fatalf("delegations for agent-research = %d, want 1", len(delegs))
	}
	if delegs[0].DueAt != nil {
		t.Fatalf("DueAt = %v, want nil when the envelope carries no Sla", *delegs[0].DueAt)
	}
}

func TestEscalatesWhenCapabilityUnknown(t *testing.T) {
	b := &capturingBus{}
	decomp := DecompositionResult{
		Tasks:      []envelope.DecomposedTask{{Capability: "unknown-capability", Description: "x"}},
		Confidence: 0.9,
	}
	exec := &fixedExecutor{executorType: "heuristic-decompose", result: decomp}
	cfg := Config{AgentId: "agent-cos", Pipeline: []string{"triage"}, EscalationTarget: "agent.human-overseer"}
	a, _, _ := newTestAgent(t, cfg, registry.Skill{SkillId: "triage", ExecutorType: "heuristic-decompose"}, exec, b)

	if _, err := a.ProcessAsync(context.Background(), requestEnvelope("x", "agent.caller")); err != nil {
		t.Fatalf("ProcessAsync: %v", err)
	}

	pubs := b.snapshot()
	if len(pubs) != 1 || pubs[0].queue != "agent.human-overseer" {
		t.Fatalf("published = %v, want one envelope to agent.human-overseer", pubs)
	}
}

func TestEscalatesWhenConfidenceBelowThreshold(t *testing.T) {
	b := &capturingBus{}
	decomp := DecompositionResult{
		Tasks:      []envelope.DecomposedTask{{Capability: "research"}},
		Confidence: 0.1,
	}
	exec := &fixedExecutor{executorType: "heuristic-decompose", result: decomp}
	cfg := Config{AgentId: "agent-cos", Pipeline: []string{"triage"}, EscalationTarget: "agent.human-overseer", ConfidenceThreshold: 0.6}
	a, agents, _ := newTestAgent(t, cfg, registry.Skill{SkillId: "triage", ExecutorType: "heuristic-decompose"}, exec, b)
	agents.Register(registry.Agent{AgentId: "agent-research", Capabilities: []string{"research"}, Status: registry.Available})

	if _, err := a.ProcessAsync(context.Background(), requestEnvelope("x", "agent.caller")); err != nil {
		t.Fatalf("ProcessAsync: %v", err)
	}

	pubs := b.snapshot()
	if len(pubs) != 1 || pubs[0].queue != "agent.human-overseer" {
		t.Fatalf("published = %v, want one envelope to agent.human-overseer", pubs)
	}
}

func TestSpecialistPersonaRepliesDirectly(t *testing.T) {
	b := &capturingBus{}
	exec := &fixedExecutor{executorType: "answer", result: "the budget is on track"}
	cfg := Config{AgentId: "agent-research", Pipeline: []string{"research"}}
	a, _, _ := newTestAgent(t, cfg, registry.Skill{SkillId: "research", ExecutorType: "answer"}, exec, b)

	if _, err := a.ProcessAsync(context.Background(), requestEnvelope("how's the budget", "agent.caller")); err != nil {
		t.Fatalf("ProcessAsync: %v", err)
	}

	pubs := b.snapshot()
	if len(pubs) != 1 {
		t.Fatalf("published %d envelopes, want 1", len(pubs))
	}
	reply, ok := pubs[0].env.Message.(*envelope.Reply)
	if !ok {
		t.Fatalf("published message is %T, want *envelope.Reply", pubs[0].env.Message)
	}
	if reply.Content != "the budget is on track" {
		t.Fatalf("reply content = %q, want %q", reply.Content, "the budget is on track")
	}
	if pubs[0].queue != "agent.caller" {
		t.Fatalf("queue = %q, want agent.caller", pubs[0].queue)
	}
}

func TestWorkflowDispatchAndAggregation(t *testing.T) {
	b := &capturingBus{}
	decomp := DecompositionResult{
		Tasks: []envelope.DecomposedTask{
			{Capability: "research", Description: "gather numbers"},
			{Capability: "draft", Description: "write summary"},
		},
		Summary:    "Q3 report",
		Confidence: 0.9,
	}
	exec := &fixedExecutor{executorType: "heuristic-decompose", result: decomp}
	cfg := Config{AgentId: "agent-cos", Pipeline: []string{"triage"}, EscalationTarget: "agent.human-overseer"}
	a, agents, delegations := newTestAgent(t, cfg, registry.Skill{SkillId: "triage", ExecutorType: "heuristic-decompose"}, exec, b)
	agents.Register(registry.Agent{AgentId: "agent-research", Capabilities: []string{"research"}, Status: registry.Available})
	agents.Register(registry.Agent{AgentId: "agent-draft", Capabilities: []string{"draft"}, Status: registry.Available})

	// maxInboundTier defaults to AskMeFirst (zero value) since the request
	// carries no authority claims — use JustDoIt so this exercises the
	// workflow path rather than gating.
	req := requestEnvelope("write the Q3 report", "agent.caller")
	req.AuthorityClaims = []envelope.AuthorityClaim{{Tier: envelope.JustDoIt, PermittedActions: []string{"research", "draft"}}}

	if _, err := a.ProcessAsync(context.Background(), req); err != nil {
		t.Fatalf("ProcessAsync: %v", err)
	}

	pubs := b.snapshot()
	if len(pubs) != 2 {
		t.Fatalf("published %d child envelopes, want 2", len(pubs))
	}

	if got := delegations.FindByAssignee("agent-research"); len(got) != 1 {
		t.Fatalf("delegations for agent-research = %d, want 1", len(got))
	}
	if got := delegations.FindByAssignee("agent-draft"); len(got) != 1 {
		t.Fatalf("delegations for agent-draft = %d, want 1", len(got))
	}

	// Simulate both specialists replying: feed each child envelope's
	// ReferenceCode back through ProcessAsync as a Reply.
	for i, p := range pubs {
		reply := envelope.Envelope{
			Message:       &envelope.Reply{Base: envelope.NewBase(), Content: "result " + string(rune('A'+i))},
			ReferenceCode: p.env.ReferenceCode,
		}
		if _, err := a.ProcessAsync(context.Background(), reply); err != nil {
			t.Fatalf("ProcessAsync(subtask reply %d): %v", i, err)
		}
	}

	pubs = b.snapshot()
	// 2 child dispatches + 1 final assembled reply.
	if len(pubs) != 3 {
		t.Fatalf("published %d envelopes after both replies, want 3", len(pubs))
	}
	final, ok := pubs[2].env.Message.(*envelope.Reply)
	if !ok {
		t.Fatalf("final published message is %T, want *envelope.Reply", pubs[2].env.Message)
	}
	if final.Failed {
		t.Fatal("final reply marked Failed, want success")
	}
	if pubs[2].queue != "agent.caller" {
		t.Fatalf("final reply queue = %q, want agent.caller", pubs[2].queue)
	}
}

func TestWorkflowDispatchFloorsUnderSpecifiedJustDoItTask(t *testing.T) {
	b := &capturingBus{}
	decomp := DecompositionResult{
		Tasks: []envelope.DecomposedTask{
			// Under 20 description characters and requesting JustDoIt: flagged
			// by security.ScreenTasks and must be capped to DoItAndShowMe
			// before dispatch.
			{Capability: "research", Description: "go", RequestedTier: envelope.JustDoIt},
			{Capability: "draft", Description: "write a full summary of the findings", RequestedTier: envelope.DoItAndShowMe},
		},
		Summary:    "Q3 report",
		Confidence: 0.9,
	}
	exec := &fixedExecutor{executorType: "heuristic-decompose", result: decomp}
	cfg := Config{AgentId: "agent-cos", Pipeline: []string{"triage"}, EscalationTarget: "agent.human-overseer"}
	a, agents, _ := newTestAgent(t, cfg, registry.Skill{SkillId: "triage", ExecutorType: "heuristic-decompose"}, exec, b)
	agents.Register(registry.Agent{AgentId: "agent-research", Capabilities: []string{"research"}, Status: registry.Available})
	agents.Register(registry.Agent{AgentId: "agent-draft", Capabilities: []string{"draft"}, Status: registry.Available})

	req := requestEnvelope("write the Q3 report", "agent.caller")
	req.AuthorityClaims = []envelope.AuthorityClaim{{Tier: envelope.JustDoIt, PermittedActions: []string{"research", "draft"}}}

	if _, err := a.ProcessAsync(context.Background(), req); err != nil {
		t.Fatalf("ProcessAsync: %v", err)
	}

	pubs := b.snapshot()
	if len(pubs) != 2 {
		t.Fatalf("published %d child envelopes, want 2", len(pubs))
	}

	var researchClaims, draftClaims []envelope.AuthorityClaim
	for _, p := range pubs {
		switch p.queue {
		case "agent.agent-research":
			researchClaims = p.env.AuthorityClaims
		case "agent.agent-draft":
			draftClaims = p.env.AuthorityClaims
		}
	}
	if len(researchClaims) != 1 || researchClaims[0].Tier != envelope.DoItAndShowMe {
		t.Fatalf("research child claims = %v, want a single DoItAndShowMe claim (flagged JustDoIt task must be floored)", researchClaims)
	}
	if len(draftClaims) != 1 || draftClaims[0].Tier != envelope.DoItAndShowMe {
		t.Fatalf("draft child claims = %v, want a single DoItAndShowMe claim (requested tier, unaffected by flooring)", draftClaims)
	}
}

func TestWorkflowAggregationAnyFailureFailsFinalReply(t *testing.T) {
	b := &capturingBus{}
	decomp := DecompositionResult{
		Tasks: []envelope.DecomposedTask{
			{Capability: "research", Description: "gather numbers"},
			{Capability: "draft", Description: "write summary"},
		},
		Summary:    "Q3 report",
		Confidence: 0.9,
	}
	exec := &fixedExecutor{executorType: "heuristic-decompose", result: decomp}
	cfg := Config{AgentId: "agent-cos", Pipeline: []string{"triage"}, EscalationTarget: "agent.human-overseer"}
	a, agents, _ := newTestAgent(t, cfg, registry.Skill{SkillId: "triage", ExecutorType: "heuristic-decompose"}, exec, b)
	agents.Register(registry.Agent{AgentId: "agent-research", Capabilities: []string{"research"}, Status: registry.Available})
	agents.Register(registry.Agent{AgentId: "agent-draft", Capabilities: []string{"draft"}, Status: registry.Available})

	req := requestEnvelope("write the Q3 report", "agent.caller")
	req.AuthorityClaims = []envelope.AuthorityClaim{{Tier: envelope.JustDoIt, PermittedActions: []string{"research", "draft"}}}
	if _, err := a.ProcessAsync(context.Background(), req); err != nil {
		t.Fatalf("ProcessAsync: %v", err)
	}

	pubs := b.snapshot()
	for i, p := range pubs {
		failed := i == 0
		reply := envelope.Envelope{
			Message:       &envelope.Reply{Base: envelope.NewBase(), Content: "result", Failed: failed},
			ReferenceCode: p.env.ReferenceCode,
		}
		if _, err := a.ProcessAsync(context.Background(), reply); err != nil {
			t.Fatalf("ProcessAsync(subtask reply %d): %v", i, err)
		}
	}

	pubs = b.snapshot()
	final := pubs[len(pubs)-1].env.Message.(*envelope.Reply)
	if !final.Failed {
		t.Fatal("final reply Failed = false, want true (one sub-task failed)")
	}
}

func TestAskMeFirstGatingPublishesPlanProposal(t *testing.T) {
	b := &capturingBus{}
	decomp := DecompositionResult{
		Tasks: []envelope.DecomposedTask{
			{Capability: "research"},
			{Capability: "draft"},
		},
		Summary:    "needs approval",
		Confidence: 0.9,
	}
	exec := &fixedExecutor{executorType: "heuristic-decompose", result: decomp}
	cfg := Config{AgentId: "agent-cos", Pipeline: []string{"triage"}, EscalationTarget: "agent.human-overseer"}
	a, agents, _ := newTestAgent(t, cfg, registry.Skill{SkillId: "triage", ExecutorType: "heuristic-decompose"}, exec, b)
	agents.Register(registry.Agent{AgentId: "agent-research", Capabilities: []string{"research"}, Status: registry.Available})
	agents.Register(registry.Agent{AgentId: "agent-draft", Capabilities: []string{"draft"}, Status: registry.Available})

	// No AuthorityClaims -> MaxTier() is AskMeFirst -> gating path.
	if _, err := a.ProcessAsync(context.Background(), requestEnvelope("do something big", "agent.caller")); err != nil {
		t.Fatalf("ProcessAsync: %v", err)
	}

	pubs := b.snapshot()
	if len(pubs) != 1 {
		t.Fatalf("published %d envelopes, want 1 (the plan proposal)", len(pubs))
	}
	proposal, ok := pubs[0].env.Message.(*envelope.PlanProposal)
	if !ok {
		t.Fatalf("published message is %T, want *envelope.PlanProposal", pubs[0].env.Message)
	}
	if proposal.Summary != "needs approval" {
		t.Fatalf("Summary = %q, want %q", proposal.Summary, "needs approval")
	}
	if pubs[0].queue != "agent.human-overseer" {
		t.Fatalf("queue = %q, want agent.human-overseer", pubs[0].queue)
	}
}

func TestAskMeFirstApprovalResumesWorkflow(t *testing.T) {
	b := &capturingBus{}
	decomp := DecompositionResult{
		Tasks: []envelope.DecomposedTask{
			{Capability: "research"},
			{Capability: "draft"},
		},
		Summary:    "needs approval",
		Confidence: 0.9,
	}
	exec := &fixedExecutor{executorType: "heuristic-decompose", result: decomp}
	cfg := Config{AgentId: "agent-cos", Pipeline: []string{"triage"}, EscalationTarget: "agent.human-overseer"}
	a, agents, _ := newTestAgent(t, cfg, registry.Skill{SkillId: "triage", ExecutorType: "heuristic-decompose"}, exec, b)
	agents.Register(registry.Agent{AgentId: "agent-research", Capabilities: []string{"research"}, Status: registry.Available})
	agents.Register(registry.Agent{AgentId: "agent-draft", Capabilities: []string{"draft"}, Status: registry.Available})

	if _, err := a.ProcessAsync(context.Background(), requestEnvelope("do something big", "agent.caller")); err != nil {
		t.Fatalf("ProcessAsync (gate): %v", err)
	}
	proposal := b.snapshot()[0].env.Message.(*envelope.PlanProposal)

	approval := envelope.Envelope{
		Message: &envelope.PlanApprovalResponse{
			Base:          envelope.NewBase(),
			Approved:      true,
			ReferenceCode: proposal.PendingReferenceCode,
		},
		ReferenceCode: proposal.PendingReferenceCode,
	}
	if _, err := a.ProcessAsync(context.Background(), approval); err != nil {
		t.Fatalf("ProcessAsync (approval): %v", err)
	}

	pubs := b.snapshot()
	// proposal + 2 child dispatches.
	if len(pubs) != 3 {
		t.Fatalf("published %d envelopes after approval, want 3", len(pubs))
	}
}

func TestAskMeFirstRejectionRepliesWithoutDispatching(t *testing.T) {
	b := &capturingBus{}
	decomp := DecompositionResult{
		Tasks:      []envelope.DecomposedTask{{Capability: "research"}, {Capability: "draft"}},
		Summary:    "needs approval",
		Confidence: 0.9,
	}
	exec := &fixedExecutor{executorType: "heuristic-decompose", result: decomp}
	cfg := Config{AgentId: "agent-cos", Pipeline: []string{"triage"}, EscalationTarget: "agent.human-overseer"}
	a, agents, _ := newTestAgent(t, cfg, registry.Skill{SkillId: "triage", ExecutorType: "heuristic-decompose"}, exec, b)
	agents.Register(registry.Agent{AgentId: "agent-research", Capabilities: []string{"research"}, Status: registry.Available})
	agents.Register(registry.Agent{AgentId: "agent-draft", Capabilities: []string{"draft"}, Status: registry.Available})

	if _, err := a.ProcessAsync(context.Background(), requestEnvelope("do something big", "agent.caller")); err != nil {
		t.Fatalf("ProcessAsync (gate): %v", err)
	}
	proposal := b.snapshot()[0].env.Message.(*envelope.PlanProposal)

	rejection := envelope.Envelope{
		Message: &envelope.PlanApprovalResponse{
			Base:          envelope.NewBase(),
			Approved:      false,
			Amendments:    "not now",
			ReferenceCode: proposal.PendingReferenceCode,
		},
		ReferenceCode: proposal.PendingReferenceCode,
	}
	if _, err := a.ProcessAsync(context.Background(), rejection); err != nil {
		t.Fatalf("ProcessAsync (rejection): %v", err)
	}

	pubs := b.snapshot()
	// proposal + rejection reply to the original caller, no child dispatches.
	if len(pubs) != 2 {
		t.Fatalf("published %d envelopes after rejection, want 2 (proposal + rejection reply)", len(pubs))
	}
	reply, ok := pubs[1].env.Message.(*envelope.Reply)
	if !ok {
		t.Fatalf("second published message is %T, want *envelope.Reply", pubs[1].env.Message)
	}
	if !strings.Contains(reply.Content, "not now") {
		t.Fatalf("reply content = %q, want it to include the amendments", reply.Content)
	}
	if pubs[1].queue != "agent.caller" {
		t.Fatalf("rejection reply queue = %q, want agent.caller", pubs[1].queue)
	}
}

func TestSupervisionAlertRetriesSameTargetWhenRunning(t *testing.T) {
	b := &capturingBus{}
	cfg := Config{AgentId: "agent-cos", Pipeline: []string{"triage"}, EscalationTarget: "agent.human-overseer", MaxRetries: 3}
	exec := &fixedExecutor{executorType: "heuristic-decompose"}
	a, agents, delegations := newTestAgent(t, cfg, registry.Skill{SkillId: "triage", ExecutorType: "heuristic-decompose"}, exec, b)
	agents.Register(registry.Agent{AgentId: "agent-research", Capabilities: []string{"research"}, Status: registry.Available})

	dispatched := envelope.Envelope{ReferenceCode: "CTX-1", Context: envelope.Context{ReplyTo: "agent.cos"}}
	delegations.Delegate(registry.Delegation{
		ReferenceCode:      "CTX-1",
		DelegatedBy:        "agent-cos",
		DelegatedTo:        "agent-research",
		Capability:         "research",
		DispatchedEnvelope: dispatched,
		Status:             registry.Pending,
	})

	alert := &envelope.SupervisionAlert{
		Base:             envelope.NewBase(),
		RefCode:          "CTX-1",
		DelegatedAgentId: "agent-research",
		RetryCount:       0,
		IsAgentRunning:   true,
	}
	if _, err := a.ProcessAsync(context.Background(), envelope.Envelope{Message: alert, ReferenceCode: "CTX-1"}); err != nil {
		t.Fatalf("ProcessAsync(SupervisionAlert): %v", err)
	}

	pubs := b.snapshot()
	if len(pubs) != 1 {
		t.Fatalf("published %d envelopes, want 1 (retry to same target)", len(pubs))
	}
	if pubs[0].queue != "agent.agent-research" {
		t.Fatalf("queue = %q, want agent.agent-research (retry same target)", pubs[0].queue)
	}
}

func TestSupervisionAlertRedispatchesWhenAgentNotRunning(t *testing.T) {
	b := &capturingBus{}
	cfg := Config{AgentId: "agent-cos", Pipeline: []string{"triage"}, EscalationTarget: "agent.human-overseer", MaxRetries: 3}
	exec := &fixedExecutor{executorType: "heuristic-decompose"}
	a, agents, delegations := newTestAgent(t, cfg, registry.Skill{SkillId: "triage", ExecutorType: "heuristic-decompose"}, exec, b)
	agents.Register(registry.Agent{AgentId: "agent-research", Capabilities: []string{"research"}, Status: registry.Unavailable})
	agents.Register(registry.Agent{AgentId: "agent-research-2", Capabilities: []string{"research"}, Status: registry.Available})

	dispatched := envelope.Envelope{ReferenceCode: "CTX-1"}
	delegations.Delegate(registry.Delegation{
		ReferenceCode:      "CTX-1",
		DelegatedBy:        "agent-cos",
		DelegatedTo:        "agent-research",
		Capability:         "research",
		DispatchedEnvelope: dispatched,
		Status:             registry.Pending,
	})

	alert := &envelope.SupervisionAlert{
		Base:             envelope.NewBase(),
		RefCode:          "CTX-1",
		DelegatedAgentId: "agent-research",
		RetryCount:       0,
		IsAgentRunning:   false,
	}
	if _, err := a.ProcessAsync(context.Background(), envelope.Envelope{Message: alert, ReferenceCode: "CTX-1"}); err != nil {
		t.Fatalf("ProcessAsync(SupervisionAlert): %v", err)
	}

	pubs := b.snapshot()
	if len(pubs) != 1 {
		t.Fatalf("published %d envelopes, want 1 (redispatch to alternate)", len(pubs))
	}
	if pubs[0].queue != "agent.agent-research-2" {
		t.Fatalf("queue = %q, want agent.agent-research-2 (redispatched to the alternate)", pubs[0].queue)
	}

	origStatus, err := delegations.Get("CTX-1")
	if err != nil {
		t.Fatalf("Get(CTX-1): %v", err)
	}
	if origStatus.Status != registry.Failed {
		t.Fatalf("original delegation status = %v, want Failed", origStatus.Status)
	}
}

func TestEscalationAlertForwardsToEscalationTarget(t *testing.T) {
	b := &capturingBus{}
	cfg := Config{AgentId: "agent-cos", Pipeline: []string{"triage"}, EscalationTarget: "agent.human-overseer"}
	exec := &fixedExecutor{executorType: "heuristic-decompose"}
	a, _, _ := newTestAgent(t, cfg, registry.Skill{SkillId: "triage", ExecutorType: "heuristic-decompose"}, exec, b)

	alert := &envelope.EscalationAlert{Base: envelope.NewBase(), RefCode: "CTX-1", Reason: "retry budget exhausted"}
	if _, err := a.ProcessAsync(context.Background(), envelope.Envelope{Message: alert, ReferenceCode: "CTX-1"}); err != nil {
		t.Fatalf("ProcessAsync(EscalationAlert): %v", err)
	}

	pubs := b.snapshot()
	if len(pubs) != 1 || pubs[0].queue != "agent.human-overseer" {
		t.Fatalf("published = %v, want one envelope to agent.human-overseer", pubs)
	}
}
