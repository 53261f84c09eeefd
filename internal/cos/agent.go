// Package cos implements the skill-driven agent (C7, "Chief of Staff"):
// triage a new request through its skill pipeline, decide between a
// fast-path 1:1 delegation, a fanned-out workflow, or human-gated plan
// approval, then aggregate sub-task replies into one final answer. It is
// the only harness.Agent implementation in this runtime, spec §4.7.
package cos

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cortexrt/runtime/internal/envelope"
	"github.com/cortexrt/runtime/internal/market"
	"github.com/cortexrt/runtime/internal/pipeline"
	"github.com/cortexrt/runtime/internal/refcode"
	"github.com/cortexrt/runtime/internal/registry"
	"github.com/cortexrt/runtime/internal/security"
	"github.com/cortexrt/runtime/internal/workflow"
)

// Bus is the narrow publish-only slice of bus.Bus the Chief of Staff
// needs: every outbound envelope it produces (escalation, plan proposal,
// child dispatch, aggregated reply) is self-addressed (it knows its own
// ReplyTo/target), so it never goes through the harness's single-reply
// stamping path — it publishes directly and always returns a nil reply
// to its harness.
type Bus interface {
	PublishAsync(ctx context.Context, env envelope.Envelope, queueName string) error
}

// planTokenTTL bounds how long a sealed PlanProposal token remains valid
// for approval, spec §4.7.4 supplement (SPEC_FULL §12).
const planTokenTTL = 24 * time.Hour

// Agent is the C7 component.
type Agent struct {
	cfg Config
	self registry.Agent

	bus         Bus
	refcodes    *refcode.Generator
	agents      *registry.AgentRegistry
	delegations *registry.DelegationRegistry
	pending     *registry.PendingPlanRegistry
	retries     *registry.RetryCounterRegistry
	contextReg  *registry.ContextRegistry
	workflows   *workflow.Tracker
	pipeline    *pipeline.Runner
	selector    market.Selector
	tokens      *security.PlanTokenSealer

	logger *log.Logger
	now    func() time.Time
}

// Deps bundles every collaborator the Chief of Staff needs. ContextReg and
// Tokens are optional (nil disables business-context enrichment and plan
// token sealing, respectively); Selector defaults to market.FirstAvailable
// when nil.
type Deps struct {
	Bus         Bus
	Refcodes    *refcode.Generator
	Agents      *registry.AgentRegistry
	Delegations *registry.DelegationRegistry
	Pending     *registry.PendingPlanRegistry
	Retries     *registry.RetryCounterRegistry
	ContextReg  *registry.ContextRegistry
	Workflows   *workflow.Tracker
	Pipeline    *pipeline.Runner
	Selector    market.Selector
	Tokens      *security.PlanTokenSealer
	Logger      *log.Logger
	Now         func() time.Time
}

func New(cfg Config, d Deps) *Agent {
	cfg = cfg.withDefaults()
	logger := d.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	selector := d.Selector
	if selector == nil {
		selector = market.FirstAvailable{}
	}
	return &Agent{
		cfg:         cfg,
		self:        registry.Agent{AgentId: cfg.AgentId, Capabilities: cfg.Capabilities, Status: registry.Available},
		bus:         d.Bus,
		refcodes:    d.Refcodes,
		agents:      d.Agents,
		delegations: d.Delegations,
		pending:     d.Pending,
		retries:     d.Retries,
		contextReg:  d.ContextReg,
		workflows:   d.Workflows,
		pipeline:    d.Pipeline,
		selector:    selector,
		tokens:      d.Tokens,
		logger:      logger,
		now:         now,
	}
}

// ProcessAsync implements harness.Agent. It never returns a reply envelope
// of its own — every outbound message this agent sends is published
// directly via a.bus, since each has its own distinct destination and
// stamping rules (spec §4.7.1-§4.7.6).
func (a *Agent) ProcessAsync(ctx context.Context, env envelope.Envelope) (*envelope.Envelope, error) {
	switch msg := env.Message.(type) {
	case *envelope.SupervisionAlert:
		return nil, a.handleSupervisionAlert(ctx, msg)
	case *envelope.EscalationAlert:
		return nil, a.handleEscalationAlert(ctx, msg)
	case *envelope.PlanApprovalResponse:
		plan, ok := a.findPendingPlan(env, msg)
		if !ok {
			a.logger.Printf("cos: plan approval response matches no pending plan: %s", msg.ReferenceCode)
			return nil, nil
		}
		return nil, a.handlePlanApproval(ctx, msg, plan)
	}

	if rec, ok := a.workflows.FindBySubtask(env.ReferenceCode); ok {
		return nil, a.handleSubtaskReply(ctx, env, rec)
	}

	return nil, a.handleNewRequest(ctx, env)
}

// handleNewRequest implements spec §4.7.2 and, through it, spec §4.6's
// single persona-configurable agent type: run the configured pipeline,
// then either answer the request directly (a specialist persona whose
// pipeline terminates in a plain-text result) or treat it as a
// DecompositionResult to route through the fast path, the workflow path,
// or AskMeFirst gating (the Chief of Staff persona).
func (a *Agent) handleNewRequest(ctx context.Context, env envelope.Envelope) error {
	req, ok := env.Message.(*envelope.Request)
	if !ok {
		a.logger.Printf("cos: dropping unrecognized message type: %s", env.Message.Type())
		return nil
	}

	maxInboundTier := env.MaxTier()
	params := map[string]any{
		"messageContent":        req.Content,
		"availableCapabilities": a.agents.AllCapabilities(),
		"maxInboundTier":        maxInboundTier,
	}
	if a.contextReg != nil {
		if ctxStr := a.businessContext(req.Content); ctxStr != "" {
			params["businessContext"] = ctxStr
		}
	}

	result, err := a.pipeline.RunAsync(ctx, a.cfg.Pipeline, params)
	if err != nil {
		return a.escalate(ctx, env, fmt.Sprintf("pipeline error: %v", err))
	}
	if answer, ok := result.(string); ok {
		return a.replyDirect(ctx, env, answer)
	}
	decomp, ok := result.(DecompositionResult)
	if !ok {
		return a.escalate(ctx, env, "pipeline did not produce a decomposition result")
	}

	if decomp.Confidence < a.cfg.ConfidenceThreshold || len(decomp.Tasks) == 0 {
		return a.escalate(ctx, env, fmt.Sprintf("confidence %.2f below threshold %.2f or empty decomposition", decomp.Confidence, a.cfg.ConfidenceThreshold))
	}
	for _, task := range decomp.Tasks {
		if !a.agents.HasCapability(task.Capability) {
			return a.escalate(ctx, env, fmt.Sprintf("unknown capability %q", task.Capability))
		}
	}

	if len(decomp.Tasks) == 1 {
		return a.fastPath(ctx, env, decomp.Tasks[0])
	}
	if maxInboundTier == envelope.AskMeFirst {
		return a.gatePlan(ctx, env, decomp)
	}
	return a.dispatchWorkflow(ctx, env, decomp)
}

// replyDirect answers env itself rather than delegating further — the
// specialist-persona branch of spec §4.6's single agent type: its pipeline
// did the work in-process and produced a plain-text result, so there is no
// sub-task to dispatch or aggregate.
func (a *Agent) replyDirect(ctx context.Context, env envelope.Envelope, answer string) error {
	replyTo := env.Context.ReplyTo
	if replyTo == "" {
		return nil
	}
	out := envelope.Envelope{
		Message:       &envelope.Reply{Base: envelope.NewBase(), Content: answer},
		ReferenceCode: env.ReferenceCode,
		Context: envelope.Context{
			FromAgentId:     a.cfg.AgentId,
			ParentMessageId: env.Message.Base().MessageId,
		},
	}
	return a.bus.PublishAsync(ctx, out, replyTo)
}

func (a *Agent) businessContext(content string) string {
	entries := a.contextReg.Query(registry.ContextQuery{Keywords: content, MaxResults: 5})
	if len(entries) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "[%s] %s\n", e.Category, e.Content)
	}
	return sb.String()
}

// escalate forwards env to EscalationTarget unchanged and records why,
// spec §4.7.2 "escalate: publish the envelope to EscalationTarget, create
// a delegation recording the reason, return no reply."
func (a *Agent) escalate(ctx context.Context, env envelope.Envelope, reason string) error {
	a.delegations.Delegate(registry.Delegation{
		ReferenceCode:      env.ReferenceCode,
		DelegatedBy:        a.cfg.AgentId,
		DelegatedTo:        a.cfg.EscalationTarget,
		Description:        reason,
		DispatchedEnvelope: env,
		Status:             registry.Escalated,
	})
	a.logger.Printf("cos: escalating request %s: %s", env.ReferenceCode, reason)
	return a.bus.PublishAsync(ctx, env, a.cfg.EscalationTarget)
}

// resolveAgent picks a candidate for capability via the configured
// Selector, narrowed to this agent registry's current Available set.
func (a *Agent) resolveAgent(ctx context.Context, capability string) (registry.Agent, error) {
	return a.selector.SelectAsync(ctx, a.agents.FindByCapability(capability), capability)
}

// fastPath implements spec §4.7.2's 1:1 case: a single decomposed task
// dispatched directly, no workflow bookkeeping required.
func (a *Agent) fastPath(ctx context.Context, env envelope.Envelope, task envelope.DecomposedTask) error {
	target, err := a.resolveAgent(ctx, task.Capability)
	if err != nil {
		return a.escalate(ctx, env, fmt.Sprintf("no agent available for capability %q", task.Capability))
	}

	code, err := a.refcodes.GenerateAsync(ctx)
	if err != nil {
		return fmt.Errorf("cos: fast path: %w", err)
	}

	claims := envelope.Narrow(env.AuthorityClaims, task.Capability, a.cfg.AgentId, target.AgentId, task.RequestedTier, a.now())
	out := envelope.Envelope{
		Message:         env.Message,
		ReferenceCode:   code.String(),
		AuthorityClaims: claims,
		Context: envelope.Context{
			ReplyTo:         env.Context.ReplyTo,
			ParentMessageId: env.Message.Base().MessageId,
			OriginalGoal:    contentOf(env.Message),
			TeamId:          env.Context.TeamId,
			ChannelId:       env.Context.ChannelId,
			FromAgentId:     a.cfg.AgentId,
		},
		Priority: env.Priority,
		Sla:      env.Sla,
	}

	a.delegations.Delegate(registry.Delegation{
		ReferenceCode:      code.String(),
		DelegatedBy:        a.cfg.AgentId,
		DelegatedTo:        target.AgentId,
		Description:        task.Description,
		Capability:         task.Capability,
		DispatchedEnvelope: out,
		DueAt:              dueAt(env.Sla, a.now()),
		Status:             registry.Pending,
	})

	return a.bus.PublishAsync(ctx, out, target.Queue())
}

// dueAt derives a delegation's supervision deadline from its envelope's
// SLA, spec §4.8 step 1's precondition: no SLA means no overdue check.
func dueAt(sla *time.Duration, now time.Time) *time.Time {
	if sla == nil {
		return nil
	}
	due := now.Add(*sla)
	return &due
}

// dispatchWorkflow implements spec §4.7.3: resolve every task's target
// before dispatching any of them (a single unresolvable capability
// aborts the whole decomposition to escalation), register the workflow,
// then fan out.
func (a *Agent) dispatchWorkflow(ctx context.Context, env envelope.Envelope, decomp DecompositionResult) error {
	for _, w := range security.ScreenTasks(decomp.Tasks) {
		a.logger.Printf("cos: workflow screening flag for %s: %s", env.ReferenceCode, w)
	}
	decomp.Tasks = security.EnforceFloor(decomp.Tasks)

	targets := make([]registry.Agent, len(decomp.Tasks))
	for i, task := range decomp.Tasks {
		target, err := a.resolveAgent(ctx, task.Capability)
		if err != nil {
			return a.escalate(ctx, env, fmt.Sprintf("no agent available for capability %q", task.Capability))
		}
		targets[i] = target
	}

	parentCode, err := a.refcodes.GenerateAsync(ctx)
	if err != nil {
		return fmt.Errorf("cos: dispatch workflow: %w", err)
	}

	childCodes := make([]string, len(decomp.Tasks))
	childEnvelopes := make([]envelope.Envelope, len(decomp.Tasks))
	for i, task := range decomp.Tasks {
		childCode, err := a.refcodes.GenerateAsync(ctx)
		if err != nil {
			return fmt.Errorf("cos: dispatch workflow: %w", err)
		}
		childCodes[i] = childCode.String()

		claims := envelope.Narrow(env.AuthorityClaims, task.Capability, a.cfg.AgentId, targets[i].AgentId, task.RequestedTier, a.now())
		childEnvelopes[i] = envelope.Envelope{
			Message:         env.Message,
			ReferenceCode:   childCode.String(),
			AuthorityClaims: claims,
			Context: envelope.Context{
				ReplyTo:         a.self.Queue(),
				ParentMessageId: env.Message.Base().MessageId,
				OriginalGoal:    contentOf(env.Message),
				TeamId:          env.Context.TeamId,
				ChannelId:       env.Context.ChannelId,
				FromAgentId:     a.cfg.AgentId,
			},
			Priority: env.Priority,
			Sla:      env.Sla,
		}

		a.delegations.Delegate(registry.Delegation{
			ReferenceCode:      childCode.String(),
			DelegatedBy:        a.cfg.AgentId,
			DelegatedTo:        targets[i].AgentId,
			Description:        task.Description,
			Capability:         task.Capability,
			DispatchedEnvelope: childEnvelopes[i],
			DueAt:              dueAt(env.Sla, a.now()),
			Status:             registry.Pending,
		})
	}

	if _, err := a.workflows.Create(parentCode.String(), env, childCodes, decomp.Tasks, decomp.Summary, a.now()); err != nil {
		return fmt.Errorf("cos: create workflow: %w", err)
	}

	for i, ce := range childEnvelopes {
		if err := a.bus.PublishAsync(ctx, ce, targets[i].Queue()); err != nil {
			a.logger.Printf("cos: publish child envelope to %s failed: %v", targets[i].AgentId, err)
		}
	}
	return nil
}

// gatePlan implements spec §4.7.4's gating half: store the pending plan,
// screen it, seal an approval token, and publish a PlanProposal to the
// escalation target for a human to answer.
func (a *Agent) gatePlan(ctx context.Context, env envelope.Envelope, decomp DecompositionResult) error {
	pendingCode, err := a.refcodes.GenerateAsync(ctx)
	if err != nil {
		return fmt.Errorf("cos: gate plan: %w", err)
	}

	for _, w := range security.ScreenTasks(decomp.Tasks) {
		a.logger.Printf("cos: plan screening flag for %s: %s", pendingCode.String(), w)
	}
	decomp.Tasks = security.EnforceFloor(decomp.Tasks)

	a.pending.Store(registry.PendingPlan{
		PendingReferenceCode: pendingCode.String(),
		OriginalEnvelope:     env,
		Tasks:                decomp.Tasks,
		Summary:              decomp.Summary,
		StoredAt:             a.now(),
	})

	originator := env.Context.FromAgentId
	if originator == "" {
		originator = "external"
	}
	a.delegations.Delegate(registry.Delegation{
		ReferenceCode: pendingCode.String(),
		DelegatedBy:   originator,
		DelegatedTo:   a.cfg.AgentId,
		Description:   decomp.Summary,
		Status:        registry.Pending,
	})

	var sealedToken string
	if a.tokens != nil {
		sealedToken, err = a.tokens.Seal(pendingCode.String(), a.now().Add(planTokenTTL))
		if err != nil {
			a.logger.Printf("cos: seal plan token failed: %v", err)
		}
	}

	proposal := &envelope.PlanProposal{
		Base:                 envelope.NewBase(),
		Tasks:                decomp.Tasks,
		Summary:              decomp.Summary,
		OriginalGoal:         contentOf(env.Message),
		PendingReferenceCode: pendingCode.String(),
		SealedToken:          sealedToken,
	}
	out := envelope.Envelope{
		Message:       proposal,
		ReferenceCode: pendingCode.String(),
		Context: envelope.Context{
			ReplyTo:         a.self.Queue(),
			ParentMessageId: env.Message.Base().MessageId,
			OriginalGoal:    contentOf(env.Message),
			TeamId:          env.Context.TeamId,
			FromAgentId:     a.cfg.AgentId,
		},
		Priority: env.Priority,
	}
	return a.bus.PublishAsync(ctx, out, a.cfg.EscalationTarget)
}

// findPendingPlan matches a PlanApprovalResponse to a pending plan by its
// own ReferenceCode or, failing that, by the inbound envelope's
// ParentMessageId — spec §4.7.4.
func (a *Agent) findPendingPlan(env envelope.Envelope, resp *envelope.PlanApprovalResponse) (registry.PendingPlan, bool) {
	if p, err := a.pending.Get(resp.ReferenceCode); err == nil {
		return p, true
	}
	if p, err := a.pending.Get(env.Context.ParentMessageId); err == nil {
		return p, true
	}
	return registry.PendingPlan{}, false
}

// handlePlanApproval implements spec §4.7.4's resume half: verify the
// sealed token if present, remove the pending plan, and either publish a
// rejection summary or resume the workflow path with the stored plan.
func (a *Agent) handlePlanApproval(ctx context.Context, resp *envelope.PlanApprovalResponse, plan registry.PendingPlan) error {
	if a.tokens != nil && resp.SealedToken != "" {
		code, expired, err := a.tokens.Unseal(resp.SealedToken)
		if err != nil || code != plan.PendingReferenceCode || expired {
			a.logger.Printf("cos: plan approval token invalid or expired, dropping %s", plan.PendingReferenceCode)
			return nil
		}
	}

	a.pending.Remove(plan.PendingReferenceCode)
	_ = a.delegations.UpdateStatus(plan.PendingReferenceCode, registry.Completed)

	if !resp.Approved {
		replyTo := plan.OriginalEnvelope.Context.ReplyTo
		if replyTo == "" {
			return nil
		}
		content := fmt.Sprintf("Plan rejected: %s", plan.Summary)
		if resp.Amendments != "" {
			content += fmt.Sprintf("\nAmendments requested: %s", resp.Amendments)
		}
		out := envelope.Envelope{
			Message:       &envelope.Reply{Base: envelope.NewBase(), Content: content},
			ReferenceCode: plan.PendingReferenceCode,
			Context: envelope.Context{
				FromAgentId:     a.cfg.AgentId,
				ParentMessageId: plan.OriginalEnvelope.Message.Base().MessageId,
			},
		}
		return a.bus.PublishAsync(ctx, out, replyTo)
	}

	decomp := DecompositionResult{Tasks: plan.Tasks, Summary: plan.Summary, Confidence: 1.0}
	return a.dispatchWorkflow(ctx, plan.OriginalEnvelope, decomp)
}

// handleSubtaskReply implements spec §4.7.6: mark the delegation
// Completed or Failed, store the result, and assemble the final reply
// exactly once the workflow's tracker reports every sub-task in.
func (a *Agent) handleSubtaskReply(ctx context.Context, env envelope.Envelope, rec *workflow.Record) error {
	reply, ok := env.Message.(*envelope.Reply)
	if !ok {
		a.logger.Printf("cos: sub-task reply envelope carries unexpected message type: %s", env.Message.Type())
		return nil
	}

	status := registry.Completed
	if reply.Failed {
		status = registry.Failed
	}
	if err := a.delegations.UpdateStatus(env.ReferenceCode, status); err != nil && !errors.Is(err, registry.ErrDelegationNotFound) {
		a.logger.Printf("cos: update delegation status failed for %s: %v", env.ReferenceCode, err)
	}

	complete, err := rec.StoreSubtaskResult(env.ReferenceCode, env, reply.Failed, a.now())
	if err != nil {
		a.logger.Printf("cos: store sub-task result failed for %s: %v", env.ReferenceCode, err)
		return nil
	}
	if !complete {
		return nil
	}
	return a.assembleAndPublish(ctx, rec)
}

// assembleAndPublish builds the final reply body by concatenating, in
// task order, "## <capability>: <description>" sections with each
// sub-task's result content, flagging failures inline, spec §4.7.6 step 4.
func (a *Agent) assembleAndPublish(ctx context.Context, rec *workflow.Record) error {
	results := rec.GetCompletedResults()
	failed := make(map[string]bool)
	for _, code := range rec.FailedSubtasks() {
		failed[code] = true
	}

	var body strings.Builder
	body.WriteString(rec.Summary)
	body.WriteString("\n\n")
	for i, res := range results {
		if i >= len(rec.SubtaskTasks) {
			break
		}
		task := rec.SubtaskTasks[i]
		code := rec.SubtaskReferenceCodes[i]
		header := fmt.Sprintf("## %s: %s", task.Capability, task.Description)
		if failed[code] {
			header += " (FAILED)"
		}
		fmt.Fprintf(&body, "%s\n%s\n\n", header, contentOf(res.Message))
	}

	finalReply := &envelope.Reply{
		Base:    envelope.NewBase(),
		Content: strings.TrimSpace(body.String()),
		Failed:  rec.Status == workflow.Failed,
	}
	out := envelope.Envelope{
		Message:       finalReply,
		ReferenceCode: rec.ReferenceCode,
		Context: envelope.Context{
			FromAgentId:     a.cfg.AgentId,
			ParentMessageId: rec.OriginalEnvelope.Message.Base().MessageId,
		},
	}

	replyTo := rec.OriginalEnvelope.Context.ReplyTo
	if replyTo == "" {
		return nil
	}
	return a.bus.PublishAsync(ctx, out, replyTo)
}

// handleSupervisionAlert implements spec §4.7.5: retry the same target if
// the agent is alive and under its retry budget, otherwise resolve a
// fresh reference code and a different agent for the same capability.
func (a *Agent) handleSupervisionAlert(ctx context.Context, alert *envelope.SupervisionAlert) error {
	delegation, err := a.delegations.Get(alert.RefCode)
	if err != nil {
		a.logger.Printf("cos: supervision alert for unknown delegation: %s", alert.RefCode)
		return nil
	}

	retryThreshold := a.cfg.MaxRetries - 1
	if !alert.IsAgentRunning || alert.RetryCount >= retryThreshold {
		return a.redispatchToAlternate(ctx, alert, delegation)
	}
	return a.retrySameTarget(ctx, alert, delegation)
}

// redispatchToAlternate picks a different agent for the same capability,
// mints a fresh reference code for the re-dispatch, and marks the failed
// delegation Failed (resolving the "reuse vs. fresh code" open question:
// a same-target retry reuses the code; an alternate-agent re-dispatch is
// new work and gets its own).
func (a *Agent) redispatchToAlternate(ctx context.Context, alert *envelope.SupervisionAlert, delegation registry.Delegation) error {
	candidates := a.agents.FindByCapability(delegation.Capability)
	var filtered []registry.Agent
	for _, c := range candidates {
		if c.AgentId != alert.DelegatedAgentId {
			filtered = append(filtered, c)
		}
	}

	target, err := a.selector.SelectAsync(ctx, filtered, delegation.Capability)
	if err != nil {
		return a.escalateSupervision(ctx, alert, fmt.Sprintf("no alternate agent available for capability %q", delegation.Capability))
	}

	newCode, err := a.refcodes.GenerateAsync(ctx)
	if err != nil {
		return fmt.Errorf("cos: redispatch to alternate: %w", err)
	}

	_ = a.delegations.UpdateStatus(alert.RefCode, registry.Failed)

	newEnv := delegation.DispatchedEnvelope
	newEnv.ReferenceCode = newCode.String()
	newEnv.Context.FromAgentId = a.cfg.AgentId

	a.delegations.Delegate(registry.Delegation{
		ReferenceCode:      newCode.String(),
		DelegatedBy:        delegation.DelegatedBy,
		DelegatedTo:        target.AgentId,
		Description:        delegation.Description,
		Capability:         delegation.Capability,
		DispatchedEnvelope: newEnv,
		Status:             registry.Pending,
	})

	a.recordLesson(fmt.Sprintf("supervision: %s replaced %s for capability %q after %d retries", target.AgentId, alert.DelegatedAgentId, delegation.Capability, alert.RetryCount), newCode.String())

	return a.bus.PublishAsync(ctx, newEnv, target.Queue())
}

// retrySameTarget re-publishes the original delegation's envelope to the
// same target and bumps the retry counter, spec §4.7.5 "Otherwise".
func (a *Agent) retrySameTarget(ctx context.Context, alert *envelope.SupervisionAlert, delegation registry.Delegation) error {
	a.retries.Increment(alert.RefCode)

	target, err := a.agents.FindById(delegation.DelegatedTo)
	if err != nil {
		return a.escalateSupervision(ctx, alert, fmt.Sprintf("original target %s no longer registered", delegation.DelegatedTo))
	}
	return a.bus.PublishAsync(ctx, delegation.DispatchedEnvelope, target.Queue())
}

func (a *Agent) escalateSupervision(ctx context.Context, alert *envelope.SupervisionAlert, reason string) error {
	esc := &envelope.EscalationAlert{
		Base:                envelope.NewBase(),
		RefCode:             alert.RefCode,
		DelegatedAgentId:    alert.DelegatedAgentId,
		RetryCount:          alert.RetryCount,
		Reason:              reason,
		OriginalDescription: alert.Description,
	}
	out := envelope.Envelope{
		Message:       esc,
		ReferenceCode: alert.RefCode,
		Context:       envelope.Context{FromAgentId: a.cfg.AgentId},
	}
	return a.bus.PublishAsync(ctx, out, a.cfg.EscalationTarget)
}

// handleEscalationAlert implements spec §4.7.5's terminal case: forward
// to EscalationTarget with full context, no further retry.
func (a *Agent) handleEscalationAlert(ctx context.Context, alert *envelope.EscalationAlert) error {
	out := envelope.Envelope{
		Message:       alert,
		ReferenceCode: alert.RefCode,
		Context:       envelope.Context{FromAgentId: a.cfg.AgentId},
	}
	return a.bus.PublishAsync(ctx, out, a.cfg.EscalationTarget)
}

func (a *Agent) recordLesson(content, refCode string) {
	if a.contextReg == nil {
		return
	}
	_ = a.contextReg.Store(registry.ContextEntry{
		EntryId:       uuid.NewString(),
		Content:       content,
		Category:      "lesson",
		ReferenceCode: refCode,
		CreatedAt:     a.now(),
	})
}

func contentOf(msg envelope.Message) string {
	switch m := msg.(type) {
	case *envelope.Reply:
		return m.Content
	case *envelope.Request:
		return m.Content
	default:
		return ""
	}
}
