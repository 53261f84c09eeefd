package envelope

// The concrete message kinds carried over the bus, spec §6.4. Each embeds
// Base and reports its own wire type tag via Type() — the tag is what
// travels in the `cortex-message-type` header (spec §6.1) so a receiver can
// reconstruct the right Go type before dispatch.

const (
	TypeRequest             = "cortex.Request"
	TypeReply               = "cortex.Reply"
	TypePlanProposal        = "cortex.PlanProposal"
	TypePlanApprovalResp    = "cortex.PlanApprovalResponse"
	TypeSupervisionAlert    = "cortex.SupervisionAlert"
	TypeEscalationAlert     = "cortex.EscalationAlert"
)

// Request is the general-purpose inbound unit of work: a free-text goal or
// instruction, optionally pre-enriched with business context.
type Request struct {
	Base
	Content string `json:"content"`
}

func (Request) Type() string { return TypeRequest }

// Reply carries a completed (or partially completed) result back to a
// ReplyTo queue.
type Reply struct {
	Base
	Content string `json:"content"`
	Failed  bool   `json:"failed,omitempty"`
}

func (Reply) Type() string { return TypeReply }

// DecomposedTask is one line item of a DecompositionResult, spec §4.7.2.
type DecomposedTask struct {
	Capability   string `json:"capability"`
	Description  string `json:"description"`
	RequestedTier Tier  `json:"requestedTier"`
}

// PlanProposal is published to EscalationTarget when AskMeFirst gating
// requires human approval before a workflow fans out, spec §4.7.4.
type PlanProposal struct {
	Base
	Tasks                 []DecomposedTask `json:"tasks"`
	Summary                string          `json:"summary"`
	OriginalGoal           string          `json:"originalGoal"`
	PendingReferenceCode   string          `json:"pendingReferenceCode"`
	SealedToken            string          `json:"sealedToken,omitempty"`
}

func (PlanProposal) Type() string { return TypePlanProposal }

// PlanApprovalResponse answers a PlanProposal, spec §4.7.4/§6.4.
type PlanApprovalResponse struct {
	Base
	Approved      bool   `json:"approved"`
	Amendments    string `json:"amendments,omitempty"`
	ReferenceCode string `json:"referenceCode"`
	SealedToken   string `json:"sealedToken,omitempty"`
}

func (PlanApprovalResponse) Type() string { return TypePlanApprovalResp }

// SupervisionAlert is published to agent.cos by the supervision service
// when a delegation is overdue but has not yet exhausted its retry budget,
// spec §4.8 step 4, §6.4.
type SupervisionAlert struct {
	Base
	RefCode         string `json:"refCode"`
	DelegatedAgentId string `json:"delegatedAgentId"`
	RetryCount      int    `json:"retryCount"`
	DueAt           string `json:"dueAt"`
	Description     string `json:"description"`
	IsAgentRunning   bool   `json:"isAgentRunning"`
}

func (SupervisionAlert) Type() string { return TypeSupervisionAlert }

// EscalationAlert is published to the configured escalation target once a
// delegation exhausts its retry budget, spec §4.8 step 5, §6.4.
type EscalationAlert struct {
	Base
	RefCode            string `json:"refCode"`
	DelegatedAgentId   string `json:"delegatedAgentId"`
	RetryCount         int    `json:"retryCount"`
	Reason             string `json:"reason"`
	OriginalDescription string `json:"originalDescription"`
}

func (EscalationAlert) Type() string { return TypeEscalationAlert }
