// Package envelope defines the message envelope carried over the bus: the
// concrete payload, its tracking reference code, authority claims, and the
// routing context a harness needs to stamp and forward a reply.
package envelope

import (
	"time"

	"github.com/google/uuid"
)

// Priority orders delivery expectations; it does not affect bus FIFO order,
// only how agents and the supervision service reason about urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Message is the discriminated payload carried by an Envelope. Concrete
// message kinds (Request, PlanProposal, PlanApprovalResponse,
// SupervisionAlert, EscalationAlert, ...) embed Base and satisfy this
// interface via Type().
type Message interface {
	Type() string
	Base() *Base
}

// Base carries the fields every concrete message kind owns directly, per
// spec §3.2: "Message carries its own MessageId, Timestamp, optional
// CorrelationId."
type Base struct {
	MessageId     string    `json:"messageId"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationId string    `json:"correlationId,omitempty"`
}

// NewBase stamps a fresh MessageId and Timestamp. CorrelationId is left
// empty for the caller to set when replying to a prior message.
func NewBase() Base {
	return Base{MessageId: uuid.NewString(), Timestamp: time.Now().UTC()}
}

func (b *Base) Base() *Base { return b }

// Context carries routing and lineage metadata. All fields are optional;
// a non-nil Context with every field empty is still valid (spec §3.2).
type Context struct {
	ParentMessageId string `json:"parentMessageId,omitempty"`
	OriginalGoal    string `json:"originalGoal,omitempty"`
	TeamId          string `json:"teamId,omitempty"`
	ChannelId       string `json:"channelId,omitempty"`
	ReplyTo         string `json:"replyTo,omitempty"`
	FromAgentId     string `json:"fromAgentId,omitempty"`
}

// Envelope is the immutable unit of bus delivery. Handler code observes but
// must not mutate an Envelope in place (spec §3.10); build a new Envelope
// value instead.
type Envelope struct {
	Message         Message          `json:"message"`
	ReferenceCode   string           `json:"referenceCode"`
	AuthorityClaims []AuthorityClaim `json:"authorityClaims,omitempty"`
	Context         Context          `json:"context"`
	Priority        Priority         `json:"priority"`
	Sla             *time.Duration   `json:"sla,omitempty"`
}

// MaxTier returns the highest authority tier present in the claim set, or
// the zero Tier if the set is empty.
func (e Envelope) MaxTier() Tier {
	var max Tier
	for _, c := range e.AuthorityClaims {
		if c.Tier > max {
			max = c.Tier
		}
	}
	return max
}
