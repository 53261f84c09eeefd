package cos

import "github.com/cortexrt/runtime/internal/envelope"

// DecompositionResult is the shared-parameter-map terminal value a CoS
// pipeline must produce, spec §4.7.2: a task list, a human-readable
// summary used both in the PlanProposal and the final assembled reply,
// and a confidence score gating escalation.
type DecompositionResult struct {
	Tasks      []envelope.DecomposedTask
	Summary    string
	Confidence float64
}

// Config is one Chief of Staff persona: its identity, the capabilities it
// advertises to the runtime, the skill pipeline it runs on every new
// request, where it escalates, and the thresholds that decide fast-path
// vs. workflow vs. escalation, spec §4.7.
type Config struct {
	AgentId              string
	Capabilities         []string
	Pipeline             []string
	EscalationTarget     string
	ConfidenceThreshold  float64
	MaxRetries           int
}

const (
	defaultConfidenceThreshold = 0.6
	defaultMaxRetries          = 3
)

func (c Config) withDefaults() Config {
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = defaultConfidenceThreshold
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	return c
}
