// Package skillexec provides the default pipeline.Executor implementations
// a Chief of Staff persona runs, spec §4.4/§4.7.2. The distilled spec
// leaves "the pipeline" opaque (an injected decision process); this repo's
// reference executor resolves it the way the teacher resolves everything
// else that isn't a live external call — a deterministic, inspectable
// heuristic over declared capabilities, not a model call.
package skillexec

import (
	"context"
	"strings"

	"github.com/cortexrt/runtime/internal/cos"
	"github.com/cortexrt/runtime/internal/envelope"
	"github.com/cortexrt/runtime/internal/registry"
)

// ExecutorTypeDecompose is the registry.Skill.ExecutorType this executor
// advertises.
const ExecutorTypeDecompose = "heuristic-decompose"

// DecomposeExecutor turns an inbound request's free-text content into a
// cos.DecompositionResult by matching keywords against the agents
// currently registered under each capability. It has no notion of plan
// structure beyond "one task per capability keyword found" — anything
// richer (multi-step ordering, shared state between tasks) is out of
// scope for a reference pipeline stage.
type DecomposeExecutor struct {
	// Keywords maps a capability name to the substrings (case-insensitive)
	// that, found in the message content, request that capability.
	Keywords map[string][]string
}

// NewDecomposeExecutor builds an executor from a capability->keywords map.
// A capability with no configured keywords still matches on its own name.
func NewDecomposeExecutor(keywords map[string][]string) *DecomposeExecutor {
	return &DecomposeExecutor{Keywords: keywords}
}

func (e *DecomposeExecutor) ExecutorType() string { return ExecutorTypeDecompose }

// ExecuteAsync implements pipeline.Executor. It reads "messageContent" and
// "availableCapabilities" out of params (populated by the Chief of Staff
// before running the pipeline, spec §4.7.2) and returns a
// cos.DecompositionResult.
func (e *DecomposeExecutor) ExecuteAsync(ctx context.Context, skill registry.Skill, params map[string]any) (any, error) {
	content, _ := params["messageContent"].(string)
	caps, _ := params["availableCapabilities"].([]string)
	maxTier, _ := params["maxInboundTier"].(envelope.Tier)

	lower := strings.ToLower(content)
	var tasks []envelope.DecomposedTask
	for _, cap := range caps {
		if e.matches(lower, cap) {
			tasks = append(tasks, envelope.DecomposedTask{
				Capability:    cap,
				Description:   describeTask(cap, content),
				RequestedTier: maxTier,
			})
		}
	}

	confidence := 0.0
	if len(tasks) > 0 {
		confidence = 0.9
	}
	return cos.DecompositionResult{
		Tasks:      tasks,
		Summary:    summarize(content),
		Confidence: confidence,
	}, nil
}

func (e *DecomposeExecutor) matches(lowerContent, capability string) bool {
	keywords := e.Keywords[capability]
	if len(keywords) == 0 {
		keywords = []string{capability}
	}
	for _, kw := range keywords {
		if strings.Contains(lowerContent, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func describeTask(capability, content string) string {
	return strings.TrimSpace(capability + ": " + content)
}

func summarize(content string) string {
	const maxLen = 120
	content = strings.TrimSpace(content)
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen] + "..."
}
