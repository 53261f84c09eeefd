package skillexec

import (
	"context"
	"testing"

	"github.com/cortexrt/runtime/internal/cos"
	"github.com/cortexrt/runtime/internal/envelope"
	"github.com/cortexrt/runtime/internal/registry"
)

func TestDecomposeExecutorExecutorType(t *testing.T) {
	e := NewDecomposeExecutor(nil)
	if got := e.ExecutorType(); got != ExecutorTypeDecompose {
		t.Fatalf("ExecutorType() = %q, want %q", got, ExecutorTypeDecompose)
	}
}

func TestDecomposeExecutorExecuteAsync(t *testing.T) {
	tests := []struct {
		name        string
		keywords    map[string][]string
		content     string
		caps        []string
		wantTasks   []string // capability names expected, in order
		wantConf    float64
	}{
		{
			name:     "single keyword match",
			keywords: map[string][]string{"research": {"look into", "investigate"}},
			content:  "Please look into the Q3 numbers.",
			caps:     []string{"research", "draft"},
			wantTasks: []string{"research"},
			wantConf:  0.9,
		},
		{
			name:     "multiple matches",
			keywords: map[string][]string{"research": {"research"}, "draft": {"draft"}},
			content:  "research the topic and draft a summary",
			caps:     []string{"research", "draft", "format"},
			wantTasks: []string{"research", "draft"},
			wantConf:  0.9,
		},
		{
			name:      "no configured keywords falls back to capability name",
			keywords:  nil,
			content:   "please format this document",
			caps:      []string{"format", "research"},
			wantTasks: []string{"format"},
			wantConf:  0.9,
		},
		{
			name:      "no match yields zero confidence and no tasks",
			keywords:  map[string][]string{"research": {"investigate"}},
			content:   "what time is it",
			caps:      []string{"research"},
			wantTasks: nil,
			wantConf:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewDecomposeExecutor(tt.keywords)
			params := map[string]any{
				"messageContent":        tt.content,
				"availableCapabilities": tt.caps,
				"maxInboundTier":        envelope.DoItAndShowMe,
			}
			result, err := e.ExecuteAsync(context.Background(), registry.Skill{SkillId: "triage"}, params)
			if err != nil {
				t.Fatalf("ExecuteAsync: %v", err)
			}
			decomp, ok := result.(cos.DecompositionResult)
			if !ok {
				t.Fatalf("result is %T, want cos.DecompositionResult", result)
			}
			if len(decomp.Tasks) != len(tt.wantTasks) {
				t.Fatalf("got %d tasks, want %d (%v)", len(decomp.Tasks), len(tt.wantTasks), decomp.Tasks)
			}
			for i, wantCap := range tt.wantTasks {
				if decomp.Tasks[i].Capability != wantCap {
					t.Errorf("task[%d].Capability = %q, want %q", i, decomp.Tasks[i].Capability, wantCap)
				}
				if decomp.Tasks[i].RequestedTier != envelope.DoItAndShowMe {
					t.Errorf("task[%d].RequestedTier = %v, want %v", i, decomp.Tasks[i].RequestedTier, envelope.DoItAndShowMe)
				}
			}
			if decomp.Confidence != tt.wantConf {
				t.Errorf("Confidence = %v, want %v", decomp.Confidence, tt.wantConf)
			}
		})
	}
}

func TestSummarizeTruncatesLongContent(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "a"
	}
	got := summarize(long)
	if len(got) != 123 { // 120 chars + "..."
		t.Fatalf("summarize() length = %d, want 123", len(got))
	}
	if got[120:] != "..." {
		t.Fatalf("summarize() suffix = %q, want \"...\"", got[120:])
	}
}

func TestSummarizeLeavesShortContentUnchanged(t *testing.T) {
	got := summarize("  short message  ")
	if got != "short message" {
		t.Fatalf("summarize() = %q, want %q", got, "short message")
	}
}
