package skillexec

import (
	"context"
	"fmt"

	"github.com/cortexrt/runtime/internal/registry"
)

// ExecutorTypeAnswer is the registry.Skill.ExecutorType a specialist
// persona's terminal pipeline stage advertises, spec §4.6's single
// persona-configurable agent type running in its "leaf" role.
const ExecutorTypeAnswer = "answer"

// AnswerExecutor performs the declared skill's actual work and returns a
// plain string, the signal internal/cos.Agent.handleNewRequest reads as
// "this persona answers directly rather than decomposing further". Work is
// a func the specialist persona supplies (e.g. calling out to whatever
// backs its capability); a nil Work echoes the request content back,
// useful for wiring a capability before its real implementation exists.
type AnswerExecutor struct {
	Work func(ctx context.Context, skill registry.Skill, content string) (string, error)
}

func NewAnswerExecutor(work func(ctx context.Context, skill registry.Skill, content string) (string, error)) *AnswerExecutor {
	return &AnswerExecutor{Work: work}
}

func (e *AnswerExecutor) ExecutorType() string { return ExecutorTypeAnswer }

func (e *AnswerExecutor) ExecuteAsync(ctx context.Context, skill registry.Skill, params map[string]any) (any, error) {
	content, _ := params["messageContent"].(string)
	if e.Work == nil {
		return fmt.Sprintf("[%s] %s", skill.SkillId, content), nil
	}
	return e.Work(ctx, skill, content)
}
