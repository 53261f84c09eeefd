// Package pipeline executes an agent's ordered skill list over a shared
// parameter map, spec §4.4 (C4).
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/cortexrt/runtime/internal/registry"
)

// Executor advertises an ExecutorType and runs any skill declaring that
// type. The first executor whose type matches wins; an unresolved type
// fails the pipeline (spec §4.4).
type Executor interface {
	ExecutorType() string
	ExecuteAsync(ctx context.Context, skill registry.Skill, params map[string]any) (any, error)
}

var (
	ErrEmptyPipeline = errors.New("pipeline: no skills to run")
	ErrNoExecutor    = errors.New("pipeline: no executor registered for type")
)

// Runner executes an ordered skill list, depositing each skill's result
// under its own SkillId in the shared parameter map for later skills to
// consume.
type Runner struct {
	skills    *registry.SkillRegistry
	executors []Executor
}

func NewRunner(skills *registry.SkillRegistry, executors ...Executor) *Runner {
	return &Runner{skills: skills, executors: executors}
}

// RunAsync runs skillIds in order against params (mutated in place) and
// returns the last skill's result.
func (r *Runner) RunAsync(ctx context.Context, skillIds []string, params map[string]any) (any, error) {
	if len(skillIds) == 0 {
		return nil, ErrEmptyPipeline
	}

	var last any
	for _, id := range skillIds {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		skill, err := r.skills.Get(id)
		if err != nil {
			return nil, fmt.Errorf("pipeline: skill %s: %w", id, err)
		}

		exec := r.findExecutor(skill.ExecutorType)
		if exec == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoExecutor, skill.ExecutorType)
		}

		result, err := exec.ExecuteAsync(ctx, skill, params)
		if err != nil {
			return nil, fmt.Errorf("pipeline: skill %s: %w", id, err)
		}
		params[id] = result
		last = result
	}
	return last, nil
}

func (r *Runner) findExecutor(executorType string) Executor {
	for _, e := range r.executors {
		if e.ExecutorType() == executorType {
			return e
		}
	}
	return nil
}
