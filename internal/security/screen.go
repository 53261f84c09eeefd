package security

import (
	"fmt"

	"github.com/cortexrt/runtime/internal/envelope"
)

// minDescriptionChars below which a JustDoIt task is flagged as
// under-specified for the autonomy it is asking for.
const minDescriptionChars = 20

// screenFlags identifies which tasks a screening pass considers risky: a
// per-task under-specified JustDoIt request, and whether the decomposition
// as a whole over-commits to JustDoIt (a majority of its tasks request
// it). Shared by ScreenTasks and EnforceFloor so both agree on what counts
// as flagged.
func screenFlags(tasks []envelope.DecomposedTask) (underSpecified map[int]bool, majorityJustDoIt bool) {
	underSpecified = make(map[int]bool)
	if len(tasks) == 0 {
		return underSpecified, false
	}

	justDoIt := 0
	for i, task := range tasks {
		if task.RequestedTier != envelope.JustDoIt {
			continue
		}
		justDoIt++
		if len(task.Description) < minDescriptionChars {
			underSpecified[i] = true
		}
	}

	return underSpecified, justDoIt > len(tasks)/2
}

// ScreenTasks flags red flags in a freshly decomposed task list before any
// is dispatched, adapted from the teacher's `security.ScreenTask` (which
// screened a single bidding TaskSpec) into a pass over a DecompositionResult
// task list: the richer per-task risk fields ScreenTask checked
// (Permissions, Reversible, AutonomyLevel, ContextSensitivity, Deadline)
// have no equivalent on envelope.DecomposedTask, so screening here is
// narrowed to what tier and description actually carry: requests for
// unattended (JustDoIt) execution that are too thin to justify it, and a
// decomposition whose majority asks for JustDoIt at once.
func ScreenTasks(tasks []envelope.DecomposedTask) []string {
	underSpecified, majority := screenFlags(tasks)

	var warnings []string
	justDoIt := 0
	for i, task := range tasks {
		if task.RequestedTier != envelope.JustDoIt {
			continue
		}
		justDoIt++
		if underSpecified[i] {
			warnings = append(warnings, fmt.Sprintf(
				"task %d (%s) requests JustDoIt with a %d-character description — under-specified for unattended execution",
				i, task.Capability, len(task.Description)))
		}
	}

	if majority {
		warnings = append(warnings, fmt.Sprintf(
			"%d of %d tasks request JustDoIt autonomy — consider gating this decomposition behind approval", justDoIt, len(tasks)))
	}

	return warnings
}

// EnforceFloor returns a copy of tasks with every screening-flagged task's
// RequestedTier capped at DoItAndShowMe: an under-specified JustDoIt
// request, or any JustDoIt task in a decomposition where JustDoIt is the
// majority ask, per SPEC_FULL §12. This only ever tightens autonomy —
// envelope.Narrow still bounds the outbound claim to what the inbound
// envelope actually permitted, so a flagged task is never upgraded past
// what the caller allowed, only capped below what it requested.
func EnforceFloor(tasks []envelope.DecomposedTask) []envelope.DecomposedTask {
	underSpecified, majority := screenFlags(tasks)

	out := make([]envelope.DecomposedTask, len(tasks))
	copy(out, tasks)
	for i := range out {
		if out[i].RequestedTier != envelope.JustDoIt {
			continue
		}
		if underSpecified[i] || majority {
			out[i].RequestedTier = envelope.DoItAndShowMe
		}
	}
	return out
}
