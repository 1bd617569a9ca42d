// Package aggregate flattens per-workflow run lists into one display sequence.
package aggregate

import (
	"cmp"
	"slices"

	"github.com/okian/runboard/internal/domain/model"
)

// FlattenAndSort returns every run of every workflow annotated with its
// workflow, newest first.
//
// Ordering: CreatedAt DESC, then workflow ID ASC, then workflow name ASC.
// Runs that still compare equal belong to the same workflow and keep their
// upstream order (stable sort). The result therefore does not depend on the
// order of the input workflows. The input is never modified.
func FlattenAndSort(workflows []model.Workflow) []model.FlattenedRun {
	total := Count(workflows)
	if total == 0 {
		return []model.FlattenedRun{}
	}

	out := make([]model.FlattenedRun, 0, total)
	for _, wf := range workflows {
		for _, run := range wf.Runs {
			out = append(out, model.FlattenedRun{
				WorkflowRun:  run,
				WorkflowID:   wf.ID,
				WorkflowName: wf.Name,
			})
		}
	}

	slices.SortStableFunc(out, compareRuns)
	return out
}

func compareRuns(a, b model.FlattenedRun) int {
	// Newer first.
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	if c := cmp.Compare(a.WorkflowID, b.WorkflowID); c != 0 {
		return c
	}
	return cmp.Compare(a.WorkflowName, b.WorkflowName)
}

// Count returns the total number of runs across workflows.
func Count(workflows []model.Workflow) int {
	n := 0
	for _, wf := range workflows {
		n += len(wf.Runs)
	}
	return n
}
