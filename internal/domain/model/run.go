// Package model contains domain models passed between layers.
package model

import "time"

// Conclusion is the outcome of a workflow run. The zero value means the run
// has not concluded yet (upstream reports null).
type Conclusion string

// Known conclusions. Upstream may report others (cancelled, skipped, ...);
// they are carried verbatim.
const (
	ConclusionNone    Conclusion = ""
	ConclusionSuccess Conclusion = "success"
	ConclusionFailure Conclusion = "failure"
)

// InProgress reports whether the run is still executing.
func (c Conclusion) InProgress() bool { return c == ConclusionNone }

// Label returns the display text for the conclusion.
func (c Conclusion) Label() string {
	if c.InProgress() {
		return "In Progress"
	}
	return string(c)
}

// WorkflowRun is one execution of a workflow, as fetched from upstream.
type WorkflowRun struct {
	ID         int64      `json:"id"`
	Conclusion Conclusion `json:"conclusion"`
	CreatedAt  time.Time  `json:"created_at"`

	// Display-only details; ordering never looks at these.
	Status     string `json:"status,omitempty"`
	HeadBranch string `json:"head_branch,omitempty"`
	RunNumber  int    `json:"run_number,omitempty"`
	HTMLURL    string `json:"html_url,omitempty"`
}

// Workflow is a named CI definition together with the runs fetched for it
// during a single fetch cycle.
type Workflow struct {
	ID   int64         `json:"id"`
	Name string        `json:"name"`
	Runs []WorkflowRun `json:"runs"`
}

// FlattenedRun is a run annotated with its parent workflow. It is the unit
// of display and is derived on every view build.
type FlattenedRun struct {
	WorkflowRun
	WorkflowID   int64  `json:"workflow_id"`
	WorkflowName string `json:"workflow_name"`
}
