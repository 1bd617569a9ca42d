package github

import (
	"time"

	"github.com/okian/runboard/internal/domain/model"
)

// WorkflowsPage mirrors GET /repos/{owner}/{repo}/actions/workflows.
type WorkflowsPage struct {
	TotalCount int               `json:"total_count"`
	Workflows  []WorkflowPayload `json:"workflows"`
}

// WorkflowPayload is one workflow on the wire.
type WorkflowPayload struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	State string `json:"state,omitempty"`
}

// RunsPage mirrors GET /repos/{owner}/{repo}/actions/workflows/{id}/runs.
type RunsPage struct {
	TotalCount   int          `json:"total_count"`
	WorkflowRuns []RunPayload `json:"workflow_runs"`
}

// RunPayload is one run on the wire. Conclusion is null while the run is
// still going.
type RunPayload struct {
	ID         int64     `json:"id"`
	Status     string    `json:"status,omitempty"`
	Conclusion *string   `json:"conclusion"`
	CreatedAt  time.Time `json:"created_at"`
	HeadBranch string    `json:"head_branch,omitempty"`
	RunNumber  int       `json:"run_number,omitempty"`
	HTMLURL    string    `json:"html_url,omitempty"`
}

func (p RunPayload) toModel() model.WorkflowRun {
	var c model.Conclusion
	if p.Conclusion != nil {
		c = model.Conclusion(*p.Conclusion)
	}
	return model.WorkflowRun{
		ID:         p.ID,
		Conclusion: c,
		CreatedAt:  p.CreatedAt,
		Status:     p.Status,
		HeadBranch: p.HeadBranch,
		RunNumber:  p.RunNumber,
		HTMLURL:    p.HTMLURL,
	}
}

// RunPayloadFrom converts a domain run back to its wire shape.
func RunPayloadFrom(r model.WorkflowRun) RunPayload {
	p := RunPayload{
		ID:         r.ID,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		HeadBranch: r.HeadBranch,
		RunNumber:  r.RunNumber,
		HTMLURL:    r.HTMLURL,
	}
	if !r.Conclusion.InProgress() {
		c := string(r.Conclusion)
		p.Conclusion = &c
	}
	return p
}
