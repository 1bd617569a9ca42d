// Package fakeupstream is an in-process stand-in for the GitHub Actions API
// and the analytics service, driven by YAML fixtures. It backs local
// development (cmd/fake-upstream) and the end-to-end tests.
package fakeupstream

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/runboard/internal/domain/model"
)

// ErrFixture wraps every fixture loading failure.
var ErrFixture = errors.New("invalid fixture")

// Fixture describes everything the fake upstream serves.
type Fixture struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`

	// Token, when set, must be presented as a bearer token on GitHub routes.
	Token string `yaml:"token,omitempty"`

	// UserCount is served by the analytics route; nil serves a 500.
	UserCount *int `yaml:"user_count,omitempty"`

	Workflows []WorkflowFixture `yaml:"workflows"`
	Failures  Failures          `yaml:"failures,omitempty"`
}

// WorkflowFixture is one workflow and its runs, newest first.
type WorkflowFixture struct {
	ID   int64        `yaml:"id"`
	Name string       `yaml:"name"`
	Path string       `yaml:"path,omitempty"`
	Runs []RunFixture `yaml:"runs"`
}

// RunFixture is one run. An empty conclusion serves JSON null.
type RunFixture struct {
	ID         int64     `yaml:"id"`
	Conclusion string    `yaml:"conclusion,omitempty"`
	CreatedAt  time.Time `yaml:"created_at"`
	Status     string    `yaml:"status,omitempty"`
	HeadBranch string    `yaml:"head_branch,omitempty"`
	RunNumber  int       `yaml:"run_number,omitempty"`
}

// Failures injects upstream errors. Zero values mean healthy.
type Failures struct {
	// WorkflowList is the status returned by the workflow listing.
	WorkflowList int `yaml:"workflow_list,omitempty"`

	// Runs maps a workflow id to the status returned by its run listing.
	Runs map[int64]int `yaml:"runs,omitempty"`

	// Analytics is the status returned by the user count route.
	Analytics int `yaml:"analytics,omitempty"`

	// Delay is added before every response.
	Delay time.Duration `yaml:"delay,omitempty"`
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFixture, err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFixture reads and decodes a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFixture, err)
	}
	return ParseFixture(data)
}

// Marshal encodes the fixture back to YAML.
func (f *Fixture) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

func (f *Fixture) validate() error {
	if f.Owner == "" || f.Repo == "" {
		return fmt.Errorf("%w: owner and repo are required", ErrFixture)
	}
	seen := make(map[int64]bool, len(f.Workflows))
	for _, wf := range f.Workflows {
		if seen[wf.ID] {
			return fmt.Errorf("%w: duplicate workflow id %d", ErrFixture, wf.ID)
		}
		seen[wf.ID] = true
	}
	return nil
}

// DomainWorkflows converts the fixture to domain workflows, runs included.
func (f *Fixture) DomainWorkflows() []model.Workflow {
	out := make([]model.Workflow, 0, len(f.Workflows))
	for _, wf := range f.Workflows {
		runs := make([]model.WorkflowRun, 0, len(wf.Runs))
		for _, r := range wf.Runs {
			runs = append(runs, r.toModel())
		}
		out = append(out, model.Workflow{ID: wf.ID, Name: wf.Name, Runs: runs})
	}
	return out
}

func (r RunFixture) toModel() model.WorkflowRun {
	return model.WorkflowRun{
		ID:         r.ID,
		Conclusion: model.Conclusion(r.Conclusion),
		CreatedAt:  r.CreatedAt,
		Status:     r.Status,
		HeadBranch: r.HeadBranch,
		RunNumber:  r.RunNumber,
	}
}
