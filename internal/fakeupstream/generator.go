package fakeupstream

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Generation defaults.
const (
	defaultWorkflows       = 3
	defaultRunsPerWorkflow = 12
	defaultInterval        = 37 * time.Minute
	defaultUserCount       = 128
	inProgressEvery        = 9
)

var workflowNames = []string{"CI", "Lint", "Deploy", "Release", "Nightly", "Docs", "E2E", "Security Scan"}

var branches = []string{"main", "develop", "feature/pager", "fix/flaky-test"}

// GenerateConfig controls synthetic fixture generation.
type GenerateConfig struct {
	Owner           string
	Repo            string
	Workflows       int
	RunsPerWorkflow int
	Seed            uint64
	// Newest is the creation time of the most recent run.
	Newest   time.Time
	Interval time.Duration
}

// Generate builds a deterministic fixture for cfg. The same seed always
// yields the same workflows and runs.
func Generate(cfg GenerateConfig) *Fixture {
	if cfg.Owner == "" {
		cfg.Owner = "octo"
	}
	if cfg.Repo == "" {
		cfg.Repo = "hello"
	}
	if cfg.Workflows <= 0 {
		cfg.Workflows = defaultWorkflows
	}
	if cfg.RunsPerWorkflow < 0 {
		cfg.RunsPerWorkflow = 0
	} else if cfg.RunsPerWorkflow == 0 {
		cfg.RunsPerWorkflow = defaultRunsPerWorkflow
	}
	if cfg.Newest.IsZero() {
		cfg.Newest = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	count := defaultUserCount + rng.IntN(defaultUserCount)

	f := &Fixture{
		Owner:     cfg.Owner,
		Repo:      cfg.Repo,
		UserCount: &count,
		Workflows: make([]WorkflowFixture, 0, cfg.Workflows),
	}

	var runID int64 = 1000
	for w := 0; w < cfg.Workflows; w++ {
		name := workflowNames[w%len(workflowNames)]
		if w >= len(workflowNames) {
			name = fmt.Sprintf("%s %d", name, w/len(workflowNames)+1)
		}
		wf := WorkflowFixture{
			ID:   int64(w + 1),
			Name: name,
			Path: fmt.Sprintf(".github/workflows/wf-%d.yml", w+1),
			Runs: make([]RunFixture, 0, cfg.RunsPerWorkflow),
		}
		// Each workflow starts at a random offset so runs interleave.
		created := cfg.Newest.Add(-time.Duration(rng.IntN(int(cfg.Interval/time.Second))) * time.Second)
		for r := 0; r < cfg.RunsPerWorkflow; r++ {
			runID++
			run := RunFixture{
				ID:         runID,
				CreatedAt:  created,
				Status:     "completed",
				HeadBranch: branches[rng.IntN(len(branches))],
				RunNumber:  cfg.RunsPerWorkflow - r,
				Conclusion: randomConclusion(rng),
			}
			if r == 0 && w%inProgressEvery == 0 {
				run.Status = "in_progress"
				run.Conclusion = ""
			}
			wf.Runs = append(wf.Runs, run)
			created = created.Add(-cfg.Interval - time.Duration(rng.IntN(60))*time.Second)
		}
		f.Workflows = append(f.Workflows, wf)
	}
	return f
}

func randomConclusion(rng *rand.Rand) string {
	switch n := rng.IntN(10); {
	case n < 7:
		return "success"
	case n < 9:
		return "failure"
	default:
		return "cancelled"
	}
}
