// Package dashboard builds the view-model rendered by every presentation
// layer from the outcome of one fetch cycle.
package dashboard

import (
	"github.com/okian/runboard/internal/domain/aggregate"
	"github.com/okian/runboard/internal/domain/model"
	"github.com/okian/runboard/internal/domain/pagination"
)

// FetchFailedMessage is the only workflow error users ever see. Network,
// authentication and rate-limit failures all collapse into it.
const FetchFailedMessage = "Failed to fetch workflows. Please try again later."

// EmptyMessage is rendered in place of rows when the page has none.
const EmptyMessage = "No workflows found"

// Result is the all-or-nothing outcome of fetching workflows and their runs.
// Exactly one of Success or Failure produced it.
type Result struct {
	workflows []model.Workflow
	reason    string
	failed    bool
}

// Success wraps a complete set of workflows.
func Success(workflows []model.Workflow) Result {
	return Result{workflows: workflows}
}

// Failure records that the fetch cycle failed. Partial data is never kept.
func Failure(reason string) Result {
	if reason == "" {
		reason = FetchFailedMessage
	}
	return Result{reason: reason, failed: true}
}

// Failed reports whether the result is a Failure.
func (r Result) Failed() bool { return r.failed }

// Reason returns the user-visible failure message, empty on success.
func (r Result) Reason() string { return r.reason }

// Workflows returns the fetched workflows; nil for a Failure.
func (r Result) Workflows() []model.Workflow {
	if r.failed {
		return nil
	}
	return r.workflows
}

// View is everything a presentation layer needs for one page.
type View struct {
	Runs        []model.FlattenedRun `json:"runs"`
	TotalRuns   int                  `json:"total_runs"`
	TotalPages  int                  `json:"total_pages"`
	CurrentPage int                  `json:"current_page"`
	PerPage     int                  `json:"items_per_page"`
	Pages       []int                `json:"pages"`
	HasPrevious bool                 `json:"has_previous"`
	HasNext     bool                 `json:"has_next"`
	Empty       bool                 `json:"empty"`
	Error       string               `json:"error,omitempty"`
	UserCount   *int                 `json:"user_count"`
}

// Build flattens, sorts and paginates the result for the given state. The
// current page is clamped against the freshly computed page count, so a
// shrunken data set never leaves the view on a page past the end.
func Build(result Result, userCount *int, state pagination.State) View {
	all := aggregate.FlattenAndSort(result.Workflows())
	if state.ItemsPerPage < 1 {
		state.ItemsPerPage = pagination.DefaultItemsPerPage
	}
	totalPages := pagination.TotalPages(len(all), state.ItemsPerPage)
	state = state.Normalize(totalPages)

	runs := pagination.Paginate(all, state.CurrentPage, state.ItemsPerPage)
	if runs == nil {
		runs = []model.FlattenedRun{}
	}

	return View{
		Runs:        runs,
		TotalRuns:   len(all),
		TotalPages:  totalPages,
		CurrentPage: state.CurrentPage,
		PerPage:     state.ItemsPerPage,
		Pages:       pagination.Pages(totalPages),
		HasPrevious: state.CurrentPage > 1,
		HasNext:     state.CurrentPage < totalPages,
		Empty:       len(runs) == 0,
		Error:       result.Reason(),
		UserCount:   userCount,
	}
}

// State returns the pagination position the view was built for.
func (v View) State() pagination.State {
	return pagination.State{CurrentPage: v.CurrentPage, ItemsPerPage: v.PerPage}
}
