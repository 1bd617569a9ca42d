package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/runboard/internal/domain/dashboard"
	"github.com/okian/runboard/internal/fakeupstream"
)

// startUpstream serves a repository with one workflow of n runs and points
// the RUNBOARD_ environment at it.
func startUpstream(t *testing.T, n int) *fakeupstream.Server {
	t.Helper()

	count := 42
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	runs := make([]fakeupstream.RunFixture, n)
	for i := range runs {
		runs[i] = fakeupstream.RunFixture{
			ID:         int64(i + 1),
			Conclusion: "success",
			CreatedAt:  base.Add(-time.Duration(i) * time.Minute),
		}
	}
	fake := fakeupstream.NewServer(&fakeupstream.Fixture{
		Owner:     "octo",
		Repo:      "hello",
		Token:     "tok",
		UserCount: &count,
		Workflows: []fakeupstream.WorkflowFixture{{ID: 1, Name: "CI", Runs: runs}},
	})
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	t.Setenv("RUNBOARD_CONFIG", "")
	t.Setenv("RUNBOARD_GITHUB_API_URL", srv.URL)
	t.Setenv("RUNBOARD_ANALYTICS_URL", srv.URL)
	t.Setenv("RUNBOARD_GITHUB_OWNER", "octo")
	t.Setenv("RUNBOARD_GITHUB_REPO", "hello")
	t.Setenv("RUNBOARD_GITHUB_TOKEN", "tok")
	t.Setenv("RUNBOARD_ITEMS_PER_PAGE", "10")
	t.Setenv("RUNBOARD_RUNS_PER_PAGE", "100")
	return fake
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	cmd.SetArgs(args)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func TestListCommandTable(t *testing.T) {
	startUpstream(t, 3)

	out, err := execute(t, "list")
	require.NoError(t, err)

	assert.Contains(t, out, "Total Users: 42")
	assert.Contains(t, out, "Workflow Name")
	assert.Contains(t, out, "CI")
	assert.Contains(t, out, "2024-05-01 12:00:00 UTC")
	assert.Contains(t, out, "[1]")
	assert.NotContains(t, out, dashboard.FetchFailedMessage)
}

func TestListCommandJSON(t *testing.T) {
	startUpstream(t, 12)

	out, err := execute(t, "list", "--page", "2", "--format", "json")
	require.NoError(t, err)

	var view dashboard.View
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, 2, view.CurrentPage)
	assert.Equal(t, 2, view.TotalPages)
	assert.Equal(t, 12, view.TotalRuns)
	require.Len(t, view.Runs, 2)
	assert.Equal(t, int64(11), view.Runs[0].ID)
	assert.Equal(t, "CI", view.Runs[0].WorkflowName)
	require.NotNil(t, view.UserCount)
	assert.Equal(t, 42, *view.UserCount)
}

func TestListCommandClampsPage(t *testing.T) {
	startUpstream(t, 3)

	out, err := execute(t, "list", "-p", "9", "--format", "json")
	require.NoError(t, err)

	var view dashboard.View
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, 1, view.CurrentPage)
	assert.Len(t, view.Runs, 3)
}

func TestListCommandFetchFailure(t *testing.T) {
	fake := startUpstream(t, 3)
	fake.FailRuns(1, http.StatusInternalServerError)

	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, dashboard.FetchFailedMessage)
	assert.Contains(t, out, dashboard.EmptyMessage)

	_, err = execute(t, "list", "--strict")
	require.ErrorIs(t, err, errFetchFailed)
}

func TestListCommandRepoFlag(t *testing.T) {
	startUpstream(t, 1)

	_, err := execute(t, "list", "--repo", "broken")
	require.ErrorIs(t, err, errBadRepo)

	// The fake only knows octo/hello, so another repository fails the fetch.
	out, err := execute(t, "list", "--repo", "octo/other")
	require.NoError(t, err)
	assert.Contains(t, out, dashboard.FetchFailedMessage)
}

func TestListCommandRejectsUnknownFormat(t *testing.T) {
	fake := startUpstream(t, 1)

	_, err := execute(t, "list", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
	assert.Zero(t, fake.Requests())
}

func TestListCommandNeedsRepository(t *testing.T) {
	startUpstream(t, 1)
	t.Setenv("RUNBOARD_GITHUB_OWNER", "")

	_, err := execute(t, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "github_owner")
}

func TestHelpNeedsNoConfig(t *testing.T) {
	t.Setenv("RUNBOARD_GITHUB_OWNER", "")

	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "list")
	assert.Contains(t, out, "browse")
}
