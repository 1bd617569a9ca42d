// Package github is a minimal GitHub Actions REST client: list workflows,
// list runs of one workflow, and a raw passthrough of the actions listing.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/runboard/internal/domain/model"
	"github.com/okian/runboard/pkg/metrics"
)

// Default client configuration constants.
const (
	DefaultBaseURL     = "https://api.github.com"
	defaultUserAgent   = "runboard"
	defaultTimeout     = 10 * time.Second
	defaultRunsPerPage = 30
	defaultMaxRunPages = 1
	workflowsPerPage   = 100
	maxWorkflowPages   = 10
	maxErrorBody       = 512
)

// Metric targets.
const (
	targetWorkflows = "github_workflows"
	targetRuns      = "github_runs"
	targetActions   = "github_actions"
)

// Client talks to one repository's Actions endpoints.
type Client struct {
	baseURL     string
	owner       string
	repo        string
	token       string
	userAgent   string
	runsPerPage int
	maxRunPages int
	httpClient  *http.Client
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL points the client at another API root (GHES, tests).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request. It works on a copy of the HTTP client, so
// a client shared through WithHTTPClient keeps its own timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithRunsPerPage sets the per_page used for run listings.
func WithRunsPerPage(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.runsPerPage = n
		}
	}
}

// WithMaxRunPages caps how many pages of runs are read per workflow.
func WithMaxRunPages(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRunPages = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New creates a client for owner/repo.
func New(owner, repo string, opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		owner:       owner,
		repo:        repo,
		userAgent:   defaultUserAgent,
		runsPerPage: defaultRunsPerPage,
		maxRunPages: defaultMaxRunPages,
		httpClient:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListWorkflows returns every workflow of the repository, without runs.
func (c *Client) ListWorkflows(ctx context.Context) ([]model.Workflow, error) {
	const op = "github.list_workflows"

	var out []model.Workflow
	seen := make(map[int64]bool)
	for page := 1; page <= maxWorkflowPages; page++ {
		var resp WorkflowsPage
		if err := c.getJSON(ctx, op, targetWorkflows, c.repoURL("actions/workflows"), pageQuery(workflowsPerPage, page), &resp); err != nil {
			return nil, err
		}
		for _, wf := range resp.Workflows {
			if seen[wf.ID] {
				continue
			}
			seen[wf.ID] = true
			out = append(out, model.Workflow{ID: wf.ID, Name: wf.Name})
		}
		if len(resp.Workflows) == 0 || len(out) >= resp.TotalCount {
			break
		}
	}
	return out, nil
}

// ListRuns returns the runs of one workflow in upstream order (newest
// first), reading at most the configured number of pages.
func (c *Client) ListRuns(ctx context.Context, workflowID int64) ([]model.WorkflowRun, error) {
	const op = "github.list_runs"

	path := fmt.Sprintf("actions/workflows/%d/runs", workflowID)
	out := []model.WorkflowRun{}
	seen := make(map[int64]bool)
	for page := 1; page <= c.maxRunPages; page++ {
		var resp RunsPage
		if err := c.getJSON(ctx, op, targetRuns, c.repoURL(path), pageQuery(c.runsPerPage, page), &resp); err != nil {
			return nil, fmt.Errorf("workflow %d: %w", workflowID, err)
		}
		for _, r := range resp.WorkflowRuns {
			// Runs shift between pages while new ones are queued.
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			out = append(out, r.toModel())
		}
		if len(resp.WorkflowRuns) == 0 || len(out) >= resp.TotalCount {
			break
		}
	}
	return out, nil
}

// RawResponse is an upstream response passed through untouched.
type RawResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Actions fetches GET /repos/{owner}/{repo}/actions and returns the body and
// status as received. Non-2xx statuses are not errors here.
func (c *Client) Actions(ctx context.Context) (*RawResponse, error) {
	const op = "github.actions"

	resp, err := c.do(ctx, op, targetActions, c.repoURL("actions"), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrRequest, err)
	}
	return &RawResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (c *Client) repoURL(path string) string {
	return c.baseURL + "/repos/" + url.PathEscape(c.owner) + "/" + url.PathEscape(c.repo) + "/" + path
}

func pageQuery(perPage, page int) url.Values {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	return q
}

func (c *Client) getJSON(ctx context.Context, op, target, rawURL string, query url.Values, v any) error {
	resp, err := c.do(ctx, op, target, rawURL, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrDecode, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, target, rawURL string, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrRequest, err)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latencyMs := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordUpstreamRequest(target, "error", latencyMs)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrRequest, err)
	}
	metrics.RecordUpstreamRequest(target, strconv.Itoa(resp.StatusCode), latencyMs)
	return resp, nil
}
