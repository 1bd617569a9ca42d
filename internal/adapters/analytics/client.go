// Package analytics reads the registered user count from the analytics service.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/runboard/pkg/metrics"
)

// DefaultBaseURL is the production analytics service.
const DefaultBaseURL = "https://api.moinet.io/iome/v0"

const (
	userCountPath  = "/analytics/getusercount"
	targetAnalytic = "analytics"
	defaultTimeout = 10 * time.Second
)

var (
	ErrRequest = errors.New("analytics request failed")
	ErrStatus  = errors.New("analytics returned an error status")
	ErrDecode  = errors.New("analytics response decode failed")
)

// userCountResponse is the envelope returned by getusercount.
type userCountResponse struct {
	Data *struct {
		Count *int `json:"count"`
	} `json:"data"`
}

// Client fetches the user count. Requests are unauthenticated.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option applies a configuration option to the Client.
type Option func(*Client)

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

// New creates a client rooted at baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetUserCount returns data.count from the analytics service.
func (c *Client) GetUserCount(ctx context.Context) (int, error) {
	const op = "analytics.get_user_count"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+userCountPath, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, ErrRequest, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latencyMs := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordUpstreamRequest(targetAnalytic, "error", latencyMs)
		return 0, fmt.Errorf("%s: %w: %w", op, ErrRequest, err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstreamRequest(targetAnalytic, strconv.Itoa(resp.StatusCode), latencyMs)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%s: %w: status code %d", op, ErrStatus, resp.StatusCode)
	}

	var body userCountResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, ErrDecode, err)
	}
	if body.Data == nil || body.Data.Count == nil {
		return 0, fmt.Errorf("%s: %w: missing data.count", op, ErrDecode)
	}
	return *body.Data.Count, nil
}
