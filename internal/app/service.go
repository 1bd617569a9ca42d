// Package service provides the fetch layer behind every presentation of the
// dashboard: it loads workflows and their runs, the user count, and proxies
// the raw actions listing.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/runboard/internal/adapters/github"
	"github.com/okian/runboard/internal/domain/aggregate"
	"github.com/okian/runboard/internal/domain/dashboard"
	"github.com/okian/runboard/internal/domain/model"
	"github.com/okian/runboard/internal/domain/pagination"
	"github.com/okian/runboard/pkg/logger"
	"github.com/okian/runboard/pkg/metrics"
)

// ErrNotConfigured is returned when a required upstream was never supplied.
var ErrNotConfigured = errors.New("upstream not configured")

// WorkflowSource lists workflows and the runs of one workflow.
type WorkflowSource interface {
	ListWorkflows(ctx context.Context) ([]model.Workflow, error)
	ListRuns(ctx context.Context, workflowID int64) ([]model.WorkflowRun, error)
}

// UserCounter returns the number of registered users.
type UserCounter interface {
	GetUserCount(ctx context.Context) (int, error)
}

// ActionsFetcher returns the raw repository actions listing.
type ActionsFetcher interface {
	Actions(ctx context.Context) (*github.RawResponse, error)
}

// Service implements the dashboard dependencies of the HTTP API and the CLI.
type Service struct {
	mu sync.RWMutex

	// Upstreams
	source  WorkflowSource
	counter UserCounter
	actions ActionsFetcher

	// Configuration
	itemsPerPage int
	fanoutLimit  int
	cycleTimeout time.Duration

	// State
	cycles        int64
	failures      int64
	lastCycleAt   time.Time
	lastWorkflows int
	lastRuns      int
	lastUserCount *int

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithGitHub uses the GitHub client for workflows, runs and the proxy.
func WithGitHub(c *github.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.source = c
			s.actions = c
		}
	}
}

// WithWorkflowSource sets where workflows and runs come from.
func WithWorkflowSource(src WorkflowSource) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithUserCounter sets the user count upstream.
func WithUserCounter(c UserCounter) Option {
	return func(s *Service) {
		if c != nil {
			s.counter = c
		}
	}
}

// WithActionsFetcher sets the upstream used by the proxy.
func WithActionsFetcher(f ActionsFetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.actions = f
		}
	}
}

// WithItemsPerPage sets the table page size.
func WithItemsPerPage(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.itemsPerPage = n
		}
	}
}

// WithFanoutLimit caps concurrent run listings; 0 leaves them unbounded.
func WithFanoutLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.fanoutLimit = n
		}
	}
}

// WithCycleTimeout bounds a whole fetch cycle (both upstreams); 0 leaves it
// bounded by the caller's context only.
func WithCycleTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.cycleTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. The global logger is used unless WithLogger is given.
func New(opts ...Option) *Service {
	s := &Service{
		itemsPerPage: pagination.DefaultItemsPerPage,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	return s
}

// ItemsPerPage returns the configured page size.
func (s *Service) ItemsPerPage() int { return s.itemsPerPage }

// FetchWorkflows runs one fetch cycle: list workflows, then list the runs
// of every workflow concurrently. Any failure fails the whole cycle and the
// cause is only logged.
func (s *Service) FetchWorkflows(ctx context.Context) dashboard.Result {
	log := s.logger.With(logger.String("cycle_id", uuid.NewString()))
	start := time.Now()

	workflows, err := s.fetchAll(ctx, log)
	elapsedMs := float64(time.Since(start).Milliseconds())
	if err != nil {
		outcome := metrics.OutcomeFailure
		if ctx.Err() != nil {
			outcome = metrics.OutcomeCanceled
		}
		metrics.RecordFetchCycle(outcome, elapsedMs)
		metrics.RecordErrorByComponent("fetch", outcome)
		log.Error(ctx, "failed to fetch workflows", logger.Error(err), logger.Duration("elapsed", time.Since(start)))
		s.recordCycle(false, 0, 0)
		return dashboard.Failure("")
	}

	runs := aggregate.Count(workflows)
	metrics.RecordFetchCycle(metrics.OutcomeSuccess, elapsedMs)
	metrics.UpdateFetched(len(workflows), runs)
	s.recordCycle(true, len(workflows), runs)
	log.Debug(ctx, "fetched workflows",
		logger.Int("workflows", len(workflows)),
		logger.Int("runs", runs),
		logger.Duration("elapsed", time.Since(start)),
	)
	return dashboard.Success(workflows)
}

func (s *Service) fetchAll(ctx context.Context, log logger.Logger) ([]model.Workflow, error) {
	if s.source == nil {
		return nil, fmt.Errorf("workflow source: %w", ErrNotConfigured)
	}

	listed, err := s.source.ListWorkflows(ctx)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.fanoutLimit > 0 {
		g.SetLimit(s.fanoutLimit)
	}

	out := make([]model.Workflow, len(listed))
	for i, wf := range listed {
		g.Go(func() error {
			runs, err := s.source.ListRuns(gctx, wf.ID)
			if err != nil {
				log.Debug(gctx, "run listing failed",
					logger.Int64("workflow_id", wf.ID),
					logger.String("workflow_name", wf.Name),
					logger.Error(err),
				)
				return err
			}
			out[i] = model.Workflow{ID: wf.ID, Name: wf.Name, Runs: runs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchUserCount returns the user count, or nil when it could not be read.
// Failures never reach the user.
func (s *Service) FetchUserCount(ctx context.Context) *int {
	if s.counter == nil {
		return nil
	}
	n, err := s.counter.GetUserCount(ctx)
	if err != nil {
		metrics.RecordUserCountFailure()
		s.logger.Warn(ctx, "failed to fetch user count", logger.Error(err))
		return nil
	}
	metrics.UpdateUserCount(n)

	s.mu.Lock()
	s.lastUserCount = &n
	s.mu.Unlock()
	return &n
}

// Snapshot starts both fetches together and waits for both. The cycle
// deadline, when configured, covers both.
func (s *Service) Snapshot(ctx context.Context) (dashboard.Result, *int) {
	if s.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cycleTimeout)
		defer cancel()
	}

	var (
		wg    sync.WaitGroup
		count *int
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		count = s.FetchUserCount(ctx)
	}()
	result := s.FetchWorkflows(ctx)
	wg.Wait()
	return result, count
}

// Dashboard fetches fresh data and builds the view for page.
func (s *Service) Dashboard(ctx context.Context, page int) dashboard.View {
	result, count := s.Snapshot(ctx)
	return dashboard.Build(result, count, pagination.State{CurrentPage: page, ItemsPerPage: s.itemsPerPage})
}

// Actions proxies the repository actions listing.
func (s *Service) Actions(ctx context.Context) (*github.RawResponse, error) {
	if s.actions == nil {
		return nil, fmt.Errorf("actions: %w", ErrNotConfigured)
	}
	raw, err := s.actions.Actions(ctx)
	if err != nil {
		s.logger.Error(ctx, "failed to proxy actions listing", logger.Error(err))
		return nil, err
	}
	return raw, nil
}

func (s *Service) recordCycle(ok bool, workflows, runs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles++
	s.lastCycleAt = time.Now()
	if !ok {
		s.failures++
		return
	}
	s.lastWorkflows = workflows
	s.lastRuns = runs
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"itemsPerPage":  s.itemsPerPage,
		"fanoutLimit":   s.fanoutLimit,
		"cycleTimeout":  s.cycleTimeout.String(),
		"fetchCycles":   s.cycles,
		"fetchFailures": s.failures,
		"lastWorkflows": s.lastWorkflows,
		"lastRuns":      s.lastRuns,
	}
	if !s.lastCycleAt.IsZero() {
		stats["lastCycleAt"] = s.lastCycleAt.UTC().Format(time.RFC3339)
	}
	if s.lastUserCount != nil {
		stats["lastUserCount"] = *s.lastUserCount
	}
	return stats
}
