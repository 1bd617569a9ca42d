package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/runboard/internal/adapters/github"
	service "github.com/okian/runboard/internal/app"
	"github.com/okian/runboard/internal/domain/dashboard"
	"github.com/okian/runboard/internal/domain/model"
	"github.com/okian/runboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var errBoom = errors.New("boom")

type stubSource struct {
	workflows    []model.Workflow
	runs         map[int64][]model.WorkflowRun
	listErr      error
	failRunsFor  map[int64]bool
	inFlight     atomic.Int32
	maxInFlight  atomic.Int32
	runCallDelay time.Duration
}

func (s *stubSource) ListWorkflows(context.Context) ([]model.Workflow, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.workflows, nil
}

func (s *stubSource) ListRuns(ctx context.Context, id int64) ([]model.WorkflowRun, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		cur := s.maxInFlight.Load()
		if n <= cur || s.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if s.runCallDelay > 0 {
		select {
		case <-time.After(s.runCallDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.failRunsFor[id] {
		return nil, errBoom
	}
	return s.runs[id], nil
}

type stubCounter struct {
	count int
	err   error
}

func (c stubCounter) GetUserCount(context.Context) (int, error) { return c.count, c.err }

type stubActions struct {
	raw *github.RawResponse
	err error
}

func (a stubActions) Actions(context.Context) (*github.RawResponse, error) { return a.raw, a.err }

func at(sec int) time.Time { return time.Unix(int64(sec), 0).UTC() }

func scenarioSource() *stubSource {
	return &stubSource{
		workflows: []model.Workflow{{ID: 10, Name: "A"}, {ID: 20, Name: "B"}},
		runs: map[int64][]model.WorkflowRun{
			10: {{ID: 1, Conclusion: model.ConclusionSuccess, CreatedAt: at(100)}},
			20: {{ID: 2, Conclusion: model.ConclusionNone, CreatedAt: at(200)}},
		},
	}
}

func TestService_FetchWorkflows(t *testing.T) {
	Convey("Given a service with two workflows", t, func() {
		src := scenarioSource()
		svc := service.New(service.WithWorkflowSource(src))

		Convey("When every listing succeeds", func() {
			result := svc.FetchWorkflows(context.Background())

			Convey("Then the result carries each workflow with its runs", func() {
				So(result.Failed(), ShouldBeFalse)
				wfs := result.Workflows()
				So(wfs, ShouldHaveLength, 2)
				So(wfs[0].Name, ShouldEqual, "A")
				So(wfs[0].Runs[0].ID, ShouldEqual, 1)
				So(wfs[1].Runs[0].Conclusion.InProgress(), ShouldBeTrue)
			})

			Convey("And the stats record one successful cycle", func() {
				stats := svc.GetStats()
				So(stats["fetchCycles"], ShouldEqual, int64(1))
				So(stats["fetchFailures"], ShouldEqual, int64(0))
				So(stats["lastRuns"], ShouldEqual, 2)
			})
		})

		Convey("When one run listing fails", func() {
			src.failRunsFor = map[int64]bool{20: true}
			result := svc.FetchWorkflows(context.Background())

			Convey("Then the whole cycle fails with the generic message", func() {
				So(result.Failed(), ShouldBeTrue)
				So(result.Reason(), ShouldEqual, dashboard.FetchFailedMessage)
				So(result.Workflows(), ShouldBeNil)
				So(svc.GetStats()["fetchFailures"], ShouldEqual, int64(1))
			})
		})

		Convey("When the workflow listing fails", func() {
			src.listErr = errBoom
			result := svc.FetchWorkflows(context.Background())

			Convey("Then the cycle fails", func() {
				So(result.Failed(), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service without a workflow source", t, func() {
		svc := service.New()

		Convey("Then fetching fails instead of panicking", func() {
			So(svc.FetchWorkflows(context.Background()).Failed(), ShouldBeTrue)
		})
	})

	Convey("Given a fan-out limit", t, func() {
		src := &stubSource{runCallDelay: 20 * time.Millisecond, runs: map[int64][]model.WorkflowRun{}}
		for i := int64(1); i <= 6; i++ {
			src.workflows = append(src.workflows, model.Workflow{ID: i, Name: "wf"})
		}
		svc := service.New(service.WithWorkflowSource(src), service.WithFanoutLimit(2))

		result := svc.FetchWorkflows(context.Background())

		Convey("Then no more than the limit run concurrently", func() {
			So(result.Failed(), ShouldBeFalse)
			So(src.maxInFlight.Load(), ShouldBeLessThanOrEqualTo, 2)
			So(result.Workflows(), ShouldHaveLength, 6)
		})
	})

	Convey("Given a canceled request", t, func() {
		src := scenarioSource()
		src.runCallDelay = time.Second
		svc := service.New(service.WithWorkflowSource(src))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		start := time.Now()
		result := svc.FetchWorkflows(ctx)

		Convey("Then in-flight listings stop early and the cycle fails", func() {
			So(result.Failed(), ShouldBeTrue)
			So(time.Since(start), ShouldBeLessThan, 500*time.Millisecond)
		})
	})
}

func TestService_FetchUserCount(t *testing.T) {
	Convey("Given a user counter", t, func() {
		Convey("When it succeeds", func() {
			svc := service.New(service.WithUserCounter(stubCounter{count: 7}))
			n := svc.FetchUserCount(context.Background())

			Convey("Then the count is returned", func() {
				So(n, ShouldNotBeNil)
				So(*n, ShouldEqual, 7)
				So(svc.GetStats()["lastUserCount"], ShouldEqual, 7)
			})
		})

		Convey("When it fails", func() {
			svc := service.New(service.WithUserCounter(stubCounter{err: errBoom}))

			Convey("Then the count is absent", func() {
				So(svc.FetchUserCount(context.Background()), ShouldBeNil)
			})
		})

		Convey("When none is configured", func() {
			svc := service.New()

			Convey("Then the count is absent", func() {
				So(svc.FetchUserCount(context.Background()), ShouldBeNil)
			})
		})
	})
}

func TestService_Dashboard(t *testing.T) {
	Convey("Given both upstreams healthy", t, func() {
		svc := service.New(
			service.WithWorkflowSource(scenarioSource()),
			service.WithUserCounter(stubCounter{count: 42}),
		)

		view := svc.Dashboard(context.Background(), 1)

		Convey("Then the newest run comes first and the count is shown", func() {
			So(view.Error, ShouldBeEmpty)
			So(view.Runs, ShouldHaveLength, 2)
			So(view.Runs[0].ID, ShouldEqual, 2)
			So(view.Runs[0].WorkflowName, ShouldEqual, "B")
			So(view.Runs[1].ID, ShouldEqual, 1)
			So(view.TotalPages, ShouldEqual, 1)
			So(*view.UserCount, ShouldEqual, 42)
		})
	})

	Convey("Given a failing run listing and a healthy counter", t, func() {
		src := scenarioSource()
		src.failRunsFor = map[int64]bool{10: true}
		svc := service.New(
			service.WithWorkflowSource(src),
			service.WithUserCounter(stubCounter{count: 3}),
		)

		view := svc.Dashboard(context.Background(), 1)

		Convey("Then the error is shown with no rows", func() {
			So(view.Error, ShouldEqual, dashboard.FetchFailedMessage)
			So(view.Runs, ShouldBeEmpty)
			So(view.Empty, ShouldBeTrue)
			So(*view.UserCount, ShouldEqual, 3)
		})
	})

	Convey("Given a failing counter", t, func() {
		svc := service.New(
			service.WithWorkflowSource(scenarioSource()),
			service.WithUserCounter(stubCounter{err: errBoom}),
		)

		view := svc.Dashboard(context.Background(), 1)

		Convey("Then no error banner is shown and the count is absent", func() {
			So(view.Error, ShouldBeEmpty)
			So(view.UserCount, ShouldBeNil)
			So(view.Runs, ShouldHaveLength, 2)
		})
	})

	Convey("Given more runs than one page and a page past the end", t, func() {
		src := &stubSource{
			workflows: []model.Workflow{{ID: 1, Name: "CI"}},
			runs:      map[int64][]model.WorkflowRun{},
		}
		for i := 0; i < 25; i++ {
			src.runs[1] = append(src.runs[1], model.WorkflowRun{ID: int64(i), CreatedAt: at(1000 - i)})
		}
		svc := service.New(service.WithWorkflowSource(src), service.WithItemsPerPage(10))

		view := svc.Dashboard(context.Background(), 9)

		Convey("Then the page is clamped to the last one", func() {
			So(view.TotalPages, ShouldEqual, 3)
			So(view.CurrentPage, ShouldEqual, 3)
			So(view.Runs, ShouldHaveLength, 5)
			So(svc.ItemsPerPage(), ShouldEqual, 10)
		})
	})

	Convey("Given concurrent dashboard requests", t, func() {
		svc := service.New(
			service.WithWorkflowSource(scenarioSource()),
			service.WithUserCounter(stubCounter{count: 1}),
		)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = svc.Dashboard(context.Background(), 1)
			}()
		}
		wg.Wait()

		Convey("Then every cycle is counted", func() {
			So(svc.GetStats()["fetchCycles"], ShouldEqual, int64(8))
		})
	})
}

func TestService_Actions(t *testing.T) {
	Convey("Given an actions upstream", t, func() {
		raw := &github.RawResponse{StatusCode: 404, Body: []byte(`{"message":"Not Found"}`)}

		Convey("When it answers", func() {
			svc := service.New(service.WithActionsFetcher(stubActions{raw: raw}))
			got, err := svc.Actions(context.Background())

			Convey("Then the response is returned as is", func() {
				So(err, ShouldBeNil)
				So(got.StatusCode, ShouldEqual, 404)
			})
		})

		Convey("When it fails", func() {
			svc := service.New(service.WithActionsFetcher(stubActions{err: errBoom}))
			_, err := svc.Actions(context.Background())

			Convey("Then the error is returned", func() {
				So(errors.Is(err, errBoom), ShouldBeTrue)
			})
		})

		Convey("When none is configured", func() {
			_, err := service.New().Actions(context.Background())

			Convey("Then ErrNotConfigured is returned", func() {
				So(errors.Is(err, service.ErrNotConfigured), ShouldBeTrue)
			})
		})
	})
}

func TestService_CycleTimeout(t *testing.T) {
	Convey("Given run listings slower than the cycle deadline", t, func() {
		src := scenarioSource()
		src.runCallDelay = 2 * time.Second
		svc := service.New(
			service.WithWorkflowSource(src),
			service.WithUserCounter(stubCounter{count: 3}),
			service.WithCycleTimeout(50*time.Millisecond),
		)

		start := time.Now()
		view := svc.Dashboard(context.Background(), 1)
		elapsed := time.Since(start)

		Convey("Then the cycle ends at the deadline with the error view", func() {
			So(elapsed, ShouldBeLessThan, time.Second)
			So(view.Error, ShouldEqual, dashboard.FetchFailedMessage)
			So(view.Runs, ShouldBeEmpty)
			So(*view.UserCount, ShouldEqual, 3)
			So(svc.GetStats()["cycleTimeout"], ShouldEqual, "50ms")
		})
	})

	Convey("Given no cycle deadline", t, func() {
		src := scenarioSource()
		src.runCallDelay = 20 * time.Millisecond
		svc := service.New(service.WithWorkflowSource(src), service.WithCycleTimeout(0))

		view := svc.Dashboard(context.Background(), 1)

		Convey("Then slow but finite listings still succeed", func() {
			So(view.Error, ShouldBeEmpty)
			So(view.Runs, ShouldHaveLength, 2)
		})
	})
}
