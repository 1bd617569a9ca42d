package fakeupstream

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/runboard/internal/adapters/github"
)

// Paging defaults mirror the real API.
const (
	defaultPerPage = 30
	maxPerPage     = 100
)

// Server serves a Fixture over HTTP. It is safe for concurrent use and its
// failure injection can be changed while it runs.
type Server struct {
	mu       sync.RWMutex
	fixture  *Fixture
	mux      *http.ServeMux
	requests atomic.Int64
}

// NewServer creates a server for f.
func NewServer(f *Fixture) *Server {
	s := &Server{fixture: f, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /repos/{owner}/{repo}/actions/workflows", s.handleWorkflows)
	s.mux.HandleFunc("GET /repos/{owner}/{repo}/actions/workflows/{id}/runs", s.handleRuns)
	s.mux.HandleFunc("GET /repos/{owner}/{repo}/actions", s.handleActions)
	s.mux.HandleFunc("GET /analytics/getusercount", s.handleUserCount)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	if d := s.delay(); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}
	s.mux.ServeHTTP(w, r)
}

// Requests returns how many requests were served.
func (s *Server) Requests() int64 { return s.requests.Load() }

// FailRuns makes the run listing of workflowID answer status; 0 heals it.
func (s *Server) FailRuns(workflowID int64, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fixture.Failures.Runs == nil {
		s.fixture.Failures.Runs = make(map[int64]int)
	}
	if status == 0 {
		delete(s.fixture.Failures.Runs, workflowID)
		return
	}
	s.fixture.Failures.Runs[workflowID] = status
}

// FailWorkflowList makes the workflow listing answer status; 0 heals it.
func (s *Server) FailWorkflowList(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixture.Failures.WorkflowList = status
}

// FailAnalytics makes the user count route answer status; 0 heals it.
func (s *Server) FailAnalytics(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixture.Failures.Analytics = status
}

// SetDelay adds latency to every response.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixture.Failures.Delay = d
}

func (s *Server) delay() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fixture.Failures.Delay
}

// authorize checks repository coordinates and the bearer token.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	if r.PathValue("owner") != s.fixture.Owner || r.PathValue("repo") != s.fixture.Repo {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return false
	}
	if s.fixture.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.fixture.Token {
		writeMessage(w, http.StatusUnauthorized, "Bad credentials")
		return false
	}
	return true
}

func (s *Server) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.authorize(w, r) {
		return
	}
	if st := s.fixture.Failures.WorkflowList; st != 0 {
		writeMessage(w, st, http.StatusText(st))
		return
	}

	all := make([]github.WorkflowPayload, 0, len(s.fixture.Workflows))
	for _, wf := range s.fixture.Workflows {
		all = append(all, github.WorkflowPayload{ID: wf.ID, Name: wf.Name, Path: wf.Path, State: "active"})
	}
	lo, hi := pageBounds(r, len(all))
	writeJSON(w, http.StatusOK, github.WorkflowsPage{TotalCount: len(all), Workflows: all[lo:hi]})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.authorize(w, r) {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}
	if st := s.fixture.Failures.Runs[id]; st != 0 {
		writeMessage(w, st, http.StatusText(st))
		return
	}

	var wf *WorkflowFixture
	for i := range s.fixture.Workflows {
		if s.fixture.Workflows[i].ID == id {
			wf = &s.fixture.Workflows[i]
			break
		}
	}
	if wf == nil {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}

	lo, hi := pageBounds(r, len(wf.Runs))
	runs := make([]github.RunPayload, 0, hi-lo)
	for _, run := range wf.Runs[lo:hi] {
		p := github.RunPayloadFrom(run.toModel())
		p.HTMLURL = "https://github.com/" + s.fixture.Owner + "/" + s.fixture.Repo + "/actions/runs/" + strconv.FormatInt(run.ID, 10)
		runs = append(runs, p)
	}
	writeJSON(w, http.StatusOK, github.RunsPage{TotalCount: len(wf.Runs), WorkflowRuns: runs})
}

// actionsSummary is what the fake serves for the bare actions path. The real
// API has no such listing and answers 404; the fake returns a small summary
// so the proxy has something to relay.
type actionsSummary struct {
	Repository   string `json:"repository"`
	Workflows    int    `json:"workflows"`
	WorkflowRuns int    `json:"workflow_runs"`
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.authorize(w, r) {
		return
	}
	runs := 0
	for _, wf := range s.fixture.Workflows {
		runs += len(wf.Runs)
	}
	writeJSON(w, http.StatusOK, actionsSummary{
		Repository:   s.fixture.Owner + "/" + s.fixture.Repo,
		Workflows:    len(s.fixture.Workflows),
		WorkflowRuns: runs,
	})
}

type userCountData struct {
	Count int `json:"count"`
}

type userCountBody struct {
	Data userCountData `json:"data"`
}

func (s *Server) handleUserCount(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st := s.fixture.Failures.Analytics; st != 0 {
		writeMessage(w, st, http.StatusText(st))
		return
	}
	if s.fixture.UserCount == nil {
		writeMessage(w, http.StatusInternalServerError, "count unavailable")
		return
	}
	writeJSON(w, http.StatusOK, userCountBody{Data: userCountData{Count: *s.fixture.UserCount}})
}

// pageBounds applies per_page and page (1-based) to n items.
func pageBounds(r *http.Request, n int) (int, int) {
	perPage := queryInt(r, "per_page", defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, maxPerPage)
	page := max(queryInt(r, "page", 1), 1)

	lo := min((page-1)*perPage, n)
	hi := min(lo+perPage, n)
	return lo, hi
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

type messageBody struct {
	Message string `json:"message"`
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageBody{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
