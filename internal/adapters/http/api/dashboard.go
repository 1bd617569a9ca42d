package api

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/runboard/internal/domain/dashboard"
	"github.com/okian/runboard/internal/domain/model"
	"github.com/okian/runboard/pkg/logger"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

// testedAtLayout renders run creation times in the table.
const testedAtLayout = "1/2/2006, 3:04:05 PM MST"

var dashboardTemplate = template.Must(
	template.New("dashboard.html").Funcs(template.FuncMap{
		"statusClass": statusClass,
		"statusLabel": func(c model.Conclusion) string { return c.Label() },
		"testedAt":    func(t time.Time) string { return t.UTC().Format(testedAtLayout) },
		"prev":        func(p int) int { return p - 1 },
		"next":        func(p int) int { return p + 1 },
	}).ParseFS(templateFS, "templates/dashboard.html"),
)

// statusClass maps a conclusion to its colour class.
func statusClass(c model.Conclusion) string {
	switch c {
	case model.ConclusionSuccess:
		return "status-success"
	case model.ConclusionFailure:
		return "status-failure"
	default:
		return "status-pending"
	}
}

type dashboardPage struct {
	dashboard.View
	EmptyMessage string
}

// DashboardHandler serves the run table as HTML and as JSON.
type DashboardHandler struct {
	deps Dependencies
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(deps Dependencies) *DashboardHandler {
	return &DashboardHandler{deps: deps}
}

// HandlePage handles GET /dashboard?page=N.
func (h *DashboardHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	const op = "api.dashboard_page"

	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	view := h.deps.Dashboard(r.Context(), page)

	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, dashboardPage{View: view, EmptyMessage: dashboard.EmptyMessage}); err != nil {
		logger.Get().Error(r.Context(), "failed to render dashboard", logger.Error(WrapKind(op, ErrRender, err)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// HandleJSON handles GET /api/dashboard?page=N. A failed fetch cycle is still
// a 200: the failure is part of the view, exactly as the HTML page shows it.
func (h *DashboardHandler) HandleJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Dashboard(r.Context(), page))
}

// parsePage reads the page query parameter. Missing means the first page;
// out-of-range numbers are clamped later when the view is built.
func parsePage(r *http.Request) (int, error) {
	const op = "api.parse_page"

	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewKind(op, ErrBadRequest, "page must be an integer")
	}
	return page, nil
}
