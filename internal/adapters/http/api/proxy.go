package api

import (
	"net/http"

	"github.com/okian/runboard/pkg/logger"
)

// ProxyHandler relays the repository actions listing.
type ProxyHandler struct {
	deps Dependencies
}

// NewProxyHandler creates a new proxy handler.
func NewProxyHandler(deps Dependencies) *ProxyHandler {
	return &ProxyHandler{deps: deps}
}

// HandleWorkflow handles GET /api/workflow. The upstream body and status are
// returned untouched; only a transport failure becomes a 502.
func (h *ProxyHandler) HandleWorkflow(w http.ResponseWriter, r *http.Request) {
	const op = "api.workflow_proxy"

	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	raw, err := h.deps.Actions(r.Context())
	if err != nil {
		logger.Get().Warn(r.Context(), "actions proxy failed", logger.Error(Wrap(op, err)))
		writeError(w, http.StatusBadGateway, "upstream_error", ErrUpstream)
		return
	}

	contentType := raw.ContentType
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(raw.StatusCode)
	_, _ = w.Write(raw.Body)
}
