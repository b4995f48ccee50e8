package api

import (
	"context"
	"net/http"

	service "github.com/okian/mmo/internal/app"
)

// ExplainabilityDependencies defines the interface for the Explainability page.
type ExplainabilityDependencies interface {
	Explain(ctx context.Context) (service.Explainability, error)
}

// ExplainabilityHandler handles explainability requests.
type ExplainabilityHandler struct {
	deps ExplainabilityDependencies
}

// NewExplainabilityHandler creates a new explainability handler.
func NewExplainabilityHandler(deps ExplainabilityDependencies) *ExplainabilityHandler {
	return &ExplainabilityHandler{deps: deps}
}

// HandleExplain handles GET /explainability requests.
func (h *ExplainabilityHandler) HandleExplain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	out, err := h.deps.Explain(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
