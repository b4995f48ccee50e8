package api

import (
	"bytes"
	"context"
	"io"
	"net/http"

	service "github.com/okian/mmo/internal/app"
)

// DiscoveryDependencies defines the interface for the Model Discovery page.
type DiscoveryDependencies interface {
	Discover(ctx context.Context, fileName string, r io.Reader) (service.Discovery, error)
}

// DiscoveryHandler handles discovery uploads.
type DiscoveryHandler struct {
	deps     DiscoveryDependencies
	maxBytes int64
}

// NewDiscoveryHandler creates a new discovery handler.
func NewDiscoveryHandler(deps DiscoveryDependencies, maxBytes int64) *DiscoveryHandler {
	return &DiscoveryHandler{deps: deps, maxBytes: maxBytes}
}

// HandleDiscover handles POST /discovery requests.
func (h *DiscoveryHandler) HandleDiscover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	name, data, err := readUpload(w, r, h.maxBytes)
	if err != nil {
		writeUploadFailure(w, err)
		return
	}
	out, err := h.deps.Discover(r.Context(), name, bytes.NewReader(data))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
