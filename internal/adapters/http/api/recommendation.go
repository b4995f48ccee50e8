package api

import (
	"context"
	"net/http"

	service "github.com/okian/mmo/internal/app"
)

// RecommendationDependencies defines the interface for the Recommendation page.
type RecommendationDependencies interface {
	Recommend(ctx context.Context, req service.RecommendRequest) (service.Recommendation, error)
}

// RecommendationHandler handles recommendation uploads.
type RecommendationHandler struct {
	deps     RecommendationDependencies
	maxBytes int64
}

// NewRecommendationHandler creates a new recommendation handler.
func NewRecommendationHandler(deps RecommendationDependencies, maxBytes int64) *RecommendationHandler {
	return &RecommendationHandler{deps: deps, maxBytes: maxBytes}
}

// HandleRecommend handles POST /recommendation requests. A replayed upload
// answers 200 with replayed set; a fresh run answers 201.
func (h *RecommendationHandler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	name, data, err := readUpload(w, r, h.maxBytes)
	if err != nil {
		writeUploadFailure(w, err)
		return
	}
	sess, _ := SessionFrom(r.Context())
	rec, err := h.deps.Recommend(r.Context(), service.RecommendRequest{
		User:     sess.User,
		FileName: name,
		Content:  data,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	status := http.StatusCreated
	if rec.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, rec)
}
