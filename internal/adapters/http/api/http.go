// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	service "github.com/okian/mmo/internal/app"
	"github.com/okian/mmo/internal/auth"
	"github.com/okian/mmo/internal/domain/model"
	"github.com/okian/mmo/pkg/logger"
)

const defaultMaxUploadBytes = 32 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Discover(ctx context.Context, fileName string, r io.Reader) (service.Discovery, error)
	Explain(ctx context.Context) (service.Explainability, error)
	Recommend(ctx context.Context, req service.RecommendRequest) (service.Recommendation, error)

	// Read operations expose stored runs.
	Runs(ctx context.Context, limit int) ([]model.RunSummary, error)
	Run(ctx context.Context, id string) (model.Run, error)
}

// Authenticator opens, resolves and closes sessions.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (auth.Session, error)
	Authenticate(token string) (auth.Session, error)
	Logout(ctx context.Context, token string)
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUploadBytes caps multipart uploads.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	maxUploadBytes int64
	log            logger.Logger

	healthHandler         *HealthHandler
	authHandler           *AuthHandler
	discoveryHandler      *DiscoveryHandler
	explainabilityHandler *ExplainabilityHandler
	recommendationHandler *RecommendationHandler
	runsHandler           *RunsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, authn Authenticator, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{maxUploadBytes: defaultMaxUploadBytes, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler(statsProvider)
	s.authHandler = NewAuthHandler(authn, s.log)
	s.discoveryHandler = NewDiscoveryHandler(deps, s.maxUploadBytes)
	s.explainabilityHandler = NewExplainabilityHandler(deps)
	s.recommendationHandler = NewRecommendationHandler(deps, s.maxUploadBytes)
	s.runsHandler = NewRunsHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	guard := s.authHandler.RequireSession
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, observe(h, endpoint, s.log))
	}

	// Specific paths first (most specific to least specific)
	route("/healthz", "healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("/dashboard", HandleDashboard)
	route("/stats", "stats", s.healthHandler.HandleStats)
	route("/login", "login", s.authHandler.HandleLogin)
	route("/logout", "logout", s.authHandler.HandleLogout)
	route("/me", "me", guard(s.authHandler.HandleMe))
	route("/discovery", "discovery", guard(s.discoveryHandler.HandleDiscover))
	route("/explainability", "explainability", guard(s.explainabilityHandler.HandleExplain))
	route("/recommendation", "recommendation", guard(s.recommendationHandler.HandleRecommend))
	route("/runs", "runs", guard(s.runsHandler.HandleListRuns))
	route("/runs/", "run", guard(s.runsHandler.HandleGetRun))
}

// RequireSession exposes the session check for routes registered elsewhere.
func (s *Server) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return s.authHandler.RequireSession(next)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before sending the status, so an unencodable value
// becomes a 500 with a message instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "encoding_error", Message: err.Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure translates a service or auth error into a status and code.
// The message is the error text; it is shown to the user as is.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", err)
		return
	case auth.IsAuthError(err):
		writeError(w, http.StatusUnauthorized, "unauthorized", err)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, service.KindUnavailable, err)
		return
	}
	kind := service.Kind(err)
	writeError(w, statusForKind(kind), kind, err)
}

func statusForKind(kind string) int {
	switch kind {
	case service.KindParse, service.KindEncoding, service.KindSchemaMismatch,
		service.KindAggregation, service.KindGuard:
		return http.StatusUnprocessableEntity
	case service.KindModelLoad, service.KindUnavailable:
		return http.StatusServiceUnavailable
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindPredict:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
