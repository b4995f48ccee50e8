package service

import (
	"errors"

	"github.com/okian/mmo/internal/adapters/repository"
	"github.com/okian/mmo/internal/domain/dataset"
	"github.com/okian/mmo/internal/domain/encoding"
	"github.com/okian/mmo/internal/domain/ranking"
	"github.com/okian/mmo/internal/domain/scoring"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrNoVocabulary = errors.New("model artifact carries no category vocabulary")
)

// Error kinds reported to users and metrics.
const (
	KindParse          = "parse_error"
	KindEncoding       = "encoding_error"
	KindModelLoad      = "model_load_error"
	KindSchemaMismatch = "schema_mismatch"
	KindAggregation    = "aggregation_error"
	KindPredict        = "predict_error"
	KindGuard          = "guard_error"
	KindNotFound       = "not_found"
	KindUnavailable    = "unavailable"
	KindInternal       = "internal_error"
)

// Kind classifies err into one of the Kind constants.
func Kind(err error) string {
	switch {
	case errors.Is(err, dataset.ErrParse):
		return KindParse
	case errors.Is(err, encoding.ErrEncoding):
		return KindEncoding
	case errors.Is(err, scoring.ErrModelLoad), errors.Is(err, ErrNoVocabulary):
		return KindModelLoad
	case errors.Is(err, scoring.ErrSchemaMismatch):
		return KindSchemaMismatch
	case errors.Is(err, ranking.ErrAggregation):
		return KindAggregation
	case errors.Is(err, scoring.ErrPredict):
		return KindPredict
	case errors.Is(err, ranking.ErrGuardEval):
		return KindGuard
	case errors.Is(err, repository.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotStarted):
		return KindUnavailable
	default:
		return KindInternal
	}
}
