package service

import (
	"github.com/okian/mmo/internal/adapters/repository"
	"github.com/okian/mmo/internal/domain/ranking"
	"github.com/okian/mmo/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithModelPath sets the linear model artifact to load.
func WithModelPath(path string) Option {
	return func(s *Service) {
		s.modelPath = path
	}
}

// WithModelLoader replaces the artifact loader, e.g. with a remote predictor.
func WithModelLoader(load ModelLoader) Option {
	return func(s *Service) {
		s.loader = load
	}
}

// WithModelCaching keeps the loaded model between requests; watch also
// reloads it when the artifact file changes.
func WithModelCaching(cache, watch bool) Option {
	return func(s *Service) {
		s.cacheModel = cache
		s.watchModel = cache && watch
	}
}

// WithTrainedVocabulary encodes against the vocabulary stored in the model
// artifact instead of the values present in the upload.
func WithTrainedVocabulary(trained bool) Option {
	return func(s *Service) {
		s.trainedVocab = trained
	}
}

// WithRankingPolicy sets the tie policy.
func WithRankingPolicy(p ranking.Policy) Option {
	return func(s *Service) {
		if p != "" {
			s.rankingPolicy = p
		}
	}
}

// WithZeroSpend sets the zero spend policy.
func WithZeroSpend(z ranking.ZeroSpend) Option {
	return func(s *Service) {
		if z != "" {
			s.zeroSpend = z
		}
	}
}

// WithGuard sets a CEL expression that recommended groups must satisfy.
func WithGuard(expr string) Option {
	return func(s *Service) {
		s.guardExpr = expr
	}
}

// WithMaxUploadBytes caps upload size.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithHistory sets the run store. The service closes it on Stop.
func WithHistory(store repository.RunStore) Option {
	return func(s *Service) {
		s.history = store
	}
}

// WithHistoryLimit caps stored and listed runs.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithDedupeSize sets how many upload fingerprints are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}
