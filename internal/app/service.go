// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/mmo/internal/adapters/repository"
	"github.com/okian/mmo/internal/domain/dataset"
	"github.com/okian/mmo/internal/domain/dedupe"
	"github.com/okian/mmo/internal/domain/model"
	"github.com/okian/mmo/internal/domain/ranking"
	"github.com/okian/mmo/internal/domain/scoring"
	"github.com/okian/mmo/pkg/logger"
	"github.com/okian/mmo/pkg/metrics"
)

const (
	previewRows         = 5
	defaultMaxUpload    = 32 << 20
	defaultHistoryLimit = 500
	defaultDedupeSize   = 1000
)

// Asset is a precomputed chart shown on a page.
type Asset struct {
	File    string `json:"file"`
	Caption string `json:"caption"`
}

// Chart assets produced by the training notebook.
var (
	ModelComparisonAsset = Asset{File: "Model_comparison.jpeg", Caption: "Model Comparison"}
	FeatureImportance    = Asset{File: "Feature_imp.jpeg", Caption: "Feature Importance"}
	VOCAsset             = Asset{File: "VOC.jpeg", Caption: "VOC"}
	ErrorAnalysisAsset   = Asset{File: "error.jpeg", Caption: "Error Analysis"}
)

// Discovery is the Model Discovery page: a preview of an exploratory upload.
type Discovery struct {
	FileName string                  `json:"file_name"`
	Rows     int                     `json:"rows"`
	Columns  []string                `json:"columns"`
	Preview  [][]string              `json:"preview"`
	Summary  []dataset.ColumnSummary `json:"summary"`
	Assets   []Asset                 `json:"assets"`
}

// Weight is one model coefficient.
type Weight struct {
	Feature     string  `json:"feature"`
	Coefficient float64 `json:"coefficient"`
}

// Explainability is the Explainability page.
type Explainability struct {
	ModelVersion string   `json:"model_version,omitempty"`
	Weights      []Weight `json:"weights,omitempty"`
	Assets       []Asset  `json:"assets"`
}

// RecommendRequest is one upload to the Recommendation page.
type RecommendRequest struct {
	User     string
	FileName string
	Content  []byte
}

// Recommendation is a stored run plus whether it was replayed.
type Recommendation struct {
	model.Run
	Replayed bool `json:"replayed"`
}

// Service implements the API dependencies for the optimizer.
type Service struct {
	mu sync.RWMutex

	// Core components
	models   *ModelCache
	history  repository.RunStore
	deduper  dedupe.Deduper
	pipeline *Pipeline

	// Configuration
	loader         ModelLoader
	modelPath      string
	cacheModel     bool
	watchModel     bool
	trainedVocab   bool
	rankingPolicy  ranking.Policy
	zeroSpend      ranking.ZeroSpend
	guardExpr      string
	maxUploadBytes int64
	historyLimit   int
	dedupeSize     int

	// State
	started bool
	now     func() time.Time

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cacheModel:     true,
		rankingPolicy:  ranking.Competition,
		zeroSpend:      ranking.ZeroSpendFlag,
		maxUploadBytes: defaultMaxUpload,
		historyLimit:   defaultHistoryLimit,
		dedupeSize:     defaultDedupeSize,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting optimizer service...")

	guard, err := ranking.NewGuard(s.guardExpr)
	if err != nil {
		return err
	}
	loader := s.loader
	if loader == nil {
		path := s.modelPath
		loader = func(context.Context) (scoring.Predictor, error) {
			return scoring.LoadLinearModel(path)
		}
	}

	s.models = NewModelCache(loader, s.cacheModel, s.watchPath(), s.logger.Named("model"))
	if err := s.models.Watch(ctx); err != nil {
		s.logger.Warn(ctx, "model watch disabled", logger.Error(err))
	}
	if s.history == nil {
		s.history = repository.NewMemoryStore(repository.WithMaxRuns(s.historyLimit))
		s.logger.Info(ctx, "using in-memory run history")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.pipeline = &Pipeline{
		TrainedVocabulary: s.trainedVocab,
		MaxBytes:          s.maxUploadBytes,
		Aggregator: ranking.NewAggregator(
			ranking.WithPolicy(s.rankingPolicy),
			ranking.WithZeroSpend(s.zeroSpend),
			ranking.WithLogger(s.logger.Named("ranking")),
		),
		Guard: guard,
		Log:   s.logger.Named("pipeline"),
	}

	s.started = true
	s.logger.Info(ctx, "optimizer service started",
		logger.Bool("cacheModel", s.cacheModel),
		logger.Bool("trainedVocabulary", s.trainedVocab),
		logger.String("rankingPolicy", string(s.rankingPolicy)),
		logger.String("zeroSpend", string(s.zeroSpend)),
		logger.String("guard", guard.String()),
	)

	// Warm the cache so a broken artifact shows up at boot, not on first upload.
	if s.cacheModel {
		if _, err := s.models.Get(ctx); err != nil {
			s.logger.Warn(ctx, "model not loaded at startup", logger.Error(err))
		}
	}
	return nil
}

func (s *Service) watchPath() string {
	if !s.watchModel || s.loader != nil {
		return ""
	}
	return s.modelPath
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping optimizer service...")

	if s.models != nil {
		if err := s.models.Close(); err != nil {
			s.logger.Warn(context.Background(), "close model watcher", logger.Error(err))
		}
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Warn(context.Background(), "close run history", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "optimizer service stopped")
}

func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Discover parses an exploratory upload and returns its preview.
func (s *Service) Discover(ctx context.Context, fileName string, r io.Reader) (Discovery, error) {
	if err := s.running(); err != nil {
		return Discovery{}, err
	}
	tbl, err := dataset.Load(ctx, r, dataset.WithMaxBytes(s.maxUploadBytes))
	if err != nil {
		metrics.RecordUpload("discovery", Kind(err))
		s.logger.Warn(ctx, "discovery upload rejected", logger.String("file", fileName), logger.Error(err))
		return Discovery{}, err
	}
	metrics.RecordUpload("discovery", "ok")
	s.logger.Info(ctx, "discovery upload parsed",
		logger.String("file", fileName),
		logger.Int("rows", tbl.NumRows()),
		logger.Int("columns", tbl.NumCols()))
	return Discovery{
		FileName: fileName,
		Rows:     tbl.NumRows(),
		Columns:  tbl.Names(),
		Preview:  tbl.Head(previewRows),
		Summary:  tbl.Summary(),
		Assets:   []Asset{ModelComparisonAsset},
	}, nil
}

// Explain returns the explainability assets and, when the model exposes
// them, its coefficients ordered by magnitude.
func (s *Service) Explain(ctx context.Context) (Explainability, error) {
	if err := s.running(); err != nil {
		return Explainability{}, err
	}
	out := Explainability{Assets: []Asset{FeatureImportance, VOCAsset, ErrorAnalysisAsset}}
	p, err := s.models.Get(ctx)
	if err != nil {
		s.logger.Warn(ctx, "explainability without model weights", logger.Error(err))
		return out, nil
	}
	out.ModelVersion = scoring.VersionOf(p)
	if lm, ok := p.(*scoring.LinearModel); ok {
		for i, f := range lm.Features {
			out.Weights = append(out.Weights, Weight{Feature: f, Coefficient: lm.Coefficients[i]})
		}
		sort.SliceStable(out.Weights, func(i, j int) bool {
			return abs(out.Weights[i].Coefficient) > abs(out.Weights[j].Coefficient)
		})
	}
	return out, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Recommend scores an upload, ranks its groups and stores the run. An upload
// identical to an earlier one under the same model and settings replays the
// stored run.
func (s *Service) Recommend(ctx context.Context, req RecommendRequest) (Recommendation, error) {
	if err := s.running(); err != nil {
		return Recommendation{}, err
	}
	if int64(len(req.Content)) > s.maxUploadBytes {
		err := fmt.Errorf("%w: %w (%d bytes)", dataset.ErrParse, dataset.ErrTooLarge, s.maxUploadBytes)
		metrics.RecordUpload("recommendation", Kind(err))
		return Recommendation{}, err
	}

	predictor, err := s.models.Get(ctx)
	if err != nil {
		metrics.RecordUpload("recommendation", Kind(err))
		return Recommendation{}, err
	}
	version := scoring.VersionOf(predictor)
	// Replays are scoped to the uploader so a run never changes owner.
	fp := dedupe.Fingerprint(req.Content, version+"|"+s.settingsKey()+"|"+req.User)

	if run, ok := s.replay(ctx, fp); ok {
		metrics.RecordUpload("recommendation", "replayed")
		metrics.RecordReplay()
		s.logger.Info(ctx, "recommendation replayed",
			logger.String("run", run.ID),
			logger.String("fingerprint", fp))
		return Recommendation{Run: run, Replayed: true}, nil
	}

	out, err := s.pipeline.Run(ctx, predictor, bytes.NewReader(req.Content))
	if err != nil {
		kind := Kind(err)
		metrics.RecordUpload("recommendation", kind)
		metrics.RecordErrorByComponent("pipeline", kind)
		s.logger.Warn(ctx, "recommendation failed",
			logger.String("file", req.FileName),
			logger.String("kind", kind),
			logger.Error(err))
		return Recommendation{}, err
	}

	run := model.Run{
		ID:           uuid.NewString(),
		User:         req.User,
		FileName:     req.FileName,
		Fingerprint:  fp,
		ModelVersion: version,
		Rows:         out.Rows,
		Groups:       out.Groups,
		Top:          out.Top,
		Warnings:     out.Warnings,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.history.Save(ctx, run); err != nil {
		s.logger.Error(ctx, "run not stored", logger.String("run", run.ID), logger.Error(err))
	} else {
		s.deduper.Record(ctx, fp, run.ID)
	}

	metrics.RecordUpload("recommendation", "ok")
	s.logger.Info(ctx, "recommendation computed",
		logger.String("run", run.ID),
		logger.String("file", req.FileName),
		logger.Int("rows", run.Rows),
		logger.Int("groups", len(run.Groups)),
		logger.Int("top", len(run.Top)),
		logger.Int("warnings", len(run.Warnings)))
	return Recommendation{Run: run}, nil
}

func (s *Service) replay(ctx context.Context, fp string) (model.Run, bool) {
	id, ok := s.deduper.Lookup(ctx, fp)
	if !ok {
		return model.Run{}, false
	}
	run, err := s.history.Get(ctx, id)
	if err != nil {
		// Pruned from history; score it again.
		s.deduper.Forget(ctx, fp)
		return model.Run{}, false
	}
	return run, true
}

func (s *Service) settingsKey() string {
	return fmt.Sprintf("%t|%s|%s|%s", s.trainedVocab, s.rankingPolicy, s.zeroSpend, s.guardExpr)
}

// Runs lists stored runs, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	if limit > s.historyLimit && s.historyLimit > 0 {
		limit = s.historyLimit
	}
	return s.history.List(ctx, limit)
}

// Run returns one stored run.
func (s *Service) Run(ctx context.Context, id string) (model.Run, error) {
	if err := s.running(); err != nil {
		return model.Run{}, err
	}
	return s.history.Get(ctx, id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           s.started,
		"cacheModel":        s.cacheModel,
		"trainedVocabulary": s.trainedVocab,
		"rankingPolicy":     string(s.rankingPolicy),
		"zeroSpend":         string(s.zeroSpend),
		"historyLimit":      s.historyLimit,
		"dedupeSize":        s.dedupeSize,
	}
	if s.started {
		runs := s.history.Count(context.Background())
		stats["runs"] = runs
		stats["dedupeEntries"] = s.deduper.Size()
		stats["guard"] = s.pipeline.Guard.String()
		metrics.UpdateHistoryRuns(runs)
	}
	return stats
}
