package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/okian/mmo/internal/domain/dataset"
	"github.com/okian/mmo/internal/domain/encoding"
	"github.com/okian/mmo/internal/domain/model"
	"github.com/okian/mmo/internal/domain/ranking"
	"github.com/okian/mmo/internal/domain/scoring"
	"github.com/okian/mmo/pkg/logger"
	"github.com/okian/mmo/pkg/metrics"
)

// Upload columns the recommendation page requires.
const (
	ColMarketplace = "Marketplace"
	ColAdGroup     = "Ad_group"
	ColSpend       = "Spend"
)

// Pipeline runs load, encode, score and aggregate for one upload. It holds
// no per-request state and is safe for concurrent use.
type Pipeline struct {
	TrainedVocabulary bool
	MaxBytes          int64
	Aggregator        *ranking.Aggregator
	Guard             *ranking.Guard
	Log               logger.Logger
}

// Outcome is the result of a pipeline run.
type Outcome struct {
	Rows     int
	Groups   []model.Group
	Top      []model.Group
	Warnings []string
}

// Run executes the pipeline against predictor.
func (p *Pipeline) Run(ctx context.Context, predictor scoring.Predictor, r io.Reader) (Outcome, error) {
	log := p.Log
	if log == nil {
		log = logger.Nop()
	}
	agg := p.Aggregator
	if agg == nil {
		agg = ranking.NewAggregator(ranking.WithLogger(log))
	}

	var tbl *dataset.Table
	err := stage(ctx, log, metrics.StageLoad, func() error {
		var err error
		tbl, err = dataset.Load(ctx, r, dataset.WithMaxBytes(p.MaxBytes))
		if err != nil {
			return err
		}
		return tbl.Require(ColMarketplace, ColAdGroup, ColSpend)
	})
	if err != nil {
		return Outcome{}, err
	}

	enc, err := p.encoder(predictor)
	if err != nil {
		return Outcome{}, err
	}
	var encoded *dataset.Table
	err = stage(ctx, log, metrics.StageEncode, func() error {
		var err error
		encoded, err = enc.Encode(ctx, tbl)
		return err
	})
	if err != nil {
		return Outcome{}, err
	}

	var preds []float64
	err = stage(ctx, log, metrics.StageScore, func() error {
		var err error
		preds, err = scoring.NewScorer(predictor, scoring.WithLogger(log)).Score(ctx, enc.Features(encoded))
		return err
	})
	if err != nil {
		return Outcome{}, err
	}
	metrics.RecordRowsScored(len(preds))

	var out Outcome
	err = stage(ctx, log, metrics.StageAggregate, func() error {
		rows, err := scoredRows(tbl, preds)
		if err != nil {
			return err
		}
		groups, err := agg.Aggregate(ctx, rows)
		if err != nil {
			return err
		}
		top, err := p.Guard.Filter(ranking.Top(groups))
		if err != nil {
			return err
		}
		out = Outcome{Rows: tbl.NumRows(), Groups: groups, Top: top, Warnings: ranking.Warnings(groups)}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	metrics.RecordGroupsRanked(len(out.Groups))
	if len(out.Warnings) > 0 {
		metrics.RecordZeroSpendGroups(len(out.Warnings))
	}
	return out, nil
}

func (p *Pipeline) encoder(predictor scoring.Predictor) (*encoding.Encoder, error) {
	if !p.TrainedVocabulary {
		return encoding.New(encoding.DefaultColumns), nil
	}
	v, ok := predictor.(scoring.Vocabulary)
	if !ok || len(v.Categories()) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoVocabulary, scoring.VersionOf(predictor))
	}
	return encoding.New(encoding.DefaultColumns, encoding.WithVocabulary(v.Categories())), nil
}

// scoredRows pairs every upload row with its prediction.
func scoredRows(tbl *dataset.Table, preds []float64) ([]model.Row, error) {
	mkt, _ := tbl.Column(ColMarketplace)
	grp, _ := tbl.Column(ColAdGroup)
	spend, _ := tbl.Column(ColSpend)
	rows := make([]model.Row, tbl.NumRows())
	for i := range rows {
		s, ok := spend.Float(i)
		if !ok {
			return nil, fmt.Errorf("%w: Spend is empty at row %d", ranking.ErrAggregation, i+1)
		}
		rows[i] = model.Row{
			Marketplace: mkt.Value(i),
			AdGroup:     grp.Value(i),
			Spend:       s,
			Sales:       preds[i],
		}
	}
	return rows, nil
}

func stage(ctx context.Context, log logger.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	ms := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordStageLatency(name, ms)
	if err != nil {
		log.Debug(ctx, "stage failed", logger.String("stage", name), logger.Error(err))
		return err
	}
	log.Debug(ctx, "stage done", logger.String("stage", name), logger.Float64("latency_ms", ms))
	return nil
}
