package testuploads

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/mmo/internal/domain/model"
	"github.com/okian/mmo/pkg/logger"
)

const roiTolerance = 1e-9

// verifyRun returns every inconsistency found in one run's ranking.
func verifyRun(run RunResponse) []string {
	var problems []string
	best := make(map[string]float64)
	for _, g := range run.Groups {
		if g.ROI == nil {
			if g.Rank != 0 {
				problems = append(problems, fmt.Sprintf("%s/%s: undefined ROI but rank %d", g.Marketplace, g.AdGroup, g.Rank))
			}
			continue
		}
		want := (g.Sales - g.Spend) / g.Spend
		if math.Abs(*g.ROI-want) > roiTolerance*math.Max(1, math.Abs(want)) {
			problems = append(problems, fmt.Sprintf("%s/%s: ROI %g, want %g", g.Marketplace, g.AdGroup, *g.ROI, want))
		}
		if g.Rank < 1 {
			problems = append(problems, fmt.Sprintf("%s/%s: ranked group has rank %d", g.Marketplace, g.AdGroup, g.Rank))
		}
		if b, ok := best[g.Marketplace]; !ok || *g.ROI > b {
			best[g.Marketplace] = *g.ROI
		}
	}

	for _, g := range run.Groups {
		if g.ROI == nil {
			continue
		}
		isBest := *g.ROI == best[g.Marketplace]
		if isBest != (g.Rank == 1) {
			problems = append(problems, fmt.Sprintf("%s/%s: rank %d with ROI %g, best is %g", g.Marketplace, g.AdGroup, g.Rank, *g.ROI, best[g.Marketplace]))
		}
		for _, o := range run.Groups {
			if o.ROI != nil && o.Marketplace == g.Marketplace && *o.ROI > *g.ROI && o.Rank >= g.Rank {
				problems = append(problems, fmt.Sprintf("%s: %s outranked by lower ROI %s", g.Marketplace, o.AdGroup, g.AdGroup))
			}
		}
	}

	for _, t := range run.Top {
		if t.Rank != 1 {
			problems = append(problems, fmt.Sprintf("%s/%s: recommended with rank %d", t.Marketplace, t.AdGroup, t.Rank))
		}
	}
	return problems
}

// verifyRuns checks every run and fails when any ranking is inconsistent.
func verifyRuns(ctx context.Context, runs []RunResponse, stats *Stats, log logger.Logger) error {
	if len(runs) == 0 {
		return fmt.Errorf("no runs to verify")
	}
	for _, run := range runs {
		problems := verifyRun(run)
		stats.RunsVerified++
		stats.Inconsistencies += len(problems)
		for _, p := range problems {
			log.Warn(ctx, "inconsistent ranking", logger.String("run", run.ID), logger.String("problem", p))
		}
	}
	if stats.Inconsistencies > 0 {
		return fmt.Errorf("%d inconsistencies across %d runs", stats.Inconsistencies, stats.RunsVerified)
	}
	log.Info(ctx, "rankings verified", logger.Int("runs", stats.RunsVerified))
	return nil
}

// verifyReplay re-submits an upload and expects the stored run back.
func verifyReplay(ctx context.Context, client *HTTPClient, u Upload, first RunResponse) error {
	again, err := client.Upload(ctx, u)
	if err != nil {
		return err
	}
	if !again.Replayed || again.ID != first.ID {
		return fmt.Errorf("identical upload was not replayed: got run %s (replayed=%t), want %s", again.ID, again.Replayed, first.ID)
	}
	return nil
}

// topPerMarketplace indexes recommended groups for display.
func topPerMarketplace(run RunResponse) map[string][]model.Group {
	out := make(map[string][]model.Group)
	for _, g := range run.Top {
		out[g.Marketplace] = append(out[g.Marketplace], g)
	}
	return out
}
