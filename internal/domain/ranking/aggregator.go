// Package ranking aggregates scored rows into (Ad_group, Marketplace) groups,
// computes ROI and ranks groups within each marketplace.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/okian/mmo/internal/domain/model"
	"github.com/okian/mmo/pkg/logger"
)

// Policy decides how tied ROI values are ranked.
type Policy string

// Tie policies.
const (
	// Competition gives ties the same rank and skips the following ranks: 1,1,3.
	Competition Policy = "competition"
	// Dense gives ties the same rank without gaps: 1,1,2.
	Dense Policy = "dense"
)

// ZeroSpend decides what happens to groups whose summed spend is zero.
type ZeroSpend string

// Zero spend policies.
const (
	// ZeroSpendFlag keeps the group with a null ROI and rank 0.
	ZeroSpendFlag ZeroSpend = "flag"
	// ZeroSpendFail rejects the whole batch with ErrAggregation.
	ZeroSpendFail ZeroSpend = "fail"
)

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithPolicy sets the tie policy. Unknown values are ignored.
func WithPolicy(p Policy) Option {
	return func(a *Aggregator) {
		if p == Competition || p == Dense {
			a.policy = p
		}
	}
}

// WithZeroSpend sets the zero spend policy. Unknown values are ignored.
func WithZeroSpend(z ZeroSpend) Option {
	return func(a *Aggregator) {
		if z == ZeroSpendFlag || z == ZeroSpendFail {
			a.zeroSpend = z
		}
	}
}

// WithLogger sets the aggregator's logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// Aggregator builds the ranked ROI table.
type Aggregator struct {
	policy    Policy
	zeroSpend ZeroSpend
	log       logger.Logger
}

// NewAggregator returns an aggregator using competition ranking and flagging
// zero spend groups unless configured otherwise.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{policy: Competition, zeroSpend: ZeroSpendFlag, log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Policy returns the tie policy in use.
func (a *Aggregator) Policy() Policy { return a.policy }

type groupKey struct {
	adGroup     string
	marketplace string
}

// Aggregate sums Sales and Spend per (Ad_group, Marketplace), computes
// ROI = (Sales - Spend) / Spend and ranks groups by ROI descending within
// each marketplace. Output is ordered by Ad_group then Marketplace.
func (a *Aggregator) Aggregate(ctx context.Context, rows []model.Row) ([]model.Group, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows to aggregate", ErrAggregation)
	}

	index := make(map[groupKey]int)
	var groups []model.Group
	for _, r := range rows {
		k := groupKey{adGroup: r.AdGroup, marketplace: r.Marketplace}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, model.Group{AdGroup: r.AdGroup, Marketplace: r.Marketplace})
		}
		groups[i].Sales += r.Sales
		groups[i].Spend += r.Spend
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		g := &groups[i]
		roi := (g.Sales - g.Spend) / g.Spend
		if g.Spend == 0 || math.IsNaN(roi) || math.IsInf(roi, 0) {
			if a.zeroSpend == ZeroSpendFail {
				return nil, fmt.Errorf("%w: %w: Ad_group=%q Marketplace=%q", ErrAggregation, ErrZeroSpend, g.AdGroup, g.Marketplace)
			}
			a.log.Warn(ctx, "roi undefined, group left unranked",
				logger.String("ad_group", g.AdGroup),
				logger.String("marketplace", g.Marketplace),
				logger.Float64("spend", g.Spend))
			continue
		}
		g.ROI = &roi
	}

	a.rank(groups)

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].AdGroup != groups[j].AdGroup {
			return groups[i].AdGroup < groups[j].AdGroup
		}
		return groups[i].Marketplace < groups[j].Marketplace
	})
	return groups, nil
}

// rank assigns ranks per marketplace partition. Flagged groups keep rank 0.
func (a *Aggregator) rank(groups []model.Group) {
	partitions := make(map[string][]int)
	for i, g := range groups {
		if g.Flagged() {
			continue
		}
		partitions[g.Marketplace] = append(partitions[g.Marketplace], i)
	}
	for _, idx := range partitions {
		sort.SliceStable(idx, func(x, y int) bool {
			return *groups[idx[x]].ROI > *groups[idx[y]].ROI
		})
		rank, distinct := 0, 0
		for pos, i := range idx {
			if pos == 0 || *groups[i].ROI != *groups[idx[pos-1]].ROI {
				distinct++
				if a.policy == Dense {
					rank = distinct
				} else {
					rank = pos + 1
				}
			}
			groups[i].Rank = rank
		}
	}
}

// Top returns the rank 1 groups, one or more per marketplace.
func Top(groups []model.Group) []model.Group {
	var out []model.Group
	for _, g := range groups {
		if g.Rank == 1 {
			out = append(out, g)
		}
	}
	return out
}

// Warnings describes every flagged group.
func Warnings(groups []model.Group) []string {
	var out []string
	for _, g := range groups {
		if g.Flagged() {
			out = append(out, fmt.Sprintf("ROI undefined for Ad_group %q in Marketplace %q: spend is zero", g.AdGroup, g.Marketplace))
		}
	}
	return out
}
