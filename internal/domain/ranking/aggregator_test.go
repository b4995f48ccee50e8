package ranking_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/mmo/internal/domain/model"
	"github.com/okian/mmo/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func ranks(groups []model.Group) map[string]int {
	out := make(map[string]int, len(groups))
	for _, g := range groups {
		out[g.Marketplace+"/"+g.AdGroup] = g.Rank
	}
	return out
}

func TestAggregator_Aggregate(t *testing.T) {
	Convey("Given the default aggregator", t, func() {
		ctx := context.Background()
		agg := ranking.NewAggregator()
		So(agg.Policy(), ShouldEqual, ranking.Competition)

		Convey("When two ad groups in one marketplace are scored", func() {
			groups, err := agg.Aggregate(ctx, []model.Row{
				{Marketplace: "MKT_A", AdGroup: "Grp1", Spend: 100, Sales: 150},
				{Marketplace: "MKT_A", AdGroup: "Grp2", Spend: 200, Sales: 180},
			})
			So(err, ShouldBeNil)

			Convey("Then ROI should be (sales - spend) / spend", func() {
				So(groups, ShouldHaveLength, 2)
				So(*groups[0].ROI, ShouldEqual, 0.5)
				So(*groups[1].ROI, ShouldAlmostEqual, -0.1, 1e-12)
			})

			Convey("And the higher ROI should rank first", func() {
				So(groups[0].AdGroup, ShouldEqual, "Grp1")
				So(groups[0].Rank, ShouldEqual, 1)
				So(groups[1].Rank, ShouldEqual, 2)
				top := ranking.Top(groups)
				So(top, ShouldHaveLength, 1)
				So(top[0].AdGroup, ShouldEqual, "Grp1")
			})
		})

		Convey("When rows repeat a group across marketplaces", func() {
			groups, err := agg.Aggregate(ctx, []model.Row{
				{Marketplace: "MKT_B", AdGroup: "Grp2", Spend: 10, Sales: 30},
				{Marketplace: "MKT_A", AdGroup: "Grp1", Spend: 50, Sales: 60},
				{Marketplace: "MKT_A", AdGroup: "Grp1", Spend: 50, Sales: 90},
				{Marketplace: "MKT_B", AdGroup: "Grp1", Spend: 10, Sales: 11},
			})
			So(err, ShouldBeNil)

			Convey("Then sums should be per group and output ordered by Ad_group, Marketplace", func() {
				So(groups, ShouldHaveLength, 3)
				So(groups[0].AdGroup+"/"+groups[0].Marketplace, ShouldEqual, "Grp1/MKT_A")
				So(groups[1].AdGroup+"/"+groups[1].Marketplace, ShouldEqual, "Grp1/MKT_B")
				So(groups[2].AdGroup+"/"+groups[2].Marketplace, ShouldEqual, "Grp2/MKT_B")
				So(groups[0].Spend, ShouldEqual, 100)
				So(groups[0].Sales, ShouldEqual, 150)
			})

			Convey("And each marketplace should get its own rank 1", func() {
				So(ranks(groups), ShouldResemble, map[string]int{
					"MKT_A/Grp1": 1,
					"MKT_B/Grp1": 2,
					"MKT_B/Grp2": 1,
				})
				for _, top := range ranking.Top(groups) {
					for _, g := range groups {
						if g.Marketplace == top.Marketplace && !g.Flagged() {
							So(*g.ROI, ShouldBeLessThanOrEqualTo, *top.ROI)
						}
					}
				}
			})
		})

		Convey("When aggregating the same rows twice", func() {
			rows := []model.Row{
				{Marketplace: "MKT_A", AdGroup: "Grp1", Spend: 100, Sales: 150},
				{Marketplace: "MKT_A", AdGroup: "Grp2", Spend: 200, Sales: 180},
				{Marketplace: "MKT_B", AdGroup: "Grp1", Spend: 20, Sales: 25},
			}
			first, err := agg.Aggregate(ctx, rows)
			So(err, ShouldBeNil)
			second, err := agg.Aggregate(ctx, rows)
			So(err, ShouldBeNil)

			Convey("Then the ranking should be identical", func() {
				So(second, ShouldResemble, first)
			})
		})

		Convey("When there are no rows", func() {
			_, err := agg.Aggregate(ctx, nil)

			Convey("Then an aggregation error should be returned", func() {
				So(errors.Is(err, ranking.ErrAggregation), ShouldBeTrue)
			})
		})
	})
}

func TestAggregator_Ties(t *testing.T) {
	Convey("Given three groups where two tie for best ROI", t, func() {
		ctx := context.Background()
		rows := []model.Row{
			{Marketplace: "M", AdGroup: "A", Spend: 100, Sales: 200},
			{Marketplace: "M", AdGroup: "B", Spend: 50, Sales: 100},
			{Marketplace: "M", AdGroup: "C", Spend: 100, Sales: 110},
		}

		Convey("When ranking with competition ties", func() {
			groups, err := ranking.NewAggregator(ranking.WithPolicy(ranking.Competition)).Aggregate(ctx, rows)
			So(err, ShouldBeNil)

			Convey("Then ties share rank and the next rank is skipped", func() {
				So(ranks(groups), ShouldResemble, map[string]int{"M/A": 1, "M/B": 1, "M/C": 3})
				So(ranking.Top(groups), ShouldHaveLength, 2)
			})
		})

		Convey("When ranking with dense ties", func() {
			groups, err := ranking.NewAggregator(ranking.WithPolicy(ranking.Dense)).Aggregate(ctx, rows)
			So(err, ShouldBeNil)

			Convey("Then ties share rank without gaps", func() {
				So(ranks(groups), ShouldResemble, map[string]int{"M/A": 1, "M/B": 1, "M/C": 2})
			})
		})

		Convey("When an unknown policy is given", func() {
			agg := ranking.NewAggregator(ranking.WithPolicy("average"))

			Convey("Then competition should remain in effect", func() {
				So(agg.Policy(), ShouldEqual, ranking.Competition)
			})
		})
	})
}

func TestAggregator_ZeroSpend(t *testing.T) {
	Convey("Given a group with zero spend", t, func() {
		ctx := context.Background()
		rows := []model.Row{
			{Marketplace: "MKT_A", AdGroup: "Grp1", Spend: 100, Sales: 150},
			{Marketplace: "MKT_A", AdGroup: "Grp9", Spend: 0, Sales: 40},
		}

		Convey("When the flag policy is used", func() {
			groups, err := ranking.NewAggregator(ranking.WithZeroSpend(ranking.ZeroSpendFlag)).Aggregate(ctx, rows)
			So(err, ShouldBeNil)

			Convey("Then ROI should be undefined rather than zero", func() {
				So(groups[1].AdGroup, ShouldEqual, "Grp9")
				So(groups[1].ROI, ShouldBeNil)
				So(groups[1].Rank, ShouldEqual, 0)
			})

			Convey("And the flagged group should not take part in ranking", func() {
				So(groups[0].Rank, ShouldEqual, 1)
				So(ranking.Warnings(groups), ShouldHaveLength, 1)
				So(ranking.Warnings(groups)[0], ShouldContainSubstring, "Grp9")
			})
		})

		Convey("When the fail policy is used", func() {
			_, err := ranking.NewAggregator(ranking.WithZeroSpend(ranking.ZeroSpendFail)).Aggregate(ctx, rows)

			Convey("Then an aggregation error should be returned", func() {
				So(errors.Is(err, ranking.ErrAggregation), ShouldBeTrue)
				So(errors.Is(err, ranking.ErrZeroSpend), ShouldBeTrue)
			})
		})
	})
}
