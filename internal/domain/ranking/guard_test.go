package ranking_test

import (
	"errors"
	"testing"

	"github.com/okian/mmo/internal/domain/model"
	"github.com/okian/mmo/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func roiGroup(ad string, spend, roi float64) model.Group {
	return model.Group{AdGroup: ad, Marketplace: "MKT_A", Spend: spend, Sales: spend * (1 + roi), ROI: &roi, Rank: 1}
}

func TestGuard(t *testing.T) {
	Convey("Given a recommendation guard", t, func() {
		Convey("When the expression is empty", func() {
			g, err := ranking.NewGuard("  ")

			Convey("Then every group should be allowed", func() {
				So(err, ShouldBeNil)
				So(g, ShouldBeNil)
				ok, err := g.Allow(model.Group{})
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(g.String(), ShouldEqual, "")
			})
		})

		Convey("When filtering on ROI and spend", func() {
			g, err := ranking.NewGuard(`group.roi > 0.1 && group.spend >= 100.0`)
			So(err, ShouldBeNil)
			kept, err := g.Filter([]model.Group{
				roiGroup("Grp1", 100, 0.5),
				roiGroup("Grp2", 50, 0.9),
				roiGroup("Grp3", 500, 0.05),
			})

			Convey("Then only matching groups should remain", func() {
				So(err, ShouldBeNil)
				So(kept, ShouldHaveLength, 1)
				So(kept[0].AdGroup, ShouldEqual, "Grp1")
			})
		})

		Convey("When matching on names", func() {
			g, err := ranking.NewGuard(`group.marketplace == "MKT_A" && group.ad_group.startsWith("Grp")`)
			So(err, ShouldBeNil)
			ok, err := g.Allow(roiGroup("Grp1", 1, 1))

			Convey("Then strings should be exposed", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When checking for an undefined ROI", func() {
			g, err := ranking.NewGuard(`group.roi != null`)
			So(err, ShouldBeNil)
			ok, err := g.Allow(model.Group{AdGroup: "Grp9"})

			Convey("Then roi should be null", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the expression does not compile", func() {
			_, err := ranking.NewGuard(`group.roi >`)

			Convey("Then an invalid guard error should be returned", func() {
				So(errors.Is(err, ranking.ErrInvalidGuard), ShouldBeTrue)
			})
		})

		Convey("When the expression is not boolean", func() {
			_, err := ranking.NewGuard(`"roi"`)

			Convey("Then an invalid guard error should be returned", func() {
				So(errors.Is(err, ranking.ErrInvalidGuard), ShouldBeTrue)
			})
		})
	})
}
