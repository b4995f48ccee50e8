package model_test

import (
	"encoding/json"
	"testing"
	"time"

	model "github.com/okian/mmo/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGroup(t *testing.T) {
	Convey("Given aggregate groups", t, func() {
		roi := 0.5
		ranked := model.Group{AdGroup: "Grp1", Marketplace: "MKT_A", Sales: 150, Spend: 100, ROI: &roi, Rank: 1}
		flagged := model.Group{AdGroup: "Grp3", Marketplace: "MKT_A", Sales: 20}

		Convey("When encoding to JSON", func() {
			a, err := json.Marshal(ranked)
			So(err, ShouldBeNil)
			b, err := json.Marshal(flagged)
			So(err, ShouldBeNil)

			Convey("Then the output columns should match the table headers", func() {
				So(string(a), ShouldEqual,
					`{"Ad_group":"Grp1","Marketplace":"MKT_A","Sales":150,"Spend":100,"ROI":0.5,"rank":1}`)
			})

			Convey("And an undefined ROI should be null", func() {
				So(string(b), ShouldContainSubstring, `"ROI":null`)
				So(flagged.Flagged(), ShouldBeTrue)
				So(ranked.Flagged(), ShouldBeFalse)
			})
		})
	})
}

func TestRun_Summary(t *testing.T) {
	Convey("Given a completed run", t, func() {
		now := time.Now()
		run := model.Run{
			ID:           "run-1",
			User:         "analyst",
			FileName:     "spend.csv",
			ModelVersion: "mmo@1",
			Rows:         4,
			Groups:       []model.Group{{}, {}, {}},
			Top:          []model.Group{{}},
			CreatedAt:    now,
		}

		Convey("When summarizing", func() {
			s := run.Summary()

			Convey("Then counts should replace the group slices", func() {
				So(s.ID, ShouldEqual, "run-1")
				So(s.Groups, ShouldEqual, 3)
				So(s.Top, ShouldEqual, 1)
				So(s.Rows, ShouldEqual, 4)
				So(s.CreatedAt, ShouldEqual, now)
			})
		})
	})
}
