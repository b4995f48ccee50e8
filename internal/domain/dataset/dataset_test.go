package dataset_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/okian/mmo/internal/domain/dataset"
	. "github.com/smartystreets/goconvey/convey"
)

const spendCSV = `Marketplace,Ad_group,Spend,Clicks,Brand
MKT_A,Grp1,100,10,true
MKT_A,Grp2,200.5,20,false
MKT_B,Grp1,50,,true
`

func TestLoad(t *testing.T) {
	Convey("Given the CSV loader", t, func() {
		ctx := context.Background()

		Convey("When loading a well-formed upload", func() {
			tbl, err := dataset.Load(ctx, strings.NewReader(spendCSV))

			Convey("Then columns and types should be inferred", func() {
				So(err, ShouldBeNil)
				So(tbl.NumRows(), ShouldEqual, 3)
				So(tbl.Names(), ShouldResemble, []string{"Marketplace", "Ad_group", "Spend", "Clicks", "Brand"})

				mkt, ok := tbl.Column("Marketplace")
				So(ok, ShouldBeTrue)
				So(mkt.Kind, ShouldEqual, dataset.KindString)
				So(mkt.Value(2), ShouldEqual, "MKT_B")

				spend, _ := tbl.Column("Spend")
				So(spend.Kind, ShouldEqual, dataset.KindFloat)
				v, ok := spend.Float(1)
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 200.5)

				brand, _ := tbl.Column("Brand")
				So(brand.Kind, ShouldEqual, dataset.KindBool)
				b, _ := brand.Float(0)
				So(b, ShouldEqual, 1)
			})

			Convey("And empty cells should be nulls", func() {
				clicks, _ := tbl.Column("Clicks")
				So(clicks.Kind, ShouldEqual, dataset.KindFloat)
				So(clicks.IsNull(2), ShouldBeTrue)
				_, ok := clicks.Float(2)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the upload is empty", func() {
			_, err := dataset.Load(ctx, strings.NewReader("  \n"))

			Convey("Then a parse error should be returned", func() {
				So(errors.Is(err, dataset.ErrParse), ShouldBeTrue)
				So(errors.Is(err, dataset.ErrEmpty), ShouldBeTrue)
			})
		})

		Convey("When the upload only has a header", func() {
			_, err := dataset.Load(ctx, strings.NewReader("Marketplace,Ad_group,Spend\n"))

			Convey("Then a parse error should be returned", func() {
				So(errors.Is(err, dataset.ErrParse), ShouldBeTrue)
			})
		})

		Convey("When rows have a different number of fields", func() {
			_, err := dataset.Load(ctx, strings.NewReader("a,b\n1,2\n3\n"))

			Convey("Then a parse error should be returned", func() {
				So(errors.Is(err, dataset.ErrParse), ShouldBeTrue)
			})
		})

		Convey("When the header repeats a column", func() {
			_, err := dataset.Load(ctx, strings.NewReader("Spend,Spend\n1,2\n"))

			Convey("Then a duplicate column error should be returned", func() {
				So(errors.Is(err, dataset.ErrParse), ShouldBeTrue)
				So(errors.Is(err, dataset.ErrDuplicateColumn), ShouldBeTrue)
			})
		})

		Convey("When Spend holds text", func() {
			_, err := dataset.Load(ctx, strings.NewReader("Marketplace,Spend\nMKT_A,lots\n"))

			Convey("Then it should fail to parse as a number", func() {
				So(errors.Is(err, dataset.ErrParse), ShouldBeTrue)
			})
		})

		Convey("When Spend holds NaN or Inf", func() {
			for _, cell := range []string{"NaN", "Inf", "-Inf", "+Infinity"} {
				_, err := dataset.Load(ctx, strings.NewReader("Marketplace,Ad_group,Spend\nMKT_A,Grp1,100\nMKT_A,Grp1,"+cell+"\n"))
				So(errors.Is(err, dataset.ErrParse), ShouldBeTrue)
				So(errors.Is(err, dataset.ErrNonFinite), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "row 2")
			}
		})

		Convey("When a text column holds the word NaN among other values", func() {
			tbl, err := dataset.Load(ctx, strings.NewReader("Ad_group,Spend\nNaN,1\nGrp2,2\n"))

			Convey("Then it stays a string column", func() {
				So(err, ShouldBeNil)
				grp, _ := tbl.Column("Ad_group")
				So(grp.Kind, ShouldEqual, dataset.KindString)
			})
		})

		Convey("When the upload exceeds the limit", func() {
			_, err := dataset.Load(ctx, strings.NewReader(spendCSV), dataset.WithMaxBytes(10))

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, dataset.ErrTooLarge), ShouldBeTrue)
			})
		})

		Convey("When a column is forced to float", func() {
			tbl, err := dataset.Load(ctx, strings.NewReader("Code,Spend\n001,1\n002,2\n"), dataset.WithFloatColumns("Code"))

			Convey("Then it should be numeric", func() {
				So(err, ShouldBeNil)
				code, _ := tbl.Column("Code")
				So(code.Kind, ShouldEqual, dataset.KindFloat)
			})
		})
	})
}

func TestTable(t *testing.T) {
	Convey("Given a table", t, func() {
		tbl, err := dataset.NewTable(
			dataset.NewStringColumn("Marketplace", []string{"MKT_A", "MKT_B"}),
			dataset.NewFloatColumn("Spend", []float64{100, 200}),
		)
		So(err, ShouldBeNil)

		Convey("When requiring columns", func() {
			Convey("Then present columns pass", func() {
				So(tbl.Require("Marketplace", "Spend"), ShouldBeNil)
			})

			Convey("And a missing Spend column is a parse error", func() {
				err := tbl.Require("Marketplace", "Ad_group")
				So(errors.Is(err, dataset.ErrParse), ShouldBeTrue)
				So(errors.Is(err, dataset.ErrMissingColumn), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "Ad_group")
			})
		})

		Convey("When dropping and concatenating", func() {
			other, _ := dataset.NewTable(dataset.NewBoolColumn("Promo", []bool{true, false}))
			joined, err := tbl.Concat(other)
			So(err, ShouldBeNil)

			Convey("Then columns should line up by position", func() {
				So(joined.Names(), ShouldResemble, []string{"Marketplace", "Spend", "Promo"})
				So(joined.Drop("Marketplace").Names(), ShouldResemble, []string{"Spend", "Promo"})
				So(joined.Drop("Marketplace", "Spend", "Promo").NumRows(), ShouldEqual, 2)
			})

			Convey("And mismatched row counts should fail", func() {
				short, _ := dataset.NewTable(dataset.NewFloatColumn("X", []float64{1}))
				_, err := tbl.Concat(short)
				So(err, ShouldNotBeNil)
			})

			Convey("And duplicate names should fail", func() {
				_, err := tbl.Concat(tbl)
				So(errors.Is(err, dataset.ErrDuplicateColumn), ShouldBeTrue)
			})
		})

		Convey("When previewing and summarizing", func() {
			head := tbl.Head(5)
			summary := tbl.Summary()

			Convey("Then the preview is capped at the row count", func() {
				So(head, ShouldResemble, [][]string{{"MKT_A", "100"}, {"MKT_B", "200"}})
			})

			Convey("And numeric columns carry min, max and mean", func() {
				So(summary[0].Kind, ShouldEqual, "string")
				So(summary[0].Distinct, ShouldEqual, 2)
				So(summary[0].Mean, ShouldBeNil)
				So(*summary[1].Min, ShouldEqual, 100)
				So(*summary[1].Max, ShouldEqual, 200)
				So(*summary[1].Mean, ShouldEqual, 150)
			})
		})
	})
}
