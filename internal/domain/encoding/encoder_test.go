package encoding_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/okian/mmo/internal/domain/dataset"
	"github.com/okian/mmo/internal/domain/encoding"
	. "github.com/smartystreets/goconvey/convey"
)

func uploadTable() *dataset.Table {
	t, err := dataset.NewTable(
		dataset.NewStringColumn("Marketplace", []string{"MKT_B", "MKT_A", "MKT_A"}),
		dataset.NewStringColumn("Ad_group", []string{"Grp1", "Grp2", "Grp1"}),
		dataset.NewFloatColumn("Spend", []float64{50, 200, 100}),
	)
	if err != nil {
		panic(err)
	}
	return t
}

func indicator(t *dataset.Table, name string) []float64 {
	col, ok := t.Column(name)
	So(ok, ShouldBeTrue)
	out := make([]float64, col.Len())
	for i := range out {
		out[i], _ = col.Float(i)
	}
	return out
}

func TestEncoder_Batch(t *testing.T) {
	Convey("Given an encoder without a vocabulary", t, func() {
		enc := encoding.New(nil)
		ctx := context.Background()

		So(enc.Columns(), ShouldResemble, []string{"Marketplace", "Ad_group"})
		So(enc.Trained(), ShouldBeFalse)

		Convey("When encoding an upload", func() {
			out, err := enc.Encode(ctx, uploadTable())
			So(err, ShouldBeNil)

			Convey("Then the row count should be preserved", func() {
				So(out.NumRows(), ShouldEqual, 3)
			})

			Convey("And indicators should come first, sorted per column, followed by the originals", func() {
				So(out.Names(), ShouldResemble, []string{
					"Marketplace_MKT_A", "Marketplace_MKT_B",
					"Ad_group_Grp1", "Ad_group_Grp2",
					"Marketplace", "Ad_group", "Spend",
				})
			})

			Convey("And exactly one indicator per column should be set on each row", func() {
				a := indicator(out, "Marketplace_MKT_A")
				b := indicator(out, "Marketplace_MKT_B")
				So(a, ShouldResemble, []float64{0, 1, 1})
				So(b, ShouldResemble, []float64{1, 0, 0})
				for i := range a {
					So(a[i]+b[i], ShouldEqual, 1)
				}
			})

			Convey("And Features should drop the categorical columns", func() {
				So(enc.Features(out).Names(), ShouldResemble, []string{
					"Marketplace_MKT_A", "Marketplace_MKT_B",
					"Ad_group_Grp1", "Ad_group_Grp2", "Spend",
				})
			})
		})

		Convey("When a categorical column is missing", func() {
			tbl, _ := dataset.NewTable(dataset.NewFloatColumn("Spend", []float64{1}))
			_, err := enc.Encode(ctx, tbl)

			Convey("Then an encoding error should be returned", func() {
				So(errors.Is(err, encoding.ErrEncoding), ShouldBeTrue)
				So(errors.Is(err, encoding.ErrMissingCategory), ShouldBeTrue)
			})
		})

		Convey("When a category cell is empty", func() {
			tbl, err := dataset.Load(ctx, strings.NewReader("Marketplace,Ad_group,Spend\nMKT_A,,10\n"))
			So(err, ShouldBeNil)
			_, err = enc.Encode(ctx, tbl)

			Convey("Then an encoding error should be returned", func() {
				So(errors.Is(err, encoding.ErrEncoding), ShouldBeTrue)
				So(errors.Is(err, encoding.ErrNullCategory), ShouldBeTrue)
			})
		})

		Convey("When an indicator collides with an existing column", func() {
			tbl, _ := dataset.NewTable(
				dataset.NewStringColumn("Marketplace", []string{"X"}),
				dataset.NewStringColumn("Ad_group", []string{"G"}),
				dataset.NewFloatColumn("Marketplace_X", []float64{1}),
			)
			_, err := enc.Encode(ctx, tbl)

			Convey("Then an encoding error should be returned", func() {
				So(errors.Is(err, encoding.ErrEncoding), ShouldBeTrue)
			})
		})
	})
}

func TestEncoder_Trained(t *testing.T) {
	Convey("Given an encoder with a trained vocabulary", t, func() {
		enc := encoding.New(nil, encoding.WithVocabulary(map[string][]string{
			"Marketplace": {"MKT_C", "MKT_A", "MKT_B"},
			"Ad_group":    {"Grp1", "Grp2", "Grp3"},
		}))
		ctx := context.Background()
		So(enc.Trained(), ShouldBeTrue)

		Convey("When encoding an upload that covers part of the vocabulary", func() {
			out, err := enc.Encode(ctx, uploadTable())
			So(err, ShouldBeNil)

			Convey("Then every trained value should get a column in vocabulary order", func() {
				So(out.Names()[:6], ShouldResemble, []string{
					"Marketplace_MKT_C", "Marketplace_MKT_A", "Marketplace_MKT_B",
					"Ad_group_Grp1", "Ad_group_Grp2", "Ad_group_Grp3",
				})
				So(indicator(out, "Marketplace_MKT_C"), ShouldResemble, []float64{0, 0, 0})
				So(indicator(out, "Ad_group_Grp3"), ShouldResemble, []float64{0, 0, 0})
			})
		})

		Convey("When the upload carries a value outside the vocabulary", func() {
			tbl, _ := dataset.NewTable(
				dataset.NewStringColumn("Marketplace", []string{"MKT_Z"}),
				dataset.NewStringColumn("Ad_group", []string{"Grp1"}),
			)
			_, err := enc.Encode(ctx, tbl)

			Convey("Then an unseen category error should be returned", func() {
				So(errors.Is(err, encoding.ErrEncoding), ShouldBeTrue)
				So(errors.Is(err, encoding.ErrUnseenCategory), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "MKT_Z")
			})
		})

		Convey("When the encoder is asked for a column without vocabulary", func() {
			other := encoding.New([]string{"Region"}, encoding.WithVocabulary(map[string][]string{"Marketplace": {"A"}}))
			tbl, _ := dataset.NewTable(dataset.NewStringColumn("Region", []string{"EU"}))
			_, err := other.Encode(ctx, tbl)

			Convey("Then it should fail as unseen", func() {
				So(errors.Is(err, encoding.ErrUnseenCategory), ShouldBeTrue)
			})
		})
	})
}
