package rubric_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wikimedia-contest/jury/internal/domain/rubric"
)

func TestRubricValidation(t *testing.T) {
	Convey("Given rubric definitions", t, func() {
		Convey("When weights sum to 1.0", func() {
			r, err := rubric.New("test", []rubric.Category{
				{ID: "a", Label: "A", Weight: 0.5, Criteria: []rubric.Criterion{
					{ID: "a1", Prompt: "First"},
					{ID: "a2", Prompt: "Second"},
				}},
				{ID: "b", Label: "B", Weight: 0.5, Criteria: []rubric.Criterion{
					{ID: "b1", Prompt: "Third"},
				}},
			})

			Convey("Then the rubric is accepted", func() {
				So(err, ShouldBeNil)
				So(r, ShouldNotBeNil)
				So(r.CriterionCount(), ShouldEqual, 3)
			})

			Convey("And criterion lookups work", func() {
				So(r.CriterionKnown("a2"), ShouldBeTrue)
				So(r.CriterionKnown("zz"), ShouldBeFalse)

				cat, ok := r.CategoryOf("b1")
				So(ok, ShouldBeTrue)
				So(cat, ShouldEqual, "b")
			})
		})

		Convey("When weights do not sum to 1.0", func() {
			_, err := rubric.New("test", []rubric.Category{
				{ID: "a", Label: "A", Weight: 0.5, Criteria: []rubric.Criterion{{ID: "a1", Prompt: "p"}}},
				{ID: "b", Label: "B", Weight: 0.6, Criteria: []rubric.Criterion{{ID: "b1", Prompt: "p"}}},
			})

			Convey("Then the rubric is rejected", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "weights")
			})
		})

		Convey("When a criterion id repeats across categories", func() {
			_, err := rubric.New("test", []rubric.Category{
				{ID: "a", Label: "A", Weight: 0.5, Criteria: []rubric.Criterion{{ID: "dup", Prompt: "p"}}},
				{ID: "b", Label: "B", Weight: 0.5, Criteria: []rubric.Criterion{{ID: "dup", Prompt: "p"}}},
			})

			Convey("Then the rubric is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When a category has no criteria", func() {
			_, err := rubric.New("test", []rubric.Category{
				{ID: "a", Label: "A", Weight: 1.0, Criteria: nil},
			})

			Convey("Then the rubric is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestDefaultRubric(t *testing.T) {
	Convey("Given the built-in rubric", t, func() {
		r := rubric.Default()

		Convey("Then it validates and exposes the sound-logo criteria", func() {
			So(r, ShouldNotBeNil)
			So(len(r.Categories), ShouldEqual, 3)
			So(r.CriterionKnown("identity_fit"), ShouldBeTrue)
			So(r.CriterionKnown("clarity"), ShouldBeTrue)
		})
	})
}

func TestParseYAML(t *testing.T) {
	Convey("Given a YAML rubric definition", t, func() {
		doc := []byte(`
name: custom
categories:
  - id: sound
    label: Sound design
    weight: 0.7
    criteria:
      - id: texture
        prompt: Is the texture interesting?
  - id: brand
    label: Brand fit
    weight: 0.3
    criteria:
      - id: fit
        prompt: Does it fit the brand?
`)

		Convey("When parsing", func() {
			r, err := rubric.Parse(doc)

			Convey("Then the rubric loads", func() {
				So(err, ShouldBeNil)
				So(r.Name, ShouldEqual, "custom")
				So(r.CriterionKnown("texture"), ShouldBeTrue)
			})
		})

		Convey("When parsing malformed YAML", func() {
			_, err := rubric.Parse([]byte("categories: ["))

			Convey("Then loading fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
