// Package rubric defines the static weighted rubric used for both score
// display and score aggregation. The rubric is configuration, not runtime
// state: categories carry weights that must sum to 1.0, and each category
// holds the criteria panelists score from 0 to 10.
package rubric

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// Score bounds for a single criterion.
const (
	MinScore = 0
	MaxScore = 10
)

// weightSumEpsilon tolerates float drift when checking that category
// weights sum to 1.0.
const weightSumEpsilon = 1e-9

// Criterion is a single scored prompt within a category.
type Criterion struct {
	ID     string `yaml:"id" validate:"required,min=1,max=64"`
	Prompt string `yaml:"prompt" validate:"required,min=1,max=500"`
}

// Category groups criteria under a shared weight.
type Category struct {
	ID       string      `yaml:"id" validate:"required,min=1,max=64"`
	Label    string      `yaml:"label" validate:"required,min=1,max=200"`
	Weight   float64     `yaml:"weight" validate:"gt=0,lte=1"`
	Criteria []Criterion `yaml:"criteria" validate:"required,min=1,dive"`
}

// Rubric is the full weighted rubric.
type Rubric struct {
	Name       string     `yaml:"name" validate:"required,min=1,max=200"`
	Categories []Category `yaml:"categories" validate:"required,min=1,dive"`

	// byCriterion indexes criterion id -> owning category id.
	byCriterion map[string]string
}

// validate is shared across loads; validator instances are safe for
// concurrent use.
var validate = validator.New()

// New builds and validates a rubric.
func New(name string, categories []Category) (*Rubric, error) {
	r := &Rubric{Name: name, Categories: categories}
	if err := r.check(); err != nil {
		return nil, err
	}
	return r, nil
}

// check runs struct validation plus the cross-field invariants the tag
// syntax cannot express: unique ids and the weight-sum rule.
func (r *Rubric) check() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRubric, err)
	}

	sum := 0.0
	seenCategory := make(map[string]bool, len(r.Categories))
	byCriterion := make(map[string]string)
	for _, cat := range r.Categories {
		if seenCategory[cat.ID] {
			return fmt.Errorf("%w: duplicate category id %q", ErrInvalidRubric, cat.ID)
		}
		seenCategory[cat.ID] = true
		sum += cat.Weight
		for _, cr := range cat.Criteria {
			if _, dup := byCriterion[cr.ID]; dup {
				return fmt.Errorf("%w: duplicate criterion id %q", ErrInvalidRubric, cr.ID)
			}
			byCriterion[cr.ID] = cat.ID
		}
	}
	if math.Abs(sum-1.0) > weightSumEpsilon {
		return fmt.Errorf("%w: category weights sum to %g, want 1.0", ErrInvalidRubric, sum)
	}

	r.byCriterion = byCriterion
	return nil
}

// CriterionKnown reports whether id belongs to any category.
func (r *Rubric) CriterionKnown(id string) bool {
	_, ok := r.byCriterion[id]
	return ok
}

// CategoryOf returns the owning category id for a criterion id.
func (r *Rubric) CategoryOf(criterionID string) (string, bool) {
	cat, ok := r.byCriterion[criterionID]
	return cat, ok
}

// CriterionCount returns the total number of criteria across categories.
func (r *Rubric) CriterionCount() int {
	return len(r.byCriterion)
}

// Default returns the built-in sound-logo rubric used when no rubric file
// is configured.
func Default() *Rubric {
	r, err := New("sound-logo", []Category{
		{
			ID:     "identity",
			Label:  "Fit with the movement's identity",
			Weight: 0.4,
			Criteria: []Criterion{
				{ID: "identity_fit", Prompt: "Does the sound evoke the movement and its values?"},
				{ID: "recall", Prompt: "Would you recognize it after hearing it once?"},
			},
		},
		{
			ID:     "originality",
			Label:  "Originality and creativity",
			Weight: 0.3,
			Criteria: []Criterion{
				{ID: "originality", Prompt: "Is the concept distinct from existing audio marks?"},
			},
		},
		{
			ID:     "production",
			Label:  "Production quality",
			Weight: 0.3,
			Criteria: []Criterion{
				{ID: "clarity", Prompt: "Is the recording clean and balanced?"},
				{ID: "adaptability", Prompt: "Would it survive playback on small speakers?"},
			},
		},
	})
	if err != nil {
		// The built-in rubric is fixed at compile time; failing to build
		// it is a programming error.
		panic(err)
	}
	return r
}
