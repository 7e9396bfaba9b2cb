// Package scoring computes weighted rubric scores from panelist
// judgments. All functions are pure over journal records plus the rubric
// configuration, so the aggregator is testable against any record source.
package scoring

import (
	"fmt"

	"github.com/wikimedia-contest/jury/internal/domain/model"
	"github.com/wikimedia-contest/jury/internal/domain/rubric"
)

// Filter narrows which active scoring records contribute to an aggregate.
// Zero values mean "no constraint".
type Filter struct {
	Phase    model.Phase
	Reviewer string
}

// Result is a computed weighted score.
//
// OK is false when no records matched the filter OR when the computed
// overall is exactly 0. The zero-score case deliberately reads as "no
// score": the upstream system treated 0.0 as absence of data, and
// callers that need to tell the two apart should consult HasJudgments.
type Result struct {
	Score        float64
	OK           bool
	Judgments    int // matching active judgments
	HasJudgments bool
}

// Weighted computes the weighted rubric score over the active scoring
// records that match the filter.
//
// Per category the average is flat over every (judgment x criterion)
// data point in that category, not an average of per-judgment averages.
// The overall score is the weight-sum of category averages. Categories
// with no data points contribute nothing (their weight is skipped), so a
// partial scorecard still yields a score for the categories it covers.
func Weighted(records []model.Judgment, r *rubric.Rubric, f Filter) Result {
	type acc struct {
		sum    int
		points int
	}
	byCategory := map[string]*acc{}

	matched := 0
	for i := range records {
		rec := &records[i]
		if rec.Kind != model.KindScoring || !rec.Active {
			continue
		}
		if f.Phase != 0 && rec.Phase != f.Phase {
			continue
		}
		if f.Reviewer != "" && rec.Reviewer != f.Reviewer {
			continue
		}
		matched++
		for criterion, score := range rec.Scores {
			cat, ok := r.CategoryOf(criterion)
			if !ok {
				// Unknown criteria are rejected at record time; a stale
				// rubric change should not poison the aggregate.
				continue
			}
			a := byCategory[cat]
			if a == nil {
				a = &acc{}
				byCategory[cat] = a
			}
			a.sum += score
			a.points++
		}
	}

	if matched == 0 {
		return Result{}
	}

	overall := 0.0
	for _, cat := range r.Categories {
		a := byCategory[cat.ID]
		if a == nil || a.points == 0 {
			continue
		}
		overall += cat.Weight * (float64(a.sum) / float64(a.points))
	}

	return Result{
		Score:        overall,
		OK:           overall != 0,
		Judgments:    matched,
		HasJudgments: true,
	}
}

// ValidateScores checks a scorecard against the rubric before insertion:
// non-empty, every criterion known, every value within [MinScore, MaxScore].
// The scorecard may be partial; completeness is a panel-process concern,
// not a data invariant.
func ValidateScores(r *rubric.Rubric, scores map[string]int) error {
	if len(scores) == 0 {
		return fmt.Errorf("%w: empty scorecard", ErrEmptyScorecard)
	}
	for criterion, score := range scores {
		if !r.CriterionKnown(criterion) {
			return fmt.Errorf("%w: %q", ErrUnknownCriterion, criterion)
		}
		if score < rubric.MinScore || score > rubric.MaxScore {
			return fmt.Errorf("%w: %s=%d, want %d..%d",
				ErrScoreOutOfRange, criterion, score, rubric.MinScore, rubric.MaxScore)
		}
	}
	return nil
}
