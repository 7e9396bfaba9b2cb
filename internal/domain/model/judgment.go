package model

import "time"

// Kind distinguishes the two judgment variants in the journal.
type Kind string

const (
	KindScreening Kind = "screening"
	KindScoring   Kind = "scoring"
)

// Decision is a screener's eligibility verdict.
type Decision string

const (
	DecisionEligible   Decision = "eligible"
	DecisionIneligible Decision = "ineligible"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d == DecisionEligible || d == DecisionIneligible
}

// Judgment is a single record in the append-only review journal: one
// reviewer's (or automated check's) recorded opinion about a submission.
// A judgment is never mutated after insertion except for the Active flag,
// which is cleared when a newer judgment from the same reviewer in the
// same context supersedes it.
type Judgment struct {
	ID           int64 // journal append-order sequence, assigned on Append
	SubmissionID string
	Reviewer     string // empty for system-originated records
	Kind         Kind
	Phase        Phase // scoring only; zero for screening
	Active       bool
	CreatedAt    time.Time

	// Screening payload.
	Decision Decision // empty for system flag records
	Flags    []string
	Note     string

	// Scoring payload.
	Scores map[string]int // criterion id -> integer score 0..10
}

// System reports whether the judgment was recorded by an automated check
// rather than a human reviewer. System records never count toward the
// screening quorum.
func (j *Judgment) System() bool {
	return j.Reviewer == ""
}

// Clone returns a deep copy so the journal can hand out records without
// sharing slices or maps with callers.
func (j *Judgment) Clone() Judgment {
	cp := *j
	if j.Flags != nil {
		cp.Flags = append([]string(nil), j.Flags...)
	}
	if j.Scores != nil {
		cp.Scores = make(map[string]int, len(j.Scores))
		for k, v := range j.Scores {
			cp.Scores[k] = v
		}
	}
	return cp
}
