// Package repository holds the durable-state adapters: the append-only
// judgment journal, the submission store, and the score ranking store.
// Everything is in-memory; the journal contract is the abstraction the
// aggregators are written against, so any ordered, soft-deletable record
// store can replace it.
package repository

import (
	"context"

	"github.com/wikimedia-contest/jury/internal/domain/model"
)

// Filter narrows a journal query. Zero values mean "no constraint".
type Filter struct {
	SubmissionID string
	Kind         model.Kind
	Reviewer     string
	Phase        model.Phase
	// ActiveOnly drops superseded records.
	ActiveOnly bool
	// HumanOnly drops system-originated records; SystemOnly the inverse.
	HumanOnly  bool
	SystemOnly bool
}

// Journal is the append-only review record store. Records are never
// overwritten or physically deleted; superseding marks them inactive.
type Journal interface {
	// Append inserts a record and returns its journal sequence id.
	Append(ctx context.Context, j model.Judgment) (int64, error)

	// Invalidate marks a record inactive. Irreversible; re-append to
	// restate a judgment.
	Invalidate(ctx context.Context, id int64) error

	// Query returns matching records ordered by insertion time ascending.
	Query(ctx context.Context, f Filter) ([]model.Judgment, error)

	// Counts returns (total, active) record counts.
	Counts(ctx context.Context) (int, int)
}

// Submissions provides read/write access to submission state.
type Submissions interface {
	// Create stores a new submission. Returns ErrConflict when the id
	// or code is already taken.
	Create(ctx context.Context, s *model.Submission) error

	// Get returns a copy of the submission, or ErrNotFound.
	Get(ctx context.Context, id string) (*model.Submission, error)

	// GetByCode resolves a submission by its human-facing code.
	GetByCode(ctx context.Context, code string) (*model.Submission, error)

	// List returns copies of all submissions, optionally filtered by
	// status, ordered by creation time ascending.
	List(ctx context.Context, status model.Status) ([]*model.Submission, error)

	// SetStatus moves a submission from expected "from" to "to" in one
	// compare-and-set step. Returns ErrConflict when the current status
	// is not "from"; this is the exactly-once transition guard.
	SetStatus(ctx context.Context, id string, from, to model.Status) error

	// ForceStatus overwrites the status unconditionally (operator
	// override path; validation is the caller's concern).
	ForceStatus(ctx context.Context, id string, to model.Status) error

	// SetScores persists the derived aggregate scores.
	SetScores(ctx context.Context, id string, overall float64, hasOverall bool, phase model.Phase, phaseScore float64, hasPhase bool) error

	// Count returns the number of stored submissions.
	Count(ctx context.Context) int
}

// Entry is a ranking row.
type Entry struct {
	Rank         int     `json:"rank"`
	SubmissionID string  `json:"submission_id"`
	Score        float64 `json:"score"`
}

// Ranking orders submissions by overall score for the reporting surface.
type Ranking interface {
	// Update sets the submission's ranking score, inserting or moving it.
	Update(ctx context.Context, submissionID string, score float64) error

	// Remove drops a submission from the ranking (no error if absent).
	Remove(ctx context.Context, submissionID string)

	// Rank returns the current rank and score for a submission.
	Rank(ctx context.Context, submissionID string) (Entry, error)

	// TopN returns the top-N entries ordered by score desc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of ranked submissions.
	Count(ctx context.Context) int
}
