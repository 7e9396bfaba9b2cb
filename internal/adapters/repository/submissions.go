package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wikimedia-contest/jury/internal/domain/model"
	"github.com/wikimedia-contest/jury/pkg/metrics"
)

// SubmissionStore implements Submissions in memory, indexed by id and
// by the human-facing submission code.
type SubmissionStore struct {
	mu     sync.RWMutex
	byID   map[string]*model.Submission
	byCode map[string]string // code -> id
}

// NewSubmissionStore creates an empty submission store.
func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{
		byID:   make(map[string]*model.Submission),
		byCode: make(map[string]string),
	}
}

// Create stores a new submission. Returns ErrConflict when the id or
// code is already taken.
func (s *SubmissionStore) Create(ctx context.Context, sub *model.Submission) error {
	if sub == nil || sub.ID == "" {
		return fmt.Errorf("submission create: %w: missing id", ErrConflict)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[sub.ID]; ok {
		return fmt.Errorf("submission create %s: %w: id taken", sub.ID, ErrConflict)
	}
	if sub.Code != "" {
		if _, ok := s.byCode[sub.Code]; ok {
			return fmt.Errorf("submission create %s: %w: code %s taken", sub.ID, ErrConflict, sub.Code)
		}
	}

	cp := sub.Clone()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	if cp.Status == "" {
		cp.Status = model.StatusScreening
	}

	s.byID[cp.ID] = cp
	if cp.Code != "" {
		s.byCode[cp.Code] = cp.ID
	}

	metrics.UpdateTotalSubmissions(len(s.byID))
	return nil
}

// Get returns a copy of the submission, or ErrNotFound.
func (s *SubmissionStore) Get(ctx context.Context, id string) (*model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	return sub.Clone(), nil
}

// GetByCode resolves a submission by its human-facing code.
func (s *SubmissionStore) GetByCode(ctx context.Context, code string) (*model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCode[code]
	if !ok {
		return nil, fmt.Errorf("submission code %s: %w", code, ErrNotFound)
	}
	return s.byID[id].Clone(), nil
}

// List returns copies of all submissions, optionally filtered by
// status, ordered by creation time ascending.
func (s *SubmissionStore) List(ctx context.Context, status model.Status) ([]*model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Submission, 0, len(s.byID))
	for _, sub := range s.byID {
		if status != "" && sub.Status != status {
			continue
		}
		out = append(out, sub.Clone())
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	return out, nil
}

// SetStatus moves a submission from expected "from" to "to" in one
// compare-and-set step. Returns ErrConflict when the current status is
// not "from".
func (s *SubmissionStore) SetStatus(ctx context.Context, id string, from, to model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if sub.Status != from {
		return fmt.Errorf("submission %s: status is %s, expected %s: %w", id, sub.Status, from, ErrConflict)
	}

	sub.Status = to
	metrics.RecordStatusTransition(string(to))
	return nil
}

// ForceStatus overwrites the status unconditionally.
func (s *SubmissionStore) ForceStatus(ctx context.Context, id string, to model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}

	sub.Status = to
	metrics.RecordStatusTransition(string(to))
	return nil
}

// SetScores persists the derived aggregate scores.
func (s *SubmissionStore) SetScores(ctx context.Context, id string, overall float64, hasOverall bool, phase model.Phase, phaseScore float64, hasPhase bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}

	sub.ScoreOverall = overall
	sub.HasOverall = hasOverall
	if hasPhase && phase.Valid() {
		if sub.ScoreByPhase == nil {
			sub.ScoreByPhase = make(map[model.Phase]float64, 3)
		}
		sub.ScoreByPhase[phase] = phaseScore
	}
	return nil
}

// Count returns the number of stored submissions.
func (s *SubmissionStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
