package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wikimedia-contest/jury/internal/domain/model"
	"github.com/wikimedia-contest/jury/pkg/metrics"
)

// MemoryJournal implements Journal with an in-memory append-only log.
// Records keep their append order; a per-submission index keeps the
// common "all records for one submission" query cheap.
type MemoryJournal struct {
	mu           sync.RWMutex
	records      []model.Judgment
	byID         map[int64]int   // journal id -> slice index
	bySubmission map[string][]int
	nextID       int64
	activeCount  int
}

// NewMemoryJournal creates an empty journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		byID:         make(map[int64]int),
		bySubmission: make(map[string][]int),
		nextID:       1,
	}
}

// Append inserts a record and returns its journal sequence id.
func (j *MemoryJournal) Append(ctx context.Context, rec model.Judgment) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordJournalAppendLatency(float64(time.Since(start).Milliseconds()))
	}()

	if rec.SubmissionID == "" {
		return 0, fmt.Errorf("journal append: %w: missing submission id", ErrConflict)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	rec = rec.Clone()
	rec.ID = j.nextID
	rec.Active = true
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	j.nextID++

	idx := len(j.records)
	j.records = append(j.records, rec)
	j.byID[rec.ID] = idx
	j.bySubmission[rec.SubmissionID] = append(j.bySubmission[rec.SubmissionID], idx)
	j.activeCount++

	metrics.UpdateJournalRecordsTotal(len(j.records))
	metrics.UpdateJournalActiveRecords(j.activeCount)
	return rec.ID, nil
}

// Invalidate marks a record inactive. Already-inactive records are a
// no-op; unknown ids are ErrNotFound.
func (j *MemoryJournal) Invalidate(ctx context.Context, id int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	idx, ok := j.byID[id]
	if !ok {
		return fmt.Errorf("journal invalidate %d: %w", id, ErrNotFound)
	}
	if j.records[idx].Active {
		j.records[idx].Active = false
		j.activeCount--
		metrics.UpdateJournalActiveRecords(j.activeCount)
	}
	return nil
}

// Query returns matching records ordered by insertion time ascending.
func (j *MemoryJournal) Query(ctx context.Context, f Filter) ([]model.Judgment, error) {
	start := time.Now()
	defer func() {
		metrics.RecordJournalQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	j.mu.RLock()
	defer j.mu.RUnlock()

	// Walk the per-submission index when we can; otherwise the full log.
	var indexes []int
	if f.SubmissionID != "" {
		indexes = j.bySubmission[f.SubmissionID]
	} else {
		indexes = make([]int, len(j.records))
		for i := range j.records {
			indexes[i] = i
		}
	}

	out := make([]model.Judgment, 0, len(indexes))
	for _, idx := range indexes {
		rec := &j.records[idx]
		if !matches(rec, f) {
			continue
		}
		out = append(out, rec.Clone())
	}
	return out, nil
}

func matches(rec *model.Judgment, f Filter) bool {
	if f.SubmissionID != "" && rec.SubmissionID != f.SubmissionID {
		return false
	}
	if f.Kind != "" && rec.Kind != f.Kind {
		return false
	}
	if f.Reviewer != "" && rec.Reviewer != f.Reviewer {
		return false
	}
	if f.Phase != 0 && rec.Phase != f.Phase {
		return false
	}
	if f.ActiveOnly && !rec.Active {
		return false
	}
	if f.HumanOnly && rec.System() {
		return false
	}
	if f.SystemOnly && !rec.System() {
		return false
	}
	return true
}

// Counts returns (total, active) record counts.
func (j *MemoryJournal) Counts(ctx context.Context) (int, int) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.records), j.activeCount
}
