package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
)

func TestRankStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	s := NewRankStore()

	if count := s.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	if err := s.Update(ctx, "sub-1", 8.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count := s.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	entry, err := s.Rank(ctx, "sub-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 || entry.Score != 8.5 {
		t.Errorf("expected rank 1 score 8.5, got %+v", entry)
	}

	if _, err := s.Rank(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRankStore_ScoresMoveBothDirections(t *testing.T) {
	ctx := context.Background()
	s := NewRankStore()

	for id, score := range map[string]float64{"a": 9, "b": 7, "c": 5} {
		if err := s.Update(ctx, id, score); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// A superseding judgment can pull a score down.
	if err := s.Update(ctx, "a", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry, err := s.Rank(ctx, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 3 || entry.Score != 4 {
		t.Errorf("expected rank 3 score 4, got %+v", entry)
	}
	if entry, _ := s.Rank(ctx, "b"); entry.Rank != 1 {
		t.Errorf("expected b at rank 1, got %+v", entry)
	}
}

func TestRankStore_TopNOrderingAndTies(t *testing.T) {
	ctx := context.Background()
	s := NewRankStore()

	scores := map[string]float64{"d": 6, "b": 8, "c": 8, "a": 9, "e": 3}
	for id, score := range scores {
		if err := s.Update(ctx, id, score); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	entries, err := s.TopN(ctx, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantIDs := []string{"a", "b", "c", "d"}
	wantRanks := []int{1, 2, 2, 4}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	for i := range entries {
		if entries[i].SubmissionID != wantIDs[i] || entries[i].Rank != wantRanks[i] {
			t.Errorf("entry %d: expected %s rank %d, got %+v", i, wantIDs[i], wantRanks[i], entries[i])
		}
	}

	// Tied scores share the competition rank on point queries too.
	if entry, _ := s.Rank(ctx, "c"); entry.Rank != 2 {
		t.Errorf("expected c at rank 2, got %+v", entry)
	}
	if entry, _ := s.Rank(ctx, "d"); entry.Rank != 4 {
		t.Errorf("expected d at rank 4, got %+v", entry)
	}

	if _, err := s.TopN(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestRankStore_Remove(t *testing.T) {
	ctx := context.Background()
	s := NewRankStore()

	_ = s.Update(ctx, "a", 9)
	_ = s.Update(ctx, "b", 7)

	s.Remove(ctx, "a")
	s.Remove(ctx, "a") // absent id is a no-op

	if count := s.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
	if entry, err := s.Rank(ctx, "b"); err != nil || entry.Rank != 1 {
		t.Errorf("expected b at rank 1, got %+v err %v", entry, err)
	}
}

func TestRankStore_MatchesSortedReference(t *testing.T) {
	ctx := context.Background()
	s := NewRankStore()
	rng := rand.New(rand.NewSource(42))

	const n = 500
	want := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("sub-%03d", i)
		score := float64(rng.Intn(100)) / 10 // plenty of ties
		if err := s.Update(ctx, id, score); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want = append(want, Entry{SubmissionID: id, Score: score})
	}

	sort.Slice(want, func(i, k int) bool {
		if want[i].Score != want[k].Score {
			return want[i].Score > want[k].Score
		}
		return want[i].SubmissionID < want[k].SubmissionID
	})
	for i := range want {
		if i > 0 && want[i].Score == want[i-1].Score {
			want[i].Rank = want[i-1].Rank
		} else {
			want[i].Rank = i + 1
		}
	}

	got, err := s.TopN(ctx, n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != n {
		t.Fatalf("expected %d entries, got %d", n, len(got))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("entry %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}

	// Point queries agree with the full board.
	for _, w := range want[:50] {
		entry, err := s.Rank(ctx, w.SubmissionID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if entry != w {
			t.Errorf("rank query for %s: expected %+v, got %+v", w.SubmissionID, w, entry)
		}
	}
}

func TestRankStore_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewRankStore()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("sub-%d", i%25)
				_ = s.Update(ctx, id, float64((w*i)%100)/10)
				_, _ = s.TopN(ctx, 10)
			}
		}(w)
	}
	wg.Wait()

	if count := s.Count(ctx); count != 25 {
		t.Errorf("expected 25 ranked submissions, got %d", count)
	}
}
