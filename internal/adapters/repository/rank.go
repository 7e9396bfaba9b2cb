package repository

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/wikimedia-contest/jury/pkg/metrics"
)

// Treap-based, in-memory Ranking implementation.
//
// Ordering: score DESC, then submission id ASC (deterministic). The BST
// comparator treats "less" as "ranks earlier", so an in-order traversal
// produces the ranking from best to worst. Ranks use competition
// ranking: ties share a rank, the next distinct score skips ahead.

// scoreScale controls fixed-point scaling from float64. Derived scores
// live in [0,10], so twelve decimal places are far inside int64 range.
const scoreScale = 1_000_000_000_000

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	if math.IsNaN(x) {
		return 0
	}
	scaled := x * scoreScale
	if scaled > float64(math.MaxInt64) {
		return scoreFP(math.MaxInt64)
	}
	if scaled < float64(math.MinInt64) {
		return scoreFP(math.MinInt64)
	}
	return scoreFP(math.Round(scaled))
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

type node struct {
	id    string
	score scoreFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aScore, aID) ranks earlier than (bScore, bID).
func less(aScore scoreFP, aID string, bScore scoreFP, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// scoreToPriority keeps higher scores near the root, which makes the
// frequent top-of-board reads cheap.
func scoreToPriority(score scoreFP) uint64 {
	const offset = uint64(1) << 63
	return uint64(score) + offset
}

func insert(n *node, id string, score scoreFP) *node {
	if n == nil {
		return &node{id: id, score: score, prio: scoreToPriority(score), size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score scoreFP) *node {
	if n == nil {
		return nil
	}
	if score == n.score && id == n.id {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	} else if less(score, id, n.score, n.id) {
		n.left = deleteNode(n.left, id, score)
	} else {
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// countBefore returns how many nodes rank strictly earlier than the
// given (score, id) key, using subtree sizes for O(log n) time.
func countBefore(n *node, score scoreFP, id string) int {
	count := 0
	for n != nil {
		if less(n.score, n.id, score, id) {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, Entry{SubmissionID: n.id, Score: toFloat(n.score)})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// RankStore implements Ranking over a treap keyed by (score, id).
type RankStore struct {
	mu   sync.RWMutex
	root *node
	byID map[string]scoreFP
}

// NewRankStore constructs an empty ranking store.
func NewRankStore() *RankStore {
	return &RankStore{byID: make(map[string]scoreFP)}
}

// Update sets the submission's ranking score, inserting or moving it.
// Unlike a best-score board, derived scores move in both directions
// whenever a judgment lands or is superseded.
func (s *RankStore) Update(ctx context.Context, submissionID string, score float64) error {
	if submissionID == "" {
		return fmt.Errorf("ranking update: %w", ErrNotFound)
	}

	ns := toFixedPoint(score)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byID[submissionID]; ok {
		if old == ns {
			return nil
		}
		s.root = deleteNode(s.root, submissionID, old)
	}
	s.byID[submissionID] = ns
	s.root = insert(s.root, submissionID, ns)
	return nil
}

// Remove drops a submission from the ranking. Absent ids are a no-op.
func (s *RankStore) Remove(ctx context.Context, submissionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byID[submissionID]
	if !ok {
		return
	}
	s.root = deleteNode(s.root, submissionID, old)
	delete(s.byID, submissionID)
}

// Rank returns the current rank and score for a submission in O(log n).
// Competition ranking: the rank is one plus the number of submissions
// with a strictly higher score.
func (s *RankStore) Rank(ctx context.Context, submissionID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordJournalQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.byID[submissionID]
	if !ok {
		metrics.RecordErrorByComponent("ranking", "not_found")
		return Entry{}, fmt.Errorf("ranking %s: %w", submissionID, ErrNotFound)
	}

	// The empty id sorts before every real id, so counting nodes before
	// (score, "") counts exactly the strictly higher scores.
	higher := countBefore(s.root, score, "")
	return Entry{Rank: higher + 1, SubmissionID: submissionID, Score: toFloat(score)}, nil
}

// TopN returns the top-N entries ordered by score desc, id asc.
func (s *RankStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("ranking", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, n)
	collectTopN(s.root, n, &out)

	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out, nil
}

// Count returns the number of ranked submissions.
func (s *RankStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
