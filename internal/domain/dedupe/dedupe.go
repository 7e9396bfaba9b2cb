// Package dedupe tracks intake tokens so resubmitted entry forms are
// acknowledged as duplicates instead of creating a second submission.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen intake tokens to ensure at-most-once intake.
type Deduper interface {
	// SeenAndRecord atomically checks if token was seen and records it
	// if not. Returns true if token was already seen, false if it was
	// newly recorded.
	SeenAndRecord(ctx context.Context, token string) bool

	// Unrecord removes a token from the seen list, allowing a retry.
	// Used when a token was marked as seen but the submission could not
	// be created (e.g. queue backpressure on the validation enqueue).
	Unrecord(ctx context.Context, token string)

	Size() int64
}

// node is a single entry in the eviction list.
type node struct {
	token string
	next  *node
}

func (n *node) reset() {
	n.token = ""
	n.next = nil
}

// inMemoryDeduper implements Deduper with a map plus a linked list for
// LIFO eviction in bounded mode. Unbounded mode (maxSize <= 0) keeps a
// plain map with no eviction.
type inMemoryDeduper struct {
	mu       sync.RWMutex
	seen     map[string]*node
	head     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryDeduper creates a new in-memory deduper with options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000, // default max size
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]*node)

	if d.maxSize > 0 {
		d.nodePool = sync.Pool{
			New: func() interface{} {
				return &node{}
			},
		}
	}

	return d
}

// SeenAndRecord atomically checks if token was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, token string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[token]; exists {
		return true
	}

	if d.maxSize > 0 {
		if len(d.seen) >= d.maxSize {
			d.evictOldest()
		}

		n := d.nodePool.Get().(*node)
		n.token = token
		n.next = d.head

		d.head = n
		d.seen[token] = n
	} else {
		d.seen[token] = nil
	}
	d.size.Add(1)
	return false
}

// Unrecord removes a token from the seen list, allowing a retry.
func (d *inMemoryDeduper) Unrecord(ctx context.Context, token string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, exists := d.seen[token]
	if !exists {
		return
	}
	delete(d.seen, token)
	d.size.Add(-1)

	if d.maxSize <= 0 {
		return
	}

	// Unlink from the eviction list.
	if d.head == n {
		d.head = n.next
	} else {
		current := d.head
		for current != nil && current.next != n {
			current = current.next
		}
		if current != nil {
			current.next = n.next
		}
	}
	n.reset()
	d.nodePool.Put(n)
}

// evictOldest removes the earliest-recorded token (list tail).
// Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	if d.head == nil {
		return
	}

	if d.head.next == nil {
		delete(d.seen, d.head.token)
		d.head.reset()
		d.nodePool.Put(d.head)
		d.head = nil
		d.size.Add(-1)
		return
	}

	var prev *node
	current := d.head
	for current.next != nil {
		prev = current
		current = current.next
	}

	prev.next = nil
	delete(d.seen, current.token)
	current.reset()
	d.nodePool.Put(current)
	d.size.Add(-1)
}

// Size returns the current number of tracked tokens.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
