package queue

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned when the queue is at capacity
	ErrQueueFull = errors.New("queue is full")

	// ErrQueueClosed is returned when operations are attempted on a closed queue
	ErrQueueClosed = errors.New("queue is closed")
)

// Queue is a thread-safe FIFO with head insertion. It never blocks: the
// narration coordinator polls it on every tick instead of waiting.
type Queue[T any] struct {
	items   []T
	maxSize int // 0 means unbounded

	mu     sync.RWMutex
	closed bool
	stats  Stats
}

// Stats tracks queue counters.
type Stats struct {
	TotalEnqueued int64
	TotalDequeued int64
	TotalCleared  int64
	CurrentSize   int
	PeakSize      int
	LastEnqueue   time.Time
	LastDequeue   time.Time
}

// New creates a queue holding at most maxSize items. A maxSize of zero
// leaves the queue unbounded.
func New[T any](maxSize int) *Queue[T] {
	return &Queue[T]{maxSize: maxSize}
}

// Push appends item to the tail.
func (q *Queue[T]) Push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.checkSpace(1); err != nil {
		return err
	}
	q.items = append(q.items, item)
	q.recordEnqueue(1)
	return nil
}

// PushFront inserts items at the head, keeping their relative order, so
// that items[0] is the next one popped.
func (q *Queue[T]) PushFront(items ...T) error {
	if len(items) == 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.checkSpace(len(items)); err != nil {
		return err
	}
	merged := make([]T, 0, len(items)+len(q.items))
	merged = append(merged, items...)
	merged = append(merged, q.items...)
	q.items = merged
	q.recordEnqueue(len(items))
	return nil
}

// Pop removes and returns the head item. ok is false when the queue is
// empty or closed.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]

	q.stats.TotalDequeued++
	q.stats.LastDequeue = time.Now()
	q.stats.CurrentSize = len(q.items)
	return item, true
}

// Len returns the current number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return len(q.items)
}

// Snapshot returns a copy of the queued items in pop order.
func (q *Queue[T]) Snapshot() []T {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}

// Clear removes all items and returns how many were dropped.
func (q *Queue[T]) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	q.items = nil
	q.stats.TotalCleared += int64(n)
	q.stats.CurrentSize = 0
	return n
}

// Stats returns current queue statistics.
func (q *Queue[T]) Stats() Stats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	stats := q.stats
	stats.CurrentSize = len(q.items)
	return stats
}

// Close drops all items and rejects further pushes.
func (q *Queue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	q.items = nil
	q.stats.CurrentSize = 0
	return nil
}

func (q *Queue[T]) checkSpace(n int) error {
	if q.closed {
		return ErrQueueClosed
	}
	if q.maxSize > 0 && len(q.items)+n > q.maxSize {
		return ErrQueueFull
	}
	return nil
}

func (q *Queue[T]) recordEnqueue(n int) {
	q.stats.TotalEnqueued += int64(n)
	q.stats.LastEnqueue = time.Now()
	q.stats.CurrentSize = len(q.items)
	if q.stats.CurrentSize > q.stats.PeakSize {
		q.stats.PeakSize = q.stats.CurrentSize
	}
}
