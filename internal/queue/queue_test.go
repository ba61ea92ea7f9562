package queue

import (
	"fmt"
	"sync"
	"testing"
)

type item struct {
	ID   string
	Text string
}

func TestQueue_BasicOperations(t *testing.T) {
	q := New[item](10)
	defer q.Close()

	if size := q.Len(); size != 0 {
		t.Errorf("Expected empty queue, got size %d", size)
	}

	if _, ok := q.Pop(); ok {
		t.Error("Expected Pop on empty queue to fail")
	}

	it := item{ID: "j1", Text: "Test message"}
	if err := q.Push(it); err != nil {
		t.Errorf("Push failed: %v", err)
	}

	if size := q.Len(); size != 1 {
		t.Errorf("Expected size 1, got %d", size)
	}

	if snap := q.Snapshot(); len(snap) != 1 || snap[0].ID != it.ID {
		t.Errorf("Snapshot = %v", snap)
	}

	popped, ok := q.Pop()
	if !ok || popped.ID != it.ID {
		t.Errorf("Popped wrong item: %v", popped)
	}

	if size := q.Len(); size != 0 {
		t.Errorf("Expected empty queue after pop, got size %d", size)
	}
}

func TestQueue_FIFOWithHeadInsertion(t *testing.T) {
	q := New[string](0)
	defer q.Close()

	for _, s := range []string{"a", "b", "c"} {
		if err := q.Push(s); err != nil {
			t.Fatalf("Push(%s) failed: %v", s, err)
		}
	}

	first, _ := q.Pop()
	if first != "a" {
		t.Fatalf("Expected a, got %s", first)
	}

	// Derived items run before anything queued earlier, in their own order.
	if err := q.PushFront("a1", "a2"); err != nil {
		t.Fatalf("PushFront failed: %v", err)
	}

	want := []string{"a1", "a2", "b", "c"}
	if got := q.Snapshot(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("Snapshot = %v, want %v", got, want)
	}
	for _, w := range want {
		got, ok := q.Pop()
		if !ok || got != w {
			t.Errorf("Pop() = %q, %v; want %q", got, ok, w)
		}
	}
}

func TestQueue_PushFrontEmpty(t *testing.T) {
	q := New[string](1)
	if err := q.PushFront(); err != nil {
		t.Errorf("PushFront with no items should be a no-op, got %v", err)
	}
	if q.Len() != 0 {
		t.Errorf("Expected empty queue, got %d", q.Len())
	}
}

func TestQueue_Capacity(t *testing.T) {
	q := New[int](3)
	defer q.Close()

	for i := 0; i < 3; i++ {
		if err := q.Push(i); err != nil {
			t.Fatalf("Push(%d) failed: %v", i, err)
		}
	}
	if err := q.Push(3); err != ErrQueueFull {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
	if err := q.PushFront(9); err != ErrQueueFull {
		t.Errorf("Expected ErrQueueFull from PushFront, got %v", err)
	}
}

func TestQueue_Clear(t *testing.T) {
	q := New[int](0)
	for i := 0; i < 5; i++ {
		_ = q.Push(i)
	}

	if n := q.Clear(); n != 5 {
		t.Errorf("Clear() = %d, want 5", n)
	}
	if q.Len() != 0 {
		t.Errorf("Expected empty queue after clear, got %d", q.Len())
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop after Clear should fail")
	}

	stats := q.Stats()
	if stats.TotalCleared != 5 {
		t.Errorf("TotalCleared = %d, want 5", stats.TotalCleared)
	}
}

func TestQueue_Stats(t *testing.T) {
	q := New[int](0)
	for i := 0; i < 4; i++ {
		_ = q.Push(i)
	}
	q.Pop()
	q.Pop()

	stats := q.Stats()
	if stats.TotalEnqueued != 4 {
		t.Errorf("TotalEnqueued = %d, want 4", stats.TotalEnqueued)
	}
	if stats.TotalDequeued != 2 {
		t.Errorf("TotalDequeued = %d, want 2", stats.TotalDequeued)
	}
	if stats.CurrentSize != 2 {
		t.Errorf("CurrentSize = %d, want 2", stats.CurrentSize)
	}
	if stats.PeakSize != 4 {
		t.Errorf("PeakSize = %d, want 4", stats.PeakSize)
	}
	if stats.LastEnqueue.IsZero() || stats.LastDequeue.IsZero() {
		t.Error("Expected enqueue and dequeue timestamps to be set")
	}
}

func TestQueue_CloseHandling(t *testing.T) {
	q := New[int](0)
	_ = q.Push(1)

	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
	if err := q.Push(2); err != ErrQueueClosed {
		t.Errorf("Expected ErrQueueClosed, got %v", err)
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop on closed queue should fail")
	}
}

func TestQueue_ConcurrentAccess(t *testing.T) {
	q := New[int](0)
	defer q.Close()

	const producers = 8
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if i%10 == 0 {
					_ = q.PushFront(p*perProducer + i)
				} else {
					_ = q.Push(p*perProducer + i)
				}
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for {
		v, ok := q.Pop()
		if !ok {
			break
		}
		if seen[v] {
			t.Fatalf("Item %d popped twice", v)
		}
		seen[v] = true
	}
	if len(seen) != producers*perProducer {
		t.Errorf("Popped %d items, want %d", len(seen), producers*perProducer)
	}
}

func BenchmarkQueue_PushPop(b *testing.B) {
	q := New[int](0)
	defer q.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = q.Push(i)
		q.Pop()
	}
}
