package rxqueue

import "testing"

func TestPushPopOrdering(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Push(2)
	q.Push(3)

	for _, want := range []int{1, 2, 3} {
		got, ok := q.Pop()
		if !ok {
			t.Fatalf("expected an item, queue was empty")
		}
		if got != want {
			t.Fatalf("got %d want %d", got, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatalf("expected the queue to be empty")
	}
}

func TestPeekDoesNotRemove(t *testing.T) {
	q := New[string]()
	q.Push("a")
	got, ok := q.Peek()
	if !ok || got != "a" {
		t.Fatalf("got (%v, %v) want (a, true)", got, ok)
	}
	if q.Len() != 1 {
		t.Fatalf("expected Peek not to remove the item, len=%d", q.Len())
	}
}

func TestDropNewestWhenFull(t *testing.T) {
	q := New[int]()
	q.SetBound(2, DropNewest)
	if !q.Push(1) || !q.Push(2) {
		t.Fatalf("expected the first two pushes to succeed")
	}
	if q.Push(3) {
		t.Fatalf("expected the third push to be dropped under DropNewest")
	}
	if q.Len() != 2 {
		t.Fatalf("expected length to stay at the bound, got %d", q.Len())
	}
	if q.Dropped() != 1 {
		t.Fatalf("expected one drop recorded, got %d", q.Dropped())
	}
	got, _ := q.Pop()
	if got != 1 {
		t.Fatalf("expected the oldest item to survive, got %d", got)
	}
}

func TestDropOldestWhenFull(t *testing.T) {
	q := New[int]()
	q.SetBound(2, DropOldest)
	q.Push(1)
	q.Push(2)
	if !q.Push(3) {
		t.Fatalf("expected DropOldest to accept the new item")
	}
	got, _ := q.Pop()
	if got != 2 {
		t.Fatalf("expected the oldest item (1) to have been evicted, head is %d", got)
	}
}

func TestClear(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Push(2)
	q.Clear()
	if q.Len() != 0 {
		t.Fatalf("expected Clear to empty the queue, len=%d", q.Len())
	}
}
