package mirror

import (
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := newQueue[int](4)

	for i := 0; i < 3; i++ {
		q.Push(i)
	}

	items, ok := q.PopBatch(0)
	if !ok {
		t.Fatal("PopBatch returned closed")
	}
	if len(items) != 3 || items[0] != 0 || items[2] != 2 {
		t.Errorf("unexpected items: %v", items)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestQueue_GrowsKeepingOrder(t *testing.T) {
	q := newQueue[int](4)

	// Wrap the ring first so growth has to unroll it.
	q.Push(0, 1)
	q.PopBatch(2)

	for i := 0; i < 100; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}

	s := q.stats()
	if s.Len != 100 {
		t.Errorf("Len = %d, want 100", s.Len)
	}
	if s.Resizes < 3 {
		t.Errorf("Resizes = %d, expected at least 3", s.Resizes)
	}
	if s.Pushed != 102 || s.Popped != 2 {
		t.Errorf("Pushed/Popped = %d/%d, want 102/2", s.Pushed, s.Popped)
	}

	items, _ := q.PopBatch(0)
	for i, v := range items {
		if v != i {
			t.Fatalf("items[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestQueue_PopBatchMax(t *testing.T) {
	q := newQueue[int](8)
	q.Push(1, 2, 3, 4, 5)

	first, _ := q.PopBatch(2)
	if len(first) != 2 || first[0] != 1 || first[1] != 2 {
		t.Errorf("first batch = %v", first)
	}
	rest, _ := q.PopBatch(10)
	if len(rest) != 3 || rest[0] != 3 {
		t.Errorf("rest = %v", rest)
	}
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	q := newQueue[string](4)

	got := make(chan []string, 1)
	go func() {
		items, _ := q.PopBatch(0)
		got <- items
	}()

	select {
	case <-got:
		t.Fatal("PopBatch returned before Push")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push("EURUSD")

	select {
	case items := <-got:
		if len(items) != 1 || items[0] != "EURUSD" {
			t.Errorf("unexpected items: %v", items)
		}
	case <-time.After(time.Second):
		t.Fatal("PopBatch did not wake up")
	}
}

func TestQueue_CloseDrainsThenStops(t *testing.T) {
	q := newQueue[int](4)
	q.Push(7)
	q.Close()

	if q.Push(8) {
		t.Error("Push after Close should return false")
	}

	items, ok := q.PopBatch(0)
	if !ok || len(items) != 1 || items[0] != 7 {
		t.Errorf("expected remaining item, got %v %v", items, ok)
	}
	if _, ok := q.PopBatch(0); ok {
		t.Error("expected closed and empty")
	}
}

func TestQueue_CloseWakesWaiters(t *testing.T) {
	q := newQueue[int](4)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.PopBatch(0)
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiters not woken by Close")
	}
}
