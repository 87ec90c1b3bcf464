package mirror

import "sync"

// queue is an unbounded FIFO between the dispatcher (producer) and the
// publisher goroutine (consumer). Its ring doubles once it is 70% full, so
// Push never blocks the feed's run loop.
type queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ring   []T
	head   int
	size   int
	closed bool

	pushed  int64
	popped  int64
	resizes int
}

func newQueue[T any](capacity int) *queue[T] {
	if capacity < 2 {
		capacity = 2
	}
	q := &queue[T]{ring: make([]T, capacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends items. Returns false once the queue is closed.
func (q *queue[T]) Push(items ...T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	for _, item := range items {
		if (q.size+1)*10 >= len(q.ring)*7 {
			q.grow()
		}
		q.ring[(q.head+q.size)%len(q.ring)] = item
		q.size++
		q.pushed++
	}

	q.cond.Signal()
	return true
}

// PopBatch blocks until at least one item is queued or the queue is closed,
// then removes up to max items (all of them when max <= 0). The second return
// value is false when the queue is closed and empty.
func (q *queue[T]) PopBatch(max int) ([]T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.size == 0 {
		return nil, false
	}

	n := q.size
	if max > 0 && max < n {
		n = max
	}

	var zero T
	out := make([]T, n)
	for i := range out {
		out[i] = q.ring[q.head]
		q.ring[q.head] = zero
		q.head = (q.head + 1) % len(q.ring)
	}
	q.size -= n
	q.popped += int64(n)

	return out, true
}

// Close wakes all waiters. Remaining items can still be popped.
func (q *queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of queued items.
func (q *queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// QueueStats describes the publisher's inbound queue.
type QueueStats struct {
	Len      int
	Capacity int
	Pushed   int64
	Popped   int64
	Resizes  int
}

func (q *queue[T]) stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Len:      q.size,
		Capacity: len(q.ring),
		Pushed:   q.pushed,
		Popped:   q.popped,
		Resizes:  q.resizes,
	}
}

// grow doubles the ring. Must be called with mu held.
func (q *queue[T]) grow() {
	next := make([]T, len(q.ring)*2)
	for i := 0; i < q.size; i++ {
		next[i] = q.ring[(q.head+i)%len(q.ring)]
	}
	q.ring = next
	q.head = 0
	q.resizes++
}
