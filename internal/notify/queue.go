package notify

import "sync"

// changeQueue is a thread-safe FIFO queue of change notifications.
//
// The queue is unbounded so a committing mutation never blocks on slow
// observers. The signal channel enables context-aware waiting in Run.
type changeQueue struct {
	mu      sync.Mutex
	changes []Change
	seq     uint64
	closed  bool
	signal  chan struct{} // buffered, size 1
}

func newChangeQueue() *changeQueue {
	return &changeQueue{
		changes: make([]Change, 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue assigns the next sequence number to c and adds it to the back of
// the queue. Returns false if the queue is closed.
func (q *changeQueue) Enqueue(c Change) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.seq++
	c.Seq = q.seq
	q.changes = append(q.changes, c)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front change without blocking.
// Returns (Change{}, false) if the queue is empty.
func (q *changeQueue) TryDequeue() (Change, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.changes) == 0 {
		return Change{}, false
	}

	c := q.changes[0]
	q.changes[0] = Change{}

	if len(q.changes) == 1 {
		q.changes = q.changes[:0]
	} else {
		q.changes = q.changes[1:]
	}

	return c, true
}

// Wait returns a channel that signals when changes may be available.
// The channel is closed by Close.
func (q *changeQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *changeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.changes)
}

// drained reports whether the queue is closed and empty.
func (q *changeQueue) drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.changes) == 0
}

// Close signals that no more changes will be enqueued and wakes waiters.
func (q *changeQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
