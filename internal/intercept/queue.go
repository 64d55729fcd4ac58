package intercept

import (
	"context"
	"sync"
)

type itemKind uint8

const (
	itemEvent itemKind = iota
	itemComplete
	itemError
)

type item[E any] struct {
	kind  itemKind
	event E
	err   error
}

// queue is a per-observer FIFO. Pushes never block; a bounded queue drops
// events according to its policy, but never a terminal signal.
type queue[E any] struct {
	mu      sync.Mutex
	items   []item[E]
	head    int
	closed  bool
	limit   int
	policy  OverflowPolicy
	dropped uint64
	notify  chan struct{}
}

func newQueue[E any](limit int, policy OverflowPolicy) *queue[E] {
	return &queue[E]{
		limit:  limit,
		policy: policy,
		notify: make(chan struct{}, 1),
	}
}

// push appends it and reports whether it was accepted.
func (q *queue[E]) push(it item[E]) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}

	if it.kind == itemEvent && q.limit > 0 && len(q.items)-q.head >= q.limit {
		switch q.policy {
		case DropOldest:
			// Terminal items are always last, so the head is an event.
			q.items[q.head] = item[E]{}
			q.head++
			q.dropped++
		default:
			q.dropped++
			q.mu.Unlock()
			return false
		}
	}

	if len(q.items) == cap(q.items) && q.head > 0 {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	q.items = append(q.items, it)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// pop returns the next item, waiting until one is available. It returns false
// once ctx is done, even if items remain.
func (q *queue[E]) pop(ctx context.Context) (item[E], bool) {
	for {
		if ctx.Err() != nil {
			return item[E]{}, false
		}

		q.mu.Lock()
		if q.head < len(q.items) {
			it := q.items[q.head]
			q.items[q.head] = item[E]{}
			q.head++
			if q.head == len(q.items) {
				q.items = q.items[:0]
				q.head = 0
			}
			q.mu.Unlock()
			return it, true
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			return item[E]{}, false
		}
	}
}

// close discards everything pending and turns later pushes into no-ops.
func (q *queue[E]) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	clear(q.items)
	q.items = nil
	q.head = 0
}

func (q *queue[E]) stats() (pending int, dropped uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head, q.dropped
}
