package orchestration

import "sync"

// orderedQueue is an unbounded FIFO with a single consumer iterating over it
// while producers keep pushing.
type orderedQueue[T any] struct {
	mu           sync.Mutex
	items        []T
	complete     bool
	cleared      bool
	updateSignal chan struct{}
}

func newOrderedQueue[T any]() *orderedQueue[T] {
	return &orderedQueue[T]{
		updateSignal: make(chan struct{}, 1),
	}
}

// Push appends item. It reports false once the queue is complete or cleared.
func (q *orderedQueue[T]) Push(item T) bool {
	q.mu.Lock()
	if q.complete || q.cleared {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.signalUpdate()
	return true
}

// Complete lets the consumer finish once it has taken every pushed item.
func (q *orderedQueue[T]) Complete() {
	q.mu.Lock()
	q.complete = true
	q.mu.Unlock()
	q.signalUpdate()
}

// Clear drops items not yet taken and stops the consumer.
func (q *orderedQueue[T]) Clear() {
	q.mu.Lock()
	q.cleared = true
	q.items = nil
	q.mu.Unlock()
	q.signalUpdate()
}

func (q *orderedQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items yields items in push order until the queue is complete and empty, or
// cleared.
func (q *orderedQueue[T]) Items(yield func(T) bool) {
	for {
		q.mu.Lock()
		if q.cleared {
			q.mu.Unlock()
			return
		}

		if len(q.items) > 0 {
			item := q.items[0]
			var zero T
			q.items[0] = zero
			q.items = q.items[1:]
			q.mu.Unlock()
			if !yield(item) {
				return
			}
			continue
		}

		if q.complete {
			q.mu.Unlock()
			return
		}

		q.mu.Unlock()
		<-q.updateSignal
	}
}

func (q *orderedQueue[T]) signalUpdate() {
	select {
	case q.updateSignal <- struct{}{}:
	default:
	}
}
